package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when a model reply holds no JSON value of the
// requested shape.
var ErrParseFailed = errors.New("failed to parse response")

// excerptLimit caps how much of an unparseable reply is echoed in errors.
const excerptLimit = 200

var fencedBlock = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)\\n?```")

// Parse unmarshals a model reply into T. Replies are tried as-is, then as
// the body of a markdown code fence, then as the outermost {...} span for
// replies that wrap a bare object in prose.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	for _, candidate := range candidates(content) {
		if err := json.Unmarshal([]byte(candidate), &result); err == nil {
			return result, nil
		}
		result = *new(T)
	}

	return result, fmt.Errorf("%w: %s", ErrParseFailed, excerpt(content))
}

func candidates(content string) []string {
	out := []string{content}

	if m := fencedBlock.FindStringSubmatch(content); len(m) == 2 {
		out = append(out, strings.TrimSpace(m[1]))
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		out = append(out, content[start:end+1])
	}

	return out
}

func excerpt(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit] + "..."
}
