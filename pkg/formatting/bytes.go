// Package formatting parses and renders the values that cross the service
// boundary as text: byte sizes from configuration and JSON from model replies.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// units are base-1024 and stop at TB; upload limits never approach more.
var units = []string{"B", "KB", "MB", "GB", "TB"}

var bytesPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// FormatBytes renders n with the largest unit that keeps the value at or
// above one. Negative precision is treated as zero.
func FormatBytes(n int64, precision int) string {
	precision = max(precision, 0)

	size, i := float64(n), 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}

	return strconv.FormatFloat(size, 'f', precision, 64) + " " + units[i]
}

// ParseBytes parses sizes such as "50MB", "512 kb", "1.5G" or "1024".
// A bare number is bytes and the trailing B of a unit is optional.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	m := bytesPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	unit := strings.ToUpper(m[2])
	if unit != "" && unit != "B" && !strings.HasSuffix(unit, "B") {
		unit += "B"
	}

	for i, u := range units {
		if unit == "" || unit == u {
			return int64(value * math.Pow(1024, float64(i))), nil
		}
	}
	return 0, fmt.Errorf("unknown byte size unit %q", m[2])
}
