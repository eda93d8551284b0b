package formatting_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/pkg/formatting"
)

type judgment struct {
	Label      string   `json:"label"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	Evidence   []string `json:"evidence"`
}

func TestParse(t *testing.T) {
	want := judgment{
		Label:      "CONFIDENTIAL",
		Confidence: 0.82,
		Rationale:  "internal roadmap",
		Evidence:   []string{"product roadmaps"},
	}
	body := `{"label":"CONFIDENTIAL","confidence":0.82,"rationale":"internal roadmap","evidence":["product roadmaps"]}`

	tests := []struct {
		name  string
		reply string
	}{
		{"bare object", body},
		{"padded object", "\n  " + body + "  \n"},
		{"json fence", "```json\n" + body + "\n```"},
		{"untagged fence", "```\n" + body + "\n```"},
		{"fence inside prose", "Here is my assessment:\n```json\n" + body + "\n```\nLet me know."},
		{"object inside prose", "Assessment follows. " + body + " End of assessment."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatting.Parse[judgment](tt.reply)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("judgment mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty reply", ""},
		{"prose only", "I cannot classify this document."},
		{"broken fence", "```json\n{\"label\": \n```"},
		{"wrong shape", `["RESTRICTED", 0.9]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formatting.Parse[judgment](tt.reply)
			if !errors.Is(err, formatting.ErrParseFailed) {
				t.Errorf("err = %v, want ErrParseFailed", err)
			}
		})
	}

	t.Run("long replies truncated in error", func(t *testing.T) {
		_, err := formatting.Parse[judgment](strings.Repeat("unstructured ", 100))
		if err == nil {
			t.Fatal("Parse succeeded, want error")
		}
		if len(err.Error()) > 300 || !strings.HasSuffix(err.Error(), "...") {
			t.Errorf("error length = %d, want truncated excerpt", len(err.Error()))
		}
	})
}

func TestParseGuidance(t *testing.T) {
	type guidance struct {
		Instructions string `json:"instructions"`
	}

	got, err := formatting.Parse[guidance]("```JSON\n{\"instructions\":\"compare audience signals\"}\n```")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got.Instructions != "compare audience signals" {
		t.Errorf("instructions = %q", got.Instructions)
	}
}
