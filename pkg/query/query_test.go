package query_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/JaimeStill/concord/pkg/query"
)

// decisions mirrors the stored classification view: decisions joined to the
// document they label.
func decisions() *query.ProjectionMap {
	return query.NewProjectionMap("public", "classifications", "c").
		Project("id", "ID").
		Project("label", "Label").
		Project("confidence", "Confidence").
		Project("validated_at", "ValidatedAt").
		Project("classified_at", "ClassifiedAt").
		Join("public", "documents", "d", "JOIN", "d.id = c.document_id").
		Project("filename", "DocumentName")
}

const (
	decisionColumns = "c.id, c.label, c.confidence, c.validated_at, c.classified_at, d.filename"
	decisionFrom    = "public.classifications c JOIN public.documents d ON d.id = c.document_id"
)

func ptr[T any](v T) *T { return &v }

func TestProjectionMap(t *testing.T) {
	p := decisions()

	if got := p.Table(); got != "public.classifications c" {
		t.Errorf("Table() = %q", got)
	}
	if got := p.From(); got != decisionFrom {
		t.Errorf("From() = %q, want %q", got, decisionFrom)
	}
	if got := p.Columns(); got != decisionColumns {
		t.Errorf("Columns() = %q, want %q", got, decisionColumns)
	}

	lookups := map[string]string{
		"Label":        "c.label",
		"DocumentName": "d.filename",
		"agreement":    "agreement",
	}
	for view, want := range lookups {
		if got := p.Column(view); got != want {
			t.Errorf("Column(%q) = %q, want %q", view, got, want)
		}
	}
}

func TestProjectionMapWithoutJoin(t *testing.T) {
	p := query.NewProjectionMap("public", "prompts", "p").
		Project("id", "ID").
		Project("stage", "Stage")

	if got := p.From(); got != "public.prompts p" {
		t.Errorf("From() = %q, want public.prompts p", got)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		input string
		want  []query.SortField
	}{
		{"", nil},
		{"Label", []query.SortField{{Field: "Label"}}},
		{"-Confidence", []query.SortField{{Field: "Confidence", Descending: true}}},
		{" Label , -ClassifiedAt ", []query.SortField{
			{Field: "Label"},
			{Field: "ClassifiedAt", Descending: true},
		}},
		{"Label,,DocumentName", []query.SortField{
			{Field: "Label"},
			{Field: "DocumentName"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseSortFields(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	newest := query.SortField{Field: "ClassifiedAt", Descending: true}

	tests := []struct {
		name     string
		build    func(*query.Builder) (string, []any)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "select all",
			build:   (*query.Builder).Build,
			wantSQL: "SELECT " + decisionColumns + " FROM " + decisionFrom + " ORDER BY c.classified_at DESC",
		},
		{
			name:    "count ignores ordering",
			build:   (*query.Builder).BuildCount,
			wantSQL: "SELECT COUNT(*) FROM " + decisionFrom,
		},
		{
			name: "second page",
			build: func(b *query.Builder) (string, []any) {
				return b.BuildPage(2, 10)
			},
			wantSQL: "SELECT " + decisionColumns + " FROM " + decisionFrom + " ORDER BY c.classified_at DESC LIMIT 10 OFFSET 10",
		},
		{
			name: "single by id",
			build: func(b *query.Builder) (string, []any) {
				return b.BuildSingle("ID", "7d1c")
			},
			wantSQL:  "SELECT " + decisionColumns + " FROM " + decisionFrom + " WHERE c.id = $1",
			wantArgs: []any{"7d1c"},
		},
		{
			name: "label set",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereIn("Label", []any{"RESTRICTED", "CONFIDENTIAL"}).BuildCount()
			},
			wantSQL:  "SELECT COUNT(*) FROM " + decisionFrom + " WHERE c.label IN ($1, $2)",
			wantArgs: []any{"RESTRICTED", "CONFIDENTIAL"},
		},
		{
			name: "empty label set skipped",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereIn("Label", nil).BuildCount()
			},
			wantSQL: "SELECT COUNT(*) FROM " + decisionFrom,
		},
		{
			name: "pending review",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereNull("ValidatedAt", ptr(true)).BuildCount()
			},
			wantSQL: "SELECT COUNT(*) FROM " + decisionFrom + " WHERE c.validated_at IS NULL",
		},
		{
			name: "reviewed",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereNull("ValidatedAt", ptr(false)).BuildCount()
			},
			wantSQL: "SELECT COUNT(*) FROM " + decisionFrom + " WHERE c.validated_at IS NOT NULL",
		},
		{
			name: "nil filters skipped",
			build: func(b *query.Builder) (string, []any) {
				var label *string
				return b.
					WhereEquals("Label", label).
					WhereEquals("Label", nil).
					WhereContains("DocumentName", nil).
					WhereContains("DocumentName", ptr("")).
					WhereSearch(nil, "DocumentName").
					WhereNull("ValidatedAt", nil).
					BuildCount()
			},
			wantSQL: "SELECT COUNT(*) FROM " + decisionFrom,
		},
		{
			name: "conditions number parameters in order",
			build: func(b *query.Builder) (string, []any) {
				return b.
					WhereIn("Label", []any{"PUBLIC"}).
					WhereNull("ValidatedAt", ptr(true)).
					WhereContains("DocumentName", ptr("brochure")).
					WhereEquals("Confidence", 0.95).
					BuildPage(3, 25)
			},
			wantSQL: "SELECT " + decisionColumns + " FROM " + decisionFrom +
				" WHERE c.label IN ($1) AND c.validated_at IS NULL AND d.filename ILIKE $2 AND c.confidence = $3" +
				" ORDER BY c.classified_at DESC LIMIT 25 OFFSET 50",
			wantArgs: []any{"PUBLIC", "%brochure%", 0.95},
		},
		{
			name: "search spans fields",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereSearch(ptr("payroll"), "DocumentName", "Label").BuildCount()
			},
			wantSQL:  "SELECT COUNT(*) FROM " + decisionFrom + " WHERE (d.filename ILIKE $1 OR c.label ILIKE $2)",
			wantArgs: []any{"%payroll%", "%payroll%"},
		},
		{
			name: "explicit order replaces default",
			build: func(b *query.Builder) (string, []any) {
				return b.OrderByFields([]query.SortField{
					{Field: "Label"},
					{Field: "Confidence", Descending: true},
				}).Build()
			},
			wantSQL: "SELECT " + decisionColumns + " FROM " + decisionFrom + " ORDER BY c.label ASC, c.confidence DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.build(query.NewBuilder(decisions(), newest))

			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if diff := cmp.Diff(tt.wantArgs, args, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
