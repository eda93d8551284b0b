package documents

import (
	"iter"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/JaimeStill/concord/pkg/query"
	"github.com/JaimeStill/concord/pkg/repository"
	"github.com/JaimeStill/concord/workflow"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "classifications", "c", "LEFT JOIN", "d.id = c.document_id").
	Project("label", "Label").
	Project("confidence", "Confidence").
	Project("classified_at", "ClassifiedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

var statuses = []string{StatusPending, StatusReview, StatusComplete}

// Filters narrows document listings. Statuses and Labels match any listed
// value. Classified selects documents with (true) or without (false) a
// decision. Filename and StorageKey are substring matches.
type Filters struct {
	Statuses    []string         `json:"statuses,omitempty"`
	Labels      []workflow.Label `json:"labels,omitempty"`
	Classified  *bool            `json:"classified,omitempty"`
	Filename    *string          `json:"filename,omitempty"`
	ContentType *string          `json:"content_type,omitempty"`
	StorageKey  *string          `json:"storage_key,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	var unclassified *bool
	if f.Classified != nil {
		v := !*f.Classified
		unclassified = &v
	}

	return b.
		WhereIn("Status", stringArgs(f.Statuses)).
		WhereIn("Label", stringArgs(f.Labels)).
		WhereNull("ClassifiedAt", unclassified).
		WhereContains("Filename", f.Filename).
		WhereEquals("ContentType", f.ContentType).
		WhereContains("StorageKey", f.StorageKey)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// status and label may repeat or hold comma-separated lists. Unknown
// statuses, unknown labels and malformed booleans are dropped.
func FiltersFromQuery(values url.Values) Filters {
	f := Filters{
		Filename:    nonEmpty(values.Get("filename")),
		ContentType: nonEmpty(values.Get("content_type")),
		StorageKey:  nonEmpty(values.Get("storage_key")),
	}

	for part := range listValues(values["status"]) {
		s := strings.ToLower(part)
		if slices.Contains(statuses, s) && !slices.Contains(f.Statuses, s) {
			f.Statuses = append(f.Statuses, s)
		}
	}

	for part := range listValues(values["label"]) {
		if l, err := workflow.ParseLabel(part); err == nil && !slices.Contains(f.Labels, l) {
			f.Labels = append(f.Labels, l)
		}
	}

	if v, err := strconv.ParseBool(values.Get("classified")); err == nil {
		f.Classified = &v
	}

	return f
}

func listValues(raw []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, r := range raw {
			for part := range strings.SplitSeq(r, ",") {
				if part = strings.TrimSpace(part); part != "" && !yield(part) {
					return
				}
			}
		}
	}
}

func stringArgs[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.Status,
		&d.UploadedAt,
		&d.UpdatedAt,
		&d.Label,
		&d.Confidence,
		&d.ClassifiedAt,
	)
	return d, err
}
