package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/JaimeStill/concord/internal/documents"
	"github.com/JaimeStill/concord/pkg/pagination"
	"github.com/JaimeStill/concord/pkg/routes"
	"github.com/JaimeStill/concord/workflow"
)

const uploadLimit = 64

// mockSystem answers from fixed fields and records what the handler passed.
type mockSystem struct {
	stored documents.Document
	err    error

	gotID      uuid.UUID
	gotPage    pagination.PageRequest
	gotFilters documents.Filters
	created    []documents.CreateCommand
}

func (m *mockSystem) Handler(maxUploadSize int64) *documents.Handler {
	return documents.NewHandler(m, slog.New(slog.NewTextHandler(io.Discard, nil)), pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}, maxUploadSize)
}

func (m *mockSystem) List(_ context.Context, page pagination.PageRequest, f documents.Filters) (*pagination.PageResult[documents.Document], error) {
	m.gotPage, m.gotFilters = page, f
	if m.err != nil {
		return nil, m.err
	}
	result := pagination.NewPageResult([]documents.Document{m.stored}, 1, page.Page, page.PageSize)
	return &result, nil
}

func (m *mockSystem) Find(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	m.gotID = id
	if m.err != nil {
		return nil, m.err
	}
	d := m.stored
	return &d, nil
}

func (m *mockSystem) Create(_ context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	m.created = append(m.created, cmd)
	if m.err != nil {
		return nil, m.err
	}
	d := m.stored
	d.Filename, d.ContentType, d.SizeBytes = cmd.Filename, cmd.ContentType, int64(len(cmd.Data))
	return &d, nil
}

func (m *mockSystem) Delete(_ context.Context, id uuid.UUID) error {
	m.gotID = id
	return m.err
}

func (m *mockSystem) Text(context.Context, uuid.UUID) (*documents.Document, string, error) {
	return nil, "", documents.ErrNotFound
}

var exportMemo = documents.Document{
	ID:          uuid.MustParse("550e8400-e29b-41d4-a716-446655440000"),
	Filename:    "customer-export.txt",
	ContentType: "text/plain",
	SizeBytes:   41,
	StorageKey:  "documents/550e8400-e29b-41d4-a716-446655440000/customer-export.txt",
	Status:      documents.StatusReview,
	UploadedAt:  time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	UpdatedAt:   time.Date(2026, 3, 2, 9, 31, 0, 0, time.UTC),
	Label:       ptr("RESTRICTED"),
}

type part struct {
	field, filename, contentType, body string
}

func multipartBody(t *testing.T, parts ...part) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		io.WriteString(w, p.body)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func serve(sys *mockSystem, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	routes.Register(mux, sys.Handler(uploadLimit).Routes())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v", v, err)
	}
	return v
}

func TestHandlerStatus(t *testing.T) {
	id := exportMemo.ID.String()
	memo := part{"file", "memo.txt", "text/plain", "quarterly figures"}

	tests := []struct {
		name   string
		method string
		target string
		parts  []part
		body   string
		err    error
		want   int
	}{
		{"list", "GET", "/documents", nil, "", nil, http.StatusOK},
		{"list store down", "GET", "/documents", nil, "", io.ErrUnexpectedEOF, http.StatusInternalServerError},
		{"find", "GET", "/documents/" + id, nil, "", nil, http.StatusOK},
		{"find malformed id", "GET", "/documents/export", nil, "", nil, http.StatusBadRequest},
		{"find missing", "GET", "/documents/" + id, nil, "", documents.ErrNotFound, http.StatusNotFound},
		{"search", "POST", "/documents/search", nil, `{"page":2,"statuses":["review"]}`, nil, http.StatusOK},
		{"search malformed body", "POST", "/documents/search", nil, `{"page":`, nil, http.StatusBadRequest},
		{"delete", "DELETE", "/documents/" + id, nil, "", nil, http.StatusNoContent},
		{"delete missing", "DELETE", "/documents/" + id, nil, "", documents.ErrNotFound, http.StatusNotFound},
		{"upload", "POST", "/documents", []part{memo}, "", nil, http.StatusCreated},
		{"upload duplicate", "POST", "/documents", []part{memo}, "", documents.ErrDuplicate, http.StatusConflict},
		{"upload wrong field", "POST", "/documents", []part{{"files", "memo.txt", "", "x"}}, "", nil, http.StatusBadRequest},
		{"upload two files", "POST", "/documents", []part{memo, memo}, "", nil, http.StatusBadRequest},
		{"upload empty file", "POST", "/documents", []part{{"file", "blank.txt", "text/plain", ""}}, "", nil, http.StatusBadRequest},
		{"upload over limit", "POST", "/documents", []part{{"file", "dump.txt", "text/plain", strings.Repeat("x", uploadLimit+1)}}, "", nil, http.StatusRequestEntityTooLarge},
		{"upload not multipart", "POST", "/documents", nil, "plain body", nil, http.StatusBadRequest},
		{"batch without files", "POST", "/documents/batch", []part{memo}, "", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.parts != nil {
				body, ct := multipartBody(t, tt.parts...)
				req = httptest.NewRequest(tt.method, tt.target, body)
				req.Header.Set("Content-Type", ct)
			} else {
				req = httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			}

			rec := serve(&mockSystem{stored: exportMemo, err: tt.err}, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestHandlerListFilters(t *testing.T) {
	sys := &mockSystem{stored: exportMemo}
	rec := serve(sys, httptest.NewRequest("GET",
		"/documents?page=2&page_size=5&status=review,archived&label=restricted&classified=true&filename=export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := documents.Filters{
		Statuses:   []string{documents.StatusReview},
		Labels:     []workflow.Label{workflow.LabelRestricted},
		Classified: ptr(true),
		Filename:   ptr("export"),
	}
	if diff := cmp.Diff(want, sys.gotFilters); diff != "" {
		t.Errorf("filters mismatch (-want +got):\n%s", diff)
	}
	if sys.gotPage.Page != 2 || sys.gotPage.PageSize != 5 {
		t.Errorf("page = %d/%d, want 2/5", sys.gotPage.Page, sys.gotPage.PageSize)
	}

	result := decode[pagination.PageResult[documents.Document]](t, rec)
	if diff := cmp.Diff([]documents.Document{exportMemo}, result.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerSearchNormalizesPage(t *testing.T) {
	sys := &mockSystem{stored: exportMemo}
	rec := serve(sys, httptest.NewRequest("POST", "/documents/search",
		strings.NewReader(`{"page":0,"page_size":500,"labels":["CONFIDENTIAL"]}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if sys.gotPage.Page != 1 || sys.gotPage.PageSize != 100 {
		t.Errorf("page = %d/%d, want 1/100", sys.gotPage.Page, sys.gotPage.PageSize)
	}
	if diff := cmp.Diff([]workflow.Label{workflow.LabelConfidential}, sys.gotFilters.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerUploadCommand(t *testing.T) {
	tests := []struct {
		name string
		part part
		want documents.CreateCommand
	}{
		{
			name: "declared type without parameters",
			part: part{"file", "memo.txt", "text/plain; charset=utf-8", "board minutes"},
			want: documents.CreateCommand{Data: []byte("board minutes"), Filename: "memo.txt", ContentType: "text/plain"},
		},
		{
			name: "generic type sniffed",
			part: part{"file", "notes", "application/octet-stream", "release notes"},
			want: documents.CreateCommand{Data: []byte("release notes"), Filename: "notes", ContentType: "text/plain"},
		},
		{
			name: "missing type sniffed",
			part: part{"file", "page.html", "", "<html><body>hi</body></html>"},
			want: documents.CreateCommand{Data: []byte("<html><body>hi</body></html>"), Filename: "page.html", ContentType: "text/html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.part)
			req := httptest.NewRequest("POST", "/documents", body)
			req.Header.Set("Content-Type", ct)

			sys := &mockSystem{stored: exportMemo}
			rec := serve(sys, req)
			if rec.Code != http.StatusCreated {
				t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body)
			}
			if diff := cmp.Diff([]documents.CreateCommand{tt.want}, sys.created); diff != "" {
				t.Errorf("command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandlerUploadBatch(t *testing.T) {
	body, ct := multipartBody(t,
		part{"files", "minutes.txt", "text/plain", "board minutes"},
		part{"files", "blank.txt", "text/plain", ""},
		part{"files", "dump.txt", "text/plain", strings.Repeat("x", uploadLimit+1)},
		part{"files", "roadmap.txt", "text/plain", "public roadmap"},
	)
	req := httptest.NewRequest("POST", "/documents/batch", body)
	req.Header.Set("Content-Type", ct)

	sys := &mockSystem{stored: exportMemo}
	rec := serve(sys, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	results := decode[[]documents.BatchResult](t, rec)
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4", len(results))
	}

	for i, want := range []struct {
		filename string
		ok       bool
	}{
		{"minutes.txt", true},
		{"blank.txt", false},
		{"dump.txt", false},
		{"roadmap.txt", true},
	} {
		got := results[i]
		if got.Filename != want.filename {
			t.Errorf("results[%d].Filename = %q, want %q", i, got.Filename, want.filename)
		}
		if ok := got.Document != nil && got.Error == ""; ok != want.ok {
			t.Errorf("results[%d] ok = %v, want %v (error %q)", i, ok, want.ok, got.Error)
		}
	}

	if len(sys.created) != 2 {
		t.Errorf("created = %d, want 2 rejected files skipped", len(sys.created))
	}
}

func TestHandlerRoutes(t *testing.T) {
	group := (&mockSystem{}).Handler(uploadLimit).Routes()

	got := make([]string, len(group.Routes))
	for i, r := range group.Routes {
		got[i] = r.Method + " " + group.Prefix + r.Pattern
	}

	want := []string{
		"GET /documents",
		"GET /documents/{id}",
		"POST /documents",
		"POST /documents/batch",
		"POST /documents/search",
		"DELETE /documents/{id}",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("routes mismatch (-want +got):\n%s", diff)
	}
}
