package middleware_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JaimeStill/concord/pkg/middleware"
)

const console = "https://review.concord.example"

func TestApplyOrder(t *testing.T) {
	var order []string
	layer := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	sys := middleware.New()
	sys.Use(layer("cors"))
	sys.Use(layer("tracing"))
	sys.Use(layer("logger"))

	h := sys.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "classify")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/documents/4c2e/classify", nil))

	if diff := cmp.Diff([]string{"cors", "tracing", "logger", "classify"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestCORS(t *testing.T) {
	policy := middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{console},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	}
	withCredentials := policy
	withCredentials.AllowCredentials = true

	tests := []struct {
		name        string
		cfg         middleware.CORSConfig
		method      string
		origin      string
		wantCode    int
		wantHeaders map[string]string
		wantReached bool
	}{
		{
			name:        "disabled",
			cfg:         middleware.CORSConfig{Origins: []string{console}},
			method:      http.MethodGet,
			origin:      console,
			wantCode:    http.StatusOK,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
			wantReached: true,
		},
		{
			name:     "console origin",
			cfg:      policy,
			method:   http.MethodGet,
			origin:   console,
			wantCode: http.StatusOK,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin":      console,
				"Access-Control-Allow-Methods":     "GET, POST",
				"Access-Control-Allow-Headers":     "Content-Type, Authorization",
				"Access-Control-Max-Age":           "600",
				"Access-Control-Allow-Credentials": "",
				"Vary":                             "Origin",
			},
			wantReached: true,
		},
		{
			name:        "unknown origin",
			cfg:         policy,
			method:      http.MethodGet,
			origin:      "https://elsewhere.example",
			wantCode:    http.StatusOK,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
			wantReached: true,
		},
		{
			name:     "preflight",
			cfg:      policy,
			method:   http.MethodOptions,
			origin:   console,
			wantCode: http.StatusNoContent,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin": console,
			},
		},
		{
			name:     "credentials",
			cfg:      withCredentials,
			method:   http.MethodPost,
			origin:   console,
			wantCode: http.StatusOK,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Credentials": "true",
			},
			wantReached: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reached bool
			h := middleware.CORS(&tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				reached = true
			}))

			req := httptest.NewRequest(tt.method, "/classifications", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if reached != tt.wantReached {
				t.Errorf("handler reached = %v, want %v", reached, tt.wantReached)
			}
			for k, want := range tt.wantHeaders {
				if got := rec.Header().Get(k); got != want {
					t.Errorf("%s = %q, want %q", k, got, want)
				}
			}
		})
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   []string
	}{
		{"decision served", http.StatusOK, []string{"level=INFO", "status=200", "uri=/classifications/4c2e"}},
		{"implicit ok", 0, []string{"level=INFO", "status=200"}},
		{"arbitration failed", http.StatusBadGateway, []string{"level=ERROR", "status=502"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
				}
				_, _ = io.WriteString(w, `{"label":"PUBLIC"}`)
			}))
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/classifications/4c2e", nil))

			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("log line %q missing %q", buf.String(), want)
				}
			}
		})
	}
}

func TestCORSConfigFinalize(t *testing.T) {
	env := &middleware.CORSEnv{
		Enabled:          "CONCORD_CORS_ENABLED",
		Origins:          "CONCORD_CORS_ORIGINS",
		AllowedMethods:   "CONCORD_CORS_ALLOWED_METHODS",
		AllowCredentials: "CONCORD_CORS_ALLOW_CREDENTIALS",
		MaxAge:           "CONCORD_CORS_MAX_AGE",
	}

	tests := []struct {
		name string
		env  map[string]string
		want middleware.CORSConfig
	}{
		{
			name: "defaults",
			want: middleware.CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         3600,
			},
		},
		{
			name: "env overrides",
			env: map[string]string{
				"CONCORD_CORS_ENABLED":           "true",
				"CONCORD_CORS_ORIGINS":           console + ", ,http://localhost:5173",
				"CONCORD_CORS_ALLOWED_METHODS":   "GET,POST",
				"CONCORD_CORS_ALLOW_CREDENTIALS": "yes please",
				"CONCORD_CORS_MAX_AGE":           "120",
			},
			want: middleware.CORSConfig{
				Enabled:        true,
				Origins:        []string{console, "http://localhost:5173"},
				AllowedMethods: []string{"GET", "POST"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         120,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			var cfg middleware.CORSConfig
			if err := cfg.Finalize(env); err != nil {
				t.Fatalf("Finalize error: %v", err)
			}
			if diff := cmp.Diff(tt.want, cfg); diff != "" {
				t.Errorf("config mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{"http://localhost:5173"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}
	base.Merge(&middleware.CORSConfig{Origins: []string{console}, MaxAge: 600})

	want := middleware.CORSConfig{
		Origins:        []string{console},
		AllowedMethods: []string{"GET"},
		MaxAge:         600,
	}
	if diff := cmp.Diff(want, base); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}
}
