package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pathlearn/pathlearn/internal/platform/config"
)

func TestHealthEndpoints(t *testing.T) {
	// No database or cache configured, so readyz has nothing to probe.
	mux := newMux(&app{})

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthz returns 200",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "readyz returns 200",
			path:       "/readyz",
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ready"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestBuildAppMemoryMode(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Database.MaxConns = 10
	cfg.Database.MinConns = 2
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	a, err := buildApp(t.Context(), cfg)
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer a.close()

	if a.db != nil {
		t.Error("expected no database connection in memory mode")
	}
	if a.cache != nil {
		t.Error("expected no cache connection in memory mode")
	}
	for name, svc := range map[string]any{
		"resolver": a.resolver,
		"tracker":  a.tracker,
		"ledger":   a.ledger,
		"quizzes":  a.quizzes,
		"reviews":  a.reviews,
		"tickets":  a.tickets,
	} {
		if svc == nil {
			t.Errorf("service %s is nil", name)
		}
	}
}
