package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/image-search/internal/app"
	"github.com/kozaktomas/image-search/internal/config"
	"github.com/kozaktomas/image-search/internal/kvstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/settings":
			w.Write([]byte(`{"k":1,"selectedIndex":"IndexFlatL2","url":"/data/x","threshold":0,"selectedDevice":"cpu","recent_paths":[]}`))
		case "/face/metadata":
			w.Write([]byte(`{"success":true,"hasMetadata":false,"faces":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(backendSrv.Close)

	cfg := &config.Config{
		Backend:  config.BackendConfig{URL: backendSrv.URL},
		Web:      config.WebConfig{Host: "127.0.0.1", Port: 0},
		Defaults: config.LoadDefaults(),
	}
	a, err := app.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), app.WithStore(kvstore.NewMemoryStore()))
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	a.Start(context.Background())
	return NewServer(a)
}

func TestRoutes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodGet, "/api/v1/config", "", http.StatusOK},
		{http.MethodGet, "/api/v1/settings", "", http.StatusOK},
		{http.MethodGet, "/api/v1/history", "", http.StatusOK},
		{http.MethodGet, "/api/v1/search/readiness?query=cat", "", http.StatusOK},
		{http.MethodGet, "/api/v1/search/result", "", http.StatusOK},
		{http.MethodGet, "/api/v1/search/images/0", "", http.StatusNotFound},
		{http.MethodPost, "/api/v1/search", `{"query":""}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/faces", "", http.StatusOK},
		{http.MethodGet, "/api/v1/export", "", http.StatusOK},
		{http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
		{http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			recorder := httptest.NewRecorder()
			s.Router().ServeHTTP(recorder, req)

			if recorder.Code != tc.status {
				t.Errorf("expected status %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestRoutes_SettingsReflectBackend(t *testing.T) {
	s := newTestServer(t)

	recorder := httptest.NewRecorder()
	s.Router().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	var body struct {
		Committed struct {
			URL           string `json:"url"`
			SelectedIndex string `json:"selectedIndex"`
		} `json:"committed"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body.Committed.URL != "/data/x" || body.Committed.SelectedIndex != "IndexFlatL2" {
		t.Errorf("unexpected settings %+v", body)
	}
}
