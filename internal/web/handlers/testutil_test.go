package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/image-search/internal/app"
	"github.com/kozaktomas/image-search/internal/config"
	"github.com/kozaktomas/image-search/internal/kvstore"
	"github.com/kozaktomas/image-search/internal/notify"
)

// testConfig creates a minimal config for testing
func testConfig(url string) *config.Config {
	return &config.Config{
		Backend:  config.BackendConfig{URL: url},
		Storage:  config.StorageConfig{Type: "memory"},
		Defaults: config.LoadDefaults(),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// defaultBackendHandlers serve a ready configuration for /data/x with two
// known faces.
func defaultBackendHandlers() map[string]http.HandlerFunc {
	return map[string]http.HandlerFunc{
		"GET /settings": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"k": 2, "selectedIndex": "IndexFlatL2", "url": "/data/x",
				"threshold": 0.2, "selectedDevice": "cpu", "recent_paths": []string{"/data/x"},
			})
		},
		"POST /settings": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"message": "Settings saved"})
		},
		"GET /face/metadata": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"success": true, "hasMetadata": true, "faces": []string{"alice", "bob"}})
		},
		"POST /predict": func(w http.ResponseWriter, r *http.Request) {
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			query, _ := req["query"].(string)
			resolved := query
			if query == "cats" {
				resolved = "cat"
			}
			writeJSON(w, map[string]any{
				"query": resolved,
				"images": []map[string]string{
					{"name": "1.jpg", "data": encode("one")},
					{"name": "2.jpg", "data": encode("two")},
				},
			})
		},
	}
}

// setupMockBackend starts a mock search service and an App connected to
// it. Entries in overrides replace the default handlers.
func setupMockBackend(t *testing.T, overrides map[string]http.HandlerFunc) (*app.App, *notify.Recorder) {
	t.Helper()

	routes := defaultBackendHandlers()
	for pattern, handler := range overrides {
		routes[pattern] = handler
	}
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	rec := &notify.Recorder{}
	a, err := app.New(testConfig(server.URL), testLogger(),
		app.WithStore(kvstore.NewMemoryStore()),
		app.WithNotifier(rec),
	)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	a.Start(context.Background())
	return a, rec
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(recorder.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", recorder.Body.String(), err)
	}
	return v
}
