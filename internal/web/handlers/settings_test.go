package handlers

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/kozaktomas/image-search/internal/settings"
)

func TestSettingsHandler_Get(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSettingsHandler(a.Session, testLogger())

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	resp := decodeBody[SettingsResponse](t, recorder)
	if resp.Committed.CorpusLocation != "/data/x" || !resp.Complete {
		t.Errorf("unexpected committed configuration: %+v", resp.Committed)
	}
	if resp.ExportLabel != "images" {
		t.Errorf("expected export label 'images', got %q", resp.ExportLabel)
	}
	if !slices.Equal(resp.History, []string{"/data/x"}) {
		t.Errorf("unexpected history %v", resp.History)
	}
}

func TestSettingsHandler_UpdateDraftAndCommit(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSettingsHandler(a.Session, testLogger())

	recorder := httptest.NewRecorder()
	handler.UpdateDraft(recorder, jsonRequest(http.MethodPut, "/api/v1/settings/draft",
		`{"url":"/data/y","k":"5","folderName":"holiday"}`))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	// Draft edits do not touch the committed configuration.
	if a.Session.Committed().CorpusLocation != "/data/x" {
		t.Error("draft edit leaked into committed configuration")
	}

	recorder = httptest.NewRecorder()
	handler.Commit(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/settings/commit", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	resp := decodeBody[SettingsResponse](t, recorder)
	if resp.Committed.CorpusLocation != "/data/y" || *resp.Committed.ResultCount != 5 {
		t.Errorf("unexpected committed configuration: %+v", resp.Committed)
	}
	if resp.ExportLabel != "holiday" {
		t.Errorf("expected export label 'holiday', got %q", resp.ExportLabel)
	}
	if !slices.Equal(resp.History, []string{"/data/y", "/data/x"}) {
		t.Errorf("unexpected history %v", resp.History)
	}
}

func TestSettingsHandler_UpdateDraftIsAtomic(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSettingsHandler(a.Session, testLogger())

	tests := []struct {
		name string
		body string
	}{
		{"invalid k", `{"url":"/data/z","k":"0"}`},
		{"unknown field", `{"url":"/data/z","color":"red"}`},
		{"invalid json", `{"url":`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.UpdateDraft(recorder, jsonRequest(http.MethodPut, "/api/v1/settings/draft", tc.body))
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", recorder.Code)
			}
			if a.Session.Draft().CorpusLocation == "/data/z" {
				t.Error("rejected edit was partially applied")
			}
		})
	}
}

func TestSettingsHandler_ConcurrentDraftEditsAreKept(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSettingsHandler(a.Session, testLogger())

	bodies := []string{
		`{"url":"/data/concurrent"}`,
		`{"k":"7"}`,
		`{"threshold":"0.5"}`,
		`{"selectedIndex":"IndexIVFPQ"}`,
		`{"selectedDevice":"gpu"}`,
		`{"folderName":"merged"}`,
	}

	var wg sync.WaitGroup
	for _, body := range bodies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recorder := httptest.NewRecorder()
			handler.UpdateDraft(recorder, jsonRequest(http.MethodPut, "/api/v1/settings/draft", body))
			if recorder.Code != http.StatusOK {
				t.Errorf("%s: expected status 200, got %d", body, recorder.Code)
			}
		}()
	}
	wg.Wait()

	d := a.Session.Draft()
	if d.CorpusLocation != "/data/concurrent" ||
		d.ResultCount == nil || *d.ResultCount != 7 ||
		d.SimilarityThreshold == nil || *d.SimilarityThreshold != 0.5 ||
		d.IndexAlgorithm != settings.IndexIVFPQ ||
		d.ComputeDevice != settings.DeviceGPU ||
		d.ExportLabel != "merged" {
		t.Errorf("an edit was lost: %+v (k=%v threshold=%v)", d, d.ResultCount, d.SimilarityThreshold)
	}
}

func TestSettingsHandler_Cancel(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSettingsHandler(a.Session, testLogger())

	handler.UpdateDraft(httptest.NewRecorder(), jsonRequest(http.MethodPut, "/api/v1/settings/draft", `{"url":"/tmp"}`))

	recorder := httptest.NewRecorder()
	handler.Cancel(recorder, httptest.NewRequest(http.MethodDelete, "/api/v1/settings/draft", nil))

	resp := decodeBody[SettingsResponse](t, recorder)
	if resp.Draft.CorpusLocation != "/data/x" {
		t.Errorf("draft not reset: %+v", resp.Draft)
	}
}

func TestSettingsHandler_CommitRemoteFailure(t *testing.T) {
	a, rec := setupMockBackend(t, map[string]http.HandlerFunc{
		"POST /settings": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"disk full"}`))
		},
	})
	handler := NewSettingsHandler(a.Session, testLogger())

	handler.UpdateDraft(httptest.NewRecorder(), jsonRequest(http.MethodPut, "/api/v1/settings/draft", `{"url":"/data/new"}`))

	recorder := httptest.NewRecorder()
	handler.Commit(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/settings/commit", nil))

	if recorder.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", recorder.Code)
	}
	body := decodeBody[map[string]any](t, recorder)
	if body["error"] != "disk full" {
		t.Errorf("expected server message, got %v", body["error"])
	}
	// The local commit and history write stand.
	if a.Session.Committed().CorpusLocation != "/data/new" {
		t.Error("local commit should stand")
	}
	if a.Session.History()[0] != "/data/new" {
		t.Error("history should contain the new location")
	}
	last, _ := rec.Last()
	if last.Message != "disk full" {
		t.Errorf("unexpected notification %+v", last)
	}
}

func TestSettingsHandler_History(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSettingsHandler(a.Session, testLogger())

	recorder := httptest.NewRecorder()
	handler.History(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))

	body := decodeBody[map[string][]string](t, recorder)
	if !slices.Equal(body["savedUrls"], []string{"/data/x"}) {
		t.Errorf("unexpected history %v", body)
	}
}
