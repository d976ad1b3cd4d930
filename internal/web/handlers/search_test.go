package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchHandler_Readiness(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSearchHandler(a.Search)

	recorder := httptest.NewRecorder()
	handler.Readiness(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/search/readiness", nil))
	resp := decodeBody[ReadinessResponse](t, recorder)
	if resp.Ready || resp.Tooltip != "Please fill in: query" {
		t.Errorf("unexpected readiness %+v", resp)
	}

	recorder = httptest.NewRecorder()
	handler.Readiness(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/search/readiness?query=dog", nil))
	resp = decodeBody[ReadinessResponse](t, recorder)
	if !resp.Ready || resp.Tooltip != "Ready to search" || len(resp.Missing) != 0 {
		t.Errorf("unexpected readiness %+v", resp)
	}
}

func TestSearchHandler_Search(t *testing.T) {
	a, rec := setupMockBackend(t, nil)
	handler := NewSearchHandler(a.Search)

	recorder := httptest.NewRecorder()
	handler.Search(recorder, jsonRequest(http.MethodPost, "/api/v1/search", `{"query":"dog"}`))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	resp := decodeBody[ResultResponse](t, recorder)
	if len(resp.Images) != 2 || resp.Images[0].Name != "1.jpg" || resp.Images[0].Size != 3 {
		t.Errorf("unexpected images %+v", resp.Images)
	}
	if !strings.HasPrefix(resp.Images[0].DataURL, "data:") {
		t.Errorf("expected data URL, got %q", resp.Images[0].DataURL)
	}
	if resp.CorrectedQuery != nil {
		t.Errorf("unexpected correction %q", *resp.CorrectedQuery)
	}
	last, _ := rec.Last()
	if last.Message != "Images fetched successfully!" {
		t.Errorf("unexpected notification %+v", last)
	}
}

func TestSearchHandler_SuggestionFlow(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSearchHandler(a.Search)

	recorder := httptest.NewRecorder()
	handler.Search(recorder, jsonRequest(http.MethodPost, "/api/v1/search", `{"query":"cats"}`))
	resp := decodeBody[ResultResponse](t, recorder)
	if resp.CorrectedQuery == nil || *resp.CorrectedQuery != "cat" {
		t.Fatalf("expected correction 'cat', got %v", resp.CorrectedQuery)
	}

	recorder = httptest.NewRecorder()
	handler.AcceptSuggestion(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/search/suggestion", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	resp = decodeBody[ResultResponse](t, recorder)
	if resp.Query != "cat" || resp.CorrectedQuery != nil {
		t.Errorf("unexpected result %+v", resp)
	}

	recorder = httptest.NewRecorder()
	handler.AcceptSuggestion(recorder, httptest.NewRequest(http.MethodPost, "/api/v1/search/suggestion", nil))
	if recorder.Code != http.StatusNotFound {
		t.Errorf("expected status 404 without suggestion, got %d", recorder.Code)
	}
}

func TestSearchHandler_NotReady(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSearchHandler(a.Search)

	recorder := httptest.NewRecorder()
	handler.Search(recorder, jsonRequest(http.MethodPost, "/api/v1/search", `{"query":"  "}`))
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", recorder.Code)
	}
}

func TestSearchHandler_BackendFailure(t *testing.T) {
	a, _ := setupMockBackend(t, map[string]http.HandlerFunc{
		"POST /predict": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"model not loaded"}`))
		},
	})
	handler := NewSearchHandler(a.Search)

	recorder := httptest.NewRecorder()
	handler.Search(recorder, jsonRequest(http.MethodPost, "/api/v1/search", `{"query":"dog"}`))
	if recorder.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", recorder.Code)
	}
	if body := decodeBody[map[string]string](t, recorder); body["error"] != "model not loaded" {
		t.Errorf("unexpected error %v", body)
	}
}

func TestSearchHandler_ResultAndImage(t *testing.T) {
	a, _ := setupMockBackend(t, nil)
	handler := NewSearchHandler(a.Search)

	recorder := httptest.NewRecorder()
	handler.Result(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/search/result", nil))
	if body := decodeBody[map[string]any](t, recorder); body["result"] != nil {
		t.Errorf("expected null result before first search, got %v", body["result"])
	}

	handler.Search(httptest.NewRecorder(), jsonRequest(http.MethodPost, "/api/v1/search", `{"query":"dog"}`))

	req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/search/images/1", nil), map[string]string{"index": "1"})
	recorder = httptest.NewRecorder()
	handler.Image(recorder, req)
	if recorder.Code != http.StatusOK || recorder.Body.String() != "two" {
		t.Errorf("unexpected image response %d %q", recorder.Code, recorder.Body.String())
	}

	for _, index := range []string{"2", "-1", "x"} {
		req := requestWithChiParams(httptest.NewRequest(http.MethodGet, "/api/v1/search/images/"+index, nil), map[string]string{"index": index})
		recorder := httptest.NewRecorder()
		handler.Image(recorder, req)
		if recorder.Code == http.StatusOK {
			t.Errorf("index %s: expected error status", index)
		}
	}
}
