package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/image-search/internal/backend"
)

func TestRespondJSON(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusCreated, map[string]int{"count": 42})

	if recorder.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type 'application/json', got '%s'", ct)
	}
	var result map[string]int
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if result["count"] != 42 {
		t.Errorf("expected count 42, got %d", result["count"])
	}
}

func TestRespondJSON_NilData(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondJSON(recorder, http.StatusNoContent, nil)

	if recorder.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", recorder.Body.String())
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "bad input")

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", recorder.Code)
	}
	var result map[string]string
	json.Unmarshal(recorder.Body.Bytes(), &result)
	if result["error"] != "bad input" {
		t.Errorf("expected error 'bad input', got '%s'", result["error"])
	}
}

func TestRespondBackendError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "server message on 500",
			err:        &backend.APIError{StatusCode: 500, Message: "index missing"},
			wantStatus: http.StatusBadGateway,
			wantMsg:    "index missing",
		},
		{
			name:       "client error passes status through",
			err:        &backend.APIError{StatusCode: 404, Message: "not found"},
			wantStatus: http.StatusNotFound,
			wantMsg:    "not found",
		},
		{
			name:       "transport error uses fallback",
			err:        errors.New("dial tcp: connection refused"),
			wantStatus: http.StatusBadGateway,
			wantMsg:    "Failed to fetch images.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondBackendError(recorder, tc.err, "Failed to fetch images.")

			if recorder.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, recorder.Code)
			}
			var result map[string]string
			json.Unmarshal(recorder.Body.Bytes(), &result)
			if result["error"] != tc.wantMsg {
				t.Errorf("expected error %q, got %q", tc.wantMsg, result["error"])
			}
		})
	}
}

func TestDecodeJSON_RejectsInvalidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader("{not json"))
	var v SearchRequest
	if err := decodeJSON(httptest.NewRecorder(), req, &v); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("a\nb\rc"); got != "abc" {
		t.Errorf("sanitizeForLog = %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", recorder.Code)
	}
	if !strings.Contains(recorder.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body %s", recorder.Body.String())
	}
}
