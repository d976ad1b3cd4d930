package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// APIError is returned when the service answers with a non-success status or
// with an explicit {"success": false} payload.
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string // server-supplied message, empty if none was sent
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// errorPayload matches the error envelopes the service uses.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// newAPIError reads the error body and extracts the server-supplied message.
// The "error" field takes precedence over "message".
func newAPIError(endpoint string, status int, r io.Reader) *APIError {
	body, err := io.ReadAll(r)
	if err != nil {
		return &APIError{StatusCode: status, Endpoint: endpoint, Body: "(could not read error body)"}
	}
	apiErr := &APIError{StatusCode: status, Endpoint: endpoint, Body: strings.TrimSpace(string(body))}

	var payload errorPayload
	if json.Unmarshal(body, &payload) == nil {
		apiErr.Message = payload.Error
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

// Message returns the text to show a user for err: the server-supplied
// message when there is one, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsNotFoundError returns true if the error indicates a 404 Not Found response.
func IsNotFoundError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
