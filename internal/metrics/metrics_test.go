package metrics

import (
	"errors"
	"testing"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		warnings bool
		expected string
	}{
		{"success", nil, false, OutcomeSuccess},
		{"warnings", nil, true, OutcomeWarnings},
		{"error", errors.New("boom"), false, OutcomeError},
		{"error wins", errors.New("boom"), true, OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.err, tt.warnings); got != tt.expected {
				t.Errorf("Outcome() = %q, want %q", got, tt.expected)
			}
		})
	}
}
