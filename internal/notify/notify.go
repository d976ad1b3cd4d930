// Package notify carries user-visible notifications from the session
// components to whatever presents them (terminal, log, SSE stream).
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Level is the severity a notification is shown with.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one user-facing message.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Details []string  `json:"details,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier receives notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// New builds a notification stamped with a fresh ID and the current time.
func New(level Level, message string, details ...string) Notification {
	return Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		Details: details,
		Time:    time.Now(),
	}
}

func Success(n Notifier, message string) {
	n.Notify(New(LevelSuccess, message))
}

func Warning(n Notifier, message string, details ...string) {
	n.Notify(New(LevelWarning, message, details...))
}

func Error(n Notifier, message string, details ...string) {
	n.Notify(New(LevelError, message, details...))
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notification) {}

// Multi fans a notification out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, target := range m {
		target.Notify(n)
	}
}
