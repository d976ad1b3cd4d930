package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
)

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(n Notification) {
	level := slog.LevelInfo
	switch n.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	attrs := []any{"id", n.ID, "kind", string(n.Level)}
	if len(n.Details) > 0 {
		attrs = append(attrs, "details", n.Details)
	}
	s.logger.Log(context.Background(), level, n.Message, attrs...)
}

// WriterSink prints notifications for a terminal user.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink printing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Notify(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := "  "
	switch n.Level {
	case LevelSuccess:
		prefix = "✓ "
	case LevelWarning:
		prefix = "! "
	case LevelError:
		prefix = "✗ "
	}
	fmt.Fprintf(s.w, "%s%s\n", prefix, n.Message)
	for _, d := range n.Details {
		fmt.Fprintf(s.w, "    - %s\n", d)
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items)
}

// Last returns the most recent notification and whether there was one.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Count returns how many notifications of level were recorded.
func (r *Recorder) Count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.items {
		if n.Level == level {
			count++
		}
	}
	return count
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// listenerBuffer is the per-listener channel capacity of a Broadcaster.
const listenerBuffer = 100

// Broadcaster forwards notifications to any number of listeners, such as
// open SSE connections. Slow listeners miss notifications rather than
// blocking the sender.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners []chan Notification
}

// AddListener registers a new listener channel.
func (b *Broadcaster) AddListener() chan Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Notification, listenerBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener unregisters and closes ch.
func (b *Broadcaster) RemoveListener(ch chan Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *Broadcaster) Notify(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- n:
		default:
			// Listener buffer full, skip.
		}
	}
}
