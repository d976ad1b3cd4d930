// Package history keeps the bounded, most-recent-first list of corpus
// locations the user has searched, persisted under a fixed storage key.
package history

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

const (
	// DefaultKey is the storage key the history is persisted under.
	DefaultKey = "savedUrls"
	// DefaultSize is the maximum number of remembered locations.
	DefaultSize = 3
)

// Store is the durable key/value capability the history persists to.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// History is a de-duplicated list of locations, most recently used first.
type History struct {
	mu      sync.RWMutex
	entries []string
	size    int
}

// New creates an empty history holding at most size entries.
func New(size int) *History {
	if size <= 0 {
		size = DefaultSize
	}
	return &History{size: size}
}

// Insert moves location to the front, adding it if absent and evicting the
// oldest entry past the size bound. Empty locations are ignored. Reports
// whether the order or contents changed.
func (h *History) Insert(location string) bool {
	if location == "" {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) > 0 && h.entries[0] == location {
		return false
	}

	h.entries = slices.DeleteFunc(h.entries, func(e string) bool { return e == location })
	h.entries = slices.Insert(h.entries, 0, location)
	if len(h.entries) > h.size {
		h.entries = h.entries[:h.size]
	}
	return true
}

// Replace discards the current entries and seeds the history from list,
// keeping the first occurrence of each location and at most size entries.
func (h *History) Replace(list []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = normalize(list, h.size)
}

// Entries returns a copy of the entries, most recent first.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.entries)
}

// Recent returns up to n most recent entries.
func (h *History) Recent(n int) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n = min(max(n, 0), len(h.entries))
	return slices.Clone(h.entries[:n])
}

// Front returns the most recent entry, or "" when empty.
func (h *History) Front() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[0]
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Load reads the history stored under key. Missing or corrupt data yields
// an empty history.
func Load(store Store, key string, size int) *History {
	h := New(size)
	data, err := store.Get(key)
	if err != nil {
		return h
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return h
	}
	h.entries = normalize(list, h.size)
	return h
}

// Save writes the history under key as a JSON string list.
func (h *History) Save(store Store, key string) error {
	data, err := json.Marshal(h.Entries())
	if err != nil {
		return fmt.Errorf("could not marshal history: %w", err)
	}
	if err := store.Set(key, data); err != nil {
		return fmt.Errorf("could not save history: %w", err)
	}
	return nil
}

func normalize(list []string, size int) []string {
	out := make([]string, 0, min(len(list), size))
	for _, loc := range list {
		if loc == "" || slices.Contains(out, loc) {
			continue
		}
		out = append(out, loc)
		if len(out) == size {
			break
		}
	}
	return out
}
