// Package kvstore provides the durable key/value capability the client uses
// for state that must survive restarts, such as the recent-location history.
package kvstore

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.New("key not found")

// Store is a durable string-keyed byte store.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
}

// Type identifies a Store backend.
type Type string

const (
	TypeMemory Type = "memory"
	TypeFile   Type = "file"
	TypeBolt   Type = "bolt"
	TypeBadger Type = "badger"
)

// Open creates a store of the given type rooted at path. For the file and
// bolt backends path is a directory that will hold a single file; badger
// uses it as its data directory.
func Open(storeType Type, path string) (Store, error) {
	switch storeType {
	case TypeMemory:
		return NewMemoryStore(), nil
	case TypeFile, "":
		return NewFileStore(joinPath(path, "state.json"))
	case TypeBolt:
		return NewBoltStore(joinPath(path, "state.bolt"))
	case TypeBadger:
		return NewBadgerStore(joinPath(path, "badger"))
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeType)
	}
}
