// Package snapshot keeps pinned copies of noteworthy states, typically
// failures that must survive run-log rotation and archival.
package snapshot

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// ErrSnapshotNotFound is returned when no snapshot has the given id.
var ErrSnapshotNotFound = fmt.Errorf("snapshot not found")

// Store is a content store for pinned state payloads, addressed by
// generated ksuid ids.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) a snapshot store at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Pin stores a payload and returns its new id. Pins are synced to disk
// before returning; a pinned failure must survive a crash.
func (s *Store) Pin(payload []byte) (*ksuid.KSUID, error) {
	id := ksuid.New()
	if err := s.db.Set(id.Bytes(), payload, pebble.Sync); err != nil {
		return nil, err
	}
	return &id, nil
}

// Get returns the payload pinned under id.
func (s *Store) Get(id *ksuid.KSUID) ([]byte, error) {
	data, closer, err := s.db.Get(id.Bytes())
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	// The slice is only valid until the closer releases it.
	payload := append([]byte(nil), data...)
	closer.Close()

	return payload, nil
}

// Replace overwrites the payload pinned under an existing id.
func (s *Store) Replace(id *ksuid.KSUID, payload []byte) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.db.Set(id.Bytes(), payload, pebble.Sync)
}

// Unpin removes a snapshot. Removing an unknown id is not an error.
func (s *Store) Unpin(id *ksuid.KSUID) error {
	return s.db.Delete(id.Bytes(), pebble.Sync)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
