// Package persistence defines the optional observation-buffer persistence
// collaborator (spec §6.4 "Persistence (optional)"): persistObservation
// and loadObservation. The store itself is out of this module's scope —
// this package only defines the seam and the reference sqlite/postgres
// backends that implement it (internal/persistence/sqlite,
// internal/persistence/postgres).
package persistence

import "context"

// Entry mirrors one buffered Data Sample for storage, carried as its
// already-rendered JSON value so a backend never needs to know the
// sample's kind (spec §4.2 JSON projection already erases that).
type Entry struct {
	Timestamp float64
	ValueJSON string
}

// Persister is the persistObservation/loadObservation collaborator (spec
// §6.4). Implementations must treat path as an opaque key; this module
// always supplies the observation's absolute tree path.
type Persister interface {
	PersistObservation(ctx context.Context, path string, entries []Entry) error
	LoadObservation(ctx context.Context, path string) ([]Entry, error)
	Close() error
}
