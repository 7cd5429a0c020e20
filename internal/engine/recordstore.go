package engine

import (
	"database/sql"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/celerix-dev/swissqr/internal/logger"
	"github.com/celerix-dev/swissqr/pkg/schema"
)

// RecordStore is a durable map from identifier to entity.
//
// Readers never lock: they load an immutable snapshot of the table published
// through an atomic pointer. A writer holds mu, commits to disk, and only then
// publishes a new snapshot, so a reader sees every batch either entirely or
// not at all.
type RecordStore[K ~string, T schema.Entity[K]] struct {
	name   string
	db     *sql.DB
	codec  Codec[T]
	logger *logger.Logger

	mu     sync.Mutex // serializes writers and Close
	closed bool
	snap   atomic.Pointer[map[K]T]
}

// OpenRecordStore opens the record store file at path, creating it if absent.
func OpenRecordStore[K ~string, T schema.Entity[K]](path string, codec Codec[T], opts ...Option) (*RecordStore[K, T], error) {
	o := newOptions(opts)
	db, err := openFile(path, recordMigrations, o)
	if err != nil {
		return nil, err
	}

	s, err := newRecordStore[K](storeName(path), db, codec, o)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newRecordStore loads the whole table from db. db must already carry the schema.
func newRecordStore[K ~string, T schema.Entity[K]](name string, db *sql.DB, codec Codec[T], o *options) (*RecordStore[K, T], error) {
	s := &RecordStore[K, T]{
		name:   name,
		db:     db,
		codec:  codec,
		logger: o.logger,
	}

	rows, err := db.Query(`SELECT key, value FROM data`)
	if err != nil {
		return nil, fmt.Errorf("%s: load: %w", name, err)
	}
	defer rows.Close()

	data := make(map[K]T)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("%s: load: %w", name, err)
		}
		v, err := decode(codec, raw)
		if err != nil {
			s.logger.Warn("skipping undecodable record", "store", name, "key", key, "error", err)
			continue
		}
		data[K(key)] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: load: %w", name, err)
	}

	s.snap.Store(&data)
	return s, nil
}

// Name returns the entity name of the store, e.g. "users".
func (s *RecordStore[K, T]) Name() string { return s.name }

// Get returns the value stored under id.
func (s *RecordStore[K, T]) Get(id K) (T, bool) {
	v, ok := (*s.snap.Load())[id]
	return v, ok
}

// Exists reports whether a value is stored under id.
func (s *RecordStore[K, T]) Exists(id K) bool {
	_, ok := (*s.snap.Load())[id]
	return ok
}

// Size returns the number of stored entries.
func (s *RecordStore[K, T]) Size() int {
	return len(*s.snap.Load())
}

// Update inserts v or replaces the value stored under v's identifier.
func (s *RecordStore[K, T]) Update(v T) error {
	_, err := s.BatchUpdate([]T{v})
	return err
}

// BatchUpdate upserts all values in a single commit and returns their identifiers.
func (s *RecordStore[K, T]) BatchUpdate(values []T) ([]K, error) {
	if len(values) == 0 {
		return nil, nil
	}

	encoded := make([][]byte, len(values))
	for i, v := range values {
		b, err := encode(s.codec, v)
		if err != nil {
			return nil, fmt.Errorf("%s: encode %s: %w", s.name, v.Identity(), err)
		}
		encoded[i] = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.commitLocked(values, encoded, nil); err != nil {
		return nil, err
	}

	ids := make([]K, len(values))
	for i, v := range values {
		ids[i] = v.Identity()
	}
	return ids, nil
}

// Delete removes the value stored under id and returns it.
// Deleting an absent id is not an error.
func (s *RecordStore[K, T]) Delete(id K) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prior, ok := (*s.snap.Load())[id]
	if !ok {
		var zero T
		return zero, false, nil
	}
	if err := s.commitLocked(nil, nil, []K{id}); err != nil {
		var zero T
		return zero, false, err
	}
	return prior, true, nil
}

// BatchDelete removes all given ids in a single commit. Absent ids are ignored.
func (s *RecordStore[K, T]) BatchDelete(ids []K) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commitLocked(nil, nil, ids)
}

// commitLocked writes puts and dels in one transaction and publishes the new
// snapshot once the commit succeeded. It MUST be called while holding s.mu.
func (s *RecordStore[K, T]) commitLocked(puts []T, encoded [][]byte, dels []K) error {
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.name, err)
	}
	defer tx.Rollback() // no-op once committed

	for i, v := range puts {
		_, err := tx.Exec(`
			INSERT INTO data (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, string(v.Identity()), encoded[i])
		if err != nil {
			return fmt.Errorf("%s: write %s: %w", s.name, v.Identity(), err)
		}
	}
	for _, id := range dels {
		if _, err := tx.Exec(`DELETE FROM data WHERE key = ?`, string(id)); err != nil {
			return fmt.Errorf("%s: delete %s: %w", s.name, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.name, err)
	}

	current := *s.snap.Load()
	next := make(map[K]T, len(current)+len(puts))
	maps.Copy(next, current)
	for _, v := range puts {
		next[v.Identity()] = v
	}
	for _, id := range dels {
		delete(next, id)
	}
	s.snap.Store(&next)
	return nil
}

// All iterates over every entry in key order. The key set is captured when
// iteration starts; keys removed afterwards are skipped.
func (s *RecordStore[K, T]) All() iter.Seq2[K, T] {
	return func(yield func(K, T) bool) {
		keys := slices.Sorted(maps.Keys(*s.snap.Load()))
		for _, k := range keys {
			v, ok := s.Get(k)
			if !ok {
				continue
			}
			if !yield(k, v) {
				return
			}
		}
	}
}

// Values iterates over every value in key order.
func (s *RecordStore[K, T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, v := range s.All() {
			if !yield(v) {
				return
			}
		}
	}
}

// Close releases the underlying file. It waits for an in-flight writer and is
// safe to call more than once.
func (s *RecordStore[K, T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
