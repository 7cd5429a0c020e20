package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/celerix-dev/swissqr/internal/logger"
)

// logPageSize bounds how many entries an iterator reads per read section.
const logPageSize = 256

// LogStore is a durable, append-only sequence indexed by position.
// Entries are immutable once appended.
type LogStore[T any] struct {
	name   string
	db     *sql.DB
	codec  Codec[T]
	logger *logger.Logger

	mu     sync.RWMutex
	size   int
	closed bool
}

// OpenLogStore opens the log file at path, creating it if absent.
func OpenLogStore[T any](path string, codec Codec[T], opts ...Option) (*LogStore[T], error) {
	o := newOptions(opts)
	db, err := openFile(path, logMigrations, o)
	if err != nil {
		return nil, err
	}

	s, err := newLogStore(storeName(path), db, codec, o)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newLogStore[T any](name string, db *sql.DB, codec Codec[T], o *options) (*LogStore[T], error) {
	var size int
	if err := db.QueryRow(`SELECT COUNT(*) FROM data`).Scan(&size); err != nil {
		return nil, fmt.Errorf("%s: count: %w", name, err)
	}
	return &LogStore[T]{
		name:   name,
		db:     db,
		codec:  codec,
		logger: o.logger,
		size:   size,
	}, nil
}

// Name returns the name of the log, e.g. "logs".
func (s *LogStore[T]) Name() string { return s.name }

// Size returns the number of entries.
func (s *LogStore[T]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Get returns the entry at index. An index out of range yields false, not an
// error. A closed store returns ErrClosed.
func (s *LogStore[T]) Get(index int) (T, bool, error) {
	var zero T

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return zero, false, ErrClosed
	}
	if index < 0 || index >= s.size {
		return zero, false, nil
	}

	var raw []byte
	err := s.db.QueryRow(`SELECT value FROM data WHERE idx = ?`, index).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("%s: read %d: %w", s.name, index, err)
	}

	v, err := decode(s.codec, raw)
	if err != nil {
		return zero, false, fmt.Errorf("%s: decode %d: %w", s.name, index, err)
	}
	return v, true, nil
}

// Append adds one entry and commits it.
func (s *LogStore[T]) Append(v T) error {
	return s.BatchAppend([]T{v})
}

// BatchAppend adds all entries in a single commit. If any entry cannot be
// encoded or written, none of them are.
func (s *LogStore[T]) BatchAppend(values []T) error {
	if len(values) == 0 {
		return nil
	}

	encoded := make([][]byte, len(values))
	for i, v := range values {
		b, err := encode(s.codec, v)
		if err != nil {
			return fmt.Errorf("%s: encode entry %d of batch: %w", s.name, i, err)
		}
		encoded[i] = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.name, err)
	}
	defer tx.Rollback() // no-op once committed

	for i, b := range encoded {
		if _, err := tx.Exec(`INSERT INTO data (idx, value) VALUES (?, ?)`, s.size+i, b); err != nil {
			return fmt.Errorf("%s: append %d: %w", s.name, s.size+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.name, err)
	}

	s.size += len(values)
	return nil
}

// All iterates over the entries in append order, covering the entries present
// when iteration starts. Entries are read in pages so the consumer may append
// while iterating.
func (s *LogStore[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		end := s.Size()
		for from := 0; from < end; from += logPageSize {
			page, err := s.page(from, min(from+logPageSize, end))
			if err != nil {
				s.logger.Error("failed to read log page", "store", s.name, "from", from, "error", err)
				return
			}
			for _, e := range page {
				if !yield(e.index, e.value) {
					return
				}
			}
		}
	}
}

type logEntry[T any] struct {
	index int
	value T
}

func (s *LogStore[T]) page(from, to int) ([]logEntry[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.Query(`SELECT idx, value FROM data WHERE idx >= ? AND idx < ? ORDER BY idx ASC`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]logEntry[T], 0, to-from)
	for rows.Next() {
		var (
			idx int
			raw []byte
		)
		if err := rows.Scan(&idx, &raw); err != nil {
			return nil, err
		}
		v, err := decode(s.codec, raw)
		if err != nil {
			s.logger.Warn("skipping undecodable log entry", "store", s.name, "index", idx, "error", err)
			continue
		}
		entries = append(entries, logEntry[T]{index: idx, value: v})
	}
	return entries, rows.Err()
}

// Close releases the underlying file. Safe to call more than once.
func (s *LogStore[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
