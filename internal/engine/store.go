// Package engine implements the embedded stores behind the SwissQR service:
// a key-indexed RecordStore and an append-only LogStore, each backed by its own
// SQLite file.
package engine

import (
	"errors"

	"github.com/celerix-dev/swissqr/internal/logger"
)

var (
	// ErrClosed is returned by mutations on a store that has been closed.
	ErrClosed = errors.New("store closed")
	// ErrStringTooLong is returned when a string does not fit the 16-bit length prefix.
	ErrStringTooLong = errors.New("string exceeds 65535 bytes")
	// ErrCorrupt is returned when a stored value cannot be decoded.
	ErrCorrupt = errors.New("corrupt value")
)

// Codec converts values of type T to and from their binary form.
type Codec[T any] interface {
	Encode(out *DataOutput, v T) error
	Decode(in *DataInput) (T, error)
}

// Option configures a store at open time.
type Option func(*options)

type options struct {
	logger *logger.Logger
}

// WithLogger routes store diagnostics (skipped records, migrations) to l.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{logger: logger.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func encode[T any](c Codec[T], v T) ([]byte, error) {
	out := &DataOutput{}
	if err := c.Encode(out, v); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func decode[T any](c Codec[T], b []byte) (T, error) {
	return c.Decode(NewDataInput(b))
}
