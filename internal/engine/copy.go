package engine

import (
	"fmt"
	"slices"

	"github.com/celerix-dev/swissqr/pkg/schema"
)

// CopyRecords pushes every record of src into dst in a single commit.
// Used for backups: live store -> fresh directory.
func CopyRecords[K ~string, T schema.Entity[K]](src, dst *RecordStore[K, T]) (int, error) {
	values := slices.Collect(src.Values())
	if _, err := dst.BatchUpdate(values); err != nil {
		return 0, fmt.Errorf("failed to copy %s: %w", src.Name(), err)
	}
	return len(values), nil
}

// CopyLog appends every entry of src to dst, preserving order.
func CopyLog[T any](src, dst *LogStore[T]) (int, error) {
	batch := make([]T, 0, logPageSize)
	copied := 0
	for _, v := range src.All() {
		batch = append(batch, v)
		if len(batch) == logPageSize {
			if err := dst.BatchAppend(batch); err != nil {
				return copied, fmt.Errorf("failed to copy %s: %w", src.Name(), err)
			}
			copied += len(batch)
			batch = batch[:0]
		}
	}
	if err := dst.BatchAppend(batch); err != nil {
		return copied, fmt.Errorf("failed to copy %s: %w", src.Name(), err)
	}
	return copied + len(batch), nil
}
