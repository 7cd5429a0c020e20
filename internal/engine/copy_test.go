package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyRecords(t *testing.T) {
	src := openNotes(t, tempDB(t, "src/notes.db"))
	dst := openNotes(t, tempDB(t, "dst/notes.db"))

	_, err := src.BatchUpdate([]note{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}})
	require.NoError(t, err)

	n, err := CopyRecords(src, dst)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, ok := dst.Get("b")
	require.True(t, ok)
	assert.Equal(t, "B", got.Text)
}

func TestCopyRecords_ClosedDestination(t *testing.T) {
	src := openNotes(t, tempDB(t, "src/notes.db"))
	dst := openNotes(t, tempDB(t, "dst/notes.db"))
	require.NoError(t, src.Update(note{ID: "a"}))
	require.NoError(t, dst.Close())

	_, err := CopyRecords(src, dst)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCopyLog(t *testing.T) {
	src := openNoteLog(t, tempDB(t, "src/logs.db"))
	dst := openNoteLog(t, tempDB(t, "dst/logs.db"))

	n := logPageSize + 3
	batch := make([]note, n)
	for i := range batch {
		batch[i] = note{ID: noteID(fmt.Sprint(i)), Count: int64(i)}
	}
	require.NoError(t, src.BatchAppend(batch))

	copied, err := CopyLog(src, dst)
	require.NoError(t, err)
	assert.Equal(t, n, copied)
	assert.Equal(t, n, dst.Size())

	last, ok, err := dst.Get(n - 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(n-1), last.Count)
}
