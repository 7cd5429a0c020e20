package engine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type noteID string

type note struct {
	ID    noteID
	Text  string
	Count int64
}

func (n note) Identity() noteID { return n.ID }

type noteCodec struct{}

func (noteCodec) Encode(out *DataOutput, n note) error {
	if err := out.WriteUTF(string(n.ID)); err != nil {
		return err
	}
	if err := out.WriteUTF(n.Text); err != nil {
		return err
	}
	out.PackLong(n.Count)
	return nil
}

func (noteCodec) Decode(in *DataInput) (note, error) {
	id, err := in.ReadUTF()
	if err != nil {
		return note{}, err
	}
	text, err := in.ReadUTF()
	if err != nil {
		return note{}, err
	}
	count, err := in.UnpackLong()
	if err != nil {
		return note{}, err
	}
	return note{ID: noteID(id), Text: text, Count: count}, nil
}

func openNotes(t *testing.T, path string) *RecordStore[noteID, note] {
	t.Helper()
	s, err := OpenRecordStore[noteID, note](path, noteCodec{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openNoteLog(t *testing.T, path string) *LogStore[note] {
	t.Helper()
	s, err := OpenLogStore[note](path, noteCodec{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tempDB(t *testing.T, name string) string {
	return filepath.Join(t.TempDir(), name)
}
