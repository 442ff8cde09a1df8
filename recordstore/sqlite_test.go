package recordstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mantravadi/granthalaya/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func Test_SaveRecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.SaveRecord(ctx, corpus.Metadata{
		RecordID: "r1",
		Title:    "Sample",
		Filename: "sample.txt",
	}, "cleaned body")
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "r1", records[0].RecordID)
	assert.Equal(t, "Sample", records[0].Title)
	assert.Equal(t, "cleaned body", records[0].Content)
	assert.False(t, records[0].CreatedAt.IsZero())
}

func Test_SaveRecord_UpsertsOnSameID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	meta := corpus.Metadata{RecordID: "r1", Title: "Sample"}
	require.NoError(t, s.SaveRecord(ctx, meta, "first"))
	require.NoError(t, s.SaveRecord(ctx, meta, "second"))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "second", records[0].Content)
}

func Test_FileState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecord(ctx, corpus.Metadata{RecordID: "r1", Title: "Typed"}, "typed text"))
	require.NoError(t, s.SetFileState(ctx, "r2", "docs/a.pdf", 12345))

	files, err := s.IngestedFiles(ctx)
	require.NoError(t, err)
	// records without a filename are not corpus files
	require.Len(t, files, 1)
	assert.Equal(t, FileState{Filename: "docs/a.pdf", Crc: 12345, RecordID: "r2"}, files[0])

	// crc survives a later content save for the same record
	require.NoError(t, s.SaveRecord(ctx, corpus.Metadata{RecordID: "r2", Title: "A", Filename: "docs/a.pdf"}, "body"))
	files, err = s.IngestedFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, uint32(12345), files[0].Crc)
}

func Test_Delete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRecord(ctx, corpus.Metadata{RecordID: "r1"}, "body"))
	require.NoError(t, s.Delete(ctx, "r1"))

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	// deleting a missing record is not an error
	assert.NoError(t, s.Delete(ctx, "nope"))
}
