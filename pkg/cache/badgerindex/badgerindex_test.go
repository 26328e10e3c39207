package badgerindex_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/cache/badgerindex"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
)

func openIndex(t *testing.T) *badgerindex.Index {
	t.Helper()
	idx, err := badgerindex.Open(context.Background(), badgerindex.Config{DBPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func entryFor(key chunkkey.Key, blobPath string) badgerindex.Entry {
	return badgerindex.Entry{
		Metadata: wrapper.ChunkMetadata{Key: key, ByteSize: 128, NumRows: 10},
		BlobPath: blobPath,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	idx := openIndex(t)
	key := chunkkey.New(1, 2, 3, 0)

	entry := entryFor(key, "/cache/1/2/3/0")
	require.NoError(t, idx.Put(entry))

	got, ok, err := idx.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.BlobPath, got.BlobPath)
	assert.Equal(t, entry.Metadata.ByteSize, got.Metadata.ByteSize)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	idx := openIndex(t)
	_, ok, err := idx.Get(chunkkey.New(9, 9, 9, 9))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPrefixAndScanPrefix(t *testing.T) {
	idx := openIndex(t)
	table := chunkkey.New(1, 2)

	require.NoError(t, idx.Put(entryFor(chunkkey.New(1, 2, 3, 0), "a")))
	require.NoError(t, idx.Put(entryFor(chunkkey.New(1, 2, 3, 1), "b")))
	require.NoError(t, idx.Put(entryFor(chunkkey.New(1, 3, 3, 0), "c")))

	has, err := idx.HasPrefix(table)
	require.NoError(t, err)
	assert.True(t, has)

	entries, err := idx.ScanPrefix(table)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	otherTable := chunkkey.New(9, 9)
	has, err = idx.HasPrefix(otherTable)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDeletePrefixRemovesOnlyMatchingEntries(t *testing.T) {
	idx := openIndex(t)
	require.NoError(t, idx.Put(entryFor(chunkkey.New(1, 2, 3, 0), "a")))
	require.NoError(t, idx.Put(entryFor(chunkkey.New(1, 3, 3, 0), "b")))

	require.NoError(t, idx.DeletePrefix(chunkkey.New(1, 2)))

	_, ok, err := idx.Get(chunkkey.New(1, 2, 3, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = idx.Get(chunkkey.New(1, 3, 3, 0))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWrapperSnapshotPath(t *testing.T) {
	idx := openIndex(t)
	table := chunkkey.New(1, 2)

	_, ok, err := idx.WrapperSnapshotPath(table)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.PutWrapperSnapshotPath(table, "/cache/1/2/wrapper.json"))
	path, ok, err := idx.WrapperSnapshotPath(table)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/cache/1/2/wrapper.json", path)
}
