package csvwrapper_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/buffer"
	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/csvwrapper"
)

func writeCSV(t *testing.T, rows []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(joinLines(rows)), 0644))
	return path
}

func joinLines(rows []string) string {
	out := ""
	for _, r := range rows {
		out += r + "\n"
	}
	return out
}

func testTable(path string, fragmentSize int) *catalog.ForeignTable {
	return &catalog.ForeignTable{
		DBID:         1,
		TableID:      1,
		Name:         "t",
		Wrapper:      catalog.WrapperCSV,
		SourcePath:   path,
		FragmentSize: fragmentSize,
		Columns: []catalog.ColumnDef{
			{ColumnID: 1, Name: "a", Type: "int"},
			{ColumnID: 2, Name: "b", Type: "text", IsVarlen: true},
		},
	}
}

func TestPopulateChunkMetadata_FragmentBoundaries(t *testing.T) {
	path := writeCSV(t, []string{"1,x", "2,y", "3,z"})
	table := testTable(path, 2) // 2 rows per fragment -> 2 fragments

	w := csvwrapper.New(table)
	var out wrapper.ChunkMetadataVector
	require.NoError(t, w.PopulateChunkMetadata(context.Background(), &out))

	assert.Equal(t, 2, out.MaxFragmentID()+1)

	var frag0Rows, frag1Rows int64
	for _, m := range out {
		if m.Key[chunkkey.FragmentIdx] == 0 {
			frag0Rows = m.NumRows
		}
		if m.Key[chunkkey.FragmentIdx] == 1 {
			frag1Rows = m.NumRows
		}
	}
	assert.EqualValues(t, 2, frag0Rows)
	assert.EqualValues(t, 1, frag1Rows)
}

func TestPopulateChunkMetadata_VarlenColumnHasDataAndIndexKeys(t *testing.T) {
	path := writeCSV(t, []string{"1,x"})
	table := testTable(path, 10)

	w := csvwrapper.New(table)
	var out wrapper.ChunkMetadataVector
	require.NoError(t, w.PopulateChunkMetadata(context.Background(), &out))

	var varlenKeys int
	for _, m := range out {
		if chunkkey.IsVarlenKey(m.Key) {
			varlenKeys++
		}
	}
	assert.Equal(t, 2, varlenKeys, "one data chunk and one index chunk for the varlen column")
}

func TestPopulateChunkBuffers_FillsRequired(t *testing.T) {
	path := writeCSV(t, []string{"1,x", "2,y"})
	table := testTable(path, 10)

	w := csvwrapper.New(table)
	key := chunkkey.New(1, 1, 1, 0)
	required := buffer.Set{{Key: key, Buffer: buffer.New(buffer.Encoding{ElementType: "string"})}}

	require.NoError(t, w.PopulateChunkBuffers(context.Background(), required, nil))

	buf, ok := required.Get(key)
	require.True(t, ok)
	assert.True(t, buf.IsDirty())
	assert.Greater(t, buf.Size(), 0)
}

func TestPopulateChunkMetadata_MissingSourceIsSourceUnavailable(t *testing.T) {
	table := testTable(filepath.Join(t.TempDir(), "missing.csv"), 10)
	w := csvwrapper.New(table)
	var out wrapper.ChunkMetadataVector
	err := w.PopulateChunkMetadata(context.Background(), &out)
	require.ErrorIs(t, err, wrapper.ErrSourceUnavailable)
}

func TestRestoreInternals_DetectsShrink(t *testing.T) {
	path := writeCSV(t, []string{"1,x"})
	table := testTable(path, 10)

	w := csvwrapper.New(table)
	snapPath := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, w.SerializeInternals(snapPath))

	// Shrink the source after the snapshot was taken.
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	err := w.RestoreInternals(snapPath, nil)
	require.ErrorIs(t, err, wrapper.ErrAppendShrank)
}
