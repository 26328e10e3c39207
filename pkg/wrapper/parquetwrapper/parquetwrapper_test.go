package parquetwrapper_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/buffer"
	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/parquetwrapper"
)

// encodeFixture writes one fragment containing columnID with the given payload,
// matching the package's internal row-group layout.
func encodeFixture(t *testing.T, fragmentID int, rowCount int, columnID int, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(0x4f534350)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(1))) // fragment count
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(fragmentID)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(rowCount)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(1))) // column count
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(columnID)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(payload))))
	buf.Write(payload)
	return buf.Bytes()
}

func writeFixture(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func testTable(path string) *catalog.ForeignTable {
	return &catalog.ForeignTable{
		DBID:    1,
		TableID: 2,
		Wrapper: catalog.WrapperParquet,
		Columns: []catalog.ColumnDef{{ColumnID: 1, Name: "a", Type: "int"}},
		SourcePath: path,
	}
}

func TestPopulateChunkMetadata(t *testing.T) {
	path := writeFixture(t, encodeFixture(t, 0, 3, 1, []byte("abcdef")))
	table := testTable(path)

	w := parquetwrapper.New(table, parquetwrapper.LocalSource{Path: path})
	var out wrapper.ChunkMetadataVector
	require.NoError(t, w.PopulateChunkMetadata(context.Background(), &out))

	require.Len(t, out, 1)
	assert.EqualValues(t, 6, out[0].ByteSize)
	assert.EqualValues(t, 3, out[0].NumRows)
	assert.Equal(t, 0, out[0].Key[chunkkey.FragmentIdx])
}

func TestPopulateChunkBuffers(t *testing.T) {
	path := writeFixture(t, encodeFixture(t, 0, 3, 1, []byte("abcdef")))
	table := testTable(path)

	w := parquetwrapper.New(table, parquetwrapper.LocalSource{Path: path})
	key := chunkkey.New(1, 2, 1, 0)
	required := buffer.Set{{Key: key, Buffer: buffer.New(buffer.Encoding{ElementType: "bytes", ElementSize: 1})}}

	require.NoError(t, w.PopulateChunkBuffers(context.Background(), required, nil))

	buf, ok := required.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("abcdef"), buf.Bytes())
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	path := writeFixture(t, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	table := testTable(path)
	w := parquetwrapper.New(table, parquetwrapper.LocalSource{Path: path})

	var out wrapper.ChunkMetadataVector
	err := w.PopulateChunkMetadata(context.Background(), &out)
	require.ErrorIs(t, err, wrapper.ErrCorruptSource)
}

func TestNewSource_RejectsS3URIWithoutClient(t *testing.T) {
	_, err := parquetwrapper.NewSource("s3://bucket/key", nil)
	require.Error(t, err)
}

func TestNewSource_LocalPath(t *testing.T) {
	src, err := parquetwrapper.NewSource("/tmp/data.bin", nil)
	require.NoError(t, err)
	_, ok := src.(parquetwrapper.LocalSource)
	assert.True(t, ok)
}
