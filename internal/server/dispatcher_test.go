package server_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/internal/server"
	"github.com/chandrudp29/omniscidb/pkg/cache"
	"github.com/chandrudp29/omniscidb/pkg/cache/badgerindex"
	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/foreignstorage"
	"github.com/chandrudp29/omniscidb/pkg/refresh"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/csvwrapper"
)

func newDispatcher(t *testing.T) (*server.CommandDispatcher, *catalog.Catalog, string) {
	t.Helper()
	ctx := context.Background()

	idx, err := badgerindex.Open(ctx, badgerindex.Config{DBPath: filepath.Join(t.TempDir(), "index")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	c, err := cache.Open(ctx, cache.Config{RootDir: filepath.Join(t.TempDir(), "blobs"), Index: idx})
	require.NoError(t, err)

	cat := catalog.New()
	mgr := foreignstorage.New(cat, c, func(table *catalog.ForeignTable) (wrapper.DataWrapper, error) {
		return csvwrapper.New(table), nil
	})
	eng := refresh.New(cat, mgr)

	csvPath := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("1,2\n3,4\n"), 0o644))

	table := &catalog.ForeignTable{
		DBID: 1, TableID: 2, Name: "t",
		Wrapper: catalog.WrapperCSV, SourcePath: csvPath,
		Columns: []catalog.ColumnDef{{ColumnID: 0}, {ColumnID: 1}},
	}
	require.NoError(t, cat.RegisterTable(table))

	return &server.CommandDispatcher{Catalog: cat, Engine: eng}, cat, csvPath
}

func TestDispatcher_Ping(t *testing.T) {
	d, _, _ := newDispatcher(t)
	resp, err := d.Dispatch(context.Background(), "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", resp)
}

func TestDispatcher_List(t *testing.T) {
	d, _, _ := newDispatcher(t)
	resp, err := d.Dispatch(context.Background(), "LIST")
	require.NoError(t, err)
	assert.Equal(t, "1.2", resp)
}

func TestDispatcher_RefreshEvictsCache(t *testing.T) {
	d, cat, _ := newDispatcher(t)
	resp, err := d.Dispatch(context.Background(), "REFRESH 1 2 true")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)

	tbl, err := cat.GetForeignTable(1, 2)
	require.NoError(t, err)
	assert.False(t, tbl.LastRefreshTime.IsZero())
}

func TestDispatcher_RefreshBulkRescans(t *testing.T) {
	d, _, _ := newDispatcher(t)
	resp, err := d.Dispatch(context.Background(), "REFRESH 1 2")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)
}

func TestDispatcher_RefreshUnknownTable(t *testing.T) {
	d, _, _ := newDispatcher(t)
	_, err := d.Dispatch(context.Background(), "REFRESH 9 9")
	assert.Error(t, err)
}

func TestDispatcher_RefreshMissingArgs(t *testing.T) {
	d, _, _ := newDispatcher(t)
	_, err := d.Dispatch(context.Background(), "REFRESH 1")
	assert.Error(t, err)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _, _ := newDispatcher(t)
	_, err := d.Dispatch(context.Background(), "BOGUS")
	assert.Error(t, err)
}

func TestDispatcher_EmptyRequest(t *testing.T) {
	d, _, _ := newDispatcher(t)
	_, err := d.Dispatch(context.Background(), "")
	assert.Error(t, err)
}
