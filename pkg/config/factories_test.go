package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/csvwrapper"
)

func TestBuildCatalog_RegistersTables(t *testing.T) {
	cfg := &Config{Tables: []TableConfig{validTable()}}

	cat, createOpts, err := BuildCatalog(cfg)
	require.NoError(t, err)

	tbl, err := cat.GetForeignTable(1, 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.WrapperCSV, tbl.Wrapper)
	assert.Equal(t, "/tmp/t.csv", tbl.SourcePath)

	assert.Len(t, createOpts, 1)
}

func TestBuildCatalog_DuplicateTableFails(t *testing.T) {
	cfg := &Config{Tables: []TableConfig{validTable(), validTable()}}

	_, _, err := BuildCatalog(cfg)
	assert.Error(t, err)
}

func TestBuildCatalog_InvalidRefreshOptionsFails(t *testing.T) {
	tc := validTable()
	tc.Options = map[string]any{"refresh_interval": "garbage"}
	cfg := &Config{Tables: []TableConfig{tc}}

	_, _, err := BuildCatalog(cfg)
	assert.Error(t, err)
}

func TestBuildCatalog_AppendModeSurvivesRoundTrip(t *testing.T) {
	tc := validTable()
	tc.Options = map[string]any{"refresh_update_type": "APPEND"}
	cfg := &Config{Tables: []TableConfig{tc}}

	cat, _, err := BuildCatalog(cfg)
	require.NoError(t, err)

	tbl, err := cat.GetForeignTable(1, 1)
	require.NoError(t, err)
	assert.True(t, tbl.IsAppendMode())
}

func TestCreateWrapperFactory_CSV(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("1,2\n"), 0o644))

	factory, err := CreateWrapperFactory(context.Background(), S3Config{})
	require.NoError(t, err)

	table := &catalog.ForeignTable{
		Wrapper: catalog.WrapperCSV, SourcePath: csvPath,
		Columns: []catalog.ColumnDef{{ColumnID: 0}, {ColumnID: 1}},
	}
	w, err := factory(table)
	require.NoError(t, err)
	_, ok := w.(*csvwrapper.Wrapper)
	assert.True(t, ok)
}

func TestCreateWrapperFactory_UnknownWrapper(t *testing.T) {
	factory, err := CreateWrapperFactory(context.Background(), S3Config{})
	require.NoError(t, err)

	_, err = factory(&catalog.ForeignTable{Name: "t", Wrapper: "bogus"})
	assert.Error(t, err)
}
