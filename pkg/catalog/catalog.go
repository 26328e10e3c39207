// Package catalog is the in-memory stand-in for the table/server catalog
// that persists foreign table definitions and foreign-server options.
//
// The real catalog (DDL parsing, persistence, cross-session visibility) is
// out of scope for this module (spec.md §1 "Out of scope"); this package
// implements only the read surface the foreign storage manager and refresh
// scheduler consume: get_foreign_table(db,table) and for_each_table().
package catalog

import (
	"fmt"
	"sync"
	"time"

	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
)

// WrapperType names which DataWrapper implementation serves a table.
type WrapperType string

const (
	WrapperCSV     WrapperType = "csv"
	WrapperParquet WrapperType = "parquet"
)

// UpdateType is the refresh reconcile mode (§4.E / §4.F).
type UpdateType string

const (
	UpdateAll    UpdateType = "ALL"
	UpdateAppend UpdateType = "APPEND"
)

// TimingType is the refresh trigger mode (§4.F).
type TimingType string

const (
	TimingManual    TimingType = "MANUAL"
	TimingScheduled TimingType = "SCHEDULED"
)

// ColumnDef describes one logical column of a foreign table.
type ColumnDef struct {
	ColumnID int
	Name     string
	Type     string
	IsVarlen bool
}

// RefreshOptions captures the refresh_* options recognized at create-table
// time (§4.F).
type RefreshOptions struct {
	UpdateType      UpdateType
	TimingType      TimingType
	StartDateTime   string // ISO timestamp; only meaningful when TimingType == TimingScheduled
	IntervalSeconds int64  // 0 means "no recurring interval"
}

// ForeignTable is a foreign table definition: wrapper selection, source
// location, schema, and refresh configuration.
type ForeignTable struct {
	DBID        int
	TableID     int
	Name        string
	Wrapper     WrapperType
	SourcePath  string // local path or s3://bucket/key depending on Wrapper
	Columns     []ColumnDef
	FragmentSize int
	Refresh     RefreshOptions

	// LastRefreshTime is the timestamp of this table's most recent
	// successful refresh_table call, set by the scheduler (§4.F) and by
	// any manual REFRESH. Zero until the table has been refreshed once.
	LastRefreshTime time.Time
}

// IsAppendMode reports whether this table's refresh reconcile runs the
// append-only fast path.
func (t *ForeignTable) IsAppendMode() bool {
	return t.Refresh.UpdateType == UpdateAppend
}

// PhysicalColumns implements chunkkey.Schema: for this manager, logical and
// physical columns coincide one-to-one (no sub-column expansion beyond the
// variable-length data/index split chunkkey.ExpandLogicalColumn already
// handles), so it returns the single matching column.
func (t *ForeignTable) PhysicalColumns(columnID int) []chunkkey.Column {
	for _, c := range t.Columns {
		if c.ColumnID == columnID {
			return []chunkkey.Column{{ColumnID: c.ColumnID, IsVarlen: c.IsVarlen}}
		}
	}
	return nil
}

// Catalog is a thread-safe registry of foreign table definitions, keyed by
// (db_id, table_id).
//
// Grounded on the teacher's pkg/registry.Registry: a named-resource map
// guarded by a single RWMutex, with Register/Get/ForEach accessors.
type Catalog struct {
	mu     sync.RWMutex
	tables map[tableKey]*ForeignTable
}

type tableKey struct {
	dbID, tableID int
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[tableKey]*ForeignTable)}
}

// RegisterTable adds a foreign table definition. Returns an error if a table
// with the same (db_id, table_id) is already registered.
func (c *Catalog) RegisterTable(t *ForeignTable) error {
	if t == nil {
		return fmt.Errorf("catalog: cannot register nil table")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tableKey{t.DBID, t.TableID}
	if _, exists := c.tables[key]; exists {
		return fmt.Errorf("catalog: table (%d,%d) already registered", t.DBID, t.TableID)
	}
	c.tables[key] = t
	return nil
}

// GetForeignTable returns the table definition for (dbID, tableID).
func (c *Catalog) GetForeignTable(dbID, tableID int) (*ForeignTable, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	t, exists := c.tables[tableKey{dbID, tableID}]
	if !exists {
		return nil, fmt.Errorf("catalog: table (%d,%d) not found", dbID, tableID)
	}
	return t, nil
}

// ForEachTable calls fn for every registered table. Iteration order is
// unspecified. fn's error, if any, stops iteration and is returned.
func (c *Catalog) ForEachTable(fn func(*ForeignTable) error) error {
	c.mu.RLock()
	tables := make([]*ForeignTable, 0, len(c.tables))
	for _, t := range c.tables {
		tables = append(tables, t)
	}
	c.mu.RUnlock()

	for _, t := range tables {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// UpdateLastRefreshTime records when (dbID, tableID) last completed a
// refresh_table call, per §4.F's scheduler loop.
func (c *Catalog) UpdateLastRefreshTime(dbID, tableID int, t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tbl, exists := c.tables[tableKey{dbID, tableID}]
	if !exists {
		return fmt.Errorf("catalog: table (%d,%d) not found", dbID, tableID)
	}
	tbl.LastRefreshTime = t
	return nil
}

// RemoveTable drops a table definition. Safe to call on a table that isn't
// registered (no-op).
func (c *Catalog) RemoveTable(dbID, tableID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, tableKey{dbID, tableID})
}
