// Package refresh implements refresh_table (§4.E): the bulk (ALL) and
// append-only reconcile algorithms that bring a foreign table's cached
// chunks back in line with its source, plus the evict-only fast path.
//
// Grounded directly on ForeignStorageMgr::refreshTable /
// refreshTableInCache in
// original_source/DataMgr/ForeignStorage/ForeignStorageMgr.cpp: the same
// purge-temp-map / evict-or-reconcile branch, the same old-metadata capture
// before a bulk clear, and the same per-fragment re-cache loop bounded by a
// cumulative time budget.
package refresh

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/chandrudp29/omniscidb/internal/logger"
	"github.com/chandrudp29/omniscidb/pkg/buffer"
	"github.com/chandrudp29/omniscidb/pkg/cache"
	"github.com/chandrudp29/omniscidb/pkg/catalog"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/foreignstorage"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
)

// MaxRefreshTimeInSeconds bounds the cumulative time a single reconcile pass
// spends re-populating previously-cached chunks (§4.E step 8). Once
// exceeded, the remaining fragments are abandoned for this run; their
// metadata stays cached but their chunk bytes are not re-populated.
const MaxRefreshTimeInSeconds = 3600

// Engine drives refresh_table against a Manager and the catalog it resolves
// tables from.
type Engine struct {
	catalog *catalog.Catalog
	manager *foreignstorage.Manager
}

// New returns an Engine. The manager must have caching enabled: refresh
// reconcile has no meaning without a cache to reconcile against.
func New(cat *catalog.Catalog, mgr *foreignstorage.Manager) *Engine {
	return &Engine{catalog: cat, manager: mgr}
}

// RefreshTable reconciles or evicts table p, per §4.E steps 1-3.
func (e *Engine) RefreshTable(ctx context.Context, p chunkkey.Key, opts Options) error {
	if !chunkkey.IsTableKey(p) {
		return fmt.Errorf("refresh: %s is not a table key", p)
	}
	c := e.manager.Cache()
	if c == nil {
		return fmt.Errorf("refresh: table %s has no cache configured", p)
	}

	e.manager.PurgeTempBuffersForTable(p)

	if opts.Evict {
		return c.ClearForTablePrefix(p)
	}
	return e.reconcile(ctx, p, c)
}

// reconcile implements §4.E's bulk (ALL) and append-only reconcile paths,
// distinguished by the table's catalog-recorded append_mode flag.
func (e *Engine) reconcile(ctx context.Context, p chunkkey.Key, c *cache.Cache) error {
	table, err := e.catalog.GetForeignTable(p[chunkkey.DBIdx], p[chunkkey.TableIdx])
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	appendMode := table.IsAppendMode()

	created, err := e.manager.CreateDataWrapperIfNotExists(p)
	if err != nil {
		return err
	}
	if created && appendMode {
		if _, err := e.manager.RecoverDataWrapperFromDisk(ctx, p); err != nil {
			return err
		}
	}
	w, ok := e.manager.GetDataWrapper(p)
	if !ok {
		return fmt.Errorf("refresh: %w: table %s", foreignstorage.ErrDataWrapperNotFound, p)
	}

	oldVec, err := cachedMetadataVec(c, p)
	if err != nil {
		return err
	}
	oldChunkKeys := make([]chunkkey.Key, len(oldVec))
	for i, m := range oldVec {
		oldChunkKeys[i] = m.Key
	}
	lastFragID := oldVec.MaxFragmentID()

	var newVec wrapper.ChunkMetadataVector
	if err := w.PopulateChunkMetadata(ctx, &newVec); err != nil {
		return err
	}
	if err := w.SerializeInternals(c.WrapperSnapshotPath(p)); err != nil {
		return err
	}

	if !appendMode {
		if err := c.ClearForTablePrefix(p); err != nil {
			return err
		}
		if err := c.CacheMetadataVec(newVec); err != nil {
			return err
		}
	} else {
		var toCache wrapper.ChunkMetadataVector
		for _, m := range newVec {
			if fragmentIDOf(m.Key) >= lastFragID {
				toCache = append(toCache, m)
			}
		}
		if err := c.CacheMetadataVec(toCache); err != nil {
			return err
		}
	}

	keysToRecache := oldChunkKeys
	if appendMode {
		keysToRecache = nil
		for _, k := range oldChunkKeys {
			if fragmentIDOf(k) >= lastFragID {
				keysToRecache = append(keysToRecache, k)
			}
		}
	}

	if err := e.recacheByFragment(ctx, w, c, keysToRecache); err != nil {
		return &PostEvictionRefreshError{TablePrefix: p, Cause: err}
	}
	return nil
}

// recacheByFragment re-populates keys fragment by fragment, in ascending
// fragment-id order, flushing a single combined cache_table_chunks call at
// the end rather than per fragment (§4.E step 9). Stops early, logging a
// warning, once cumulative wrapper time exceeds MaxRefreshTimeInSeconds
// (§4.E step 8, §5 cancellation/timeouts).
func (e *Engine) recacheByFragment(ctx context.Context, w wrapper.DataWrapper, c *cache.Cache, keys []chunkkey.Key) error {
	if len(keys) == 0 {
		return nil
	}
	keys = withVarlenSiblings(keys)

	byFragment := make(map[int][]chunkkey.Key)
	for _, k := range keys {
		fid := fragmentIDOf(k)
		byFragment[fid] = append(byFragment[fid], k)
	}
	fragIDs := make([]int, 0, len(byFragment))
	for fid := range byFragment {
		fragIDs = append(fragIDs, fid)
	}
	sort.Ints(fragIDs)

	var allKeys []chunkkey.Key
	allBuffers := buffer.Set{}
	start := time.Now()
	budget := MaxRefreshTimeInSeconds * time.Second

	for _, fid := range fragIDs {
		if elapsed := time.Since(start); elapsed > budget {
			logger.Warn("refresh: abandoning remaining fragments after exceeding %ds budget (elapsed %s)",
				MaxRefreshTimeInSeconds, elapsed)
			break
		}

		batch := byFragment[fid]
		required := c.GetChunkBuffersForCaching(batch)
		if err := w.PopulateChunkBuffers(ctx, required, nil); err != nil {
			return err
		}
		for _, k := range batch {
			if buf, ok := required.Get(k); ok {
				allBuffers.Put(k, buf)
			}
		}
		allKeys = append(allKeys, batch...)
	}

	if len(allKeys) == 0 {
		return nil
	}
	return c.CacheTableChunks(allKeys, allBuffers)
}

func cachedMetadataVec(c *cache.Cache, p chunkkey.Key) (wrapper.ChunkMetadataVector, error) {
	has, err := c.HasCachedMetadataForKeyPrefix(p)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	return c.GetCachedMetadataVecForKeyPrefix(p)
}

func fragmentIDOf(k chunkkey.Key) int {
	if len(k) < 4 {
		return 0
	}
	return k[chunkkey.FragmentIdx]
}

// withVarlenSiblings ensures that whenever a varlen chunk key appears, its
// data/index partner is present too (§4.E step 8a): re-caching only one
// half of a variable-length column would leave the chunk pair inconsistent.
func withVarlenSiblings(keys []chunkkey.Key) []chunkkey.Key {
	present := make(map[string]bool, len(keys)*2)
	for _, k := range keys {
		present[k.String()] = true
	}

	out := make([]chunkkey.Key, len(keys))
	copy(out, keys)

	for _, k := range keys {
		if !chunkkey.IsVarlenKey(k) {
			continue
		}
		sib := chunkkey.New(k[chunkkey.DBIdx], k[chunkkey.TableIdx], k[chunkkey.ColumnIdx], k[chunkkey.FragmentIdx], varlenSibling(k[chunkkey.VarlenIdx]))
		if !present[sib.String()] {
			out = append(out, sib)
			present[sib.String()] = true
		}
	}
	return out
}

func varlenSibling(suffix int) int {
	if suffix == chunkkey.VarlenData {
		return chunkkey.VarlenIndex
	}
	return chunkkey.VarlenData
}
