// Package cache implements the disk-backed chunk cache: a directory of
// per-chunk blob files mirrored by a durable index (pkg/cache/badgerindex)
// for fast lookup, plus monotonic counters tracking everything ever added.
//
// Invariants:
//   - I1: a buffer is only visible to GetCachedChunkIfExists once its bytes
//     have been fully written to a file and that file has replaced any
//     previous one by rename; a reader never observes a partial write.
//   - I2: metadata and chunk bytes are cached independently — CacheMetadataVec
//     can run long before CacheTableChunks for the same keys.
//   - I3: chunk bytes are written to a temporary file in the same directory
//     and atomically renamed into place, so a crash mid-write never leaves a
//     corrupt blob at the real path.
//   - I4: NumMetadataAdded and NumChunksAdded only increase. Evicting a
//     table (ClearForTablePrefix) removes its entries but does not roll the
//     counters back.
package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chandrudp29/omniscidb/pkg/buffer"
	"github.com/chandrudp29/omniscidb/pkg/cache/badgerindex"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
)

// Config configures Open.
type Config struct {
	// RootDir is the directory blob files are stored under. Created if it
	// does not exist.
	RootDir string
	// Index is the durable lookup index. Required.
	Index *badgerindex.Index
	// Metrics receives cache hit/miss and counter observations. Optional;
	// a noop implementation is used when nil.
	Metrics Metrics
}

// Cache is a disk-backed chunk cache shared by every foreign table the
// manager serves.
type Cache struct {
	rootDir string
	index   *badgerindex.Index
	metrics Metrics

	numMetadataAdded atomic.Uint64
	numChunksAdded   atomic.Uint64
}

// Open prepares the cache root directory and returns a Cache bound to the
// given index.
func Open(ctx context.Context, config Config) (*Cache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.Index == nil {
		return nil, fmt.Errorf("cache: Index is required")
	}
	if err := os.MkdirAll(config.RootDir, 0755); err != nil {
		return nil, fmt.Errorf("cache: creating root directory %s: %w", config.RootDir, err)
	}
	m := config.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	return &Cache{rootDir: config.RootDir, index: config.Index, metrics: m}, nil
}

// NumMetadataAdded returns the total number of ChunkMetadata records ever
// written to the index, including ones later evicted.
func (c *Cache) NumMetadataAdded() uint64 { return c.numMetadataAdded.Load() }

// NumChunksAdded returns the total number of chunk blobs ever written,
// including ones later evicted.
func (c *Cache) NumChunksAdded() uint64 { return c.numChunksAdded.Load() }

// GetCacheDirectoryForTablePrefix returns the directory a table's blob files
// and wrapper snapshot live under.
func (c *Cache) GetCacheDirectoryForTablePrefix(prefix chunkkey.Key) string {
	return c.tableDir(prefix)
}

func (c *Cache) tableDir(prefix chunkkey.Key) string {
	return filepath.Join(c.rootDir,
		strconv.Itoa(prefix[chunkkey.DBIdx]),
		strconv.Itoa(prefix[chunkkey.TableIdx]))
}

func (c *Cache) blobPath(k chunkkey.Key) string {
	dir := c.tableDir(chunkkey.TablePrefix(k))
	name := fmt.Sprintf("%d_%d", k[chunkkey.ColumnIdx], k[chunkkey.FragmentIdx])
	if chunkkey.IsVarlenKey(k) {
		name = fmt.Sprintf("%s_%d", name, k[chunkkey.VarlenIdx])
	}
	return filepath.Join(dir, name+".chunk")
}

// WrapperSnapshotPath returns the path a table's serialized wrapper
// internals are (or would be) stored at.
func (c *Cache) WrapperSnapshotPath(prefix chunkkey.Key) string {
	return filepath.Join(c.tableDir(prefix), "wrapper.json")
}

// IsMetadataCached reports whether k has a metadata entry in the index.
func (c *Cache) IsMetadataCached(k chunkkey.Key) (bool, error) {
	_, found, err := c.index.Get(k)
	return found, err
}

// HasCachedMetadataForKeyPrefix reports whether any key under prefix has
// cached metadata.
func (c *Cache) HasCachedMetadataForKeyPrefix(prefix chunkkey.Key) (bool, error) {
	return c.index.HasPrefix(prefix)
}

// GetCachedMetadataVecForKeyPrefix returns every cached ChunkMetadata whose
// key begins with prefix.
func (c *Cache) GetCachedMetadataVecForKeyPrefix(prefix chunkkey.Key) (wrapper.ChunkMetadataVector, error) {
	entries, err := c.index.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	vec := make(wrapper.ChunkMetadataVector, 0, len(entries))
	for _, e := range entries {
		vec = append(vec, e.Metadata)
	}
	return vec, nil
}

// GetCachedChunkIfExists returns the cached buffer for k, and whether one
// was present. The returned buffer is clean (not dirty): it reflects exactly
// what is on disk.
func (c *Cache) GetCachedChunkIfExists(k chunkkey.Key) (*buffer.Buffer, bool, error) {
	entry, found, err := c.index.Get(k)
	if err != nil {
		return nil, false, err
	}
	if !found {
		c.metrics.ObserveCacheMiss()
		return nil, false, nil
	}

	data, err := os.ReadFile(entry.BlobPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Index and directory layout disagree; treat as a cache miss
			// rather than an error, since the directory is authoritative.
			c.metrics.ObserveCacheMiss()
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: reading %s: %w", entry.BlobPath, err)
	}

	buf := buffer.NewWithData(buffer.Encoding{}, data)
	buf.SetDirty(false)
	c.metrics.ObserveCacheHit()
	return buf, true, nil
}

// GetChunkBuffersForCaching allocates an empty, clean buffer for each key so
// a DataWrapper can populate them via PopulateChunkBuffers before the result
// is handed to CacheTableChunks.
func (c *Cache) GetChunkBuffersForCaching(keys []chunkkey.Key) buffer.Set {
	set := make(buffer.Set, 0, len(keys))
	for _, k := range keys {
		set = append(set, buffer.Entry{Key: k, Buffer: buffer.New(buffer.Encoding{})})
	}
	return set
}

// CacheMetadataVec records metadata for every entry in vec, without
// requiring chunk bytes to exist yet (I2). Safe to call again later for the
// same keys; each call replaces the prior entry and still advances
// NumMetadataAdded (I4).
func (c *Cache) CacheMetadataVec(vec wrapper.ChunkMetadataVector) error {
	for _, m := range vec {
		entry := badgerindex.Entry{Metadata: m, BlobPath: c.blobPath(m.Key)}
		if err := c.index.Put(entry); err != nil {
			return fmt.Errorf("cache: recording metadata for %s: %w", m.Key, err)
		}
	}
	c.numMetadataAdded.Add(uint64(len(vec)))
	c.metrics.RecordMetadataAdded(len(vec))
	return nil
}

// CacheTableChunks persists buffers[k] for every k in keys to disk via a
// write-to-temp-then-rename (I3), then clears each buffer's dirty flag.
// CacheMetadataVec should have already recorded metadata for these keys;
// CacheTableChunks does not create metadata entries on its own.
func (c *Cache) CacheTableChunks(keys []chunkkey.Key, buffers buffer.Set) error {
	for _, k := range keys {
		buf, ok := buffers.Get(k)
		if !ok {
			return fmt.Errorf("cache: no buffer supplied for key %s", k)
		}
		if err := c.writeBlobAtomically(k, buf.Bytes()); err != nil {
			return err
		}
		buf.SetDirty(false)
	}
	c.numChunksAdded.Add(uint64(len(keys)))
	c.metrics.RecordChunksAdded(len(keys))
	return nil
}

func (c *Cache) writeBlobAtomically(k chunkkey.Key, data []byte) error {
	path := c.blobPath(k)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cache: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".chunk-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cache: writing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// ClearForTablePrefix evicts a single table from the cache: its blob
// directory is removed and its index entries are deleted. Counters are not
// rolled back (I4).
func (c *Cache) ClearForTablePrefix(prefix chunkkey.Key) error {
	if err := os.RemoveAll(c.tableDir(prefix)); err != nil {
		return fmt.Errorf("cache: removing %s: %w", c.tableDir(prefix), err)
	}
	if err := c.index.DeletePrefix(prefix); err != nil {
		return fmt.Errorf("cache: clearing index for %s: %w", prefix, err)
	}
	c.metrics.RecordTableCleared(prefix)
	return nil
}

// Clear removes every table's blob directory under the cache root. It does
// not touch the index: cached metadata stays visible through
// IsMetadataCached and the metadata lookups, while GetCachedChunkIfExists
// reports a miss for every chunk because its blob is gone.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.rootDir)
	if err != nil {
		return fmt.Errorf("cache: reading root directory %s: %w", c.rootDir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.rootDir, e.Name())); err != nil {
			return fmt.Errorf("cache: removing %s: %w", e.Name(), err)
		}
	}
	return nil
}

// RecoverCacheForTable rebuilds index entries for a table purely from its
// on-disk blob directory, ignoring whatever the index currently holds for
// that table. The directory layout is the source of truth; the index is an
// accelerant that can always be reconstructed from it. Row counts and
// column statistics are not recoverable from the blob alone, so recovered
// entries carry a zero NumRows/ColumnStat — callers that need those should
// re-run PopulateChunkMetadata instead of relying on recovery.
func (c *Cache) RecoverCacheForTable(ctx context.Context, prefix chunkkey.Key) (wrapper.ChunkMetadataVector, error) {
	dir := c.tableDir(prefix)
	var vec wrapper.ChunkMetadataVector

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == dir {
				return nil // table was never cached; nothing to recover
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".chunk") {
			return nil
		}

		key, ok := parseBlobName(prefix, strings.TrimSuffix(d.Name(), ".chunk"))
		if !ok {
			return nil // not a chunk blob this scheme recognizes; skip
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("cache: stat %s: %w", path, err)
		}

		m := wrapper.ChunkMetadata{Key: key, ByteSize: info.Size()}
		vec = append(vec, m)
		if putErr := c.index.Put(badgerindex.Entry{Metadata: m, BlobPath: path}); putErr != nil {
			return fmt.Errorf("cache: reindexing %s: %w", path, putErr)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache: recovering %s: %w", dir, err)
	}

	c.numMetadataAdded.Add(uint64(len(vec)))
	c.metrics.RecordMetadataAdded(len(vec))
	return vec, nil
}

// parseBlobName recovers a chunk key from a blob filename of the form
// "<column>_<fragment>" or "<column>_<fragment>_<varlen>".
func parseBlobName(tablePrefix chunkkey.Key, name string) (chunkkey.Key, bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, false
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		nums[i] = n
	}

	key := chunkkey.New(tablePrefix[chunkkey.DBIdx], tablePrefix[chunkkey.TableIdx], nums[0], nums[1])
	if len(nums) == 3 {
		key = chunkkey.New(tablePrefix[chunkkey.DBIdx], tablePrefix[chunkkey.TableIdx], nums[0], nums[1], nums[2])
	}
	return key, true
}
