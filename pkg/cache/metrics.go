package cache

import "github.com/chandrudp29/omniscidb/pkg/chunkkey"

// Metrics provides observability for chunk cache operations. Optional: a
// Cache with no Metrics configured uses noopMetrics, matching the teacher's
// pkg/content/cache.CacheMetrics pattern of a domain-owned interface with a
// Prometheus-backed implementation supplied from the outside.
type Metrics interface {
	// RecordMetadataAdded is called after CacheMetadataVec/RecoverCacheForTable
	// append n entries to NumMetadataAdded.
	RecordMetadataAdded(n int)
	// RecordChunksAdded is called after CacheTableChunks appends n blobs to
	// NumChunksAdded.
	RecordChunksAdded(n int)
	// ObserveCacheHit/ObserveCacheMiss are called on every
	// GetCachedChunkIfExists lookup.
	ObserveCacheHit()
	ObserveCacheMiss()
	// RecordTableCleared is called after ClearForTablePrefix evicts a table.
	RecordTableCleared(prefix chunkkey.Key)
}

type noopMetrics struct{}

func (noopMetrics) RecordMetadataAdded(int)        {}
func (noopMetrics) RecordChunksAdded(int)          {}
func (noopMetrics) ObserveCacheHit()               {}
func (noopMetrics) ObserveCacheMiss()              {}
func (noopMetrics) RecordTableCleared(chunkkey.Key) {}
