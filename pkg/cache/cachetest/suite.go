// Package cachetest is a reusable conformance battery for *cache.Cache, in
// the shape of the teacher's pkg/content/testing.StoreTestSuite: a factory
// function plus a set of subtests exercising the contract, so the same
// battery can be run against a plain cache and one wired with metrics.
package cachetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/cache"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
)

// Suite runs the conformance battery against a fresh *cache.Cache per
// subtest.
//
// Usage:
//
//	func TestCache(t *testing.T) {
//	    cachetest.Suite{NewCache: func(t *testing.T) *cache.Cache {
//	        return cache.Open(...)
//	    }}.Run(t)
//	}
type Suite struct {
	// NewCache returns a fresh, empty Cache for one subtest. Called once per
	// subtest so state from one never leaks into another.
	NewCache func(t *testing.T) *cache.Cache
}

// Run executes every subtest in the suite.
func (s Suite) Run(t *testing.T) {
	t.Run("MetadataThenChunksRoundTrip", s.runMetadataThenChunksRoundTrip)
	t.Run("CountersMonotonicAcrossEviction", s.runCountersMonotonicAcrossEviction)
	t.Run("MissReturnsFalseNotError", s.runMissReturnsFalseNotError)
	t.Run("RecoverRebuildsFromDirectoryLayout", s.runRecoverRebuildsFromDirectoryLayout)
	t.Run("ChunkBuffersOnePerKey", s.runChunkBuffersOnePerKey)
}

func (s Suite) runMetadataThenChunksRoundTrip(t *testing.T) {
	c := s.NewCache(t)
	key := chunkkey.New(1, 1, 2, 0)

	vec := wrapper.ChunkMetadataVector{{Key: key, ByteSize: 6, NumRows: 2}}
	require.NoError(t, c.CacheMetadataVec(vec))

	cached, err := c.IsMetadataCached(key)
	require.NoError(t, err)
	assert.True(t, cached)

	buffers := c.GetChunkBuffersForCaching([]chunkkey.Key{key})
	buf, ok := buffers.Get(key)
	require.True(t, ok)
	buf.Write([]byte("abcdef"), buf.Encoding())

	require.NoError(t, c.CacheTableChunks([]chunkkey.Key{key}, buffers))
	assert.False(t, buf.IsDirty(), "CacheTableChunks must clear the dirty flag")

	got, found, err := c.GetCachedChunkIfExists(key)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("abcdef"), got.Bytes())
	assert.False(t, got.IsDirty())
}

func (s Suite) runCountersMonotonicAcrossEviction(t *testing.T) {
	c := s.NewCache(t)
	prefix := chunkkey.New(1, 1)
	key := chunkkey.New(1, 1, 2, 0)

	require.NoError(t, c.CacheMetadataVec(wrapper.ChunkMetadataVector{{Key: key, ByteSize: 3}}))
	buffers := c.GetChunkBuffersForCaching([]chunkkey.Key{key})
	buf, _ := buffers.Get(key)
	buf.Write([]byte("abc"), buf.Encoding())
	require.NoError(t, c.CacheTableChunks([]chunkkey.Key{key}, buffers))

	beforeMetadata := c.NumMetadataAdded()
	beforeChunks := c.NumChunksAdded()
	require.Greater(t, beforeMetadata, uint64(0))
	require.Greater(t, beforeChunks, uint64(0))

	require.NoError(t, c.ClearForTablePrefix(prefix))

	cached, err := c.HasCachedMetadataForKeyPrefix(prefix)
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, beforeMetadata, c.NumMetadataAdded())
	assert.Equal(t, beforeChunks, c.NumChunksAdded())
}

func (s Suite) runMissReturnsFalseNotError(t *testing.T) {
	c := s.NewCache(t)
	_, found, err := c.GetCachedChunkIfExists(chunkkey.New(9, 9, 9, 9))
	require.NoError(t, err)
	assert.False(t, found)
}

func (s Suite) runRecoverRebuildsFromDirectoryLayout(t *testing.T) {
	c := s.NewCache(t)
	prefix := chunkkey.New(1, 1)
	key := chunkkey.New(1, 1, 2, 0)

	require.NoError(t, c.CacheMetadataVec(wrapper.ChunkMetadataVector{{Key: key, ByteSize: 3}}))
	buffers := c.GetChunkBuffersForCaching([]chunkkey.Key{key})
	buf, _ := buffers.Get(key)
	buf.Write([]byte("abc"), buf.Encoding())
	require.NoError(t, c.CacheTableChunks([]chunkkey.Key{key}, buffers))

	vec, err := c.RecoverCacheForTable(context.Background(), prefix)
	require.NoError(t, err)
	require.Len(t, vec, 1)
	assert.Equal(t, int64(3), vec[0].ByteSize)

	_, found, err := c.GetCachedChunkIfExists(key)
	require.NoError(t, err)
	assert.True(t, found)
}

func (s Suite) runChunkBuffersOnePerKey(t *testing.T) {
	c := s.NewCache(t)
	keys := []chunkkey.Key{chunkkey.New(1, 1, 1, 0), chunkkey.New(1, 1, 2, 0)}
	set := c.GetChunkBuffersForCaching(keys)
	assert.Len(t, set, 2)
	for _, k := range keys {
		_, ok := set.Get(k)
		assert.True(t, ok)
	}
}
