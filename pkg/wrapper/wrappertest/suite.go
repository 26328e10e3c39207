// Package wrappertest is a reusable DataWrapper conformance suite, in the
// shape of the teacher's pkg/content/testing.StoreTestSuite: a fixture
// factory plus a battery of subtests run against the interface contract
// rather than implementation details, so the same battery exercises
// csvwrapper and parquetwrapper alike.
package wrappertest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/buffer"
	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
)

// Fixture pairs a fresh DataWrapper with one data chunk key it is known to
// produce and the bytes that key should decode to.
type Fixture struct {
	// NewWrapper returns a fresh DataWrapper scanning this fixture's source.
	// Called once per subtest so state from one subtest never leaks into
	// another.
	NewWrapper func(t *testing.T) wrapper.DataWrapper
	// Key is a data chunk key PopulateChunkMetadata/PopulateChunkBuffers is
	// expected to produce for this fixture.
	Key chunkkey.Key
	// ExpectedBytes is the bytes PopulateChunkBuffers should fill at Key.
	ExpectedBytes []byte
}

// Suite runs the conformance battery against one implementation.
//
// Usage:
//
//	func TestWrapper(t *testing.T) {
//	    wrappertest.Suite{NewFixture: func(t *testing.T) wrappertest.Fixture {
//	        return wrappertest.Fixture{NewWrapper: ..., Key: ..., ExpectedBytes: ...}
//	    }}.Run(t)
//	}
type Suite struct {
	NewFixture func(t *testing.T) Fixture
}

// Run executes every subtest in the suite.
func (s Suite) Run(t *testing.T) {
	t.Run("PopulateChunkMetadata", s.runPopulateChunkMetadata)
	t.Run("PopulateChunkBuffers", s.runPopulateChunkBuffers)
	t.Run("SerializeRestoreRoundTrip", s.runSerializeRestoreRoundTrip)
	t.Run("IsRestoredStartsFalse", s.runIsRestoredStartsFalse)
}

func (s Suite) runPopulateChunkMetadata(t *testing.T) {
	f := s.NewFixture(t)
	w := f.NewWrapper(t)

	var out wrapper.ChunkMetadataVector
	require.NoError(t, w.PopulateChunkMetadata(context.Background(), &out))
	require.NotEmpty(t, out, "fixture must yield at least one chunk")

	found := false
	for _, m := range out {
		if m.Key.String() == f.Key.String() {
			found = true
			assert.EqualValues(t, len(f.ExpectedBytes), m.ByteSize)
		}
	}
	assert.True(t, found, "expected key %s among scanned metadata", f.Key)
}

func (s Suite) runPopulateChunkBuffers(t *testing.T) {
	f := s.NewFixture(t)
	w := f.NewWrapper(t)

	required := buffer.Set{{Key: f.Key, Buffer: buffer.New(buffer.Encoding{})}}
	require.NoError(t, w.PopulateChunkBuffers(context.Background(), required, nil))

	buf, ok := required.Get(f.Key)
	require.True(t, ok)
	assert.Equal(t, f.ExpectedBytes, buf.Bytes())
}

// runSerializeRestoreRoundTrip checks that a wrapper restored from a
// snapshot serves the same buffer contents as the original scan, without
// the caller needing to know anything about the snapshot format.
func (s Suite) runSerializeRestoreRoundTrip(t *testing.T) {
	f := s.NewFixture(t)
	w := f.NewWrapper(t)

	var out wrapper.ChunkMetadataVector
	require.NoError(t, w.PopulateChunkMetadata(context.Background(), &out))

	snapshotPath := filepath.Join(t.TempDir(), "wrapper.json")
	require.NoError(t, w.SerializeInternals(snapshotPath))

	restored := f.NewWrapper(t)
	require.NoError(t, restored.RestoreInternals(snapshotPath, out))
	assert.True(t, restored.IsRestored())

	required := buffer.Set{{Key: f.Key, Buffer: buffer.New(buffer.Encoding{})}}
	require.NoError(t, restored.PopulateChunkBuffers(context.Background(), required, nil))
	buf, ok := required.Get(f.Key)
	require.True(t, ok)
	assert.Equal(t, f.ExpectedBytes, buf.Bytes())
}

func (s Suite) runIsRestoredStartsFalse(t *testing.T) {
	f := s.NewFixture(t)
	w := f.NewWrapper(t)
	assert.False(t, w.IsRestored())
}
