package mockwrapper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chandrudp29/omniscidb/pkg/buffer"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
	"github.com/chandrudp29/omniscidb/pkg/wrapper/mockwrapper"
)

type stubWrapper struct {
	restored  bool
	metaCalls int
}

func (s *stubWrapper) PopulateChunkMetadata(ctx context.Context, out *wrapper.ChunkMetadataVector) error {
	s.metaCalls++
	return nil
}
func (s *stubWrapper) PopulateChunkBuffers(ctx context.Context, required, optional buffer.Set) error {
	return nil
}
func (s *stubWrapper) SerializeInternals(path string) error { return nil }
func (s *stubWrapper) RestoreInternals(path string, metadata wrapper.ChunkMetadataVector) error {
	return nil
}
func (s *stubWrapper) IsRestored() bool { return s.restored }

func TestForwardsToParentByDefault(t *testing.T) {
	parent := &stubWrapper{restored: true}
	m := mockwrapper.New(parent)

	var out wrapper.ChunkMetadataVector
	require.NoError(t, m.PopulateChunkMetadata(context.Background(), &out))
	assert.Equal(t, 1, parent.metaCalls)
	assert.True(t, m.IsRestored())
}

func TestOverrideReplacesOneMethodOnly(t *testing.T) {
	parent := &stubWrapper{}
	m := mockwrapper.New(parent)

	wantErr := errors.New("boom")
	m.OverridePopulateChunkMetadata = func(ctx context.Context, out *wrapper.ChunkMetadataVector) error {
		return wantErr
	}

	var out wrapper.ChunkMetadataVector
	err := m.PopulateChunkMetadata(context.Background(), &out)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, parent.metaCalls, "override must not also call parent")

	// Unoverridden methods still forward.
	assert.NoError(t, m.SerializeInternals("/tmp/x"))
}

func TestSetParentWrapperSwapsDelegate(t *testing.T) {
	first := &stubWrapper{restored: false}
	second := &stubWrapper{restored: true}
	m := mockwrapper.New(first)

	assert.False(t, m.IsRestored())
	m.SetParentWrapper(second)
	assert.True(t, m.IsRestored())
}
