// Package mockwrapper is a manager-level test seam: a DataWrapper decorator
// that forwards every call to a parent wrapper unless a test has overridden
// it, mirroring the original implementation's MockForeignDataWrapper /
// setParentWrapper pattern (original_source/DataMgr/ForeignStorage).
package mockwrapper

import (
	"context"

	"github.com/chandrudp29/omniscidb/pkg/buffer"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
)

// Wrapper forwards to Parent by default. Tests set one of the Override*
// fields to replace a single method's behavior without reimplementing the
// rest of the interface.
type Wrapper struct {
	Parent wrapper.DataWrapper

	OverridePopulateChunkMetadata func(ctx context.Context, out *wrapper.ChunkMetadataVector) error
	OverridePopulateChunkBuffers  func(ctx context.Context, required, optional buffer.Set) error
	OverrideSerializeInternals    func(path string) error
	OverrideRestoreInternals      func(path string, metadata wrapper.ChunkMetadataVector) error
	OverrideIsRestored            func() bool
}

// New returns a Wrapper delegating to parent.
func New(parent wrapper.DataWrapper) *Wrapper {
	return &Wrapper{Parent: parent}
}

// SetParentWrapper replaces the delegate, matching the original's ability to
// swap in a fresh wrapper after a cache eviction without losing the test
// harness's overrides.
func (w *Wrapper) SetParentWrapper(parent wrapper.DataWrapper) {
	w.Parent = parent
}

func (w *Wrapper) PopulateChunkMetadata(ctx context.Context, out *wrapper.ChunkMetadataVector) error {
	if w.OverridePopulateChunkMetadata != nil {
		return w.OverridePopulateChunkMetadata(ctx, out)
	}
	return w.Parent.PopulateChunkMetadata(ctx, out)
}

func (w *Wrapper) PopulateChunkBuffers(ctx context.Context, required, optional buffer.Set) error {
	if w.OverridePopulateChunkBuffers != nil {
		return w.OverridePopulateChunkBuffers(ctx, required, optional)
	}
	return w.Parent.PopulateChunkBuffers(ctx, required, optional)
}

func (w *Wrapper) SerializeInternals(path string) error {
	if w.OverrideSerializeInternals != nil {
		return w.OverrideSerializeInternals(path)
	}
	return w.Parent.SerializeInternals(path)
}

func (w *Wrapper) RestoreInternals(path string, metadata wrapper.ChunkMetadataVector) error {
	if w.OverrideRestoreInternals != nil {
		return w.OverrideRestoreInternals(path, metadata)
	}
	return w.Parent.RestoreInternals(path, metadata)
}

func (w *Wrapper) IsRestored() bool {
	if w.OverrideIsRestored != nil {
		return w.OverrideIsRestored()
	}
	return w.Parent.IsRestored()
}
