// Package wrapper defines the DataWrapper contract: the pluggable scanner
// for one external file format that the foreign storage manager drives to
// turn a table's source files into chunk metadata and chunk buffers.
//
// Implementations live in sibling packages (csvwrapper for delimited text,
// parquetwrapper for the columnar binary format) and a mockwrapper used as a
// manager-level test seam.
package wrapper

import (
	"context"

	"github.com/chandrudp29/omniscidb/pkg/buffer"
)

// DataWrapper is the capability set the foreign storage manager drives for
// one table.
//
// Implementations MUST fail with ErrSchemaMismatch when the on-source schema
// disagrees with the catalog, ErrSourceUnavailable when the source files or
// objects cannot be opened, and ErrCorruptSource for parse errors. Append-
// mode reconcile additionally surfaces ErrAppendShrank and
// ErrAppendArchiveEntryMissing.
//
// Thread safety: the manager drives at most one PopulateChunkMetadata or
// PopulateChunkBuffers call at a time per wrapper instance; a wrapper does
// not need to guard against concurrent calls to itself, only against being
// read (IsRestored) while one of those calls is in flight.
type DataWrapper interface {
	// PopulateChunkMetadata scans the source and appends one ChunkMetadata
	// record per physical chunk the wrapper knows about to out.
	PopulateChunkMetadata(ctx context.Context, out *ChunkMetadataVector) error

	// PopulateChunkBuffers fills every buffer in required. It may
	// opportunistically fill entries in optional (typically other physical
	// chunks belonging to the same fragment) but MUST NOT fail solely
	// because it chose not to populate an optional buffer.
	PopulateChunkBuffers(ctx context.Context, required, optional buffer.Set) error

	// SerializeInternals writes a JSON snapshot of the wrapper's source
	// state (such as the source size it last scanned) to path.
	SerializeInternals(path string) error

	// RestoreInternals reads the JSON snapshot written by SerializeInternals
	// and checks it against the current source, failing with
	// ErrAppendShrank where the source has shrunk since the snapshot. Sets
	// IsRestored to true on success. The csvwrapper and parquetwrapper
	// implementations do not rebuild scan state from the snapshot or the
	// metadata argument: their next PopulateChunkMetadata or
	// PopulateChunkBuffers call rescans the source.
	RestoreInternals(path string, metadata ChunkMetadataVector) error

	// IsRestored reports whether the wrapper was last brought up from a
	// snapshot via RestoreInternals, as opposed to a fresh source scan.
	IsRestored() bool
}
