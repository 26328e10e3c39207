package wrapper

import "github.com/chandrudp29/omniscidb/pkg/chunkkey"

// ColumnStats summarizes one physical column within a single chunk: its
// nullable min/max and null count. A nil Min/Max means "unknown" (the source
// format did not expose statistics for this chunk), distinct from an actual
// null value.
type ColumnStats struct {
	ColumnID  int
	Min       any
	Max       any
	HasMinMax bool
	NullCount int64
}

// ChunkMetadata is the per-chunk summary a DataWrapper emits without
// necessarily reading chunk contents, when the source format carries enough
// statistics (e.g. row-group metadata in a columnar format).
type ChunkMetadata struct {
	Key        chunkkey.Key
	ByteSize   int64
	NumRows    int64
	ColumnStat ColumnStats
}

// ChunkMetadataVector is an ordered collection of ChunkMetadata, matching the
// out-parameter style the manager and cache pass around (populate-in-place
// rather than allocate-and-return, so repeated scans can reuse storage).
type ChunkMetadataVector []ChunkMetadata

// MaxFragmentID returns the highest fragment id present in the vector, or 0
// if the vector is empty. Used by the append-mode refresh fast path to find
// the fragment boundary that might still be growing.
func (v ChunkMetadataVector) MaxFragmentID() int {
	max := 0
	for _, m := range v {
		if len(m.Key) > chunkkey.FragmentIdx {
			if fid := m.Key[chunkkey.FragmentIdx]; fid > max {
				max = fid
			}
		}
	}
	return max
}
