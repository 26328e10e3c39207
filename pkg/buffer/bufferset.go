package buffer

import "github.com/chandrudp29/omniscidb/pkg/chunkkey"

// Entry pairs a chunk key with the buffer that holds (or will hold) its
// bytes.
type Entry struct {
	Key    chunkkey.Key
	Buffer *Buffer
}

// Set is a small ordered chunk-key-to-buffer association, standing in for
// the map<ChunkKey, AbstractBuffer*> the spec describes. ChunkKey (a slice)
// is not a valid Go map key, and chunk-fetch batches are small (a handful of
// physical chunks per fragment), so a linear-scan slice is both simpler and
// fast enough here.
type Set []Entry

// Get returns the buffer for k and whether it was present.
func (s Set) Get(k chunkkey.Key) (*Buffer, bool) {
	for _, e := range s {
		if chunkkey.Equal(e.Key, k) {
			return e.Buffer, true
		}
	}
	return nil, false
}

// Put adds or replaces the buffer associated with k.
func (s *Set) Put(k chunkkey.Key, b *Buffer) {
	for i, e := range *s {
		if chunkkey.Equal(e.Key, k) {
			(*s)[i].Buffer = b
			return
		}
	}
	*s = append(*s, Entry{Key: k, Buffer: b})
}

// Keys returns the chunk keys present in the set, in insertion order.
func (s Set) Keys() []chunkkey.Key {
	keys := make([]chunkkey.Key, len(s))
	for i, e := range s {
		keys[i] = e.Key
	}
	return keys
}
