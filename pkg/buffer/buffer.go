// Package buffer defines the owned byte region that chunk data is read into
// and copied between caches, temporary holding maps, and query execution.
package buffer

import "sync"

// Encoding describes the element type stored in a Buffer, enough for a
// consumer to interpret the raw bytes without re-deriving it from the
// catalog.
type Encoding struct {
	// ElementType names the physical type, e.g. "int32", "varlen_index", "text_dict8".
	ElementType string
	// ElementSize is the fixed width in bytes of one element, or 0 for
	// variable-length encodings where only ByteSize is meaningful.
	ElementSize int
}

// Buffer is an owned byte region with an attached Encoding.
//
// A Buffer is either dirty (mutated by its current owner since the last
// sync) or clean. The foreign storage manager only ever writes into
// non-dirty destinations; callers that need to mutate a fetched buffer must
// copy it out first.
//
// Safe for concurrent use: every method takes the Buffer's own lock.
type Buffer struct {
	mu       sync.RWMutex
	data     []byte
	encoding Encoding
	dirty    bool
}

// New returns an empty, clean Buffer with the given encoding.
func New(encoding Encoding) *Buffer {
	return &Buffer{encoding: encoding}
}

// NewWithData returns a clean Buffer pre-populated with data. The slice is
// retained, not copied.
func NewWithData(encoding Encoding, data []byte) *Buffer {
	return &Buffer{encoding: encoding, data: data}
}

// IsDirty reports whether the buffer has been mutated since creation or the
// last SetDirty(false) call.
func (b *Buffer) IsDirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dirty
}

// SetDirty marks the buffer dirty or clean.
func (b *Buffer) SetDirty(dirty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirty = dirty
}

// Size returns the number of bytes currently held.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Encoding returns the buffer's element encoding.
func (b *Buffer) Encoding() Encoding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.encoding
}

// Bytes returns the buffer's contents. The returned slice aliases internal
// storage and must not be retained past the buffer's next mutation.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.data
}

// Write replaces the buffer's contents and marks it dirty.
func (b *Buffer) Write(data []byte, encoding Encoding) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = data
	b.encoding = encoding
	b.dirty = true
}

// Append appends data to the buffer's contents and marks it dirty. Used by
// wrappers that populate a buffer incrementally across multiple source reads
// (e.g. row-group by row-group).
func (b *Buffer) Append(data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, data...)
	b.dirty = true
}

// CopyTo copies up to numBytes of b's contents into dst, leaving dst's dirty
// bit untouched. Used when the manager obtains a buffer indirectly (cache
// hit or temp-map adoption) and must populate the caller-owned destination
// buffer; the destination was just filled by the manager, not mutated by
// its caller, so it must not read as dirty on the next FetchBuffer.
func (b *Buffer) CopyTo(dst *Buffer, numBytes int) {
	b.mu.RLock()
	src := b.data
	enc := b.encoding
	b.mu.RUnlock()

	if numBytes >= 0 && numBytes < len(src) {
		src = src[:numBytes]
	}
	cp := make([]byte, len(src))
	copy(cp, src)

	dst.mu.Lock()
	dst.data = cp
	dst.encoding = enc
	dst.mu.Unlock()
}
