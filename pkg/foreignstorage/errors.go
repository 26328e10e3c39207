package foreignstorage

import "errors"

// ErrUnsupported is returned by every Manager method that only exists on
// the storage-manager interface the query engine expects but that a
// foreign storage manager cannot implement: buffers here are populated by
// scanning an external source, never created, written, or freed directly.
var ErrUnsupported = errors.New("operation is not supported by the foreign storage manager")

// ErrDataWrapperNotFound is returned when a table key has no registered
// DataWrapper — the caller skipped CreateDataWrapperIfNotExists, or asked
// about a table the catalog doesn't know.
var ErrDataWrapperNotFound = errors.New("no data wrapper registered for table")

// ErrDirtyDestination is returned by FetchBuffer when the caller-supplied
// destination buffer is already dirty: the manager only ever writes into a
// clean destination, since a dirty buffer may hold uncommitted data the
// caller still needs.
var ErrDirtyDestination = errors.New("destination buffer must not be dirty")
