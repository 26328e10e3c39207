package wrapper

import "errors"

// Sentinel errors a DataWrapper returns for the failure modes the manager
// and refresh engine need to distinguish. Implementations should wrap these
// with fmt.Errorf("%w: ...") to attach the offending path or detail, per the
// user-visible message requirement on schema/source/parse failures.
var (
	// ErrSchemaMismatch is returned when the on-source schema disagrees with
	// the catalog: different column count, or an incompatible element type.
	ErrSchemaMismatch = errors.New("foreign table schema does not match source")

	// ErrSourceUnavailable is returned when the source files or objects
	// cannot be opened (missing file, unreachable bucket, permission denied).
	ErrSourceUnavailable = errors.New("foreign table source is unavailable")

	// ErrCorruptSource is returned for parse errors: malformed rows, truncated
	// archives, or a columnar file that fails its own internal checks.
	ErrCorruptSource = errors.New("foreign table source is corrupt")

	// ErrAppendShrank is returned by an append-mode reconcile when the total
	// source byte length decreased since the last refresh.
	ErrAppendShrank = errors.New("append-mode source shrank since last refresh")

	// ErrAppendArchiveEntryMissing is returned by an append-mode reconcile
	// over an archive-backed source when a previously observed archive
	// member is no longer present. Reserved: no archive-backed wrapper
	// exists yet, so no implementation raises this today.
	ErrAppendArchiveEntryMissing = errors.New("append-mode archive is missing a previously observed entry")
)
