package refresh

import (
	"errors"
	"fmt"

	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
)

// ErrInvalidRefreshOption is returned when a recognized refresh option key
// carries a value of the wrong shape (e.g. evict isn't a bool).
var ErrInvalidRefreshOption = errors.New("invalid refresh option value")

// ErrUnknownRefreshOption is returned when a REFRESH ... WITH (...) map
// carries a key other than the ones this engine recognizes.
var ErrUnknownRefreshOption = errors.New("unknown refresh option")

// PostEvictionRefreshError wraps a populate_chunk_buffers failure that
// happened after the cache was cleared during a bulk reconcile (step 6
// onward). Its presence tells a caller the table's cached chunks may now be
// partial, as opposed to an error returned before eviction, where the prior
// cached state is still fully intact.
type PostEvictionRefreshError struct {
	TablePrefix chunkkey.Key
	Cause       error
}

func (e *PostEvictionRefreshError) Error() string {
	return fmt.Sprintf("refresh: post-eviction failure for table %s: %v", e.TablePrefix, e.Cause)
}

func (e *PostEvictionRefreshError) Unwrap() error { return e.Cause }
