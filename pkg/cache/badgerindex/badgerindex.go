// Package badgerindex is a BadgerDB-backed durable index from chunk key to
// cached-chunk metadata (byte size, row count, column stats) and the
// on-disk blob path, plus a pointer to each table's serialized wrapper
// snapshot.
//
// The directory layout under the cache root is the source of truth for
// recovery (pkg/cache walks it with filepath.WalkDir); this index exists to
// make key/prefix lookups and the metadata-cached check O(1)/O(log n)
// instead of a directory walk on every call.
//
// Grounded on marmos91-dnfs/pkg/store/metadata/badger: the same namespaced-
// key-prefix design (see keys.go there), opened and closed the same way.
package badgerindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/chandrudp29/omniscidb/pkg/chunkkey"
	"github.com/chandrudp29/omniscidb/pkg/wrapper"
)

// Key namespace prefixes.
//
// Data Type              Prefix  Key Format                    Value
// m:  chunk metadata      "m:"    m:<key.String()>              Entry (JSON)
// w:  wrapper snapshot     "w:"    w:<table prefix>              blob path (bytes)
const (
	metadataPrefix = "m:"
	wrapperPrefix  = "w:"
)

// Entry is the value stored per chunk key: the wrapper-reported metadata
// plus where its bytes live on disk.
type Entry struct {
	Metadata wrapper.ChunkMetadata `json:"metadata"`
	BlobPath string                `json:"blob_path"`
}

// Index wraps a BadgerDB handle scoped to one cache root.
type Index struct {
	db *badger.DB
}

// Config configures Open.
type Config struct {
	// DBPath is the directory BadgerDB stores its files under.
	DBPath string
	// BadgerOptions overrides the default options entirely, when non-nil.
	BadgerOptions *badger.Options
}

// Open opens (creating if necessary) the index database at config.DBPath.
func Open(ctx context.Context, config Config) (*Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		opts = badger.DefaultOptions(config.DBPath)
		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None) // entries are small; compression isn't worth the CPU
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerindex: opening %s: %w", config.DBPath, err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func metadataKey(k chunkkey.Key) []byte {
	return []byte(metadataPrefix + k.String())
}

// prefixScanKey returns the byte prefix shared by the index keys of every
// chunk key that extends prefix by at least one element: the rendered key
// with its closing bracket replaced by the element separator, so that
// prefix [1 2] matches [1 2 3 0] but not [1 20 3 0].
func prefixScanKey(prefix chunkkey.Key) []byte {
	return []byte(metadataPrefix + strings.TrimSuffix(prefix.String(), "]") + " ")
}

// Put records or replaces the index entry for e.Key.
func (idx *Index) Put(e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("badgerindex: marshaling entry: %w", err)
	}
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set(metadataKey(e.Metadata.Key), data)
	})
}

// Get returns the entry for k, and whether it was present.
func (idx *Index) Get(k chunkkey.Key) (Entry, bool, error) {
	var entry Entry
	found := false

	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metadataKey(k))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("badgerindex: get %s: %w", k, err)
	}
	return entry, found, nil
}

// HasPrefix reports whether any entry's key begins with prefix, without
// decoding the matching value.
func (idx *Index) HasPrefix(prefix chunkkey.Key) (bool, error) {
	found := false
	err := idx.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		scanPrefix := prefixScanKey(prefix)
		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			found = true
			break
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badgerindex: scanning prefix %s: %w", prefix, err)
	}
	return found, nil
}

// ScanPrefix returns every entry whose key begins with prefix.
func (idx *Index) ScanPrefix(prefix chunkkey.Key) ([]Entry, error) {
	var entries []Entry
	err := idx.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		scanPrefix := prefixScanKey(prefix)
		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			item := it.Item()
			var e Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badgerindex: scanning prefix %s: %w", prefix, err)
	}
	return entries, nil
}

// DeletePrefix removes every metadata entry whose key begins with prefix,
// plus the table's wrapper-snapshot pointer.
func (idx *Index) DeletePrefix(prefix chunkkey.Key) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		scanPrefix := prefixScanKey(prefix)
		var toDelete [][]byte
		for it.Seek(scanPrefix); it.ValidForPrefix(scanPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			toDelete = append(toDelete, key)
		}
		it.Close()

		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return txn.Delete([]byte(wrapperPrefix + prefix.String()))
	})
}

// PutWrapperSnapshotPath records where a table's serialized wrapper
// internals live on disk.
func (idx *Index) PutWrapperSnapshotPath(tablePrefix chunkkey.Key, path string) error {
	return idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(wrapperPrefix+tablePrefix.String()), []byte(path))
	})
}

// WrapperSnapshotPath returns the path previously recorded by
// PutWrapperSnapshotPath, if any.
func (idx *Index) WrapperSnapshotPath(tablePrefix chunkkey.Key) (string, bool, error) {
	var path string
	found := false
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(wrapperPrefix + tablePrefix.String()))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			path = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, fmt.Errorf("badgerindex: wrapper snapshot path: %w", err)
	}
	return path, found, nil
}
