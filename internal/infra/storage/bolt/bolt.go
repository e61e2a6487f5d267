// Package bolt is the embedded local database backing three of the
// system's caches (token metadata, address-to-name (ENS-like) lookups,
// and resolved function signatures) plus a mirror of the block ingestor's
// high-water mark. One on-disk file, one bucket per schema; token records
// are stored as JSON, the other values as plain strings.
package bolt

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	tokensBucket    = "tokens"
	ensBucket       = "ens"
	selectorsBucket = "selectors"
	progressBucket  = "progress"
)

// DB wraps a single bbolt file holding all four buckets.
type DB struct {
	inner *bolt.DB
}

// Open creates the parent directory if needed and opens (or creates) the
// bbolt file at path, ensuring all four buckets exist.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	inner, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening embedded database: %w", err)
	}

	db := &DB{inner: inner}
	if err := db.init(); err != nil {
		inner.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) init() error {
	return d.inner.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{tokensBucket, ensBucket, selectorsBucket, progressBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close releases the underlying file lock.
func (d *DB) Close() error {
	return d.inner.Close()
}
