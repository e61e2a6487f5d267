package bolt

import (
	"context"
	"strconv"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"

	bolt "go.etcd.io/bbolt"
)

var progressKey = []byte("high-water-mark")

// ProgressStore mirrors the block ingestor's high-water mark into a
// single key of the embedded database, giving atomic read-modify-write
// access alongside the tokens/ens/selectors caches that already live in
// this file. The plain ASCII file in internal/infra/storage/hwmfile
// remains the authoritative, durable copy read on startup; this mirror
// exists for callers that want the value without touching the
// filesystem directly.
type ProgressStore struct {
	db *DB
}

// Progress returns the ProgressStore view of db.
func (d *DB) Progress() *ProgressStore { return &ProgressStore{db: d} }

// Load reads the mirrored height. A missing key is reported as
// (0, false, nil).
func (s *ProgressStore) Load(ctx context.Context) (uint64, bool, error) {
	var raw []byte
	err := s.db.inner.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(progressBucket)).Get(progressKey)
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return 0, false, &errkind.PersistenceError{Target: "progress", Err: err}
	}
	if raw == nil {
		return 0, false, nil
	}

	height, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, false, &errkind.PersistenceError{Target: "progress", Err: err}
	}
	return height, true, nil
}

// Save overwrites the mirrored height.
func (s *ProgressStore) Save(ctx context.Context, height uint64) error {
	err := s.db.inner.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(progressBucket)).Put(progressKey, []byte(strconv.FormatUint(height, 10)))
	})
	if err != nil {
		return &errkind.PersistenceError{Target: "progress", Err: err}
	}
	return nil
}
