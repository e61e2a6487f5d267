package bolt

import (
	"context"
	"strings"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"

	bolt "go.etcd.io/bbolt"
)

// SelectorStore is the local memoized cache for resolved function
// signatures, schema selectors(selector PK, signature). It backs the
// lazy-with-memoization initialisation the signature-lookup client uses:
// remote lookups only happen on a cache miss.
type SelectorStore struct {
	db *DB
}

// Selectors returns the SelectorStore view of db.
func (d *DB) Selectors() *SelectorStore { return &SelectorStore{db: d} }

func (s *SelectorStore) Get(ctx context.Context, selector string) (string, bool, error) {
	selector = strings.ToLower(selector)

	var (
		found bool
		sig   string
	)
	err := s.db.inner.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(selectorsBucket)).Get([]byte(selector))
		if data == nil {
			return nil
		}
		found = true
		sig = string(data)
		return nil
	})
	if err != nil {
		return "", false, &errkind.PersistenceError{Target: "selectors/" + selector, Err: err}
	}
	return sig, found, nil
}

func (s *SelectorStore) Put(ctx context.Context, selector, signature string) error {
	selector = strings.ToLower(selector)
	err := s.db.inner.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(selectorsBucket)).Put([]byte(selector), []byte(signature))
	})
	if err != nil {
		return &errkind.PersistenceError{Target: "selectors/" + selector, Err: err}
	}
	return nil
}
