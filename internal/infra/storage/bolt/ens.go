package bolt

import (
	"context"
	"strings"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"

	bolt "go.etcd.io/bbolt"
)

// EnsStore implements a lower-cased-address -> display-name lookup
// against the "ens" bucket, schema ens(address PK, name). The whole
// table is small enough to load entirely into memory at startup, per
// the external interface's contract.
type EnsStore struct {
	db *DB
}

// Ens returns the EnsStore view of db.
func (d *DB) Ens() *EnsStore { return &EnsStore{db: d} }

// LoadAll returns the entire table as a map, for eager in-memory caching.
func (s *EnsStore) LoadAll(ctx context.Context) (map[string]string, error) {
	names := make(map[string]string)
	err := s.db.inner.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ensBucket)).ForEach(func(k, v []byte) error {
			names[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, &errkind.PersistenceError{Target: "ens", Err: err}
	}
	return names, nil
}

// Set upserts a single address -> name mapping.
func (s *EnsStore) Set(ctx context.Context, address, name string) error {
	address = strings.ToLower(address)
	err := s.db.inner.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ensBucket)).Put([]byte(address), []byte(name))
	})
	if err != nil {
		return &errkind.PersistenceError{Target: "ens/" + address, Err: err}
	}
	return nil
}

// NameTable is an eagerly-loaded, read-only snapshot of the ens table,
// satisfying txrouter.NameTable. It never refreshes: address->name
// mappings are seeded once at startup and change rarely enough that a
// process restart is an acceptable way to pick up new ones.
type NameTable struct {
	names map[string]string
}

// LoadNameTable reads the entire ens table into memory once.
func LoadNameTable(ctx context.Context, s *EnsStore) (*NameTable, error) {
	names, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return &NameTable{names: names}, nil
}

// All returns the loaded address->name map.
func (t *NameTable) All() map[string]string {
	return t.names
}
