package bolt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/errkind"

	bolt "go.etcd.io/bbolt"
)

// TokenStore implements tokenmeta.Store against the "tokens" bucket,
// schema tokens(address PK, symbol, decimals).
type TokenStore struct {
	db *DB
}

// Tokens returns the TokenStore view of db.
func (d *DB) Tokens() *TokenStore { return &TokenStore{db: d} }

type tokenRecordJSON struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

func (s *TokenStore) Get(ctx context.Context, address string) (domain.TokenRecord, bool, error) {
	address = strings.ToLower(address)

	var (
		found bool
		rec   tokenRecordJSON
	)
	err := s.db.inner.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(tokensBucket)).Get([]byte(address))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return domain.TokenRecord{}, false, &errkind.PersistenceError{Target: "tokens/" + address, Err: err}
	}
	if !found {
		return domain.TokenRecord{}, false, nil
	}
	return domain.TokenRecord{Address: address, Symbol: rec.Symbol, Decimals: rec.Decimals}, true, nil
}

// Put persists record. It never overwrites: an address already present is
// left untouched, honoring the write-once invariant even if a caller
// calls Put twice for the same address.
func (s *TokenStore) Put(ctx context.Context, record domain.TokenRecord) error {
	address := strings.ToLower(record.Address)

	err := s.db.inner.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(tokensBucket))
		if bucket.Get([]byte(address)) != nil {
			return nil
		}
		data, err := json.Marshal(tokenRecordJSON{Symbol: record.Symbol, Decimals: record.Decimals})
		if err != nil {
			return err
		}
		return bucket.Put([]byte(address), data)
	})
	if err != nil {
		return &errkind.PersistenceError{Target: "tokens/" + address, Err: err}
	}
	return nil
}
