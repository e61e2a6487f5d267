package tokenmeta

import (
	"context"

	"github.com/blocksentry/watchtower/internal/domain"
)

// Store persists TokenRecord entries durably. It is write-once per address:
// callers never overwrite an existing record. internal/infra/storage/bolt
// provides the production implementation backed by the embedded "tokens"
// bucket.
type Store interface {
	Get(ctx context.Context, address string) (domain.TokenRecord, bool, error)
	Put(ctx context.Context, record domain.TokenRecord) error
}
