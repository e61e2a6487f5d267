package tracedecoder

import (
	"context"
	"encoding/json"

	"github.com/blocksentry/watchtower/internal/domain"
)

// Chain is the subset of rpcfanout.Client the trace decoder needs: the
// consensus head height, and a generic call for receipts/balances/
// transaction lookups.
type Chain interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// TokenResolver is the C3 surface the decoder consumes.
type TokenResolver interface {
	Lookup(ctx context.Context, addresses []string) (map[string]string, error)
	DecodeTransferAmount(calldata []byte, address string) *string
	ExtractPairUnderlyings(ctx context.Context, addresses []string) ([]string, error)
	OrderTokens(addresses []string, resolved map[string]string) []domain.InteractedToken
}
