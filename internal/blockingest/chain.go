package blockingest

import (
	"context"
	"encoding/json"
)

// Chain is the subset of rpcfanout.Client the ingestor needs: the
// highest-block-reduced head height, and a generic call for
// eth_getBlockByNumber.
type Chain interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}
