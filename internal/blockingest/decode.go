package blockingest

import (
	"context"
	"strconv"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/evmrpc"
)

// fetchBlock retrieves block height with full transaction objects and
// converts it to the normalized domain.Block. A nil block with nil error
// means the node has no such block yet.
func fetchBlock(ctx context.Context, chain Chain, height uint64) (*domain.Block, error) {
	raw, err := chain.Call(ctx, "eth_getBlockByNumber", "0x"+strconv.FormatUint(height, 16), true)
	if err != nil {
		return nil, err
	}
	return evmrpc.DecodeBlock(raw)
}
