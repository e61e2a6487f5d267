package rpcfanout

import (
	"context"
	"encoding/json"
	"fmt"
)

// BlockNumber returns the current chain head, reduced across every
// endpoint via the highest-block policy. Per spec, the returned value is
// guaranteed to be >= every non-error endpoint's own answer.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	raw, err := c.Call(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}

	var v hexUint
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decoding eth_blockNumber result: %w", err)
	}
	return uint64(v), nil
}
