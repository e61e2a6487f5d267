package tracedecoder

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/blocksentry/watchtower/internal/domain"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChain struct {
	blockNumber uint64
	balances    map[string]map[string]string // address -> blockTag -> hex value
	receipt     json.RawMessage
	receiptErr  error
	tx          json.RawMessage
}

func (f *fakeChain) BlockNumber(ctx context.Context) (uint64, error) {
	return f.blockNumber, nil
}

func (f *fakeChain) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case "eth_getBalance":
		address, _ := params[0].(string)
		tag, _ := params[1].(string)
		v := "0x0"
		if byTag, ok := f.balances[address]; ok {
			if hex, ok := byTag[tag]; ok {
				v = hex
			}
		}
		return json.Marshal(v)
	case "eth_getTransactionReceipt":
		if f.receiptErr != nil {
			return nil, f.receiptErr
		}
		return f.receipt, nil
	case "eth_getTransactionByHash":
		return f.tx, nil
	default:
		return nil, fmt.Errorf("unexpected method %s", method)
	}
}

type fakeResolver struct {
	resolved map[string]string
}

func (f *fakeResolver) Lookup(ctx context.Context, addresses []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, a := range addresses {
		if s, ok := f.resolved[a]; ok {
			out[a] = s
		}
	}
	return out, nil
}

func (f *fakeResolver) DecodeTransferAmount(calldata []byte, address string) *string {
	if len(calldata) < 4 {
		return nil
	}
	if fmt.Sprintf("0x%x", calldata[:4]) != "0xa9059cbb" {
		return nil
	}
	amt := "100.00"
	return &amt
}

func (f *fakeResolver) ExtractPairUnderlyings(ctx context.Context, addresses []string) ([]string, error) {
	return nil, nil
}

func (f *fakeResolver) OrderTokens(addresses []string, resolved map[string]string) []domain.InteractedToken {
	var out []domain.InteractedToken
	for _, a := range addresses {
		if s, ok := resolved[a]; ok {
			out = append(out, domain.InteractedToken{Address: a, Symbol: s})
		}
	}
	return out
}

func transferCalldata(recipient string, amount uint64) []byte {
	data := []byte{0xa9, 0x05, 0x9c, 0xbb}
	arg := make([]byte, 32)
	copy(arg[12:], common.HexToAddress(recipient).Bytes())
	data = append(data, arg...)
	amountArg := make([]byte, 32)
	amountArg[31] = byte(amount)
	data = append(data, amountArg...)
	return data
}

func TestFast_ResolvesSingleTransferAmount(t *testing.T) {
	tokenAddr := "0x00000000000000000000000000000000000000aa"
	chain := &fakeChain{blockNumber: 100, balances: map[string]map[string]string{
		"0xwatched": {"latest": "0xde0b6b3a7640000"}, // 1 ETH
	}}
	resolver := &fakeResolver{resolved: map[string]string{tokenAddr: "USDX"}}
	calldata := transferCalldata(tokenAddr, 100)

	decoder := New(chain, resolver)
	tx := domain.Transaction{Hash: "abc", Calldata: calldata}

	result, err := decoder.Fast(t.Context(), tx, "0xwatched")

	require.NoError(t, err)
	assert.Equal(t, domain.TraceStatusUnknown, result.Status)
	assert.Equal(t, "0.0", result.PNL)
	require.NotNil(t, result.TransferAmount)
	assert.Equal(t, "100.00", *result.TransferAmount)
}

func TestFull_DowngradesToFastOnReceiptTimeout(t *testing.T) {
	chain := &fakeChain{
		blockNumber: 100,
		receiptErr:  fmt.Errorf("node unavailable"),
		tx:          mustMarshalNullTx(t),
	}
	resolver := &fakeResolver{}
	decoder := New(chain, resolver, WithNativeDecimals(18))

	tx := domain.Transaction{Hash: "abc", Calldata: []byte{0xa9, 0x05, 0x9c, 0xbb}}
	ctx, cancel := context.WithTimeout(t.Context(), 0) // force immediate timeout in awaitReceipt loop
	defer cancel()

	result, err := decoder.Full(ctx, tx, "0xwatched")

	require.NoError(t, err)
	assert.Equal(t, domain.TraceStatusUnknown, result.Status, "downgraded result must look like a fast decode")
}

func mustMarshalNullTx(t *testing.T) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(nil)
	require.NoError(t, err)
	return raw
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, isValidAddress("0x000000000000000000000000000000000000aa"))
	assert.False(t, isValidAddress("not-an-address"))
	assert.False(t, isValidAddress("0x0000000000000000000000000000000000000000"))
}
