package tokenmeta

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/blocksentry/watchtower/internal/addrextract"
	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/multicall"
	"github.com/blocksentry/watchtower/internal/pkg/decimal"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tryAggregateOutputsABI mirrors multicall's embedded output shape so tests
// can build synthetic eth_call responses without reaching into that
// package's unexported ABI value.
var tryAggregateOutputsABI = mustParseOutputsABI()

func mustParseOutputsABI() abi.Arguments {
	tupleType, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "success", Type: "bool"},
		{Name: "returnData", Type: "bytes"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: tupleType}}
}

type resultTuple struct {
	Success    bool
	ReturnData []byte
}

func encodeAggregateOutput(t *testing.T, results ...resultTuple) json.RawMessage {
	t.Helper()
	packed, err := tryAggregateOutputsABI.Pack(results)
	require.NoError(t, err)
	raw, err := json.Marshal("0x" + common.Bytes2Hex(packed))
	require.NoError(t, err)
	return raw
}

func encodeString(t *testing.T, s string) []byte {
	t.Helper()
	strType, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: strType}}.Pack(s)
	require.NoError(t, err)
	return packed
}

func encodeUint8(t *testing.T, v uint8) []byte {
	t.Helper()
	u8Type, _ := abi.NewType("uint8", "", nil)
	packed, err := abi.Arguments{{Type: u8Type}}.Pack(v)
	require.NoError(t, err)
	return packed
}

// routingCaller dispatches based on which 4-byte selector is embedded in
// the outer eth_call request, letting a single fake stand in for both the
// symbol() and decimals() batches issued concurrently by fetchSymbolsAndDecimals.
type routingCaller struct {
	mu    sync.Mutex
	byHex map[string]json.RawMessage // selector hex (no 0x) -> response
}

func (r *routingCaller) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	callParams, _ := params[0].(map[string]string)
	data := strings.ToLower(callParams["data"])
	for selector, resp := range r.byHex {
		if strings.Contains(data, selector) {
			return resp, nil
		}
	}
	return json.Marshal("0x")
}

type memStore struct {
	mu   sync.Mutex
	data map[string]domain.TokenRecord
}

func newMemStore() *memStore { return &memStore{data: make(map[string]domain.TokenRecord)} }

func (s *memStore) Get(ctx context.Context, address string) (domain.TokenRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data[address]
	return rec, ok, nil
}

func (s *memStore) Put(ctx context.Context, record domain.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[strings.ToLower(record.Address)] = record
	return nil
}

func TestLookup_ResolvesAndCaches(t *testing.T) {
	tokenAddr := "0x000000000000000000000000000000000000aa"

	caller := &routingCaller{byHex: map[string]json.RawMessage{
		strings.TrimPrefix(symbolSelector, "0x"):   encodeAggregateOutput(t, resultTuple{Success: true, ReturnData: encodeString(t, "USDX")}),
		strings.TrimPrefix(decimalsSelector, "0x"): encodeAggregateOutput(t, resultTuple{Success: true, ReturnData: encodeUint8(t, 6)}),
	}}
	bundler := multicall.New(caller, common.HexToAddress("0x000000000000000000000000000000000000bb"))
	store := newMemStore()
	resolver := New(store, bundler, []string{"WETH"})

	resolved, err := resolver.Lookup(t.Context(), []string{tokenAddr})

	require.NoError(t, err)
	assert.Equal(t, "USDX", resolved[tokenAddr])

	rec, ok, err := store.Get(t.Context(), tokenAddr)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint8(6), rec.Decimals)

	// Second lookup should hit the in-memory cache, not the store or chain.
	caller.byHex = nil
	resolved2, err := resolver.Lookup(t.Context(), []string{tokenAddr})
	require.NoError(t, err)
	assert.Equal(t, "USDX", resolved2[tokenAddr])
}

func TestLookup_SkipsInvalidRecords(t *testing.T) {
	tokenAddr := "0x000000000000000000000000000000000000cc"

	caller := &routingCaller{byHex: map[string]json.RawMessage{
		strings.TrimPrefix(symbolSelector, "0x"):   encodeAggregateOutput(t, resultTuple{Success: true, ReturnData: encodeString(t, "")}),
		strings.TrimPrefix(decimalsSelector, "0x"): encodeAggregateOutput(t, resultTuple{Success: true, ReturnData: encodeUint8(t, 0)}),
	}}
	bundler := multicall.New(caller, common.HexToAddress("0x000000000000000000000000000000000000bb"))
	resolver := New(newMemStore(), bundler, nil)

	resolved, err := resolver.Lookup(t.Context(), []string{tokenAddr})

	require.NoError(t, err)
	_, ok := resolved[tokenAddr]
	assert.False(t, ok, "an empty symbol and zero decimals must not resolve")
}

func TestOrderTokens_BaseTokensSortLast(t *testing.T) {
	bundler := multicall.New(&routingCaller{}, common.HexToAddress("0x1"))
	resolver := New(newMemStore(), bundler, []string{"WETH"})

	resolved := map[string]string{
		"0xaaa": "PEPE",
		"0xbbb": "WETH",
	}
	ordered := resolver.OrderTokens([]string{"0xbbb", "0xaaa"}, resolved)

	require.Len(t, ordered, 2)
	assert.Equal(t, "PEPE", ordered[0].Symbol)
	assert.False(t, ordered[0].IsBase)
	assert.Equal(t, "WETH", ordered[1].Symbol)
	assert.True(t, ordered[1].IsBase)
}

func transferCalldata(t *testing.T, recipient string, amount *big.Int) []byte {
	t.Helper()
	selector, err := hex.DecodeString(strings.TrimPrefix(addrextract.TransferSelector, "0x"))
	require.NoError(t, err)

	calldata := make([]byte, 4+64)
	copy(calldata, selector)
	copy(calldata[4+12:4+32], common.HexToAddress(recipient).Bytes())
	amount.FillBytes(calldata[4+32 : 4+64])
	return calldata
}

func TestDecodeTransferAmount_WholeNumberTransferKeepsDecimalPoint(t *testing.T) {
	tokenAddr := "0x000000000000000000000000000000000000dd"
	recipient := "0x000000000000000000000000000000000000ee"

	caller := &routingCaller{byHex: map[string]json.RawMessage{
		strings.TrimPrefix(symbolSelector, "0x"):   encodeAggregateOutput(t, resultTuple{Success: true, ReturnData: encodeString(t, "USDX")}),
		strings.TrimPrefix(decimalsSelector, "0x"): encodeAggregateOutput(t, resultTuple{Success: true, ReturnData: encodeUint8(t, 18)}),
	}}
	bundler := multicall.New(caller, common.HexToAddress("0x000000000000000000000000000000000000bb"))
	resolver := New(newMemStore(), bundler, nil)

	_, err := resolver.Lookup(t.Context(), []string{tokenAddr})
	require.NoError(t, err)

	amount := new(big.Int).Mul(big.NewInt(100), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	calldata := transferCalldata(t, recipient, amount)

	formatted := resolver.DecodeTransferAmount(calldata, tokenAddr)

	require.NotNil(t, formatted)
	assert.Equal(t, "100.0", *formatted)
}

func TestDecodeTransferAmount_UnknownTokenReturnsNil(t *testing.T) {
	bundler := multicall.New(&routingCaller{}, common.HexToAddress("0x1"))
	resolver := New(newMemStore(), bundler, nil)

	calldata := transferCalldata(t, "0x000000000000000000000000000000000000ee", big.NewInt(1))

	assert.Nil(t, resolver.DecodeTransferAmount(calldata, "0x000000000000000000000000000000000000ff"))
}

func TestFormatScaled(t *testing.T) {
	cases := []struct {
		raw      string
		decimals uint8
		want     string
	}{
		{"1000000", 6, "1"},
		{"1500000", 6, "1.5"},
		{"1", 18, "0"},
		{"0", 18, "0"},
	}
	for _, c := range cases {
		v, ok := new(big.Int).SetString(c.raw, 10)
		require.True(t, ok)
		assert.Equal(t, c.want, decimal.FormatScaled(v, c.decimals, 2))
	}
}
