// Package multicall aggregates many read-only contract calls into a single
// tryAggregate call against a configured Multicall2-compatible aggregator
// contract, and decodes the batched (success, returnData) list back out in
// input order.
package multicall

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const tryAggregateABI = `[{
	"name": "tryAggregate",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "requireSuccess", "type": "bool"},
		{"name": "calls", "type": "tuple[]", "components": [
			{"name": "target", "type": "address"},
			{"name": "callData", "type": "bytes"}
		]}
	],
	"outputs": [
		{"name": "returnData", "type": "tuple[]", "components": [
			{"name": "success", "type": "bool"},
			{"name": "returnData", "type": "bytes"}
		]}
	]
}]`

var multicallABI abi.ABI

func init() {
	var err error
	multicallABI, err = abi.JSON(strings.NewReader(tryAggregateABI))
	if err != nil {
		panic("multicall: invalid embedded ABI: " + err.Error())
	}
}

// Call is one read-only invocation to bundle: target contract and encoded
// calldata.
type Call struct {
	Target   common.Address
	Calldata []byte
}

// Result is the outcome of one bundled Call, in the same order as the
// input.
type Result struct {
	Success    bool
	ReturnData []byte
}

// callTuple mirrors the Solidity Call struct field-for-field so the
// go-ethereum abi encoder can pack it positionally.
type callTuple struct {
	Target   common.Address
	CallData []byte
}

// resultTuple mirrors the Solidity Result struct for decoding.
type resultTuple struct {
	Success    bool
	ReturnData []byte
}

// EthCaller performs a single eth_call against the chain, returning the raw
// return data. rpcfanout.Client satisfies this.
type EthCaller interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// Bundler batches calls through a configured aggregator contract address.
type Bundler struct {
	caller            EthCaller
	aggregatorAddress common.Address
}

// New builds a Bundler targeting the given aggregator contract address.
func New(caller EthCaller, aggregatorAddress common.Address) *Bundler {
	return &Bundler{caller: caller, aggregatorAddress: aggregatorAddress}
}

// Aggregate encodes calls into one tryAggregate invocation, executes it,
// and decodes the per-call (success, returnData) results in input order.
// An empty input returns an empty output without touching the network.
// There is no retry: any encode, RPC, or decode error is returned as-is.
func (b *Bundler) Aggregate(ctx context.Context, calls []Call) ([]Result, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	tuples := make([]callTuple, len(calls))
	for i, c := range calls {
		tuples[i] = callTuple{Target: c.Target, CallData: c.Calldata}
	}

	packed, err := multicallABI.Pack("tryAggregate", false, tuples)
	if err != nil {
		return nil, err
	}

	callParams := map[string]string{
		"to":   b.aggregatorAddress.Hex(),
		"data": "0x" + common.Bytes2Hex(packed),
	}

	raw, err := b.caller.Call(ctx, "eth_call", callParams, "latest")
	if err != nil {
		return nil, err
	}

	var hexData string
	if err := json.Unmarshal(raw, &hexData); err != nil {
		return nil, err
	}

	outputs, err := multicallABI.Unpack("tryAggregate", common.FromHex(hexData))
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errUnexpectedOutputShape
	}

	rawResults, ok := outputs[0].([]struct {
		Success    bool
		ReturnData []byte
	})
	if !ok {
		return decodeViaFallback(outputs[0])
	}

	results := make([]Result, len(rawResults))
	for i, r := range rawResults {
		results[i] = Result{Success: r.Success, ReturnData: r.ReturnData}
	}
	return results, nil
}
