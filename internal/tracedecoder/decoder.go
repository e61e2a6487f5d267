// Package tracedecoder produces a TraceResult for a (transaction,
// watched-address) pair, either from calldata alone (fast, pre-receipt)
// or from a mined receipt plus balance delta (full, post-receipt).
package tracedecoder

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blocksentry/watchtower/internal/addrextract"
	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/decimal"
	"github.com/blocksentry/watchtower/internal/pkg/errkind"
	"github.com/blocksentry/watchtower/internal/pkg/evmrpc"
	"github.com/blocksentry/watchtower/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
)

const (
	receiptTimeout      = 30 * time.Second
	receiptPollInterval = 500 * time.Millisecond
	confirmationDepth   = 1
)

// Decoder implements C6's fast/full trace operations.
type Decoder struct {
	chain          Chain
	tokens         TokenResolver
	nativeDecimals uint8
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithNativeDecimals overrides the default 18-decimal native currency
// (ETH-like chains). Use for chains whose native asset uses a different
// precision.
func WithNativeDecimals(d uint8) Option {
	return func(dec *Decoder) { dec.nativeDecimals = d }
}

// New builds a Decoder.
func New(chain Chain, tokens TokenResolver, opts ...Option) *Decoder {
	d := &Decoder{chain: chain, tokens: tokens, nativeDecimals: 18}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func isValidAddress(addr string) bool {
	if !common.IsHexAddress(addr) {
		return false
	}
	return common.HexToAddress(addr) != (common.Address{})
}

// candidateAddresses merges calldata-derived, log-derived, `to`, and
// pair-underlying addresses, deduplicated and lower-cased.
func (d *Decoder) candidateAddresses(ctx context.Context, tx domain.Transaction, logs []domain.Log) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		addr = strings.ToLower(addr)
		if _, ok := seen[addr]; ok || addr == "" {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	for _, a := range addrextract.FromCalldata(tx.Calldata) {
		add(a)
	}
	for _, a := range addrextract.FromLogs(logs) {
		add(a)
	}
	if tx.To != nil && isValidAddress(*tx.To) {
		add(*tx.To)
	}

	pairUnderlyings, err := d.tokens.ExtractPairUnderlyings(ctx, out)
	if err != nil {
		logger.Warn(ctx, "extract-pair-underlyings failed", "error", err)
	} else {
		for _, a := range pairUnderlyings {
			add(a)
		}
	}

	return out
}

// Fast produces a pre-receipt TraceResult from calldata alone.
func (d *Decoder) Fast(ctx context.Context, tx domain.Transaction, watched string) (domain.TraceResult, error) {
	candidates := d.candidateAddresses(ctx, tx, nil)

	var (
		balance  string
		resolved map[string]string
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		balance = d.nativeBalanceAt(ctx, watched, "latest")
	}()
	go func() {
		defer wg.Done()
		var err error
		resolved, err = d.tokens.Lookup(ctx, candidates)
		if err != nil {
			logger.Warn(ctx, "token lookup failed in fast path", "error", err, "tx", tx.Hash)
		}
	}()
	wg.Wait()

	var transferAmount *string
	if len(resolved) == 1 {
		for addr := range resolved {
			transferAmount = d.tokens.DecodeTransferAmount(tx.Calldata, addr)
		}
	}

	result := domain.TraceResult{
		Status:           domain.TraceStatusUnknown,
		InteractedTokens: d.tokens.OrderTokens(candidates, resolved),
		PNL:              "0.0",
		Balance:          balance,
		Change:           domain.ChangeNone,
		TransferAmount:   transferAmount,
	}
	if tx.BlockNumber != nil {
		result.BlockNumber = tx.BlockNumber
	}
	return result, nil
}

// Full waits for the transaction's receipt and produces a post-receipt
// TraceResult with balance delta and confirmed status. On receipt
// failure or timeout it downgrades to Fast against a freshly refetched
// transaction.
func (d *Decoder) Full(ctx context.Context, tx domain.Transaction, watched string) (domain.TraceResult, error) {
	ctx, cancel := context.WithTimeout(ctx, receiptTimeout)
	defer cancel()

	receipt, err := d.awaitReceipt(ctx, tx.Hash)
	if err != nil {
		logger.Warn(ctx, "receipt wait failed, downgrading to fast", "tx", tx.Hash, "error", err)
		return d.downgradeToFast(ctx, tx, watched)
	}

	candidates := d.candidateAddresses(ctx, tx, receipt.Logs)

	var (
		delta    *big.Int
		resolved map[string]string
		wg       sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		delta = d.nativeBalanceDelta(ctx, watched, receipt.BlockNumber)
	}()
	go func() {
		defer wg.Done()
		var err error
		resolved, err = d.tokens.Lookup(ctx, candidates)
		if err != nil {
			logger.Warn(ctx, "token lookup failed in full path", "error", err, "tx", tx.Hash)
		}
	}()
	wg.Wait()

	change := domain.ChangeFlat
	if delta != nil {
		switch delta.Sign() {
		case 1:
			change = domain.ChangeUp
		case -1:
			change = domain.ChangeDown
		}
	}

	logCount := len(receipt.Logs)
	status := domain.TraceStatusFailure
	if receipt.Status {
		status = domain.TraceStatusSuccess
	}

	blockNumber := receipt.BlockNumber
	return domain.TraceResult{
		Status:               status,
		InteractedTokens:     d.tokens.OrderTokens(candidates, resolved),
		LogCount:             &logCount,
		BlockNumber:          &blockNumber,
		DeployedContractAddr: receipt.DeployedContractAddr,
		PNL:                  decimal.FormatSigned(delta, d.nativeDecimals, 3),
		Balance:              d.nativeBalanceAt(ctx, watched, "0x"+strconv.FormatUint(receipt.BlockNumber, 16)),
		Change:               change,
	}, nil
}

func (d *Decoder) downgradeToFast(ctx context.Context, tx domain.Transaction, watched string) (domain.TraceResult, error) {
	raw, err := d.chain.Call(ctx, "eth_getTransactionByHash", "0x"+tx.Hash)
	if err != nil {
		return domain.TraceResult{}, &errkind.ReceiptTimeoutError{TxHash: tx.Hash}
	}
	refetched, err := evmrpc.DecodeTransaction(raw)
	if err != nil || refetched == nil {
		refetched = &tx
	}
	return d.Fast(ctx, *refetched, watched)
}

// awaitReceipt polls for the receipt until it appears and the chain head
// has advanced confirmationDepth blocks past it, or ctx expires.
func (d *Decoder) awaitReceipt(ctx context.Context, txHash string) (*domain.Receipt, error) {
	for {
		raw, err := d.chain.Call(ctx, "eth_getTransactionReceipt", "0x"+txHash)
		if err == nil {
			receipt, decodeErr := evmrpc.DecodeReceipt(raw)
			if decodeErr != nil {
				return nil, decodeErr
			}
			if receipt != nil {
				if confirmed, cerr := d.isConfirmed(ctx, receipt.BlockNumber); cerr == nil && confirmed {
					return receipt, nil
				}
			}
		}

		select {
		case <-ctx.Done():
			return nil, &errkind.ReceiptTimeoutError{TxHash: txHash}
		case <-time.After(receiptPollInterval):
		}
	}
}

func (d *Decoder) isConfirmed(ctx context.Context, receiptBlock uint64) (bool, error) {
	head, err := d.chain.BlockNumber(ctx)
	if err != nil {
		return false, err
	}
	return head >= receiptBlock+confirmationDepth, nil
}

func (d *Decoder) nativeBalanceAt(ctx context.Context, address, blockTag string) string {
	v, err := d.fetchBalance(ctx, address, blockTag)
	if err != nil {
		logger.Warn(ctx, "eth_getBalance failed", "address", address, "error", err)
		return "0.0"
	}
	return decimal.FormatSigned(v, d.nativeDecimals, 2)
}

func (d *Decoder) nativeBalanceDelta(ctx context.Context, address string, block uint64) *big.Int {
	current, err := d.fetchBalance(ctx, address, "0x"+strconv.FormatUint(block, 16))
	if err != nil {
		logger.Warn(ctx, "eth_getBalance failed for current block", "address", address, "error", err)
		return big.NewInt(0)
	}
	if block == 0 {
		return current
	}
	previous, err := d.fetchBalance(ctx, address, "0x"+strconv.FormatUint(block-1, 16))
	if err != nil {
		logger.Warn(ctx, "eth_getBalance failed for previous block", "address", address, "error", err)
		return big.NewInt(0)
	}
	return new(big.Int).Sub(current, previous)
}

func (d *Decoder) fetchBalance(ctx context.Context, address, blockTag string) (*big.Int, error) {
	raw, err := d.chain.Call(ctx, "eth_getBalance", address, blockTag)
	if err != nil {
		return nil, err
	}
	var hexStr string
	if err := json.Unmarshal(raw, &hexStr); err != nil {
		return nil, fmt.Errorf("decoding eth_getBalance result: %w", err)
	}
	return evmrpc.ParseHexBigInt(hexStr)
}
