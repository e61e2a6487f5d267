// Package tokenmeta resolves ERC20 contract addresses to (symbol, decimals)
// pairs, caching only positive results so a freshly deployed token can
// still resolve the next time it is seen.
package tokenmeta

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/blocksentry/watchtower/internal/addrextract"
	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/multicall"
	"github.com/blocksentry/watchtower/internal/pkg/decimal"
	"github.com/blocksentry/watchtower/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const (
	symbolSelector   = "0x95d89b41"
	decimalsSelector = "0x313ce567"
	token0Selector   = "0x0dfe1681"
	token1Selector   = "0xd21220a7"
)

var (
	stringType, _ = abi.NewType("string", "", nil)
	uint8Type, _  = abi.NewType("uint8", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
)

// Resolver implements the token metadata lookups of C3, backed by a
// positive-only, write-once Store and a hot in-memory front cache.
type Resolver struct {
	store      Store
	bundler    *multicall.Bundler
	baseTokens map[string]struct{} // lower-cased symbols treated as base tokens

	mu    sync.RWMutex
	cache map[string]domain.TokenRecord // lower-case address -> record
}

// New builds a Resolver. baseTokenSymbols names the symbols (case
// insensitive) that should sort last in OrderTokens.
func New(store Store, bundler *multicall.Bundler, baseTokenSymbols []string) *Resolver {
	base := make(map[string]struct{}, len(baseTokenSymbols))
	for _, s := range baseTokenSymbols {
		base[strings.ToLower(s)] = struct{}{}
	}
	return &Resolver{
		store:      store,
		bundler:    bundler,
		baseTokens: base,
		cache:      make(map[string]domain.TokenRecord),
	}
}

func (r *Resolver) cached(address string) (domain.TokenRecord, bool) {
	r.mu.RLock()
	rec, ok := r.cache[address]
	r.mu.RUnlock()
	return rec, ok
}

// Lookup partitions addresses into cache hits and misses, batches the
// misses through two parallel multicall requests (symbol(), decimals()),
// and persists only entries whose decoded symbol is non-empty (after trim)
// and decimals > 0. The returned map contains only successfully resolved
// entries.
func (r *Resolver) Lookup(ctx context.Context, addresses []string) (map[string]string, error) {
	result := make(map[string]string, len(addresses))

	var misses []string
	seen := make(map[string]struct{})
	for _, raw := range addresses {
		addr := strings.ToLower(raw)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		if rec, ok := r.cached(addr); ok {
			result[addr] = rec.Symbol
			continue
		}
		if rec, ok, err := r.store.Get(ctx, addr); err == nil && ok {
			r.mu.Lock()
			r.cache[addr] = rec
			r.mu.Unlock()
			result[addr] = rec.Symbol
			continue
		}
		misses = append(misses, addr)
	}

	if len(misses) == 0 {
		return result, nil
	}

	symbols, decimals := r.fetchSymbolsAndDecimals(ctx, misses)
	for _, addr := range misses {
		symbol, hasSymbol := symbols[addr]
		dec, hasDec := decimals[addr]
		if !hasSymbol || !hasDec {
			continue
		}

		symbol = strings.TrimSpace(symbol)
		rec := domain.TokenRecord{Address: addr, Symbol: symbol, Decimals: dec}
		if !rec.Valid() {
			continue
		}

		if err := r.store.Put(ctx, rec); err != nil {
			logger.Warn(ctx, "failed to persist token record", "address", addr, "error", err)
		}

		r.mu.Lock()
		r.cache[addr] = rec
		r.mu.Unlock()
		result[addr] = rec.Symbol
	}

	return result, nil
}

// fetchSymbolsAndDecimals issues the two parallel multicall batches and
// decodes their results. A per-address decode error simply drops that
// address; it may be re-fetched on a later sighting.
func (r *Resolver) fetchSymbolsAndDecimals(ctx context.Context, addresses []string) (map[string]string, map[string]uint8) {
	symbols := make(map[string]string)
	decimals := make(map[string]uint8)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		results, err := r.bundler.Aggregate(ctx, callsFor(addresses, symbolSelector))
		if err != nil {
			logger.Warn(ctx, "symbol() batch failed", "error", err)
			return
		}
		for i, res := range results {
			if !res.Success {
				continue
			}
			s, err := decodeString(res.ReturnData)
			if err != nil {
				continue
			}
			symbols[addresses[i]] = s
		}
	}()

	go func() {
		defer wg.Done()
		results, err := r.bundler.Aggregate(ctx, callsFor(addresses, decimalsSelector))
		if err != nil {
			logger.Warn(ctx, "decimals() batch failed", "error", err)
			return
		}
		for i, res := range results {
			if !res.Success {
				continue
			}
			d, err := decodeUint8(res.ReturnData)
			if err != nil {
				continue
			}
			decimals[addresses[i]] = d
		}
	}()

	wg.Wait()
	return symbols, decimals
}

// ExtractPairUnderlyings bundles token0()/token1() against every candidate
// address and returns the successfully decoded 20-byte addresses,
// de-duplicated in encounter order.
func (r *Resolver) ExtractPairUnderlyings(ctx context.Context, addresses []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	calls := append(callsFor(addresses, token0Selector), callsFor(addresses, token1Selector)...)
	results, err := r.bundler.Aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []string
	for _, res := range results {
		if !res.Success {
			continue
		}
		addr, err := decodeAddress(res.ReturnData)
		if err != nil {
			continue
		}
		lower := strings.ToLower(addr)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out, nil
}

// DecodeTransferAmount decodes the amount field of an ERC20
// transfer(address,uint256) calldata, scaling by the cached decimals for
// address and rounding to two fractional digits. Returns nil if calldata
// does not match the transfer shape or decimals are unknown.
func (r *Resolver) DecodeTransferAmount(calldata []byte, address string) *string {
	if len(calldata) < 4+64 {
		return nil
	}
	if "0x"+common.Bytes2Hex(calldata[:4]) != addrextract.TransferSelector {
		return nil
	}

	rec, ok := r.cached(strings.ToLower(address))
	if !ok {
		return nil
	}

	amount := new(big.Int).SetBytes(calldata[4+32 : 4+64])
	formatted := decimal.FormatSigned(amount, rec.Decimals, 2)
	return &formatted
}

// OrderTokens builds the insertion-ordered InteractedToken list C6 needs,
// placing base tokens last.
func (r *Resolver) OrderTokens(addresses []string, resolved map[string]string) []domain.InteractedToken {
	var normal, base []domain.InteractedToken
	for _, addr := range addresses {
		symbol, ok := resolved[strings.ToLower(addr)]
		if !ok {
			continue
		}
		isBase := r.isBaseToken(symbol)
		entry := domain.InteractedToken{Address: strings.ToLower(addr), Symbol: symbol, IsBase: isBase}
		if isBase {
			base = append(base, entry)
		} else {
			normal = append(normal, entry)
		}
	}
	return append(normal, base...)
}

func (r *Resolver) isBaseToken(symbol string) bool {
	_, ok := r.baseTokens[strings.ToLower(symbol)]
	return ok
}

func callsFor(addresses []string, selectorHex string) []multicall.Call {
	calldata := common.FromHex(selectorHex)
	calls := make([]multicall.Call, len(addresses))
	for i, addr := range addresses {
		calls[i] = multicall.Call{Target: common.HexToAddress(addr), Calldata: calldata}
	}
	return calls
}

func decodeString(data []byte) (string, error) {
	out, err := abi.Arguments{{Type: stringType}}.Unpack(data)
	if err != nil || len(out) == 0 {
		return "", err
	}
	s, _ := out[0].(string)
	return s, nil
}

func decodeUint8(data []byte) (uint8, error) {
	out, err := abi.Arguments{{Type: uint8Type}}.Unpack(data)
	if err != nil || len(out) == 0 {
		return 0, err
	}
	v, _ := out[0].(uint8)
	return v, nil
}

func decodeAddress(data []byte) (string, error) {
	out, err := abi.Arguments{{Type: addressType}}.Unpack(data)
	if err != nil || len(out) == 0 {
		return "", err
	}
	addr, _ := out[0].(common.Address)
	return addr.Hex(), nil
}
