// Package addrextract heuristically scans calldata and event logs for
// 20-byte address-shaped payloads. ABI-aware decoding would need a schema
// per function; this catches the common ABI layouts without one. False
// positives are tolerated because downstream multicall lookups validate
// them at negligible cost.
package addrextract

import (
	"github.com/blocksentry/watchtower/internal/domain"

	"github.com/ethereum/go-ethereum/common"
)

// TransferSelector is the 4-byte selector of ERC20 transfer(address,uint256).
const TransferSelector = "0xa9059cbb"

// wordSize is the width of one ABI-encoded argument slot.
const wordSize = 32

// FromCalldata scans calldata in 32-byte chunks at two origin offsets —
// offset 0 and offset 4 (just after a would-be 4-byte selector) — and
// treats a chunk whose leading 12 bytes are zero as a candidate address if
// the trailing 20 bytes are not the zero address. Returns unique,
// lower-cased addresses.
func FromCalldata(calldata []byte) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(candidate []byte) {
		if !isZeroPadded(candidate) {
			return
		}
		addr := candidate[len(candidate)-20:]
		if !isValidAddress(addr) {
			return
		}
		lower := common.BytesToAddress(addr).Hex()
		lower = toLower(lower)
		if _, ok := seen[lower]; ok {
			return
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}

	scanFrom := func(offset int) {
		for i := offset; i+wordSize <= len(calldata); i += wordSize {
			add(calldata[i : i+wordSize])
		}
	}

	// Origin offset 1: immediately after the raw payload start (offset 0).
	scanFrom(0)
	// Origin offset 2: immediately after a 4-byte selector.
	if len(calldata) >= 4 {
		scanFrom(4)
	}

	return out
}

// FromLogs collects each log's emitting address, unique and lower-cased.
func FromLogs(logs []domain.Log) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range logs {
		lower := toLower(l.Address)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

// TransferRecipient returns the checksum-cased recipient address of an
// ERC20 transfer(address,uint256) call, or nil if calldata does not match
// that shape.
func TransferRecipient(calldata []byte) *string {
	if len(calldata) < 4+36 {
		return nil
	}
	if !hasSelector(calldata, TransferSelector) {
		return nil
	}

	arg := calldata[4 : 4+wordSize]
	if !isZeroPadded(arg) {
		return nil
	}
	addr := arg[len(arg)-20:]
	if !isValidAddress(addr) {
		return nil
	}

	checksum := common.BytesToAddress(addr).Hex()
	return &checksum
}

func hasSelector(calldata []byte, selectorHex string) bool {
	if len(calldata) < 4 {
		return false
	}
	return "0x"+common.Bytes2Hex(calldata[:4]) == selectorHex
}

func isZeroPadded(chunk []byte) bool {
	if len(chunk) != wordSize {
		return false
	}
	for _, b := range chunk[:12] {
		if b != 0 {
			return false
		}
	}
	return true
}

func isValidAddress(addr []byte) bool {
	if len(addr) != 20 {
		return false
	}
	// The zero address never denotes a real candidate.
	for _, b := range addr {
		if b != 0 {
			return true
		}
	}
	return false
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
