// Package render turns a decoded transaction into chat-ready text plus an
// optional grid of inline buttons. It is a pure formatting layer: given the
// same watched address, transaction, trace result, resolved signature, and
// name table, Render always produces the same bytes.
package render

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/decimal"

	"github.com/ethereum/go-ethereum/common"
)

// ButtonTemplate is one configured inline-button row entry; URLTemplate may
// contain the literal placeholder "$ADDRESS$", substituted with a token
// address at render time.
type ButtonTemplate struct {
	Text        string
	URLTemplate string
}

const addressPlaceholder = "$ADDRESS$"

// NamePlaceholder is left verbatim in rendered text for the delivery stage
// to substitute with the per-watcher display name.
const NamePlaceholder = "$NAME$"

// Renderer holds the static, chain-level configuration Render needs beyond
// its per-call arguments.
type Renderer struct {
	chainLabel      string
	nativeSymbol    string
	nativeDecimals  uint8
	explorerBaseURL string
	buttonRows      [][]ButtonTemplate
}

// New builds a Renderer.
func New(chainLabel, nativeSymbol string, nativeDecimals uint8, explorerBaseURL string, buttonRows [][]ButtonTemplate) *Renderer {
	return &Renderer{
		chainLabel:      chainLabel,
		nativeSymbol:    nativeSymbol,
		nativeDecimals:  nativeDecimals,
		explorerBaseURL: explorerBaseURL,
		buttonRows:      buttonRows,
	}
}

// Render formats tx/trace into a domain.RenderedMessage. names maps
// lower-cased address to a display name (the ENS-like local mapping);
// signature is the optionally-resolved function signature, nil if unknown.
func (r *Renderer) Render(watched string, tx domain.Transaction, trace domain.TraceResult, signature *string, names map[string]string) domain.RenderedMessage {
	watched = strings.ToLower(watched)

	var b strings.Builder
	fmt.Fprintf(&b, "%s%s %s\n", statusGlyph(trace.Status), directionIcon(watched, tx, trace), NamePlaceholder)
	fmt.Fprintf(&b, "%s · Block %s\n", r.chainLabel, blockLabel(trace.BlockNumber))
	fmt.Fprintf(&b, "From: %s\n", addressLabel(tx.From, watched, names))
	fmt.Fprintf(&b, "To: %s\n", toLabel(tx.To, watched, names))
	fmt.Fprintf(&b, "Value: %s %s\n", decimal.FormatSigned(tx.Value, r.nativeDecimals, 4), r.nativeSymbol)
	fmt.Fprintf(&b, "Balance: %s %s %s\n", trace.Balance, r.nativeSymbol, string(trace.Change))
	fmt.Fprintf(&b, "PNL: %s %s\n", trace.PNL, r.nativeSymbol)

	if len(trace.InteractedTokens) > 0 {
		fmt.Fprintf(&b, "Tokens: %s\n", tokenList(trace.InteractedTokens))
	}
	if trace.TransferAmount != nil {
		fmt.Fprintf(&b, "Amount: %s\n", *trace.TransferAmount)
	}
	fmt.Fprintf(&b, "Selector: %s\n", selectorLabel(signature))
	if trace.DeployedContractAddr != nil {
		fmt.Fprintf(&b, "Deployed: %s\n", addressLabel(*trace.DeployedContractAddr, watched, names))
	}
	fmt.Fprintf(&b, "Tx: %s/tx/%s", r.explorerBaseURL, tx.Hash)

	return domain.RenderedMessage{
		Text:    b.String(),
		Buttons: r.buttons(trace.InteractedTokens),
	}
}

func statusGlyph(status domain.TraceStatus) string {
	switch status {
	case domain.TraceStatusSuccess:
		return "✅"
	case domain.TraceStatusFailure:
		return "❌"
	default:
		return ""
	}
}

// directionIcon picks the base direction arrow, overridden to a
// money-transfer icon for a single resolved ERC20 transfer, overridden
// again to a buy/sell label when more than one token was interacted with.
//
// The buy/sell mapping intentionally follows the documented rule
// (status=false ⇒ sell; status=true with tx.value==0 ⇒ sell; otherwise
// buy) rather than a naive "success is always a buy" reading — flagged for
// product review, see the design notes on the source's own inconsistent
// icon logic.
func directionIcon(watched string, tx domain.Transaction, trace domain.TraceResult) string {
	if len(trace.InteractedTokens) > 1 {
		return buySellLabel(trace.Status, tx.Value)
	}
	if trace.TransferAmount != nil {
		if tx.To != nil && strings.ToLower(*tx.To) == watched {
			return "➡️💰"
		}
		return "💰➡️"
	}
	if tx.To != nil && strings.ToLower(*tx.To) == watched {
		return "↘"
	}
	return "↖"
}

func buySellLabel(status domain.TraceStatus, value *big.Int) string {
	if status == domain.TraceStatusFailure {
		return "🔴 SELL"
	}
	if status == domain.TraceStatusSuccess && value != nil && value.Sign() == 0 {
		return "🔴 SELL"
	}
	return "🟢 BUY"
}

func blockLabel(blockNumber *uint64) string {
	if blockNumber == nil {
		return "mempool"
	}
	return fmt.Sprintf("#%d", *blockNumber)
}

func toLabel(to *string, watched string, names map[string]string) string {
	if to == nil {
		return "(contract creation)"
	}
	return addressLabel(*to, watched, names)
}

// addressLabel resolves an address through the ENS-like name table, falling
// back to its checksum-cased form, and marks it with a bullet when it
// matches the watched address.
func addressLabel(address, watched string, names map[string]string) string {
	label, ok := names[strings.ToLower(address)]
	if !ok {
		label = common.HexToAddress(address).Hex()
	}
	if strings.ToLower(address) == watched {
		return "●" + label
	}
	return label
}

func tokenList(tokens []domain.InteractedToken) string {
	symbols := make([]string, 0, len(tokens))
	for _, t := range tokens {
		symbols = append(symbols, t.Symbol)
	}
	return strings.Join(symbols, ", ")
}

func selectorLabel(signature *string) string {
	if signature == nil || *signature == "" {
		return "unknown"
	}
	return *signature
}

// buttons builds one templated button per configured row/column, but only
// when at least one non-base token was interacted with; the first such
// token's address fills the $ADDRESS$ placeholder.
func (r *Renderer) buttons(tokens []domain.InteractedToken) [][]domain.InlineButton {
	var target string
	for _, t := range tokens {
		if !t.IsBase {
			target = t.Address
			break
		}
	}
	if target == "" || len(r.buttonRows) == 0 {
		return nil
	}

	rows := make([][]domain.InlineButton, 0, len(r.buttonRows))
	for _, row := range r.buttonRows {
		buttons := make([]domain.InlineButton, 0, len(row))
		for _, tmpl := range row {
			buttons = append(buttons, domain.InlineButton{
				Text: tmpl.Text,
				URL:  strings.ReplaceAll(tmpl.URLTemplate, addressPlaceholder, target),
			})
		}
		rows = append(rows, buttons)
	}
	return rows
}
