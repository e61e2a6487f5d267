package render

import (
	"math/big"
	"testing"

	"github.com/blocksentry/watchtower/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer() *Renderer {
	return New("Ethereum", "ETH", 18, "https://etherscan.io", [][]ButtonTemplate{
		{{Text: "Chart", URLTemplate: "https://dexscreener.com/eth/" + addressPlaceholder}},
	})
}

func sampleTx() domain.Transaction {
	to := "0x000000000000000000000000000000000000bb"
	return domain.Transaction{
		Hash:  "abc123",
		From:  "0x000000000000000000000000000000000000aa",
		To:    &to,
		Value: big.NewInt(0),
	}
}

func TestRender_IsDeterministic(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()
	trace := domain.TraceResult{Status: domain.TraceStatusUnknown, PNL: "0.0", Balance: "1.0", Change: domain.ChangeNone}

	first := r.Render("0x000000000000000000000000000000000000aa", tx, trace, nil, nil)
	second := r.Render("0x000000000000000000000000000000000000aa", tx, trace, nil, nil)

	assert.Equal(t, first, second)
}

func TestRender_BulletsWatchedAddress(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()
	trace := domain.TraceResult{Status: domain.TraceStatusUnknown, PNL: "0.0", Balance: "1.0", Change: domain.ChangeNone}

	msg := r.Render(tx.From, tx, trace, nil, nil)

	assert.Contains(t, msg.Text, "●")
}

func TestRender_SingleTransferUsesMoneyIcon(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()
	amount := "100.00"
	trace := domain.TraceResult{
		Status:         domain.TraceStatusUnknown,
		PNL:            "0.0",
		Balance:        "1.0",
		Change:         domain.ChangeNone,
		TransferAmount: &amount,
	}

	msg := r.Render(*tx.To, tx, trace, nil, nil)

	assert.Contains(t, msg.Text, "➡️💰")
}

func TestRender_MultiTokenUsesBuySellLabel(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()
	tx.Value = big.NewInt(0)
	trace := domain.TraceResult{
		Status:  domain.TraceStatusSuccess,
		PNL:     "0.0",
		Balance: "1.0",
		Change:  domain.ChangeNone,
		InteractedTokens: []domain.InteractedToken{
			{Address: "0x01", Symbol: "TOKA"},
			{Address: "0x02", Symbol: "TOKB"},
		},
	}

	msg := r.Render(tx.From, tx, trace, nil, nil)

	assert.Contains(t, msg.Text, "🔴 SELL", "status=true with value==0 must render as sell per the documented mapping")
}

func TestRender_MultiTokenFailureIsSell(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()
	tx.Value = big.NewInt(1)
	trace := domain.TraceResult{
		Status: domain.TraceStatusFailure,
		PNL:    "0.0",
		Balance: "1.0",
		Change:  domain.ChangeNone,
		InteractedTokens: []domain.InteractedToken{
			{Address: "0x01", Symbol: "TOKA"},
			{Address: "0x02", Symbol: "TOKB"},
		},
	}

	msg := r.Render(tx.From, tx, trace, nil, nil)

	assert.Contains(t, msg.Text, "🔴 SELL")
}

func TestRender_ButtonsOnlyForNonBaseToken(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()

	baseOnly := domain.TraceResult{
		Status: domain.TraceStatusUnknown,
		PNL:    "0.0", Balance: "1.0", Change: domain.ChangeNone,
		InteractedTokens: []domain.InteractedToken{{Address: "0x01", Symbol: "WETH", IsBase: true}},
	}
	msg := r.Render(tx.From, tx, baseOnly, nil, nil)
	assert.Nil(t, msg.Buttons)

	withNonBase := domain.TraceResult{
		Status: domain.TraceStatusUnknown,
		PNL:    "0.0", Balance: "1.0", Change: domain.ChangeNone,
		InteractedTokens: []domain.InteractedToken{
			{Address: "0x01", Symbol: "WETH", IsBase: true},
			{Address: "0x02aa", Symbol: "SHIB", IsBase: false},
		},
	}
	msg = r.Render(tx.From, tx, withNonBase, nil, nil)
	require.Len(t, msg.Buttons, 1)
	require.Len(t, msg.Buttons[0], 1)
	assert.Contains(t, msg.Buttons[0][0].URL, "0x02aa")
}

func TestRender_NamePlaceholderLeftForDelivery(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()
	trace := domain.TraceResult{Status: domain.TraceStatusUnknown, PNL: "0.0", Balance: "1.0", Change: domain.ChangeNone}

	msg := r.Render(tx.From, tx, trace, nil, nil)

	assert.Contains(t, msg.Text, NamePlaceholder)
}

func TestRender_UsesResolvedName(t *testing.T) {
	r := newTestRenderer()
	tx := sampleTx()
	trace := domain.TraceResult{Status: domain.TraceStatusUnknown, PNL: "0.0", Balance: "1.0", Change: domain.ChangeNone}
	names := map[string]string{tx.From: "Alice.eth"}

	msg := r.Render(tx.From, tx, trace, nil, names)

	assert.Contains(t, msg.Text, "Alice.eth")
}
