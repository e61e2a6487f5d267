package postgres

import (
	"context"
	"database/sql"

	"github.com/blocksentry/watchtower/internal/pkg/errkind"
	"github.com/blocksentry/watchtower/internal/walletregistry"
)

// WalletStorage implements walletregistry.WalletStorage against the shared
// watchlist table. The CLI is the only caller in this repo and always acts
// on behalf of a single operator chat, so WalletIdentifier.Network is
// reused as that chat's id (stored in the chat_id column) and the bot id is
// fixed to the CLI's own bot slot; the composite subscriber id is formed
// from the two as chat_id@bot_id when the watchlist is loaded.
type WalletStorage struct {
	store *Store
	botID string
}

var _ walletregistry.WalletStorage = (*WalletStorage)(nil)

// NewWalletStorage builds a WalletStorage rooted at botID, the bot slot the
// operator CLI registers wallets under.
func NewWalletStorage(store *Store, botID string) *WalletStorage {
	return &WalletStorage{store: store, botID: botID}
}

// registerWalletQuery inserts or reactivates a watchlist row. Every newly
// inserted row is given tx_in=false, tx_out=true regardless of what the
// caller might otherwise have wanted, matching the direction defaults this
// store has always shipped with.
const registerWalletQuery = `
INSERT INTO watchlist (address, chat_id, bot_id, tx_in, tx_out, blocked)
VALUES (lower($1), $2, $3, false, true, false)
ON CONFLICT (address, chat_id, bot_id) DO UPDATE SET blocked = false
`

// RegisterWallet inserts or reactivates a watchlist row for id.
func (w *WalletStorage) RegisterWallet(ctx context.Context, id walletregistry.WalletIdentifier) error {
	if _, err := w.store.db.ExecContext(ctx, registerWalletQuery, id.Address, id.Network, w.botID); err != nil {
		return &errkind.PersistenceError{Target: "watchlist", Err: err}
	}
	return nil
}

// UnregisterWallet marks the row blocked rather than deleting it, so the
// subscriber's history (name, watch time) survives a later re-registration.
func (w *WalletStorage) UnregisterWallet(ctx context.Context, id walletregistry.WalletIdentifier) error {
	const q = `UPDATE watchlist SET blocked = true WHERE address = lower($1) AND chat_id = $2 AND bot_id = $3`
	if _, err := w.store.db.ExecContext(ctx, q, id.Address, id.Network, w.botID); err != nil {
		return &errkind.PersistenceError{Target: "watchlist", Err: err}
	}
	return nil
}

// BlockSubscriber marks every watchlist row for a single (chat, bot)
// subscriber blocked, used when C8 reports the subscriber is no longer
// reachable on the chat platform. Rows for other subscribers watching the
// same address are untouched.
func (w *WalletStorage) BlockSubscriber(ctx context.Context, chatID, botID string) error {
	const q = `UPDATE watchlist SET blocked = true WHERE chat_id = $1 AND bot_id = $2`
	if _, err := w.store.db.ExecContext(ctx, q, chatID, botID); err != nil {
		return &errkind.PersistenceError{Target: "watchlist", Err: err}
	}
	return nil
}

// watchlistRow is one scanned watchlist row, with chat_id and bot_id
// already joined into the composite "chat@bot" subscriber id.
type watchlistRow struct {
	Address      string
	SubscriberID string
	Name         string
	WantIncoming bool
	WantOutgoing bool
}

func scanWatchlistRows(rows *sql.Rows) ([]watchlistRow, error) {
	defer rows.Close()

	var out []watchlistRow
	for rows.Next() {
		var (
			address, chatID, botID, name string
			txIn, txOut                  bool
		)
		if err := rows.Scan(&address, &chatID, &botID, &name, &txIn, &txOut); err != nil {
			return nil, err
		}
		out = append(out, watchlistRow{
			Address:      address,
			SubscriberID: chatID + "@" + botID,
			Name:         name,
			WantIncoming: txIn,
			WantOutgoing: txOut,
		})
	}
	return out, rows.Err()
}
