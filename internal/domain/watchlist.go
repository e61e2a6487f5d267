package domain

import "strings"

// SubscriberID is the opaque composite key `"{chat}@{bot}"` identifying a
// single delivery target within a single bot instance.
type SubscriberID string

// Split parses the subscriber id into its chat id and bot id. If the
// separator is absent, botID is empty.
func (s SubscriberID) Split() (chatID, botID string) {
	chatID, botID, _ = strings.Cut(string(s), "@")
	return chatID, botID
}

// Watcher describes one subscriber's interest in a single watched address.
type Watcher struct {
	SubscriberID  SubscriberID
	DisplayName   string
	WantIncoming  bool
	WantOutgoing  bool
}

// WatchlistEntry maps a lower-cased watched address to every subscriber
// currently monitoring it.
type WatchlistEntry struct {
	Address  string // lower-case
	Watchers map[SubscriberID]Watcher
}

// Watchlist is a read-heavy, periodically-refreshed snapshot of every
// watched address. A new Watchlist is built on every refresh and is never
// mutated after being published, so concurrent readers never observe a
// partial update.
type Watchlist struct {
	entries map[string]WatchlistEntry
}

// NewWatchlist builds an immutable snapshot from the given entries.
func NewWatchlist(entries map[string]WatchlistEntry) *Watchlist {
	return &Watchlist{entries: entries}
}

// Lookup returns the entry for a lower-cased address, if any subscriber
// currently watches it.
func (w *Watchlist) Lookup(address string) (WatchlistEntry, bool) {
	if w == nil {
		return WatchlistEntry{}, false
	}
	e, ok := w.entries[address]
	return e, ok
}

// TokenRecord is the persisted (symbol, decimals) pair for a contract
// address. Only records with a non-empty symbol and decimals > 0 are ever
// persisted; the zero value is never written.
type TokenRecord struct {
	Address  string // lower-case
	Symbol   string
	Decimals uint8
}

// Valid reports whether the record meets the persistence invariant.
func (r TokenRecord) Valid() bool {
	return r.Symbol != "" && r.Decimals > 0
}
