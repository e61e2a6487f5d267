package postgres

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/blocksentry/watchtower/internal/domain"
	"github.com/blocksentry/watchtower/internal/pkg/logger"
)

// RefreshInterval is how often SnapshotStore reloads the watchlist from the
// database.
const RefreshInterval = 2 * time.Second

// SnapshotStore is a read-heavy, periodically-refreshed view over the
// watchlist table. Readers call Lookup concurrently with a background
// Refresh; the swap is atomic, so a reader never observes a partially
// built snapshot.
type SnapshotStore struct {
	store   *Store
	current atomic.Pointer[domain.Watchlist]
}

// NewSnapshotStore builds a SnapshotStore with an empty initial snapshot.
// Call Refresh once (or Run) before relying on Lookup.
func NewSnapshotStore(store *Store) *SnapshotStore {
	s := &SnapshotStore{store: store}
	s.current.Store(domain.NewWatchlist(nil))
	return s
}

// Lookup satisfies txrouter.Watchlist.
func (s *SnapshotStore) Lookup(address string) (domain.WatchlistEntry, bool) {
	return s.current.Load().Lookup(address)
}

// Refresh reloads the full watchlist from the database and atomically
// publishes the new snapshot. A failed refresh leaves the previous
// snapshot in place.
func (s *SnapshotStore) Refresh(ctx context.Context) error {
	rows, err := s.store.db.QueryContext(ctx, `
SELECT address, chat_id, bot_id, COALESCE(NULLIF(name, ''), username), tx_in, tx_out
FROM watchlist
WHERE blocked = false
`)
	if err != nil {
		return err
	}

	parsed, err := scanWatchlistRows(rows)
	if err != nil {
		return err
	}

	entries := make(map[string]domain.WatchlistEntry)
	for _, r := range parsed {
		e, ok := entries[r.Address]
		if !ok {
			e = domain.WatchlistEntry{Address: r.Address, Watchers: make(map[domain.SubscriberID]domain.Watcher)}
		}
		e.Watchers[domain.SubscriberID(r.SubscriberID)] = domain.Watcher{
			SubscriberID: domain.SubscriberID(r.SubscriberID),
			DisplayName:  r.Name,
			WantIncoming: r.WantIncoming,
			WantOutgoing: r.WantOutgoing,
		}
		entries[r.Address] = e
	}

	s.current.Store(domain.NewWatchlist(entries))
	return nil
}

// Run refreshes the snapshot immediately, then again every RefreshInterval
// until ctx is done. Errors are logged, not returned: a stale snapshot is
// preferable to stopping the pipeline.
func (s *SnapshotStore) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		logger.Error(ctx, "initial watchlist refresh failed", "error", err)
	}

	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				logger.Error(ctx, "watchlist refresh failed", "error", err)
			}
		}
	}
}
