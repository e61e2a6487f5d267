package postgres

import (
	"testing"

	"github.com/blocksentry/watchtower/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestRegisterWalletQuery_DefaultsToIncomingSilenced(t *testing.T) {
	assert.Contains(t, registerWalletQuery, "tx_in, tx_out")
	assert.Contains(t, registerWalletQuery, "false, true, false")
}

func TestWatchlistRowGrouping_KeepsSubscriberComposite(t *testing.T) {
	rows := []watchlistRow{
		{Address: "0xabc", SubscriberID: "111@main", Name: "alice", WantIncoming: false, WantOutgoing: true},
	}

	entries := map[string]domain.WatchlistEntry{}
	for _, r := range rows {
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

	entry := entries["0xabc"]
	watcher := entry.Watchers[domain.SubscriberID("111@main")]
	assert.Equal(t, "alice", watcher.DisplayName)
	chatID, botID := watcher.SubscriberID.Split()
	assert.Equal(t, "111", chatID)
	assert.Equal(t, "main", botID)
}

func TestSnapshotStore_LookupOnEmptySnapshotMisses(t *testing.T) {
	s := NewSnapshotStore(nil)

	_, ok := s.Lookup("0xabc")
	assert.False(t, ok)
}

func TestSnapshotStore_LookupAfterManualPublish(t *testing.T) {
	s := NewSnapshotStore(nil)
	s.current.Store(domain.NewWatchlist(map[string]domain.WatchlistEntry{
		"0xabc": {Address: "0xabc", Watchers: map[domain.SubscriberID]domain.Watcher{
			"1@main": {SubscriberID: "1@main", WantOutgoing: true},
		}},
	}))

	entry, ok := s.Lookup("0xabc")
	assert.True(t, ok)
	assert.True(t, entry.Watchers["1@main"].WantOutgoing)
	assert.False(t, entry.Watchers["1@main"].WantIncoming)
}
