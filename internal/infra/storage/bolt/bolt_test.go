package bolt

import (
	"path/filepath"
	"testing"

	"github.com/blocksentry/watchtower/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "watchtower.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTokenStore_PutIsWriteOnce(t *testing.T) {
	db := openTestDB(t)
	store := db.Tokens()

	require.NoError(t, store.Put(t.Context(), domain.TokenRecord{Address: "0xAAA", Symbol: "USDX", Decimals: 6}))
	require.NoError(t, store.Put(t.Context(), domain.TokenRecord{Address: "0xaaa", Symbol: "OVERWRITTEN", Decimals: 18}))

	rec, ok, err := store.Get(t.Context(), "0xaaa")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "USDX", rec.Symbol)
	assert.Equal(t, uint8(6), rec.Decimals)
}

func TestTokenStore_GetMissing(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.Tokens().Get(t.Context(), "0xdead")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsStore_LoadAll(t *testing.T) {
	db := openTestDB(t)
	ens := db.Ens()

	require.NoError(t, ens.Set(t.Context(), "0xAAA", "vitalik.eth"))
	require.NoError(t, ens.Set(t.Context(), "0xbbb", "cex-hot-wallet"))

	all, err := ens.LoadAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "vitalik.eth", all["0xaaa"])
	assert.Equal(t, "cex-hot-wallet", all["0xbbb"])
}

func TestProgressStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	progress := db.Progress()

	_, ok, err := progress.Load(t.Context())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, progress.Save(t.Context(), 12345))

	height, ok, err := progress.Load(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(12345), height)
}

func TestSelectorStore_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	sel := db.Selectors()

	_, ok, err := sel.Get(t.Context(), "0xa9059cbb")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, sel.Put(t.Context(), "0xa9059cbb", "transfer(address,uint256)"))

	sig, ok, err := sel.Get(t.Context(), "0xA9059CBB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "transfer(address,uint256)", sig)
}
