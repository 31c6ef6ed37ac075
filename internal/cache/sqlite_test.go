package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pickit-labs/pickit/internal/job"
	"github.com/pickit-labs/pickit/internal/shop"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)

	active := &job.PrintJob{
		ID:        "job-1",
		FileName:  "notes.pdf",
		PageCount: 3,
		Cost:      6,
		Status:    job.StatusPrinting,
	}
	history := []job.PrintJob{
		{ID: "job-0", Status: job.StatusCollected, Timestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)},
	}
	cfg := shop.NewDefault()

	require.NoError(t, store.Save(KeyActiveJob, active))
	require.NoError(t, store.Save(KeyJobHistory, history))
	require.NoError(t, store.Save(KeyShopConfig, cfg))
	require.NoError(t, store.Save(KeyRole, "shop"))
	require.NoError(t, store.Save(KeyLinked, true))

	var gotActive *job.PrintJob
	ok, err := store.Load(KeyActiveJob, &gotActive)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, gotActive.Equal(active))

	var gotHistory []job.PrintJob
	ok, err = store.Load(KeyJobHistory, &gotHistory)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, gotHistory, 1)
	assert.True(t, gotHistory[0].Equal(&history[0]))

	var gotShop shop.Shop
	ok, err = store.Load(KeyShopConfig, &gotShop)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cfg, gotShop)

	var role string
	ok, err = store.Load(KeyRole, &role)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "shop", role)

	var linked bool
	ok, err = store.Load(KeyLinked, &linked)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, linked)
}

func TestLoadAbsentKeyLeavesDefault(t *testing.T) {
	store := openTestStore(t)

	theme := "dark"
	ok, err := store.Load(KeyTheme, &theme)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "dark", theme, "absent key must leave the caller's default untouched")
}

func TestSaveOverwrites(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(KeyTheme, "light"))
	require.NoError(t, store.Save(KeyTheme, "dark"))

	var theme string
	ok, err := store.Load(KeyTheme, &theme)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", theme)
}

func TestLoadCorruptValueReportsError(t *testing.T) {
	store := openTestStore(t)

	_, err := store.db.Exec(`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, 0)`,
		KeyActiveJob, []byte("{not json"))
	require.NoError(t, err)

	var dst *job.PrintJob
	ok, err := store.Load(KeyActiveJob, &dst)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Nil(t, dst)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Save(KeyRole, "customer"))
	require.NoError(t, store.Delete(KeyRole))
	require.NoError(t, store.Delete(KeyRole), "deleting an absent key is a no-op")

	var role string
	ok, err := store.Load(KeyRole, &role)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pickit.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(KeyRole, "shop"))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	var role string
	ok, err := reopened.Load(KeyRole, &role)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "shop", role)
}
