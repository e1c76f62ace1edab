package engine

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emailzen/emailzen/internal/gmail"
	"github.com/emailzen/emailzen/internal/storage"
)

func newTestCache(t *testing.T) (*LabelCache, *fakeGmail, *storage.MemStore) {
	t.Helper()
	svc := newFakeGmail()
	store := storage.NewMemStore()
	return NewLabelCache(svc, store, slog.New(slog.DiscardHandler)), svc, store
}

func TestCacheLoadsFromStoreWithoutRemoteCall(t *testing.T) {
	cache, svc, store := newTestCache(t)

	require.NoError(t, store.Set(storage.KeyLabelCache, []cachedLabel{
		{ID: "Label_1", Name: "Shop"},
	}))

	id, ok, err := cache.Lookup(context.Background(), "Shop")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Label_1", id)
	assert.Zero(t, svc.listCalls)
}

func TestCacheFetchesAndPersistsWhenStoreEmpty(t *testing.T) {
	cache, svc, store := newTestCache(t)
	svc.labels = []gmail.Label{{ID: "Label_9", Name: "Work"}}

	id, ok, err := cache.Lookup(context.Background(), "Work")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Label_9", id)
	assert.Equal(t, 1, svc.listCalls)

	var persisted []cachedLabel
	found, err := store.Get(storage.KeyLabelCache, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, persisted, 1)
	assert.Equal(t, "Work", persisted[0].Name)
}

func TestResolveOrCreateReturnsCachedID(t *testing.T) {
	cache, svc, _ := newTestCache(t)
	svc.labels = []gmail.Label{{ID: "Label_1", Name: "Shop"}}

	id, err := cache.ResolveOrCreate(context.Background(), "Shop")
	require.NoError(t, err)
	assert.Equal(t, "Label_1", id)
	assert.Zero(t, svc.createCalls)
}

func TestResolveOrCreateCreatesMissingLabelOnce(t *testing.T) {
	cache, svc, store := newTestCache(t)
	svc.labels = []gmail.Label{{ID: "Label_1", Name: "Shop"}}

	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := cache.ResolveOrCreate(context.Background(), "New")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, svc.createCalls)
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	// The persisted cache was extended, not replaced.
	var persisted []cachedLabel
	found, err := store.Get(storage.KeyLabelCache, &persisted)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, persisted, 2)
}

func TestInvalidateDropsPersistedCache(t *testing.T) {
	cache, svc, store := newTestCache(t)
	svc.labels = []gmail.Label{{ID: "Label_1", Name: "Shop"}}

	_, _, err := cache.Lookup(context.Background(), "Shop")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate())

	var persisted []cachedLabel
	found, err := store.Get(storage.KeyLabelCache, &persisted)
	require.NoError(t, err)
	assert.False(t, found)

	// Next use refetches.
	_, ok, err := cache.Lookup(context.Background(), "Shop")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, svc.listCalls)
}

func TestRefreshPicksUpRemoteChanges(t *testing.T) {
	cache, svc, _ := newTestCache(t)
	svc.labels = []gmail.Label{{ID: "Label_1", Name: "Shop"}}

	_, _, err := cache.Lookup(context.Background(), "Shop")
	require.NoError(t, err)

	svc.mu.Lock()
	svc.labels = append(svc.labels, gmail.Label{ID: "Label_2", Name: "Travel"})
	svc.mu.Unlock()

	require.NoError(t, cache.Refresh(context.Background()))

	id, ok, err := cache.Lookup(context.Background(), "Travel")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Label_2", id)
}
