package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEntries(t *testing.T, store *InMemoryStore) (alice, bob uuid.UUID) {
	t.Helper()
	alice, bob = uuid.New(), uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ID: uuid.New(), UserID: alice, Action: ActionLogin, ResourceType: ResourceAuth, Timestamp: base},
		{ID: uuid.New(), UserID: alice, Action: ActionUploadDocument, ResourceType: ResourceDocument, Timestamp: base.Add(time.Minute)},
		{ID: uuid.New(), UserID: bob, Action: ActionLogin, ResourceType: ResourceAuth, Timestamp: base.Add(2 * time.Minute)},
		{ID: uuid.New(), UserID: bob, Action: ActionShareDocument, ResourceType: ResourceDocument, Timestamp: base.Add(3 * time.Minute)},
		{ID: uuid.New(), UserID: alice, Action: ActionLogin, ResourceType: ResourceAuth, Timestamp: base.Add(4 * time.Minute)},
	}
	for _, entry := range entries {
		require.NoError(t, store.Append(context.Background(), entry))
	}
	return alice, bob
}

func TestInMemoryStoreListNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	seedEntries(t, store)

	entries, total, err := store.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, entries, 5)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i-1].Timestamp.Before(entries[i].Timestamp))
	}
}

func TestInMemoryStoreListFilters(t *testing.T) {
	store := NewInMemoryStore()
	alice, _ := seedEntries(t, store)
	ctx := context.Background()

	byAction, total, err := store.List(ctx, Filter{Action: ActionLogin})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, entry := range byAction {
		assert.Equal(t, ActionLogin, entry.Action)
	}

	byUser, total, err := store.List(ctx, Filter{UserID: alice})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, entry := range byUser {
		assert.Equal(t, alice, entry.UserID)
	}

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	windowed, total, err := store.List(ctx, Filter{From: base.Add(time.Minute), To: base.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	_ = windowed
}

func TestInMemoryStoreListPagination(t *testing.T) {
	store := NewInMemoryStore()
	seedEntries(t, store)
	ctx := context.Background()

	page1, total, err := store.List(ctx, Filter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page1, 2)

	page3, total, err := store.List(ctx, Filter{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, page3, 1)

	empty, total, err := store.List(ctx, Filter{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)
}

func TestInMemoryStoreListByUser(t *testing.T) {
	store := NewInMemoryStore()
	alice, _ := seedEntries(t, store)

	entries, err := store.ListByUser(context.Background(), alice, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionLogin, entries[0].Action, "newest entry first")
}

func TestInMemoryStoreStats(t *testing.T) {
	store := NewInMemoryStore()
	seedEntries(t, store)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalEntries)
	assert.Equal(t, 2, stats.DistinctUsers)
	require.NotEmpty(t, stats.Actions)
	assert.Equal(t, ActionLogin, stats.Actions[0].Action, "most frequent action first")
	assert.Equal(t, 3, stats.Actions[0].Count)
}
