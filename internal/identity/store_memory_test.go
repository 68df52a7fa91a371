package identity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email, nationalID string) *User {
	now := time.Now()
	return &User{
		ID:         uuid.New(),
		Name:       "Test User",
		Email:      email,
		NationalID: nationalID,
		Role:       RoleUser,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestInMemoryStoreDuplicateChecks(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newUser("a@example.com", "111111111111")))

	err := store.Create(ctx, newUser("A@Example.com", "222222222222"))
	assert.ErrorIs(t, err, ErrDuplicateEmail, "email uniqueness is case-insensitive")

	err = store.Create(ctx, newUser("b@example.com", "111111111111"))
	assert.ErrorIs(t, err, ErrDuplicateNationalID)
}

func TestInMemoryStoreConcurrentCreateSameEmail(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Create(ctx, newUser("same@example.com", uuid.NewString()[:12]))
		}()
	}
	wg.Wait()
	close(errs)

	var created int
	for err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, ErrDuplicateEmail)
		}
	}
	assert.Equal(t, 1, created, "exactly one racer may win")
}

func TestInMemoryStoreFindByLookups(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	user := newUser("a@example.com", "111111111111")
	require.NoError(t, store.Create(ctx, user))

	byID, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := store.FindByEmail(ctx, "  A@EXAMPLE.COM ")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byNational, err := store.FindByNationalID(ctx, "111111111111")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byNational.ID)

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStoreUpdateReindexesEmail(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	first := newUser("a@example.com", "111111111111")
	second := newUser("b@example.com", "222222222222")
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	moved := *first
	moved.Email = "b@example.com"
	assert.ErrorIs(t, store.Update(ctx, &moved), ErrDuplicateEmail)

	moved.Email = "c@example.com"
	require.NoError(t, store.Update(ctx, &moved))

	found, err := store.FindByEmail(ctx, "c@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = store.FindByEmail(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrNotFound, "old email index entry must be gone")
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	user := newUser("a@example.com", "111111111111")
	user.OTP = &OTP{Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Create(ctx, user))

	got, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	got.Name = "mutated"
	got.OTP.Code = "999999"

	again, err := store.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test User", again.Name)
	assert.Equal(t, "123456", again.OTP.Code)
}

func TestInMemoryStoreListNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	older := newUser("a@example.com", "111111111111")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newUser("b@example.com", "222222222222")
	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.Create(ctx, newer))

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, newer.ID, users[0].ID)
	assert.Equal(t, older.ID, users[1].ID)
}

func TestInMemoryStoreDeleteFreesIndexes(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	user := newUser("a@example.com", "111111111111")
	require.NoError(t, store.Create(ctx, user))
	require.NoError(t, store.Delete(ctx, user.ID))

	assert.NoError(t, store.Create(ctx, newUser("a@example.com", "111111111111")),
		"email and national id become reusable after delete")
}
