package projection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SetAndGet(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	err := store.Set(ctx, "k1", []byte("hello"), 0)
	require.NoError(t, err)

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)
}

func TestInMemoryStore_KeyNotFound(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore(nil)
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), 0)
	_ = store.Delete(ctx, "k1")

	_, err := store.Get(ctx, "k1")
	assert.Error(t, err)
}

func TestInMemoryStore_TTLExpiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	store := NewInMemoryStore(clock)
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), time.Minute)
	clock.Advance(59 * time.Second)
	_, err := store.Get(ctx, "k1")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = store.Get(ctx, "k1")
	assert.True(t, errors.Is(err, ErrMiss))
}

func TestActivity_RoundTripAndInvalidate(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	store := NewInMemoryStore(clock)
	ctx := context.Background()
	userID := uuid.New()

	days := []domain.ActivityDay{{Date: "2026-05-30", Count: 2}, {Date: "2026-05-31", Count: 1}}
	require.NoError(t, PutActivity(ctx, store, userID, days))

	got, err := GetActivity(ctx, store, userID)
	require.NoError(t, err)
	assert.Equal(t, days, got)

	_, err = GetActivity(ctx, store, uuid.New())
	assert.Error(t, err)

	require.NoError(t, InvalidateActivity(ctx, store, userID))
	_, err = GetActivity(ctx, store, userID)
	assert.Error(t, err)

	require.NoError(t, PutActivity(ctx, store, userID, days))
	clock.Advance(ActivityTTL)
	_, err = GetActivity(ctx, store, userID)
	assert.Error(t, err)
}

func TestMergeActivity(t *testing.T) {
	tasks := map[string]int{"2026-05-02": 3, "2026-05-01": 1}
	reflections := map[string]int{"2026-05-02": 1, "2026-04-30": 1}

	got := MergeActivity(tasks, reflections)
	assert.Equal(t, []domain.ActivityDay{
		{Date: "2026-04-30", Count: 1},
		{Date: "2026-05-01", Count: 1},
		{Date: "2026-05-02", Count: 4},
	}, got)

	assert.Empty(t, MergeActivity())
}
