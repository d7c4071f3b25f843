package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/omiassist/storage"
	"github.com/jmcleod/omiassist/storage/storagetest"
)

func TestMemoryRepository(t *testing.T) {
	storagetest.RunRepository(t, func(t *testing.T) storage.Repository {
		return NewRepository()
	})
}

func TestMemoryKV(t *testing.T) {
	storagetest.RunKV(t, NewKV())
}

func TestMemoryKVExpiry(t *testing.T) {
	now := time.Now()
	kv := NewKVWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "k", []byte("v"), time.Minute))
	_, err := kv.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Zero(t, kv.Len(), "expired keys are reaped on read")
}

func TestMemoryKVReapKeepsConcurrentPut(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	var (
		kv      *KV
		racePut bool
	)
	// The expiry check in Get reads the clock after the read lock is
	// released, so a Put issued from the clock lands in that window.
	kv = NewKVWithClock(func() time.Time {
		if racePut {
			racePut = false
			require.NoError(t, kv.Put(ctx, "k", []byte("fresh"), time.Hour))
		}
		return now
	})

	require.NoError(t, kv.Put(ctx, "k", []byte("stale"), time.Minute))
	now = now.Add(time.Minute)

	racePut = true
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)
}

func TestMemoryTelegramIsolation(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()
	name := "alice"
	require.NoError(t, repo.InsertTelegramAccount(ctx, &storage.TelegramAccount{ID: 1, UserID: "u", FirstName: "A", Username: &name}))

	got, err := repo.LoadTelegramAccount(ctx, 1)
	require.NoError(t, err)
	*got.Username = "mallory"

	again, err := repo.LoadTelegramAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", *again.Username)
}
