// Package storagetest holds behavioural suites shared by every storage backend.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/omiassist/storage"
)

// RunKV exercises a storage.KV implementation.
func RunKV(t *testing.T, kv storage.KV) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "k1", []byte("v1"), 0))
		got, err := kv.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "k2", []byte("a"), time.Hour))
		require.NoError(t, kv.Put(ctx, "k2", []byte("b"), time.Hour))
		got, err := kv.Get(ctx, "k2")
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), got)
	})

	t.Run("MissingKey", func(t *testing.T) {
		_, err := kv.Get(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "k3", []byte("v"), 0))
		require.NoError(t, kv.Delete(ctx, "k3"))
		_, err := kv.Get(ctx, "k3")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, kv.Delete(ctx, "k3"), "deleting a missing key is not an error")
	})

	t.Run("JSON", func(t *testing.T) {
		type rec struct {
			Name string `json:"name"`
		}
		require.NoError(t, storage.PutJSON(ctx, kv, "k4", rec{Name: "x"}, 0))
		got, err := storage.GetJSON[rec](ctx, kv, "k4")
		require.NoError(t, err)
		assert.Equal(t, "x", got.Name)
	})
}

// RunRepository exercises a storage.Repository implementation. newRepo must
// return an empty repository.
func RunRepository(t *testing.T, newRepo func(t *testing.T) storage.Repository) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	seedUser := func(t *testing.T, repo storage.Repository, id string) {
		t.Helper()
		require.NoError(t, repo.InsertUser(ctx, &storage.UserAccount{ID: id, UserToken: "tok-" + id, CreatedAt: now}))
	}

	t.Run("Users", func(t *testing.T) {
		repo := newRepo(t)
		seedUser(t, repo, "u1")

		user, err := repo.LoadUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "tok-u1", user.UserToken)

		err = repo.InsertUser(ctx, &storage.UserAccount{ID: "u1", UserToken: "other", CreatedAt: now})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		require.NoError(t, repo.UpdateUserToken(ctx, "u1", "rotated"))
		user, err = repo.LoadUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "rotated", user.UserToken)

		_, err = repo.LoadUser(ctx, "nobody")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateUserToken(ctx, "nobody", "x"), storage.ErrNotFound)
	})

	t.Run("OmiAccounts", func(t *testing.T) {
		repo := newRepo(t)
		seedUser(t, repo, "u1")

		exists, err := repo.OmiAccountExists(ctx, "omi-1")
		require.NoError(t, err)
		assert.False(t, exists)

		require.NoError(t, repo.InsertOmiAccount(ctx, &storage.OmiAccount{ID: "omi-1", UserID: "u1", CreatedAt: now}))
		exists, err = repo.OmiAccountExists(ctx, "omi-1")
		require.NoError(t, err)
		assert.True(t, exists)

		acct, err := repo.LoadOmiAccount(ctx, "omi-1")
		require.NoError(t, err)
		assert.Equal(t, "u1", acct.UserID)

		err = repo.InsertOmiAccount(ctx, &storage.OmiAccount{ID: "omi-1", UserID: "u1", CreatedAt: now})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)

		_, err = repo.LoadOmiAccount(ctx, "omi-2")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("TelegramAccounts", func(t *testing.T) {
		repo := newRepo(t)
		seedUser(t, repo, "u1")

		require.NoError(t, repo.InsertTelegramAccount(ctx, &storage.TelegramAccount{
			ID: 42, UserID: "u1", FirstName: storage.DefaultTelegramFirstName(42), CreatedAt: now,
		}))
		exists, err := repo.TelegramAccountExists(ctx, 42)
		require.NoError(t, err)
		assert.True(t, exists)

		acct, err := repo.LoadTelegramAccount(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "user 42", acct.FirstName)
		assert.Nil(t, acct.Username)

		username := "alice"
		require.NoError(t, repo.UpdateTelegramName(ctx, 42, "Alice", &username))
		acct, err = repo.LoadTelegramAccountByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(42), acct.ID)
		assert.Equal(t, "Alice", acct.FirstName)
		require.NotNil(t, acct.Username)
		assert.Equal(t, "alice", *acct.Username)

		_, err = repo.LoadTelegramAccount(ctx, 7)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = repo.LoadTelegramAccountByUser(ctx, "u2")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		err = repo.InsertTelegramAccount(ctx, &storage.TelegramAccount{ID: 42, UserID: "u1", FirstName: "x", CreatedAt: now})
		assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	})

	t.Run("DestinationsAndActions", func(t *testing.T) {
		repo := newRepo(t)
		seedUser(t, repo, "u1")
		seedUser(t, repo, "u2")

		require.NoError(t, repo.InsertDestination(ctx, &storage.Destination{
			ID: "d1", UserID: "u1", ChatID: 100, Name: "Alice", Kind: storage.DestinationTelegramDM, CreatedAt: now,
		}))
		require.NoError(t, repo.InsertDestination(ctx, &storage.Destination{
			ID: "d2", UserID: "u1", ChatID: -200, Name: "Team", Kind: storage.DestinationTelegramGroup, CreatedAt: now,
		}))
		require.NoError(t, repo.InsertDestination(ctx, &storage.Destination{
			ID: "d3", UserID: "u2", ChatID: 300, Name: "Bob", Kind: storage.DestinationTelegramDM, CreatedAt: now,
		}))

		exists, err := repo.DestinationExists(ctx, "u1", -200)
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repo.DestinationExists(ctx, "u2", -200)
		require.NoError(t, err)
		assert.False(t, exists)

		dests, err := repo.ListDestinations(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, dests, 2)
		assert.Equal(t, "d1", dests[0].ID)
		assert.Equal(t, storage.DestinationTelegramGroup, dests[1].Kind)

		dest, err := repo.LoadDestination(ctx, "u1", "d2")
		require.NoError(t, err)
		assert.Equal(t, int64(-200), dest.ChatID)
		_, err = repo.LoadDestination(ctx, "u2", "d2")
		assert.ErrorIs(t, err, storage.ErrNotFound, "destinations are scoped to their owner")

		require.NoError(t, repo.InsertAction(ctx, &storage.Action{
			ID: "a1", DestinationID: "d1", Prompt: "hello", Message: "hi there", CreatedAt: now,
		}))
		require.NoError(t, repo.InsertAction(ctx, &storage.Action{
			ID: "a2", DestinationID: "d2", Prompt: "meeting", Message: "joining", CreatedAt: now,
		}))
		require.NoError(t, repo.InsertAction(ctx, &storage.Action{
			ID: "a3", DestinationID: "d3", Prompt: "bob", Message: "bob msg", CreatedAt: now,
		}))

		actions, err := repo.ListActions(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, actions, 2)
		assert.Equal(t, "a1", actions[0].ID)
		assert.Equal(t, "hello", actions[0].Prompt)
		assert.Equal(t, "d1", actions[0].Destination.ID)
		assert.Equal(t, int64(100), actions[0].Destination.ChatID)
		assert.Equal(t, storage.DestinationTelegramGroup, actions[1].Destination.Kind)

		// Deleting another user's action is a silent no-op.
		require.NoError(t, repo.DeleteAction(ctx, "u2", "a1"))
		actions, err = repo.ListActions(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, actions, 2)

		require.NoError(t, repo.DeleteAction(ctx, "u1", "a1"))
		actions, err = repo.ListActions(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, "a2", actions[0].ID)

		actions, err = repo.ListActions(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, actions)
	})
}
