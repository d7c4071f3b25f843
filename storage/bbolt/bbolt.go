// Package bbolt provides BBolt-backed implementations of storage.Repository
// and storage.KV, suitable for single-node deployments.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/omiassist/storage"
)

var (
	bucketKV           = []byte("kv")
	bucketUsers        = []byte("user_account")
	bucketOmi          = []byte("omi_account")
	bucketTelegram     = []byte("telegram_account")
	bucketDestinations = []byte("telegram_destination")
	bucketActions      = []byte("telegram_action")
)

// Store implements storage.Repository and storage.KV backed by a BBolt database.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

var (
	_ storage.Repository = (*Store)(nil)
	_ storage.KV         = (*Store)(nil)
)

// NewStore returns a Store backed by the given BBolt database, creating
// the buckets it needs.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketKV, bucketUsers, bucketOmi, bucketTelegram, bucketDestinations, bucketActions} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// NewStoreFromFile opens a BBolt database at the given path and returns a new Store.
func NewStoreFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func putJSON(b *bbolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func insertJSON(b *bbolt.Bucket, key string, v any) error {
	if b.Get([]byte(key)) != nil {
		return fmt.Errorf("%s: %w", key, storage.ErrAlreadyExists)
	}
	return putJSON(b, key, v)
}

func getJSON(b *bbolt.Bucket, key string, v any) error {
	data := b.Get([]byte(key))
	if data == nil {
		return fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return json.Unmarshal(data, v)
}

// each decodes every value of b into a fresh T and passes it to fn.
func each[T any](b *bbolt.Bucket, fn func(v T) error) error {
	return b.ForEach(func(_, data []byte) error {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		return fn(v)
	})
}

func telegramKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ---------------------------------------------------------------------------
// KV
// ---------------------------------------------------------------------------

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putJSON(tx.Bucket(bucketKV), key, storage.Seal(value, ttl, s.now()))
	})
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var env storage.Envelope
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketKV), key, &env)
	})
	if err != nil {
		return nil, err
	}
	if env.Expired(s.now()) {
		if err := s.Delete(context.Background(), key); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return env.Value, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Delete([]byte(key))
	})
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

func (s *Store) InsertUser(_ context.Context, user *storage.UserAccount) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return insertJSON(tx.Bucket(bucketUsers), user.ID, user)
	})
}

func (s *Store) LoadUser(_ context.Context, id string) (*storage.UserAccount, error) {
	var user storage.UserAccount
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketUsers), id, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) UpdateUserToken(_ context.Context, id, userToken string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketUsers)
		var user storage.UserAccount
		if err := getJSON(b, id, &user); err != nil {
			return err
		}
		user.UserToken = userToken
		return putJSON(b, id, &user)
	})
}

func (s *Store) InsertOmiAccount(_ context.Context, acct *storage.OmiAccount) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return insertJSON(tx.Bucket(bucketOmi), acct.ID, acct)
	})
}

func (s *Store) LoadOmiAccount(_ context.Context, id string) (*storage.OmiAccount, error) {
	var acct storage.OmiAccount
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketOmi), id, &acct)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Store) OmiAccountExists(_ context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketOmi).Get([]byte(id)) != nil
		return nil
	})
	return exists, err
}

func (s *Store) InsertTelegramAccount(_ context.Context, acct *storage.TelegramAccount) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return insertJSON(tx.Bucket(bucketTelegram), telegramKey(acct.ID), acct)
	})
}

func (s *Store) LoadTelegramAccount(_ context.Context, id int64) (*storage.TelegramAccount, error) {
	var acct storage.TelegramAccount
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketTelegram), telegramKey(id), &acct)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (s *Store) LoadTelegramAccountByUser(_ context.Context, userID string) (*storage.TelegramAccount, error) {
	var found *storage.TelegramAccount
	err := s.db.View(func(tx *bbolt.Tx) error {
		return each(tx.Bucket(bucketTelegram), func(acct storage.TelegramAccount) error {
			if found == nil && acct.UserID == userID {
				found = &acct
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("telegram account for user %s: %w", userID, storage.ErrNotFound)
	}
	return found, nil
}

func (s *Store) TelegramAccountExists(_ context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketTelegram).Get([]byte(telegramKey(id))) != nil
		return nil
	})
	return exists, err
}

func (s *Store) UpdateTelegramName(_ context.Context, id int64, firstName string, username *string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTelegram)
		var acct storage.TelegramAccount
		if err := getJSON(b, telegramKey(id), &acct); err != nil {
			return err
		}
		acct.FirstName = firstName
		acct.Username = username
		return putJSON(b, telegramKey(id), &acct)
	})
}

func (s *Store) InsertDestination(_ context.Context, dest *storage.Destination) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return insertJSON(tx.Bucket(bucketDestinations), dest.ID, dest)
	})
}

func (s *Store) LoadDestination(_ context.Context, userID, id string) (*storage.Destination, error) {
	var dest storage.Destination
	err := s.db.View(func(tx *bbolt.Tx) error {
		return getJSON(tx.Bucket(bucketDestinations), id, &dest)
	})
	if err != nil {
		return nil, err
	}
	if dest.UserID != userID {
		return nil, fmt.Errorf("destination %s: %w", id, storage.ErrNotFound)
	}
	return &dest, nil
}

func (s *Store) ListDestinations(_ context.Context, userID string) ([]storage.Destination, error) {
	var out []storage.Destination
	err := s.db.View(func(tx *bbolt.Tx) error {
		return each(tx.Bucket(bucketDestinations), func(dest storage.Destination) error {
			if dest.UserID == userID {
				out = append(out, dest)
			}
			return nil
		})
	})
	return out, err
}

func (s *Store) DestinationExists(_ context.Context, userID string, chatID int64) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		return each(tx.Bucket(bucketDestinations), func(dest storage.Destination) error {
			if dest.UserID == userID && dest.ChatID == chatID {
				exists = true
			}
			return nil
		})
	})
	return exists, err
}

func (s *Store) InsertAction(_ context.Context, action *storage.Action) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketDestinations).Get([]byte(action.DestinationID)) == nil {
			return fmt.Errorf("destination %s: %w", action.DestinationID, storage.ErrNotFound)
		}
		return insertJSON(tx.Bucket(bucketActions), action.ID, action)
	})
}

func (s *Store) DeleteAction(_ context.Context, userID, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		actions := tx.Bucket(bucketActions)
		var action storage.Action
		if err := getJSON(actions, id, &action); err != nil {
			return nil
		}
		var dest storage.Destination
		if err := getJSON(tx.Bucket(bucketDestinations), action.DestinationID, &dest); err != nil || dest.UserID != userID {
			return nil
		}
		return actions.Delete([]byte(id))
	})
}

func (s *Store) ListActions(_ context.Context, userID string) ([]storage.ActionWithDestination, error) {
	var out []storage.ActionWithDestination
	err := s.db.View(func(tx *bbolt.Tx) error {
		dests := tx.Bucket(bucketDestinations)
		return each(tx.Bucket(bucketActions), func(action storage.Action) error {
			var dest storage.Destination
			if err := getJSON(dests, action.DestinationID, &dest); err != nil || dest.UserID != userID {
				return nil
			}
			out = append(out, storage.ActionWithDestination{Action: action, Destination: dest})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
