// Package memory provides thread-safe in-memory implementations of
// storage.Repository and storage.KV.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmcleod/omiassist/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing, demos, and single-process use cases.
type Repository struct {
	mu           sync.RWMutex
	users        map[string]storage.UserAccount
	omi          map[string]storage.OmiAccount
	telegram     map[int64]storage.TelegramAccount
	destinations map[string]storage.Destination
	actions      map[string]storage.Action
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{
		users:        make(map[string]storage.UserAccount),
		omi:          make(map[string]storage.OmiAccount),
		telegram:     make(map[int64]storage.TelegramAccount),
		destinations: make(map[string]storage.Destination),
		actions:      make(map[string]storage.Action),
	}
}

func cloneTelegram(acct storage.TelegramAccount) *storage.TelegramAccount {
	if acct.Username != nil {
		u := *acct.Username
		acct.Username = &u
	}
	return &acct
}

func (r *Repository) InsertUser(_ context.Context, user *storage.UserAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; ok {
		return fmt.Errorf("user %s: %w", user.ID, storage.ErrAlreadyExists)
	}
	r.users[user.ID] = *user
	return nil
}

func (r *Repository) LoadUser(_ context.Context, id string) (*storage.UserAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return &user, nil
}

func (r *Repository) UpdateUserToken(_ context.Context, id, userToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	user.UserToken = userToken
	r.users[id] = user
	return nil
}

func (r *Repository) InsertOmiAccount(_ context.Context, acct *storage.OmiAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.omi[acct.ID]; ok {
		return fmt.Errorf("omi account %s: %w", acct.ID, storage.ErrAlreadyExists)
	}
	r.omi[acct.ID] = *acct
	return nil
}

func (r *Repository) LoadOmiAccount(_ context.Context, id string) (*storage.OmiAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.omi[id]
	if !ok {
		return nil, fmt.Errorf("omi account %s: %w", id, storage.ErrNotFound)
	}
	return &acct, nil
}

func (r *Repository) OmiAccountExists(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.omi[id]
	return ok, nil
}

func (r *Repository) InsertTelegramAccount(_ context.Context, acct *storage.TelegramAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.telegram[acct.ID]; ok {
		return fmt.Errorf("telegram account %d: %w", acct.ID, storage.ErrAlreadyExists)
	}
	r.telegram[acct.ID] = *cloneTelegram(*acct)
	return nil
}

func (r *Repository) LoadTelegramAccount(_ context.Context, id int64) (*storage.TelegramAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.telegram[id]
	if !ok {
		return nil, fmt.Errorf("telegram account %d: %w", id, storage.ErrNotFound)
	}
	return cloneTelegram(acct), nil
}

func (r *Repository) LoadTelegramAccountByUser(_ context.Context, userID string) (*storage.TelegramAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, acct := range r.telegram {
		if acct.UserID == userID {
			return cloneTelegram(acct), nil
		}
	}
	return nil, fmt.Errorf("telegram account for user %s: %w", userID, storage.ErrNotFound)
}

func (r *Repository) TelegramAccountExists(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.telegram[id]
	return ok, nil
}

func (r *Repository) UpdateTelegramName(_ context.Context, id int64, firstName string, username *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.telegram[id]
	if !ok {
		return fmt.Errorf("telegram account %d: %w", id, storage.ErrNotFound)
	}
	acct.FirstName = firstName
	acct.Username = username
	r.telegram[id] = *cloneTelegram(acct)
	return nil
}

func (r *Repository) InsertDestination(_ context.Context, dest *storage.Destination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.destinations[dest.ID]; ok {
		return fmt.Errorf("destination %s: %w", dest.ID, storage.ErrAlreadyExists)
	}
	r.destinations[dest.ID] = *dest
	return nil
}

func (r *Repository) LoadDestination(_ context.Context, userID, id string) (*storage.Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dest, ok := r.destinations[id]
	if !ok || dest.UserID != userID {
		return nil, fmt.Errorf("destination %s: %w", id, storage.ErrNotFound)
	}
	return &dest, nil
}

func (r *Repository) ListDestinations(_ context.Context, userID string) ([]storage.Destination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []storage.Destination
	for _, dest := range r.destinations {
		if dest.UserID == userID {
			out = append(out, dest)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) DestinationExists(_ context.Context, userID string, chatID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, dest := range r.destinations {
		if dest.UserID == userID && dest.ChatID == chatID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Repository) InsertAction(_ context.Context, action *storage.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.actions[action.ID]; ok {
		return fmt.Errorf("action %s: %w", action.ID, storage.ErrAlreadyExists)
	}
	if _, ok := r.destinations[action.DestinationID]; !ok {
		return fmt.Errorf("destination %s: %w", action.DestinationID, storage.ErrNotFound)
	}
	r.actions[action.ID] = *action
	return nil
}

func (r *Repository) DeleteAction(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	action, ok := r.actions[id]
	if !ok {
		return nil
	}
	if dest, ok := r.destinations[action.DestinationID]; ok && dest.UserID == userID {
		delete(r.actions, id)
	}
	return nil
}

func (r *Repository) ListActions(_ context.Context, userID string) ([]storage.ActionWithDestination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []storage.ActionWithDestination
	for _, action := range r.actions {
		dest, ok := r.destinations[action.DestinationID]
		if !ok || dest.UserID != userID {
			continue
		}
		out = append(out, storage.ActionWithDestination{Action: action, Destination: dest})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// KV is a thread-safe in-memory implementation of storage.KV.
// Values are lost on restart.
type KV struct {
	mu   sync.RWMutex
	data map[string]*storage.Envelope
	now  func() time.Time
}

var _ storage.KV = (*KV)(nil)

// NewKV creates an empty in-memory KV.
func NewKV() *KV {
	return NewKVWithClock(time.Now)
}

// NewKVWithClock creates an empty in-memory KV that evaluates ttl against now.
func NewKVWithClock(now func() time.Time) *KV {
	return &KV{data: make(map[string]*storage.Envelope), now: now}
}

// Len returns the number of stored keys, including any not yet reaped.
func (kv *KV) Len() int {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return len(kv.data)
}

func (kv *KV) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	kv.mu.Lock()
	kv.data[key] = storage.Seal(value, ttl, kv.now())
	kv.mu.Unlock()
	return nil
}

func (kv *KV) Get(_ context.Context, key string) ([]byte, error) {
	kv.mu.RLock()
	env, ok := kv.data[key]
	kv.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if env.Expired(kv.now()) {
		kv.mu.Lock()
		// A Put may have replaced the envelope since the read lock was released.
		if kv.data[key] == env {
			delete(kv.data, key)
		}
		kv.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	return append([]byte(nil), env.Value...), nil
}

func (kv *KV) Delete(_ context.Context, key string) error {
	kv.mu.Lock()
	delete(kv.data, key)
	kv.mu.Unlock()
	return nil
}
