package session

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/jmcleod/omiassist/storage"
)

// expiryGrace keeps a record in the backing KV for a while after its
// deadline so that validation observes and reports the expiry itself.
const expiryGrace = time.Hour

// Store persists session records in a storage.KV. Records are addressed by
// a hash of the session id, so the raw id never appears in the backend.
type Store struct {
	kv storage.KV
}

// NewStore wraps kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

func recordKey(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return "session:" + hex.EncodeToString(sum[:])
}

// Put writes rec, replacing any record with the same id.
func (s *Store) Put(ctx context.Context, rec *Record, now time.Time) error {
	ttl := time.UnixMilli(rec.ExpiresAt).Sub(now) + expiryGrace
	if ttl <= 0 {
		ttl = expiryGrace
	}
	if err := storage.PutJSON(ctx, s.kv, recordKey(rec.ID), rec, ttl); err != nil {
		return fmt.Errorf("%w: put: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Get loads the record for id. It returns ErrSessionNotFound when absent.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := storage.GetJSON[Record](ctx, s.kv, recordKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get: %w", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// Delete removes the record for id if present.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.kv.Delete(ctx, recordKey(id)); err != nil {
		return fmt.Errorf("%w: delete: %w", ErrStoreUnavailable, err)
	}
	return nil
}
