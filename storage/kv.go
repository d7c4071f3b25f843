package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// KV is a flat key-value store used for short-lived records such as
// sign-in sessions. Backends honour ttl on a best-effort basis; a ttl of
// zero keeps the value until it is deleted.
type KV interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns ErrNotFound if the key is absent or its ttl has elapsed.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// PutJSON marshals v and stores it under key.
func PutJSON(ctx context.Context, kv KV, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", key, err)
	}
	return kv.Put(ctx, key, data, ttl)
}

// GetJSON loads the value stored under key and unmarshals it into a T.
func GetJSON[T any](ctx context.Context, kv KV, key string) (*T, error) {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshalling %s: %w", key, err)
	}
	return &v, nil
}
