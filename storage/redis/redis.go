// Package redis provides a Redis-backed storage.KV so that sessions can be
// shared by several server instances.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jmcleod/omiassist/storage"
)

// KV implements storage.KV on top of a go-redis client. Keys are namespaced
// with a fixed prefix and ttl is delegated to Redis key expiry.
type KV struct {
	client goredis.UniversalClient
	prefix string
}

var _ storage.KV = (*KV)(nil)

// New wraps an existing client. prefix is prepended to every key.
func New(client goredis.UniversalClient, prefix string) *KV {
	return &KV{client: client, prefix: prefix}
}

// NewFromAddr connects to a single Redis node and verifies the connection.
func NewFromAddr(ctx context.Context, addr, password string, db int, prefix string) (*KV, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return New(client, prefix), nil
}

// Close closes the underlying client.
func (kv *KV) Close() error {
	return kv.client.Close()
}

func (kv *KV) key(key string) string {
	return kv.prefix + key
}

func (kv *KV) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return kv.client.Set(ctx, kv.key(key), value, ttl).Err()
}

func (kv *KV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := kv.client.Get(ctx, kv.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("%s: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (kv *KV) Delete(ctx context.Context, key string) error {
	return kv.client.Del(ctx, kv.key(key)).Err()
}
