package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/jmcleod/omiassist/internal/config"
	"github.com/jmcleod/omiassist/storage"
	bboltstorage "github.com/jmcleod/omiassist/storage/bbolt"
	"github.com/jmcleod/omiassist/storage/memory"
	"github.com/jmcleod/omiassist/storage/postgres"
	redisstorage "github.com/jmcleod/omiassist/storage/redis"
)

const (
	boltFile    = "omiassist.db"
	redisPrefix = "omiassist:"
)

// backends holds the session store and repository the server runs on.
type backends struct {
	kv      storage.KV
	repo    storage.Repository
	closers []func() error
}

// Close releases the backends in reverse order of opening.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// openBackends opens the configured stores. When both use bbolt they share
// one database file, since bbolt holds an exclusive lock on it.
func openBackends(ctx context.Context, cfg config.Config) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	var bolt *bboltstorage.Store
	openBolt := func() (*bboltstorage.Store, error) {
		if bolt != nil {
			return bolt, nil
		}
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		s, err := bboltstorage.NewStoreFromFile(filepath.Join(cfg.DataDir, boltFile), &bbolt.Options{Timeout: time.Second})
		if err != nil {
			return nil, fmt.Errorf("failed to open bbolt storage: %w", err)
		}
		bolt = s
		b.closers = append(b.closers, s.Close)
		return s, nil
	}

	switch cfg.KVBackend {
	case config.BackendMemory:
		b.kv = memory.NewKV()
	case config.BackendBbolt:
		s, err := openBolt()
		if err != nil {
			return nil, err
		}
		b.kv = s
	case config.BackendRedis:
		kv, err := redisstorage.NewFromAddr(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redisPrefix)
		if err != nil {
			return nil, err
		}
		b.kv = kv
		b.closers = append(b.closers, kv.Close)
	default:
		return nil, fmt.Errorf("unknown kv backend %q", cfg.KVBackend)
	}

	switch cfg.RepoBackend {
	case config.BackendMemory:
		b.repo = memory.NewRepository()
	case config.BackendBbolt:
		s, err := openBolt()
		if err != nil {
			return nil, err
		}
		b.repo = s
	case config.BackendPostgres:
		pg, err := postgres.NewRepositoryFromDSN(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		b.repo = pg
		b.closers = append(b.closers, func() error {
			pg.Close()
			return nil
		})
	default:
		return nil, fmt.Errorf("unknown repo backend %q", cfg.RepoBackend)
	}

	return b, nil
}
