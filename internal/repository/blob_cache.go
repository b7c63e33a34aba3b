package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DeclCast/internal/domain/models"
	"DeclCast/pkg/cache"
)

var errLockBusy = errors.New("model key is locked by another writer")

// CacheBlobStore keeps blobs in a cache backend (redis or memory). Writers take
// a short-lived lock key so concurrent saves of one model never interleave.
type CacheBlobStore struct {
	c       cache.Service
	lockTTL time.Duration
	retries int
	backoff time.Duration
}

func NewCacheBlobStore(c cache.Service, lockTTL time.Duration) *CacheBlobStore {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &CacheBlobStore{c: c, lockTTL: lockTTL, retries: 50, backoff: 20 * time.Millisecond}
}

func blobKey(key string) string { return cache.GenerateKey("model", key) }
func lockKey(key string) string { return cache.GenerateKey("lock", key) }

func (s *CacheBlobStore) Put(ctx context.Context, key string, blob []byte) error {
	if err := s.lock(ctx, key); err != nil {
		return err
	}
	defer s.c.Unlock(context.WithoutCancel(ctx), lockKey(key))

	if err := s.c.Set(ctx, blobKey(key), blob, 0); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (s *CacheBlobStore) lock(ctx context.Context, key string) error {
	for i := 0; i <= s.retries; i++ {
		ok, err := s.c.TryLock(ctx, lockKey(key), s.lockTTL)
		if err != nil {
			return fmt.Errorf("cache lock: %w", err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
	return fmt.Errorf("%s: %w", key, errLockBusy)
}

func (s *CacheBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	if err := s.c.Get(ctx, blobKey(key), &out); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return out, nil
}

func (s *CacheBlobStore) Close() error { return s.c.Close() }
