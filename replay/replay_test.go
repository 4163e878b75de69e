package replay_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/openbotauth/botsig/replay"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("First claim wins", func(t *testing.T) {
		store := replay.NewMemory(time.Minute)
		ok, err := store.Claim(ctx, "nonce-1", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = store.Claim(ctx, "nonce-1", time.Minute)
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = store.Claim(ctx, "nonce-2", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, 2, store.Len())
	})

	t.Run("Concurrent claims", func(t *testing.T) {
		store := replay.NewMemory(time.Minute)
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := store.Claim(ctx, "shared", time.Minute)
				if err == nil && ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
	})

	t.Run("Expired nonces can be claimed again", func(t *testing.T) {
		store := replay.NewMemory(time.Minute)
		ok, err := store.Claim(ctx, "short", 0)
		require.NoError(t, err)
		require.True(t, ok)

		require.Eventually(t, func() bool {
			ok, err := store.Claim(ctx, "short", 0)
			return err == nil && ok
		}, 3*time.Second, 100*time.Millisecond)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := replay.NewMemory(0).Claim(cctx, "x", time.Minute)
		require.ErrorIs(t, err, context.Canceled)
	})
}

type fakeRedis struct {
	mu   sync.Mutex
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func TestRedis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client := &fakeRedis{keys: make(map[string]time.Duration)}
	store := replay.NewRedis(client, "botsig:nonce")

	ok, err := store.Claim(ctx, "abc", 300*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 300*time.Second, client.keys["botsig:nonce:abc"])

	ok, err = store.Claim(ctx, "abc", 300*time.Second)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.Claim(ctx, "short", 0)
	require.NoError(t, err)
	require.Equal(t, replay.MinTTL, client.keys["botsig:nonce:short"])

	failing := replay.NewRedis(&fakeRedis{err: errors.New("connection refused")}, "")
	_, err = failing.Claim(ctx, "abc", time.Second)
	require.Error(t, err)
}
