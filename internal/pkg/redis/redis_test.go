package redis

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestClient(t *testing.T) *Client {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	cfg := DefaultConfig()
	cfg.Addr = addr

	client, err := New(cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default", mutate: func(c *Config) {}},
		{name: "missing addr", mutate: func(c *Config) { c.Addr = "" }, wantErr: true},
		{name: "db out of range", mutate: func(c *Config) { c.DB = 16 }, wantErr: true},
		{name: "zero pool", mutate: func(c *Config) { c.PoolSize = 0 }, wantErr: true},
		{name: "idle exceeds pool", mutate: func(c *Config) { c.MinIdleConns = 20 }, wantErr: true},
		{name: "zero dial timeout", mutate: func(c *Config) { c.DialTimeout = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestLockUnlock(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	key := "test:lock:" + t.Name()

	token, err := client.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = client.Lock(ctx, key, 5*time.Second)
	assert.True(t, errors.Is(err, ErrLockHeld))

	assert.ErrorIs(t, client.Unlock(ctx, key, "someone-else"), ErrLockExpired)
	require.NoError(t, client.Unlock(ctx, key, token))

	// 释放后可以重新获取
	token, err = client.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, client.Unlock(ctx, key, token))
}

func TestTryLock_Exclusive(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	key := "test:lock:exclusive"

	var (
		wg      sync.WaitGroup
		holders atomic.Int32
		peak    atomic.Int32
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := client.TryLock(ctx, key, 5*time.Second, 100, 10*time.Millisecond)
			if !assert.NoError(t, err) {
				return
			}
			n := holders.Add(1)
			for {
				m := peak.Load()
				if n <= m || peak.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			holders.Add(-1)
			assert.NoError(t, client.Unlock(ctx, key, token))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), peak.Load())
}
