package data

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	pkgredis "github.com/lk2023060901/file-ingest-service/internal/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker()

	var (
		wg      sync.WaitGroup
		holders int32
		maxSeen int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(context.Background(), "a.pdf")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			n := atomic.AddInt32(&holders, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&holders, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Zero(t, l.size(), "idle keys must be released")
}

func TestLocalLocker_IndependentKeys(t *testing.T) {
	l := NewLocalLocker()

	releaseA, err := l.Acquire(context.Background(), "a.pdf")
	require.NoError(t, err)
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := l.Acquire(ctx, "b.pdf")
	require.NoError(t, err)
	releaseB()
}

func TestLocalLocker_ContextCanceled(t *testing.T) {
	l := NewLocalLocker()

	release, err := l.Acquire(context.Background(), "a.pdf")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "a.pdf")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // 重复释放无副作用
	assert.Zero(t, l.size())
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis locker tests")
	}

	cfg := pkgredis.DefaultConfig()
	cfg.Addr = addr
	client, err := pkgredis.New(cfg, logger.NewNop())
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLocker(client, 2*time.Second, logger.NewNop())
	l.retries = 2
	l.retryDelay = 10 * time.Millisecond

	key := "locker-test-" + time.Now().Format("150405.000000")
	release, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)

	_, err = l.Acquire(context.Background(), key)
	assert.ErrorIs(t, err, pkgredis.ErrLockHeld)

	release()

	release2, err := l.Acquire(context.Background(), key)
	require.NoError(t, err)
	release2()
}
