package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsAllTasks(t *testing.T) {
	p, err := New(&Config{Workers: 3}, logger.NewNop())
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	var (
		wg      sync.WaitGroup
		done    atomic.Int32
		running atomic.Int32
		peak    atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				m := peak.Load()
				if n <= m || peak.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			done.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(20), done.Load())
	assert.LessOrEqual(t, peak.Load(), int32(3))

	stats := p.Stats()
	assert.Equal(t, int64(20), stats.Submitted)
	assert.Eventually(t, func() bool { return p.Stats().Completed == 20 }, time.Second, 5*time.Millisecond)
}

func TestPool_RecoversPanics(t *testing.T) {
	p, err := New(&Config{Workers: 1}, logger.NewNop())
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	require.NoError(t, p.Submit(func() { panic("boom") }))

	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, p.Submit(wg.Done))
	wg.Wait()

	assert.Eventually(t, func() bool { return p.Stats().Panicked == 1 }, time.Second, 5*time.Millisecond)
}

func TestPool_NonBlockingOverload(t *testing.T) {
	p, err := New(&Config{Workers: 1, NonBlocking: true}, logger.NewNop())
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	release := make(chan struct{})
	require.NoError(t, p.Submit(func() { <-release }))

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolOverload)
	close(release)
	assert.Equal(t, int64(1), p.Stats().Rejected)
}

func TestPool_SubmitAfterShutdown(t *testing.T) {
	p, err := New(nil, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, p.Shutdown(0))

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestNew_InvalidWorkers(t *testing.T) {
	_, err := New(&Config{Workers: 0}, logger.NewNop())
	assert.Error(t, err)
}
