package workerpool

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed   = errors.New("worker pool is closed")
	ErrPoolOverload = errors.New("worker pool is overloaded")
)

// Config Worker Pool 配置
type Config struct {
	Workers        int           // 并发 worker 数量
	MaxBlocking    int           // 阻塞等待的最大提交数，0 表示不限制
	NonBlocking    bool          // 无空闲 worker 时立即返回 ErrPoolOverload
	ExpiryDuration time.Duration // 空闲 worker 回收间隔
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:        4,
		ExpiryDuration: 10 * time.Second,
	}
}

// Statistics 任务统计
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成
	Panicked  int64 // 发生 panic
	Rejected  int64 // 提交被拒绝
}

type counters struct {
	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	rejected  atomic.Int64
}

// Pool 基于 ants 的 worker pool
type Pool struct {
	pool   *ants.Pool
	stats  *counters
	logger *logger.Logger
}

// New 创建 Worker Pool
func New(config *Config, log *logger.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("invalid worker count %d", config.Workers)
	}

	stats := &counters{}
	antsPool, err := ants.NewPool(config.Workers,
		ants.WithNonblocking(config.NonBlocking),
		ants.WithMaxBlockingTasks(config.MaxBlocking),
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPanicHandler(func(err interface{}) {
			stats.panicked.Add(1)
			log.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}

	return &Pool{
		pool:   antsPool,
		stats:  stats,
		logger: log,
	}, nil
}

// Submit 提交任务；池已关闭或过载时返回错误，任务不会执行
func (p *Pool) Submit(task func()) error {
	err := p.pool.Submit(func() {
		defer p.stats.completed.Add(1)
		task()
	})
	switch {
	case err == nil:
		p.stats.submitted.Add(1)
		return nil
	case errors.Is(err, ants.ErrPoolClosed):
		p.stats.rejected.Add(1)
		return ErrPoolClosed
	case errors.Is(err, ants.ErrPoolOverload):
		p.stats.rejected.Add(1)
		return ErrPoolOverload
	default:
		p.stats.rejected.Add(1)
		return err
	}
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.stats.submitted.Load(),
		Completed: p.stats.completed.Load(),
		Panicked:  p.stats.panicked.Load(),
		Rejected:  p.stats.rejected.Load(),
	}
}

// Shutdown 关闭并等待运行中的任务结束，timeout 为 0 时不等待
func (p *Pool) Shutdown(timeout time.Duration) error {
	var err error
	if timeout <= 0 {
		p.pool.Release()
	} else {
		err = p.pool.ReleaseTimeout(timeout)
	}

	stats := p.Stats()
	p.logger.Debug("worker pool stopped",
		zap.Int64("submitted", stats.Submitted),
		zap.Int64("completed", stats.Completed),
		zap.Int64("panicked", stats.Panicked),
		zap.Int64("rejected", stats.Rejected),
		zap.Error(err),
	)
	return err
}
