package data

import (
	"context"
	"sync"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	pkgredis "github.com/lk2023060901/file-ingest-service/internal/pkg/redis"
	"go.uber.org/zap"
)

// LocalLocker 进程内按键互斥锁，锁对象按引用计数回收
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*refLock)}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &refLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(key, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.unref(key, lk)
		})
	}, nil
}

func (l *LocalLocker) unref(key string, lk *refLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// RedisLocker 基于 Redis 租约的跨进程文件名锁
type RedisLocker struct {
	client     *pkgredis.Client
	prefix     string
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
	logger     *logger.Logger
}

// NewRedisLocker 创建分布式锁，ttl 为租约时长
func NewRedisLocker(client *pkgredis.Client, ttl time.Duration, log *logger.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client:     client,
		prefix:     "filesvc:lock:filename:",
		ttl:        ttl,
		retries:    50,
		retryDelay: 20 * time.Millisecond,
		logger:     log,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.prefix + key
	token, err := l.client.TryLock(ctx, lockKey, l.ttl, l.retries, l.retryDelay)
	if err != nil {
		return nil, err
	}

	return func() {
		if err := l.client.Unlock(context.WithoutCancel(ctx), lockKey, token); err != nil {
			// 租约过期时唯一索引仍会拦截重复写入
			l.logger.Warn("failed to release filename lock", zap.String("key", lockKey), zap.Error(err))
		}
	}, nil
}
