package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// 只有持有者（token 一致）才能删除锁
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Lock 获取分布式锁，返回持有者 token
func (c *Client) Lock(ctx context.Context, key string, expiration time.Duration) (string, error) {
	token := uuid.New().String()

	ok, err := c.rdb.SetNX(ctx, key, token, expiration).Result()
	if err != nil {
		c.logger.Error("redis lock failed", zap.String("key", key), zap.Error(err))
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrLockHeld, key)
	}

	c.logger.Debug("redis lock acquired",
		zap.String("key", key),
		zap.Duration("expiration", expiration),
	)
	return token, nil
}

// Unlock 释放分布式锁
func (c *Client) Unlock(ctx context.Context, key, token string) error {
	n, err := unlockScript.Run(ctx, c.rdb, []string{key}, token).Int64()
	if err != nil {
		c.logger.Error("redis unlock failed", zap.String("key", key), zap.Error(err))
		return err
	}
	if n == 0 {
		return ErrLockExpired
	}

	c.logger.Debug("redis lock released", zap.String("key", key))
	return nil
}

// TryLock 带重试地获取锁
func (c *Client) TryLock(ctx context.Context, key string, expiration time.Duration, maxRetries int, retryDelay time.Duration) (string, error) {
	var (
		token string
		err   error
	)
	for i := 0; i <= maxRetries; i++ {
		token, err = c.Lock(ctx, key, expiration)
		if err == nil {
			return token, nil
		}
		if i == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	c.logger.Warn("redis trylock failed after retries",
		zap.String("key", key),
		zap.Int("retries", maxRetries),
		zap.Error(err),
	)
	return "", fmt.Errorf("failed to acquire lock after %d retries: %w", maxRetries, err)
}
