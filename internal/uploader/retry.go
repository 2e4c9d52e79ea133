package uploader

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"go.uber.org/zap"
)

// RetryPolicy 指数退避参数，MaxAttempts 包含首次执行
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Retrying 对整个 UploadUnique 重试的装饰器
//
// 每次重试都会重新查重，上一次上传成功但响应丢失时结果为 StatusAlreadyExists。
type Retrying struct {
	op     Operation
	policy RetryPolicy
	logger *logger.Logger
}

func WithRetry(op Operation, policy RetryPolicy, log *logger.Logger) *Retrying {
	if log == nil {
		log = logger.NewNop()
	}
	return &Retrying{op: op, policy: policy, logger: log}
}

func (r *Retrying) UploadUnique(ctx context.Context, localPath string) *Result {
	if r.policy.MaxAttempts <= 1 {
		return r.op.UploadUnique(ctx, localPath)
	}

	eb := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		eb.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		eb.MaxInterval = r.policy.MaxInterval
	}
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(r.policy.MaxAttempts-1)), ctx)

	var (
		last    *Result
		attempt int
	)
	_ = backoff.RetryNotify(func() error {
		attempt++
		last = r.op.UploadUnique(ctx, localPath)
		if ctx.Err() != nil || !Retryable(last) {
			return backoff.Permanent(last.Err)
		}
		if last.Err != nil {
			return last.Err
		}
		return errors.New(last.Message)
	}, b, func(err error, wait time.Duration) {
		r.logger.Warn("upload attempt failed, retrying",
			zap.String("path", localPath),
			zap.Int("attempt", attempt),
			zap.String("status", last.Status.String()),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})
	return last
}

// Retryable 判断结果是否值得重试
func Retryable(res *Result) bool {
	if res == nil {
		return false
	}

	var se *StatusError
	isStatus := errors.As(res.Err, &se)

	switch res.Status {
	case StatusCheckFailed:
		// 4xx 说明请求本身有问题
		return !isStatus || se.Code < http.StatusBadRequest || se.Code >= http.StatusInternalServerError
	case StatusUploadFailed:
		if errors.Is(res.Err, ErrIntegrity) {
			return false
		}
		if isStatus {
			return se.Temporary()
		}
		return res.Err != nil && !errors.Is(res.Err, context.Canceled) && !errors.Is(res.Err, context.DeadlineExceeded)
	default:
		return false
	}
}
