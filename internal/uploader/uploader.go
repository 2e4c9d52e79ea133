package uploader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Status 上传结果
type Status int

const (
	StatusSuccess Status = iota
	StatusAlreadyExists
	StatusCheckFailed
	StatusValidationError
	StatusUploadFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAlreadyExists:
		return "already_exists"
	case StatusCheckFailed:
		return "check_failed"
	case StatusValidationError:
		return "validation_error"
	case StatusUploadFailed:
		return "upload_failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// 展示给用户的结果文案
const (
	MsgSuccess       = "File uploaded successfully."
	MsgAlreadyExists = "Error: File already exists on the server."
	MsgCheckFailed   = "Error: Failed to check file existence on server."
)

// Result 一次 UploadUnique 的结果
type Result struct {
	Path    string
	Status  Status
	Message string
	File    *RemoteFile // 仅在上传请求得到响应时有值
	Err     error
}

// OK 是否上传成功
func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// Operation 唯一上传操作，Uploader 和 Retrying 都实现了该接口
type Operation interface {
	UploadUnique(ctx context.Context, localPath string) *Result
}

// Uploader 先查重再上传的客户端
type Uploader struct {
	client *Client
	policy Policy
	fs     afero.Fs
	logger *logger.Logger
}

type config struct {
	fs      afero.Fs
	policy  Policy
	timeout time.Duration
	logger  *logger.Logger
}

// Option Uploader 可选配置
type Option func(*config)

// WithFs 替换本地文件系统
func WithFs(fs afero.Fs) Option {
	return func(c *config) { c.fs = fs }
}

// WithPolicy 替换本地校验策略
func WithPolicy(p Policy) Option {
	return func(c *config) { c.policy = p }
}

// WithTimeout 单次请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *config) { c.logger = l }
}

// New 绑定服务地址创建 Uploader
func New(endpoint string, opts ...Option) (*Uploader, error) {
	cfg := &config{
		fs:      afero.NewOsFs(),
		policy:  DefaultPolicy(),
		timeout: 30 * time.Second,
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := NewClient(endpoint, &http.Client{Timeout: cfg.timeout})
	if err != nil {
		return nil, err
	}

	return &Uploader{
		client: client,
		policy: cfg.policy,
		fs:     cfg.fs,
		logger: cfg.logger,
	}, nil
}

// UploadUnique 本地校验 -> 远端查重 -> 上传 -> 完整性校验
//
// 查重失败时不会上传。
func (u *Uploader) UploadUnique(ctx context.Context, localPath string) *Result {
	log := u.logger.With(zap.String("path", localPath))
	res := &Result{Path: localPath}

	info, err := u.policy.Check(u.fs, localPath)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			res.Message = verr.Message
		} else {
			res.Message = "Error: " + err.Error()
		}
		log.Warn("local validation failed", zap.String("reason", res.Message))
		res.Status = StatusValidationError
		res.Err = err
		return res
	}
	log.Debug("local validation passed", zap.Int64("size", info.Size()))

	exists, err := u.client.Exists(ctx, localPath)
	if err != nil {
		log.Error("existence check failed", zap.Error(err))
		res.Status = StatusCheckFailed
		res.Message = MsgCheckFailed
		res.Err = err
		return res
	}
	if exists {
		log.Info("file already exists on server")
		res.Status = StatusAlreadyExists
		res.Message = MsgAlreadyExists
		return res
	}

	start := time.Now()
	rf, err := u.client.Upload(ctx, u.fs, localPath, info.Size())
	res.File = rf
	// 查重之后被并发写入抢先，服务端按唯一约束拒绝
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		log.Info("file created concurrently on server", zap.String("reason", se.Message))
		res.Status = StatusAlreadyExists
		res.Message = MsgAlreadyExists
		return res
	}
	if err != nil {
		log.Error("upload failed", zap.Error(err))
		res.Status = StatusUploadFailed
		res.Message = "Error: Failed to upload file: " + err.Error()
		res.Err = err
		return res
	}

	log.Info("file uploaded",
		zap.String("id", rf.ID),
		zap.String("remote_path", rf.Path),
		zap.Int64("size", rf.Size),
		zap.Duration("elapsed", time.Since(start)),
	)
	res.Status = StatusSuccess
	res.Message = MsgSuccess
	return res
}
