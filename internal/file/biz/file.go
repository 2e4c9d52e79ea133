package biz

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"go.uber.org/zap"
)

// FileRecord 已入库文件的元数据
type FileRecord struct {
	ID         string // 存储层分配的标识，与文件名无关
	Filename   string // 逻辑文件名，全局唯一
	Mimetype   string
	Size       int64
	Path       string // Blob 存储返回的位置
	UploadDate time.Time
}

// FileDescriptor 待入库的文件描述
type FileDescriptor struct {
	Filename string
	Mimetype string
	Size     int64
	Path     string
}

// FileRepo 元数据仓储接口
//
// 查询不到时返回 (nil, nil)；Create 遇到文件名唯一约束冲突时返回包装了 ErrDuplicate 的错误。
type FileRepo interface {
	Create(ctx context.Context, rec *FileRecord) error
	GetByFilename(ctx context.Context, filename string) (*FileRecord, error)
	GetByID(ctx context.Context, id string) (*FileRecord, error)
	DeleteByID(ctx context.Context, id string) (*FileRecord, error)
}

// Blob 已写入 Blob 存储的文件
type Blob struct {
	Name string // 生成的存储名 <timestamp>-<random>.<ext>
	Path string
	Size int64
}

// BlobStore 原始文件存储接口
type BlobStore interface {
	// EnsureRoot 确保存储根目录（或 bucket）存在，进程启动时调用一次
	EnsureRoot(ctx context.Context) error
	Save(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (*Blob, error)
	Remove(ctx context.Context, path string) error
}

// Locker 按文件名加锁，缩小查重与写入之间的竞争窗口
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// FileUseCase 文件入库用例
type FileUseCase struct {
	repo   FileRepo
	policy Policy
	locker Locker
	now    func() time.Time
	logger *logger.Logger
}

// UseCaseOption 用例可选配置
type UseCaseOption func(*FileUseCase)

// WithLocker 启用文件名锁
func WithLocker(l Locker) UseCaseOption {
	return func(uc *FileUseCase) {
		uc.locker = l
	}
}

// WithClock 替换时间源
func WithClock(now func() time.Time) UseCaseOption {
	return func(uc *FileUseCase) {
		uc.now = now
	}
}

// NewFileUseCase 创建文件入库用例
func NewFileUseCase(repo FileRepo, policy Policy, log *logger.Logger, opts ...UseCaseOption) *FileUseCase {
	uc := &FileUseCase{
		repo:   repo,
		policy: policy,
		now:    time.Now,
		logger: log,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Policy 返回当前校验策略
func (uc *FileUseCase) Policy() Policy {
	return uc.policy
}

// Ingest 校验 -> 查重 -> 写入元数据
func (uc *FileUseCase) Ingest(ctx context.Context, fd *FileDescriptor) (*FileRecord, error) {
	log := uc.logger.WithContext(ctx).With(zap.String("filename", fd.Filename))

	if err := uc.policy.Validate(fd.Mimetype, fd.Size); err != nil {
		log.Warn("file rejected by policy",
			zap.String("mimetype", fd.Mimetype),
			zap.Int64("size", fd.Size),
			zap.Error(err),
		)
		return nil, err
	}

	if uc.locker != nil {
		release, err := uc.locker.Acquire(ctx, fd.Filename)
		if err != nil {
			log.Error("failed to acquire filename lock", zap.Error(err))
			return nil, &StoreError{Op: "lock", Err: err}
		}
		defer release()
	}

	existing, err := uc.repo.GetByFilename(ctx, fd.Filename)
	if err != nil {
		log.Error("failed to query existing file", zap.Error(err))
		return nil, &StoreError{Op: "find", Err: err}
	}
	if existing != nil {
		log.Warn("duplicate filename", zap.String("existing_id", existing.ID))
		return nil, &DuplicateError{Filename: fd.Filename}
	}

	rec := &FileRecord{
		Filename:   fd.Filename,
		Mimetype:   fd.Mimetype,
		Size:       fd.Size,
		Path:       fd.Path,
		UploadDate: uc.now().UTC(),
	}
	if err := uc.repo.Create(ctx, rec); err != nil {
		// 并发写入时由唯一索引兜底
		if errors.Is(err, ErrDuplicate) {
			log.Warn("duplicate filename detected by unique index")
			return nil, &DuplicateError{Filename: fd.Filename}
		}
		log.Error("failed to create file record", zap.Error(err))
		return nil, &StoreError{Op: "create", Err: err}
	}

	log.Info("file ingested",
		zap.String("id", rec.ID),
		zap.String("mimetype", rec.Mimetype),
		zap.Int64("size", rec.Size),
		zap.String("path", rec.Path),
	)
	return rec, nil
}

// FindByID 按 ID 查询，不存在返回 ErrFileNotFound
func (uc *FileUseCase) FindByID(ctx context.Context, id string) (*FileRecord, error) {
	rec, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	if rec == nil {
		return nil, ErrFileNotFound
	}
	return rec, nil
}

// DeleteByID 删除并返回被删除的记录，不存在返回 ErrFileNotFound
func (uc *FileUseCase) DeleteByID(ctx context.Context, id string) (*FileRecord, error) {
	rec, err := uc.repo.DeleteByID(ctx, id)
	if err != nil {
		return nil, &StoreError{Op: "delete", Err: err}
	}
	if rec == nil {
		return nil, ErrFileNotFound
	}

	uc.logger.WithContext(ctx).Info("file record deleted",
		zap.String("id", rec.ID),
		zap.String("filename", rec.Filename),
	)
	return rec, nil
}

// Exists 判断文件名是否已入库
func (uc *FileUseCase) Exists(ctx context.Context, filename string) (bool, error) {
	rec, err := uc.repo.GetByFilename(ctx, filename)
	if err != nil {
		return false, &StoreError{Op: "find", Err: err}
	}
	return rec != nil, nil
}
