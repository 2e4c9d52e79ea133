package service

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	apperrors "github.com/lk2023060901/file-ingest-service/internal/pkg/errors"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/metrics"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/response"
	"go.uber.org/zap"
)

// 记录文件名的取值方式
const (
	RecordNameOriginal = "original" // 客户端上传时的文件名
	RecordNameStored   = "stored"   // 生成的存储名
)

// 请求体在大小上限之外额外允许的 multipart 开销
const multipartOverhead int64 = 1 << 20

// IngestObserver 入库结果观察者
type IngestObserver interface {
	ObserveIngest(result string, size int64)
}

type nopObserver struct{}

func (nopObserver) ObserveIngest(string, int64) {}

// FileService 文件上传 HTTP 接口
type FileService struct {
	uc         *biz.FileUseCase
	blobs      biz.BlobStore
	observer   IngestObserver
	recordName string
	logger     *logger.Logger
}

// Option FileService 可选配置
type Option func(*FileService)

// WithObserver 设置入库结果观察者
func WithObserver(o IngestObserver) Option {
	return func(s *FileService) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithRecordName 设置记录文件名的取值方式
func WithRecordName(mode string) Option {
	return func(s *FileService) {
		if mode == RecordNameStored {
			s.recordName = RecordNameStored
		}
	}
}

func NewFileService(uc *biz.FileUseCase, blobs biz.BlobStore, log *logger.Logger, opts ...Option) *FileService {
	s := &FileService{
		uc:         uc,
		blobs:      blobs,
		observer:   nopObserver{},
		recordName: RecordNameOriginal,
		logger:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes 注册路由
func (s *FileService) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/upload", s.Upload)
	api.GET("/exists", s.Exists)
	api.GET("/files/:id", s.Get)
	api.DELETE("/files/:id", s.Delete)
}

// Upload POST /api/upload
func (s *FileService) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	log := s.logger.WithContext(ctx)

	policy := s.uc.Policy()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, policy.MaxSize+multipartOverhead)

	fh, err := c.FormFile("file")
	if err != nil {
		log.Warn("upload rejected: no file", zap.Error(err))
		s.reject(c, 0)
		return
	}

	f, err := fh.Open()
	if err != nil {
		log.Error("failed to open uploaded part", zap.Error(err))
		s.observer.ObserveIngest(metrics.ResultError, 0)
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrBlobStoreFailed, err.Error()))
		return
	}
	defer f.Close()

	mt, err := declaredMimetype(fh, f)
	if err != nil {
		log.Error("failed to detect mimetype", zap.Error(err))
		s.observer.ObserveIngest(metrics.ResultError, 0)
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrBlobStoreFailed, err.Error()))
		return
	}

	// 校验不通过时不写入 Blob
	if err := policy.Validate(mt, fh.Size); err != nil {
		log.Warn("upload rejected by policy",
			zap.String("filename", fh.Filename),
			zap.String("mimetype", mt),
			zap.Int64("size", fh.Size),
			zap.Error(err),
		)
		s.reject(c, fh.Size)
		return
	}

	blob, err := s.blobs.Save(ctx, fh.Filename, f, fh.Size, mt)
	if err != nil {
		log.Error("failed to store blob", zap.String("filename", fh.Filename), zap.Error(err))
		s.observer.ObserveIngest(metrics.ResultError, fh.Size)
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrBlobStoreFailed, err.Error()))
		return
	}

	name := filepath.Base(fh.Filename)
	if s.recordName == RecordNameStored {
		name = blob.Name
	}

	rec, err := s.uc.Ingest(ctx, &biz.FileDescriptor{
		Filename: name,
		Mimetype: mt,
		Size:     blob.Size,
		Path:     blob.Path,
	})
	if err != nil {
		s.removeBlob(ctx, blob.Path)
		s.observer.ObserveIngest(ingestResult(err), blob.Size)
		response.HandleError(c, toAppError(err))
		return
	}

	s.observer.ObserveIngest(metrics.ResultSuccess, rec.Size)
	response.Created(c, toResponse(rec))
}

// Exists GET /api/exists?file_path=
func (s *FileService) Exists(c *gin.Context) {
	filePath := strings.TrimSpace(c.Query("file_path"))
	if filePath == "" {
		response.ErrorWithCode(c, apperrors.ErrFilePathRequired)
		return
	}

	exists, err := s.uc.Exists(c.Request.Context(), filepath.Base(filePath))
	if err != nil {
		s.logger.WithContext(c.Request.Context()).Error("exists check failed", zap.Error(err))
		response.HandleError(c, toAppError(err))
		return
	}

	response.Success(c, ExistsResponse{Exists: exists})
}

// Get GET /api/files/:id
func (s *FileService) Get(c *gin.Context) {
	rec, err := s.uc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}
	response.Success(c, toResponse(rec))
}

// Delete DELETE /api/files/:id
func (s *FileService) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	rec, err := s.uc.DeleteByID(ctx, c.Param("id"))
	if err != nil {
		response.HandleError(c, toAppError(err))
		return
	}

	s.removeBlob(ctx, rec.Path)
	response.Success(c, toResponse(rec))
}

func (s *FileService) reject(c *gin.Context, size int64) {
	s.observer.ObserveIngest(metrics.ResultRejected, size)
	response.ErrorWithCode(c, apperrors.ErrFileRejected)
}

// removeBlob 尽力删除 Blob，失败只记录日志
func (s *FileService) removeBlob(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.blobs.Remove(context.WithoutCancel(ctx), path); err != nil {
		s.logger.WithContext(ctx).Warn("failed to remove blob",
			zap.String("path", path),
			zap.Error(err),
		)
	}
}

// declaredMimetype 取 part 的 Content-Type，缺失或为 octet-stream 时按内容嗅探
func declaredMimetype(fh *multipart.FileHeader, f multipart.File) (string, error) {
	mt := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if mt != "" && !strings.HasPrefix(strings.ToLower(mt), "application/octet-stream") {
		return mt, nil
	}

	detected, err := mimetype.DetectReader(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return detected.String(), nil
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, biz.ErrValidation):
		return apperrors.New(apperrors.ErrFileRejected)
	case errors.Is(err, biz.ErrDuplicate):
		return apperrors.New(apperrors.ErrFileDuplicate, err.Error())
	case errors.Is(err, biz.ErrFileNotFound):
		return apperrors.New(apperrors.ErrFileNotFound)
	default:
		return apperrors.Wrap(err, apperrors.ErrFileStoreFailed, err.Error())
	}
}

func ingestResult(err error) string {
	switch {
	case errors.Is(err, biz.ErrValidation):
		return metrics.ResultRejected
	case errors.Is(err, biz.ErrDuplicate):
		return metrics.ResultDuplicate
	default:
		return metrics.ResultError
	}
}
