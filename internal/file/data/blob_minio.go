package data

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	pkgminio "github.com/lk2023060901/file-ingest-service/internal/pkg/minio"
)

// MinIOBlobStore 对象存储实现，Path 为 bucket 内的对象名
type MinIOBlobStore struct {
	client *pkgminio.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewMinIOBlobStore 创建对象存储
func NewMinIOBlobStore(client *pkgminio.Client, bucket, prefix string) *MinIOBlobStore {
	return &MinIOBlobStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    time.Now,
	}
}

func (s *MinIOBlobStore) EnsureRoot(ctx context.Context) error {
	return s.client.EnsureBucket(ctx, s.bucket)
}

func (s *MinIOBlobStore) Save(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (*biz.Blob, error) {
	name := GenerateName(s.now(), originalName)
	key := name
	if s.prefix != "" {
		key = path.Join(s.prefix, name)
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload blob: %w", err)
	}
	if size >= 0 && info.Size != size {
		_ = s.client.RemoveObject(context.WithoutCancel(ctx), s.bucket, key)
		return nil, fmt.Errorf("%w: stored %d bytes, expected %d", ErrSizeMismatch, info.Size, size)
	}

	return &biz.Blob{Name: name, Path: key, Size: info.Size}, nil
}

func (s *MinIOBlobStore) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key); err != nil && !pkgminio.IsNotFound(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}
