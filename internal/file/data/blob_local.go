package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	"github.com/spf13/afero"
)

// ErrSizeMismatch 写入字节数与声明大小不一致
var ErrSizeMismatch = errors.New("blob size mismatch")

// LocalBlobStore 本地目录存储，文件系统可替换为 afero.MemMapFs 用于测试
type LocalBlobStore struct {
	fs   afero.Fs
	root string
	now  func() time.Time
}

// NewLocalBlobStore 创建本地存储，fs 为 nil 时使用操作系统文件系统
func NewLocalBlobStore(fs afero.Fs, root string) *LocalBlobStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &LocalBlobStore{fs: fs, root: filepath.Clean(root), now: time.Now}
}

func (s *LocalBlobStore) EnsureRoot(_ context.Context) error {
	if err := s.fs.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create upload root %s: %w", s.root, err)
	}
	return nil
}

// Save 先写临时文件再重命名，避免留下半截文件
func (s *LocalBlobStore) Save(ctx context.Context, originalName string, r io.Reader, size int64, _ string) (*biz.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmp, err := afero.TempFile(s.fs, s.root, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
	}

	written, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to write blob: %w", err)
	}
	if size >= 0 && written != size {
		cleanup()
		return nil, fmt.Errorf("%w: wrote %d bytes, expected %d", ErrSizeMismatch, written, size)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return nil, fmt.Errorf("failed to close blob: %w", err)
	}

	name := GenerateName(s.now(), originalName)
	dst := filepath.Join(s.root, name)
	if err := s.fs.Rename(tmpName, dst); err != nil {
		_ = s.fs.Remove(tmpName)
		return nil, fmt.Errorf("failed to move blob into place: %w", err)
	}

	return &biz.Blob{Name: name, Path: dst, Size: written}, nil
}

// Remove 删除 root 下的文件，不存在视为成功
func (s *LocalBlobStore) Remove(_ context.Context, path string) error {
	clean := filepath.Clean(path)
	rel, err := filepath.Rel(s.root, clean)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside upload root", path)
	}

	if err := s.fs.Remove(clean); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}
