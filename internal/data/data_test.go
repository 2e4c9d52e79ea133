package data

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/lk2023060901/file-ingest-service/internal/conf"
	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewData_SQLiteAndLocal(t *testing.T) {
	dir := t.TempDir()

	cfg, err := conf.Load("")
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(dir, "files.db")
	cfg.Storage.Root = filepath.Join(dir, "uploads")

	ctx := context.Background()
	d, cleanup, err := NewData(ctx, cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, d.DB)
	assert.Nil(t, d.MongoClient)
	assert.Nil(t, d.RedisClient)
	assert.NotNil(t, d.Locker)
	assert.DirExists(t, cfg.Storage.Root)

	blob, err := d.Blobs.Save(ctx, "a.pdf", bytes.NewReader([]byte("%PDF")), 4, "application/pdf")
	require.NoError(t, err)
	assert.FileExists(t, blob.Path)

	uc := biz.NewFileUseCase(d.Repo, biz.DefaultPolicy(), logger.NewNop(), biz.WithLocker(d.Locker))
	rec, err := uc.Ingest(ctx, &biz.FileDescriptor{Filename: "a.pdf", Mimetype: "application/pdf", Size: 4, Path: blob.Path})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
}

func TestNewData_NoLock(t *testing.T) {
	dir := t.TempDir()

	cfg, err := conf.Load("")
	require.NoError(t, err)
	cfg.Database.Path = filepath.Join(dir, "files.db")
	cfg.Storage.Root = filepath.Join(dir, "uploads")
	cfg.Upload.Lock = conf.LockNone

	d, cleanup, err := NewData(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, d.Locker)
}
