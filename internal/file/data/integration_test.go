package data

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	pkgminio "github.com/lk2023060901/file-ingest-service/internal/pkg/minio"
	pkgmongo "github.com/lk2023060901/file-ingest-service/internal/pkg/mongo"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMongoFileRepo(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if testing.Short() || uri == "" {
		t.Skip("set TEST_MONGO_URI to run mongo repository tests")
	}

	cfg := pkgmongo.DefaultConfig()
	cfg.URI = uri
	cfg.Database = "file_upload_test"
	client, err := pkgmongo.New(cfg, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	collection := "files_" + time.Now().Format("20060102150405")
	repo := NewMongoFileRepo(client, collection)
	t.Cleanup(func() {
		_ = client.DB().Collection(collection).Drop(ctx)
		_ = client.Close(ctx)
	})
	require.NoError(t, repo.EnsureIndexes(ctx))

	rec := &biz.FileRecord{Filename: "a.pdf", Mimetype: "application/pdf", Size: 3, Path: "p", UploadDate: time.Now()}
	require.NoError(t, repo.Create(ctx, rec))
	assert.Len(t, rec.ID, 24)

	err = repo.Create(ctx, &biz.FileRecord{Filename: "a.pdf", Mimetype: "application/pdf", Size: 3, Path: "q", UploadDate: time.Now()})
	assert.ErrorIs(t, err, biz.ErrDuplicate)

	found, err := repo.GetByFilename(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, found.ID)

	invalid, err := repo.GetByID(ctx, "not-an-object-id")
	assert.NoError(t, err)
	assert.Nil(t, invalid)

	deleted, err := repo.DeleteByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", deleted.Filename)

	deleted, err = repo.DeleteByID(ctx, rec.ID)
	assert.NoError(t, err)
	assert.Nil(t, deleted)
}

func TestMinIOBlobStore(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if testing.Short() || endpoint == "" {
		t.Skip("set TEST_MINIO_ENDPOINT to run minio blob store tests")
	}

	client, err := pkgminio.NewClient(&pkgminio.Config{
		Endpoint:        endpoint,
		AccessKeyID:     os.Getenv("TEST_MINIO_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
	}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	store := NewMinIOBlobStore(client, "file-ingest-test", "/uploads/")
	require.NoError(t, store.EnsureRoot(ctx))

	content := []byte("\x89PNG fake")
	blob, err := store.Save(ctx, "pic.png", bytes.NewReader(content), int64(len(content)), "image/png")
	require.NoError(t, err)
	assert.Regexp(t, `^uploads/\d+-\d+\.png$`, blob.Path)

	raw, err := minio.New(endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(os.Getenv("TEST_MINIO_ACCESS_KEY"), os.Getenv("TEST_MINIO_SECRET_KEY"), ""),
	})
	require.NoError(t, err)
	info, err := raw.StatObject(ctx, "file-ingest-test", blob.Path, minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, int64(len(content)), info.Size)

	require.NoError(t, store.Remove(ctx, blob.Path))
	assert.NoError(t, store.Remove(ctx, blob.Path))
}
