package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
	assert.Equal(t, MetaStoreSQL, cfg.Storage.MetaStore)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, BlobBackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.Root)
	assert.Equal(t, ByteSize(5*1024*1024), cfg.Upload.MaxSize)
	assert.Contains(t, cfg.Upload.AllowedTypes, "image/")
	assert.Equal(t, "original", cfg.Upload.RecordName)
	assert.Equal(t, ByteSize(10*1024*1024), cfg.Uploader.MaxSize)
	assert.Equal(t, []string{".jpg", ".png", ".pdf", ".docx"}, cfg.Uploader.Extensions)
	assert.Equal(t, 1, cfg.Uploader.Retry.MaxAttempts)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 8080
storage:
  backend: minio
  bucket: files
upload:
  max_size: 2MiB
  lock: none
uploader:
  endpoint: http://files.internal/api
  timeout: 5s
  retry:
    max_attempts: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("FILESVC_SERVER_PORT", "9090")
	t.Setenv("FILESVC_UPLOADER_MAX_SIZE", "1 MB")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "env overrides file")
	assert.Equal(t, BlobBackendMinIO, cfg.Storage.Backend)
	assert.Equal(t, "files", cfg.Storage.Bucket)
	assert.Equal(t, ByteSize(2*1024*1024), cfg.Upload.MaxSize)
	assert.Equal(t, LockNone, cfg.Upload.Lock)
	assert.Equal(t, ByteSize(1000*1000), cfg.Uploader.MaxSize)
	assert.Equal(t, "http://files.internal/api", cfg.Uploader.Endpoint)
	assert.Equal(t, 5*time.Second, cfg.Uploader.Timeout)
	assert.Equal(t, 3, cfg.Uploader.Retry.MaxAttempts)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown meta store", env: map[string]string{"FILESVC_STORAGE_META_STORE": "cassandra"}},
		{name: "unknown backend", env: map[string]string{"FILESVC_STORAGE_BACKEND": "ftp"}},
		{name: "unknown lock", env: map[string]string{"FILESVC_UPLOAD_LOCK": "zookeeper"}},
		{name: "bad record name", env: map[string]string{"FILESVC_UPLOAD_RECORD_NAME": "both"}},
		{name: "bad byte size", env: map[string]string{"FILESVC_UPLOAD_MAX_SIZE": "lots"}},
		{name: "bad port", env: map[string]string{"FILESVC_SERVER_PORT": "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
