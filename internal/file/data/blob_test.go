package data

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateName(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	tests := []struct {
		original string
		pattern  string
	}{
		{original: "report.pdf", pattern: `^1700000000123-\d{1,9}\.pdf$`},
		{original: "Photo.JPG", pattern: `^1700000000123-\d{1,9}\.JPG$`},
		{original: "archive.tar.gz", pattern: `^1700000000123-\d{1,9}\.gz$`},
		{original: "no-extension", pattern: `^1700000000123-\d{1,9}$`},
		{original: "../../etc/passwd", pattern: `^1700000000123-\d{1,9}$`},
		{original: "evil.p/df", pattern: `^1700000000123-\d{1,9}$`},
		{original: "weird.p$d f", pattern: `^1700000000123-\d{1,9}\.pdf$`},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			assert.Regexp(t, regexp.MustCompile(tt.pattern), GenerateName(now, tt.original))
		})
	}
}

func TestGenerateName_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		seen[GenerateName(now, "a.pdf")] = struct{}{}
	}
	assert.Greater(t, len(seen), 990)
}

func newMemBlobStore(t *testing.T) (*LocalBlobStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := NewLocalBlobStore(fs, "/srv/uploads")
	require.NoError(t, store.EnsureRoot(context.Background()))
	return store, fs
}

func TestLocalBlobStore_EnsureRoot(t *testing.T) {
	_, fs := newMemBlobStore(t)

	info, err := fs.Stat("/srv/uploads")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalBlobStore_SaveAndRemove(t *testing.T) {
	store, fs := newMemBlobStore(t)
	ctx := context.Background()
	content := []byte("%PDF-1.4 hello")

	blob, err := store.Save(ctx, "report.pdf", bytes.NewReader(content), int64(len(content)), "application/pdf")
	require.NoError(t, err)
	assert.Regexp(t, `^\d+-\d+\.pdf$`, blob.Name)
	assert.Equal(t, filepath.Join("/srv/uploads", blob.Name), blob.Path)
	assert.Equal(t, int64(len(content)), blob.Size)

	got, err := afero.ReadFile(fs, blob.Path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, store.Remove(ctx, blob.Path))
	exists, err := afero.Exists(fs, blob.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	// 重复删除视为成功
	assert.NoError(t, store.Remove(ctx, blob.Path))
}

func TestLocalBlobStore_SizeMismatch(t *testing.T) {
	store, fs := newMemBlobStore(t)

	_, err := store.Save(context.Background(), "a.png", strings.NewReader("short"), 100, "image/png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeMismatch))

	entries, err := afero.ReadDir(fs, "/srv/uploads")
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial file must remain")
}

func TestLocalBlobStore_RemoveOutsideRoot(t *testing.T) {
	store, fs := newMemBlobStore(t)
	require.NoError(t, afero.WriteFile(fs, "/srv/secret.txt", []byte("x"), 0o644))

	for _, p := range []string{"/srv/secret.txt", "/srv/uploads/../secret.txt", "/srv/uploads"} {
		assert.Error(t, store.Remove(context.Background(), p), p)
	}

	exists, _ := afero.Exists(fs, "/srv/secret.txt")
	assert.True(t, exists)
}

func TestLocalBlobStore_CanceledContext(t *testing.T) {
	store, _ := newMemBlobStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Save(ctx, "a.pdf", strings.NewReader("x"), 1, "application/pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
