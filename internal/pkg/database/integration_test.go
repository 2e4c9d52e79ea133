package database

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres 连接 TEST_DB_HOST 指向的 PostgreSQL，未配置时跳过
func setupPostgres(t *testing.T) *DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}

	cfg := DefaultConfig()
	cfg.Host = host
	if port, err := strconv.Atoi(getEnv("TEST_DB_PORT", "5432")); err == nil {
		cfg.Port = port
	}
	cfg.User = getEnv("TEST_DB_USER", "postgres")
	cfg.Password = getEnv("TEST_DB_PASSWORD", "postgres")
	cfg.DBName = getEnv("TEST_DB_NAME", "postgres")

	db, err := New(cfg, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&uniqueRow{}))
	t.Cleanup(func() {
		db.Exec("DROP TABLE IF EXISTS unique_rows")
		_ = db.Close()
	})
	return db
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func TestPostgresDuplicateKey(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	require.NoError(t, db.WithContext(ctx).Create(&uniqueRow{Name: "dup.pdf"}).Error)

	err := db.WithContext(ctx).Create(&uniqueRow{Name: "dup.pdf"}).Error
	require.Error(t, err)
	assert.True(t, IsDuplicateKeyError(err))
}
