package data

import (
	"context"
	"fmt"

	"github.com/lk2023060901/file-ingest-service/internal/conf"
	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	filedata "github.com/lk2023060901/file-ingest-service/internal/file/data"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/database"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	pkgminio "github.com/lk2023060901/file-ingest-service/internal/pkg/minio"
	pkgmongo "github.com/lk2023060901/file-ingest-service/internal/pkg/mongo"
	pkgredis "github.com/lk2023060901/file-ingest-service/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data 按配置打开的存储组件
type Data struct {
	Repo   biz.FileRepo
	Blobs  biz.BlobStore
	Locker biz.Locker // upload.lock=none 时为 nil

	DB          *database.DB
	MongoClient *pkgmongo.Client
	RedisClient *pkgredis.Client
	MinIOClient *pkgminio.Client
}

// NewData 打开元数据存储、Blob 存储和文件名锁，返回的 cleanup 按逆序关闭
func NewData(ctx context.Context, config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	d := &Data{}
	var closers []func()

	cleanup := func() {
		log.Info("cleaning up data resources")
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Data, func(), error) {
		cleanup()
		return nil, nil, err
	}

	switch config.Storage.MetaStore {
	case conf.MetaStoreMongo:
		mc, err := pkgmongo.New(&config.Mongo, log)
		if err != nil {
			return fail(fmt.Errorf("failed to init mongo: %w", err))
		}
		closers = append(closers, func() {
			if err := mc.Close(context.Background()); err != nil {
				log.Warn("failed to close mongo", zap.Error(err))
			}
		})

		repo := filedata.NewMongoFileRepo(mc, config.Storage.Collection)
		if err := repo.EnsureIndexes(ctx); err != nil {
			return fail(err)
		}
		d.MongoClient = mc
		d.Repo = repo

	default:
		db, err := database.New(&config.Database, log)
		if err != nil {
			return fail(fmt.Errorf("failed to init database: %w", err))
		}
		closers = append(closers, func() {
			if err := db.Close(); err != nil {
				log.Warn("failed to close database", zap.Error(err))
			}
		})

		repo := filedata.NewFileRepo(db).(*filedata.FileRepo)
		if err := repo.Migrate(); err != nil {
			return fail(err)
		}
		d.DB = db
		d.Repo = repo
	}

	switch config.Storage.Backend {
	case conf.BlobBackendMinIO:
		mc, err := pkgminio.NewClient(&config.MinIO, log.Logger)
		if err != nil {
			return fail(fmt.Errorf("failed to init minio: %w", err))
		}
		closers = append(closers, func() { _ = mc.Close() })

		d.MinIOClient = mc
		d.Blobs = filedata.NewMinIOBlobStore(mc, config.Storage.Bucket, config.Storage.Prefix)

	default:
		d.Blobs = filedata.NewLocalBlobStore(nil, config.Storage.Root)
	}

	if err := d.Blobs.EnsureRoot(ctx); err != nil {
		return fail(fmt.Errorf("failed to prepare blob storage: %w", err))
	}

	switch config.Upload.Lock {
	case conf.LockRedis:
		rc, err := pkgredis.New(&config.Redis, log)
		if err != nil {
			return fail(fmt.Errorf("failed to init redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })

		d.RedisClient = rc
		d.Locker = filedata.NewRedisLocker(rc, config.Upload.LockTTL, log)
	case conf.LockLocal:
		d.Locker = filedata.NewLocalLocker()
	}

	log.Info("data layer initialized",
		zap.String("meta_store", config.Storage.MetaStore),
		zap.String("blob_backend", config.Storage.Backend),
		zap.String("lock", config.Upload.Lock),
	)
	return d, cleanup, nil
}
