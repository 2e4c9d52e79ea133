package conf

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-viper/mapstructure/v2"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/database"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/minio"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/mongo"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/redis"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 FILESVC_SERVER_PORT
const EnvPrefix = "FILESVC"

// 元数据存储
const (
	MetaStoreSQL   = "sql"
	MetaStoreMongo = "mongo"
)

// Blob 存储
const (
	BlobBackendLocal = "local"
	BlobBackendMinIO = "minio"
)

// 文件名锁
const (
	LockNone  = "none"
	LockLocal = "local"
	LockRedis = "redis"
)

// ByteSize 字节数，配置中可写 5MiB、10MB 或整数
type ByteSize int64

type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Log      logger.Config   `mapstructure:"log"`
	Database database.Config `mapstructure:"database"`
	Mongo    mongo.Config    `mapstructure:"mongo"`
	Redis    redis.Config    `mapstructure:"redis"`
	MinIO    minio.Config    `mapstructure:"minio"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Upload   UploadConfig    `mapstructure:"upload"`
	Uploader UploaderConfig  `mapstructure:"uploader"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	MetaStore  string `mapstructure:"meta_store"` // sql, mongo
	Collection string `mapstructure:"collection"`
	Backend    string `mapstructure:"backend"` // local, minio
	Root       string `mapstructure:"root"`
	Bucket     string `mapstructure:"bucket"`
	Prefix     string `mapstructure:"prefix"`
}

type UploadConfig struct {
	MaxSize      ByteSize      `mapstructure:"max_size"`
	AllowedTypes []string      `mapstructure:"allowed_types"`
	RecordName   string        `mapstructure:"record_name"` // original, stored
	Lock         string        `mapstructure:"lock"`        // none, local, redis
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

type UploaderConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	MaxSize     ByteSize      `mapstructure:"max_size"`
	Extensions  []string      `mapstructure:"extensions"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
	Retry       RetryConfig   `mapstructure:"retry"`
}

// RetryConfig MaxAttempts <= 1 表示不重试
type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

// Load 读取配置文件（path 为空时只使用默认值和环境变量）
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		byteSizeHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.maxsize", lc.File.MaxSize)
	v.SetDefault("log.file.maxage", lc.File.MaxAge)
	v.SetDefault("log.file.maxbackups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)
	v.SetDefault("log.enablecaller", lc.EnableCaller)
	v.SetDefault("log.enablestacktrace", lc.EnableStacktrace)

	dc := database.SQLiteConfig("data/files.db")
	v.SetDefault("database.driver", dc.Driver)
	v.SetDefault("database.path", dc.Path)
	v.SetDefault("database.host", dc.Host)
	v.SetDefault("database.port", dc.Port)
	v.SetDefault("database.user", dc.User)
	v.SetDefault("database.password", dc.Password)
	v.SetDefault("database.dbname", dc.DBName)
	v.SetDefault("database.sslmode", dc.SSLMode)
	v.SetDefault("database.timezone", dc.Timezone)
	v.SetDefault("database.maxidleconns", dc.MaxIdleConns)
	v.SetDefault("database.maxopenconns", dc.MaxOpenConns)
	v.SetDefault("database.connmaxlifetime", dc.ConnMaxLifetime)
	v.SetDefault("database.connmaxidletime", dc.ConnMaxIdleTime)
	v.SetDefault("database.loglevel", "warn")
	v.SetDefault("database.slowthreshold", dc.SlowThreshold)
	v.SetDefault("database.preparestmt", dc.PrepareStmt)
	v.SetDefault("database.automigrate", dc.AutoMigrate)

	mc := mongo.DefaultConfig()
	v.SetDefault("mongo.uri", mc.URI)
	v.SetDefault("mongo.database", mc.Database)
	v.SetDefault("mongo.connect_timeout", mc.ConnectTimeout)
	v.SetDefault("mongo.max_pool_size", mc.MaxPoolSize)

	rc := redis.DefaultConfig()
	v.SetDefault("redis.addr", rc.Addr)
	v.SetDefault("redis.username", rc.Username)
	v.SetDefault("redis.password", rc.Password)
	v.SetDefault("redis.db", rc.DB)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.max_retries", rc.MaxRetries)

	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.session_token", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket_lookup", string(minio.BucketLookupAuto))
	v.SetDefault("minio.request_timeout", 30*time.Second)

	v.SetDefault("storage.meta_store", MetaStoreSQL)
	v.SetDefault("storage.collection", "files")
	v.SetDefault("storage.backend", BlobBackendLocal)
	v.SetDefault("storage.root", "uploads")
	v.SetDefault("storage.bucket", "uploads")
	v.SetDefault("storage.prefix", "")

	v.SetDefault("upload.max_size", 5*1024*1024)
	v.SetDefault("upload.allowed_types", []string{
		"image/",
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	})
	v.SetDefault("upload.record_name", "original")
	v.SetDefault("upload.lock", LockLocal)
	v.SetDefault("upload.lock_ttl", 10*time.Second)

	v.SetDefault("uploader.endpoint", "http://localhost:3000/api")
	v.SetDefault("uploader.max_size", 10*1024*1024)
	v.SetDefault("uploader.extensions", []string{".jpg", ".png", ".pdf", ".docx"})
	v.SetDefault("uploader.timeout", 30*time.Second)
	v.SetDefault("uploader.concurrency", 4)
	v.SetDefault("uploader.retry.max_attempts", 1)
	v.SetDefault("uploader.retry.initial_interval", 500*time.Millisecond)
	v.SetDefault("uploader.retry.max_interval", 10*time.Second)
}

// Validate 校验各组件中与当前选择相关的配置
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	switch c.Storage.MetaStore {
	case MetaStoreSQL:
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	case MetaStoreMongo:
		if err := c.Mongo.Validate(); err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
	default:
		return fmt.Errorf("unsupported storage.meta_store %q, must be sql or mongo", c.Storage.MetaStore)
	}

	switch c.Storage.Backend {
	case BlobBackendLocal:
		if c.Storage.Root == "" {
			return errors.New("storage.root is required for the local backend")
		}
	case BlobBackendMinIO:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the minio backend")
		}
	default:
		return fmt.Errorf("unsupported storage.backend %q, must be local or minio", c.Storage.Backend)
	}

	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be > 0")
	}
	if len(c.Upload.AllowedTypes) == 0 {
		return errors.New("upload.allowed_types must not be empty")
	}
	switch c.Upload.RecordName {
	case "original", "stored":
	default:
		return fmt.Errorf("unsupported upload.record_name %q, must be original or stored", c.Upload.RecordName)
	}
	switch c.Upload.Lock {
	case LockNone, LockLocal:
	case LockRedis:
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	default:
		return fmt.Errorf("unsupported upload.lock %q, must be none, local or redis", c.Upload.Lock)
	}

	if c.Uploader.MaxSize <= 0 {
		return errors.New("uploader.max_size must be > 0")
	}
	if c.Uploader.Concurrency <= 0 {
		return errors.New("uploader.concurrency must be > 0")
	}
	return nil
}

func byteSizeHook() mapstructure.DecodeHookFuncType {
	target := reflect.TypeOf(ByteSize(0))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != target || from.Kind() != reflect.String {
			return data, nil
		}
		n, err := humanize.ParseBytes(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid byte size %q: %w", data, err)
		}
		return ByteSize(n), nil
	}
}
