package mongo

import (
	"context"
	"fmt"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Client MongoDB 客户端封装
type Client struct {
	*mongo.Client
	db     *mongo.Database
	config *Config
	logger *logger.Logger
}

// New 连接 MongoDB 并 ping 主节点
func New(cfg *Config, log *logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongo configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	mc, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := mc.Ping(ctx, readpref.Primary()); err != nil {
		_ = mc.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	log.Info("mongo connected successfully", zap.String("database", cfg.Database))

	return &Client{
		Client: mc,
		db:     mc.Database(cfg.Database),
		config: cfg,
		logger: log,
	}, nil
}

// DB 返回配置中指定的数据库
func (c *Client) DB() *mongo.Database {
	return c.db
}

// Close 断开连接
func (c *Client) Close(ctx context.Context) error {
	c.logger.Info("closing mongo connection")
	return c.Client.Disconnect(ctx)
}
