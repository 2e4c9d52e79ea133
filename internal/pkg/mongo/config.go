package mongo

import (
	"errors"
	"time"
)

// Config MongoDB 连接配置
type Config struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "file_upload",
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    100,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.URI == "" {
		return errors.New("mongo: uri is required")
	}
	if c.Database == "" {
		return errors.New("mongo: database is required")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("mongo: connect_timeout must be > 0")
	}
	return nil
}
