package logger

import (
	"errors"
	"slices"
	"strings"
)

var (
	validLevels  = []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	validFormats = []string{"json", "console"}
	validOutputs = []string{"console", "stderr", "file", "both"}
)

// Config 日志配置
type Config struct {
	Level            string     `mapstructure:"level"`  // debug, info, warn, error
	Format           string     `mapstructure:"format"` // json, console
	Output           string     `mapstructure:"output"` // console, stderr, file, both
	File             FileConfig `mapstructure:"file"`
	EnableCaller     bool       `mapstructure:"enablecaller"`
	EnableStacktrace bool       `mapstructure:"enablestacktrace"`
}

// FileConfig 文件输出配置（lumberjack 轮转）
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"` // MB
	MaxAge     int    `mapstructure:"maxage"`  // days
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig 默认配置：json 输出到控制台
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		EnableCaller:     true,
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/file-ingest.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

// Validate 校验日志配置
func (c *Config) Validate() error {
	if !slices.Contains(validLevels, strings.ToLower(c.Level)) {
		return errors.New("invalid log level, must be one of: " + strings.Join(validLevels, ", "))
	}
	if !slices.Contains(validFormats, c.Format) {
		return errors.New("invalid log format, must be 'json' or 'console'")
	}
	if !slices.Contains(validOutputs, c.Output) {
		return errors.New("invalid log output, must be 'console', 'stderr', 'file' or 'both'")
	}

	if c.Output == "console" || c.Output == "stderr" {
		return nil
	}

	switch {
	case c.File.Filename == "":
		return errors.New("log file filename is required when output is 'file' or 'both'")
	case c.File.MaxSize <= 0:
		return errors.New("log file maxsize must be greater than 0")
	case c.File.MaxAge <= 0:
		return errors.New("log file maxage must be greater than 0")
	case c.File.MaxBackups < 0:
		return errors.New("log file maxbackups must be greater than or equal to 0")
	}
	return nil
}
