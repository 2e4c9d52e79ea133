package main

import (
	"errors"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/conf"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/lk2023060901/file-ingest-service/internal/uploader"
	"github.com/spf13/cobra"
)

// errSilent 结果已输出，只需返回非零退出码
var errSilent = errors.New("one or more uploads failed")

type rootOptions struct {
	configFile  string
	endpoint    string
	logLevel    string
	retries     int
	concurrency int
	timeout     time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "uploader",
		Short:         "Upload files to the file ingest service, skipping files that already exist",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file path")
	flags.StringVarP(&opts.endpoint, "endpoint", "e", "", "service API endpoint, e.g. http://localhost:3000/api")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.IntVar(&opts.retries, "retries", 0, "max attempts per file including the first (0 uses config)")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "parallel uploads (0 uses config)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (0 uses config)")

	cmd.AddCommand(newUploadCmd(opts), newCheckCmd(opts))
	return cmd
}

// resolved 合并配置文件、环境变量和命令行参数
type resolved struct {
	cfg *conf.UploaderConfig
	log *logger.Logger
	up  *uploader.Uploader
}

func (o *rootOptions) resolve() (*resolved, error) {
	config, err := conf.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	cfg := config.Uploader

	if o.endpoint != "" {
		cfg.Endpoint = o.endpoint
	}
	if o.retries > 0 {
		cfg.Retry.MaxAttempts = o.retries
	}
	if o.concurrency > 0 {
		cfg.Concurrency = o.concurrency
	}
	if o.timeout > 0 {
		cfg.Timeout = o.timeout
	}

	log, err := logger.CLI(o.logLevel)
	if err != nil {
		return nil, err
	}

	up, err := uploader.New(cfg.Endpoint,
		uploader.WithPolicy(uploader.Policy{MaxSize: int64(cfg.MaxSize), Extensions: cfg.Extensions}),
		uploader.WithTimeout(cfg.Timeout),
		uploader.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return &resolved{cfg: &cfg, log: log, up: up}, nil
}

func (r *resolved) operation() uploader.Operation {
	if r.cfg.Retry.MaxAttempts <= 1 {
		return r.up
	}
	policy := uploader.DefaultRetryPolicy()
	policy.MaxAttempts = r.cfg.Retry.MaxAttempts
	if r.cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = r.cfg.Retry.InitialInterval
	}
	if r.cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = r.cfg.Retry.MaxInterval
	}
	return uploader.WithRetry(r.up, policy, r.log)
}
