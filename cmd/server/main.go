package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/file-ingest-service/internal/conf"
	"github.com/lk2023060901/file-ingest-service/internal/data"
	"github.com/lk2023060901/file-ingest-service/internal/file/biz"
	"github.com/lk2023060901/file-ingest-service/internal/file/service"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/metrics"
	"github.com/lk2023060901/file-ingest-service/internal/server"
	"go.uber.org/zap"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

func main() {
	flag.Parse()

	// Load configuration
	config, err := conf.Load(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully", zap.String("file", *configFile))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize data layer
	d, cleanup, err := data.NewData(ctx, config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Initialize use case
	var ucOpts []biz.UseCaseOption
	if d.Locker != nil {
		ucOpts = append(ucOpts, biz.WithLocker(d.Locker))
	}
	policy := biz.Policy{
		MaxSize:      int64(config.Upload.MaxSize),
		AllowedTypes: config.Upload.AllowedTypes,
	}
	fileUseCase := biz.NewFileUseCase(d.Repo, policy, log.Named("file"), ucOpts...)

	// Initialize service
	m := metrics.New("filesvc")
	fileService := service.NewFileService(fileUseCase, d.Blobs, log.Named("http"),
		service.WithObserver(m),
		service.WithRecordName(config.Upload.RecordName),
	)

	gin.SetMode(gin.ReleaseMode)
	httpServer := server.NewHTTPServer(config.Server, log, m, fileService)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down server...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
