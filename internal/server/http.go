package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/file-ingest-service/internal/conf"
	"github.com/lk2023060901/file-ingest-service/internal/file/service"
	apperrors "github.com/lk2023060901/file-ingest-service/internal/pkg/errors"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/logger"
	"github.com/lk2023060901/file-ingest-service/internal/pkg/metrics"
	"go.uber.org/zap"
)

// ServiceName /health 中返回的服务名
const ServiceName = "File Upload Service"

type HTTPServer struct {
	server *http.Server
	router *gin.Engine
	logger *logger.Logger
}

func NewHTTPServer(
	config conf.ServerConfig,
	log *logger.Logger,
	m *metrics.Metrics,
	fileService *service.FileService,
) *HTTPServer {
	router := NewRouter(log, m, fileService)

	return &HTTPServer{
		server: &http.Server{
			Addr:              config.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
		},
		router: router,
		logger: log,
	}
}

// NewRouter 组装中间件和路由
func NewRouter(log *logger.Logger, m *metrics.Metrics, fileService *service.FileService) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLoggerWithConfig(log, logger.MiddlewareOptions{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	if m != nil {
		router.Use(m.GinMiddleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   ServiceName,
		})
	})

	fileService.RegisterRoutes(router)

	// path 保留查询串
	router.NoRoute(func(c *gin.Context) {
		c.JSON(apperrors.GetHTTPStatus(apperrors.ErrRouteNotFound), gin.H{
			"error":  apperrors.GetMessage(apperrors.ErrRouteNotFound),
			"path":   c.Request.URL.RequestURI(),
			"method": c.Request.Method,
		})
	})
	return router
}

// Handler 返回底层 http.Handler
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
