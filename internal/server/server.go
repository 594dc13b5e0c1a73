package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wisnuaji/payproof/internal/config"
	"github.com/wisnuaji/payproof/internal/receipt"
	"github.com/wisnuaji/payproof/internal/repository"
	"github.com/wisnuaji/payproof/internal/verify"
)

// Server is the HTTP adapter over the verification pipeline.
type Server struct {
	cfg      config.ServerConfig
	pipeline *verify.Pipeline
	logs     *repository.VerificationLogRepository
	receipts *receipt.Generator
	logger   *zap.Logger
	engine   *gin.Engine
}

// New creates a new HTTP server
func New(cfg config.ServerConfig, pipeline *verify.Pipeline, logs *repository.VerificationLogRepository,
	receipts *receipt.Generator, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		logs:     logs,
		receipts: receipts,
		logger:   logger,
		engine:   gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestLogger())
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/verify", s.handleVerify)
		v1.GET("/verifications/stats", s.handleStats)
	}
}

// HTTPServer builds the net/http server with the configured timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
