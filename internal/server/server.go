// Package server exposes the signal and backtest over HTTP for a charting
// front end.
package server

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"QuantSuperior/internal/pipeline"
)

const requestIDHeader = "X-Request-ID"

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Report, error)
}

type Server struct {
	runner  Runner
	service string
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a server answering for service. A zero timeout leaves runs
// bounded only by the client connection.
func New(runner Runner, service string, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{runner: runner, service: service, timeout: timeout, logger: logger}
}

// Router configures the Gin router and its routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), s.accessLog())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", s.health)
	r.GET("/api/quant-superior", s.quantSuperior)
	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
