package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"QuantSuperior/internal/model"
	"QuantSuperior/internal/pipeline"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": s.service})
}

// quantSuperior runs the pipeline for the query
// ?symbol=&period=&limit=&cost_bps=&notify= and renders the chart payload.
func (s *Server) quantSuperior(c *gin.Context) {
	req, err := parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.runner.Run(ctx, req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("quant-superior run failed",
				zap.String("request_id", c.GetString("request_id")),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, buildResponse(report))
}

func parseRequest(c *gin.Context) (pipeline.Request, error) {
	req := pipeline.Request{
		Symbol:  strings.TrimSpace(c.Query("symbol")),
		Period:  strings.TrimSpace(c.Query("period")),
		Trigger: "http",
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return req, fmt.Errorf("limit must be a positive integer, got %q", v)
		}
		req.Limit = n
	}
	if v := c.Query("cost_bps"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, fmt.Errorf("cost_bps must be a number, got %q", v)
		}
		req.CostBps = &f
	}
	if v := c.Query("notify"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("notify must be a boolean, got %q", v)
		}
		req.Notify = b
	}
	return req, nil
}

// statusFor maps pipeline errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInsufficientData), errors.Is(err, model.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrDataIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrSource):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
