package middleware

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appLogger "github.com/foroescolar/escuela-api/internal/infra/logger"
)

// RequestLoggerOptions tunes the access log middleware.
type RequestLoggerOptions struct {
	// SampleRate is the fraction of successful requests that get logged.
	// Failures and slow requests are always logged.
	SampleRate float64
	// SlowThreshold marks a request slow enough to log regardless of sampling.
	SlowThreshold time.Duration
	// BypassPrefixes lists path prefixes excluded from access logging.
	BypassPrefixes []string
}

// RequestLogger emits access logs with correlation identifiers and masked
// client addresses. Requests that fail or exceed the slow threshold are
// always logged; the rest are sampled.
func RequestLogger(log *zap.Logger, opts RequestLoggerOptions) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SampleRate <= 0 || opts.SampleRate > 1 {
		opts.SampleRate = 1
	}
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = time.Second
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range opts.BypassPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		sampled := rand.Float64() < opts.SampleRate
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if !sampled && status < 400 && latency <= opts.SlowThreshold {
			return
		}

		fields := []zap.Field{
			zap.String("trace_id", GetTraceID(c)),
			zap.String("request_id", requestIDFromContext(c.Request.Context())),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("client_ip", appLogger.MaskIP(c.ClientIP())),
		}

		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user_agent", ua))
		}

		switch {
		case len(c.Errors) > 0:
			log.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
		case status >= 400 || latency > opts.SlowThreshold:
			log.Warn("request completed", fields...)
		default:
			log.Info("request completed", fields...)
		}
	}
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(appLogger.RequestIDKey{}).(string); ok {
		return id
	}
	return ""
}
