package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/video-gateway/internal/api/auth"
	"github.com/cuongbtq/video-gateway/internal/api/domain"
	"github.com/cuongbtq/video-gateway/internal/api/handler"
	"github.com/cuongbtq/video-gateway/internal/metrics"
)

const (
	// HeaderRequestID carries the request correlation id
	HeaderRequestID = "X-Request-ID"

	contextKeyRequestID = "request_id"
	unmatchedRoute      = "unmatched"
)

// TokenVerifier decides whether a caller token is trusted.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) bool
}

// RequestIDMiddleware reuses an inbound X-Request-ID or generates one
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(contextKeyRequestID, requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)

		c.Next()
	}
}

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		// Calculate latency
		latency := time.Since(start)
		requestID := c.GetString(contextKeyRequestID)

		// Log request details
		logger.Info("HTTP Request",
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
			slog.String("request_id", requestID),
		)

		// Log errors if any
		for _, e := range c.Errors {
			logger.Error("Request error",
				slog.String("error", e.Error()),
				slog.Uint64("type", uint64(e.Type)),
				slog.String("request_id", requestID),
			)
		}
	}
}

// MetricsMiddleware records request counts and latencies per route
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware lets allow-listed paths through and requires every other
// request to carry a token the verifier accepts. The allow-list is copied
// once and never changes afterwards.
func AuthMiddleware(verifier TokenVerifier, allowList []string, logger *slog.Logger) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowList))
	for _, path := range allowList {
		allowed[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := allowed[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(auth.HeaderAuthorization)
		if header == "" {
			handler.RespondError(c, &domain.AuthError{Err: domain.ErrMissingAuthorization})
			return
		}

		token := auth.TokenFromHeader(header)
		if !verifier.Verify(c.Request.Context(), token) {
			logger.Debug("Rejected request with invalid token",
				slog.String("path", c.Request.URL.Path),
			)
			handler.RespondError(c, &domain.AuthError{Err: domain.ErrInvalidToken})
			return
		}

		auth.SetToken(c, token)
		c.Next()
	}
}
