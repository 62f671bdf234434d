package web

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// HeaderRequestID is the header name for request ID.
	HeaderRequestID = "X-Request-ID"

	// ContextKeyRequestID is the context key for storing the request ID.
	ContextKeyRequestID = "request_id"
)

// setupRouter applies middleware in order (recovery, request ID, logging)
// and registers the routes.
func (s *Server) setupRouter() {
	s.engine.Use(
		recovery(s.logger),
		requestID(),
		logging(s.logger),
	)

	s.engine.GET("/", s.page)
	s.engine.GET("/share", s.shareRedirect)

	internal := s.engine.Group("/-")
	internal.GET("/health", liveness)

	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})))

	apiV1 := s.engine.Group("/api/v1")
	apiV1.GET("/quote", s.apiQuote)
}

// requestID extracts the X-Request-ID header or generates a UUID v4, stores
// it in the gin context and echoes it in the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// getRequestID returns the request ID, or "" before the middleware ran.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyRequestID); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// logging logs completed requests. Paths under /-/ are skipped.
func logging(logger *charmlog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/-/") {
			c.Next()
			return
		}

		start := time.Now()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		level := charmlog.InfoLevel
		if status >= http.StatusInternalServerError {
			level = charmlog.ErrorLevel
		} else if status >= http.StatusBadRequest {
			level = charmlog.WarnLevel
		}

		logger.Log(level, "request completed",
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"bytes", c.Writer.Size(),
		)
	}
}

// recovery turns a panic into a 500 with the standard error envelope.
func recovery(logger *charmlog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					"error", r,
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"request_id", getRequestID(c),
				)
				if !c.Writer.Written() {
					c.AbortWithStatusJSON(http.StatusInternalServerError,
						newErrorResponse(errorCodeInternal, "an internal error occurred"))
				} else {
					c.Abort()
				}
			}
		}()

		c.Next()
	}
}
