// Package web serves the quote widget as a web page, a JSON endpoint and a
// share redirect.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/smtg-ai/quotewidget/metrics"
	"github.com/smtg-ai/quotewidget/quote"
	"github.com/smtg-ai/quotewidget/share"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultFetchTimeout bounds one page's worth of fetching, retries included.
const DefaultFetchTimeout = 30 * time.Second

// Options configures the server.
type Options struct {
	Addr              string
	ReadHeaderTimeout time.Duration

	Fetcher quote.Fetcher
	Retry   quote.RetryPolicy
	// FetchTimeout bounds fetching for a single request. It keeps the
	// unbounded retry policy from holding a request forever.
	FetchTimeout       time.Duration
	ShareBaseURL       string
	LongQuoteThreshold int

	// Metrics may be nil.
	Metrics *metrics.Collector
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
	// Logger defaults to the charm default logger.
	Logger *charmlog.Logger
}

// Server wraps http.Server with Gin and provides graceful shutdown.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	opts       Options
	logger     *charmlog.Logger
}

// New creates the server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("web: a quote fetcher is required")
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.ShareBaseURL == "" {
		opts.ShareBaseURL = share.DefaultBaseURL
	}
	if opts.LongQuoteThreshold <= 0 {
		opts.LongQuoteThreshold = quote.DefaultLongQuoteThreshold
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	logger := opts.Logger
	if logger == nil {
		logger = charmlog.Default()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)

	s := &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           engine,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
		},
		opts:   opts,
		logger: logger,
	}
	s.setupRouter()
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins listening and serving HTTP requests.
// Returns an error channel that will receive any ListenAndServe errors.
// This method is non-blocking.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}

		close(errCh)
	}()

	return errCh
}

// Shutdown gracefully stops the server, waiting for active connections to finish.
// The provided context controls the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
