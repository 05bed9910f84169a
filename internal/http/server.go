// Package http serves the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kharcha/internal/core"
	"kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/view"
)

// Ledger is the part of the ledger service the API needs.
type Ledger interface {
	Add(ctx context.Context, in core.NewTransaction) (core.Transaction, error)
	Remove(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
	Get(id string) (core.Transaction, bool)
	View(f view.Filter) view.Projection
	Summary() core.Totals
	Months() []string
	Len() int
}

type Server struct {
	http.Server
	ledger      Ledger
	logger      *log.Logger
	metrics     *metrics.Metrics
	rateLimiter *rateLimiter
	ready       func(context.Context) error
	started     time.Time

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithReadiness sets the check behind /readyz.
func WithReadiness(check func(context.Context) error) Option {
	return func(s *Server) {
		s.ready = check
	}
}

// WithRateLimit caps mutating requests per client IP per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.rateLimiter.limit = perMinute
		}
	}
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:      ledger,
		logger:      log.New(log.Config{Component: log.ComponentHTTP}),
		rateLimiter: newRateLimiter(defaultRateLimit),
		started:     time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.route(mux, "GET /api/transactions", s.handleList)
	s.route(mux, "POST /api/transactions", s.handleCreate)
	s.route(mux, "DELETE /api/transactions", s.handleClear)
	s.route(mux, "GET /api/transactions/{id}", s.handleGet)
	s.route(mux, "DELETE /api/transactions/{id}", s.handleDelete)
	s.route(mux, "GET /api/summary", s.handleSummary)
	s.route(mux, "GET /api/months", s.handleMonths)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s
}

// route registers an API handler wrapped in the request middleware. The
// pattern doubles as the metrics route label.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.withRequestContext(pattern, h))
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
