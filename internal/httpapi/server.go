// Package httpapi serves the operator settings API, the reminder list,
// health probes and metrics.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/policydesk/internal/crm"
	"github.com/dmitrymomot/policydesk/internal/dispatch"
	"github.com/dmitrymomot/policydesk/internal/metrics"
	"github.com/dmitrymomot/policydesk/internal/settings"
	"github.com/dmitrymomot/policydesk/pkg/health"
	"github.com/dmitrymomot/policydesk/pkg/logger"
)

// Store is the persistence the API needs.
type Store interface {
	OperatorConfig(ctx context.Context) (*settings.OperatorConfig, error)
	SaveOperatorConfig(ctx context.Context, cfg *settings.OperatorConfig) error
	ListReminders(ctx context.Context, limit int) ([]crm.Reminder, error)
}

// Rescheduler moves the daily dispatch to a new hour and time zone.
// A *scheduler.Scheduler satisfies it, including a nil one.
type Rescheduler interface {
	Reschedule(hour int, loc *time.Location)
	NextRun() time.Time
}

// Server wires the handlers to their dependencies.
type Server struct {
	store     Store
	sched     Rescheduler
	transport dispatch.Transport
	defaults  settings.Defaults
	logger    *slog.Logger
	checks    health.Checks
	metrics   *metrics.Collector
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReadinessCheck adds a named check to /health/ready.
func WithReadinessCheck(name string, fn health.CheckFunc) Option {
	return func(s *Server) {
		s.checks[name] = fn
	}
}

// WithMetrics mounts /metrics and records request metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// New creates a Server. sched may be nil when no scheduler runs in-process.
func New(store Store, sched Rescheduler, transport dispatch.Transport, defaults settings.Defaults, opts ...Option) *Server {
	s := &Server{
		store:     store,
		sched:     sched,
		transport: transport,
		defaults:  defaults,
		logger:    logger.NewNope(),
		checks:    health.Checks{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.recoverer)
	r.Use(middleware.RealIP)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(s.accessLog)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(s.checks, health.WithLogger(s.logger)))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", s.wrap(s.getSettings))
		r.Put("/", s.wrap(s.putSettings))
		r.Post("/test-email", s.wrap(s.sendTestEmail))
	})
	r.Get("/reminders", s.wrap(s.listReminders))

	return r
}

func (s *Server) nextRun() time.Time {
	if s.sched == nil {
		return time.Time{}
	}
	return s.sched.NextRun()
}
