// Package server exposes the dashboard over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/agentic-research/dashlens/internal/dashboard"
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// maxRequestBody bounds JSON request bodies, including dashboard imports.
const maxRequestBody = 4 << 20

// Options configures a Server.
type Options struct {
	Manager   *dashboard.Manager
	Formatter *format.Formatter
	Logger    *zap.Logger
	// Registry receives the HTTP metrics and is served on /metrics. Nil uses
	// a private registry.
	Registry *prometheus.Registry
}

// Server routes API requests to a dashboard.Manager.
type Server struct {
	dash     *dashboard.Manager
	fm       *format.Formatter
	logger   *zap.Logger
	reg      *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	mux      *http.ServeMux
}

// New builds a Server with all routes registered.
func New(opts Options) *Server {
	s := &Server{
		dash:   opts.Manager,
		fm:     opts.Formatter,
		logger: opts.Logger,
		reg:    opts.Registry,
		mux:    http.NewServeMux(),
	}
	if s.fm == nil {
		s.fm = format.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.reg == nil {
		s.reg = prometheus.NewRegistry()
	}
	factory := promauto.With(s.reg)
	s.requests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dashlens",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})
	s.duration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dashlens",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.handle("POST /api/test", s.handleTest)
	s.handle("GET /api/preview", s.handlePreview)

	s.handle("GET /api/widgets", s.handleListWidgets)
	s.handle("POST /api/widgets", s.handleCreateWidget)
	s.handle("POST /api/widgets/refresh", s.handleRefreshAll)
	s.handle("POST /api/widgets/reorder", s.handleReorder)
	s.handle("GET /api/widgets/{id}", s.handleGetWidget)
	s.handle("PUT /api/widgets/{id}", s.handleUpdateWidget)
	s.handle("DELETE /api/widgets/{id}", s.handleDeleteWidget)
	s.handle("POST /api/widgets/{id}/refresh", s.handleRefreshWidget)
	s.handle("POST /api/widgets/{id}/endpoint", s.handleSwitchEndpoint)
	s.handle("GET /api/widgets/{id}/render", s.handleRenderWidget)

	s.handle("GET /api/dashboard/export", s.handleExport)
	s.handle("POST /api/dashboard/import", s.handleImport)

	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("OPTIONS /api/", respondToOptions)
}

// handle registers pattern with CORS headers and request metrics.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	labels := prometheus.Labels{"route": pattern}
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		genericHeaders(w, r)
		h(w, r)
	})
	handler = promhttp.InstrumentHandlerCounter(s.requests.MustCurryWith(labels), handler)
	handler = promhttp.InstrumentHandlerDuration(s.duration.MustCurryWith(labels), handler)
	s.mux.Handle(pattern, handler)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for up to shutdownTimeout. Hooks run after the listener stops accepting,
// in order.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration, hooks ...func(context.Context) error) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, shutdownTimeout, hooks...)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration, hooks ...func(context.Context) error) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("serving", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	s.logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(sctx)
	for i, h := range hooks {
		if herr := h(sctx); herr != nil {
			s.logger.Warn("shutdown hook failed", zap.Int("hook", i), zap.Error(herr))
		}
	}
	if serr := <-errc; serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", serr)
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func genericHeaders(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
	}
}

func respondToOptions(w http.ResponseWriter, r *http.Request) {
	genericHeaders(w, r)
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}
