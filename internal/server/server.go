// Package server exposes the widget panel operations as a JSON HTTP API.
//
// Routes:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /api/events                     websocket stream of registry changes
//	GET    /api/widgets?origin=local|remote&q=
//	POST   /api/widgets                    create an empty local widget
//	POST   /api/widgets/local/next         load the next local page
//	POST   /api/widgets/remote/refresh     reload the remote snapshot
//	GET    /api/trees/{origin}
//	GET    /api/widgets/{id}
//	DELETE /api/widgets/{id}               drop a local widget
//	PUT    /api/widgets/{id}/source
//	POST   /api/widgets/{id}/copy
//	POST   /api/widgets/{id}/instances
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/widgets/internal/instantiate"
	"github.com/vango-dev/widgets/internal/metrics"
	"github.com/vango-dev/widgets/internal/registry"
)

// Options configures a Server.
type Options struct {
	Registry   *registry.Registry
	Dispatcher *instantiate.Dispatcher

	// Gatherer serves /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Server is the HTTP admin API.
type Server struct {
	registry   *registry.Registry
	dispatcher *instantiate.Dispatcher
	gatherer   prometheus.Gatherer
	metrics    *metrics.Metrics
	logger     *slog.Logger
	events     *eventHub
	router     chi.Router
}

// New creates a Server and subscribes it to registry changes.
func New(opts Options) *Server {
	s := &Server{
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		gatherer:   opts.Gatherer,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.events = newEventHub(s.logger)
	s.registry.Subscribe(s.events.publish)
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/events", s.events.serveWS)
		r.Get("/trees/{origin}", s.getTree)

		r.Route("/widgets", func(r chi.Router) {
			r.Get("/", s.listWidgets)
			r.Post("/", s.addWidget)
			r.Post("/local/next", s.loadNextLocal)
			r.Post("/remote/refresh", s.refreshRemote)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getWidget)
				r.Delete("/", s.deleteWidget)
				r.Put("/source", s.putSource)
				r.Post("/copy", s.copyWidget)
				r.Post("/instances", s.instantiate)
			})
		})
	})
	return r
}

// observe logs each request and records its route, status and duration.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		s.metrics.RecordHTTPRequest(route, status, elapsed)

		attrs := []any{
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		}
		if sc := trace.SpanContextFromContext(r.Context()); sc.HasTraceID() {
			attrs = append(attrs, "trace_id", sc.TraceID().String())
		}
		s.logger.Debug("http request", attrs...)
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("widget api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.events.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
