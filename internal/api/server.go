// Package api wires the HTTP routes of the HOGE chart service.
package api

import (
	"bufio"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/Paulumo/System-Remaster-sub001/internal/auth"
	"github.com/Paulumo/System-Remaster-sub001/internal/cache"
	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/dataset"
	"github.com/Paulumo/System-Remaster-sub001/internal/health"
	"github.com/Paulumo/System-Remaster-sub001/internal/metrics"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
	"github.com/Paulumo/System-Remaster-sub001/internal/stream"
	"github.com/Paulumo/System-Remaster-sub001/internal/table"
)

// Deps are the components the routes are served from. Stream and Web may be
// nil, which leaves their routes unregistered.
type Deps struct {
	Store       *dataset.Store
	Renderer    *chart.Renderer
	Tables      *table.Generator
	Cache       *cache.RenderCache
	Stream      *stream.Handler
	Web         fs.FS
	DefaultUnit perf.DisplayUnit
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	if deps.DefaultUnit == "" {
		deps.DefaultUnit = perf.UnitKg
	}

	mux := http.NewServeMux()
	logger = logger.With("component", "api")

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(deps.Store))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/dataset", datasetHandler(deps.Store))
	mux.HandleFunc("GET /api/v1/weight", weightHandler(deps))
	mux.HandleFunc("GET /api/v1/credit", creditHandler(deps.Store))
	mux.HandleFunc("GET /api/v1/curve", curveHandler(deps.Store))
	mux.HandleFunc("GET /api/v1/intersect", intersectHandler(deps.Store))
	mux.HandleFunc("GET /api/v1/overlay", overlayHandler(deps))
	mux.HandleFunc("GET /api/v1/overlay.png", overlayPNGHandler(logger, deps))
	mux.HandleFunc("GET /api/v1/table", tableHandler(logger, deps))

	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/overlay", deps.Stream.HandleOverlay)
	}
	if deps.Web != nil {
		mux.Handle("GET /", http.FileServer(http.FS(deps.Web)))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Hijack lets the stream route upgrade through the logging middleware.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	sr.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
