// Package metrics exposes Prometheus metrics for the HOGE service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoge_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hoge_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoge_queries_total",
			Help: "Performance queries answered, by kind.",
		},
		[]string{"kind"},
	)

	outOfEnvelopeTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hoge_out_of_envelope_total",
			Help: "Weight queries whose inputs were clamped to the chart data.",
		},
	)

	renderDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hoge_render_duration_seconds",
			Help:    "Time to build a chart frame, by output format.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
		[]string{"format"},
	)

	renderCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoge_render_cache_hits_total",
		Help: "PNG render cache hits.",
	})
	renderCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoge_render_cache_misses_total",
		Help: "PNG render cache misses.",
	})
	renderCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hoge_render_cache_entries",
		Help: "Frames currently held by the PNG render cache.",
	})

	tableCellsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoge_table_cells_total",
		Help: "Weight table cells computed.",
	})
	tableWorkersActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hoge_table_workers",
		Help: "Configured weight table workers.",
	})

	datasetCurves = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hoge_dataset_curves",
		Help: "OAT curves in the loaded dataset.",
	})
	datasetLoadedTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hoge_dataset_loaded_timestamp_seconds",
		Help: "Unix time the current dataset was loaded.",
	})

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoge_stream_connections_total",
			Help: "Overlay stream connection attempts, by result.",
		},
		[]string{"result"},
	)
	streamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hoge_streams_active",
		Help: "Open overlay streams.",
	})
	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoge_stream_messages_total",
			Help: "Overlay stream messages sent, by type.",
		},
		[]string{"type"},
	)
	streamBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hoge_stream_bytes_total",
		Help: "Overlay stream bytes sent.",
	})
	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hoge_stream_errors_total",
			Help: "Overlay stream errors, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		queriesTotal,
		outOfEnvelopeTotal,
		renderDurationSeconds,
		renderCacheHits,
		renderCacheMisses,
		renderCacheEntries,
		tableCellsTotal,
		tableWorkersActive,
		datasetCurves,
		datasetLoadedTimestamp,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncQueries counts one answered query of the given kind.
func IncQueries(kind string) { queriesTotal.WithLabelValues(kind).Inc() }

// IncOutOfEnvelope counts one clamped weight query.
func IncOutOfEnvelope() { outOfEnvelopeTotal.Inc() }

// ObserveRender records how long a frame took to build.
func ObserveRender(format string, d time.Duration) {
	renderDurationSeconds.WithLabelValues(format).Observe(d.Seconds())
}

func IncRenderCacheHits() { renderCacheHits.Inc() }
func IncRenderCacheMisses() { renderCacheMisses.Inc() }
func SetRenderCacheEntries(n int) { renderCacheEntries.Set(float64(n)) }
func AddTableCells(n int) { tableCellsTotal.Add(float64(n)) }
func SetTableWorkers(n int) { tableWorkersActive.Set(float64(n)) }
func SetDatasetCurves(n int) { datasetCurves.Set(float64(n)) }
func SetDatasetLoaded(t time.Time) { datasetLoadedTimestamp.Set(float64(t.Unix())) }

// IncStreamConnections counts a stream attempt. result is "accepted",
// "rejected" or "closed".
func IncStreamConnections(result string) { streamConnectionsTotal.WithLabelValues(result).Inc() }

func IncStreamsActive() { streamsActive.Inc() }
func DecStreamsActive() { streamsActive.Dec() }
func IncStreamMessages(kind string) { streamMessagesTotal.WithLabelValues(kind).Inc() }
func AddStreamBytes(n int) { streamBytesTotal.Add(float64(n)) }
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// knownRoutes are the paths recorded under their own label. Everything else
// is recorded as "other" to keep label cardinality bounded.
var knownRoutes = map[string]bool{
	"/":                      true,
	"/index.html":            true,
	"/app.js":                true,
	"/styles.css":            true,
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/dataset":        true,
	"/api/v1/weight":         true,
	"/api/v1/credit":         true,
	"/api/v1/curve":          true,
	"/api/v1/intersect":      true,
	"/api/v1/overlay":        true,
	"/api/v1/overlay.png":    true,
	"/api/v1/table":          true,
	"/api/v1/stream/overlay": true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer so websocket upgrades work
// behind the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
