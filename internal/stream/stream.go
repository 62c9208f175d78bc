// Package stream serves the live chart overlay over a websocket. Clients
// connect via GET /api/v1/stream/overlay, send one query message per input
// change and receive a complete frame of draw operations for each.
//
// Client message:
//
//	{"oat":15,"altitude_ft":300,"wind":10,"benefit":50,"unit":"kg"}
//
// Server messages:
//
//	{"type":"metadata","dataset":"hoge-reference","oats":[0,10,20,30,40],...}
//	{"type":"frame","seq":1,"frame":{"width":720,"height":900,"ops":[...],"result":{...}}}
//	{"type":"error","seq":2,"error":"unknown weight unit \"st\""}
//
// The first message is always metadata. Ping frames are sent every
// KeepaliveInterval and a peer that stops answering them is dropped.
package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/dataset"
	"github.com/Paulumo/System-Remaster-sub001/internal/httputil"
	"github.com/Paulumo/System-Remaster-sub001/internal/metrics"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int              // Max concurrent streams per IP (default: 10).
	MaxTotal           int              // Max concurrent streams overall (default: 1000).
	KeepaliveInterval  time.Duration    // Ping interval (default: 30s).
	MaxMessageBytes    int64            // Largest accepted client message (default: 4096).
	TrustProxy         bool             // Take the client IP from proxy headers.
	DefaultUnit        perf.DisplayUnit // Unit used when a query names none.
}

// Handler manages overlay websocket connections.
type Handler struct {
	store    *dataset.Store
	renderer *chart.Renderer
	config   Config
	limiter  *streamLimiter
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler. renderer supplies the layout,
// theme and measurer; the curve families come from store on every query.
func NewHandler(store *dataset.Store, renderer *chart.Renderer, config Config, logger *slog.Logger) *Handler {
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	if config.MaxMessageBytes <= 0 {
		config.MaxMessageBytes = 4096
	}
	if config.DefaultUnit == "" {
		config.DefaultUnit = perf.UnitKg
	}
	return &Handler{
		store:    store,
		renderer: renderer,
		config:   config,
		limiter:  newStreamLimiter(config.MaxConcurrentPerIP, config.MaxTotal),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
		logger: logger.With("component", "stream"),
	}
}

// HandleOverlay serves the overlay websocket.
// GET /api/v1/stream/overlay
func (h *Handler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamConnections("rejected")
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}
	defer h.limiter.release(ip)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		metrics.IncStreamErrors("upgrade")
		h.logger.Warn("stream upgrade failed", "remote_ip", ip, "error", err)
		return
	}

	metrics.IncStreamConnections("accepted")
	metrics.IncStreamsActive()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
	)

	c := &client{conn: conn, ip: ip, logger: h.logger}
	defer func() {
		conn.Close()
		metrics.IncStreamConnections("closed")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
			"messages_sent", c.messagesSent,
			"bytes_sent", c.bytesSent,
		)
	}()

	h.serve(r.Context(), c)
}

func (h *Handler) serve(ctx context.Context, c *client) {
	conn := c.conn
	readWait := 2 * h.config.KeepaliveInterval
	conn.SetReadLimit(h.config.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	if err := c.sendJSON("metadata", h.metadata()); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", c.ip, "error", err)
		return
	}

	// The reader goroutine owns all reads; this goroutine owns all writes.
	inbound := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(readWait))
			select {
			case inbound <- data:
			case <-done:
				return
			}
		}
	}()

	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	var seq int64
	for {
		select {
		case <-ctx.Done():
			c.close(websocket.CloseGoingAway, "server shutting down")
			return

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				metrics.IncStreamErrors("read_error")
				h.logger.Warn("stream read error", "remote_ip", c.ip, "error", err)
			}
			return

		case data := <-inbound:
			seq++
			kind, msg := h.answer(seq, data)
			if err := c.sendJSON(kind, msg); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream send error", "remote_ip", c.ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendPing(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", c.ip, "error", err)
				return
			}
		}
	}
}

// answer renders one client query. It returns the message type and payload.
func (h *Handler) answer(seq int64, data []byte) (string, any) {
	q, err := h.decodeQuery(data)
	if err != nil {
		metrics.IncStreamErrors("bad_query")
		return "error", errorMessage{Type: "error", Seq: seq, Error: err.Error()}
	}

	ds := h.store.Get()
	if ds == nil {
		return "error", errorMessage{Type: "error", Seq: seq, Error: "no dataset loaded"}
	}

	start := time.Now()
	frame := h.renderer.With(ds.Family, ds.Wind).Render(q)
	metrics.ObserveRender("stream", time.Since(start))
	metrics.IncQueries("overlay")
	if frame.Result.OutOfEnvelope {
		metrics.IncOutOfEnvelope()
	}
	return "frame", frameMessage{Type: "frame", Seq: seq, Frame: frame}
}

func (h *Handler) decodeQuery(data []byte) (chart.OverlayQuery, error) {
	var q chart.OverlayQuery
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		return q, fmt.Errorf("invalid query: %w", err)
	}

	if q.Unit == "" {
		q.Unit = h.config.DefaultUnit
	}
	unit, err := perf.ParseDisplayUnit(string(q.Unit))
	if err != nil {
		return q, err
	}
	q.Unit = unit

	if !finite(q.OAT) || !finite(q.AltitudeFt) {
		return q, errors.New("oat and altitude_ft must be finite")
	}
	if q.WindSpeed != nil && (!finite(*q.WindSpeed) || *q.WindSpeed < 0) {
		return q, errors.New("wind must be a non-negative number")
	}
	return q, nil
}

func (h *Handler) metadata() metadataMessage {
	meta := metadataMessage{
		Type:   "metadata",
		Layout: h.renderer.Layout,
		Theme:  h.renderer.Theme,
	}
	if ds := h.store.Get(); ds != nil {
		meta.Dataset = ds.Dataset.Name
		meta.Source = ds.Source
		meta.LoadedAt = ds.LoadedAt.UTC().Format(time.RFC3339)
		meta.OATs = ds.Family.OATs()
		meta.WindLevels = ds.Wind.Levels()
	}
	return meta
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Websocket message payload types.

type metadataMessage struct {
	Type       string       `json:"type"`
	Dataset    string       `json:"dataset,omitempty"`
	Source     string       `json:"source,omitempty"`
	LoadedAt   string       `json:"loaded_at,omitempty"`
	OATs       []float64    `json:"oats,omitempty"`
	WindLevels []float64    `json:"wind_levels,omitempty"`
	Layout     chart.Layout `json:"layout"`
	Theme      chart.Theme  `json:"theme"`
}

type frameMessage struct {
	Type  string      `json:"type"`
	Seq   int64       `json:"seq"`
	Frame chart.Frame `json:"frame"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Seq   int64  `json:"seq"`
	Error string `json:"error"`
}
