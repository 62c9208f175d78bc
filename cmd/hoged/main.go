package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"github.com/Paulumo/System-Remaster-sub001/internal/api"
	"github.com/Paulumo/System-Remaster-sub001/internal/auth"
	"github.com/Paulumo/System-Remaster-sub001/internal/cache"
	"github.com/Paulumo/System-Remaster-sub001/internal/chart"
	"github.com/Paulumo/System-Remaster-sub001/internal/dataset"
	"github.com/Paulumo/System-Remaster-sub001/internal/metrics"
	"github.com/Paulumo/System-Remaster-sub001/internal/perf"
	"github.com/Paulumo/System-Remaster-sub001/internal/stream"
	"github.com/Paulumo/System-Remaster-sub001/internal/table"
	"github.com/Paulumo/System-Remaster-sub001/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("HOGE_LOG_LEVEL")),
	}))

	addr := os.Getenv("HOGE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	datasetFile := os.Getenv("HOGE_DATASET_FILE")
	store := dataset.NewStore()
	loadDataset(logger, store, datasetFile)

	renderer := chart.NewRenderer(nil, nil)
	if err := renderer.Layout.Validate(); err != nil {
		logger.Error("invalid chart layout", "error", err)
		os.Exit(1)
	}

	unit := loadDisplayUnit(logger)

	tableCfg := loadTableConfig(logger)
	tables := table.NewGenerator(tableCfg.workers, tableCfg.maxCells, logger.With("component", "table"))
	metrics.SetTableWorkers(tables.Workers())

	renderCache := cache.NewRenderCache(loadCacheConfig(logger), logger.With("component", "cache"))

	streamCfg := loadStreamConfig(logger)
	streamCfg.DefaultUnit = unit
	streamHandler := stream.NewHandler(store, renderer, streamCfg, logger)

	srv := api.NewServer(addr, logger, authCfg, api.Deps{
		Store:       store,
		Renderer:    renderer,
		Tables:      tables,
		Cache:       renderCache,
		Stream:      streamHandler,
		Web:         web.Content,
		DefaultUnit: unit,
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGHUP reloads the dataset file; cached images belong to the old one.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-hup:
				if loadDataset(logger, store, datasetFile) {
					renderCache.Flush()
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		logger.Info("starting server", "addr", addr, "auth_enabled", authCfg.Enabled, "display_unit", unit)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadDataset loads path, falling back to the embedded dataset when path is
// empty or nothing is loaded yet. It reports whether a new dataset is live.
func loadDataset(logger *slog.Logger, store *dataset.Store, path string) bool {
	l, err := store.Reload(path)
	if err != nil && path != "" {
		logger.Error("failed to load dataset file", "path", path, "error", err)
		if store.Ready() {
			return false
		}
		logger.Warn("falling back to embedded dataset")
		l, err = store.Reload("")
	}
	if err != nil {
		logger.Error("failed to load embedded dataset", "error", err)
		return false
	}

	metrics.SetDatasetCurves(l.Family.Len())
	metrics.SetDatasetLoaded(l.LoadedAt)
	lo, hi := l.Family.AltitudeSpan()
	logger.Info("dataset loaded",
		"name", l.Dataset.Name,
		"source", l.Source,
		"curves", l.Family.Len(),
		"oat_min", l.Family.MinOAT(),
		"oat_max", l.Family.MaxOAT(),
		"altitude_min_ft", lo*perf.FeetPerThousand,
		"altitude_max_ft", hi*perf.FeetPerThousand,
		"wind_levels", l.Wind.Levels(),
	)
	return true
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("HOGE_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("HOGE_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("HOGE_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("HOGE_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadDisplayUnit(logger *slog.Logger) perf.DisplayUnit {
	v := os.Getenv("HOGE_DISPLAY_UNIT")
	u, err := perf.ParseDisplayUnit(v)
	if err != nil {
		logger.Warn("invalid HOGE_DISPLAY_UNIT value, using default", "value", v, "default", perf.UnitKg)
		return perf.UnitKg
	}
	return u
}

type tableConfig struct {
	workers  int
	maxCells int
}

func loadTableConfig(logger *slog.Logger) tableConfig {
	cfg := tableConfig{
		workers:  runtime.NumCPU(),
		maxCells: 10000,
	}

	if v := os.Getenv("HOGE_TABLE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid HOGE_TABLE_WORKERS value, using default", "value", v, "default", cfg.workers)
		} else {
			cfg.workers = n
		}
	}

	if v := os.Getenv("HOGE_TABLE_MAX_CELLS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid HOGE_TABLE_MAX_CELLS value, using default", "value", v, "default", cfg.maxCells)
		} else {
			cfg.maxCells = n
		}
	}

	logger.Info("table config",
		"workers", cfg.workers,
		"max_cells", cfg.maxCells,
	)

	return cfg
}

func loadCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		TTL:        300 * time.Second,
		MaxEntries: 1000,
	}

	if v := os.Getenv("HOGE_RENDER_CACHE_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid HOGE_RENDER_CACHE_TTL value, using default", "value", v, "default", 300)
		} else {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("HOGE_RENDER_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			logger.Warn("invalid HOGE_RENDER_CACHE_MAX_ENTRIES value, using default", "value", v, "default", cfg.MaxEntries)
		} else {
			cfg.MaxEntries = n
		}
	}

	logger.Info("cache config",
		"ttl_seconds", cfg.TTL.Seconds(),
		"max_entries", cfg.MaxEntries,
	)

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		MaxTotal:           1000,
		KeepaliveInterval:  30 * time.Second,
	}

	var errs error
	if v := os.Getenv("HOGE_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = multierr.Append(errs, errors.New("HOGE_STREAM_MAX_CONCURRENT must be a positive integer"))
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("HOGE_STREAM_MAX_TOTAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = multierr.Append(errs, errors.New("HOGE_STREAM_MAX_TOTAL must be a positive integer"))
		} else {
			cfg.MaxTotal = n
		}
	}

	if v := os.Getenv("HOGE_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = multierr.Append(errs, errors.New("HOGE_STREAM_KEEPALIVE_INTERVAL must be a positive number of seconds"))
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("HOGE_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			errs = multierr.Append(errs, errors.New("HOGE_TRUST_PROXY must be a boolean value"))
		} else {
			cfg.TrustProxy = trust
		}
	}

	for _, err := range multierr.Errors(errs) {
		logger.Warn("invalid stream setting, using default", "error", err)
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"max_total", cfg.MaxTotal,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
