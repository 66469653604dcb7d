package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/korjavin/dricalc/internal/api"
	"github.com/korjavin/dricalc/internal/auth"
	"github.com/korjavin/dricalc/internal/calc"
	"github.com/korjavin/dricalc/internal/dataset"
	"github.com/korjavin/dricalc/internal/metrics"
	"github.com/korjavin/dricalc/internal/middleware"
	"github.com/korjavin/dricalc/internal/store"
	"github.com/korjavin/dricalc/internal/visits"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dataDir := os.Getenv("DATA_DIR")
	sourcesFile := os.Getenv("SOURCES_FILE")
	if dataDir == "" && sourcesFile == "" {
		slog.Error("DATA_DIR or SOURCES_FILE environment variable is required")
		os.Exit(1)
	}

	apiKeys := auth.ParseAPIKeys(os.Getenv("API_KEYS"))
	if len(apiKeys) == 0 {
		slog.Warn("API_KEYS not set: all requests will be accepted without authentication")
	}

	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "*"
	}

	rps := envFloat("RATE_LIMIT_RPS", 100)
	burst := int(envFloat("RATE_LIMIT_BURST", 20))

	s, manifest, load, err := openData(dataDir, sourcesFile)
	if err != nil {
		slog.Error("failed to open data", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	// The dataset is loaded once and shared read-only by every request.
	cache := dataset.NewCache(load)
	ds, err := cache.Get()
	if err != nil {
		slog.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	slog.Info("dataset loaded",
		"records", ds.Len(),
		"nutrients", len(ds.NutrientColumns()),
		"sources", ds.Sources(),
	)

	counter, closeCounter := newCounter()
	defer closeCounter()
	tracker := visits.NewTracker(counter, 3*time.Second, logger)

	reg := metrics.NewRegistry()
	mux := http.NewServeMux()
	h := &api.Handler{
		Calc:     calc.New(ds),
		Store:    s,
		Manifest: manifest,
		Visits:   tracker,
	}
	api.RegisterRoutes(mux, apiKeys, h, reg)

	// Middleware chain (outer to inner): Logging → CORS → RateLimit → Session → mux
	handler := middleware.Chain(
		mux,
		middleware.Logging(logger),
		middleware.CORS(corsOrigins),
		middleware.RateLimit(rps, burst),
		middleware.Session(tracker),
	)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exited")
}

// openData opens the snapshot in dataDir when set. Otherwise it reads the
// raw sources and builds an in-memory store so suggestions still work.
func openData(dataDir, sourcesFile string) (*store.Store, *store.Manifest, func() (*dataset.Dataset, error), error) {
	if dataDir != "" {
		slog.Info("opening store", "data_dir", dataDir)
		s, err := store.OpenReadOnly(dataDir)
		if err != nil {
			return nil, nil, nil, err
		}

		manifest, err := store.ReadManifest(dataDir)
		if err != nil {
			slog.Warn("manifest not found or unreadable", "error", err)
			manifest = nil
		} else {
			slog.Info("manifest loaded",
				"schema_version", manifest.SchemaVersion,
				"record_count", manifest.RecordCount,
				"build_time", manifest.BuildTime,
			)
			if manifest.SchemaVersion != store.SchemaVersion() {
				_ = s.Close()
				return nil, nil, nil, fmt.Errorf("snapshot schema version %d, want %d: re-run the importer",
					manifest.SchemaVersion, store.SchemaVersion())
			}
		}
		return s, manifest, s.LoadDataset, nil
	}

	slog.Info("loading sources", "sources_file", sourcesFile)
	srcs, err := dataset.LoadSourcesFile(sourcesFile)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := store.OpenMem()
	if err != nil {
		return nil, nil, nil, err
	}
	load := func() (*dataset.Dataset, error) {
		ds, stats, err := dataset.Load(srcs)
		if err != nil {
			return nil, err
		}
		if stats.SkippedTotal() > 0 {
			slog.Info("rows skipped while loading", "skipped", stats.Skipped)
		}
		if err := s.PutDataset(ds); err != nil {
			return nil, fmt.Errorf("index dataset: %w", err)
		}
		return ds, nil
	}
	return s, nil, load, nil
}

// newCounter picks the visit counter: Redis, then the HTTP counter service,
// then none. The returned func releases it.
func newCounter() (visits.Counter, func()) {
	if url := os.Getenv("REDIS_URL"); url != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := visits.NewRedisCounter(ctx, url)
		if err != nil {
			slog.Warn("redis visit counter unavailable", "error", err)
			return visits.Noop{}, func() {}
		}
		slog.Info("visit counter", "backend", "redis")
		return rc, func() { _ = rc.Close() }
	}
	hitURL, totalURL := os.Getenv("VISIT_HIT_URL"), os.Getenv("VISIT_TOTAL_URL")
	if hitURL != "" || totalURL != "" {
		slog.Info("visit counter", "backend", "http")
		return visits.NewHTTPCounter(hitURL, totalURL), func() {}
	}
	return visits.Noop{}, func() {}
}

func envFloat(name string, def float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		slog.Warn("ignoring invalid value", "env", name, "value", raw)
		return def
	}
	return v
}
