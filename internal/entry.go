// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/aggregate"
	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/fetch"
	"github.com/starford/laguz/internal/geodata"
	"github.com/starford/laguz/internal/mapping"
	"github.com/starford/laguz/internal/render"
	"github.com/starford/laguz/internal/snapshot"
	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/watch"
)

func setup(opts []Option) (*Config, *slog.Logger, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logOut := app.logOut
	if logOut == nil {
		logOut = os.Stdout
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("start_date", cfg.Data.StartDate),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("charts_dir", cfg.Charts.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	return cfg, logger, nil
}

// Retrieve downloads the static datasets and the daily snapshot files from
// the configured start date through today.
func Retrieve(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	retriever := fetch.NewRetriever(cfg.Data.BaseURL, cfg.Data.Dir, logger)
	return retriever.Run(ctx, snapshot.RangeUntilToday(cfg.Data.Start()))
}

// Load populates the SQLite geography store from the country datasets and
// boundary GeoJSON files in the data directory.
func Load(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	loader := geodata.NewLoader(cfg.Data.Dir, db, mapping.New(logger), logger)
	if err := loader.LoadCountryData(); err != nil {
		return fmt.Errorf("load country data: %w", err)
	}
	return loader.LoadBoundaryPoints()
}

// Render builds the snapshot index and renders the cumulative chart frames
// for every entity plus the world aggregate. Frames already on disk are
// left alone, so repeated runs only draw what the newest data added.
func Render(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	return renderAll(cfg, logger)
}

func renderAll(cfg *Config, logger *slog.Logger) error {
	if err := os.MkdirAll(cfg.Charts.Dir, 0o755); err != nil {
		return fmt.Errorf("create charts dir: %w", err)
	}

	loader := snapshot.NewLoader(cfg.Data.Dir, mapping.New(logger), logger)
	idx, err := loader.Load(snapshot.RangeUntilToday(cfg.Data.Start()))
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	if len(idx) == 0 {
		logger.Warn("render: no observations indexed, nothing to draw")
		return nil
	}

	renderer := render.NewRenderer(cfg.Charts.Dir, cfg.Charts.TicksDivisor, cfg.Charts.Animate, logger)

	for _, loc := range idx.Entities() {
		if _, err := renderer.RenderEntity(loc, render.EntitySeries(idx, loc)); err != nil {
			return fmt.Errorf("render %s/%s: %w", loc.Country, loc.Subregion, err)
		}
	}

	global := aggregate.Reduce(idx)
	if _, err := renderer.RenderEntity(render.WorldEntity, render.WorldSeries(global)); err != nil {
		return fmt.Errorf("render world: %w", err)
	}

	logger.Info("render: pipeline complete",
		slog.Int("entities", len(idx.Entities())),
		slog.Int("dates", len(idx.Dates())))
	return nil
}

// Watch observes the data directory and re-runs the render pipeline when
// new daily snapshot files arrive.
func Watch(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watch.Run(ctx, cfg.Data.Dir, logger, func() error {
		return renderAll(cfg, logger)
	})
}

// Serve starts the HTTP API over the geography store.
func Serve(ctx context.Context, opts ...Option) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Build API service and router.
	svc := api.NewService(db)
	apiRouter := api.NewRouter(svc)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
