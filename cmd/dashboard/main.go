// Package main is the entrypoint of the HeatWatch dashboard server.
//
// It loads configuration, wires the providers, feed, heat synthesizer and
// render hub into one live dashboard session, serves the HTTP/WebSocket API
// and shuts everything down on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"heatwatch/internal/colormap"
	"heatwatch/internal/config"
	"heatwatch/internal/core"
	"heatwatch/internal/dashboard"
	"heatwatch/internal/external"
	"heatwatch/internal/feed"
	"heatwatch/internal/heatfield"
	"heatwatch/internal/regions"
	"heatwatch/internal/render"
	"heatwatch/internal/telemetry"
	"heatwatch/internal/viewmode"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := cfg.NewLogger(out)
	slog.SetDefault(logger)
	logger.Info("heatwatch starting",
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"regions", cfg.Regions.IDs,
		"metrics_backend", cfg.Observability.MetricsBackend,
	)

	a, err := newApp(ctx, cfg, logger, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	return a.serve(ctx)
}

// app is the wired dashboard process.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	session *dashboard.Session
	hub     *render.Hub
	server  *core.Server
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, clock clockwork.Clock) (*app, error) {
	recorder, metricsHandler, err := telemetry.New(ctx, cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	catalog, err := regions.Builtin().Select(cfg.Regions.IDs)
	if err != nil {
		return nil, fmt.Errorf("selecting regions: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Feed.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("loading display timezone: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Providers.HTTPTimeout}
	retry := external.DefaultRetryPolicy()
	retry.MaxRetries = cfg.Providers.MaxRetries
	newBase := func(name string) *external.BaseClient {
		return external.NewBaseClient(httpClient, breakerSettings(name, cfg, catalog.Len()),
			retry, cfg.Providers.UserAgent)
	}

	geometry := regions.NewGeometryStore(regions.GeometryStoreConfig{
		Provider: external.NewGeometryClient(newBase("geometry"), external.GeometryClientConfig{
			BaseURL: cfg.Providers.GeometryBaseURL,
			Logger:  logger,
		}),
		Concurrency: cfg.Feed.FetchConcurrency,
		Recorder:    recorder,
		Logger:      logger,
	})

	temperatures := feed.New(feed.Config{
		Catalog: catalog,
		Provider: external.NewWeatherClient(newBase("weather"), external.WeatherClientConfig{
			BaseURL:  cfg.Providers.WeatherBaseURL,
			APIKey:   cfg.Providers.WeatherAPIKey,
			Timezone: cfg.Providers.WeatherTimezone,
			Logger:   logger,
		}),
		FetchTimeout: cfg.Feed.FetchTimeout,
		Concurrency:  cfg.Feed.FetchConcurrency,
		Clock:        clock,
		Recorder:     recorder,
		Logger:       logger,
	})

	synth := heatfield.New(heatfield.Config{
		Catalog:         catalog,
		PointsPerRegion: cfg.Heat.PointsPerRegion,
		Jitter:          cfg.Heat.JitterDegrees,
		MinFactor:       cfg.Heat.IntensityMinFactor,
		MaxFactor:       cfg.Heat.IntensityMaxFactor,
		TempMin:         cfg.Heat.TempMin,
		TempMax:         cfg.Heat.TempMax,
		DefaultTemp:     cfg.Heat.DefaultTemp,
		Rand:            heatfield.NewRand(cfg.Heat.Seed),
	})

	hub := render.NewHub(render.Config{
		Display:        heatfield.DefaultDisplayOptions(),
		AllowedOrigins: cfg.Server.CorsAllowedOrigins,
		Recorder:       recorder,
		Logger:         logger,
	})

	session := dashboard.New(dashboard.Config{
		Catalog:       catalog,
		Geometry:      geometry,
		Feed:          temperatures,
		Synthesizer:   synth,
		Modes:         viewmode.New(),
		Mapper:        colormap.NewMapper(),
		Surface:       hub,
		PollInterval:  cfg.Feed.PollInterval,
		HeatInterval:  cfg.Feed.HeatInterval,
		ClockInterval: cfg.Feed.ClockInterval,
		Location:      loc,
		Clock:         clock,
		Recorder:      recorder,
		Logger:        logger,
	})
	hub.Bind(session)

	srv, err := core.NewServer(cfg, session, hub, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metricsHandler
	srv.HealthProbes = []core.HealthProbe{
		core.SessionProbe{Dashboard: session},
		core.FreshnessProbe{
			Dashboard: session,
			MaxAge:    3*cfg.Feed.PollInterval + cfg.Feed.FetchTimeout,
			Clock:     clock,
		},
	}
	srv.MountRoutes()

	return &app{cfg: cfg, logger: logger, session: session, hub: hub, server: srv}, nil
}

// serve starts the session and the HTTP listener and blocks until ctx is
// cancelled or the listener fails.
// breakerSettings sizes a provider breaker so it never outlives a poll tick
// and lets every region through while half-open.
func breakerSettings(name string, cfg *config.Config, regionCount int) external.BreakerSettings {
	openTimeout := cfg.Providers.BreakerOpenTimeout
	if limit := cfg.Feed.PollInterval / 2; limit > 0 && (openTimeout <= 0 || openTimeout > limit) {
		openTimeout = limit
	}
	return external.BreakerSettings{
		Name:        name,
		MaxFailures: cfg.Providers.BreakerMaxFailures,
		OpenTimeout: openTimeout,
		MaxRequests: max(cfg.Providers.BreakerMaxRequests, uint32(regionCount)),
	}
}

func (a *app) serve(ctx context.Context) error {
	if err := a.session.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer a.session.Stop()

	addr := ":" + a.cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", "addr", addr, "session_id", a.session.ID())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Shutdown does not close hijacked connections; the hub teardown does.
	a.session.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	a.logger.Info("server stopped cleanly")
	return nil
}
