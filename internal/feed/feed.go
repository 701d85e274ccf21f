// Package feed polls the weather provider for every region and publishes the
// results as immutable snapshots, one per tick.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"heatwatch/internal/external"
	"heatwatch/internal/regions"
	"heatwatch/internal/telemetry"
	"heatwatch/internal/types"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Config configures a TemperatureFeed.
type Config struct {
	Catalog  *regions.Catalog
	Provider external.WeatherProvider
	// FetchTimeout bounds each region's fetch; <= 0 disables the bound.
	FetchTimeout time.Duration
	// Concurrency bounds simultaneous fetches; <= 0 means one per region.
	Concurrency int
	Clock       clockwork.Clock
	Recorder    telemetry.Recorder
	Logger      *slog.Logger
}

// TemperatureFeed gathers one temperature per region per tick.
type TemperatureFeed struct {
	catalog      *regions.Catalog
	provider     external.WeatherProvider
	fetchTimeout time.Duration
	concurrency  int
	clock        clockwork.Clock
	recorder     telemetry.Recorder
	logger       *slog.Logger

	pollMu  sync.Mutex
	mu      sync.RWMutex
	current Snapshot
}

// New creates a TemperatureFeed.
func New(cfg Config) *TemperatureFeed {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = telemetry.Noop{}
	}
	return &TemperatureFeed{
		catalog:      cfg.Catalog,
		provider:     cfg.Provider,
		fetchTimeout: cfg.FetchTimeout,
		concurrency:  cfg.Concurrency,
		clock:        clock,
		recorder:     recorder,
		logger:       logger,
	}
}

// Current returns the latest published snapshot; the zero Snapshot before the
// first Poll.
func (f *TemperatureFeed) Current() Snapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.current
}

// Poll fetches every region's centroid temperature concurrently, waits for
// all fetches to settle and publishes one new snapshot derived from the
// previous one. Per-region failures are logged and recorded in the snapshot,
// never returned. If ctx is cancelled before the gather settles nothing is
// published and the previous snapshot is returned.
func (f *TemperatureFeed) Poll(ctx context.Context) Snapshot {
	f.pollMu.Lock()
	defer f.pollMu.Unlock()

	start := f.clock.Now()
	batchID := uuid.New()
	logger := f.logger.With("batch_id", batchID.String())

	var (
		mu     sync.Mutex
		ok     []types.TemperatureSample
		failed []types.RegionID
	)

	g, gctx := errgroup.WithContext(ctx)
	if f.concurrency > 0 {
		g.SetLimit(f.concurrency)
	}

	for _, region := range f.catalog.Regions() {
		g.Go(func() error {
			fetchCtx := gctx
			if f.fetchTimeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(gctx, f.fetchTimeout)
				defer cancel()
			}

			celsius, err := f.provider.CurrentTemperature(fetchCtx, region.ID, region.Centroid)
			f.recorder.RecordFetch(gctx, types.ProviderWeather, region.ID, telemetry.ResultOf(err))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WarnContext(gctx, "temperature fetch failed, keeping previous value",
					"region", string(region.ID),
					"error", err,
				)
				failed = append(failed, region.ID)
				return nil
			}
			ok = append(ok, types.TemperatureSample{
				Region:    region.ID,
				Celsius:   celsius,
				FetchedAt: f.clock.Now(),
			})
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		logger.DebugContext(ctx, "gather cancelled, batch discarded")
		return f.Current()
	}

	f.mu.Lock()
	snap := f.current.next(batchID, f.clock.Now(), ok, failed)
	f.current = snap
	f.mu.Unlock()

	latency := f.clock.Since(start)
	f.recorder.RecordBatch(ctx, latency, len(failed))
	logger.DebugContext(ctx, "temperature batch published",
		"tick", snap.Tick,
		"succeeded", len(ok),
		"failed", len(failed),
		"duration_ms", latency.Milliseconds(),
	)
	return snap
}
