package regions

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"heatwatch/internal/external"
	"heatwatch/internal/telemetry"
	"heatwatch/internal/types"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/sync/errgroup"
)

// LoadReport summarizes a geometry load.
type LoadReport struct {
	Requested int
	Loaded    []types.RegionID
	Failed    []types.RegionID
	Duration  time.Duration
}

// GeometryStoreConfig configures a GeometryStore.
type GeometryStoreConfig struct {
	Provider external.GeometryProvider
	// Concurrency bounds simultaneous fetches; <= 0 means one per region.
	Concurrency int
	Recorder    telemetry.Recorder
	Logger      *slog.Logger
}

// GeometryStore fetches region boundaries once per session and caches the
// resulting FeatureCollection.
type GeometryStore struct {
	provider    external.GeometryProvider
	concurrency int
	recorder    telemetry.Recorder
	logger      *slog.Logger

	once       sync.Once
	collection *geojson.FeatureCollection
	report     LoadReport
}

// NewGeometryStore creates a store around the provider.
func NewGeometryStore(cfg GeometryStoreConfig) *GeometryStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = telemetry.Noop{}
	}
	return &GeometryStore{
		provider:    cfg.Provider,
		concurrency: cfg.Concurrency,
		recorder:    recorder,
		logger:      logger,
	}
}

// Load fetches one geometry per id and returns them as features whose "id"
// property is the region id, in the order of ids. Regions whose fetch fails
// or whose document is malformed are logged and left out; there is no retry.
//
// Only the first call fetches. Later calls return the cached collection and
// report regardless of ids.
func (s *GeometryStore) Load(ctx context.Context, ids []types.RegionID) (*geojson.FeatureCollection, LoadReport) {
	s.once.Do(func() {
		s.collection, s.report = s.fetchAll(ctx, ids)
	})
	return s.collection, s.report
}

func (s *GeometryStore) fetchAll(ctx context.Context, ids []types.RegionID) (*geojson.FeatureCollection, LoadReport) {
	start := time.Now()
	features := make([]*geojson.Feature, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for i, id := range ids {
		g.Go(func() error {
			geom, err := s.provider.FetchGeometry(gctx, id)
			s.recorder.RecordFetch(gctx, types.ProviderGeometry, id, telemetry.ResultOf(err))
			if err != nil {
				s.logger.WarnContext(gctx, "region geometry unavailable, omitting region",
					"region", string(id),
					"error", err,
				)
				return nil
			}

			f := geojson.NewFeature(geom)
			f.ID = string(id)
			f.Properties["id"] = string(id)
			f.BBox = geojson.NewBBox(geom.Bound())
			features[i] = f
			return nil
		})
	}
	_ = g.Wait()

	fc := geojson.NewFeatureCollection()
	report := LoadReport{Requested: len(ids)}
	for i, f := range features {
		if f == nil {
			report.Failed = append(report.Failed, ids[i])
			continue
		}
		fc.Append(f)
		report.Loaded = append(report.Loaded, ids[i])
	}
	report.Duration = time.Since(start)

	s.logger.InfoContext(ctx, "region geometry loaded",
		"requested", report.Requested,
		"loaded", len(report.Loaded),
		"failed", len(report.Failed),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return fc, report
}
