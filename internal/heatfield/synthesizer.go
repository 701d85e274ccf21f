// Package heatfield turns per-region temperatures into a synthetic field of
// weighted sample points for the heat overlay.
package heatfield

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"heatwatch/internal/regions"
	"heatwatch/internal/types"
)

// Source is the read side of a temperature snapshot.
type Source interface {
	Temperature(id types.RegionID) types.Reading
	Known() []types.RegionID
}

// Config parameterizes a Synthesizer. A non-positive PointsPerRegion or
// MaxFactor, or an empty temperature range, falls back to DefaultConfig.
// Jitter and DefaultTemp may legitimately be zero, so they only fall back
// when none of the other parameters were set either.
type Config struct {
	Catalog         *regions.Catalog
	PointsPerRegion int
	// Jitter is the maximum per-axis offset in degrees applied to each point.
	Jitter float64
	// MinFactor and MaxFactor bound the random multiplier of each point's
	// intensity.
	MinFactor   float64
	MaxFactor   float64
	TempMin     float64
	TempMax     float64
	DefaultTemp float64
	// Rand drives every random draw. Nil seeds one from the wall clock.
	Rand *rand.Rand
}

// DefaultConfig returns the field parameters of the dashboard.
func DefaultConfig() Config {
	return Config{
		PointsPerRegion: 200,
		Jitter:          0.1,
		MinFactor:       0.8,
		MaxFactor:       1.2,
		TempMin:         10,
		TempMax:         40,
		DefaultTemp:     20,
	}
}

// NewRand returns a PCG-backed generator. A zero seed draws one from the
// wall clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Synthesizer generates heat points. It is safe for concurrent use.
type Synthesizer struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Synthesizer.
func New(cfg Config) *Synthesizer {
	def := DefaultConfig()
	if cfg.PointsPerRegion <= 0 && cfg.MaxFactor <= 0 && cfg.TempMax <= cfg.TempMin &&
		cfg.Jitter == 0 && cfg.DefaultTemp == 0 {
		cfg.Jitter, cfg.DefaultTemp = def.Jitter, def.DefaultTemp
	}
	if cfg.PointsPerRegion <= 0 {
		cfg.PointsPerRegion = def.PointsPerRegion
	}
	if cfg.MaxFactor <= 0 {
		cfg.MinFactor, cfg.MaxFactor = def.MinFactor, def.MaxFactor
	}
	if cfg.TempMax <= cfg.TempMin {
		cfg.TempMin, cfg.TempMax = def.TempMin, def.TempMax
	}
	rng := cfg.Rand
	if rng == nil {
		rng = NewRand(0)
	}
	return &Synthesizer{cfg: cfg, rng: rng}
}

// Intensity maps a temperature to [0,1]: the normalized position inside
// [TempMin, TempMax], clamped, then squared.
func (s *Synthesizer) Intensity(temp float64) float64 {
	norm := clamp01((temp - s.cfg.TempMin) / (s.cfg.TempMax - s.cfg.TempMin))
	return norm * norm
}

// Generate produces PointsPerRegion points for every catalog region. Regions
// with an unknown reading use DefaultTemp.
func (s *Synthesizer) Generate(src Source) []types.HeatPoint {
	rs := s.cfg.Catalog.Regions()
	points := make([]types.HeatPoint, 0, len(rs)*s.cfg.PointsPerRegion)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rs {
		adjusted := s.Intensity(src.Temperature(r.ID).Or(s.cfg.DefaultTemp))
		b := r.Bounds
		for range s.cfg.PointsPerRegion {
			lat := b.MinLat + s.rng.Float64()*(b.MaxLat-b.MinLat) + s.jitter()
			lon := b.MinLon + s.rng.Float64()*(b.MaxLon-b.MinLon) + s.jitter()
			factor := s.cfg.MinFactor + s.rng.Float64()*(s.cfg.MaxFactor-s.cfg.MinFactor)
			points = append(points, types.HeatPoint{
				Lat:       lat,
				Lon:       lon,
				Intensity: clamp01(adjusted * factor),
			})
		}
	}
	return points
}

// GenerateIfReady is Generate, except that it returns nil while no region has
// ever had a known reading.
func (s *Synthesizer) GenerateIfReady(src Source) []types.HeatPoint {
	if len(src.Known()) == 0 {
		return nil
	}
	return s.Generate(src)
}

// Expected returns the number of points Generate yields.
func (s *Synthesizer) Expected() int {
	return s.cfg.Catalog.Len() * s.cfg.PointsPerRegion
}

// Jitter returns the configured per-axis jitter in degrees.
func (s *Synthesizer) Jitter() float64 { return s.cfg.Jitter }

func (s *Synthesizer) jitter() float64 {
	return (s.rng.Float64() - 0.5) * 2 * s.cfg.Jitter
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
