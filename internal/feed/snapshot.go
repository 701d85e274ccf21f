package feed

import (
	"maps"
	"slices"
	"time"

	"heatwatch/internal/types"

	"github.com/google/uuid"
)

// Snapshot is one immutable published batch of temperature readings. A region
// with no sample is unknown. A region listed in Failed whose sample survives
// from an earlier tick carries a stale but valid value.
type Snapshot struct {
	BatchID     uuid.UUID
	PublishedAt time.Time
	// Tick counts published batches, starting at 1. Zero means no batch yet.
	Tick uint64

	samples map[types.RegionID]types.TemperatureSample
	failed  map[types.RegionID]struct{}
}

// IsZero reports whether no batch has been published yet.
func (s Snapshot) IsZero() bool { return s.Tick == 0 }

// Temperature returns the latest reading for the region, unknown when the
// region has never been fetched successfully.
func (s Snapshot) Temperature(id types.RegionID) types.Reading {
	if sample, ok := s.samples[id]; ok {
		return types.Celsius(sample.Celsius)
	}
	return types.Unknown()
}

// Sample returns the latest successful sample for the region.
func (s Snapshot) Sample(id types.RegionID) (types.TemperatureSample, bool) {
	sample, ok := s.samples[id]
	return sample, ok
}

// Stale reports whether the region's fetch failed in this batch.
func (s Snapshot) Stale(id types.RegionID) bool {
	_, ok := s.failed[id]
	return ok
}

// Known returns the ids of every region with a value, sorted.
func (s Snapshot) Known() []types.RegionID {
	return slices.Sorted(maps.Keys(s.samples))
}

// Failed returns the ids whose fetch failed in this batch, sorted.
func (s Snapshot) Failed() []types.RegionID {
	return slices.Sorted(maps.Keys(s.failed))
}

// Samples returns a copy of every sample keyed by region.
func (s Snapshot) Samples() map[types.RegionID]types.TemperatureSample {
	return maps.Clone(s.samples)
}

// next builds the successor of s. Successes replace the region's sample;
// failed regions keep whatever s had. s itself is not modified.
func (s Snapshot) next(batchID uuid.UUID, at time.Time, ok []types.TemperatureSample, failed []types.RegionID) Snapshot {
	samples := make(map[types.RegionID]types.TemperatureSample, len(s.samples)+len(ok))
	maps.Copy(samples, s.samples)
	for _, sample := range ok {
		samples[sample.Region] = sample
	}

	failedSet := make(map[types.RegionID]struct{}, len(failed))
	for _, id := range failed {
		failedSet[id] = struct{}{}
	}

	return Snapshot{
		BatchID:     batchID,
		PublishedAt: at,
		Tick:        s.Tick + 1,
		samples:     samples,
		failed:      failedSet,
	}
}
