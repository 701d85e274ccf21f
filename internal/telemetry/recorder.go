// Package telemetry records pipeline metrics. The dashboard session and the
// provider-facing stores depend on the Recorder interface; the backend
// (Prometheus pull, CloudWatch push, or none) is chosen at startup.
package telemetry

import (
	"context"
	"time"

	"heatwatch/internal/types"
)

// Result is the outcome dimension of a provider fetch.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailed  Result = "failed"
)

// ResultOf maps an error to a Result.
func ResultOf(err error) Result {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}

// Recorder receives pipeline measurements. Implementations must be safe for
// concurrent use and must never block the caller on backend failures.
type Recorder interface {
	// RecordFetch counts one provider call for a region.
	RecordFetch(ctx context.Context, provider string, region types.RegionID, result Result)
	// RecordBatch records the duration of one temperature gather and how many
	// regions failed in it.
	RecordBatch(ctx context.Context, latency time.Duration, failed int)
	// RecordHeatPoints records the size of the latest heat field.
	RecordHeatPoints(ctx context.Context, n int)
	// RecordSurfaceClients records the number of connected browsers.
	RecordSurfaceClients(ctx context.Context, n int)
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) RecordFetch(context.Context, string, types.RegionID, Result) {}
func (Noop) RecordBatch(context.Context, time.Duration, int) {}
func (Noop) RecordHeatPoints(context.Context, int) {}
func (Noop) RecordSurfaceClients(context.Context, int) {}

var _ Recorder = Noop{}
