package external

import (
	"context"

	"heatwatch/internal/types"

	"github.com/paulmach/orb"
)

// GeometryProvider fetches the boundary of one administrative region.
type GeometryProvider interface {
	// FetchGeometry returns the first polygonal geometry of the region's
	// boundary document (orb.Polygon or orb.MultiPolygon).
	FetchGeometry(ctx context.Context, id types.RegionID) (orb.Geometry, error)
}

// WeatherProvider fetches the current air temperature at a point.
type WeatherProvider interface {
	// CurrentTemperature returns degrees Celsius at the coordinate. The region
	// id is only used to label errors.
	CurrentTemperature(ctx context.Context, id types.RegionID, at types.Coordinate) (float64, error)
}
