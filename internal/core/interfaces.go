package core

import (
	"context"
	"net/http"

	"heatwatch/internal/dashboard"
	"heatwatch/internal/render"
	"heatwatch/internal/types"
	"heatwatch/internal/viewmode"

	"github.com/paulmach/orb/geojson"
)

// Dashboard is the live session the API drives. *dashboard.Session
// satisfies it.
type Dashboard interface {
	ID() string
	Status() dashboard.Status
	View() viewmode.State
	SetMode(ctx context.Context, mode types.ViewMode) (viewmode.State, error)
	SetHeatVisible(ctx context.Context, visible bool) (viewmode.State, error)
	ToggleHeat(ctx context.Context) (viewmode.State, error)
	Highlight(ctx context.Context, id types.RegionID) error
	ResetHighlight(ctx context.Context, id types.RegionID) error
	Zoom(ctx context.Context, id types.RegionID) (types.BoundingBox, error)
}

// Surface is the render side exposed over HTTP. *render.Hub satisfies it.
type Surface interface {
	Frame() render.Frame
	Collection() *geojson.FeatureCollection
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// HealthProbe checks one subsystem.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}
