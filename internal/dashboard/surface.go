package dashboard

import (
	"time"

	"heatwatch/internal/colormap"
	"heatwatch/internal/overlay"
	"heatwatch/internal/types"

	"github.com/paulmach/orb/geojson"
)

// PanelEntry is one line of the side panel.
type PanelEntry struct {
	Region      types.RegionID `json:"region"`
	Name        string         `json:"name"`
	Temperature types.Reading  `json:"temperature"`
	Text        string         `json:"text"`
}

// Surface is the render side of a session. The session calls it only from
// its event loop.
type Surface interface {
	// RenderRegions draws the region shapes and returns one handle per
	// rendered region, keyed by the feature "id" property.
	RenderRegions(fc *geojson.FeatureCollection) map[types.RegionID]overlay.Handle
	PublishHeat(points []types.HeatPoint)
	ClearHeat()
	PublishLegend(legend colormap.Legend)
	PublishPanel(entries []PanelEntry)
	PublishClock(now time.Time)
	FitBounds(box types.BoundingBox)
	// Teardown releases every rendered object. Nothing is published after it.
	Teardown()
}
