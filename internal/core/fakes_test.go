package core

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"heatwatch/internal/config"
	"heatwatch/internal/dashboard"
	"heatwatch/internal/render"
	"heatwatch/internal/types"
	"heatwatch/internal/viewmode"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// fakeDashboard implements Dashboard over a real viewmode.Controller.
type fakeDashboard struct {
	mu         sync.Mutex
	modes      *viewmode.Controller
	status     dashboard.Status
	highlights []string
	err        error
}

func newFakeDashboard() *fakeDashboard {
	return &fakeDashboard{
		modes:  viewmode.New(),
		status: dashboard.Status{ID: "sess-1", Running: true, Tick: 3, Regions: 2},
	}
}

func (d *fakeDashboard) ID() string { return d.status.ID }

func (d *fakeDashboard) Status() dashboard.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func (d *fakeDashboard) View() viewmode.State { return d.modes.State() }

func (d *fakeDashboard) SetMode(_ context.Context, mode types.ViewMode) (viewmode.State, error) {
	if d.err != nil {
		return viewmode.State{}, d.err
	}
	if err := d.modes.SetMode(mode); err != nil {
		return viewmode.State{}, err
	}
	return d.modes.State(), nil
}

func (d *fakeDashboard) SetHeatVisible(_ context.Context, visible bool) (viewmode.State, error) {
	if d.err != nil {
		return viewmode.State{}, d.err
	}
	d.modes.SetHeatVisible(visible)
	return d.modes.State(), nil
}

func (d *fakeDashboard) ToggleHeat(context.Context) (viewmode.State, error) {
	if d.err != nil {
		return viewmode.State{}, d.err
	}
	d.modes.ToggleHeat()
	return d.modes.State(), nil
}

func (d *fakeDashboard) known(id types.RegionID) error {
	if id != "SP" && id != "GO" {
		return types.NewRegionError(types.ErrCodeNotFoundRegion, id, "region is not rendered", nil)
	}
	return nil
}

func (d *fakeDashboard) Highlight(_ context.Context, id types.RegionID) error {
	if err := d.known(id); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.highlights = append(d.highlights, "on:"+string(id))
	return nil
}

func (d *fakeDashboard) ResetHighlight(_ context.Context, id types.RegionID) error {
	if err := d.known(id); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.highlights = append(d.highlights, "off:"+string(id))
	return nil
}

func (d *fakeDashboard) Zoom(_ context.Context, id types.RegionID) (types.BoundingBox, error) {
	if err := d.known(id); err != nil {
		return types.BoundingBox{}, err
	}
	return types.BoundingBox{MinLat: -24, MinLon: -54, MaxLat: -20, MaxLon: -44}, nil
}

// fakeSurface implements Surface with a fixed frame.
type fakeSurface struct {
	frame      render.Frame
	collection *geojson.FeatureCollection
	wsCalls    int
}

func newFakeSurface() *fakeSurface {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Polygon{{{-46, -23}, {-45, -23}, {-45, -22}, {-46, -23}}})
	f.Properties["id"] = "SP"
	fc.Append(f)
	return &fakeSurface{
		collection: fc,
		frame: render.Frame{
			Regions: []render.RegionView{{ID: "SP", Popup: "<strong>Estado:</strong> SP"}},
			Panel:   []dashboard.PanelEntry{{Region: "SP", Text: "Carregando..."}},
			Clock:   &render.Clock{Time: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), Label: "01/03/2024 12:00:00"},
		},
	}
}

func (s *fakeSurface) Frame() render.Frame                    { return s.frame }
func (s *fakeSurface) Collection() *geojson.FeatureCollection { return s.collection }

func (s *fakeSurface) ServeWS(w http.ResponseWriter, _ *http.Request) {
	s.wsCalls++
	w.WriteHeader(http.StatusTeapot)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Server: config.ServerConfig{
			CorsAllowedOrigins: []string{"*"},
			RequestTimeout:     time.Second,
		},
	}
}

// newTestServer returns a mounted server over the fakes.
func newTestServer() (*Server, *fakeDashboard, *fakeSurface) {
	dash := newFakeDashboard()
	surface := newFakeSurface()
	srv, err := NewServer(testConfig(), dash, surface, testLogger())
	if err != nil {
		panic(err)
	}
	srv.MountRoutes()
	return srv, dash, surface
}
