// Package overlay keeps rendered region shapes consistent with the latest
// temperature snapshot and the active view mode.
package overlay

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"heatwatch/internal/colormap"
	"heatwatch/internal/regions"
	"heatwatch/internal/types"
)

// Handle is a rendered region shape owned by the render surface.
type Handle interface {
	SetStyle(Style)
	BindPopup(html string)
}

// Source supplies region readings; feed.Snapshot satisfies it.
type Source interface {
	Temperature(id types.RegionID) types.Reading
}

// ModeSource supplies the active view mode.
type ModeSource interface {
	Mode() types.ViewMode
}

type emptySource struct{}

func (emptySource) Temperature(types.RegionID) types.Reading { return types.Unknown() }

// Config configures a Sync.
type Config struct {
	Catalog *regions.Catalog
	Mapper  colormap.Mapper
	Modes   ModeSource
	Logger  *slog.Logger
}

// Sync maps region ids to their rendered handles and pushes popups and
// styles into them. It never touches geometry.
type Sync struct {
	catalog *regions.Catalog
	mapper  colormap.Mapper
	modes   ModeSource
	logger  *slog.Logger

	mu      sync.Mutex
	handles map[types.RegionID]Handle
	latest  Source
	closed  bool
}

// New creates an empty Sync.
func New(cfg Config) *Sync {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sync{
		catalog: cfg.Catalog,
		mapper:  cfg.Mapper,
		modes:   cfg.Modes,
		logger:  logger,
		handles: make(map[types.RegionID]Handle),
		latest:  emptySource{},
	}
}

// Register associates a rendered shape with a region, replacing any earlier
// handle. The handle immediately receives the current popup and style.
func (s *Sync) Register(id types.RegionID, h Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.NewAppError(types.ErrCodeConflictSessionClosed, "overlay sync is closed", nil)
	}
	if _, ok := s.catalog.Lookup(id); !ok {
		return types.NewRegionError(types.ErrCodeValidationUnknownRegion, id, fmt.Sprintf("region %s is not tracked", id), nil)
	}
	s.handles[id] = h
	s.push(id, h)
	return nil
}

// Unregister forgets the region's handle.
func (s *Sync) Unregister(id types.RegionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, id)
}

// Handles returns the registered region ids, sorted.
func (s *Sync) Handles() []types.RegionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]types.RegionID, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close drops every handle. Later calls are no-ops.
func (s *Sync) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.handles)
}

// Apply records src as the latest data and rebinds every registered
// handle's popup and style.
func (s *Sync) Apply(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if src == nil {
		src = emptySource{}
	}
	s.latest = src
	for id, h := range s.handles {
		s.push(id, h)
	}
}

// Restyle re-applies styles only, e.g. after a mode switch.
func (s *Sync) Restyle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for id, h := range s.handles {
		h.SetStyle(s.styleFor(id))
	}
}

// StyleFor returns the resting style of the region for the latest data and
// the active mode.
func (s *Sync) StyleFor(id types.RegionID) Style {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styleFor(id)
}

// Highlight applies the hover outline to the region's shape.
func (s *Sync) Highlight(id types.RegionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.handle(id)
	if err != nil {
		return err
	}
	h.SetStyle(s.styleFor(id).Highlighted())
	return nil
}

// ResetHighlight restores the region's resting style.
func (s *Sync) ResetHighlight(id types.RegionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, err := s.handle(id)
	if err != nil {
		return err
	}
	h.SetStyle(s.styleFor(id))
	return nil
}

// ZoomTarget returns the bounds a click on the region should fit.
func (s *Sync) ZoomTarget(id types.RegionID) (types.BoundingBox, error) {
	r, ok := s.catalog.Lookup(id)
	if !ok {
		return types.BoundingBox{}, types.NewRegionError(types.ErrCodeNotFoundRegion, id, fmt.Sprintf("region %s not found", id), nil)
	}
	return r.Bounds, nil
}

func (s *Sync) handle(id types.RegionID) (Handle, error) {
	if h, ok := s.handles[id]; ok {
		return h, nil
	}
	return nil, types.NewRegionError(types.ErrCodeNotFoundRegion, id, fmt.Sprintf("region %s is not rendered", id), nil)
}

func (s *Sync) push(id types.RegionID, h Handle) {
	h.BindPopup(Popup(id, s.latest.Temperature(id)))
	h.SetStyle(s.styleFor(id))
}

func (s *Sync) styleFor(id types.RegionID) Style {
	r, ok := s.catalog.Lookup(id)
	if !ok {
		return BaseStyle(colormap.NeutralColor)
	}
	mode := types.ViewModeTemperature
	if s.modes != nil {
		mode = s.modes.Mode()
	}
	return BaseStyle(s.mapper.RegionColor(r, s.latest.Temperature(id), mode))
}
