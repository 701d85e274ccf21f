// Package viewmode holds the user-selected display state: which scalar colors
// the regions and whether the heat overlay is shown.
package viewmode

import (
	"sync"

	"heatwatch/internal/types"
)

// State is a copy of the controller's settings.
type State struct {
	Mode        types.ViewMode `json:"mode"`
	HeatVisible bool           `json:"heat_visible"`
}

// Controller is goroutine-safe. Observers run synchronously on the goroutine
// that made the change, after the lock is released, and only when the state
// actually changed.
type Controller struct {
	mu        sync.RWMutex
	state     State
	observers []func(State)
}

// New returns a controller in temperature mode with the heat overlay hidden.
func New() *Controller {
	return &Controller{state: State{Mode: types.ViewModeTemperature}}
}

// Subscribe registers fn to be called after every change.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current settings.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Mode returns the active view mode.
func (c *Controller) Mode() types.ViewMode {
	return c.State().Mode
}

// HeatVisible reports whether the heat overlay is shown.
func (c *Controller) HeatVisible() bool {
	return c.State().HeatVisible
}

// SetMode switches the view mode. Any mode is reachable from any other.
func (c *Controller) SetMode(mode types.ViewMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	c.update(func(s *State) { s.Mode = mode })
	return nil
}

// SetHeatVisible shows or hides the heat overlay.
func (c *Controller) SetHeatVisible(visible bool) {
	c.update(func(s *State) { s.HeatVisible = visible })
}

// ToggleHeat flips heat visibility and returns the new value.
func (c *Controller) ToggleHeat() bool {
	var visible bool
	c.update(func(s *State) {
		s.HeatVisible = !s.HeatVisible
		visible = s.HeatVisible
	})
	return visible
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	before := c.state
	fn(&c.state)
	after := c.state
	observers := c.observers
	c.mu.Unlock()

	if before == after {
		return
	}
	for _, o := range observers {
		o(after)
	}
}
