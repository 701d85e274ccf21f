package dashboard

import (
	"context"

	"heatwatch/internal/types"
	"heatwatch/internal/viewmode"
)

func errSessionClosed() error {
	return types.NewAppError(types.ErrCodeConflictSessionClosed, "dashboard session is not running", nil)
}

// do runs fn on the event loop and waits for its result.
func (s *Session) do(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	running := s.state == stateRunning
	s.mu.Unlock()
	if !running {
		return errSessionClosed()
	}

	result := make(chan error, 1)
	cmd := func() {
		var err error = types.NewAppError(types.ErrCodeInternalUnexpected, "session command panicked", nil)
		defer func() { result <- err }()
		err = fn()
	}

	select {
	case s.commands <- cmd:
	case <-s.done:
		return errSessionClosed()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-s.done:
		return errSessionClosed()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetMode switches the view mode; regions are restyled and the legend
// republished.
func (s *Session) SetMode(ctx context.Context, mode types.ViewMode) (viewmode.State, error) {
	var st viewmode.State
	err := s.do(ctx, func() error {
		if err := s.modes.SetMode(mode); err != nil {
			return err
		}
		st = s.modes.State()
		return nil
	})
	return st, err
}

// SetHeatVisible shows or hides the heat overlay.
func (s *Session) SetHeatVisible(ctx context.Context, visible bool) (viewmode.State, error) {
	var st viewmode.State
	err := s.do(ctx, func() error {
		s.modes.SetHeatVisible(visible)
		st = s.modes.State()
		return nil
	})
	return st, err
}

// ToggleHeat flips heat visibility.
func (s *Session) ToggleHeat(ctx context.Context) (viewmode.State, error) {
	var st viewmode.State
	err := s.do(ctx, func() error {
		s.modes.ToggleHeat()
		st = s.modes.State()
		return nil
	})
	return st, err
}

// Highlight applies the hover outline to a region.
func (s *Session) Highlight(ctx context.Context, id types.RegionID) error {
	return s.do(ctx, func() error { return s.sync.Highlight(id) })
}

// ResetHighlight restores a region's resting style.
func (s *Session) ResetHighlight(ctx context.Context, id types.RegionID) error {
	return s.do(ctx, func() error { return s.sync.ResetHighlight(id) })
}

// Zoom fits the surface to the region's bounds and returns them.
func (s *Session) Zoom(ctx context.Context, id types.RegionID) (types.BoundingBox, error) {
	var box types.BoundingBox
	err := s.do(ctx, func() error {
		b, err := s.sync.ZoomTarget(id)
		if err != nil {
			return err
		}
		box = b
		s.surface.FitBounds(b)
		return nil
	})
	return box, err
}
