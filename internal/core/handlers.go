package core

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"heatwatch/internal/dashboard"
	"heatwatch/internal/render"
	"heatwatch/internal/types"
	"heatwatch/internal/viewmode"
)

// StateResponse is the full frame plus the view state and session summary.
type StateResponse struct {
	render.Frame
	Mode        types.ViewMode   `json:"mode"`
	HeatVisible bool             `json:"heat_visible"`
	Session     dashboard.Status `json:"session"`
}

type viewModeRequest struct {
	Mode string `json:"mode" validate:"required,viewmode"`
}

type heatmapRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

type zoomResponse struct {
	Region types.RegionID    `json:"region"`
	Bounds types.BoundingBox `json:"bounds"`
}

// HandleRegions serves the rendered FeatureCollection as raw GeoJSON.
func (s *Server) HandleRegions(w http.ResponseWriter, r *http.Request) {
	fc := s.Surface.Collection()
	if fc == nil {
		Error(w, r, types.NewAppError(types.ErrCodeConflictSessionClosed, "regions are not rendered", nil))
		return
	}
	body, err := fc.MarshalJSON()
	if err != nil {
		Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode regions", err))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// HandleState serves the current frame.
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	view := s.Dashboard.View()
	Data(w, r, http.StatusOK, StateResponse{
		Frame:       s.Surface.Frame(),
		Mode:        view.Mode,
		HeatVisible: view.HeatVisible,
		Session:     s.Dashboard.Status(),
	})
}

// HandleSetViewMode switches between temperature and density coloring.
func (s *Server) HandleSetViewMode(w http.ResponseWriter, r *http.Request) {
	var req viewModeRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.Validator.ValidateStruct(req); err != nil {
		Error(w, r, err)
		return
	}
	mode, err := types.ParseViewMode(req.Mode)
	if err != nil {
		Error(w, r, err)
		return
	}
	s.respondView(w, r)(s.Dashboard.SetMode(r.Context(), mode))
}

// HandleSetHeatmap shows or hides the heat overlay.
func (s *Server) HandleSetHeatmap(w http.ResponseWriter, r *http.Request) {
	var req heatmapRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Error(w, r, err)
		return
	}
	if err := s.Validator.ValidateStruct(req); err != nil {
		Error(w, r, err)
		return
	}
	s.respondView(w, r)(s.Dashboard.SetHeatVisible(r.Context(), *req.Visible))
}

// HandleToggleHeatmap flips heat overlay visibility.
func (s *Server) HandleToggleHeatmap(w http.ResponseWriter, r *http.Request) {
	s.respondView(w, r)(s.Dashboard.ToggleHeat(r.Context()))
}

func (s *Server) respondView(w http.ResponseWriter, r *http.Request) func(viewmode.State, error) {
	return func(st viewmode.State, err error) {
		if err != nil {
			Error(w, r, err)
			return
		}
		Data(w, r, http.StatusOK, st)
	}
}

// HandleHighlight applies the hover outline to a region.
func (s *Server) HandleHighlight(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseRegionID(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := s.Dashboard.Highlight(r.Context(), id); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResetHighlight restores a region's resting style.
func (s *Server) HandleResetHighlight(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseRegionID(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, r, err)
		return
	}
	if err := s.Dashboard.ResetHighlight(r.Context(), id); err != nil {
		Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleZoom fits the map to a region and returns its bounds.
func (s *Server) HandleZoom(w http.ResponseWriter, r *http.Request) {
	id, err := types.ParseRegionID(chi.URLParam(r, "id"))
	if err != nil {
		Error(w, r, err)
		return
	}
	box, err := s.Dashboard.Zoom(r.Context(), id)
	if err != nil {
		Error(w, r, err)
		return
	}
	Data(w, r, http.StatusOK, zoomResponse{Region: id, Bounds: box})
}
