package types

import (
	"fmt"
	"strings"

	"github.com/golang/geo/s2"
)

// RegionID is the stable short code of an administrative region (e.g. "SP").
type RegionID string

// ParseRegionID normalizes a raw identifier (trimmed, upper-cased).
func ParseRegionID(raw string) (RegionID, error) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if id == "" {
		return "", NewAppError(ErrCodeValidationMissingField, "region id must not be empty", nil)
	}
	return RegionID(id), nil
}

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LatLng converts the coordinate to an s2.LatLng.
func (c Coordinate) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Lat, c.Lon)
}

// BoundingBox is an axis-aligned latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Rect returns the box as an s2.Rect.
func (b BoundingBox) Rect() s2.Rect {
	r := s2.RectFromLatLng(s2.LatLngFromDegrees(b.MinLat, b.MinLon))
	return r.AddPoint(s2.LatLngFromDegrees(b.MaxLat, b.MaxLon))
}

// Contains reports whether the coordinate lies inside the box (edges included).
func (b BoundingBox) Contains(c Coordinate) bool {
	return b.Rect().ContainsLatLng(c.LatLng())
}

// Expand returns the box grown by margin degrees on every side.
func (b BoundingBox) Expand(margin float64) BoundingBox {
	return BoundingBox{
		MinLat: b.MinLat - margin,
		MaxLat: b.MaxLat + margin,
		MinLon: b.MinLon - margin,
		MaxLon: b.MaxLon + margin,
	}
}

// Validate checks that the box is non-degenerate and within WGS84 ranges.
func (b BoundingBox) Validate() error {
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return fmt.Errorf("bounding box is empty: %+v", b)
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("bounding box outside WGS84 range: %+v", b)
	}
	return nil
}

// Region is one tracked administrative area. All fields are static for the
// session; the latest temperature lives in feed snapshots, not here.
type Region struct {
	ID       RegionID    `json:"id"`
	Name     string      `json:"name"`
	Centroid Coordinate  `json:"centroid"`
	Bounds   BoundingBox `json:"bounds"`
	// Density is the population density in inhabitants per km².
	Density float64 `json:"density"`
}

// Validate checks the static attributes of the region.
func (r Region) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("region id is required")
	}
	if err := r.Bounds.Validate(); err != nil {
		return fmt.Errorf("region %s: %w", r.ID, err)
	}
	if !r.Bounds.Contains(r.Centroid) {
		return fmt.Errorf("region %s: centroid %+v outside bounds", r.ID, r.Centroid)
	}
	if r.Density < 0 {
		return fmt.Errorf("region %s: negative density", r.ID)
	}
	return nil
}
