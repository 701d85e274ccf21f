package colormap

import (
	"strconv"

	"heatwatch/internal/types"
)

// Domain is the value range mapped onto the whole scale.
type Domain struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Normalize returns the position of v inside the domain, clamped to [0,1].
func (d Domain) Normalize(v float64) float64 {
	if d.Max == d.Min {
		return 0
	}
	t := (v - d.Min) / (d.Max - d.Min)
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	}
	return t
}

var (
	// DensityDomain covers inhabitants per km².
	DensityDomain = Domain{Min: 0, Max: 200}
	// TemperatureDomain covers degrees Celsius.
	TemperatureDomain = Domain{Min: 10, Max: 40}
)

// Legend titles.
const (
	TemperatureTitle = "Temperatura (°C)"
	DensityTitle     = "Densidade Populacional (hab/km²)"
)

// legendStops is the number of evenly spaced gradient samples in a Legend.
const legendStops = 11

// Legend describes the active color ramp for display.
type Legend struct {
	Mode     types.ViewMode `json:"mode"`
	Title    string         `json:"title"`
	Min      float64        `json:"min"`
	Max      float64        `json:"max"`
	MinLabel string         `json:"min_label"`
	MaxLabel string         `json:"max_label"`
	Stops    []Color        `json:"stops"`
}

// Mapper colors values. It is a pure value type; the zero value is not usable,
// build one with NewMapper.
type Mapper struct {
	scale Scale
}

// NewMapper returns a Mapper over the YlOrRd scale.
func NewMapper() Mapper {
	return Mapper{scale: YlOrRd()}
}

// Color maps v inside d onto the scale. Out-of-domain values clamp.
func (m Mapper) Color(v float64, d Domain) Color {
	return m.scale.At(d.Normalize(v))
}

// TemperatureColor colors a reading; unknown readings are NeutralColor.
func (m Mapper) TemperatureColor(r types.Reading) Color {
	if !r.Known {
		return NeutralColor
	}
	return m.Color(r.Value, TemperatureDomain)
}

// DensityColor colors a population density.
func (m Mapper) DensityColor(density float64) Color {
	return m.Color(density, DensityDomain)
}

// RegionColor picks the fill of a region for the given mode.
func (m Mapper) RegionColor(region types.Region, reading types.Reading, mode types.ViewMode) Color {
	if mode == types.ViewModeDensity {
		return m.DensityColor(region.Density)
	}
	return m.TemperatureColor(reading)
}

// Legend describes the ramp of the given mode.
func (m Mapper) Legend(mode types.ViewMode) Legend {
	title, d := TemperatureTitle, TemperatureDomain
	if mode == types.ViewModeDensity {
		title, d = DensityTitle, DensityDomain
	} else {
		mode = types.ViewModeTemperature
	}

	stops := make([]Color, legendStops)
	for i := range stops {
		stops[i] = m.scale.At(float64(i) / float64(legendStops-1))
	}

	return Legend{
		Mode:     mode,
		Title:    title,
		Min:      d.Min,
		Max:      d.Max,
		MinLabel: strconv.FormatFloat(d.Min, 'f', -1, 64),
		MaxLabel: strconv.FormatFloat(d.Max, 'f', -1, 64),
		Stops:    stops,
	}
}
