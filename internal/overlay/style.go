package overlay

import (
	"fmt"
	"html"

	"heatwatch/internal/colormap"
	"heatwatch/internal/types"
)

// Style is the path style of a rendered region, in Leaflet option names.
type Style struct {
	FillColor   colormap.Color `json:"fillColor"`
	Weight      int            `json:"weight"`
	Opacity     float64        `json:"opacity"`
	Color       string         `json:"color"`
	DashArray   string         `json:"dashArray"`
	FillOpacity float64        `json:"fillOpacity"`
}

// BaseStyle is the resting style of a region filled with fill.
func BaseStyle(fill colormap.Color) Style {
	return Style{
		FillColor:   fill,
		Weight:      1,
		Opacity:     1,
		Color:       "white",
		DashArray:   "3",
		FillOpacity: 0.7,
	}
}

// Highlighted returns s with the hover outline applied. The fill is kept.
func (s Style) Highlighted() Style {
	s.Weight = 3
	s.Color = "#666"
	s.DashArray = ""
	s.FillOpacity = 0.7
	return s
}

// Popup renders the popup body of a region.
func Popup(id types.RegionID, r types.Reading) string {
	temp := "Dados não disponíveis"
	if r.Known {
		temp = fmt.Sprintf("%.1f °C", r.Value)
	}
	return fmt.Sprintf("<strong>Estado:</strong> %s<br><strong>Temperatura:</strong> %s",
		html.EscapeString(string(id)), temp)
}

// PanelText renders the side panel line of a region.
func PanelText(r types.Reading) string {
	if !r.Known {
		return "Carregando..."
	}
	return fmt.Sprintf("Temperatura: %.1f °C", r.Value)
}
