package types

import "encoding/json"

// HeatPoint is one synthetic sample of the heat field.
type HeatPoint struct {
	Lat       float64
	Lon       float64
	Intensity float64
}

// MarshalJSON encodes the point as the [lat, lon, intensity] tuple accepted
// by leaflet.heat.
func (p HeatPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lon, p.Intensity})
}
