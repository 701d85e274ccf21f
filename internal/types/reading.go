package types

import (
	"encoding/json"
	"time"
)

// Reading is an optional temperature in degrees Celsius. The zero value is
// "unknown", which is distinct from a real 0 °C reading.
type Reading struct {
	Value float64
	Known bool
}

// Unknown returns a Reading with no data.
func Unknown() Reading { return Reading{} }

// Celsius returns a known Reading.
func Celsius(v float64) Reading { return Reading{Value: v, Known: true} }

// Or returns the value when known and fallback otherwise.
func (r Reading) Or(fallback float64) float64 {
	if r.Known {
		return r.Value
	}
	return fallback
}

// MarshalJSON encodes unknown readings as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	if !r.Known {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// TemperatureSample is one successful provider observation for a region.
type TemperatureSample struct {
	Region    RegionID  `json:"region"`
	Celsius   float64   `json:"celsius"`
	FetchedAt time.Time `json:"fetched_at"`
}
