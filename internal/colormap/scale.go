// Package colormap maps scalar values to the YlOrRd color ramp used to fill
// region shapes, and describes the matching legend.
package colormap

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a "#rrggbb" string.
type Color string

// NeutralColor fills regions without data.
const NeutralColor Color = "#ffffff"

// ylOrRd is the 9-class ColorBrewer YlOrRd scheme.
var ylOrRd = []string{
	"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c",
	"#fc4e2a", "#e31a1c", "#bd0026", "#800026",
}

// Scale is a continuous color ramp through a sequence of control colors,
// interpolated per channel with a uniform cubic B-spline.
type Scale struct {
	// channels[c][i] is channel c (r, g, b) of control color i, in 0..255.
	channels [3][]float64
}

// NewScale builds a Scale from hex control colors. Invalid hex strings
// panic; the scheme is fixed at compile time.
func NewScale(hexes []string) Scale {
	var s Scale
	for c := range s.channels {
		s.channels[c] = make([]float64, len(hexes))
	}
	for i, h := range hexes {
		col, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		s.channels[0][i] = col.R * 255
		s.channels[1][i] = col.G * 255
		s.channels[2][i] = col.B * 255
	}
	return s
}

// YlOrRd returns the yellow-orange-red ramp.
func YlOrRd() Scale {
	return NewScale(ylOrRd)
}

// At returns the color at t, clamped to [0,1].
func (s Scale) At(t float64) Color {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))

	r := basisSpline(s.channels[0], t)
	g := basisSpline(s.channels[1], t)
	b := basisSpline(s.channels[2], t)
	col := colorful.Color{R: round255(r) / 255, G: round255(g) / 255, B: round255(b) / 255}
	return Color(col.Clamped().Hex())
}

func round255(v float64) float64 {
	return math.Max(0, math.Min(255, math.Round(v)))
}

// basisSpline evaluates the uniform B-spline through values at t in [0,1].
// Missing neighbours at the ends are reflected.
func basisSpline(values []float64, t float64) float64 {
	n := len(values) - 1
	var i int
	switch {
	case t <= 0:
		i = 0
	case t >= 1:
		i = n - 1
		t = 1
	default:
		i = int(math.Floor(t * float64(n)))
	}

	v1, v2 := values[i], values[i+1]
	v0 := 2*v1 - v2
	if i > 0 {
		v0 = values[i-1]
	}
	v3 := 2*v2 - v1
	if i < n-1 {
		v3 = values[i+2]
	}
	return basis((t-float64(i)/float64(n))*float64(n), v0, v1, v2, v3)
}

func basis(t1, v0, v1, v2, v3 float64) float64 {
	t2 := t1 * t1
	t3 := t2 * t1
	return ((1-3*t1+3*t2-t3)*v0 +
		(4-6*t2+3*t3)*v1 +
		(1+3*t1+3*t2-3*t3)*v2 +
		t3*v3) / 6
}
