package heatfield

// DisplayOptions are the rendering parameters of the heat overlay, sent to
// the browser alongside the points.
type DisplayOptions struct {
	Radius   int               `json:"radius"`
	Blur     int               `json:"blur"`
	MaxZoom  int               `json:"maxZoom"`
	Gradient map[string]string `json:"gradient"`
}

// DefaultDisplayOptions returns the overlay look of the dashboard.
func DefaultDisplayOptions() DisplayOptions {
	return DisplayOptions{
		Radius:  25,
		Blur:    15,
		MaxZoom: 17,
		Gradient: map[string]string{
			"0":    "blue",
			"0.25": "cyan",
			"0.5":  "lime",
			"0.75": "yellow",
			"1":    "red",
		},
	}
}
