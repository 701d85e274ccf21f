// Package render is the browser-facing render surface of a dashboard
// session. Hub keeps the current frame and pushes every change to connected
// WebSocket clients.
package render

import (
	"encoding/json"
	"time"

	"heatwatch/internal/colormap"
	"heatwatch/internal/dashboard"
	"heatwatch/internal/heatfield"
	"heatwatch/internal/overlay"
	"heatwatch/internal/types"
)

// ClockLayout formats the wall-clock label shown on the map.
const ClockLayout = "02/01/2006 15:04:05"

// MessageType names a server push or a client event.
type MessageType string

// Server pushes.
const (
	MessageState     MessageType = "state"
	MessageRegion    MessageType = "region"
	MessageHeat      MessageType = "heat"
	MessageLegend    MessageType = "legend"
	MessagePanel     MessageType = "panel"
	MessageClock     MessageType = "clock"
	MessageFitBounds MessageType = "fit_bounds"
	MessageError     MessageType = "error"
)

// Client events.
const (
	EventMouseOver MessageType = "mouseover"
	EventMouseOut  MessageType = "mouseout"
	EventClick     MessageType = "click"
)

// Message is the envelope of every server push.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

// ClientEvent is an interaction reported by a browser.
type ClientEvent struct {
	Type   MessageType    `json:"type"`
	Region types.RegionID `json:"region"`
}

// RegionView is the rendered state of one region shape.
type RegionView struct {
	ID    types.RegionID `json:"id"`
	Style overlay.Style  `json:"style"`
	Popup string         `json:"popup"`
}

// HeatLayer is the heat overlay as pushed to clients. Points is empty while
// the overlay is hidden.
type HeatLayer struct {
	Visible bool                     `json:"visible"`
	Points  []types.HeatPoint        `json:"points"`
	Options heatfield.DisplayOptions `json:"options"`
}

// Clock is the published wall-clock tick.
type Clock struct {
	Time  time.Time `json:"time"`
	Label string    `json:"label"`
}

func newClock(now time.Time) Clock {
	return Clock{Time: now, Label: now.Format(ClockLayout)}
}

// Frame is everything a freshly connected client needs to draw the map.
type Frame struct {
	Regions []RegionView           `json:"regions"`
	Heat    HeatLayer              `json:"heat"`
	Legend  *colormap.Legend       `json:"legend,omitempty"`
	Panel   []dashboard.PanelEntry `json:"panel"`
	Clock   *Clock                 `json:"clock,omitempty"`
	Bounds  *types.BoundingBox     `json:"bounds,omitempty"`
}

func encode(t MessageType, data any) ([]byte, error) {
	return json.Marshal(Message{Type: t, Data: data})
}
