package render

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"heatwatch/internal/colormap"
	"heatwatch/internal/dashboard"
	"heatwatch/internal/heatfield"
	"heatwatch/internal/overlay"
	"heatwatch/internal/telemetry"
	"heatwatch/internal/types"

	"github.com/paulmach/orb/geojson"
)

// EventHandler receives browser interactions. *dashboard.Session satisfies it.
type EventHandler interface {
	Highlight(ctx context.Context, id types.RegionID) error
	ResetHighlight(ctx context.Context, id types.RegionID) error
	Zoom(ctx context.Context, id types.RegionID) (types.BoundingBox, error)
}

// Config configures a Hub.
type Config struct {
	Display heatfield.DisplayOptions
	// AllowedOrigins lists the Origin headers accepted on upgrade. "*" accepts
	// any origin; an empty list accepts same-host requests only.
	AllowedOrigins []string
	SendBuffer     int
	PingInterval   time.Duration
	EventTimeout   time.Duration
	Recorder       telemetry.Recorder
	Logger         *slog.Logger
}

// Hub is the dashboard.Surface of one session. It holds the current frame
// and fans every change out to the connected clients.
type Hub struct {
	display      heatfield.DisplayOptions
	origins      []string
	sendBuffer   int
	pingInterval time.Duration
	eventTimeout time.Duration
	recorder     telemetry.Recorder
	logger       *slog.Logger

	mu         sync.Mutex
	handler    EventHandler
	collection *geojson.FeatureCollection
	order      []types.RegionID
	regions    map[types.RegionID]*RegionView
	heat       []types.HeatPoint
	legend     *colormap.Legend
	panel      []dashboard.PanelEntry
	clock      *Clock
	bounds     *types.BoundingBox
	clients    map[*client]struct{}
	closed     bool
}

var _ dashboard.Surface = (*Hub)(nil)

// NewHub creates an empty hub.
func NewHub(cfg Config) *Hub {
	display := cfg.Display
	if display.Radius == 0 {
		display = heatfield.DefaultDisplayOptions()
	}
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	eventTimeout := cfg.EventTimeout
	if eventTimeout <= 0 {
		eventTimeout = 5 * time.Second
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = telemetry.Noop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		display:      display,
		origins:      cfg.AllowedOrigins,
		sendBuffer:   sendBuffer,
		pingInterval: ping,
		eventTimeout: eventTimeout,
		recorder:     recorder,
		logger:       logger,
		regions:      make(map[types.RegionID]*RegionView),
		clients:      make(map[*client]struct{}),
	}
}

// Bind sets the receiver of client events.
func (h *Hub) Bind(handler EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

func (h *Hub) eventHandler() EventHandler {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler
}

// Collection returns the rendered regions, nil before RenderRegions.
func (h *Hub) Collection() *geojson.FeatureCollection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.collection
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Frame returns a copy of the current frame.
func (h *Hub) Frame() Frame {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frameLocked()
}

func (h *Hub) frameLocked() Frame {
	f := Frame{
		Regions: make([]RegionView, 0, len(h.order)),
		Heat: HeatLayer{
			Visible: h.heat != nil,
			Points:  slices.Clone(h.heat),
			Options: h.display,
		},
		Panel: slices.Clone(h.panel),
	}
	if f.Heat.Points == nil {
		f.Heat.Points = []types.HeatPoint{}
	}
	if f.Panel == nil {
		f.Panel = []dashboard.PanelEntry{}
	}
	for _, id := range h.order {
		f.Regions = append(f.Regions, *h.regions[id])
	}
	if h.legend != nil {
		l := *h.legend
		f.Legend = &l
	}
	if h.clock != nil {
		c := *h.clock
		f.Clock = &c
	}
	if h.bounds != nil {
		b := *h.bounds
		f.Bounds = &b
	}
	return f
}

// RenderRegions creates one region view per feature carrying an "id"
// property and returns their handles.
func (h *Hub) RenderRegions(fc *geojson.FeatureCollection) map[types.RegionID]overlay.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}

	h.collection = fc
	h.order = h.order[:0]
	clear(h.regions)
	handles := make(map[types.RegionID]overlay.Handle)
	if fc == nil {
		return handles
	}
	for _, f := range fc.Features {
		id := types.RegionID(f.Properties.MustString("id", ""))
		if id == "" {
			continue
		}
		if _, dup := h.regions[id]; dup {
			continue
		}
		h.order = append(h.order, id)
		h.regions[id] = &RegionView{ID: id}
		handles[id] = &regionHandle{hub: h, id: id}
	}
	h.broadcastLocked(MessageState, h.frameLocked())
	return handles
}

// PublishHeat shows the heat overlay with the given points.
func (h *Hub) PublishHeat(points []types.HeatPoint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.heat = slices.Clone(points)
	if h.heat == nil {
		h.heat = []types.HeatPoint{}
	}
	h.broadcastLocked(MessageHeat, HeatLayer{Visible: true, Points: h.heat, Options: h.display})
}

// ClearHeat hides the heat overlay.
func (h *Hub) ClearHeat() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.heat = nil
	h.broadcastLocked(MessageHeat, HeatLayer{Visible: false, Points: []types.HeatPoint{}, Options: h.display})
}

func (h *Hub) PublishLegend(legend colormap.Legend) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.legend = &legend
	h.broadcastLocked(MessageLegend, legend)
}

func (h *Hub) PublishPanel(entries []dashboard.PanelEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.panel = slices.Clone(entries)
	h.broadcastLocked(MessagePanel, h.panel)
}

func (h *Hub) PublishClock(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	c := newClock(now)
	h.clock = &c
	h.broadcastLocked(MessageClock, c)
}

func (h *Hub) FitBounds(box types.BoundingBox) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.bounds = &box
	h.broadcastLocked(MessageFitBounds, box)
}

// Teardown disconnects every client and drops the frame. Later publishes
// and upgrades are refused.
func (h *Hub) Teardown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		c.close()
	}
	clear(h.clients)
	h.collection = nil
	h.order = nil
	clear(h.regions)
	h.heat = nil
	h.legend, h.clock, h.bounds = nil, nil, nil
	h.panel = nil
	h.recorder.RecordSurfaceClients(context.Background(), 0)
}

func (h *Hub) updateRegion(id types.RegionID, fn func(*RegionView)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	v, ok := h.regions[id]
	if !ok {
		return
	}
	fn(v)
	h.broadcastLocked(MessageRegion, *v)
}

// broadcastLocked encodes one message and queues it on every client. A
// client whose queue is full is disconnected.
func (h *Hub) broadcastLocked(t MessageType, data any) {
	if len(h.clients) == 0 {
		return
	}
	payload, err := encode(t, data)
	if err != nil {
		h.logger.Error("failed to encode surface message", "type", string(t), "error", err)
		return
	}
	dropped := 0
	for c := range h.clients {
		if !c.enqueue(payload) {
			c.close()
			delete(h.clients, c)
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("dropped slow surface clients", "count", dropped)
		h.recorder.RecordSurfaceClients(context.Background(), len(h.clients))
	}
}

// attach registers c and queues the current frame as its first message.
func (h *Hub) attach(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return types.NewAppError(types.ErrCodeConflictSessionClosed, "render surface is closed", nil)
	}
	payload, err := encode(MessageState, h.frameLocked())
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode frame", err)
	}
	c.enqueue(payload)
	h.clients[c] = struct{}{}
	h.recorder.RecordSurfaceClients(context.Background(), len(h.clients))
	return nil
}

func (h *Hub) detach(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.close()
	h.recorder.RecordSurfaceClients(context.Background(), len(h.clients))
}

// regionHandle is the overlay.Handle of one rendered region.
type regionHandle struct {
	hub *Hub
	id  types.RegionID
}

func (r *regionHandle) SetStyle(s overlay.Style) {
	r.hub.updateRegion(r.id, func(v *RegionView) { v.Style = s })
}

func (r *regionHandle) BindPopup(html string) {
	r.hub.updateRegion(r.id, func(v *RegionView) { v.Popup = html })
}
