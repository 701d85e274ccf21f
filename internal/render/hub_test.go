package render

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"heatwatch/internal/colormap"
	"heatwatch/internal/dashboard"
	"heatwatch/internal/overlay"
	"heatwatch/internal/types"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub {
	return NewHub(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func collection(ids ...string) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range ids {
		f := geojson.NewFeature(orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}})
		f.Properties["id"] = id
		fc.Append(f)
	}
	return fc
}

type recordingHandler struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingHandler) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingHandler) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recordingHandler) Highlight(_ context.Context, id types.RegionID) error {
	r.record("highlight:" + string(id))
	return nil
}

func (r *recordingHandler) ResetHighlight(_ context.Context, id types.RegionID) error {
	r.record("reset:" + string(id))
	return nil
}

func (r *recordingHandler) Zoom(_ context.Context, id types.RegionID) (types.BoundingBox, error) {
	if id == "RJ" {
		return types.BoundingBox{}, types.NewAppError(types.ErrCodeValidationUnknownRegion, "unknown region", nil)
	}
	r.record("zoom:" + string(id))
	return types.BoundingBox{}, nil
}

func TestRenderRegionsHandlesUpdateFrame(t *testing.T) {
	hub := testHub()
	handles := hub.RenderRegions(collection("SP", "GO", ""))

	require.Len(t, handles, 2)
	handles["SP"].SetStyle(overlay.BaseStyle("#fd893c"))
	handles["SP"].BindPopup("<strong>Estado:</strong> SP")

	frame := hub.Frame()
	require.Len(t, frame.Regions, 2)
	assert.Equal(t, types.RegionID("SP"), frame.Regions[0].ID)
	assert.Equal(t, colormap.Color("#fd893c"), frame.Regions[0].Style.FillColor)
	assert.Equal(t, "<strong>Estado:</strong> SP", frame.Regions[0].Popup)
	assert.Equal(t, types.RegionID("GO"), frame.Regions[1].ID)
	assert.NotNil(t, hub.Collection())
}

func TestHeatVisibilityInFrame(t *testing.T) {
	hub := testHub()

	frame := hub.Frame()
	assert.False(t, frame.Heat.Visible)
	assert.Empty(t, frame.Heat.Points)
	assert.Equal(t, 25, frame.Heat.Options.Radius)

	hub.PublishHeat([]types.HeatPoint{{Lat: -23, Lon: -46, Intensity: 0.4}})
	frame = hub.Frame()
	assert.True(t, frame.Heat.Visible)
	assert.Len(t, frame.Heat.Points, 1)

	hub.ClearHeat()
	frame = hub.Frame()
	assert.False(t, frame.Heat.Visible)
	assert.Empty(t, frame.Heat.Points)
}

func TestPublishesLandInFrame(t *testing.T) {
	hub := testHub()
	now := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)

	hub.PublishLegend(colormap.NewMapper().Legend(types.ViewModeDensity))
	hub.PublishPanel([]dashboard.PanelEntry{{Region: "SP", Text: "Carregando..."}})
	hub.PublishClock(now)
	hub.FitBounds(types.BoundingBox{MinLat: -24, MinLon: -54, MaxLat: -20, MaxLon: -44})

	frame := hub.Frame()
	require.NotNil(t, frame.Legend)
	assert.Equal(t, colormap.DensityTitle, frame.Legend.Title)
	assert.Equal(t, "Carregando...", frame.Panel[0].Text)
	require.NotNil(t, frame.Clock)
	assert.Equal(t, "01/03/2024 15:04:05", frame.Clock.Label)
	require.NotNil(t, frame.Bounds)
	assert.Equal(t, -54.0, frame.Bounds.MinLon)
}

func TestTeardownRefusesLaterPublishes(t *testing.T) {
	hub := testHub()
	handles := hub.RenderRegions(collection("SP"))
	hub.PublishHeat([]types.HeatPoint{{Lat: 1, Lon: 1, Intensity: 1}})

	hub.Teardown()
	hub.Teardown()
	handles["SP"].SetStyle(overlay.BaseStyle("#000000"))
	hub.PublishLegend(colormap.NewMapper().Legend(types.ViewModeTemperature))

	frame := hub.Frame()
	assert.Empty(t, frame.Regions)
	assert.Nil(t, frame.Legend)
	assert.False(t, frame.Heat.Visible)
	assert.Nil(t, hub.Collection())
	assert.Nil(t, hub.RenderRegions(collection("GO")))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type rawMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) rawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg rawMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketStreamsFrameAndUpdates(t *testing.T) {
	hub := testHub()
	handles := hub.RenderRegions(collection("SP"))
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dial(t, srv)

	first := readMessage(t, conn)
	assert.Equal(t, MessageState, first.Type)
	var frame Frame
	require.NoError(t, json.Unmarshal(first.Data, &frame))
	require.Len(t, frame.Regions, 1)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	handles["SP"].SetStyle(overlay.BaseStyle("#800026"))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageRegion, msg.Type)
	var view RegionView
	require.NoError(t, json.Unmarshal(msg.Data, &view))
	assert.Equal(t, colormap.Color("#800026"), view.Style.FillColor)

	hub.PublishHeat([]types.HeatPoint{{Lat: -23.5, Lon: -46.6, Intensity: 0.25}})
	msg = readMessage(t, conn)
	assert.Equal(t, MessageHeat, msg.Type)
	assert.Contains(t, string(msg.Data), "[-23.5,-46.6,0.25]")

	hub.FitBounds(types.BoundingBox{MinLat: -1})
	msg = readMessage(t, conn)
	assert.Equal(t, MessageFitBounds, msg.Type)
}

func TestWebSocketDispatchesClientEvents(t *testing.T) {
	hub := testHub()
	handler := &recordingHandler{}
	hub.Bind(handler)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn)

	for _, ev := range []ClientEvent{
		{Type: EventMouseOver, Region: "SP"},
		{Type: EventMouseOut, Region: "SP"},
		{Type: EventClick, Region: "GO"},
	} {
		require.NoError(t, conn.WriteJSON(ev))
	}
	require.Eventually(t, func() bool { return len(handler.seen()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"highlight:SP", "reset:SP", "zoom:GO"}, handler.seen())

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventClick, Region: "RJ"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.Contains(t, string(msg.Data), string(types.ErrCodeValidationUnknownRegion))

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: "dblclick"}))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.Contains(t, string(msg.Data), string(types.ErrCodeValidationInvalidJSON))
}

func TestTeardownDisconnectsClients(t *testing.T) {
	hub := testHub()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	conn := dial(t, srv)
	readMessage(t, conn)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	hub.Teardown()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Zero(t, hub.Clients())

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{"no origin header", nil, "", "dash.local", true},
		{"same host default", nil, "http://dash.local", "dash.local", true},
		{"cross host default", nil, "http://evil.example", "dash.local", false},
		{"wildcard", []string{"*"}, "http://any.example", "dash.local", true},
		{"listed", []string{"http://app.example"}, "http://app.example", "dash.local", true},
		{"not listed", []string{"http://app.example"}, "http://dash.local", "dash.local", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(Config{AllowedOrigins: tt.allowed})
			r := httptest.NewRequest(http.MethodGet, "/v1/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, hub.checkOrigin(r))
		})
	}
}
