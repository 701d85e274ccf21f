package overlay

import (
	"errors"
	"testing"

	"heatwatch/internal/colormap"
	"heatwatch/internal/regions"
	"heatwatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandle keeps the last style and popup pushed into it.
type recordingHandle struct {
	styles []Style
	popup  string
}

func (h *recordingHandle) SetStyle(s Style) { h.styles = append(h.styles, s) }
func (h *recordingHandle) BindPopup(p string) { h.popup = p }
func (h *recordingHandle) last() Style { return h.styles[len(h.styles)-1] }

type fixedMode struct{ mode types.ViewMode }

func (m *fixedMode) Mode() types.ViewMode { return m.mode }

type readings map[types.RegionID]float64

func (r readings) Temperature(id types.RegionID) types.Reading {
	if v, ok := r[id]; ok {
		return types.Celsius(v)
	}
	return types.Unknown()
}

func newTestSync(mode *fixedMode) (*Sync, map[types.RegionID]*recordingHandle) {
	s := New(Config{Catalog: regions.Builtin(), Mapper: colormap.NewMapper(), Modes: mode})
	handles := map[types.RegionID]*recordingHandle{"SP": {}, "GO": {}}
	for id, h := range handles {
		if err := s.Register(id, h); err != nil {
			panic(err)
		}
	}
	return s, handles
}

func TestApplyColorsAndPopups(t *testing.T) {
	s, handles := newTestSync(&fixedMode{types.ViewModeTemperature})

	s.Apply(readings{"SP": 25})

	sp, goias := handles["SP"], handles["GO"]
	assert.Equal(t, colormap.NewMapper().Color(25, colormap.TemperatureDomain), sp.last().FillColor)
	assert.Equal(t, colormap.NeutralColor, goias.last().FillColor)
	assert.Contains(t, sp.popup, "25.0 °C")
	assert.Contains(t, goias.popup, "Dados não disponíveis")
	assert.Equal(t, "<strong>Estado:</strong> SP<br><strong>Temperatura:</strong> 25.0 °C", sp.popup)
}

func TestBaseStyleShape(t *testing.T) {
	s, handles := newTestSync(&fixedMode{types.ViewModeTemperature})
	s.Apply(readings{"SP": 25, "GO": 30})

	got := handles["GO"].last()
	assert.Equal(t, 1, got.Weight)
	assert.Equal(t, 1.0, got.Opacity)
	assert.Equal(t, "white", got.Color)
	assert.Equal(t, "3", got.DashArray)
	assert.Equal(t, 0.7, got.FillOpacity)
}

func TestModeRoundTripRestoresColors(t *testing.T) {
	mode := &fixedMode{types.ViewModeTemperature}
	s, handles := newTestSync(mode)
	s.Apply(readings{"SP": 25, "GO": 31.5})

	before := map[types.RegionID]Style{"SP": handles["SP"].last(), "GO": handles["GO"].last()}

	mode.mode = types.ViewModeDensity
	s.Restyle()
	assert.NotEqual(t, before["SP"], handles["SP"].last())
	assert.Equal(t, colormap.NewMapper().DensityColor(17.74), handles["GO"].last().FillColor)

	mode.mode = types.ViewModeTemperature
	s.Restyle()
	assert.Equal(t, before["SP"], handles["SP"].last())
	assert.Equal(t, before["GO"], handles["GO"].last())
}

func TestRestyleLeavesPopups(t *testing.T) {
	mode := &fixedMode{types.ViewModeTemperature}
	s, handles := newTestSync(mode)
	s.Apply(readings{"SP": 25})
	handles["SP"].popup = "sentinel"

	s.Restyle()

	assert.Equal(t, "sentinel", handles["SP"].popup)
}

func TestHighlightAndReset(t *testing.T) {
	s, handles := newTestSync(&fixedMode{types.ViewModeTemperature})
	s.Apply(readings{"SP": 25})
	resting := handles["SP"].last()

	require.NoError(t, s.Highlight("SP"))
	hl := handles["SP"].last()
	assert.Equal(t, 3, hl.Weight)
	assert.Equal(t, "#666", hl.Color)
	assert.Equal(t, "", hl.DashArray)
	assert.Equal(t, resting.FillColor, hl.FillColor)

	require.NoError(t, s.ResetHighlight("SP"))
	assert.Equal(t, resting, handles["SP"].last())
	assert.Equal(t, resting, s.StyleFor("SP"))
}

func TestHighlightUnknownRegion(t *testing.T) {
	s, _ := newTestSync(&fixedMode{types.ViewModeTemperature})

	err := s.Highlight("RJ")

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundRegion, appErr.Code)
}

func TestZoomTarget(t *testing.T) {
	s, _ := newTestSync(&fixedMode{types.ViewModeTemperature})

	box, err := s.ZoomTarget("GO")
	require.NoError(t, err)
	assert.Equal(t, types.BoundingBox{MinLat: -19.5, MaxLat: -12, MinLon: -52, MaxLon: -46}, box)

	_, err = s.ZoomTarget("XX")
	assert.Error(t, err)
}

func TestRegisterRejectsUntrackedRegion(t *testing.T) {
	s := New(Config{Catalog: regions.Builtin(), Mapper: colormap.NewMapper()})
	assert.Error(t, s.Register("RJ", &recordingHandle{}))
}

func TestRegisterPushesCurrentState(t *testing.T) {
	s := New(Config{Catalog: regions.Builtin(), Mapper: colormap.NewMapper()})
	s.Apply(readings{"SP": 12})

	h := &recordingHandle{}
	require.NoError(t, s.Register("SP", h))

	assert.Contains(t, h.popup, "12.0 °C")
	assert.Len(t, h.styles, 1)
}

func TestCloseDropsHandles(t *testing.T) {
	s, handles := newTestSync(&fixedMode{types.ViewModeTemperature})
	s.Close()
	pushed := len(handles["SP"].styles)

	s.Apply(readings{"SP": 30})
	s.Restyle()

	assert.Empty(t, s.Handles())
	assert.Len(t, handles["SP"].styles, pushed)
	assert.Error(t, s.Register("SP", &recordingHandle{}))
	assert.NotPanics(t, s.Close)
}

func TestUnregister(t *testing.T) {
	s, _ := newTestSync(&fixedMode{types.ViewModeTemperature})
	s.Unregister("GO")
	assert.Equal(t, []types.RegionID{"SP"}, s.Handles())
}

func TestPanelText(t *testing.T) {
	assert.Equal(t, "Temperatura: 25.0 °C", PanelText(types.Celsius(25)))
	assert.Equal(t, "Carregando...", PanelText(types.Unknown()))
}
