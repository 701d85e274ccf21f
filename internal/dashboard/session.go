// Package dashboard runs a live dashboard session: a single event loop that
// owns the latest snapshot and drives polling, heat regeneration, the clock
// and user commands.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"heatwatch/internal/colormap"
	"heatwatch/internal/feed"
	"heatwatch/internal/heatfield"
	"heatwatch/internal/overlay"
	"heatwatch/internal/regions"
	"heatwatch/internal/telemetry"
	"heatwatch/internal/types"
	"heatwatch/internal/viewmode"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/paulmach/orb/geojson"
)

// GeometryLoader loads region shapes once per session.
type GeometryLoader interface {
	Load(ctx context.Context, ids []types.RegionID) (*geojson.FeatureCollection, regions.LoadReport)
}

// Poller gathers one temperature batch.
type Poller interface {
	Poll(ctx context.Context) feed.Snapshot
}

// Config wires a Session.
type Config struct {
	// ID identifies the session in logs and outbound requests; generated
	// when empty.
	ID          string
	Catalog     *regions.Catalog
	Geometry    GeometryLoader
	Feed        Poller
	Synthesizer *heatfield.Synthesizer
	Modes       *viewmode.Controller
	Mapper      colormap.Mapper
	Surface     Surface

	PollInterval  time.Duration
	HeatInterval  time.Duration
	ClockInterval time.Duration
	// Location is the time zone of the published clock. Nil means UTC.
	Location *time.Location

	Clock    clockwork.Clock
	Recorder telemetry.Recorder
	Logger   *slog.Logger
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateRunning
	stateStopped
)

// Status is a point-in-time summary of a session.
type Status struct {
	ID          string    `json:"session_id"`
	Running     bool      `json:"running"`
	Tick        uint64    `json:"tick"`
	LastBatchAt time.Time `json:"last_batch_at,omitzero"`
	Regions     int       `json:"regions_rendered"`
}

// Session is one live dashboard. Loop-owned fields are only touched from the
// event loop goroutine.
type Session struct {
	id         string
	catalog    *regions.Catalog
	geometry   GeometryLoader
	feed       Poller
	synth      *heatfield.Synthesizer
	modes      *viewmode.Controller
	mapper     colormap.Mapper
	surface    Surface
	sync       *overlay.Sync
	clock      clockwork.Clock
	location   *time.Location
	recorder   telemetry.Recorder
	logger     *slog.Logger
	intervals  [3]time.Duration
	commands   chan func()
	batches    chan feed.Snapshot
	done       chan struct{}
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	stopOnce   sync.Once
	collection *geojson.FeatureCollection

	mu     sync.Mutex
	state  sessionState
	status Status

	// loop-owned
	snapshot  feed.Snapshot
	heat      []types.HeatPoint
	polling   bool
	lastState viewmode.State
	tickers   []clockwork.Ticker
}

// New creates an idle session.
func New(cfg Config) *Session {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = telemetry.Noop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session_id", id)

	s := &Session{
		id:        id,
		catalog:   cfg.Catalog,
		geometry:  cfg.Geometry,
		feed:      cfg.Feed,
		synth:     cfg.Synthesizer,
		modes:     cfg.Modes,
		mapper:    cfg.Mapper,
		surface:   cfg.Surface,
		clock:     clock,
		location:  loc,
		recorder:  recorder,
		logger:    logger,
		intervals: [3]time.Duration{orSecond(cfg.PollInterval), orSecond(cfg.HeatInterval), orSecond(cfg.ClockInterval)},
		commands:  make(chan func()),
		batches:   make(chan feed.Snapshot, 1),
		done:      make(chan struct{}),
		status:    Status{ID: id},
	}
	s.sync = overlay.New(overlay.Config{
		Catalog: cfg.Catalog,
		Mapper:  cfg.Mapper,
		Modes:   cfg.Modes,
		Logger:  logger,
	})
	return s
}

func orSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Second
	}
	return d
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Overlay returns the session's region layer sync.
func (s *Session) Overlay() *overlay.Sync { return s.sync }

// Regions returns the rendered region collection, nil before Start.
func (s *Session) Regions() *geojson.FeatureCollection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection
}

// View returns the current view mode and heat visibility.
func (s *Session) View() viewmode.State { return s.modes.State() }

// Status returns a summary of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Running = s.state == stateRunning
	return st
}

// Start loads geometry, renders the regions, publishes the legend and the
// initial panel, polls once immediately and starts the three tickers.
// A session starts at most once. A Stop issued while Start is loading
// geometry waits for it and the session never begins polling.
func (s *Session) Start(ctx context.Context) error {
	ctx = types.WithSessionID(context.WithoutCancel(ctx), s.id)
	loopCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		cancel()
		return types.NewAppError(types.ErrCodeConflictSessionClosed, "session already started or stopped", nil)
	}
	s.state = stateRunning
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	fc, report := s.geometry.Load(loopCtx, s.catalog.IDs())
	if loopCtx.Err() != nil {
		close(s.done)
		return types.NewAppError(types.ErrCodeConflictSessionClosed, "session stopped while starting", nil)
	}
	handles := s.surface.RenderRegions(fc)
	for id, h := range handles {
		if err := s.sync.Register(id, h); err != nil {
			s.logger.WarnContext(ctx, "rendered region not registered", "region", string(id), "error", err)
		}
	}

	s.mu.Lock()
	s.collection = fc
	s.status.Regions = len(s.sync.Handles())
	s.mu.Unlock()

	s.lastState = s.modes.State()
	s.modes.Subscribe(s.onViewChange)
	s.surface.PublishLegend(s.mapper.Legend(s.lastState.Mode))
	s.publishPanel()
	s.surface.PublishClock(s.clock.Now().In(s.location))

	s.tickers = []clockwork.Ticker{
		s.clock.NewTicker(s.intervals[0]),
		s.clock.NewTicker(s.intervals[1]),
		s.clock.NewTicker(s.intervals[2]),
	}

	s.logger.InfoContext(ctx, "dashboard session started",
		"regions", s.catalog.Len(),
		"rendered", len(handles),
		"geometry_failed", len(report.Failed),
		"poll_interval", s.intervals[0].String(),
	)

	s.wg.Add(1)
	go s.loop(loopCtx)
	return nil
}

// Stop tears the session down: it cancels the loop and in-flight fetches,
// stops the tickers, waits for every goroutine, closes the overlay sync and
// tears the surface down. Stop is idempotent and safe before Start.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		wasRunning := s.state == stateRunning
		s.state = stateStopped
		s.mu.Unlock()

		if !wasRunning {
			close(s.done)
			s.sync.Close()
			return
		}

		s.cancel()
		s.wg.Wait()
		s.sync.Close()
		s.surface.Teardown()
		s.logger.Info("dashboard session stopped")
	})
}

func (s *Session) loop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.done)
	defer func() {
		for _, t := range s.tickers {
			t.Stop()
		}
	}()

	pollC, heatC, clockC := s.tickers[0].Chan(), s.tickers[1].Chan(), s.tickers[2].Chan()
	s.startPoll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-pollC:
			s.guard(ctx, "poll", func() { s.startPoll(ctx) })
		case snap := <-s.batches:
			s.polling = false
			s.guard(ctx, "batch", func() { s.applyBatch(ctx, snap) })
		case <-heatC:
			s.guard(ctx, "heat", func() { s.refreshHeat(ctx) })
		case now := <-clockC:
			s.guard(ctx, "clock", func() { s.surface.PublishClock(now.In(s.location)) })
		case cmd := <-s.commands:
			s.guard(ctx, "command", cmd)
		}
	}
}

// guard runs fn unless the session is shutting down, recovering panics so one
// bad callback does not kill the loop.
func (s *Session) guard(ctx context.Context, name string, fn func()) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "panic in session loop", "callback", name, "panic", fmt.Sprint(rec))
		}
	}()
	fn()
}

// startPoll launches a gather unless one is already in flight.
func (s *Session) startPoll(ctx context.Context) {
	if s.polling {
		s.logger.DebugContext(ctx, "previous gather still running, tick skipped")
		return
	}
	s.polling = true
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		snap := s.feed.Poll(ctx)
		select {
		case s.batches <- snap:
		case <-ctx.Done():
		}
	}()
}

func (s *Session) applyBatch(ctx context.Context, snap feed.Snapshot) {
	if snap.Tick <= s.snapshot.Tick {
		return
	}
	s.snapshot = snap
	s.sync.Apply(snap)
	s.publishPanel()
	s.refreshHeat(ctx)

	s.mu.Lock()
	s.status.Tick = snap.Tick
	s.status.LastBatchAt = snap.PublishedAt
	s.mu.Unlock()
}

func (s *Session) refreshHeat(ctx context.Context) {
	s.heat = s.synth.GenerateIfReady(s.snapshot)
	s.recorder.RecordHeatPoints(ctx, len(s.heat))
	if s.heat != nil && s.lastState.HeatVisible {
		s.surface.PublishHeat(s.heat)
	}
}

func (s *Session) publishPanel() {
	rs := s.catalog.Regions()
	entries := make([]PanelEntry, 0, len(rs))
	for _, r := range rs {
		reading := s.snapshot.Temperature(r.ID)
		entries = append(entries, PanelEntry{
			Region:      r.ID,
			Name:        r.Name,
			Temperature: reading,
			Text:        overlay.PanelText(reading),
		})
	}
	s.surface.PublishPanel(entries)
}

// onViewChange runs on the loop: view changes are only made through
// Session commands.
func (s *Session) onViewChange(st viewmode.State) {
	prev := s.lastState
	s.lastState = st

	if st.Mode != prev.Mode {
		s.sync.Restyle()
		s.surface.PublishLegend(s.mapper.Legend(st.Mode))
	}
	if st.HeatVisible != prev.HeatVisible {
		if !st.HeatVisible {
			s.surface.ClearHeat()
		} else if s.heat != nil {
			s.surface.PublishHeat(s.heat)
		}
	}
}
