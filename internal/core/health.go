package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const healthCheckTimeout = 2 * time.Second

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status      string                     `json:"status"`
	SessionID   string                     `json:"session_id"`
	LastBatchAt *time.Time                 `json:"last_batch_at,omitempty"`
	Components  map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently under a short deadline. Any
// failing or late probe turns the response into 503.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "healthy", SessionID: s.Dashboard.ID()}
	if at := s.Dashboard.Status().LastBatchAt; !at.IsZero() {
		resp.LastBatchAt = &at
	}

	probes := s.HealthProbes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	var (
		mu      sync.Mutex
		results = make(map[string]error, len(probes))
		wg      sync.WaitGroup
	)
	for _, probe := range probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()
			var err error
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						err = fmt.Errorf("probe panicked: %v", rec)
					}
				}()
				err = p.Check(ctx)
			}()
			mu.Lock()
			results[p.Name()] = err
			mu.Unlock()
		}(probe)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	resp.Components = make(map[string]componentStatus, len(probes))
	healthy := true
	for _, probe := range probes {
		name := probe.Name()
		err, finished := results[name]
		switch {
		case !finished:
			healthy = false
			resp.Components[name] = componentStatus{Status: "unhealthy", Message: "health check timed out"}
		case err != nil:
			healthy = false
			resp.Components[name] = componentStatus{Status: "unhealthy", Message: err.Error()}
		default:
			resp.Components[name] = componentStatus{Status: "healthy"}
		}
	}

	if healthy {
		JSON(w, r, http.StatusOK, resp)
		return
	}
	resp.Status = "unhealthy"
	JSON(w, r, http.StatusServiceUnavailable, resp)
}

// SessionProbe fails once the dashboard session stops running.
type SessionProbe struct {
	Dashboard Dashboard
}

func (SessionProbe) Name() string { return "session" }

func (p SessionProbe) Check(context.Context) error {
	if !p.Dashboard.Status().Running {
		return fmt.Errorf("session %s is not running", p.Dashboard.ID())
	}
	return nil
}

// FreshnessProbe fails when the last published batch is older than MaxAge.
// A session that has not published yet is healthy.
type FreshnessProbe struct {
	Dashboard Dashboard
	MaxAge    time.Duration
	Clock     clockwork.Clock
}

func (FreshnessProbe) Name() string { return "feed" }

func (p FreshnessProbe) Check(context.Context) error {
	last := p.Dashboard.Status().LastBatchAt
	if last.IsZero() {
		return nil
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if age := clock.Since(last); age > p.MaxAge {
		return fmt.Errorf("last batch is %s old", age.Truncate(time.Second))
	}
	return nil
}
