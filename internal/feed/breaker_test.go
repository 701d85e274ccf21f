package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"heatwatch/internal/external"
	"heatwatch/internal/regions"
	"heatwatch/internal/types"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPollReachesProviderOnFirstTickAfterOutage runs the real weather client
// behind a shared breaker sized the way the dashboard sizes it: an outage
// long enough to trip the breaker must not cost any tick after recovery.
func TestPollReachesProviderOnFirstTickAfterOutage(t *testing.T) {
	var hits atomic.Int32
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"current_weather":{"temperature":27.5}}`)
	}))
	defer server.Close()

	const pollInterval = 40 * time.Millisecond
	catalog := regions.Builtin()
	base := external.NewBaseClient(
		&http.Client{Timeout: time.Second},
		external.BreakerSettings{
			Name:        "weather",
			MaxFailures: 5,
			OpenTimeout: pollInterval / 2,
			MaxRequests: uint32(catalog.Len()),
		},
		external.DefaultRetryPolicy(),
		"HeatWatch-Test/1.0",
	)
	f := New(Config{
		Catalog:      catalog,
		Provider:     external.NewWeatherClient(base, external.WeatherClientConfig{BaseURL: server.URL}),
		FetchTimeout: time.Second,
		Clock:        clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)),
	})

	for i := 0; i < 3; i++ {
		snap := f.Poll(context.Background())
		require.Empty(t, snap.Known())
	}

	healthy.Store(true)
	time.Sleep(pollInterval)
	before := hits.Load()

	snap := f.Poll(context.Background())

	assert.Equal(t, int32(catalog.Len()), hits.Load()-before, "every region reaches the provider")
	assert.Equal(t, []types.RegionID{"GO", "SP"}, snap.Known())
	assert.Empty(t, snap.Failed())
	assert.Equal(t, types.Celsius(27.5), snap.Temperature("SP"))
}
