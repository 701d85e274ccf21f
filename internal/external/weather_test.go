package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"heatwatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saoPaulo = types.Coordinate{Lat: -23.5505, Lon: -46.6333}

func newWeatherTestClient(t *testing.T, serverURL string, key types.SecretString) *WeatherClient {
	t.Helper()
	return NewWeatherClient(newTestClient(t, DefaultRetryPolicy()), WeatherClientConfig{
		BaseURL:  serverURL + "/v1/forecast",
		APIKey:   key,
		Timezone: "America/Sao_Paulo",
	})
}

func TestCurrentTemperature_Success(t *testing.T) {
	var query url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"latitude":-23.5,"current_weather":{"temperature":25.4,"windspeed":3.1,"time":"2024-01-01T12:00"}}`))
	}))
	defer server.Close()

	temp, err := newWeatherTestClient(t, server.URL, "").CurrentTemperature(context.Background(), "SP", saoPaulo)
	require.NoError(t, err)

	assert.Equal(t, 25.4, temp)
	assert.Equal(t, "-23.5505", query.Get("latitude"))
	assert.Equal(t, "-46.6333", query.Get("longitude"))
	assert.Equal(t, "true", query.Get("current_weather"))
	assert.Equal(t, "America/Sao_Paulo", query.Get("timezone"))
	assert.False(t, query.Has("apikey"))
}

func TestCurrentTemperature_ZeroIsAValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_weather":{"temperature":0}}`))
	}))
	defer server.Close()

	temp, err := newWeatherTestClient(t, server.URL, "").CurrentTemperature(context.Background(), "SP", saoPaulo)
	require.NoError(t, err)
	assert.Equal(t, 0.0, temp)
}

func TestCurrentTemperature_SendsAPIKey(t *testing.T) {
	var key string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.URL.Query().Get("apikey")
		w.Write([]byte(`{"current_weather":{"temperature":12}}`))
	}))
	defer server.Close()

	_, err := newWeatherTestClient(t, server.URL, "k-1").CurrentTemperature(context.Background(), "SP", saoPaulo)
	require.NoError(t, err)
	assert.Equal(t, "k-1", key)
}

func TestCurrentTemperature_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   types.ErrorCode
	}{
		{"missing current_weather", http.StatusOK, `{"latitude":1}`, types.ErrCodeUpstreamMalformed},
		{"missing temperature", http.StatusOK, `{"current_weather":{"windspeed":1}}`, types.ErrCodeUpstreamMalformed},
		{"not json", http.StatusOK, `oops`, types.ErrCodeUpstreamMalformed},
		{"bad request", http.StatusBadRequest, `{"error":true,"reason":"bad latitude"}`, types.ErrCodeTemperatureUnavailable},
		{"server error", http.StatusBadGateway, ``, types.ErrCodeUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newWeatherTestClient(t, server.URL, "").CurrentTemperature(context.Background(), "GO", saoPaulo)

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.want, appErr.Code)
			assert.Equal(t, "GO", appErr.Details["region"])
			assert.True(t, appErr.Code.IsProviderFailure())
		})
	}
}
