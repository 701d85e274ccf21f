package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"heatwatch/internal/types"
)

// WeatherClientConfig holds the configuration for creating a WeatherClient.
type WeatherClientConfig struct {
	BaseURL  string
	APIKey   types.SecretString
	Timezone string
	Logger   *slog.Logger
}

// openMeteoResponse is the subset of the Open-Meteo forecast response we read.
type openMeteoResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		Time        string   `json:"time"`
	} `json:"current_weather"`
}

// WeatherClient implements WeatherProvider against the Open-Meteo forecast
// endpoint with current_weather=true.
type WeatherClient struct {
	base     *BaseClient
	baseURL  string
	apiKey   types.SecretString
	timezone string
	logger   *slog.Logger
}

// NewWeatherClient creates a WeatherClient sharing the given BaseClient.
func NewWeatherClient(base *BaseClient, cfg WeatherClientConfig) *WeatherClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherClient{
		base:     base,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		timezone: cfg.Timezone,
		logger:   logger,
	}
}

// CurrentTemperature queries the provider for the current temperature at the
// coordinate.
func (c *WeatherClient) CurrentTemperature(ctx context.Context, id types.RegionID, at types.Coordinate) (float64, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(at.Lon, 'f', -1, 64))
	q.Set("current_weather", "true")
	if c.timezone != "" {
		q.Set("timezone", c.timezone)
	}
	if c.apiKey.IsSet() {
		q.Set("apikey", c.apiKey.Unmask())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, types.NewRegionError(types.ErrCodeInternalUnexpected, id, "failed to create weather request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		var appErr *types.AppError
		if isAppError(err, &appErr) {
			return 0, types.NewRegionError(appErr.Code, id, "weather: "+appErr.Message, appErr.Err)
		}
		return 0, types.NewRegionError(types.ErrCodeTemperatureUnavailable, id, "weather fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, handleErrorResponse(c.logger, resp, types.ErrCodeTemperatureUnavailable, id, "weather")
	}

	var body openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, types.NewRegionError(types.ErrCodeUpstreamMalformed, id, "failed to decode weather response", err)
	}
	if body.CurrentWeather == nil || body.CurrentWeather.Temperature == nil {
		return 0, types.NewRegionError(
			types.ErrCodeUpstreamMalformed,
			id,
			"weather response has no current_weather.temperature",
			fmt.Errorf("missing field"),
		)
	}

	return *body.CurrentWeather.Temperature, nil
}

// Compile-time interface compliance check.
var _ WeatherProvider = (*WeatherClient)(nil)
