package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"heatwatch/internal/types"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// geoJSONMediaType is the format parameter the IBGE malhas API expects.
const geoJSONMediaType = "application/vnd.geo+json"

// maxGeometryBytes caps boundary documents; a state mesh is a few hundred KB.
const maxGeometryBytes = 16 << 20

// GeometryClientConfig holds the configuration for creating a GeometryClient.
type GeometryClientConfig struct {
	BaseURL string
	Logger  *slog.Logger
}

// GeometryClient implements GeometryProvider against the IBGE malhas v3
// endpoint: GET {base}/{id}?formato=application/vnd.geo+json.
type GeometryClient struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

// NewGeometryClient creates a GeometryClient sharing the given BaseClient.
func NewGeometryClient(base *BaseClient, cfg GeometryClientConfig) *GeometryClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GeometryClient{
		base:    base,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

// FetchGeometry downloads and decodes the boundary of one region.
func (c *GeometryClient) FetchGeometry(ctx context.Context, id types.RegionID) (orb.Geometry, error) {
	q := url.Values{}
	q.Set("formato", geoJSONMediaType)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(string(id)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewRegionError(types.ErrCodeInternalUnexpected, id, "failed to create geometry request", err)
	}
	req.Header.Set("Accept", geoJSONMediaType+", application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, c.wrapError(id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, handleErrorResponse(c.logger, resp, types.ErrCodeGeometryUnavailable, id, "geometry")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGeometryBytes))
	if err != nil {
		return nil, types.NewRegionError(types.ErrCodeGeometryUnavailable, id, "failed to read geometry body", err)
	}

	geom, err := DecodeGeometry(body)
	if err != nil {
		return nil, types.NewRegionError(types.ErrCodeUpstreamMalformed, id, "geometry document is malformed", err)
	}
	return geom, nil
}

func (c *GeometryClient) wrapError(id types.RegionID, err error) error {
	var appErr *types.AppError
	if isAppError(err, &appErr) {
		return types.NewRegionError(appErr.Code, id, "geometry: "+appErr.Message, appErr.Err)
	}
	return types.NewRegionError(types.ErrCodeGeometryUnavailable, id, "geometry fetch failed", err)
}

// DecodeGeometry extracts the first polygonal geometry from a GeoJSON
// document. The document may be a FeatureCollection, a Feature or a bare
// geometry. Empty or non-polygonal geometry is an error.
func DecodeGeometry(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		for _, f := range fc.Features {
			if g, ok := polygonal(f.Geometry); ok {
				return g, nil
			}
		}
		return nil, fmt.Errorf("feature collection has no polygonal geometry")
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		if g, ok := polygonal(f.Geometry); ok {
			return g, nil
		}
		return nil, fmt.Errorf("feature has no polygonal geometry")
	case "":
		return nil, fmt.Errorf("geojson document has no type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		if p, ok := polygonal(g.Geometry()); ok {
			return p, nil
		}
		return nil, fmt.Errorf("geometry type %s is not polygonal", head.Type)
	}
}

func polygonal(g orb.Geometry) (orb.Geometry, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return v, len(v) > 0 && len(v[0]) > 0
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 && len(p[0]) > 0 {
				return v, true
			}
		}
	}
	return nil, false
}

// handleErrorResponse reads and logs the error body from a non-2xx response
// that made it past the BaseClient retry logic.
func handleErrorResponse(logger *slog.Logger, resp *http.Response, code types.ErrorCode, id types.RegionID, provider string) *types.AppError {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	bodyStr := string(bodyBytes)

	logger.Warn("provider returned error status",
		"provider", provider,
		"region", string(id),
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	return types.NewRegionError(
		code,
		id,
		fmt.Sprintf("%s provider returned %d", provider, resp.StatusCode),
		fmt.Errorf("%s %s returned %d: %s", provider, id, resp.StatusCode, bodyStr),
	).WithDetails(map[string]any{"status_code": resp.StatusCode})
}

// Compile-time interface compliance check.
var _ GeometryProvider = (*GeometryClient)(nil)
