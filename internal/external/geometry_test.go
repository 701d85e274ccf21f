package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"heatwatch/internal/types"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "geometry": {"type": "Polygon", "coordinates": [[[-53,-23],[-45,-23],[-45,-21],[-53,-21],[-53,-23]]]},
    "properties": {"codarea": "35"}
  }]
}`

func newGeometryTestClient(t *testing.T, serverURL string) *GeometryClient {
	t.Helper()
	return NewGeometryClient(newTestClient(t, DefaultRetryPolicy()), GeometryClientConfig{BaseURL: serverURL + "/malhas/estados/"})
}

func TestFetchGeometry_Success(t *testing.T) {
	var gotPath, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotFormat = r.URL.Query().Get("formato")
		w.Header().Set("Content-Type", geoJSONMediaType)
		w.Write([]byte(spFeatureCollection))
	}))
	defer server.Close()

	geom, err := newGeometryTestClient(t, server.URL).FetchGeometry(context.Background(), "SP")
	require.NoError(t, err)

	assert.Equal(t, "/malhas/estados/SP", gotPath)
	assert.Equal(t, "application/vnd.geo+json", gotFormat)
	poly, ok := geom.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 5)
}

func TestFetchGeometry_HTTPErrorIsGeometryUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newGeometryTestClient(t, server.URL).FetchGeometry(context.Background(), "XX")
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeGeometryUnavailable, appErr.Code)
	assert.Equal(t, "XX", appErr.Details["region"])
	assert.Equal(t, http.StatusNotFound, appErr.Details["status_code"])
}

func TestFetchGeometry_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"Point","coordinates":[1,2]}`))
	}))
	defer server.Close()

	_, err := newGeometryTestClient(t, server.URL).FetchGeometry(context.Background(), "GO")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamMalformed, appErr.Code)
}

func TestFetchGeometry_ServerErrorIsUpstreamUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newGeometryTestClient(t, server.URL).FetchGeometry(context.Background(), "GO")

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
	assert.Equal(t, "GO", appErr.Details["region"])
}

func TestDecodeGeometry(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    string
		wantErr bool
	}{
		{name: "feature collection", doc: spFeatureCollection, want: "Polygon"},
		{
			name: "feature with multipolygon",
			doc:  `{"type":"Feature","geometry":{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]]]},"properties":{}}`,
			want: "MultiPolygon",
		},
		{name: "bare polygon", doc: `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, want: "Polygon"},
		{name: "empty polygon", doc: `{"type":"Polygon","coordinates":[]}`, wantErr: true},
		{name: "line string", doc: `{"type":"LineString","coordinates":[[0,0],[1,1]]}`, wantErr: true},
		{name: "empty collection", doc: `{"type":"FeatureCollection","features":[]}`, wantErr: true},
		{name: "no type", doc: `{"coordinates":[]}`, wantErr: true},
		{name: "not json", doc: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom, err := DecodeGeometry([]byte(tt.doc))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, geom.GeoJSONType())
		})
	}
}
