package types

// Telemetry metric names shared by every metrics backend.
const (
	MetricProviderFetch  = "ProviderFetch"
	MetricBatchLatency   = "BatchLatency"
	MetricBatchFailures  = "BatchFailures"
	MetricHeatPoints     = "HeatPoints"
	MetricSurfaceClients = "SurfaceClients"

	DimProvider = "Provider"
	DimRegion   = "Region"
	DimResult   = "Result"

	MetricNamespace = "HeatWatch"
)

// Provider names used as metric dimensions and log attributes.
const (
	ProviderGeometry = "geometry"
	ProviderWeather  = "weather"
)
