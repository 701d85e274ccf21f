package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"heatwatch/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchRecorder pushes every measurement with PutMetricData.
//
// Metrics emitted:
//   - ProviderFetch: Dims {Provider, Region, Result}
//   - BatchLatency: no dims, milliseconds
//   - BatchFailures: no dims, count
//   - HeatPoints / SurfaceClients: no dims, count
//
// Failed puts are logged and dropped.
type CloudWatchRecorder struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRecorder creates a recorder publishing to namespace. An empty
// namespace falls back to types.MetricNamespace.
func NewCloudWatchRecorder(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRecorder {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRecorder{client: client, namespace: namespace, logger: logger}
}

func (m *CloudWatchRecorder) RecordFetch(ctx context.Context, provider string, region types.RegionID, result Result) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricProviderFetch),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimProvider), Value: aws.String(provider)},
			{Name: aws.String(types.DimRegion), Value: aws.String(string(region))},
			{Name: aws.String(types.DimResult), Value: aws.String(string(result))},
		},
	})
}

func (m *CloudWatchRecorder) RecordBatch(ctx context.Context, latency time.Duration, failed int) {
	m.put(ctx,
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricBatchLatency),
			Value:      aws.Float64(float64(latency.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricBatchFailures),
			Value:      aws.Float64(float64(failed)),
			Unit:       cwtypes.StandardUnitCount,
		},
	)
}

func (m *CloudWatchRecorder) RecordHeatPoints(ctx context.Context, n int) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricHeatPoints),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

func (m *CloudWatchRecorder) RecordSurfaceClients(ctx context.Context, n int) {
	m.put(ctx, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricSurfaceClients),
		Value:      aws.Float64(float64(n)),
		Unit:       cwtypes.StandardUnitCount,
	})
}

func (m *CloudWatchRecorder) put(ctx context.Context, data ...cwtypes.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to put metric data",
			"error", err.Error(),
			"metric", aws.ToString(data[0].MetricName),
		)
	}
}

var _ Recorder = (*CloudWatchRecorder)(nil)
