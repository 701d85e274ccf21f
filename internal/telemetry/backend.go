package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"heatwatch/internal/config"
)

// Backend names accepted by METRICS_BACKEND.
const (
	BackendNone       = "none"
	BackendPrometheus = "prometheus"
	BackendCloudWatch = "cloudwatch"
)

// New builds the Recorder selected by cfg. The returned handler serves
// /metrics and is nil for push or disabled backends.
func New(ctx context.Context, cfg config.ObservabilityConfig, logger *slog.Logger) (Recorder, http.Handler, error) {
	switch cfg.MetricsBackend {
	case BackendNone, "":
		return Noop{}, nil, nil
	case BackendPrometheus:
		rec := NewPrometheusRecorder(cfg.MetricNamespace)
		return rec, rec.Handler(), nil
	case BackendCloudWatch:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}
		client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWSEndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			}
		})
		return NewCloudWatchRecorder(client, cfg.MetricNamespace, logger), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown metrics backend %q", cfg.MetricsBackend)
	}
}
