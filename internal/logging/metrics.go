package logging

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// MetricExporter is an OpenTelemetry push exporter that writes each
// collection as one log entry. Only int64 sums and gauges are reported, and
// zero values are skipped.
type MetricExporter struct {
	log *zap.Logger
}

var _ sdkmetric.Exporter = (*MetricExporter)(nil)

func NewMetricExporter(log *zap.Logger) *MetricExporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &MetricExporter{log: log.Named("metrics")}
}

func (e *MetricExporter) Temporality(k sdkmetric.InstrumentKind) metricdata.Temporality {
	return sdkmetric.DefaultTemporalitySelector(k)
}

func (e *MetricExporter) Aggregation(k sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.DefaultAggregationSelector(k)
}

func (e *MetricExporter) Export(ctx context.Context, rm *metricdata.ResourceMetrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var fields []zap.Field
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			var total int64
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
			default:
				continue
			}
			if total != 0 {
				fields = append(fields, zap.Int64(m.Name, total))
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	e.log.Info("metrics", fields...)
	return nil
}

func (e *MetricExporter) ForceFlush(context.Context) error { return nil }

func (e *MetricExporter) Shutdown(context.Context) error { return nil }
