package core

import (
	"context"
	"maps"
)

// MetricPrefix starts every metric name emitted by an Observer.
const MetricPrefix = "payhooks"

// OperationCounterName is the counter recorded once per observed operation,
// e.g. payhooks.dispatch.total.
func OperationCounterName(operation string) string {
	return MetricPrefix + "." + operation + ".total"
}

func OperationDurationName(operation string) string {
	return MetricPrefix + "." + operation + ".duration_ms"
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

var _ MetricsRecorder = NopMetricsRecorder{}
