package core

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Observer emits structured logs and metrics for one component.
type Observer struct {
	Logger  Logger
	Metrics MetricsRecorder
	Now     func() time.Time
}

// NewObserver resolves a named logger the same way every component does:
// explicit provider first, then the given logger, then a nop logger.
func NewObserver(name string, provider LoggerProvider, logger Logger, metrics MetricsRecorder) *Observer {
	_, resolved := glog.Resolve(name, provider, logger)
	if metrics == nil {
		metrics = NopMetricsRecorder{}
	}
	return &Observer{Logger: resolved, Metrics: metrics, Now: time.Now}
}

// ObserveOperation records a counter, a duration histogram and a log line for
// a finished operation. Extra string fields listed in tagKeys become metric tags.
func (o *Observer) ObserveOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
	tagKeys ...string,
) {
	o.observe(ctx, startedAt, operation, err, fields, "info", tagKeys)
}

// ObserveQuietOperation is ObserveOperation with the success line at debug
// level, for outcomes that already logged their own warning.
func (o *Observer) ObserveQuietOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
	tagKeys ...string,
) {
	o.observe(ctx, startedAt, operation, err, fields, "debug", tagKeys)
}

func (o *Observer) observe(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
	successLevel string,
	tagKeys []string,
) {
	if o == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	elapsed := o.now().Sub(startedAt).Milliseconds()

	contextFields := cloneFields(fields)
	contextFields["operation"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = elapsed
	if err != nil {
		contextFields["error"] = err.Error()
		if mapped := MapError(err); mapped != nil {
			contextFields["error_code"] = mapped.TextCode
			contextFields["error_category"] = string(mapped.Category)
		}
	}

	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	for _, key := range tagKeys {
		if value := strings.TrimSpace(fmt.Sprint(contextFields[key])); value != "" && value != "<nil>" {
			tags[key] = value
		}
	}

	o.recordCounter(ctx, OperationCounterName(operation), 1, tags)
	o.recordHistogram(ctx, OperationDurationName(operation), float64(elapsed), tags)

	if err != nil {
		o.Error(ctx, operation+" failed", contextFields)
		return
	}
	o.logWithLevel(ctx, successLevel, operation+" succeeded", contextFields)
}

func (o *Observer) Debug(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "debug", message, fields)
}

func (o *Observer) Info(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "info", message, fields)
}

func (o *Observer) Warn(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "warn", message, fields)
}

func (o *Observer) Error(ctx context.Context, message string, fields map[string]any) {
	o.logWithLevel(ctx, "error", message, fields)
}

func (o *Observer) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if o == nil || o.Logger == nil {
		return
	}
	logger := o.Logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		logger.Debug(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (o *Observer) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if o == nil || o.Metrics == nil {
		return
	}
	o.Metrics.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (o *Observer) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if o == nil || o.Metrics == nil {
		return
	}
	o.Metrics.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (o *Observer) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return maps.Clone(fields)
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	operation = strings.ReplaceAll(operation, ".", "_")
	return operation
}
