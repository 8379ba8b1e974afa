package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestObserverObserveOperation_Success(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := NewObserver("payhooks.test", nil, logger, metrics)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	observer.Now = func() time.Time { return fixed }

	observer.ObserveOperation(context.Background(), fixed.Add(-25*time.Millisecond), "webhook.charge-succeeded", nil,
		map[string]any{"order_id": "ord_9", "kind": "charge.succeeded"}, "kind")

	if len(metrics.counters) != 1 || metrics.counters[0].name != "payhooks.webhook_charge_succeeded.total" {
		t.Fatalf("expected normalised counter, got %#v", metrics.counters)
	}
	if got := metrics.counters[0].tags["kind"]; got != "charge.succeeded" {
		t.Fatalf("expected kind tag, got %q", got)
	}
	if _, ok := metrics.counters[0].tags["order_id"]; ok {
		t.Fatalf("expected order_id to stay out of metric tags")
	}
	if len(metrics.histograms) != 1 || metrics.histograms[0].value != 25 {
		t.Fatalf("expected 25ms histogram, got %#v", metrics.histograms)
	}
	logs := logger.snapshot()
	if len(logs) != 1 || logs[0].level != "info" || logs[0].msg != "webhook_charge_succeeded succeeded" {
		t.Fatalf("expected one info log, got %#v", logs)
	}
	if logs[0].fields["order_id"] != "ord_9" {
		t.Fatalf("expected order_id log field, got %#v", logs[0].fields)
	}
}

func TestObserverObserveOperation_FailureCarriesErrorCode(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := NewObserver("payhooks.test", nil, logger, metrics)

	observer.ObserveOperation(context.Background(), time.Now(), "apply_charge", OrderNotFoundError("ord_x"), nil)

	if metrics.counters[0].tags["status"] != "failure" {
		t.Fatalf("expected failure status tag, got %#v", metrics.counters[0].tags)
	}
	logs := logger.snapshot()
	if len(logs) != 1 || logs[0].level != "error" {
		t.Fatalf("expected error log, got %#v", logs)
	}
	if logs[0].fields["error_code"] != ErrorOrderNotFound {
		t.Fatalf("expected error_code field, got %#v", logs[0].fields)
	}
}

func TestObserverObserveQuietOperation_LogsSuccessAtDebug(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	observer := NewObserver("payhooks.test", nil, logger, metrics)

	observer.ObserveQuietOperation(context.Background(), time.Now(), "webhook_dispatch", nil,
		map[string]any{"outcome": "order_not_found"}, "outcome")

	logs := logger.snapshot()
	if len(logs) != 1 || logs[0].level != "debug" || logs[0].msg != "webhook_dispatch succeeded" {
		t.Fatalf("expected one debug log, got %#v", logs)
	}
	if len(metrics.counters) != 1 || metrics.counters[0].tags["outcome"] != "order_not_found" {
		t.Fatalf("expected counter with outcome tag, got %#v", metrics.counters)
	}

	observer.ObserveQuietOperation(context.Background(), time.Now(), "webhook_dispatch", errors.New("boom"), nil)
	logs = logger.snapshot()
	if len(logs) != 2 || logs[1].level != "error" {
		t.Fatalf("expected failures to stay at error level, got %#v", logs)
	}
}

func TestObserverNilSafe(t *testing.T) {
	var observer *Observer
	observer.Warn(context.Background(), "ignored", nil)
	observer.ObserveOperation(context.Background(), time.Now(), "noop", errors.New("boom"), nil)
}

func TestObserverLevels(t *testing.T) {
	logger := newCaptureLogger()
	observer := NewObserver("payhooks.test", nil, logger, nil)
	observer.Debug(context.Background(), "d", nil)
	observer.Warn(context.Background(), "w", map[string]any{"k": "v"})
	observer.Error(context.Background(), "e", nil)

	logs := logger.snapshot()
	want := []string{"debug", "warn", "error"}
	if len(logs) != len(want) {
		t.Fatalf("expected %d logs, got %d", len(want), len(logs))
	}
	for i, level := range want {
		if logs[i].level != level {
			t.Fatalf("log %d: expected %s, got %s", i, level, logs[i].level)
		}
	}
	if logs[1].fields["k"] != "v" {
		t.Fatalf("expected warn field, got %#v", logs[1].fields)
	}
}
