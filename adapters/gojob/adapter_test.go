package gojob

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

func TestMessageMappingRoundTrip(t *testing.T) {
	original := inbound.SideEffectJob{
		Kind:          core.EventKindChargeSucceeded,
		OrderID:       "ord_1",
		ExternalID:    "ch_1",
		PhoneOverride: "+52 55 1234 5678",
	}

	converted := ToExecutionMessage(original)
	if converted.JobID != JobIDSideEffects {
		t.Fatalf("expected job id %q, got %q", JobIDSideEffects, converted.JobID)
	}
	if converted.IdempotencyKey != original.IdempotencyKey() {
		t.Fatalf("expected idempotency key %q, got %q", original.IdempotencyKey(), converted.IdempotencyKey)
	}
	if string(converted.DedupPolicy) != DedupPolicyDrop {
		t.Fatalf("expected dedup policy %q, got %q", DedupPolicyDrop, converted.DedupPolicy)
	}

	roundTrip, err := FromExecutionMessage(converted)
	if err != nil {
		t.Fatalf("from execution message: %v", err)
	}
	if roundTrip != original {
		t.Fatalf("expected %#v, got %#v", original, roundTrip)
	}
}

func TestFromExecutionMessage_RejectsForeignOrIncompleteMessages(t *testing.T) {
	cases := []*job.ExecutionMessage{
		nil,
		{JobID: "other.job"},
		{JobID: JobIDSideEffects, Parameters: map[string]any{"kind": "refund", "order_id": "ord_1"}},
		{JobID: JobIDSideEffects, Parameters: map[string]any{"kind": "charge.failed"}},
	}
	for i, msg := range cases {
		if _, err := FromExecutionMessage(msg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestQueueRunner_SubmitEnqueues(t *testing.T) {
	enqueuer := &stubQueueEnqueuer{}
	runner := NewQueueRunner(enqueuer)
	if err := runner.Submit(context.Background(), inbound.SideEffectJob{Kind: core.EventKindChargeFailed, OrderID: "ord_2", ExternalID: "ch_2"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if enqueuer.last == nil || enqueuer.last.IdempotencyKey != "payhooks:charge.failed:ord_2:ch_2" {
		t.Fatalf("expected mapped go-job message, got %#v", enqueuer.last)
	}

	var unconfigured *QueueRunner
	if err := unconfigured.Submit(context.Background(), inbound.SideEffectJob{}); err == nil {
		t.Fatalf("expected error for unconfigured runner")
	}
}

func TestProcessor_AcksSuccessfulDelivery(t *testing.T) {
	ctx := context.Background()
	delivery := &stubQueueDelivery{msg: ToExecutionMessage(inbound.SideEffectJob{Kind: core.EventKindChargeSucceeded, OrderID: "ord_1", ExternalID: "ch_1"})}
	executor := &stubExecutor{}
	processor := NewProcessor(&stubQueueDequeuer{deliveries: []queue.Delivery{delivery}}, executor, RetryPolicy{MaxAttempts: 3}, nil)

	processed, err := processor.ProcessNext(ctx)
	if err != nil {
		t.Fatalf("process next: %v", err)
	}
	if !processed || !delivery.acked {
		t.Fatalf("expected delivery to be acked")
	}
	if len(executor.jobs) != 1 || executor.jobs[0].OrderID != "ord_1" {
		t.Fatalf("expected executor invocation, got %#v", executor.jobs)
	}

	processed, err = processor.ProcessNext(ctx)
	if err != nil || processed {
		t.Fatalf("expected empty queue, got processed=%v err=%v", processed, err)
	}
}

func TestProcessor_RetriesThenDeadLetters(t *testing.T) {
	ctx := context.Background()
	msg := ToExecutionMessage(inbound.SideEffectJob{Kind: core.EventKindChargeSucceeded, OrderID: "ord_1", ExternalID: "ch_1"})
	first := &stubQueueDelivery{msg: msg}
	second := &stubQueueDelivery{msg: msg}
	executor := &stubExecutor{err: errors.New("database unavailable")}
	processor := NewProcessor(
		&stubQueueDequeuer{deliveries: []queue.Delivery{first, second}},
		executor,
		RetryPolicy{MaxAttempts: 2, MaxDelay: time.Second, DeadLetterOnMax: true},
		nil,
	)
	processor.RetryDelay = 30 * time.Second

	if _, err := processor.ProcessNext(ctx); err != nil {
		t.Fatalf("process first: %v", err)
	}
	if !first.nacked || !first.nackOpts.Requeue || first.nackOpts.Delay != time.Second {
		t.Fatalf("expected bounded requeue, got %#v", first.nackOpts)
	}

	if _, err := processor.ProcessNext(ctx); err != nil {
		t.Fatalf("process second: %v", err)
	}
	if second.nackOpts.Requeue || !second.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %#v", second.nackOpts)
	}
}

func TestProcessor_DeadLettersMissingOrderAndMalformedMessages(t *testing.T) {
	ctx := context.Background()
	missing := &stubQueueDelivery{msg: ToExecutionMessage(inbound.SideEffectJob{Kind: core.EventKindChargeSucceeded, OrderID: "ord_x"})}
	malformed := &stubQueueDelivery{msg: &job.ExecutionMessage{JobID: "other.job"}}
	executor := &stubExecutor{err: core.OrderNotFoundError("ord_x")}
	processor := NewProcessor(&stubQueueDequeuer{deliveries: []queue.Delivery{missing, malformed}}, executor, RetryPolicy{MaxAttempts: 5}, nil)

	if _, err := processor.ProcessNext(ctx); err != nil {
		t.Fatalf("process missing: %v", err)
	}
	if !missing.nackOpts.DeadLetter || missing.nackOpts.Requeue {
		t.Fatalf("expected dead letter for missing order, got %#v", missing.nackOpts)
	}
	if _, err := processor.ProcessNext(ctx); err != nil {
		t.Fatalf("process malformed: %v", err)
	}
	if !malformed.nackOpts.DeadLetter {
		t.Fatalf("expected dead letter for malformed message, got %#v", malformed.nackOpts)
	}
	if len(executor.jobs) != 1 {
		t.Fatalf("expected malformed message to skip executor, got %d calls", len(executor.jobs))
	}
}

func TestProcessor_RunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	delivery := &stubQueueDelivery{msg: ToExecutionMessage(inbound.SideEffectJob{Kind: core.EventKindChargeCancelled, OrderID: "ord_1"})}
	executor := &stubExecutor{onRun: cancel}
	processor := NewProcessor(&stubQueueDequeuer{deliveries: []queue.Delivery{delivery}}, executor, RetryPolicy{}, nil)
	processor.PollInterval = time.Millisecond

	err := processor.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if !delivery.acked {
		t.Fatalf("expected delivery processed before stop")
	}
}

func TestNormalizeAttemptBoundaries(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, MaxDelay: 10 * time.Second, DeadLetterOnMax: true}

	opts := policy.NormalizeAttempt(queue.NackOptions{Delay: 30 * time.Second, Requeue: true, Reason: " transient "}, 1)
	if opts.Delay != 10*time.Second || !opts.Requeue || opts.Reason != "transient" {
		t.Fatalf("unexpected normalized options %#v", opts)
	}
	opts = policy.NormalizeAttempt(queue.NackOptions{Requeue: true}, 3)
	if opts.Requeue || !opts.DeadLetter {
		t.Fatalf("expected dead letter at max attempts, got %#v", opts)
	}
	opts = RetryPolicy{}.NormalizeAttempt(queue.NackOptions{Delay: -time.Second}, 1)
	if opts.Delay != 0 || !opts.Requeue {
		t.Fatalf("expected requeue default with zero delay, got %#v", opts)
	}
}

func TestWorkerHookAdapterLogsEvents(t *testing.T) {
	logger := &capturingLogger{}
	adapter := NewWorkerHookAdapter(core.NewObserver("payhooks.gojob", nil, logger, nil))
	event := worker.Event{
		Message:   ToExecutionMessage(inbound.SideEffectJob{Kind: core.EventKindChargeSucceeded, OrderID: "ord_1"}),
		Attempt:   2,
		Delay:     5 * time.Second,
		Err:       errors.New("retry"),
		StartedAt: time.Now().Add(-time.Second),
	}

	adapter.OnRetry(context.Background(), event)
	adapter.OnFailure(context.Background(), event)
	if logger.warns != 1 || logger.errors != 1 {
		t.Fatalf("expected one warn and one error, got %d/%d", logger.warns, logger.errors)
	}

	var nilAdapter *WorkerHookAdapter
	nilAdapter.OnStart(context.Background(), event)
}
