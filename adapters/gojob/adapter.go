package gojob

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
)

const (
	JobIDSideEffects = "payhooks.side_effects"
	DedupPolicyDrop  = "drop"

	DefaultPollInterval = time.Second
	DefaultRetryDelay   = 5 * time.Second
)

const (
	paramKind          = "kind"
	paramOrderID       = "order_id"
	paramExternalID    = "external_id"
	paramPhoneOverride = "phone_override"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps a side-effect job onto a go-job message. Redeliveries
// of the same event share the idempotency key.
func ToExecutionMessage(sideEffects inbound.SideEffectJob) *job.ExecutionMessage {
	params := map[string]any{
		paramKind:       string(sideEffects.Kind),
		paramOrderID:    strings.TrimSpace(sideEffects.OrderID),
		paramExternalID: strings.TrimSpace(sideEffects.ExternalID),
	}
	if phone := strings.TrimSpace(sideEffects.PhoneOverride); phone != "" {
		params[paramPhoneOverride] = phone
	}
	return &job.ExecutionMessage{
		JobID:          JobIDSideEffects,
		ScriptPath:     JobIDSideEffects,
		Parameters:     params,
		IdempotencyKey: sideEffects.IdempotencyKey(),
		DedupPolicy:    job.DeduplicationPolicy(DedupPolicyDrop),
	}
}

// FromExecutionMessage rebuilds the side-effect job carried by msg.
func FromExecutionMessage(msg *job.ExecutionMessage) (inbound.SideEffectJob, error) {
	if msg == nil {
		return inbound.SideEffectJob{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDSideEffects {
		return inbound.SideEffectJob{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	out := inbound.SideEffectJob{
		Kind:          core.EventKind(stringParam(msg.Parameters, paramKind)),
		OrderID:       stringParam(msg.Parameters, paramOrderID),
		ExternalID:    stringParam(msg.Parameters, paramExternalID),
		PhoneOverride: stringParam(msg.Parameters, paramPhoneOverride),
	}
	if !out.Kind.Valid() {
		return inbound.SideEffectJob{}, fmt.Errorf("gojob: invalid event kind %q", out.Kind)
	}
	if out.OrderID == "" {
		return inbound.SideEffectJob{}, fmt.Errorf("gojob: order id is required")
	}
	return out, nil
}

// QueueRunner defers side effects to a go-job queue.
type QueueRunner struct {
	enqueuer queue.Enqueuer
}

func NewQueueRunner(enqueuer queue.Enqueuer) *QueueRunner {
	return &QueueRunner{enqueuer: enqueuer}
}

func (r *QueueRunner) Submit(ctx context.Context, sideEffects inbound.SideEffectJob) error {
	if r == nil || r.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	return r.enqueuer.Enqueue(ctx, ToExecutionMessage(sideEffects))
}

// Processor consumes side-effect deliveries and runs them through an executor.
type Processor struct {
	dequeuer     queue.Dequeuer
	executor     inbound.SideEffectExecutor
	policy       RetryPolicy
	hook         worker.Hook
	observer     *core.Observer
	PollInterval time.Duration
	RetryDelay   time.Duration

	mu       sync.Mutex
	attempts map[string]int
}

func NewProcessor(
	dequeuer queue.Dequeuer,
	executor inbound.SideEffectExecutor,
	policy RetryPolicy,
	observer *core.Observer,
) *Processor {
	if observer == nil {
		observer = core.NewObserver("payhooks.gojob", nil, nil, nil)
	}
	return &Processor{
		dequeuer:     dequeuer,
		executor:     executor,
		policy:       policy,
		hook:         NewWorkerHookAdapter(observer),
		observer:     observer,
		PollInterval: DefaultPollInterval,
		RetryDelay:   DefaultRetryDelay,
		attempts:     map[string]int{},
	}
}

// ProcessNext handles a single delivery. It reports false when the queue had
// nothing to deliver.
func (p *Processor) ProcessNext(ctx context.Context) (bool, error) {
	if p == nil || p.dequeuer == nil || p.executor == nil {
		return false, fmt.Errorf("gojob: processor is not configured")
	}
	delivery, err := p.dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}

	msg := delivery.Message()
	sideEffects, err := FromExecutionMessage(msg)
	if err != nil {
		p.observer.Error(ctx, "gojob: dropping malformed side-effect message", map[string]any{"error": err.Error()})
		return true, delivery.Nack(ctx, queue.NackOptions{DeadLetter: true, Reason: err.Error()})
	}

	key := sideEffects.IdempotencyKey()
	attempt := p.nextAttempt(key)
	startedAt := time.Now()
	event := worker.Event{Message: msg, Delivery: delivery, Attempt: attempt, StartedAt: startedAt}
	p.hook.OnStart(ctx, event)

	_, runErr := p.executor.RunSideEffects(ctx, sideEffects)
	event.Duration = time.Since(startedAt)
	if runErr == nil {
		p.clearAttempts(key)
		p.hook.OnSuccess(ctx, event)
		return true, delivery.Ack(ctx)
	}

	event.Err = runErr
	opts := queue.NackOptions{Delay: p.RetryDelay, Requeue: true, Reason: runErr.Error()}
	if core.IsNotFound(runErr) {
		opts = queue.NackOptions{DeadLetter: true, Reason: runErr.Error()}
	}
	opts = p.policy.NormalizeAttempt(opts, attempt)
	if opts.Requeue {
		event.Delay = opts.Delay
		p.hook.OnRetry(ctx, event)
	} else {
		p.clearAttempts(key)
		p.hook.OnFailure(ctx, event)
	}
	return true, delivery.Nack(ctx, opts)
}

// Run processes deliveries until ctx is done.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		processed, err := p.ProcessNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.observer.Warn(ctx, "gojob: process delivery failed", map[string]any{"error": err.Error()})
		}
		if processed && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.pollInterval()):
		}
	}
}

func (p *Processor) nextAttempt(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[key]++
	return p.attempts[key]
}

func (p *Processor) clearAttempts(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, key)
}

func (p *Processor) pollInterval() time.Duration {
	if p.PollInterval > 0 {
		return p.PollInterval
	}
	return DefaultPollInterval
}

// WorkerHookAdapter reports go-job worker lifecycle events as structured logs.
type WorkerHookAdapter struct {
	observer *core.Observer
}

func NewWorkerHookAdapter(observer *core.Observer) *WorkerHookAdapter {
	return &WorkerHookAdapter{observer: observer}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	if a == nil || a.observer == nil {
		return
	}
	a.observer.Debug(ctx, "gojob: side effects started", eventFields(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	if a == nil || a.observer == nil {
		return
	}
	a.observer.ObserveOperation(ctx, event.StartedAt, "side_effect_job", nil, eventFields(event), "kind")
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	if a == nil || a.observer == nil {
		return
	}
	a.observer.ObserveOperation(ctx, event.StartedAt, "side_effect_job", event.Err, eventFields(event), "kind")
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if a == nil || a.observer == nil {
		return
	}
	fields := eventFields(event)
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	a.observer.Warn(ctx, "gojob: side effects will be retried", fields)
}

func eventFields(event worker.Event) map[string]any {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	fields := map[string]any{
		"attempt":     event.Attempt,
		"duration_ms": event.Duration.Milliseconds(),
	}
	if event.Delay > 0 {
		fields["delay_ms"] = event.Delay.Milliseconds()
	}
	if message != nil {
		fields["job_id"] = message.JobID
		fields["idempotency_key"] = message.IdempotencyKey
		fields["kind"] = stringParam(message.Parameters, paramKind)
		fields["order_id"] = stringParam(message.Parameters, paramOrderID)
	}
	return fields
}

func stringParam(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

var (
	_ inbound.SideEffectRunner = (*QueueRunner)(nil)
	_ worker.Hook              = (*WorkerHookAdapter)(nil)
)
