package inbound

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-payhooks/core"
)

// SideEffectJob identifies the post-commit work for one applied event. It
// carries ids only; the order is reloaded when the job runs.
type SideEffectJob struct {
	Kind          core.EventKind `json:"kind"`
	OrderID       string         `json:"order_id"`
	ExternalID    string         `json:"external_id"`
	PhoneOverride string         `json:"phone_override,omitempty"`
}

func newSideEffectJob(kind core.EventKind, tx core.Transaction) SideEffectJob {
	return SideEffectJob{
		Kind:          kind,
		OrderID:       strings.TrimSpace(tx.OrderID),
		ExternalID:    strings.TrimSpace(tx.ExternalID),
		PhoneOverride: strings.TrimSpace(tx.PhoneOverride()),
	}
}

// IdempotencyKey is stable across redeliveries of the same event.
func (j SideEffectJob) IdempotencyKey() string {
	return "payhooks:" + string(j.Kind) + ":" + j.OrderID + ":" + j.ExternalID
}

type SideEffectRunner interface {
	Submit(ctx context.Context, job SideEffectJob) error
}

type SideEffectExecutor interface {
	RunSideEffects(ctx context.Context, job SideEffectJob) (core.SideEffectSummary, error)
}

// BackgroundRunner runs side effects on tracked goroutines. Drain stops new
// submissions and waits for the running ones.
type BackgroundRunner struct {
	executor SideEffectExecutor
	observer *core.Observer

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
}

func NewBackgroundRunner(executor SideEffectExecutor, observer *core.Observer) *BackgroundRunner {
	if observer == nil {
		observer = core.NewObserver("payhooks.inbound.runner", nil, nil, nil)
	}
	return &BackgroundRunner{executor: executor, observer: observer}
}

func (r *BackgroundRunner) Submit(ctx context.Context, job SideEffectJob) error {
	if r == nil || r.executor == nil {
		return fmt.Errorf("inbound: background runner is not configured")
	}
	r.mu.Lock()
	if r.draining {
		r.mu.Unlock()
		return fmt.Errorf("inbound: background runner is draining")
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				r.observer.Error(ctx, "inbound: background side effects panicked", map[string]any{
					"order_id": job.OrderID,
					"error":    fmt.Sprint(recovered),
				})
			}
		}()
		summary, err := r.executor.RunSideEffects(ctx, job)
		if err != nil {
			r.observer.Error(ctx, "inbound: background side effects failed", map[string]any{
				"order_id": job.OrderID,
				"kind":     string(job.Kind),
				"error":    err.Error(),
			})
			return
		}
		r.observer.Debug(ctx, "inbound: background side effects finished", map[string]any{
			"order_id": job.OrderID,
			"outcome":  string(summary.Outcome),
		})
	}()
	return nil
}

func (r *BackgroundRunner) Drain(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	r.draining = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
