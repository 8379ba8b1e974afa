package inbound

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/webhooks"
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// Decoder turns verified raw bytes into exactly one event variant.
type Decoder func(body []byte) (core.PaymentEvent, error)

type Option func(*Dispatcher)

func WithShipmentRequester(requester core.ShipmentRequester) Option {
	return func(d *Dispatcher) {
		d.Shipments = requester
	}
}

func WithNotifier(notifier core.CustomerNotifier) Option {
	return func(d *Dispatcher) {
		d.Notifier = notifier
	}
}

func WithEventRecorder(recorder core.EventRecorder) Option {
	return func(d *Dispatcher) {
		d.Recorder = recorder
	}
}

// WithRunner hands post-commit side effects to runner instead of running them
// before the acknowledgement.
func WithRunner(runner SideEffectRunner) Option {
	return func(d *Dispatcher) {
		d.Runner = runner
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(d *Dispatcher) {
		if observer != nil {
			d.Observer = observer
		}
	}
}

// WithShipmentBudget bounds the shipment step, retries included, so a slow
// carrier delays the notification by at most budget. Zero leaves it unbounded.
func WithShipmentBudget(budget time.Duration) Option {
	return func(d *Dispatcher) {
		if budget >= 0 {
			d.ShipmentBudget = budget
		}
	}
}

func WithDecoder(decoder Decoder) Option {
	return func(d *Dispatcher) {
		if decoder != nil {
			d.Decode = decoder
		}
	}
}

type Dispatcher struct {
	Verifier  Verifier
	Ledger    core.OrderLedger
	Shipments core.ShipmentRequester
	Notifier  core.CustomerNotifier
	Recorder  core.EventRecorder
	Runner    SideEffectRunner
	Decode    Decoder
	Observer  *core.Observer
	Now       func() time.Time

	ShipmentBudget time.Duration
}

func NewDispatcher(verifier Verifier, ledger core.OrderLedger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		Verifier: verifier,
		Ledger:   ledger,
		Decode:   webhooks.DecodeEvent,
		Observer: core.NewObserver("payhooks.inbound", nil, nil, nil),
		Now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch handles one delivery. The returned error is non-nil exactly when the
// delivery was rejected; Result always carries the response to send.
func (d *Dispatcher) Dispatch(ctx context.Context, req core.InboundRequest) (result Result, err error) {
	if d == nil {
		result.reject(http.StatusInternalServerError, core.ErrorInternal)
		return result, inboundInternal(nil, "inbound: dispatcher is nil", nil)
	}
	startedAt := d.now()
	if req.ReceivedAt.IsZero() {
		req.ReceivedAt = startedAt
	}
	result.enter(StateReceived)

	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("inbound: panic during dispatch: %v", recovered)
			if result.committed() {
				d.observer().Error(ctx, "inbound: recovered after commit", map[string]any{
					"order_id": result.OrderID,
					"error":    panicErr.Error(),
				})
				result.ack(true)
				err = nil
			} else {
				result.reject(http.StatusInternalServerError, core.ErrorInternal)
				err = inboundInternal(panicErr, "inbound: dispatch failed", map[string]any{"order_id": result.OrderID})
			}
		}
		d.finish(ctx, startedAt, req, &result, err)
	}()

	if d.Verifier == nil {
		result.reject(http.StatusInternalServerError, core.ErrorInternal)
		return result, inboundInternal(nil, "inbound: verifier is not configured", nil)
	}
	if verifyErr := d.Verifier.Verify(ctx, req); verifyErr != nil {
		result.reject(http.StatusUnauthorized, core.ErrorUnauthorized)
		return result, inboundUnauthorized(verifyErr)
	}
	result.enter(StateVerified)

	event, decodeErr := d.decode(req.Body)
	if decodeErr != nil {
		result.reject(http.StatusBadRequest, core.ErrorBadInput)
		return result, inboundBadInput(decodeErr)
	}
	result.enter(StateValidated)
	result.Kind = event.Kind()

	switch typed := event.(type) {
	case core.VerificationEvent:
		result.Outcome = OutcomeVerification
		d.observer().Info(ctx, "inbound: verification event acknowledged", map[string]any{
			"verification_code": typed.Code,
		})
		result.ack(false)
		return result, nil
	case core.ChargeSucceeded:
		err = d.handleCharge(ctx, typed.Transaction, &result)
	case core.ChargeFailed:
		err = d.handleCancellation(ctx, typed.Kind(), typed.Transaction, &result)
	case core.ChargeCancelled:
		err = d.handleCancellation(ctx, typed.Kind(), typed.Transaction, &result)
	default:
		result.reject(http.StatusBadRequest, core.ErrorBadInput)
		err = inboundBadInput(fmt.Errorf("inbound: unsupported event kind %q", event.Kind()))
	}
	return result, err
}

func (d *Dispatcher) handleCharge(ctx context.Context, tx core.Transaction, result *Result) error {
	result.OrderID = tx.OrderID
	result.ExternalID = tx.ExternalID
	result.amount = tx.Amount
	if !tx.HasOrderID() {
		d.observer().Warn(ctx, "inbound: charge event without order id ignored", map[string]any{
			"external_id": tx.ExternalID,
		})
		result.Outcome = OutcomeMissingOrderID
		result.ack(false)
		return nil
	}
	if d.Ledger == nil {
		result.reject(http.StatusInternalServerError, core.ErrorInternal)
		return inboundInternal(nil, "inbound: order ledger is not configured", nil)
	}

	applied, err := d.Ledger.ApplyCharge(ctx, core.ApplyChargeInput{
		OrderID:   tx.OrderID,
		PaymentID: tx.ExternalID,
		Amount:    tx.Amount,
	})
	if err != nil {
		if isOrderNotFound(err) {
			d.observer().Warn(ctx, "inbound: charge for unknown order ignored", map[string]any{
				"order_id":    tx.OrderID,
				"external_id": tx.ExternalID,
			})
			result.Outcome = OutcomeOrderNotFound
			result.ack(false)
			return nil
		}
		if isUserNotFound(err) {
			// Redelivery cannot fix a dangling owner; the order stays unpaid.
			d.observer().Warn(ctx, "inbound: charge for order with unknown user ignored", map[string]any{
				"order_id":    tx.OrderID,
				"external_id": tx.ExternalID,
				"error":       err.Error(),
			})
			result.Outcome = OutcomeUserNotFound
			result.ack(false)
			return nil
		}
		result.reject(http.StatusInternalServerError, core.ErrorInternal)
		return inboundInternal(err, "inbound: apply charge failed", map[string]any{"order_id": tx.OrderID})
	}

	switch applied.Outcome {
	case core.ApplyOutcomeDuplicate:
		result.enter(StateDuplicate)
		result.Outcome = OutcomeDuplicate
		d.observer().Info(ctx, "inbound: duplicate charge acknowledged", map[string]any{
			"order_id": tx.OrderID,
			"status":   string(applied.Order.Status),
		})
		result.ack(false)
		return nil
	case core.ApplyOutcomeSkipped:
		result.Outcome = OutcomeSkipped
		d.observer().Warn(ctx, "inbound: charge for non-chargeable order ignored", map[string]any{
			"order_id": tx.OrderID,
			"status":   string(applied.Order.Status),
		})
		result.ack(false)
		return nil
	}

	result.enter(StateApplied)
	result.Outcome = OutcomeApplied
	d.observer().Info(ctx, "inbound: charge applied", map[string]any{
		"order_id":  tx.OrderID,
		"ltv_delta": applied.LTVDelta,
	})
	d.runSideEffects(ctx, newSideEffectJob(core.EventKindChargeSucceeded, tx), applied.Order, result)
	return nil
}

func (d *Dispatcher) handleCancellation(ctx context.Context, kind core.EventKind, tx core.Transaction, result *Result) error {
	result.OrderID = tx.OrderID
	result.ExternalID = tx.ExternalID
	result.amount = tx.Amount
	if !tx.HasOrderID() {
		d.observer().Warn(ctx, "inbound: cancellation without order id ignored", map[string]any{
			"external_id": tx.ExternalID,
			"kind":        string(kind),
		})
		result.Outcome = OutcomeMissingOrderID
		result.ack(false)
		return nil
	}
	if d.Ledger == nil {
		result.reject(http.StatusInternalServerError, core.ErrorInternal)
		return inboundInternal(nil, "inbound: order ledger is not configured", nil)
	}

	cancelled, err := d.Ledger.Cancel(ctx, tx.OrderID)
	if err != nil {
		if isOrderNotFound(err) {
			d.observer().Warn(ctx, "inbound: cancellation for unknown order ignored", map[string]any{
				"order_id":    tx.OrderID,
				"external_id": tx.ExternalID,
				"kind":        string(kind),
			})
			result.Outcome = OutcomeOrderNotFound
			result.ack(false)
			return nil
		}
		result.reject(http.StatusInternalServerError, core.ErrorInternal)
		return inboundInternal(err, "inbound: cancel order failed", map[string]any{"order_id": tx.OrderID})
	}
	if cancelled.Outcome == core.CancelOutcomeUnchanged {
		result.Outcome = OutcomeUnchanged
		d.observer().Info(ctx, "inbound: cancellation left order unchanged", map[string]any{
			"order_id": tx.OrderID,
			"status":   string(cancelled.Order.Status),
		})
		result.ack(false)
		return nil
	}

	result.enter(StateApplied)
	result.Outcome = OutcomeCancelled
	d.observer().Info(ctx, "inbound: order cancelled", map[string]any{
		"order_id": tx.OrderID,
		"kind":     string(kind),
	})
	d.runSideEffects(ctx, newSideEffectJob(kind, tx), cancelled.Order, result)
	return nil
}

// runSideEffects executes or defers the post-commit work and acknowledges.
// Side effects never see the request's cancellation.
func (d *Dispatcher) runSideEffects(ctx context.Context, job SideEffectJob, order core.Order, result *Result) {
	detached := context.WithoutCancel(ctx)
	if d.Runner != nil {
		submitErr := d.Runner.Submit(detached, job)
		if submitErr == nil {
			result.Summary = core.DeferredSideEffects()
			result.enter(StateSideEffectsDeferred)
			result.ack(false)
			return
		}
		d.observer().Error(ctx, "inbound: defer side effects failed, running inline", map[string]any{
			"order_id": job.OrderID,
			"error":    submitErr.Error(),
		})
	}

	summary := d.execute(detached, job, order)
	result.Summary = summary
	if summary.Outcome == core.SideEffectsPartial {
		result.enter(StateSideEffectsPartial)
		result.ack(true)
		return
	}
	result.enter(StateSideEffectsOK)
	result.ack(false)
}

// RunSideEffects reloads the order and runs the side effects for job. Runners
// call it once the delivery has been acknowledged.
func (d *Dispatcher) RunSideEffects(ctx context.Context, job SideEffectJob) (core.SideEffectSummary, error) {
	if d == nil || d.Ledger == nil {
		return core.SideEffectSummary{}, inboundInternal(nil, "inbound: order ledger is not configured", nil)
	}
	if !job.Kind.Valid() || job.Kind == core.EventKindVerification {
		return core.SideEffectSummary{}, inboundBadInput(fmt.Errorf("inbound: side effects not defined for kind %q", job.Kind))
	}
	order, err := d.Ledger.FindByID(ctx, job.OrderID)
	if err != nil {
		return core.SideEffectSummary{}, err
	}
	summary := d.execute(ctx, job, order)
	if summary.Outcome == core.SideEffectsPartial {
		d.observer().Warn(ctx, "inbound: deferred side effects partially failed", map[string]any{
			"order_id":     job.OrderID,
			"side_effects": summary.Statuses(),
		})
	}
	return summary, nil
}

// execute runs shipment, tracking persist and notification in that order so the
// message can carry the tracking id. ShipmentBudget caps how long the shipment
// step may hold the notification back.
func (d *Dispatcher) execute(ctx context.Context, job SideEffectJob, order core.Order) core.SideEffectSummary {
	if job.Kind != core.EventKindChargeSucceeded {
		return core.SummarizeSideEffects(d.safeRun(ctx, core.SideEffectNotification, func() core.SideEffectResult {
			return d.notify(ctx, core.NotificationRequest{
				Order:         order,
				Kind:          job.Kind,
				PhoneOverride: job.PhoneOverride,
			})
		}))
	}

	shipment := d.safeRun(ctx, core.SideEffectShipment, func() core.SideEffectResult {
		shipmentCtx := ctx
		if d.ShipmentBudget > 0 {
			var cancel context.CancelFunc
			shipmentCtx, cancel = context.WithTimeout(ctx, d.ShipmentBudget)
			defer cancel()
		}
		return d.requestShipment(shipmentCtx, order)
	})
	results := []core.SideEffectResult{shipment}

	trackingNumber := ""
	if shipment.Status == core.SideEffectStatusSucceeded {
		trackingNumber = strings.TrimSpace(shipment.Value)
	}
	if trackingNumber != "" {
		results = append(results, d.safeRun(ctx, core.SideEffectTracking, func() core.SideEffectResult {
			return d.persistTracking(ctx, order.ID, trackingNumber)
		}))
		order.TrackingNumber = core.StringPtr(trackingNumber)
	}

	results = append(results, d.safeRun(ctx, core.SideEffectNotification, func() core.SideEffectResult {
		return d.notify(ctx, core.NotificationRequest{
			Order:          order,
			Kind:           job.Kind,
			PhoneOverride:  job.PhoneOverride,
			TrackingNumber: trackingNumber,
		})
	}))
	return core.SummarizeSideEffects(results...)
}

func (d *Dispatcher) requestShipment(ctx context.Context, order core.Order) core.SideEffectResult {
	if d.Shipments == nil {
		return core.SideEffectSkipped(core.SideEffectShipment, "shipment requester is not configured")
	}
	return d.Shipments.RequestShipment(ctx, core.ShipmentRequest{Order: order})
}

func (d *Dispatcher) notify(ctx context.Context, req core.NotificationRequest) core.SideEffectResult {
	if d.Notifier == nil {
		return core.SideEffectSkipped(core.SideEffectNotification, "notifier is not configured")
	}
	return d.Notifier.Notify(ctx, req)
}

// persistTracking is a single attempt; a failure leaves the order PAID.
func (d *Dispatcher) persistTracking(ctx context.Context, orderID string, trackingNumber string) core.SideEffectResult {
	if err := d.Ledger.UpdateTrackingNumber(ctx, orderID, trackingNumber); err != nil {
		d.observer().Error(ctx, "inbound: persist tracking number failed", map[string]any{
			"order_id":        orderID,
			"tracking_number": trackingNumber,
			"error":           err.Error(),
		})
		return core.SideEffectFailed(core.SideEffectTracking, 1, err)
	}
	return core.SideEffectSucceeded(core.SideEffectTracking, 1, trackingNumber)
}

func (d *Dispatcher) safeRun(ctx context.Context, name string, fn func() core.SideEffectResult) (result core.SideEffectResult) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err := inboundInternal(fmt.Errorf("%v", recovered), "inbound: side effect panicked", map[string]any{
				"side_effect": name,
			})
			d.observer().Error(ctx, "inbound: side effect panicked", map[string]any{
				"side_effect": name,
				"error":       err.Error(),
			})
			result = core.SideEffectFailed(name, 0, err)
		}
	}()
	result = fn()
	if result.Name == "" {
		result.Name = name
	}
	if result.Status == "" {
		result.Status = core.SideEffectStatusSkipped
	}
	return result
}

func (d *Dispatcher) finish(ctx context.Context, startedAt time.Time, req core.InboundRequest, result *Result, err error) {
	if result.Kind != "" && d.Recorder != nil {
		recordErr := d.Recorder.Record(ctx, core.EventRecord{
			Kind:        result.Kind,
			ExternalID:  result.ExternalID,
			OrderID:     result.OrderID,
			Amount:      result.amount,
			State:       string(result.State()),
			Outcome:     result.Outcome,
			Warning:     result.Body.Warning,
			SideEffects: result.Summary.Statuses(),
			ReceivedAt:  req.ReceivedAt,
		})
		if recordErr != nil {
			d.observer().Warn(ctx, "inbound: record event failed", map[string]any{
				"order_id": result.OrderID,
				"error":    recordErr.Error(),
			})
		}
	}

	fields := map[string]any{
		"state":       string(result.State()),
		"outcome":     result.Outcome,
		"status_code": result.StatusCode,
	}
	if result.Kind != "" {
		fields["kind"] = string(result.Kind)
	}
	if result.OrderID != "" {
		fields["order_id"] = result.OrderID
	}
	if result.Summary.Outcome != "" {
		fields["side_effects"] = string(result.Summary.Outcome)
	}
	if result.Body.Warning != "" {
		fields["warning"] = result.Body.Warning
	}
	switch result.Outcome {
	case OutcomeOrderNotFound, OutcomeMissingOrderID, OutcomeUserNotFound:
		d.observer().ObserveQuietOperation(ctx, startedAt, "webhook_dispatch", err, fields, "kind", "outcome")
	default:
		d.observer().ObserveOperation(ctx, startedAt, "webhook_dispatch", err, fields, "kind", "outcome")
	}
}

func (d *Dispatcher) decode(body []byte) (core.PaymentEvent, error) {
	if d.Decode != nil {
		return d.Decode(body)
	}
	return webhooks.DecodeEvent(body)
}

func (d *Dispatcher) observer() *core.Observer {
	if d != nil && d.Observer != nil {
		return d.Observer
	}
	return core.NewObserver("payhooks.inbound", nil, nil, nil)
}

func (d *Dispatcher) now() time.Time {
	if d != nil && d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func isOrderNotFound(err error) bool {
	mapped := core.MapError(err)
	return mapped != nil && mapped.TextCode == core.ErrorOrderNotFound
}

func isUserNotFound(err error) bool {
	mapped := core.MapError(err)
	return mapped != nil && mapped.TextCode == core.ErrorUserNotFound
}
