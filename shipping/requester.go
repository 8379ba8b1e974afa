package shipping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/retry"
	"github.com/goliatone/go-payhooks/transport"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 800 * time.Millisecond
)

type Option func(*Requester)

func WithUserDirectory(users core.UserDirectory) Option {
	return func(r *Requester) {
		r.users = users
	}
}

func WithExecutor(executor *retry.Executor) Option {
	return func(r *Requester) {
		if executor != nil {
			r.executor = executor
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(r *Requester) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// Requester posts shipment requests to the carrier API.
type Requester struct {
	client   *transport.RESTAdapter
	cfg      core.ShipmentConfig
	users    core.UserDirectory
	executor *retry.Executor
	observer *core.Observer
}

func NewRequester(client *transport.RESTAdapter, cfg core.ShipmentConfig, opts ...Option) *Requester {
	if client == nil {
		client = transport.NewRESTAdapter(nil)
	}
	requester := &Requester{
		client:   client,
		cfg:      cfg,
		executor: retry.NewExecutor(),
		observer: core.NewObserver("payhooks.shipping", nil, nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(requester)
		}
	}
	return requester
}

func (r *Requester) Policy() retry.Policy {
	policy := retry.Policy{
		MaxAttempts: r.cfg.Attempts,
		BaseDelay:   r.cfg.BaseDelay(),
		Label:       core.SideEffectShipment,
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	return policy
}

// RequestShipment never returns an error; a failed request is reported as a
// failed side effect without a tracking id.
func (r *Requester) RequestShipment(ctx context.Context, req core.ShipmentRequest) core.SideEffectResult {
	if r == nil {
		return core.SideEffectSkipped(core.SideEffectShipment, "shipment requester is not configured")
	}
	endpoint := strings.TrimSpace(r.cfg.URL)
	if endpoint == "" {
		r.observer.Warn(ctx, "shipment api is not configured; skipping", map[string]any{"order_id": req.Order.ID})
		return core.SideEffectSkipped(core.SideEffectShipment, "shipment api is not configured")
	}

	payload := BuildPayload(req.Order, r.lookupUser(ctx, req.Order), r.cfg)
	headers := map[string]string{}
	if key := strings.TrimSpace(r.cfg.APIKey); key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	startedAt := time.Now()
	trackingID, attempts, err := retry.DoValue(ctx, r.executor, r.Policy(), func(ctx context.Context, attempt int) (string, error) {
		res, err := r.client.PostJSON(ctx, endpoint, headers, payload, r.cfg.Timeout())
		if err != nil {
			return "", err
		}
		if !res.OK() {
			r.observer.Warn(ctx, "shipment api returned non-2xx", map[string]any{
				"order_id":    req.Order.ID,
				"attempt":     attempt,
				"status_code": res.StatusCode,
				"body":        string(res.Body),
			})
			statusErr := transport.StatusError(core.SideEffectShipment, res)
			if res.Retryable() {
				return "", statusErr
			}
			return "", retry.Permanent(statusErr)
		}
		var decoded response
		if err := res.DecodeJSON(&decoded); err != nil {
			return "", retry.Permanent(err)
		}
		id := strings.TrimSpace(decoded.Data.ID)
		if id == "" {
			return "", retry.Permanent(fmt.Errorf("shipping: carrier response has no data.id"))
		}
		return id, nil
	})

	fields := map[string]any{"order_id": req.Order.ID, "attempts": attempts}
	if err != nil {
		r.observer.ObserveOperation(ctx, startedAt, "shipment_request", err, fields)
		return core.SideEffectFailed(core.SideEffectShipment, attempts, err)
	}
	fields["tracking_id"] = trackingID
	r.observer.ObserveOperation(ctx, startedAt, "shipment_request", nil, fields)
	return core.SideEffectSucceeded(core.SideEffectShipment, attempts, trackingID)
}

func (r *Requester) lookupUser(ctx context.Context, order core.Order) *core.User {
	if r.users == nil || strings.TrimSpace(order.UserID) == "" {
		return nil
	}
	user, err := r.users.FindUser(ctx, order.UserID)
	if err != nil {
		r.observer.Warn(ctx, "shipment user lookup failed; using order snapshot", map[string]any{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"error":    err.Error(),
		})
		return nil
	}
	return &user
}

var _ core.ShipmentRequester = (*Requester)(nil)
