package notify

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/retry"
	"github.com/goliatone/go-payhooks/transport"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 500 * time.Millisecond
)

type Payload struct {
	To   string `json:"to"`
	From string `json:"from,omitempty"`
	Body string `json:"body"`
}

type Option func(*Notifier)

func WithExecutor(executor *retry.Executor) Option {
	return func(n *Notifier) {
		if executor != nil {
			n.executor = executor
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(n *Notifier) {
		if observer != nil {
			n.observer = observer
		}
	}
}

// Notifier posts messages to the messaging provider.
type Notifier struct {
	client   *transport.RESTAdapter
	cfg      core.MessagingConfig
	executor *retry.Executor
	observer *core.Observer
}

func NewNotifier(client *transport.RESTAdapter, cfg core.MessagingConfig, opts ...Option) *Notifier {
	if client == nil {
		client = transport.NewRESTAdapter(nil)
	}
	notifier := &Notifier{
		client:   client,
		cfg:      cfg,
		executor: retry.NewExecutor(),
		observer: core.NewObserver("payhooks.notify", nil, nil, nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(notifier)
		}
	}
	return notifier
}

func (n *Notifier) Policy() retry.Policy {
	policy := retry.Policy{
		MaxAttempts: n.cfg.Attempts,
		BaseDelay:   n.cfg.BaseDelay(),
		Label:       core.SideEffectNotification,
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	return policy
}

func (n *Notifier) Notify(ctx context.Context, req core.NotificationRequest) core.SideEffectResult {
	if n == nil {
		return core.SideEffectSkipped(core.SideEffectNotification, "notifier is not configured")
	}
	to := Destination(req)
	if to == "" {
		n.observer.Info(ctx, "no destination phone; notification skipped", map[string]any{"order_id": req.Order.ID})
		return core.SideEffectSkipped(core.SideEffectNotification, "no destination phone")
	}
	endpoint := strings.TrimSpace(n.cfg.URL)
	if endpoint == "" {
		n.observer.Warn(ctx, "messaging api is not configured; skipping", map[string]any{"order_id": req.Order.ID})
		return core.SideEffectSkipped(core.SideEffectNotification, "messaging api is not configured")
	}

	payload := Payload{To: to, From: strings.TrimSpace(n.cfg.From), Body: MessageBody(req)}
	headers := map[string]string{}
	if token := strings.TrimSpace(n.cfg.Token); token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	startedAt := time.Now()
	attempts, err := n.executor.Do(ctx, n.Policy(), func(ctx context.Context, attempt int) error {
		res, err := n.client.PostJSON(ctx, endpoint, headers, payload, n.cfg.Timeout())
		if err != nil {
			return err
		}
		if res.OK() {
			return nil
		}
		n.observer.Warn(ctx, "messaging api returned non-2xx", map[string]any{
			"order_id":    req.Order.ID,
			"attempt":     attempt,
			"status_code": res.StatusCode,
			"body":        string(res.Body),
		})
		statusErr := transport.StatusError(core.SideEffectNotification, res)
		if res.Retryable() {
			return statusErr
		}
		return retry.Permanent(statusErr)
	})

	fields := map[string]any{"order_id": req.Order.ID, "attempts": attempts, "kind": string(req.Kind)}
	n.observer.ObserveOperation(ctx, startedAt, "customer_notification", err, fields, "kind")
	if err != nil {
		return core.SideEffectFailed(core.SideEffectNotification, attempts, err)
	}
	return core.SideEffectSucceeded(core.SideEffectNotification, attempts, to)
}

var _ core.CustomerNotifier = (*Notifier)(nil)
