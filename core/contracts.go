package core

import (
	"context"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// OrderLedger is the persisted order/user store seen by the dispatcher.
type OrderLedger interface {
	FindByID(ctx context.Context, orderID string) (Order, error)
	// ApplyCharge reads the order status and, in the same transaction, either
	// reports a duplicate or sets PAID + payment id and increments the owning
	// user's ltv by the amount.
	ApplyCharge(ctx context.Context, in ApplyChargeInput) (ApplyChargeResult, error)
	Cancel(ctx context.Context, orderID string) (CancelResult, error)
	UpdateTrackingNumber(ctx context.Context, orderID string, trackingNumber string) error
}

type UserDirectory interface {
	FindUser(ctx context.Context, userID string) (User, error)
}

type ShipmentRequest struct {
	Order Order
}

type ShipmentRequester interface {
	RequestShipment(ctx context.Context, req ShipmentRequest) SideEffectResult
}

type NotificationRequest struct {
	Order          Order
	Kind           EventKind
	PhoneOverride  string
	TrackingNumber string
}

type CustomerNotifier interface {
	Notify(ctx context.Context, req NotificationRequest) SideEffectResult
}

type EventRecord struct {
	ID          string
	Kind        EventKind
	ExternalID  string
	OrderID     string
	Amount      int64
	State       string
	Outcome     string
	Warning     string
	SideEffects map[string]string
	ReceivedAt  time.Time
}

// EventRecorder keeps an audit trail of processed webhook events.
type EventRecorder interface {
	Record(ctx context.Context, record EventRecord) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// InboundRequest is a webhook delivery as received, before any parsing. Body
// holds the exact bytes the sender signed.
type InboundRequest struct {
	Headers    map[string]string
	Body       []byte
	ReceivedAt time.Time
}

// Header returns the value for key using a case-insensitive match.
func (r InboundRequest) Header(key string) string {
	for existing, value := range r.Headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
