package inbound

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/webhooks"
)

const testSecret = "whsec_test_secret"

func signedRequest(body string) core.InboundRequest {
	return core.InboundRequest{
		Headers: map[string]string{
			webhooks.DefaultSignatureHeader: webhooks.Sign([]byte(body), testSecret),
		},
		Body: []byte(body),
	}
}

type stubShipments struct {
	mu     sync.Mutex
	calls  int
	orders []core.Order
	result core.SideEffectResult
	panics bool
}

func (s *stubShipments) RequestShipment(_ context.Context, req core.ShipmentRequest) core.SideEffectResult {
	s.mu.Lock()
	s.calls++
	s.orders = append(s.orders, req.Order)
	result := s.result
	panics := s.panics
	s.mu.Unlock()
	if panics {
		panic("carrier client exploded")
	}
	return result
}

func (s *stubShipments) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// blockingShipments waits for its context, like a carrier that never answers.
type blockingShipments struct{}

func (blockingShipments) RequestShipment(ctx context.Context, _ core.ShipmentRequest) core.SideEffectResult {
	select {
	case <-ctx.Done():
		return core.SideEffectFailed(core.SideEffectShipment, 1, ctx.Err())
	case <-time.After(5 * time.Second):
		return core.SideEffectSucceeded(core.SideEffectShipment, 1, "trk_late")
	}
}

type stubNotifier struct {
	mu       sync.Mutex
	requests []core.NotificationRequest
	result   core.SideEffectResult
}

func (s *stubNotifier) Notify(_ context.Context, req core.NotificationRequest) core.SideEffectResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.result.Status == "" {
		return core.SideEffectSucceeded(core.SideEffectNotification, 1, req.PhoneOverride)
	}
	return s.result
}

func (s *stubNotifier) snapshot() []core.NotificationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.NotificationRequest(nil), s.requests...)
}

type stubRecorder struct {
	mu      sync.Mutex
	records []core.EventRecord
	err     error
}

func (s *stubRecorder) Record(_ context.Context, record core.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return s.err
}

// failingLedger wraps a ledger and fails selected operations.
type failingLedger struct {
	core.OrderLedger
	applyErr    error
	cancelErr   error
	trackingErr error
}

func (l failingLedger) ApplyCharge(ctx context.Context, in core.ApplyChargeInput) (core.ApplyChargeResult, error) {
	if l.applyErr != nil {
		return core.ApplyChargeResult{}, l.applyErr
	}
	return l.OrderLedger.ApplyCharge(ctx, in)
}

func (l failingLedger) Cancel(ctx context.Context, orderID string) (core.CancelResult, error) {
	if l.cancelErr != nil {
		return core.CancelResult{}, l.cancelErr
	}
	return l.OrderLedger.Cancel(ctx, orderID)
}

func (l failingLedger) UpdateTrackingNumber(ctx context.Context, orderID string, trackingNumber string) error {
	if l.trackingErr != nil {
		return l.trackingErr
	}
	return l.OrderLedger.UpdateTrackingNumber(ctx, orderID, trackingNumber)
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu      *sync.Mutex
	records *[]capturedLog
	fields  map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, fields: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) core.Logger {
	merged := map[string]any{}
	for key, value := range l.fields {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, fields: merged}
}

func (l *captureLogger) WithContext(context.Context) core.Logger { return l }

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg) }

func (l *captureLogger) record(level string, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: l.fields})
}

func (l *captureLogger) levels() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := map[string]int{}
	for _, record := range *l.records {
		out[record.level]++
	}
	return out
}

func (l *captureLogger) find(msg string) (capturedLog, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range *l.records {
		if record.msg == msg {
			return record, true
		}
	}
	return capturedLog{}, false
}

func newTestLedger() *core.MemoryOrderLedger {
	ledger := core.NewMemoryOrderLedger()
	ledger.PutUser(core.User{ID: "usr_1", Name: "Ana Lopez", Phone: "+52 (55) 1234-5678", LTV: 0})
	ledger.PutOrder(core.Order{
		ID:            "ord_1",
		Status:        core.OrderStatusPending,
		Total:         1500,
		UserID:        "usr_1",
		CustomerName:  "Ana Lopez",
		CustomerPhone: "+52 (55) 1234-5678",
	})
	return ledger
}

func chargeBody(orderID string, txID string, amount int64) string {
	return fmt.Sprintf(
		`{"type":"charge.succeeded","transaction":{"id":%q,"order_id":%q,"amount":%d,"status":"completed"}}`,
		txID, orderID, amount,
	)
}
