package payhooks

import (
	"context"
	"sync"
	"testing"

	gocmd "github.com/goliatone/go-command"
	paycommand "github.com/goliatone/go-payhooks/command"
	"github.com/goliatone/go-payhooks/core"
	payquery "github.com/goliatone/go-payhooks/query"
	"github.com/goliatone/go-payhooks/webhooks"
)

type stubShipments struct {
	result core.SideEffectResult
}

func (s stubShipments) RequestShipment(context.Context, core.ShipmentRequest) core.SideEffectResult {
	return s.result
}

type stubEventLog struct {
	mu      sync.Mutex
	records []core.EventRecord
}

func (s *stubEventLog) Record(_ context.Context, record core.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *stubEventLog) ListByOrder(_ context.Context, orderID string, _ int) ([]core.EventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.EventRecord{}
	for _, record := range s.records {
		if record.OrderID == orderID {
			out = append(out, record)
		}
	}
	return out, nil
}

func newFacadeLedger() *core.MemoryOrderLedger {
	ledger := core.NewMemoryOrderLedger()
	ledger.PutOrder(core.Order{ID: "ord_1", Status: core.OrderStatusPaid, Total: 900})
	return ledger
}

func TestNewFacade_RequiresDispatcherAndLedger(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for nil dispatcher")
	}
	if _, err := NewFacade(NewDispatcher(webhooks.NewHMACVerifier("", "s"), nil)); err == nil {
		t.Fatalf("expected error for missing ledger")
	}
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	ledger := newFacadeLedger()
	dispatcher := NewDispatcher(webhooks.NewHMACVerifier("", "s"), ledger,
		WithShipmentRequester(stubShipments{result: core.SideEffectSucceeded(core.SideEffectShipment, 1, "trk_f")}),
	)
	facade, err := NewFacade(dispatcher, WithEventLogReader(&stubEventLog{}))
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.RequestShipment == nil || commands.UpdateTrackingNumber == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.GetOrder == nil || queries.ListOrderEvents == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Dispatcher() != dispatcher {
		t.Fatalf("expected dispatcher to be retained")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	ctx := context.Background()
	ledger := newFacadeLedger()
	dispatcher := NewDispatcher(webhooks.NewHMACVerifier("", "s"), ledger,
		WithShipmentRequester(stubShipments{result: core.SideEffectSucceeded(core.SideEffectShipment, 1, "trk_f")}),
	)
	facade, err := NewFacade(dispatcher)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	collector := gocmd.NewResult[core.SideEffectResult]()
	if err := facade.Commands().RequestShipment.Execute(gocmd.ContextWithResult(ctx, collector), paycommand.RequestShipmentMessage{OrderID: "ord_1"}); err != nil {
		t.Fatalf("request shipment: %v", err)
	}
	result, ok := collector.Load()
	if !ok || result.Value != "trk_f" {
		t.Fatalf("unexpected shipment result %+v", result)
	}

	order, err := facade.Queries().GetOrder.Query(ctx, payquery.GetOrderMessage{OrderID: "ord_1"})
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.TrackingNumber == nil || *order.TrackingNumber != "trk_f" {
		t.Fatalf("expected tracking number from redrive, got %v", order.TrackingNumber)
	}

	if _, err := facade.Queries().ListOrderEvents.Query(ctx, payquery.ListOrderEventsMessage{OrderID: "ord_1"}); err == nil {
		t.Fatalf("expected missing event log reader to fail")
	}
}

func TestFacade_ResolvesEventLogFromRecorder(t *testing.T) {
	ctx := context.Background()
	eventLog := &stubEventLog{}
	dispatcher := NewDispatcher(webhooks.NewHMACVerifier("", "s"), newFacadeLedger(), WithEventRecorder(eventLog))
	facade, err := NewFacade(dispatcher)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	_ = eventLog.Record(ctx, core.EventRecord{ID: "evt_1", OrderID: "ord_1"})

	admin := facade.Admin()
	records, err := admin.ListOrderEvents(ctx, payquery.ListOrderEventsMessage{OrderID: "ord_1"})
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(records) != 1 || records[0].ID != "evt_1" {
		t.Fatalf("unexpected records %+v", records)
	}
	if err := admin.UpdateTrackingNumber(ctx, paycommand.UpdateTrackingNumberMessage{OrderID: "ord_1", TrackingNumber: "trk_m"}); err != nil {
		t.Fatalf("update tracking: %v", err)
	}
}
