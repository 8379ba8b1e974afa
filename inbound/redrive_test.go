package inbound

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-payhooks/core"
)

func TestRedriveShipment_PersistsTrackingForPaidOrder(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	ledger.PutOrder(core.Order{ID: "ord_paid", Status: core.OrderStatusPaid, PaymentID: core.StringPtr("ch_1")})
	shipments := &stubShipments{result: core.SideEffectSucceeded(core.SideEffectShipment, 2, "trk_r")}
	dispatcher := newTestDispatcher(ledger, WithShipmentRequester(shipments))

	result, err := dispatcher.RedriveShipment(ctx, " ord_paid ")
	if err != nil {
		t.Fatalf("redrive: %v", err)
	}
	if result.Status != core.SideEffectStatusSucceeded || result.Value != "trk_r" {
		t.Fatalf("unexpected result %+v", result)
	}
	order, _ := ledger.FindByID(ctx, "ord_paid")
	if order.TrackingNumber == nil || *order.TrackingNumber != "trk_r" {
		t.Fatalf("expected tracking persisted, got %v", order.TrackingNumber)
	}
}

func TestRedriveShipment_RejectsIneligibleOrders(t *testing.T) {
	ctx := context.Background()
	ledger := newTestLedger()
	ledger.PutOrder(core.Order{ID: "ord_tracked", Status: core.OrderStatusPaid, TrackingNumber: core.StringPtr("trk_0")})
	shipments := &stubShipments{}
	dispatcher := newTestDispatcher(ledger, WithShipmentRequester(shipments))

	for _, orderID := range []string{"ord_1", "ord_tracked"} {
		_, err := dispatcher.RedriveShipment(ctx, orderID)
		if err == nil {
			t.Fatalf("%s: expected conflict", orderID)
		}
		if core.HTTPStatus(err) != http.StatusConflict {
			t.Fatalf("%s: expected 409, got %d", orderID, core.HTTPStatus(err))
		}
	}
	if _, err := dispatcher.RedriveShipment(ctx, "ord_missing"); !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if shipments.callCount() != 0 {
		t.Fatalf("expected no shipment calls, got %d", shipments.callCount())
	}
}

func TestRedriveShipment_ReportsFailedShipment(t *testing.T) {
	ledger := newTestLedger()
	ledger.PutOrder(core.Order{ID: "ord_paid", Status: core.OrderStatusPaid})
	dispatcher := newTestDispatcher(ledger, WithShipmentRequester(&stubShipments{panics: true}))

	result, err := dispatcher.RedriveShipment(context.Background(), "ord_paid")
	if err != nil {
		t.Fatalf("redrive: %v", err)
	}
	if !result.Failed() {
		t.Fatalf("expected failed result, got %+v", result)
	}
}
