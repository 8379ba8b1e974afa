package inbound

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-payhooks/core"
)

// RedriveShipment requests a shipment again for a PAID order that has no
// tracking number yet, persisting the returned tracking id. A failed request is
// reported in the result, not as an error.
func (d *Dispatcher) RedriveShipment(ctx context.Context, orderID string) (core.SideEffectResult, error) {
	if d == nil || d.Ledger == nil {
		return core.SideEffectResult{}, inboundInternal(nil, "inbound: order ledger is not configured", nil)
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return core.SideEffectResult{}, inboundBadInput(fmt.Errorf("inbound: order id is required"))
	}
	order, err := d.Ledger.FindByID(ctx, orderID)
	if err != nil {
		return core.SideEffectResult{}, err
	}
	if order.Status != core.OrderStatusPaid {
		return core.SideEffectResult{}, inboundError(
			"inbound: shipment can only be requested for paid orders",
			goerrors.CategoryConflict,
			http.StatusConflict,
			core.ErrorConflict,
			map[string]any{"order_id": orderID, "status": string(order.Status)},
		)
	}
	if order.HasTrackingNumber() {
		return core.SideEffectResult{}, inboundError(
			"inbound: order already has a tracking number",
			goerrors.CategoryConflict,
			http.StatusConflict,
			core.ErrorConflict,
			map[string]any{"order_id": orderID},
		)
	}

	shipment := d.safeRun(ctx, core.SideEffectShipment, func() core.SideEffectResult {
		return d.requestShipment(ctx, order)
	})
	if shipment.Status != core.SideEffectStatusSucceeded {
		d.observer().Warn(ctx, "inbound: shipment redrive did not succeed", map[string]any{
			"order_id": orderID,
			"status":   string(shipment.Status),
			"reason":   shipment.Reason,
		})
		return shipment, nil
	}
	if tracking := strings.TrimSpace(shipment.Value); tracking != "" {
		persisted := d.persistTracking(ctx, orderID, tracking)
		if persisted.Failed() {
			return persisted, nil
		}
	}
	d.observer().Info(ctx, "inbound: shipment redriven", map[string]any{
		"order_id":    orderID,
		"tracking_id": shipment.Value,
	})
	return shipment, nil
}
