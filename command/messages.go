package command

import (
	"strings"
)

const (
	TypeRequestShipment      = "payhooks.command.shipment.request"
	TypeUpdateTrackingNumber = "payhooks.command.tracking_number.update"
)

// RequestShipmentMessage re-drives the shipment for a PAID order that never
// received a tracking number.
type RequestShipmentMessage struct {
	OrderID string
}

func (RequestShipmentMessage) Type() string { return TypeRequestShipment }

func (m RequestShipmentMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return commandValidationError("order_id", "order id is required")
	}
	return nil
}

type UpdateTrackingNumberMessage struct {
	OrderID        string
	TrackingNumber string
}

func (UpdateTrackingNumberMessage) Type() string { return TypeUpdateTrackingNumber }

func (m UpdateTrackingNumberMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return commandValidationError("order_id", "order id is required")
	}
	if strings.TrimSpace(m.TrackingNumber) == "" {
		return commandValidationError("tracking_number", "tracking number is required")
	}
	return nil
}
