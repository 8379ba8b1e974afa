package command

import (
	"context"
	"strings"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-payhooks/core"
)

type ShipmentService interface {
	RedriveShipment(ctx context.Context, orderID string) (core.SideEffectResult, error)
}

type TrackingNumberWriter interface {
	UpdateTrackingNumber(ctx context.Context, orderID string, trackingNumber string) error
}

type RequestShipmentCommand struct {
	service ShipmentService
}

func NewRequestShipmentCommand(service ShipmentService) *RequestShipmentCommand {
	return &RequestShipmentCommand{service: service}
}

// Execute stores the shipment result in the context collector when one is
// present. A shipment that failed downstream is a stored result, not an error.
func (c *RequestShipmentCommand) Execute(ctx context.Context, msg RequestShipmentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: shipment service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	out, err := c.service.RedriveShipment(ctx, strings.TrimSpace(msg.OrderID))
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateTrackingNumberCommand struct {
	writer TrackingNumberWriter
}

func NewUpdateTrackingNumberCommand(writer TrackingNumberWriter) *UpdateTrackingNumberCommand {
	return &UpdateTrackingNumberCommand{writer: writer}
}

func (c *UpdateTrackingNumberCommand) Execute(ctx context.Context, msg UpdateTrackingNumberMessage) error {
	if c == nil || c.writer == nil {
		return commandDependencyError("command: tracking number writer is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.writer.UpdateTrackingNumber(ctx, strings.TrimSpace(msg.OrderID), strings.TrimSpace(msg.TrackingNumber))
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
