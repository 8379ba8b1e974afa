package query

import (
	"strings"
)

const (
	TypeGetOrder        = "payhooks.query.order.get"
	TypeListOrderEvents = "payhooks.query.order_events.list"

	MaxOrderEventsLimit = 200
)

type GetOrderMessage struct {
	OrderID string
}

func (GetOrderMessage) Type() string { return TypeGetOrder }

func (m GetOrderMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return queryValidationError("order_id", "order id is required")
	}
	return nil
}

// ListOrderEventsMessage reads the event log of one order, newest first. A
// zero Limit uses the store default.
type ListOrderEventsMessage struct {
	OrderID string
	Limit   int
}

func (ListOrderEventsMessage) Type() string { return TypeListOrderEvents }

func (m ListOrderEventsMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return queryValidationError("order_id", "order id is required")
	}
	if m.Limit < 0 || m.Limit > MaxOrderEventsLimit {
		return queryInvalidInputError("query: limit must be between 0 and 200")
	}
	return nil
}
