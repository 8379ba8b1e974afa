package query

import (
	"context"
	"strings"

	"github.com/goliatone/go-payhooks/core"
)

type OrderReader interface {
	FindByID(ctx context.Context, orderID string) (core.Order, error)
}

type EventLogReader interface {
	ListByOrder(ctx context.Context, orderID string, limit int) ([]core.EventRecord, error)
}

type GetOrderQuery struct {
	reader OrderReader
}

func NewGetOrderQuery(reader OrderReader) *GetOrderQuery {
	return &GetOrderQuery{reader: reader}
}

func (q *GetOrderQuery) Query(ctx context.Context, msg GetOrderMessage) (core.Order, error) {
	if q == nil || q.reader == nil {
		return core.Order{}, queryDependencyError("query: order reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Order{}, err
	}
	return q.reader.FindByID(ctx, strings.TrimSpace(msg.OrderID))
}

type ListOrderEventsQuery struct {
	reader EventLogReader
}

func NewListOrderEventsQuery(reader EventLogReader) *ListOrderEventsQuery {
	return &ListOrderEventsQuery{reader: reader}
}

func (q *ListOrderEventsQuery) Query(ctx context.Context, msg ListOrderEventsMessage) ([]core.EventRecord, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: event log reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.ListByOrder(ctx, strings.TrimSpace(msg.OrderID), msg.Limit)
}
