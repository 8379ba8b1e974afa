package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payhooks/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const defaultEventLogPageSize = 50

// EventLogStore keeps the audit trail of processed webhook deliveries.
type EventLogStore struct {
	repo repository.Repository[*webhookEventRecord]
}

func NewEventLogStore(db *bun.DB) (*EventLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*webhookEventRecord](db, webhookEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid webhook event repository wiring: %w", err)
		}
	}
	return &EventLogStore{repo: repo}, nil
}

func (s *EventLogStore) Record(ctx context.Context, in core.EventRecord) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: event log store is not configured")
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("sqlstore: invalid event kind %q", in.Kind)
	}
	if strings.TrimSpace(in.State) == "" {
		return fmt.Errorf("sqlstore: event state is required")
	}
	id := strings.TrimSpace(in.ID)
	if parseUUID(id) == uuid.Nil {
		id = uuid.NewString()
	}
	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	record := &webhookEventRecord{
		ID:          id,
		Kind:        string(in.Kind),
		ExternalID:  strings.TrimSpace(in.ExternalID),
		OrderID:     strings.TrimSpace(in.OrderID),
		Amount:      in.Amount,
		State:       strings.TrimSpace(in.State),
		Outcome:     strings.TrimSpace(in.Outcome),
		Warning:     strings.TrimSpace(in.Warning),
		SideEffects: copyStringMap(in.SideEffects),
		ReceivedAt:  receivedAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// ListByOrder returns the most recent events recorded for orderID.
func (s *EventLogStore) ListByOrder(ctx context.Context, orderID string, limit int) ([]core.EventRecord, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: event log store is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("sqlstore: order id is required")
	}
	if limit <= 0 {
		limit = defaultEventLogPageSize
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("order_id", "=", orderID),
		repository.OrderBy("received_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.EventRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
