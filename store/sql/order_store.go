package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/uptrace/bun"
)

// OrderStore is the bun-backed order ledger and user directory.
type OrderStore struct {
	db  *bun.DB
	now func() time.Time

	onUserChanged []func(ctx context.Context, userID string)
}

func NewOrderStore(db *bun.DB) (*OrderStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &OrderStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// OnUserChanged registers a hook called after a committed ltv change.
func (s *OrderStore) OnUserChanged(fn func(ctx context.Context, userID string)) {
	if s == nil || fn == nil {
		return
	}
	s.onUserChanged = append(s.onUserChanged, fn)
}

func (s *OrderStore) CreateUser(ctx context.Context, user core.User) (core.User, error) {
	if s == nil || s.db == nil {
		return core.User{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	if strings.TrimSpace(user.ID) == "" {
		return core.User{}, fmt.Errorf("sqlstore: user id is required")
	}
	record := newUserRecord(user)
	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.User{}, err
	}
	return record.toDomain(), nil
}

func (s *OrderStore) CreateOrder(ctx context.Context, order core.Order) (core.Order, error) {
	if s == nil || s.db == nil {
		return core.Order{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	if strings.TrimSpace(order.ID) == "" {
		return core.Order{}, fmt.Errorf("sqlstore: order id is required")
	}
	if order.Status != "" && !order.Status.Valid() {
		return core.Order{}, fmt.Errorf("sqlstore: invalid order status %q", order.Status)
	}
	record := newOrderRecord(order)
	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Order{}, err
	}
	return record.toDomain(), nil
}

func (s *OrderStore) FindByID(ctx context.Context, orderID string) (core.Order, error) {
	if s == nil || s.db == nil {
		return core.Order{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	record, err := selectOrder(ctx, s.db, orderID)
	if err != nil {
		return core.Order{}, err
	}
	return record.toDomain(), nil
}

func (s *OrderStore) FindUser(ctx context.Context, userID string) (core.User, error) {
	if s == nil || s.db == nil {
		return core.User{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	userID = strings.TrimSpace(userID)
	record := &userRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, core.UserNotFoundError(userID)
		}
		return core.User{}, err
	}
	return record.toDomain(), nil
}

// ApplyCharge moves a chargeable order to PAID and credits the owner's ltv in
// one transaction. The status predicate on the update makes concurrent
// deliveries of the same event apply at most once.
func (s *OrderStore) ApplyCharge(ctx context.Context, in core.ApplyChargeInput) (core.ApplyChargeResult, error) {
	if s == nil || s.db == nil {
		return core.ApplyChargeResult{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	orderID := strings.TrimSpace(in.OrderID)
	if orderID == "" {
		return core.ApplyChargeResult{}, fmt.Errorf("sqlstore: order id is required")
	}
	if in.Amount < 0 {
		return core.ApplyChargeResult{}, fmt.Errorf("sqlstore: charge amount must not be negative")
	}

	var result core.ApplyChargeResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := selectOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		status := core.OrderStatus(current.Status)
		if status.Settled() {
			result = core.ApplyChargeResult{Outcome: core.ApplyOutcomeDuplicate, Order: current.toDomain()}
			return nil
		}
		if !status.Chargeable() {
			result = core.ApplyChargeResult{Outcome: core.ApplyOutcomeSkipped, Order: current.toDomain()}
			return nil
		}

		now := s.now()
		paymentID := strings.TrimSpace(in.PaymentID)
		res, err := tx.NewUpdate().
			Model((*orderRecord)(nil)).
			Set("status = ?", string(core.OrderStatusPaid)).
			Set("payment_id = ?", paymentID).
			Set("updated_at = ?", now).
			Where("id = ?", orderID).
			Where("status IN (?)", bun.In(statusStrings(core.ChargeableStatuses))).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			latest, err := selectOrder(ctx, tx, orderID)
			if err != nil {
				return err
			}
			result = core.ApplyChargeResult{Outcome: core.ApplyOutcomeDuplicate, Order: latest.toDomain()}
			return nil
		}

		var delta int64
		if current.UserID != nil && strings.TrimSpace(*current.UserID) != "" {
			userID := strings.TrimSpace(*current.UserID)
			res, err := tx.NewUpdate().
				Model((*userRecord)(nil)).
				Set("ltv = ltv + ?", in.Amount).
				Set("updated_at = ?", now).
				Where("id = ?", userID).
				Exec(ctx)
			if err != nil {
				return err
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return core.UserNotFoundError(userID)
			}
			delta = in.Amount
		}

		applied, err := selectOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		result = core.ApplyChargeResult{
			Outcome:  core.ApplyOutcomeApplied,
			Order:    applied.toDomain(),
			LTVDelta: delta,
		}
		return nil
	})
	if err != nil {
		return core.ApplyChargeResult{}, err
	}
	if result.Outcome == core.ApplyOutcomeApplied && result.LTVDelta != 0 {
		s.notifyUserChanged(ctx, result.Order.UserID)
	}
	return result, nil
}

func (s *OrderStore) Cancel(ctx context.Context, orderID string) (core.CancelResult, error) {
	if s == nil || s.db == nil {
		return core.CancelResult{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	var result core.CancelResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		current, err := selectOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !core.OrderStatus(current.Status).Cancellable() {
			result = core.CancelResult{Outcome: core.CancelOutcomeUnchanged, Order: current.toDomain()}
			return nil
		}
		res, err := tx.NewUpdate().
			Model((*orderRecord)(nil)).
			Set("status = ?", string(core.OrderStatusCancelled)).
			Set("updated_at = ?", s.now()).
			Where("id = ?", orderID).
			Where("status IN (?)", bun.In(statusStrings(core.CancellableStatuses))).
			Exec(ctx)
		if err != nil {
			return err
		}
		outcome := core.CancelOutcomeCancelled
		if affected, _ := res.RowsAffected(); affected == 0 {
			outcome = core.CancelOutcomeUnchanged
		}
		latest, err := selectOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		result = core.CancelResult{Outcome: outcome, Order: latest.toDomain()}
		return nil
	})
	if err != nil {
		return core.CancelResult{}, err
	}
	return result, nil
}

func (s *OrderStore) UpdateTrackingNumber(ctx context.Context, orderID string, trackingNumber string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: order store is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return fmt.Errorf("sqlstore: tracking number is required")
	}
	res, err := s.db.NewUpdate().
		Model((*orderRecord)(nil)).
		Set("tracking_number = ?", trackingNumber).
		Set("updated_at = ?", s.now()).
		Where("id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return core.OrderNotFoundError(orderID)
	}
	return nil
}

func (s *OrderStore) notifyUserChanged(ctx context.Context, userID string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return
	}
	for _, fn := range s.onUserChanged {
		fn(ctx, userID)
	}
}

func selectOrder(ctx context.Context, db bun.IDB, orderID string) (*orderRecord, error) {
	orderID = strings.TrimSpace(orderID)
	record := &orderRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.OrderNotFoundError(orderID)
		}
		return nil, err
	}
	return record, nil
}

func statusStrings(statuses []core.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}
