package core

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryOrderLedger is an in-process OrderLedger and UserDirectory. A single
// mutex covers the status read and the write, so concurrent charges for the
// same order apply at most once.
type MemoryOrderLedger struct {
	mu     sync.Mutex
	orders map[string]Order
	users  map[string]User
	Now    func() time.Time
}

func NewMemoryOrderLedger() *MemoryOrderLedger {
	return &MemoryOrderLedger{
		orders: map[string]Order{},
		users:  map[string]User{},
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryOrderLedger) PutOrder(order Order) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if order.Status == "" {
		order.Status = OrderStatusPending
	}
	now := l.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	l.orders[order.ID] = cloneOrder(order)
}

func (l *MemoryOrderLedger) PutUser(user User) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	l.users[user.ID] = user
}

func (l *MemoryOrderLedger) FindByID(_ context.Context, orderID string) (Order, error) {
	if l == nil {
		return Order{}, OrderNotFoundError(orderID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[strings.TrimSpace(orderID)]
	if !ok {
		return Order{}, OrderNotFoundError(orderID)
	}
	return cloneOrder(order), nil
}

func (l *MemoryOrderLedger) FindUser(_ context.Context, userID string) (User, error) {
	if l == nil {
		return User{}, UserNotFoundError(userID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	user, ok := l.users[strings.TrimSpace(userID)]
	if !ok {
		return User{}, UserNotFoundError(userID)
	}
	return user, nil
}

func (l *MemoryOrderLedger) ApplyCharge(_ context.Context, in ApplyChargeInput) (ApplyChargeResult, error) {
	if l == nil {
		return ApplyChargeResult{}, OrderNotFoundError(in.OrderID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[strings.TrimSpace(in.OrderID)]
	if !ok {
		return ApplyChargeResult{}, OrderNotFoundError(in.OrderID)
	}
	switch {
	case order.Status.Settled():
		return ApplyChargeResult{Outcome: ApplyOutcomeDuplicate, Order: cloneOrder(order)}, nil
	case !order.Status.Chargeable():
		return ApplyChargeResult{Outcome: ApplyOutcomeSkipped, Order: cloneOrder(order)}, nil
	}

	var user User
	hasUser := strings.TrimSpace(order.UserID) != ""
	if hasUser {
		user, ok = l.users[order.UserID]
		if !ok {
			return ApplyChargeResult{}, UserNotFoundError(order.UserID)
		}
	}

	now := l.now()
	order.Status = OrderStatusPaid
	order.PaymentID = StringPtr(in.PaymentID)
	order.UpdatedAt = now
	l.orders[order.ID] = order

	result := ApplyChargeResult{Outcome: ApplyOutcomeApplied, Order: cloneOrder(order)}
	if hasUser {
		user.LTV += in.Amount
		user.UpdatedAt = now
		l.users[user.ID] = user
		result.LTVDelta = in.Amount
	}
	return result, nil
}

func (l *MemoryOrderLedger) Cancel(_ context.Context, orderID string) (CancelResult, error) {
	if l == nil {
		return CancelResult{}, OrderNotFoundError(orderID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[strings.TrimSpace(orderID)]
	if !ok {
		return CancelResult{}, OrderNotFoundError(orderID)
	}
	if !order.Status.Cancellable() {
		return CancelResult{Outcome: CancelOutcomeUnchanged, Order: cloneOrder(order)}, nil
	}
	order.Status = OrderStatusCancelled
	order.UpdatedAt = l.now()
	l.orders[order.ID] = order
	return CancelResult{Outcome: CancelOutcomeCancelled, Order: cloneOrder(order)}, nil
}

func (l *MemoryOrderLedger) UpdateTrackingNumber(_ context.Context, orderID string, trackingNumber string) error {
	if l == nil {
		return OrderNotFoundError(orderID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[strings.TrimSpace(orderID)]
	if !ok {
		return OrderNotFoundError(orderID)
	}
	order.TrackingNumber = StringPtr(strings.TrimSpace(trackingNumber))
	order.UpdatedAt = l.now()
	l.orders[order.ID] = order
	return nil
}

func (l *MemoryOrderLedger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}
