package core

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// ChargeableStatuses are the statuses from which a charge-succeeded event may
// move an order to PAID. Everything else is either already settled or terminal.
var ChargeableStatuses = []OrderStatus{OrderStatusPending}

// CancellableStatuses are the statuses a failed or cancelled charge may move to
// CANCELLED. Settled orders are never downgraded.
var CancellableStatuses = []OrderStatus{OrderStatusPending}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusPaid,
		OrderStatusProcessing,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	default:
		return false
	}
}

func (s OrderStatus) Chargeable() bool {
	return containsStatus(ChargeableStatuses, s)
}

func (s OrderStatus) Cancellable() bool {
	return containsStatus(CancellableStatuses, s)
}

// Settled reports whether a charge has already been applied to the order.
func (s OrderStatus) Settled() bool {
	switch s {
	case OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	if !status.Valid() {
		return "", fmt.Errorf("core: invalid order status %q", value)
	}
	return status, nil
}

type Address struct {
	Name   string
	Street string
	City   string
	Zip    string
	Phone  string
	Email  string
}

type Order struct {
	ID             string
	Status         OrderStatus
	PaymentID      *string
	Total          int64
	TrackingNumber *string
	UserID         string
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	ShippingStreet string
	ShippingCity   string
	ShippingZip    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot returns the shipping details captured on the order at checkout.
func (o Order) Snapshot() Address {
	return Address{
		Name:   o.CustomerName,
		Street: o.ShippingStreet,
		City:   o.ShippingCity,
		Zip:    o.ShippingZip,
		Phone:  o.CustomerPhone,
		Email:  o.CustomerEmail,
	}
}

func (o Order) HasTrackingNumber() bool {
	return o.TrackingNumber != nil && strings.TrimSpace(*o.TrackingNumber) != ""
}

type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Street    string
	City      string
	Zip       string
	LTV       int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Address() Address {
	return Address{
		Name:   u.Name,
		Street: u.Street,
		City:   u.City,
		Zip:    u.Zip,
		Phone:  u.Phone,
		Email:  u.Email,
	}
}

type ApplyChargeInput struct {
	OrderID   string
	PaymentID string
	Amount    int64
}

type ApplyOutcome string

const (
	ApplyOutcomeApplied   ApplyOutcome = "applied"
	ApplyOutcomeDuplicate ApplyOutcome = "duplicate"
	// ApplyOutcomeSkipped marks an order whose status does not accept a charge,
	// e.g. a CANCELLED order.
	ApplyOutcomeSkipped ApplyOutcome = "skipped"
)

type ApplyChargeResult struct {
	Outcome  ApplyOutcome
	Order    Order
	LTVDelta int64
}

type CancelOutcome string

const (
	CancelOutcomeCancelled CancelOutcome = "cancelled"
	CancelOutcomeUnchanged CancelOutcome = "unchanged"
)

type CancelResult struct {
	Outcome CancelOutcome
	Order   Order
}

func containsStatus(statuses []OrderStatus, status OrderStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func StringPtr(value string) *string {
	return &value
}

func cloneOrder(order Order) Order {
	order.PaymentID = cloneString(order.PaymentID)
	order.TrackingNumber = cloneString(order.TrackingNumber)
	return order
}
