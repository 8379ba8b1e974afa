package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-payhooks/core"
	"github.com/uptrace/bun"
)

type userRecord struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email,notnull"`
	Phone     string    `bun:"phone,notnull"`
	Street    string    `bun:"street,notnull"`
	City      string    `bun:"city,notnull"`
	Zip       string    `bun:"zip,notnull"`
	LTV       int64     `bun:"ltv,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type orderRecord struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID             string    `bun:"id,pk"`
	Status         string    `bun:"status,notnull"`
	PaymentID      *string   `bun:"payment_id"`
	Total          int64     `bun:"total,notnull"`
	TrackingNumber *string   `bun:"tracking_number"`
	UserID         *string   `bun:"user_id"`
	CustomerName   string    `bun:"customer_name,notnull"`
	CustomerPhone  string    `bun:"customer_phone,notnull"`
	CustomerEmail  string    `bun:"customer_email,notnull"`
	ShippingStreet string    `bun:"shipping_street,notnull"`
	ShippingCity   string    `bun:"shipping_city,notnull"`
	ShippingZip    string    `bun:"shipping_zip,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:webhook_events,alias:we"`

	ID          string            `bun:"id,pk"`
	Kind        string            `bun:"kind,notnull"`
	ExternalID  string            `bun:"external_id,notnull"`
	OrderID     string            `bun:"order_id,notnull"`
	Amount      int64             `bun:"amount,notnull"`
	State       string            `bun:"state,notnull"`
	Outcome     string            `bun:"outcome,notnull"`
	Warning     string            `bun:"warning,notnull"`
	SideEffects map[string]string `bun:"side_effects,type:jsonb,notnull"`
	ReceivedAt  time.Time         `bun:"received_at,notnull"`
	CreatedAt   time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func newUserRecord(user core.User) *userRecord {
	return &userRecord{
		ID:        strings.TrimSpace(user.ID),
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Street:    user.Street,
		City:      user.City,
		Zip:       user.Zip,
		LTV:       user.LTV,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (r *userRecord) toDomain() core.User {
	if r == nil {
		return core.User{}
	}
	return core.User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Street:    r.Street,
		City:      r.City,
		Zip:       r.Zip,
		LTV:       r.LTV,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func newOrderRecord(order core.Order) *orderRecord {
	record := &orderRecord{
		ID:             strings.TrimSpace(order.ID),
		Status:         string(order.Status),
		PaymentID:      cloneStringPtr(order.PaymentID),
		Total:          order.Total,
		TrackingNumber: cloneStringPtr(order.TrackingNumber),
		CustomerName:   order.CustomerName,
		CustomerPhone:  order.CustomerPhone,
		CustomerEmail:  order.CustomerEmail,
		ShippingStreet: order.ShippingStreet,
		ShippingCity:   order.ShippingCity,
		ShippingZip:    order.ShippingZip,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	if record.Status == "" {
		record.Status = string(core.OrderStatusPending)
	}
	if userID := strings.TrimSpace(order.UserID); userID != "" {
		record.UserID = &userID
	}
	return record
}

func (r *orderRecord) toDomain() core.Order {
	if r == nil {
		return core.Order{}
	}
	order := core.Order{
		ID:             r.ID,
		Status:         core.OrderStatus(r.Status),
		PaymentID:      cloneStringPtr(r.PaymentID),
		Total:          r.Total,
		TrackingNumber: cloneStringPtr(r.TrackingNumber),
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		CustomerEmail:  r.CustomerEmail,
		ShippingStreet: r.ShippingStreet,
		ShippingCity:   r.ShippingCity,
		ShippingZip:    r.ShippingZip,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.UserID != nil {
		order.UserID = *r.UserID
	}
	return order
}

func (r *webhookEventRecord) toDomain() core.EventRecord {
	if r == nil {
		return core.EventRecord{}
	}
	return core.EventRecord{
		ID:          r.ID,
		Kind:        core.EventKind(r.Kind),
		ExternalID:  r.ExternalID,
		OrderID:     r.OrderID,
		Amount:      r.Amount,
		State:       r.State,
		Outcome:     r.Outcome,
		Warning:     r.Warning,
		SideEffects: copyStringMap(r.SideEffects),
		ReceivedAt:  r.ReceivedAt,
	}
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyStringMap(input map[string]string) map[string]string {
	out := make(map[string]string, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
