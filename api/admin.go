package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	gocmd "github.com/goliatone/go-command"
	paycommand "github.com/goliatone/go-payhooks/command"
	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"
	"github.com/goliatone/go-payhooks/query"
)

// Admin serves the admin order routes. adapters/gocommand.Bus implements it
// over go-command; HandlerAdmin calls the handlers directly.
type Admin interface {
	GetOrder(ctx context.Context, msg query.GetOrderMessage) (core.Order, error)
	ListOrderEvents(ctx context.Context, msg query.ListOrderEventsMessage) ([]core.EventRecord, error)
	RequestShipment(ctx context.Context, msg paycommand.RequestShipmentMessage) (core.SideEffectResult, error)
	UpdateTrackingNumber(ctx context.Context, msg paycommand.UpdateTrackingNumberMessage) error
}

type HandlerAdmin struct {
	Orders    *query.GetOrderQuery
	Events    *query.ListOrderEventsQuery
	Shipments *paycommand.RequestShipmentCommand
	Tracking  *paycommand.UpdateTrackingNumberCommand
}

func (a HandlerAdmin) GetOrder(ctx context.Context, msg query.GetOrderMessage) (core.Order, error) {
	return a.Orders.Query(ctx, msg)
}

func (a HandlerAdmin) ListOrderEvents(ctx context.Context, msg query.ListOrderEventsMessage) ([]core.EventRecord, error) {
	return a.Events.Query(ctx, msg)
}

func (a HandlerAdmin) RequestShipment(ctx context.Context, msg paycommand.RequestShipmentMessage) (core.SideEffectResult, error) {
	collector := gocmd.NewResult[core.SideEffectResult]()
	if err := a.Shipments.Execute(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return core.SideEffectResult{}, err
	}
	out, _ := collector.Load()
	return out, nil
}

func (a HandlerAdmin) UpdateTrackingNumber(ctx context.Context, msg paycommand.UpdateTrackingNumberMessage) error {
	return a.Tracking.Execute(ctx, msg)
}

type OrderView struct {
	ID             string    `json:"id"`
	Status         string    `json:"status"`
	PaymentID      string    `json:"payment_id,omitempty"`
	Total          int64     `json:"total"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	UserID         string    `json:"user_id,omitempty"`
	CustomerName   string    `json:"customer_name,omitempty"`
	CustomerPhone  string    `json:"customer_phone,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewOrderView(order core.Order) OrderView {
	return OrderView{
		ID:             order.ID,
		Status:         string(order.Status),
		PaymentID:      derefString(order.PaymentID),
		Total:          order.Total,
		TrackingNumber: derefString(order.TrackingNumber),
		UserID:         order.UserID,
		CustomerName:   order.CustomerName,
		CustomerPhone:  order.CustomerPhone,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

type EventView struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	ExternalID  string            `json:"external_id"`
	OrderID     string            `json:"order_id"`
	Amount      int64             `json:"amount"`
	State       string            `json:"state"`
	Outcome     string            `json:"outcome"`
	Warning     string            `json:"warning,omitempty"`
	SideEffects map[string]string `json:"side_effects,omitempty"`
	ReceivedAt  time.Time         `json:"received_at"`
}

type ShipmentView struct {
	Status         string `json:"status"`
	Attempts       int    `json:"attempts"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

type trackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.admin.GetOrder(r.Context(), query.GetOrderMessage{OrderID: chi.URLParam(r, "id")})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewOrderView(order))
}

func (h *Handler) ListOrderEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, inbound.ResponseBody{Status: inbound.StatusError, Error: core.ErrorBadInput})
			return
		}
		limit = parsed
	}
	records, err := h.admin.ListOrderEvents(r.Context(), query.ListOrderEventsMessage{
		OrderID: chi.URLParam(r, "id"),
		Limit:   limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]EventView, 0, len(records))
	for _, record := range records {
		views = append(views, EventView{
			ID:          record.ID,
			Kind:        string(record.Kind),
			ExternalID:  record.ExternalID,
			OrderID:     record.OrderID,
			Amount:      record.Amount,
			State:       record.State,
			Outcome:     record.Outcome,
			Warning:     record.Warning,
			SideEffects: record.SideEffects,
			ReceivedAt:  record.ReceivedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

// RequestShipment answers 200 when the carrier returned a tracking id and 502
// when the request was made but failed.
func (h *Handler) RequestShipment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	result, err := h.admin.RequestShipment(r.Context(), paycommand.RequestShipmentMessage{OrderID: orderID})
	if err != nil {
		writeError(w, err)
		return
	}
	view := ShipmentView{
		Status:   string(result.Status),
		Attempts: result.Attempts,
		Reason:   result.Reason,
	}
	status := http.StatusOK
	switch result.Status {
	case core.SideEffectStatusSucceeded:
		view.TrackingNumber = result.Value
	case core.SideEffectStatusFailed:
		status = http.StatusBadGateway
	}
	h.observer.Info(r.Context(), "api: shipment requested by admin", map[string]any{
		"order_id": orderID,
		"status":   view.Status,
	})
	writeJSON(w, status, view)
}

func (h *Handler) UpdateTracking(w http.ResponseWriter, r *http.Request) {
	var payload trackingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, inbound.ResponseBody{Status: inbound.StatusError, Error: core.ErrorBadInput})
		return
	}
	err := h.admin.UpdateTrackingNumber(r.Context(), paycommand.UpdateTrackingNumberMessage{
		OrderID:        chi.URLParam(r, "id"),
		TrackingNumber: payload.TrackingNumber,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
