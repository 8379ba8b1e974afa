package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/go-payhooks/core"
	"github.com/goliatone/go-payhooks/inbound"
)

const (
	DefaultWebhookPath  = "/webhooks/payment"
	DefaultMaxBodyBytes = int64(1 << 20)
)

// Dispatcher handles one verified-or-rejected webhook delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, req core.InboundRequest) (inbound.Result, error)
}

type Option func(*Handler)

// WithAdmin mounts the admin routes behind a bearer token. An empty token
// leaves the admin routes unmounted.
func WithAdmin(admin Admin, token string) Option {
	return func(h *Handler) {
		h.admin = admin
		h.adminToken = strings.TrimSpace(token)
	}
}

func WithWebhookPath(path string) Option {
	return func(h *Handler) {
		if path = strings.TrimSpace(path); path != "" {
			h.webhookPath = path
		}
	}
}

func WithMaxBodyBytes(limit int64) Option {
	return func(h *Handler) {
		if limit > 0 {
			h.maxBodyBytes = limit
		}
	}
}

func WithObserver(observer *core.Observer) Option {
	return func(h *Handler) {
		if observer != nil {
			h.observer = observer
		}
	}
}

// Handler holds the HTTP surface state.
type Handler struct {
	dispatcher   Dispatcher
	admin        Admin
	adminToken   string
	webhookPath  string
	maxBodyBytes int64
	observer     *core.Observer
	now          func() time.Time
}

func NewHandler(dispatcher Dispatcher, opts ...Option) *Handler {
	h := &Handler{
		dispatcher:   dispatcher,
		webhookPath:  DefaultWebhookPath,
		maxBodyBytes: DefaultMaxBodyBytes,
		observer:     core.NewObserver("payhooks.api", nil, nil, nil),
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// NewRouter returns a chi router with panic recovery and every route mounted.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	h.Routes(r)
	return r
}

// Routes mounts the webhook and, when configured, the admin routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get(h.webhookPath, h.Liveness)
	r.Post(h.webhookPath, h.ReceiveWebhook)

	if h.admin == nil || h.adminToken == "" {
		return
	}
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.adminAuth)
		r.Get("/orders/{id}", h.GetOrder)
		r.Get("/orders/{id}/events", h.ListOrderEvents)
		r.Post("/orders/{id}/shipment", h.RequestShipment)
		r.Put("/orders/{id}/tracking", h.UpdateTracking)
	})
}

// Liveness lets the processor check the endpoint is reachable.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok")
}

func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	receivedAt := h.now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		h.observer.Warn(r.Context(), "api: read webhook body failed", map[string]any{"error": err.Error()})
		writeJSON(w, status, inbound.ResponseBody{Status: inbound.StatusError, Error: core.ErrorBadInput})
		return
	}
	if h.dispatcher == nil {
		writeJSON(w, http.StatusInternalServerError, inbound.ResponseBody{Status: inbound.StatusError, Error: core.ErrorInternal})
		return
	}

	result, _ := h.dispatcher.Dispatch(r.Context(), core.InboundRequest{
		Headers:    flattenHeaders(r.Header),
		Body:       body,
		ReceivedAt: receivedAt,
	})
	status := result.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
		result.Body = inbound.ResponseBody{Status: inbound.StatusError, Error: core.ErrorInternal}
	}
	writeJSON(w, status, result.Body)
}

func (h *Handler) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if auth == "" || token == auth || !tokensEqual(token, h.adminToken) {
			writeJSON(w, http.StatusUnauthorized, inbound.ResponseBody{Status: inbound.StatusError, Error: core.ErrorUnauthorized})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// flattenHeaders keeps the first value of each header.
func flattenHeaders(headers http.Header) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		out[key] = values[0]
	}
	return out
}
