package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/interfaces/rest"
	"github.com/DanielPopoola/ficmart-invoicing/internal/telemetry"
)

const maxBodyBytes = 1 << 20

// Handlers serves the invoice API on a ServeMux.
type Handlers struct {
	createService  *services.CreateService
	paymentService *services.PaymentService
	cancelService  *services.CancelService
	updateService  *services.UpdateService
	queryService   *services.QueryService
	logger         *slog.Logger
}

func NewHandlers(
	createService *services.CreateService,
	paymentService *services.PaymentService,
	cancelService *services.CancelService,
	updateService *services.UpdateService,
	queryService *services.QueryService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		createService:  createService,
		paymentService: paymentService,
		cancelService:  cancelService,
		updateService:  updateService,
		queryService:   queryService,
		logger:         logger,
	}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(fn))
	}

	route("POST /api/v1/invoices", h.CreateInvoice)
	route("GET /api/v1/invoices", h.ListInvoices)
	route("GET /api/v1/invoices/overdue", h.ListOverdue)
	route("GET /api/v1/invoices/due-soon", h.ListDueSoon)
	route("GET /api/v1/invoices/statistics", h.GetStatistics)
	route("GET /api/v1/invoices/{id}", h.GetInvoice)
	route("PATCH /api/v1/invoices/{id}", h.UpdateInvoice)
	route("POST /api/v1/invoices/{id}/payments", h.ProcessPayment)
	route("POST /api/v1/invoices/{id}/cancel", h.CancelInvoice)
	route("POST /api/v1/invoices/{id}/items", h.AddItem)
	route("PATCH /api/v1/invoices/{id}/items/{item_id}", h.UpdateItem)
	route("DELETE /api/v1/invoices/{id}/items/{item_id}", h.RemoveItem)
	route("GET /api/v1/orders/{order_id}/invoice", h.GetInvoiceByOrder)
}

// RegisterHealth exposes a liveness probe backed by ping.
func RegisterHealth(mux *http.ServeMux, ping func(ctx context.Context) error) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			rest.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	rest.WriteError(w, err, h.logger)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return domain.NewValidationError(domain.ErrCodeValidation, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(domain.ErrCodeValidation, fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}
