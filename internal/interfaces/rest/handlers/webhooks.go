package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/interfaces/rest"
	"github.com/DanielPopoola/ficmart-invoicing/internal/telemetry"
)

// WebhookResponse is deliberately terse; the caller is a payment gateway.
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type WebhookHandler struct {
	reconciler *services.WebhookReconciler
	logger     *slog.Logger
}

func NewWebhookHandler(reconciler *services.WebhookReconciler, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, logger: logger}
}

func (h *WebhookHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/{gateway}", telemetry.WithHTTPRoute(h.HandleWebhook))
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		rest.WriteJSON(w, http.StatusBadRequest, WebhookResponse{Status: "error", Message: "unreadable body"})
		return
	}

	result, err := h.reconciler.Reconcile(r.Context(), application.WebhookRequest{
		Gateway: r.PathValue("gateway"),
		Payload: payload,
		Headers: r.Header,
	})
	if err != nil {
		status, message := webhookFailure(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("webhook processing failed", "gateway", r.PathValue("gateway"), "error", err)
		}
		rest.WriteJSON(w, status, WebhookResponse{Status: "error", Message: message})
		return
	}

	message := string(result.Status)
	if result.TransactionID != "" {
		message += ": " + result.TransactionID
	}
	rest.WriteJSON(w, http.StatusOK, WebhookResponse{Status: "success", Message: message})
}

func webhookFailure(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrWebhookValidation):
		return http.StatusUnauthorized, application.ToErrorCode(err)
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		return http.StatusBadRequest, application.ToErrorCode(err)
	}
	return http.StatusInternalServerError, application.ErrCodeInternal
}
