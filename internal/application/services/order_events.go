package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	OrderCreated   = "order.created"
	OrderUpdated   = "order.updated"
	OrderCancelled = "order.cancelled"
)

const orderCancelledReason = "Order was cancelled"

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderEvent struct {
	EventType      string           `json:"event_type"`
	OrderID        string           `json:"order_id"`
	UserID         string           `json:"user_id"`
	Items          []OrderItem      `json:"items"`
	Currency       string           `json:"currency,omitempty"`
	TaxAmount      *decimal.Decimal `json:"tax_amount,omitempty"`
	DiscountAmount *decimal.Decimal `json:"discount_amount,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// OrderEventHandlers keep invoices in step with the order lifecycle.
type OrderEventHandlers struct {
	invoices application.InvoiceRepository
	creator  *CreateService
	canceler *CancelService
	logger   *slog.Logger
}

func NewOrderEventHandlers(
	invoices application.InvoiceRepository,
	creator *CreateService,
	canceler *CancelService,
	logger *slog.Logger,
) *OrderEventHandlers {
	return &OrderEventHandlers{
		invoices: invoices,
		creator:  creator,
		canceler: canceler,
		logger:   logger,
	}
}

// Handle dispatches on the event type. Unknown types are logged and dropped.
func (h *OrderEventHandlers) Handle(ctx context.Context, event OrderEvent) error {
	switch event.EventType {
	case OrderCreated:
		return h.HandleOrderCreated(ctx, event)
	case OrderCancelled:
		return h.HandleOrderCancelled(ctx, event)
	case OrderUpdated:
		return h.HandleOrderUpdated(ctx, event)
	}
	h.logger.Warn("unhandled order event type", "event_type", event.EventType, "order_id", event.OrderID)
	return nil
}

func (h *OrderEventHandlers) HandleOrderCreated(ctx context.Context, event OrderEvent) error {
	if event.OrderID == "" {
		return domain.NewMissingRequiredFieldError("order_id")
	}

	if existing, err := h.invoices.FindByOrderID(ctx, event.OrderID); err == nil {
		h.logger.Info("invoice already exists for order, skipping creation",
			"order_id", event.OrderID,
			"invoice_id", existing.ID)
		return nil
	} else if !isNotFound(err) {
		return err
	}

	cmd := CreateInvoiceCommand{
		OrderID:  event.OrderID,
		UserID:   event.UserID,
		Currency: event.Currency,
		Tax:      event.TaxAmount,
		Discount: event.DiscountAmount,
		Items:    make([]ItemCommand, 0, len(event.Items)),
	}
	for _, item := range event.Items {
		description := item.Name
		if description == "" {
			description = "Product"
		}
		cmd.Items = append(cmd.Items, ItemCommand{
			ProductID:   item.ProductID,
			Description: description,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
		})
	}

	result, err := h.creator.Create(ctx, cmd)
	if err != nil {
		return err
	}
	h.logger.Info("processed order created event",
		"order_id", event.OrderID,
		"invoice_id", result.Invoice.ID,
		"outcome", result.Outcome.String())
	return nil
}

func (h *OrderEventHandlers) HandleOrderCancelled(ctx context.Context, event OrderEvent) error {
	if event.OrderID == "" {
		return domain.NewMissingRequiredFieldError("order_id")
	}

	invoice, err := h.invoices.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		if isNotFound(err) {
			h.logger.Warn("no invoice found for cancelled order", "order_id", event.OrderID)
			return nil
		}
		return err
	}

	if invoice.IsPaid() {
		h.logger.Warn("cannot cancel paid invoice for cancelled order, refund required",
			"order_id", event.OrderID,
			"invoice_id", invoice.ID)
		return nil
	}

	_, err = h.canceler.Cancel(ctx, CancelInvoiceCommand{InvoiceID: invoice.ID, Reason: orderCancelledReason})
	if errors.Is(err, domain.ErrInvalidState) {
		// Paid between the lookup and the lock.
		h.logger.Warn("invoice became non-cancellable while handling order cancellation",
			"order_id", event.OrderID,
			"invoice_id", invoice.ID,
			"error", err)
		return nil
	}
	return err
}

// HandleOrderUpdated is a no-op: amending an issued invoice needs its own flow.
func (h *OrderEventHandlers) HandleOrderUpdated(_ context.Context, event OrderEvent) error {
	h.logger.Info("order updated event received, no invoice change applied", "order_id", event.OrderID)
	return nil
}
