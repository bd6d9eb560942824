package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/interfaces/rest"
)

// CreateInvoice answers 201 for a new invoice and 200 when the order already has one.
func (h *Handlers) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var cmd services.CreateInvoiceCommand
	if err := decode(r, &cmd); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.createService.Create(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome == domain.AlreadyInState {
		status = http.StatusOK
	}
	rest.WriteSuccess(w, status, rest.ToInvoiceResponse(result.Invoice))
}

func (h *Handlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var cmd services.ProcessPaymentCommand
	if err := decode(r, &cmd); err != nil {
		h.fail(w, err)
		return
	}
	cmd.InvoiceID = r.PathValue("id")

	result, err := h.paymentService.ProcessPayment(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	rest.WriteSuccess(w, http.StatusOK, rest.CheckoutResponse{
		Invoice:     rest.ToInvoiceResponse(result.Invoice),
		CheckoutURL: result.CheckoutURL,
		Payment:     rest.ToPaymentResponse(result.Details),
	})
}

func (h *Handlers) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	var cmd services.CancelInvoiceCommand
	if err := decode(r, &cmd); err != nil {
		h.fail(w, err)
		return
	}
	cmd.InvoiceID = r.PathValue("id")

	result, err := h.cancelService.Cancel(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponse(result.Invoice))
}

func (h *Handlers) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	var cmd services.UpdateInvoiceCommand
	if err := decode(r, &cmd); err != nil {
		h.fail(w, err)
		return
	}
	cmd.InvoiceID = r.PathValue("id")

	inv, err := h.updateService.Update(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponse(inv))
}

func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	var item services.ItemCommand
	if err := decode(r, &item); err != nil {
		h.fail(w, err)
		return
	}

	inv, err := h.updateService.AddItem(r.Context(), services.AddItemCommand{
		InvoiceID: r.PathValue("id"),
		Item:      item,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusCreated, rest.ToInvoiceResponse(inv))
}

func (h *Handlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var cmd services.UpdateItemCommand
	if err := decode(r, &cmd); err != nil {
		h.fail(w, err)
		return
	}
	cmd.InvoiceID = r.PathValue("id")
	cmd.ItemID = r.PathValue("item_id")

	inv, err := h.updateService.UpdateItem(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponse(inv))
}

func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	inv, err := h.updateService.RemoveItem(r.Context(), r.PathValue("id"), r.PathValue("item_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponse(inv))
}
