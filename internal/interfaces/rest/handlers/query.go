package handlers

import (
	"net/http"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/interfaces/rest"
)

func (h *Handlers) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.queryService.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponse(inv))
}

func (h *Handlers) GetInvoiceByOrder(w http.ResponseWriter, r *http.Request) {
	inv, err := h.queryService.FindByOrderID(r.Context(), r.PathValue("order_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponse(inv))
}

func (h *Handlers) ListInvoices(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.fail(w, err)
		return
	}

	filter := application.InvoiceFilter{
		UserID: r.URL.Query().Get("user_id"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := domain.ParseInvoiceStatus(raw)
		if err != nil {
			h.fail(w, err)
			return
		}
		filter.Status = status
	}

	invoices, err := h.queryService.List(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponses(invoices))
}

func (h *Handlers) ListOverdue(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.fail(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.fail(w, err)
		return
	}

	invoices, err := h.queryService.Overdue(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponses(invoices))
}

func (h *Handlers) ListDueSoon(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil {
		h.fail(w, err)
		return
	}

	invoices, err := h.queryService.DueSoon(r.Context(), days)
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, rest.ToInvoiceResponses(invoices))
}

func (h *Handlers) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queryService.Statistics(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	rest.WriteSuccess(w, http.StatusOK, stats)
}
