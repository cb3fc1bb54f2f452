package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"partner-portal/internal/domain"
)

// ==================== DEALS ====================

func (h *PortalHandler) RegisterDeal(w http.ResponseWriter, r *http.Request) {
	var d domain.Deal
	if err := decodeJSON(r, &d); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.uc.RegisterDeal(r.Context(), actorFrom(r), &d); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, d)
}

func (h *PortalHandler) GetDeal(w http.ResponseWriter, r *http.Request) {
	d, err := h.uc.GetDealByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}

func (h *PortalHandler) UpdateDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerName  *string            `json:"customer_name"`
		CustomerEmail *string            `json:"customer_email"`
		Value         *float64           `json:"value"`
		Currency      *string            `json:"currency"`
		Status        *domain.DealStatus `json:"status"`
		Tags          *[]string          `json:"tags"`
		Notes         *string            `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	upd := domain.DealUpdate{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Value:         req.Value,
		Currency:      req.Currency,
		Status:        req.Status,
		Tags:          req.Tags,
		Notes:         req.Notes,
	}
	d, err := h.uc.UpdateDeal(r.Context(), actorFrom(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}

func (h *PortalHandler) ApproveDeal(w http.ResponseWriter, r *http.Request) {
	d, err := h.uc.ApproveDeal(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}

func (h *PortalHandler) RejectDeal(w http.ResponseWriter, r *http.Request) {
	d, err := h.uc.RejectDeal(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}

func (h *PortalHandler) CloseDeal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Won bool `json:"won"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.uc.CloseDeal(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Won)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}

func (h *PortalHandler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeleteDeal(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"message": "deal deleted"})
}

func (h *PortalHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cursor, limit := pageParams(r)
	q := r.URL.Query()

	var (
		page interface{}
		err  error
	)
	switch {
	case q.Get("status") != "":
		page, err = h.uc.ListDealsByStatus(ctx, domain.DealStatus(q.Get("status")), cursor, limit)
	case q.Get("partner_id") != "":
		page, err = h.uc.ListDealsByPartner(ctx, q.Get("partner_id"), cursor, limit)
	default:
		page, err = h.uc.ListAllDeals(ctx, cursor, limit)
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

// ==================== QUOTES ====================

func (h *PortalHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	var q domain.Quote
	if err := decodeJSON(r, &q); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q.DealID = chi.URLParam(r, "id")
	if err := h.uc.CreateQuote(r.Context(), actorFrom(r), &q); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, q)
}

func (h *PortalHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.uc.GetQuoteByID(r.Context(), chi.URLParam(r, "quoteID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, q)
}

func (h *PortalHandler) UpdateQuoteStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.QuoteStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.uc.UpdateQuoteStatus(r.Context(), actorFrom(r), chi.URLParam(r, "quoteID"), req.Status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, q)
}

func (h *PortalHandler) ListQuoteVersions(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListQuoteVersions(r.Context(), chi.URLParam(r, "id"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

func (h *PortalHandler) GetLatestQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.uc.GetLatestQuote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, q)
}
