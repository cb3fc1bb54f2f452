package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ==================== ANALYTICS ====================

func (h *PortalHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetOverview(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, m)
}

func (h *PortalHandler) GetDealFunnel(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetDealFunnel(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, m)
}

func (h *PortalHandler) GetCourseCompletion(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetCourseCompletion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, m)
}

func (h *PortalHandler) GetCommissionPeriod(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetCommissionPeriod(r.Context(), chi.URLParam(r, "period"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, m)
}

// ==================== AUDIT ====================

func (h *PortalHandler) ListAuditByEntity(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListAuditByEntity(r.Context(),
		chi.URLParam(r, "entityType"), chi.URLParam(r, "entityID"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

func (h *PortalHandler) ListAuditByActor(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListAuditByActor(r.Context(), chi.URLParam(r, "actorID"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

func (h *PortalHandler) ListAuditByAction(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListAuditByAction(r.Context(), chi.URLParam(r, "action"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}
