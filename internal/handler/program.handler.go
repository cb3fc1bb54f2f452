package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"partner-portal/internal/domain"
)

// ==================== LEGAL DOCUMENTS ====================

func (h *PortalHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var d domain.LegalDocument
	if err := decodeJSON(r, &d); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d.PartnerID = chi.URLParam(r, "id")
	if err := h.uc.CreateDocument(r.Context(), actorFrom(r), &d); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, d)
}

func (h *PortalHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.uc.GetDocumentByID(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}

func (h *PortalHandler) UpdateDocumentStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.DocumentStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.uc.UpdateDocumentStatus(r.Context(), actorFrom(r), chi.URLParam(r, "documentID"), req.Status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}

func (h *PortalHandler) ListPartnerDocuments(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListDocumentsByPartner(r.Context(), chi.URLParam(r, "id"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

// ==================== CERTIFICATIONS ====================

func (h *PortalHandler) CreateCertification(w http.ResponseWriter, r *http.Request) {
	var c domain.Certification
	if err := decodeJSON(r, &c); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c.PartnerID = chi.URLParam(r, "id")
	if err := h.uc.CreateCertification(r.Context(), actorFrom(r), &c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, c)
}

func (h *PortalHandler) AwardCertification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Score float64 `json:"score"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.uc.AwardCertification(r.Context(), actorFrom(r), chi.URLParam(r, "certificationID"), req.Score)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, c)
}

func (h *PortalHandler) ListPartnerCertifications(w http.ResponseWriter, r *http.Request) {
	_, limit := pageParams(r)
	certs, err := h.uc.ListCertificationsByPartner(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, certs)
}

// ==================== COMMISSIONS ====================

func (h *PortalHandler) CreateCommission(w http.ResponseWriter, r *http.Request) {
	var c domain.Commission
	if err := decodeJSON(r, &c); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c.PartnerID = chi.URLParam(r, "id")
	if err := h.uc.CreateCommission(r.Context(), actorFrom(r), &c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, c)
}

func (h *PortalHandler) UpdateCommissionStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.CommissionStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.uc.UpdateCommissionStatus(r.Context(), actorFrom(r), chi.URLParam(r, "commissionID"), req.Status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, c)
}

func (h *PortalHandler) ListPartnerCommissions(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListCommissionsByPartner(r.Context(), chi.URLParam(r, "id"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}
