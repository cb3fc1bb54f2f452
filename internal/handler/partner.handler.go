package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"partner-portal/internal/domain"
)

// ==================== PARTNERS ====================

func (h *PortalHandler) CreatePartner(w http.ResponseWriter, r *http.Request) {
	var p domain.Partner
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.uc.CreatePartner(r.Context(), actorFrom(r), &p); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, p)
}

func (h *PortalHandler) GetPartner(w http.ResponseWriter, r *http.Request) {
	p, err := h.uc.GetPartnerByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

func (h *PortalHandler) GetPartnerByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondError(w, r, http.StatusBadRequest, "email query parameter is required")
		return
	}
	p, err := h.uc.GetPartnerByEmail(r.Context(), email)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

func (h *PortalHandler) UpdatePartner(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         *string               `json:"name"`
		ContactEmail *string               `json:"contact_email"`
		ContactPhone *string               `json:"contact_phone"`
		Country      *string               `json:"country"`
		Status       *domain.PartnerStatus `json:"status"`
		Tier         *domain.PartnerTier   `json:"tier"`
		Rating       *float64              `json:"rating"`
		APIEnabled   *bool                 `json:"is_api_enabled"`
		APIRateLimit *int                  `json:"api_rate_limit"`
		AllowedIPs   *[]string             `json:"allowed_ips"`
		Metadata     *map[string]string    `json:"metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	upd := domain.PartnerUpdate{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Country:      req.Country,
		Status:       req.Status,
		Tier:         req.Tier,
		Rating:       req.Rating,
		APIEnabled:   req.APIEnabled,
		APIRateLimit: req.APIRateLimit,
		AllowedIPs:   req.AllowedIPs,
		Metadata:     req.Metadata,
	}
	p, err := h.uc.UpdatePartner(r.Context(), actorFrom(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

func (h *PortalHandler) DeletePartner(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeletePartner(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"message": "partner deleted"})
}

func (h *PortalHandler) ListPartners(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cursor, limit := pageParams(r)
	q := r.URL.Query()

	var (
		page interface{}
		err  error
	)
	switch {
	case q.Get("status") != "":
		page, err = h.uc.ListPartnersByStatus(ctx, domain.PartnerStatus(q.Get("status")), cursor, limit)
	case q.Get("tier") != "":
		page, err = h.uc.ListPartnersByTier(ctx, domain.PartnerTier(q.Get("tier")), cursor, limit)
	case q.Get("country") != "":
		page, err = h.uc.ListPartnersByCountry(ctx, q.Get("country"), cursor, limit)
	case q.Get("sort") == "rating":
		page, err = h.uc.ListTopRatedPartners(ctx, cursor, limit)
	default:
		page, err = h.uc.ListAllPartners(ctx, cursor, limit)
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

// ==================== PARTNER USERS ====================

func (h *PortalHandler) CreatePartnerUser(w http.ResponseWriter, r *http.Request) {
	var u domain.PartnerUser
	if err := decodeJSON(r, &u); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u.PartnerID = chi.URLParam(r, "id")
	if err := h.uc.CreatePartnerUser(r.Context(), actorFrom(r), &u); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, u)
}

func (h *PortalHandler) UpdatePartnerUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role     domain.PartnerUserRole `json:"role"`
		IsActive bool                   `json:"is_active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	u, err := h.uc.UpdatePartnerUser(r.Context(), actorFrom(r), chi.URLParam(r, "userID"), req.Role, req.IsActive)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, u)
}

func (h *PortalHandler) DeletePartnerUser(w http.ResponseWriter, r *http.Request) {
	if err := h.uc.DeletePartnerUser(r.Context(), actorFrom(r), chi.URLParam(r, "userID")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"message": "partner user deleted"})
}

func (h *PortalHandler) ListPartnerUsers(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListPartnerUsers(r.Context(), chi.URLParam(r, "id"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

// ==================== CREDENTIALS ====================

func (h *PortalHandler) IssueCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label  string   `json:"label"`
		Scopes []string `json:"scopes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	plaintext, cred, err := h.uc.IssueCredential(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.Label, req.Scopes)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, map[string]interface{}{
		"api_key":    plaintext,
		"credential": cred,
		"message":    "store the key securely, it won't be shown again",
	})
}

func (h *PortalHandler) RevokeCredential(w http.ResponseWriter, r *http.Request) {
	cred, err := h.uc.RevokeCredential(r.Context(), actorFrom(r), chi.URLParam(r, "credentialID"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cred)
}

func (h *PortalHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	_, limit := pageParams(r)
	creds, err := h.uc.ListCredentialsByPartner(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, creds)
}
