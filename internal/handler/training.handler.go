package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"partner-portal/internal/domain"
)

// ==================== COURSES ====================

func (h *PortalHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var c domain.TrainingCourse
	if err := decodeJSON(r, &c); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.uc.CreateCourse(r.Context(), actorFrom(r), &c); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, c)
}

func (h *PortalHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.uc.GetCourseByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, c)
}

func (h *PortalHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cursor, limit := pageParams(r)

	var (
		page interface{}
		err  error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		page, err = h.uc.ListCoursesByCategory(ctx, category, cursor, limit)
	} else {
		page, err = h.uc.ListAllCourses(ctx, cursor, limit)
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}

// ==================== PROGRESS ====================

func (h *PortalHandler) EnrollUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.uc.EnrollUser(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, p)
}

func (h *PortalHandler) CompleteModule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"user_id"`
		ModuleCode string `json:"module_code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	p, err := h.uc.CompleteModule(r.Context(), actorFrom(r), chi.URLParam(r, "id"), req.UserID, req.ModuleCode)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

func (h *PortalHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, r, http.StatusBadRequest, "user_id query parameter is required")
		return
	}
	p, err := h.uc.GetProgress(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

func (h *PortalHandler) ListCourseProgress(w http.ResponseWriter, r *http.Request) {
	cursor, limit := pageParams(r)
	page, err := h.uc.ListProgressByCourse(r.Context(), chi.URLParam(r, "id"), cursor, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, page)
}
