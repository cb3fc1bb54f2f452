package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// respondDomainError maps the domain sentinels onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var partial *store.PartialWriteError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrPreconditionFailed):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.As(err, &partial):
		respondError(w, r, http.StatusBadGateway, err.Error())
	default:
		respondError(w, r, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pageParams reads the cursor/limit query pair shared by every listing.
func pageParams(r *http.Request) (string, int64) {
	q := r.URL.Query()
	cursor := q.Get("cursor")
	limit := int64(0)
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			limit = n
		}
	}
	return cursor, limit
}
