package handler

import (
	"net/http"

	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/usecase"
	"partner-portal/pkg/auth"
)

// PortalHandler exposes the portal over REST. All handlers delegate to the
// usecase layer; the handler only parses requests and shapes responses.
type PortalHandler struct {
	uc     *usecase.PortalUsecase
	logger *zap.Logger
}

func NewPortalHandler(uc *usecase.PortalUsecase, logger *zap.Logger) *PortalHandler {
	return &PortalHandler{uc: uc, logger: logger}
}

// actorFrom resolves the acting identity for the audit trail. Integration
// requests carry the authenticated partner; back-office requests identify
// the operator with the X-Actor-ID header.
func actorFrom(r *http.Request) usecase.Actor {
	if partner, ok := auth.GetPartnerFromContext(r.Context()); ok {
		return usecase.Actor{ID: partner.ID, Type: domain.ActorPartnerUser}
	}
	if actorID := r.Header.Get("X-Actor-ID"); actorID != "" {
		return usecase.Actor{ID: actorID, Type: domain.ActorAdmin}
	}
	return usecase.SystemActor()
}
