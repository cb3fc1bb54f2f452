package usecase

import (
	"context"
	"errors"

	"partner-portal/internal/domain"
)

func (uc *PortalUsecase) GetAuditEvent(ctx context.Context, eventID string) (*domain.AuditEvent, error) {
	if eventID == "" {
		return nil, errors.New("invalid audit event id")
	}
	return uc.auditRepo.GetEventByID(ctx, eventID)
}

func (uc *PortalUsecase) ListAuditByEntity(ctx context.Context, entityType, entityID, cursor string, limit int64) (domain.Page[*domain.AuditEvent], error) {
	if entityType == "" || entityID == "" {
		return domain.Page[*domain.AuditEvent]{}, errors.New("entity type and id are required")
	}
	return uc.auditRepo.ListEventsByEntity(ctx, entityType, entityID, cursor, limit)
}

func (uc *PortalUsecase) ListAuditByActor(ctx context.Context, actorID, cursor string, limit int64) (domain.Page[*domain.AuditEvent], error) {
	if actorID == "" {
		return domain.Page[*domain.AuditEvent]{}, errors.New("actor id is required")
	}
	return uc.auditRepo.ListEventsByActor(ctx, actorID, cursor, limit)
}

func (uc *PortalUsecase) ListAuditByAction(ctx context.Context, action, cursor string, limit int64) (domain.Page[*domain.AuditEvent], error) {
	if action == "" {
		return domain.Page[*domain.AuditEvent]{}, errors.New("action is required")
	}
	return uc.auditRepo.ListEventsByAction(ctx, action, cursor, limit)
}
