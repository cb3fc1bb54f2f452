package usecase

import (
	"context"

	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/events"
	"partner-portal/internal/repository"
	"partner-portal/internal/store"
)

// Actor identifies who is performing a mutation, for the audit trail.
type Actor struct {
	ID   string
	Type domain.ActorType
}

func SystemActor() Actor {
	return Actor{ID: "system", Type: domain.ActorSystem}
}

// PortalUsecase wires the entity repositories together with audit
// recording, cache invalidation and event publishing. The publisher may be
// nil (tests, offline tooling); publishing is skipped then.
type PortalUsecase struct {
	partnerRepo    *repository.PartnerRepo
	userRepo       *repository.PartnerUserRepo
	dealRepo       *repository.DealRepo
	quoteRepo      *repository.QuoteRepo
	documentRepo   *repository.DocumentRepo
	certRepo       *repository.CertificationRepo
	commissionRepo *repository.CommissionRepo
	courseRepo     *repository.CourseRepo
	progressRepo   *repository.ProgressRepo
	credentialRepo *repository.CredentialRepo
	auditRepo      *repository.AuditRepo

	cache     *store.Cache
	publisher *events.EventPublisher
	logger    *zap.Logger
}

type Repos struct {
	Partner       *repository.PartnerRepo
	User          *repository.PartnerUserRepo
	Deal          *repository.DealRepo
	Quote         *repository.QuoteRepo
	Document      *repository.DocumentRepo
	Certification *repository.CertificationRepo
	Commission    *repository.CommissionRepo
	Course        *repository.CourseRepo
	Progress      *repository.ProgressRepo
	Credential    *repository.CredentialRepo
	Audit         *repository.AuditRepo
}

func NewPortalUsecase(r Repos, cache *store.Cache, publisher *events.EventPublisher, logger *zap.Logger) *PortalUsecase {
	return &PortalUsecase{
		partnerRepo:    r.Partner,
		userRepo:       r.User,
		dealRepo:       r.Deal,
		quoteRepo:      r.Quote,
		documentRepo:   r.Document,
		certRepo:       r.Certification,
		commissionRepo: r.Commission,
		courseRepo:     r.Course,
		progressRepo:   r.Progress,
		credentialRepo: r.Credential,
		auditRepo:      r.Audit,
		cache:          cache,
		publisher:      publisher,
		logger:         logger,
	}
}

// recordAudit writes the audit event for a mutation that already landed.
// A failed audit write is logged, never propagated; the primary write is
// not rolled back for a missing trail entry.
func (uc *PortalUsecase) recordAudit(ctx context.Context, actor Actor, action, entityType, entityID string, changes []domain.FieldChange) {
	ev := &domain.AuditEvent{
		ActorID:    actor.ID,
		ActorType:  actor.Type,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
	}
	if err := uc.auditRepo.RecordEvent(ctx, ev); err != nil {
		uc.logger.Error("audit record failed",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// invalidate drops cached aggregates after a write. Best effort.
func (uc *PortalUsecase) invalidate(ctx context.Context, names ...string) {
	if err := uc.cache.Invalidate(ctx, names...); err != nil {
		uc.logger.Warn("cache invalidation failed",
			zap.Strings("names", names), zap.Error(err))
	}
}

func (uc *PortalUsecase) publishMutation(ctx context.Context, actor Actor, eventType, entityType, entityID string) {
	if uc.publisher == nil {
		return
	}
	_ = uc.publisher.PublishMutation(ctx, &events.EntityMutationEvent{
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actor.ID,
	})
}
