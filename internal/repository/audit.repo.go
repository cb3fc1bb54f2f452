package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

// AuditRepo writes immutable audit events. Every event lands in its
// primary hash plus three ordered views (entity, actor, action) in a
// single batch; a partially written event is reported as an error so the
// caller never sees a record missing from one of its views silently.
type AuditRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewAuditRepo(s store.Store, logger *zap.Logger) *AuditRepo {
	return &AuditRepo{store: s, logger: logger}
}

func encodeAuditEvent(ev *domain.AuditEvent) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", ev.ID)
	fm.SetString("actor_id", ev.ActorID)
	fm.SetString("actor_type", string(ev.ActorType))
	fm.SetString("action", ev.Action)
	fm.SetString("entity_type", ev.EntityType)
	fm.SetString("entity_id", ev.EntityID)
	if err := fm.SetJSON("changes", ev.Changes); err != nil {
		return nil, err
	}
	fm.SetTime("created_at", ev.CreatedAt)
	return fm, nil
}

func decodeAuditEvent(fields map[string]string) (*domain.AuditEvent, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	ev := &domain.AuditEvent{
		ID:         d.String("id"),
		ActorID:    d.String("actor_id"),
		ActorType:  domain.ActorType(d.String("actor_type")),
		Action:     d.String("action"),
		EntityType: d.String("entity_type"),
		EntityID:   d.String("entity_id"),
		CreatedAt:  d.Time("created_at"),
	}
	d.JSON("changes", &ev.Changes)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("audit event %s: %w", ev.ID, err)
	}
	return ev, nil
}

// RecordEvent persists the event and all three of its views. The batch is
// not atomic, so any failed command surfaces as *store.PartialWriteError;
// an event is either fully indexed or reported failed.
func (r *AuditRepo) RecordEvent(ctx context.Context, ev *domain.AuditEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	if ev.EntityType == "" || ev.EntityID == "" {
		return errors.New("audit event requires entity_type and entity_id")
	}
	if ev.Action == "" {
		return errors.New("audit event requires an action")
	}

	fm, err := encodeAuditEvent(ev)
	if err != nil {
		return err
	}

	score := float64(ev.CreatedAt.UnixMilli())
	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeAudit, ev.ID), fm)
	b.ZAdd(store.AuditEntityKey(ev.EntityType, ev.EntityID), ev.ID, score)
	b.ZAdd(store.AuditActorKey(ev.ActorID), ev.ID, score)
	b.ZAdd(store.AuditActionKey(ev.Action), ev.ID, score)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("record audit event %s: %w", ev.ID, err)
	}
	if err := store.CheckBatch(store.TypeAudit, ev.ID, res); err != nil {
		r.logger.Error("audit event partially written",
			zap.String("event_id", ev.ID),
			zap.String("entity_type", ev.EntityType),
			zap.String("entity_id", ev.EntityID),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *AuditRepo) GetEventByID(ctx context.Context, id string) (*domain.AuditEvent, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeAudit, id))
	if err != nil {
		return nil, fmt.Errorf("get audit event %s: %w", id, err)
	}
	ev, err := decodeAuditEvent(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("audit event %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return ev, nil
}

// ListEventsByEntity pages the newest-first history of a single entity.
func (r *AuditRepo) ListEventsByEntity(ctx context.Context, entityType, entityID, cursor string, limit int64) (domain.Page[*domain.AuditEvent], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AuditEntityKey(entityType, entityID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.AuditEvent]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetEventByID)
}

func (r *AuditRepo) ListEventsByActor(ctx context.Context, actorID, cursor string, limit int64) (domain.Page[*domain.AuditEvent], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AuditActorKey(actorID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.AuditEvent]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetEventByID)
}

func (r *AuditRepo) ListEventsByAction(ctx context.Context, action, cursor string, limit int64) (domain.Page[*domain.AuditEvent], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AuditActionKey(action), cursor, limit)
	if err != nil {
		return domain.Page[*domain.AuditEvent]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetEventByID)
}
