package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

// PartnerUserRepo persists portal users, indexed under their partner and
// by a unique email lookup.
type PartnerUserRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewPartnerUserRepo(s store.Store, logger *zap.Logger) *PartnerUserRepo {
	return &PartnerUserRepo{store: s, logger: logger}
}

func partnerUsersKey(partnerID string) string {
	return store.ChildKey(store.TypePartner, partnerID, "users")
}

func encodePartnerUser(u *domain.PartnerUser) store.FieldMap {
	fm := store.NewFieldMap()
	fm.SetString("id", u.ID)
	fm.SetString("partner_id", u.PartnerID)
	fm.SetString("role", string(u.Role))
	fm.SetString("email", u.Email)
	fm.SetString("full_name", u.FullName)
	fm.SetBool("is_active", u.IsActive)
	fm.SetTime("created_at", u.CreatedAt)
	fm.SetTime("updated_at", u.UpdatedAt)
	return fm
}

func decodePartnerUser(fields map[string]string) (*domain.PartnerUser, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	u := &domain.PartnerUser{
		ID:        d.String("id"),
		PartnerID: d.String("partner_id"),
		Role:      domain.PartnerUserRole(d.String("role")),
		Email:     d.String("email"),
		FullName:  d.String("full_name"),
		IsActive:  d.Bool("is_active"),
		CreatedAt: d.Time("created_at"),
		UpdatedAt: d.Time("updated_at"),
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("partner user %s: %w", u.ID, err)
	}
	return u, nil
}

func (r *PartnerUserRepo) CreatePartnerUser(ctx context.Context, u *domain.PartnerUser) error {
	if err := validID(store.TypePartnerUser, u.ID); err != nil {
		return err
	}
	if u.PartnerID == "" {
		return errors.New("partner user partner_id is required")
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	var diff indexDiff
	diff.Add(partnerUsersKey(u.PartnerID), u.ID)
	diff.Ordered(store.AllKey(store.TypePartnerUser), u.ID, float64(u.CreatedAt.UnixMilli()))
	if u.Email != "" {
		diff.Lookup("", store.EmailKey(store.TypePartnerUser, u.Email), u.ID)
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypePartnerUser, u.ID), encodePartnerUser(u))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create partner user %s: %w", u.ID, err)
	}
	if err := store.CheckBatch(store.TypePartnerUser, u.ID, res); err != nil {
		r.logger.Error("partner user create left indexes inconsistent", zap.String("user_id", u.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *PartnerUserRepo) GetPartnerUserByID(ctx context.Context, id string) (*domain.PartnerUser, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypePartnerUser, id))
	if err != nil {
		return nil, fmt.Errorf("get partner user %s: %w", id, err)
	}
	u, err := decodePartnerUser(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("partner user %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return u, nil
}

func (r *PartnerUserRepo) GetPartnerUserByEmail(ctx context.Context, email string) (*domain.PartnerUser, error) {
	id, err := r.store.Get(ctx, store.EmailKey(store.TypePartnerUser, email))
	if err != nil {
		if errors.Is(err, store.ErrNoValue) {
			return nil, fmt.Errorf("partner user email %s: %w", store.NormalizeEmail(email), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("partner user email lookup: %w", err)
	}
	return r.GetPartnerUserByID(ctx, id)
}

// UpdatePartnerUser updates role and active state.
func (r *PartnerUserRepo) UpdatePartnerUser(ctx context.Context, id string, role domain.PartnerUserRole, active bool) (*domain.PartnerUser, error) {
	old, err := r.GetPartnerUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update partner user %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	next.Role = role
	next.IsActive = active
	next.UpdatedAt = time.Now()

	var diff indexDiff
	diff.Ordered(store.AllKey(store.TypePartnerUser), id, float64(next.CreatedAt.UnixMilli()))

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypePartnerUser, id), encodePartnerUser(&next))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update partner user %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypePartnerUser, id, res); err != nil {
		r.logger.Error("partner user update left indexes inconsistent", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

func (r *PartnerUserRepo) DeletePartnerUser(ctx context.Context, id string) error {
	old, err := r.GetPartnerUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete partner user %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	diff.Remove(partnerUsersKey(old.PartnerID), id)
	diff.RemoveOrdered(store.AllKey(store.TypePartnerUser), id)
	if old.Email != "" {
		diff.Drop(store.EmailKey(store.TypePartnerUser, old.Email))
	}
	diff.Drop(userProgressKey(id))

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypePartnerUser, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete partner user %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypePartnerUser, id, res); err != nil {
		r.logger.Error("partner user delete left orphaned index entries", zap.String("user_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *PartnerUserRepo) ListPartnerUsers(ctx context.Context, partnerID string, limit int64) ([]*domain.PartnerUser, error) {
	ids, err := r.store.SMembers(ctx, partnerUsersKey(partnerID))
	if err != nil {
		return nil, fmt.Errorf("list users for partner %s: %w", partnerID, err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetPartnerUserByID)
}

func (r *PartnerUserRepo) ListPartnerUsersPage(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.PartnerUser], error) {
	raw, err := store.PaginateMembers(ctx, r.store, partnerUsersKey(partnerID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.PartnerUser]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetPartnerUserByID)
}
