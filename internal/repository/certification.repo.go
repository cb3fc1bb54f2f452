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

// CertificationRepo persists partner certifications, indexed by status,
// globally by creation order, and as a membership set under the partner.
type CertificationRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewCertificationRepo(s store.Store, logger *zap.Logger) *CertificationRepo {
	return &CertificationRepo{store: s, logger: logger}
}

func certificationStatusKey(v string) string {
	return store.DimensionKey(store.TypeCertification, "status", v)
}

func partnerCertificationsKey(partnerID string) string {
	return store.ChildKey(store.TypePartner, partnerID, "certifications")
}

func encodeCertification(c *domain.Certification) store.FieldMap {
	fm := store.NewFieldMap()
	fm.SetString("id", c.ID)
	fm.SetString("partner_id", c.PartnerID)
	fm.SetString("name", c.Name)
	fm.SetString("level", string(c.Level))
	fm.SetString("status", string(c.Status))
	fm.SetFloat("score", c.Score)
	fm.SetTime("earned_at", c.EarnedAt)
	fm.SetTime("expires_at", c.ExpiresAt)
	fm.SetTime("created_at", c.CreatedAt)
	fm.SetTime("updated_at", c.UpdatedAt)
	return fm
}

func decodeCertification(fields map[string]string) (*domain.Certification, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	c := &domain.Certification{
		ID:        d.String("id"),
		PartnerID: d.String("partner_id"),
		Name:      d.String("name"),
		Level:     domain.CertificationLevel(d.String("level")),
		Status:    domain.CertificationStatus(d.String("status")),
		Score:     d.Float("score"),
		EarnedAt:  d.Time("earned_at"),
		ExpiresAt: d.Time("expires_at"),
		CreatedAt: d.Time("created_at"),
		UpdatedAt: d.Time("updated_at"),
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("certification %s: %w", c.ID, err)
	}
	return c, nil
}

func certificationDeltas(old, c *domain.Certification) []IndexDelta {
	var oldStatus string
	if old != nil {
		oldStatus = string(old.Status)
	}
	var diff indexDiff
	diff.Membership(certificationStatusKey, oldStatus, string(c.Status), c.ID)
	diff.Ordered(store.AllKey(store.TypeCertification), c.ID, float64(c.CreatedAt.UnixMilli()))
	if old == nil {
		diff.Add(partnerCertificationsKey(c.PartnerID), c.ID)
	}
	return diff.deltas
}

func (r *CertificationRepo) CreateCertification(ctx context.Context, c *domain.Certification) error {
	if err := validID(store.TypeCertification, c.ID); err != nil {
		return err
	}
	if c.PartnerID == "" {
		return errors.New("certification partner_id is required")
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = domain.CertificationStatusInProgress
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCertification, c.ID), encodeCertification(c))
	diff := indexDiff{deltas: certificationDeltas(nil, c)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create certification %s: %w", c.ID, err)
	}
	if err := store.CheckBatch(store.TypeCertification, c.ID, res); err != nil {
		r.logger.Error("certification create left indexes inconsistent", zap.String("certification_id", c.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *CertificationRepo) GetCertificationByID(ctx context.Context, id string) (*domain.Certification, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeCertification, id))
	if err != nil {
		return nil, fmt.Errorf("get certification %s: %w", id, err)
	}
	c, err := decodeCertification(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("certification %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// UpdateCertificationStatus moves a certification through its lifecycle.
// Earning stamps EarnedAt and a score when one is supplied.
func (r *CertificationRepo) UpdateCertificationStatus(ctx context.Context, id string, status domain.CertificationStatus, score float64) (*domain.Certification, error) {
	old, err := r.GetCertificationByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update certification %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	next.Status = status
	next.UpdatedAt = time.Now()
	if status == domain.CertificationStatusEarned {
		if next.EarnedAt.IsZero() {
			next.EarnedAt = next.UpdatedAt
		}
		if score > 0 {
			next.Score = score
		}
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCertification, id), encodeCertification(&next))
	diff := indexDiff{deltas: certificationDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update certification %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeCertification, id, res); err != nil {
		r.logger.Error("certification update left indexes inconsistent", zap.String("certification_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

func (r *CertificationRepo) DeleteCertification(ctx context.Context, id string) error {
	old, err := r.GetCertificationByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete certification %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	if old.Status != "" {
		diff.Remove(certificationStatusKey(string(old.Status)), id)
	}
	diff.RemoveOrdered(store.AllKey(store.TypeCertification), id)
	diff.Remove(partnerCertificationsKey(old.PartnerID), id)

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeCertification, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete certification %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeCertification, id, res); err != nil {
		r.logger.Error("certification delete left orphaned index entries", zap.String("certification_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *CertificationRepo) ListCertificationsByStatusPage(ctx context.Context, status domain.CertificationStatus, cursor string, limit int64) (domain.Page[*domain.Certification], error) {
	raw, err := store.PaginateMembers(ctx, r.store, certificationStatusKey(string(status)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Certification]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCertificationByID)
}

func (r *CertificationRepo) ListCertificationsByPartner(ctx context.Context, partnerID string, limit int64) ([]*domain.Certification, error) {
	ids, err := r.store.SMembers(ctx, partnerCertificationsKey(partnerID))
	if err != nil {
		return nil, fmt.Errorf("list certifications for partner %s: %w", partnerID, err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetCertificationByID)
}

func (r *CertificationRepo) ListAllCertifications(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Certification], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AllKey(store.TypeCertification), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Certification]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCertificationByID)
}
