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

// CommissionRepo persists commission payouts, indexed by status, by
// calendar period, globally by creation order, and per partner.
type CommissionRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewCommissionRepo(s store.Store, logger *zap.Logger) *CommissionRepo {
	return &CommissionRepo{store: s, logger: logger}
}

func commissionStatusKey(v string) string {
	return store.DimensionKey(store.TypeCommission, "status", v)
}

func commissionPeriodKey(v string) string {
	return store.DimensionKey(store.TypeCommission, "period", v)
}

func partnerCommissionsKey(partnerID string) string {
	return store.ChildKey(store.TypePartner, partnerID, "commissions")
}

func encodeCommission(c *domain.Commission) store.FieldMap {
	fm := store.NewFieldMap()
	fm.SetString("id", c.ID)
	fm.SetString("partner_id", c.PartnerID)
	fm.SetString("deal_id", c.DealID)
	fm.SetFloat("amount", c.Amount)
	fm.SetString("currency", c.Currency)
	fm.SetString("status", string(c.Status))
	fm.SetString("period", c.Period)
	fm.SetTime("paid_at", c.PaidAt)
	fm.SetTime("created_at", c.CreatedAt)
	fm.SetTime("updated_at", c.UpdatedAt)
	return fm
}

func decodeCommission(fields map[string]string) (*domain.Commission, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	c := &domain.Commission{
		ID:        d.String("id"),
		PartnerID: d.String("partner_id"),
		DealID:    d.String("deal_id"),
		Amount:    d.Float("amount"),
		Currency:  d.String("currency"),
		Status:    domain.CommissionStatus(d.String("status")),
		Period:    d.String("period"),
		PaidAt:    d.Time("paid_at"),
		CreatedAt: d.Time("created_at"),
		UpdatedAt: d.Time("updated_at"),
	}
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("commission %s: %w", c.ID, err)
	}
	return c, nil
}

func commissionDeltas(old, c *domain.Commission) []IndexDelta {
	var oldStatus, oldPeriod string
	if old != nil {
		oldStatus = string(old.Status)
		oldPeriod = old.Period
	}
	var diff indexDiff
	diff.Membership(commissionStatusKey, oldStatus, string(c.Status), c.ID)
	diff.Membership(commissionPeriodKey, oldPeriod, c.Period, c.ID)
	diff.Ordered(store.AllKey(store.TypeCommission), c.ID, float64(c.CreatedAt.UnixMilli()))
	diff.Ordered(partnerCommissionsKey(c.PartnerID), c.ID, float64(c.CreatedAt.UnixMilli()))
	return diff.deltas
}

func (r *CommissionRepo) CreateCommission(ctx context.Context, c *domain.Commission) error {
	if err := validID(store.TypeCommission, c.ID); err != nil {
		return err
	}
	if c.PartnerID == "" {
		return errors.New("commission partner_id is required")
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = domain.CommissionStatusPending
	}
	if c.Period == "" {
		c.Period = c.CreatedAt.UTC().Format("2006-01")
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCommission, c.ID), encodeCommission(c))
	diff := indexDiff{deltas: commissionDeltas(nil, c)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create commission %s: %w", c.ID, err)
	}
	if err := store.CheckBatch(store.TypeCommission, c.ID, res); err != nil {
		r.logger.Error("commission create left indexes inconsistent", zap.String("commission_id", c.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *CommissionRepo) GetCommissionByID(ctx context.Context, id string) (*domain.Commission, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeCommission, id))
	if err != nil {
		return nil, fmt.Errorf("get commission %s: %w", id, err)
	}
	c, err := decodeCommission(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("commission %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// UpdateCommissionStatus moves a payout through its lifecycle; entering
// the paid status stamps PaidAt.
func (r *CommissionRepo) UpdateCommissionStatus(ctx context.Context, id string, status domain.CommissionStatus) (*domain.Commission, error) {
	old, err := r.GetCommissionByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update commission %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	next.Status = status
	next.UpdatedAt = time.Now()
	if status == domain.CommissionStatusPaid && next.PaidAt.IsZero() {
		next.PaidAt = next.UpdatedAt
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCommission, id), encodeCommission(&next))
	diff := indexDiff{deltas: commissionDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update commission %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeCommission, id, res); err != nil {
		r.logger.Error("commission update left indexes inconsistent", zap.String("commission_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

func (r *CommissionRepo) DeleteCommission(ctx context.Context, id string) error {
	old, err := r.GetCommissionByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete commission %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	if old.Status != "" {
		diff.Remove(commissionStatusKey(string(old.Status)), id)
	}
	if old.Period != "" {
		diff.Remove(commissionPeriodKey(old.Period), id)
	}
	diff.RemoveOrdered(store.AllKey(store.TypeCommission), id)
	diff.RemoveOrdered(partnerCommissionsKey(old.PartnerID), id)

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeCommission, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete commission %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeCommission, id, res); err != nil {
		r.logger.Error("commission delete left orphaned index entries", zap.String("commission_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *CommissionRepo) ListCommissionsByStatusPage(ctx context.Context, status domain.CommissionStatus, cursor string, limit int64) (domain.Page[*domain.Commission], error) {
	raw, err := store.PaginateMembers(ctx, r.store, commissionStatusKey(string(status)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Commission]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCommissionByID)
}

// ListCommissionsByPeriod returns a whole calendar month, bounded; period
// rollups read every record of the month anyway.
func (r *CommissionRepo) ListCommissionsByPeriod(ctx context.Context, period string, limit int64) ([]*domain.Commission, error) {
	ids, err := r.store.SMembers(ctx, commissionPeriodKey(period))
	if err != nil {
		return nil, fmt.Errorf("list commissions for period %s: %w", period, err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetCommissionByID)
}

// ForEachCommissionInPeriod visits every commission in the period with no
// page clamp; rollups need the full membership. Stale references are
// dropped the same way listings drop them.
func (r *CommissionRepo) ForEachCommissionInPeriod(ctx context.Context, period string, fn func(*domain.Commission) error) error {
	ids, err := r.store.SMembers(ctx, commissionPeriodKey(period))
	if err != nil {
		return fmt.Errorf("walk commissions for period %s: %w", period, err)
	}
	for _, id := range ids {
		c, err := r.GetCommissionByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				staleRefs.Add(1)
				r.logger.Debug("dropping stale index reference", zap.String("id", id))
				continue
			}
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *CommissionRepo) ListCommissionsByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.Commission], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, partnerCommissionsKey(partnerID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Commission]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCommissionByID)
}

func (r *CommissionRepo) ListAllCommissions(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Commission], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AllKey(store.TypeCommission), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Commission]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCommissionByID)
}
