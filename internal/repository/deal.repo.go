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

// DealRepo persists deals. Every deal is indexed by status, by creation
// order globally, and in its owning partner's deals collection.
type DealRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewDealRepo(s store.Store, logger *zap.Logger) *DealRepo {
	return &DealRepo{store: s, logger: logger}
}

func dealStatusKey(v string) string {
	return store.DimensionKey(store.TypeDeal, "status", v)
}

func partnerDealsKey(partnerID string) string {
	return store.ChildKey(store.TypePartner, partnerID, "deals")
}

// dealQuotesKey is the per-deal quote revision index, scored by version.
// The deal owns it: deleting the deal drops it.
func dealQuotesKey(dealID string) string {
	return store.ChildKey(store.TypeDeal, dealID, "quotes")
}

func encodeDeal(d *domain.Deal) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", d.ID)
	fm.SetString("partner_id", d.PartnerID)
	fm.SetString("customer_name", d.CustomerName)
	fm.SetString("customer_email", d.CustomerEmail)
	fm.SetFloat("value", d.Value)
	fm.SetString("currency", d.Currency)
	fm.SetString("status", string(d.Status))
	if err := fm.SetJSON("tags", d.Tags); err != nil {
		return nil, err
	}
	fm.SetString("notes", d.Notes)
	fm.SetTime("created_at", d.CreatedAt)
	fm.SetTime("updated_at", d.UpdatedAt)
	return fm, nil
}

func decodeDeal(fields map[string]string) (*domain.Deal, error) {
	dec := store.NewDecoder(fields)
	if !dec.Exists("id") {
		return nil, domain.ErrNotFound
	}
	d := &domain.Deal{
		ID:            dec.String("id"),
		PartnerID:     dec.String("partner_id"),
		CustomerName:  dec.String("customer_name"),
		CustomerEmail: dec.String("customer_email"),
		Value:         dec.Float("value"),
		Currency:      dec.String("currency"),
		Status:        domain.DealStatus(dec.String("status")),
		Notes:         dec.String("notes"),
		CreatedAt:     dec.Time("created_at"),
		UpdatedAt:     dec.Time("updated_at"),
	}
	dec.JSON("tags", &d.Tags)
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("deal %s: %w", d.ID, err)
	}
	return d, nil
}

func dealDeltas(old, d *domain.Deal) []IndexDelta {
	var oldStatus string
	if old != nil {
		oldStatus = string(old.Status)
	}
	var diff indexDiff
	diff.Membership(dealStatusKey, oldStatus, string(d.Status), d.ID)
	diff.Ordered(store.AllKey(store.TypeDeal), d.ID, float64(d.CreatedAt.UnixMilli()))
	diff.Ordered(partnerDealsKey(d.PartnerID), d.ID, float64(d.CreatedAt.UnixMilli()))
	return diff.deltas
}

func (r *DealRepo) CreateDeal(ctx context.Context, d *domain.Deal) error {
	if err := validID(store.TypeDeal, d.ID); err != nil {
		return err
	}
	if d.PartnerID == "" {
		return errors.New("deal partner_id is required")
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	fm, err := encodeDeal(d)
	if err != nil {
		return err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeDeal, d.ID), fm)
	diff := indexDiff{deltas: dealDeltas(nil, d)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create deal %s: %w", d.ID, err)
	}
	if err := store.CheckBatch(store.TypeDeal, d.ID, res); err != nil {
		r.logger.Error("deal create left indexes inconsistent", zap.String("deal_id", d.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *DealRepo) GetDealByID(ctx context.Context, id string) (*domain.Deal, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeDeal, id))
	if err != nil {
		return nil, fmt.Errorf("get deal %s: %w", id, err)
	}
	d, err := decodeDeal(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("deal %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func (r *DealRepo) UpdateDeal(ctx context.Context, id string, upd domain.DealUpdate) (*domain.Deal, error) {
	old, err := r.GetDealByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update deal %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	if upd.CustomerName != nil {
		next.CustomerName = *upd.CustomerName
	}
	if upd.CustomerEmail != nil {
		next.CustomerEmail = *upd.CustomerEmail
	}
	if upd.Value != nil {
		next.Value = *upd.Value
	}
	if upd.Currency != nil {
		next.Currency = *upd.Currency
	}
	if upd.Status != nil {
		next.Status = *upd.Status
	}
	if upd.Tags != nil {
		next.Tags = *upd.Tags
	}
	if upd.Notes != nil {
		next.Notes = *upd.Notes
	}
	next.UpdatedAt = time.Now()

	fm, err := encodeDeal(&next)
	if err != nil {
		return nil, err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeDeal, id), fm)
	diff := indexDiff{deltas: dealDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update deal %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeDeal, id, res); err != nil {
		r.logger.Error("deal update left indexes inconsistent", zap.String("deal_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

// DeleteDeal removes the record, its status and ordering memberships, its
// slot in the owning partner's collection, and the quote revision index it
// owns.
func (r *DealRepo) DeleteDeal(ctx context.Context, id string) error {
	old, err := r.GetDealByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete deal %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	if old.Status != "" {
		diff.Remove(dealStatusKey(string(old.Status)), id)
	}
	diff.RemoveOrdered(store.AllKey(store.TypeDeal), id)
	diff.RemoveOrdered(partnerDealsKey(old.PartnerID), id)
	diff.Drop(dealQuotesKey(id))

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeDeal, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete deal %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeDeal, id, res); err != nil {
		r.logger.Error("deal delete left orphaned index entries", zap.String("deal_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *DealRepo) ListDealsByStatus(ctx context.Context, status domain.DealStatus, limit int64) ([]*domain.Deal, error) {
	ids, err := r.store.SMembers(ctx, dealStatusKey(string(status)))
	if err != nil {
		return nil, fmt.Errorf("list deals by status: %w", err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetDealByID)
}

func (r *DealRepo) ListDealsByStatusPage(ctx context.Context, status domain.DealStatus, cursor string, limit int64) (domain.Page[*domain.Deal], error) {
	raw, err := store.PaginateMembers(ctx, r.store, dealStatusKey(string(status)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Deal]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetDealByID)
}

// ListDealsByPartner pages one partner's deals, most recent first.
func (r *DealRepo) ListDealsByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.Deal], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, partnerDealsKey(partnerID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Deal]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetDealByID)
}

func (r *DealRepo) ListAllDeals(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Deal], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AllKey(store.TypeDeal), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Deal]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetDealByID)
}

func (r *DealRepo) CountDealsByStatus(ctx context.Context, status domain.DealStatus) (int64, error) {
	return r.store.SCard(ctx, dealStatusKey(string(status)))
}

func (r *DealRepo) CountDeals(ctx context.Context) (int64, error) {
	return r.store.ZCard(ctx, store.AllKey(store.TypeDeal))
}
