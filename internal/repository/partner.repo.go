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

// PartnerRepo persists partners and keeps their index memberships (status,
// tier, country, rating, creation order, email lookup) in step with every
// write.
type PartnerRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewPartnerRepo(s store.Store, logger *zap.Logger) *PartnerRepo {
	return &PartnerRepo{store: s, logger: logger}
}

func partnerStatusKey(v string) string {
	return store.DimensionKey(store.TypePartner, "status", v)
}

func partnerTierKey(v string) string {
	return store.DimensionKey(store.TypePartner, "tier", v)
}

func partnerCountryKey(v string) string {
	return store.DimensionKey(store.TypePartner, "country", v)
}

func partnerRatingKey() string {
	return store.OrderedKey(store.TypePartner, "rating")
}

func encodePartner(p *domain.Partner) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", p.ID)
	fm.SetString("name", p.Name)
	fm.SetString("contact_email", p.ContactEmail)
	fm.SetString("contact_phone", p.ContactPhone)
	fm.SetString("country", p.Country)
	fm.SetString("status", string(p.Status))
	fm.SetString("tier", string(p.Tier))
	fm.SetFloat("rating", p.Rating)
	fm.SetBool("is_api_enabled", p.APIEnabled)
	fm.SetInt("api_rate_limit", int64(p.APIRateLimit))
	if err := fm.SetJSON("allowed_ips", p.AllowedIPs); err != nil {
		return nil, err
	}
	if err := fm.SetJSON("metadata", p.Metadata); err != nil {
		return nil, err
	}
	fm.SetTime("created_at", p.CreatedAt)
	fm.SetTime("updated_at", p.UpdatedAt)
	return fm, nil
}

func decodePartner(fields map[string]string) (*domain.Partner, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	p := &domain.Partner{
		ID:           d.String("id"),
		Name:         d.String("name"),
		ContactEmail: d.String("contact_email"),
		ContactPhone: d.String("contact_phone"),
		Country:      d.String("country"),
		Status:       domain.PartnerStatus(d.String("status")),
		Tier:         domain.PartnerTier(d.String("tier")),
		Rating:       d.Float("rating"),
		APIEnabled:   d.Bool("is_api_enabled"),
		APIRateLimit: int(d.Int("api_rate_limit")),
		CreatedAt:    d.Time("created_at"),
		UpdatedAt:    d.Time("updated_at"),
	}
	d.JSON("allowed_ips", &p.AllowedIPs)
	d.JSON("metadata", &p.Metadata)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("partner %s: %w", p.ID, err)
	}
	return p, nil
}

// partnerDeltas computes the index mutations for a create (old nil) or
// update.
func partnerDeltas(old, p *domain.Partner) []IndexDelta {
	var oldStatus, oldTier, oldCountry, oldEmailKey string
	if old != nil {
		oldStatus = string(old.Status)
		oldTier = string(old.Tier)
		oldCountry = old.Country
		if old.ContactEmail != "" {
			oldEmailKey = store.EmailKey(store.TypePartner, old.ContactEmail)
		}
	}
	var newEmailKey string
	if p.ContactEmail != "" {
		newEmailKey = store.EmailKey(store.TypePartner, p.ContactEmail)
	}

	var diff indexDiff
	diff.Membership(partnerStatusKey, oldStatus, string(p.Status), p.ID)
	diff.Membership(partnerTierKey, oldTier, string(p.Tier), p.ID)
	diff.Membership(partnerCountryKey, oldCountry, p.Country, p.ID)
	diff.Lookup(oldEmailKey, newEmailKey, p.ID)
	diff.Ordered(store.AllKey(store.TypePartner), p.ID, float64(p.CreatedAt.UnixMilli()))
	diff.Ordered(partnerRatingKey(), p.ID, p.Rating)
	return diff.deltas
}

// CreatePartner writes the primary record and seeds every index in one
// batch. Re-creating the same id is an idempotent overwrite.
func (r *PartnerRepo) CreatePartner(ctx context.Context, p *domain.Partner) error {
	if err := validID(store.TypePartner, p.ID); err != nil {
		return err
	}
	if p.Name == "" {
		return errors.New("partner name is required")
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	fm, err := encodePartner(p)
	if err != nil {
		return err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypePartner, p.ID), fm)
	diff := indexDiff{deltas: partnerDeltas(nil, p)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create partner %s: %w", p.ID, err)
	}
	if err := store.CheckBatch(store.TypePartner, p.ID, res); err != nil {
		r.logger.Error("partner create left indexes inconsistent", zap.String("partner_id", p.ID), zap.Error(err))
		return err
	}
	return nil
}

// GetPartnerByID fetches one partner; a structurally empty record is
// ErrNotFound.
func (r *PartnerRepo) GetPartnerByID(ctx context.Context, id string) (*domain.Partner, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypePartner, id))
	if err != nil {
		return nil, fmt.Errorf("get partner %s: %w", id, err)
	}
	p, err := decodePartner(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("partner %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// GetPartnerByEmail resolves the normalized email lookup, then loads the
// record it points at.
func (r *PartnerRepo) GetPartnerByEmail(ctx context.Context, email string) (*domain.Partner, error) {
	id, err := r.store.Get(ctx, store.EmailKey(store.TypePartner, email))
	if err != nil {
		if errors.Is(err, store.ErrNoValue) {
			return nil, fmt.Errorf("partner email %s: %w", store.NormalizeEmail(email), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("partner email lookup: %w", err)
	}
	return r.GetPartnerByID(ctx, id)
}

// UpdatePartner applies a partial update, moving index memberships for
// every indexed field that changed. Updating a missing partner is
// ErrPreconditionFailed.
func (r *PartnerRepo) UpdatePartner(ctx context.Context, id string, upd domain.PartnerUpdate) (*domain.Partner, error) {
	old, err := r.GetPartnerByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update partner %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	if upd.Name != nil {
		next.Name = *upd.Name
	}
	if upd.ContactEmail != nil {
		next.ContactEmail = *upd.ContactEmail
	}
	if upd.ContactPhone != nil {
		next.ContactPhone = *upd.ContactPhone
	}
	if upd.Country != nil {
		next.Country = *upd.Country
	}
	if upd.Status != nil {
		next.Status = *upd.Status
	}
	if upd.Tier != nil {
		next.Tier = *upd.Tier
	}
	if upd.Rating != nil {
		next.Rating = *upd.Rating
	}
	if upd.APIEnabled != nil {
		next.APIEnabled = *upd.APIEnabled
	}
	if upd.APIRateLimit != nil {
		next.APIRateLimit = *upd.APIRateLimit
	}
	if upd.AllowedIPs != nil {
		next.AllowedIPs = *upd.AllowedIPs
	}
	if upd.Metadata != nil {
		next.Metadata = *upd.Metadata
	}
	next.UpdatedAt = time.Now()

	fm, err := encodePartner(&next)
	if err != nil {
		return nil, err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypePartner, id), fm)
	diff := indexDiff{deltas: partnerDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update partner %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypePartner, id, res); err != nil {
		r.logger.Error("partner update left indexes inconsistent", zap.String("partner_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

// DeletePartner removes the primary record and every index membership the
// partner holds, plus every owned child collection. The enumeration here
// is the deletion contract: miss one location and its identifiers orphan.
func (r *PartnerRepo) DeletePartner(ctx context.Context, id string) error {
	old, err := r.GetPartnerByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete partner %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	if old.Status != "" {
		diff.Remove(partnerStatusKey(string(old.Status)), id)
	}
	if old.Tier != "" {
		diff.Remove(partnerTierKey(string(old.Tier)), id)
	}
	if old.Country != "" {
		diff.Remove(partnerCountryKey(old.Country), id)
	}
	diff.RemoveOrdered(store.AllKey(store.TypePartner), id)
	diff.RemoveOrdered(partnerRatingKey(), id)
	if old.ContactEmail != "" {
		diff.Drop(store.EmailKey(store.TypePartner, old.ContactEmail))
	}
	// Owned child collections. The child records belong to their own
	// repositories; the partner owns only these pointer indexes.
	diff.Drop(
		store.ChildKey(store.TypePartner, id, "deals"),
		store.ChildKey(store.TypePartner, id, "quotes"),
		store.ChildKey(store.TypePartner, id, "documents"),
		store.ChildKey(store.TypePartner, id, "certifications"),
		store.ChildKey(store.TypePartner, id, "commissions"),
		store.ChildKey(store.TypePartner, id, "users"),
		store.ChildKey(store.TypePartner, id, "credentials"),
	)

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypePartner, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete partner %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypePartner, id, res); err != nil {
		r.logger.Error("partner delete left orphaned index entries", zap.String("partner_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ListPartnersByStatus is the bounded, non-paginated listing.
func (r *PartnerRepo) ListPartnersByStatus(ctx context.Context, status domain.PartnerStatus, limit int64) ([]*domain.Partner, error) {
	ids, err := r.store.SMembers(ctx, partnerStatusKey(string(status)))
	if err != nil {
		return nil, fmt.Errorf("list partners by status: %w", err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetPartnerByID)
}

// ListPartnersByStatusPage pages the same index with a scan cursor.
func (r *PartnerRepo) ListPartnersByStatusPage(ctx context.Context, status domain.PartnerStatus, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	raw, err := store.PaginateMembers(ctx, r.store, partnerStatusKey(string(status)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Partner]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetPartnerByID)
}

func (r *PartnerRepo) ListPartnersByTier(ctx context.Context, tier domain.PartnerTier, limit int64) ([]*domain.Partner, error) {
	ids, err := r.store.SMembers(ctx, partnerTierKey(string(tier)))
	if err != nil {
		return nil, fmt.Errorf("list partners by tier: %w", err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetPartnerByID)
}

func (r *PartnerRepo) ListPartnersByTierPage(ctx context.Context, tier domain.PartnerTier, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	raw, err := store.PaginateMembers(ctx, r.store, partnerTierKey(string(tier)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Partner]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetPartnerByID)
}

func (r *PartnerRepo) ListPartnersByCountry(ctx context.Context, country string, limit int64) ([]*domain.Partner, error) {
	ids, err := r.store.SMembers(ctx, partnerCountryKey(country))
	if err != nil {
		return nil, fmt.Errorf("list partners by country: %w", err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetPartnerByID)
}

func (r *PartnerRepo) ListPartnersByCountryPage(ctx context.Context, country, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	raw, err := store.PaginateMembers(ctx, r.store, partnerCountryKey(country), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Partner]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetPartnerByID)
}

// ListAllPartners pages every partner, most recently created first.
func (r *PartnerRepo) ListAllPartners(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AllKey(store.TypePartner), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Partner]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetPartnerByID)
}

// ListTopRatedPartners pages partners by descending rating.
func (r *PartnerRepo) ListTopRatedPartners(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, partnerRatingKey(), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Partner]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetPartnerByID)
}

// CountPartnersByStatus reads the raw bucket cardinality, for rollups.
func (r *PartnerRepo) CountPartnersByStatus(ctx context.Context, status domain.PartnerStatus) (int64, error) {
	return r.store.SCard(ctx, partnerStatusKey(string(status)))
}

func (r *PartnerRepo) CountPartnersByTier(ctx context.Context, tier domain.PartnerTier) (int64, error) {
	return r.store.SCard(ctx, partnerTierKey(string(tier)))
}

// CountPartners reads the all-partner index cardinality.
func (r *PartnerRepo) CountPartners(ctx context.Context) (int64, error) {
	return r.store.ZCard(ctx, store.AllKey(store.TypePartner))
}
