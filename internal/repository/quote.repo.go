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

// QuoteRepo persists quote revisions. Quotes index by status, globally by
// creation order, per partner by creation order, and per deal by version
// number so the newest revision ranks first.
type QuoteRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewQuoteRepo(s store.Store, logger *zap.Logger) *QuoteRepo {
	return &QuoteRepo{store: s, logger: logger}
}

func quoteStatusKey(v string) string {
	return store.DimensionKey(store.TypeQuote, "status", v)
}

func partnerQuotesKey(partnerID string) string {
	return store.ChildKey(store.TypePartner, partnerID, "quotes")
}

func encodeQuote(q *domain.Quote) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", q.ID)
	fm.SetString("deal_id", q.DealID)
	fm.SetString("partner_id", q.PartnerID)
	fm.SetString("status", string(q.Status))
	fm.SetInt("version", q.Version)
	fm.SetString("currency", q.Currency)
	fm.SetFloat("total", q.Total)
	if err := fm.SetJSON("line_items", q.LineItems); err != nil {
		return nil, err
	}
	fm.SetTime("created_at", q.CreatedAt)
	fm.SetTime("updated_at", q.UpdatedAt)
	return fm, nil
}

func decodeQuote(fields map[string]string) (*domain.Quote, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	q := &domain.Quote{
		ID:        d.String("id"),
		DealID:    d.String("deal_id"),
		PartnerID: d.String("partner_id"),
		Status:    domain.QuoteStatus(d.String("status")),
		Version:   d.Int("version"),
		Currency:  d.String("currency"),
		Total:     d.Float("total"),
		CreatedAt: d.Time("created_at"),
		UpdatedAt: d.Time("updated_at"),
	}
	d.JSON("line_items", &q.LineItems)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("quote %s: %w", q.ID, err)
	}
	return q, nil
}

func quoteDeltas(old, q *domain.Quote) []IndexDelta {
	var oldStatus string
	if old != nil {
		oldStatus = string(old.Status)
	}
	var diff indexDiff
	diff.Membership(quoteStatusKey, oldStatus, string(q.Status), q.ID)
	diff.Ordered(store.AllKey(store.TypeQuote), q.ID, float64(q.CreatedAt.UnixMilli()))
	diff.Ordered(partnerQuotesKey(q.PartnerID), q.ID, float64(q.CreatedAt.UnixMilli()))
	diff.Ordered(dealQuotesKey(q.DealID), q.ID, float64(q.Version))
	return diff.deltas
}

// CreateQuote writes a new revision. A zero Version is assigned the next
// number in the deal's revision index; the read-then-write is not guarded,
// same as every read-modify-write in this layer.
func (r *QuoteRepo) CreateQuote(ctx context.Context, q *domain.Quote) error {
	if err := validID(store.TypeQuote, q.ID); err != nil {
		return err
	}
	if q.DealID == "" || q.PartnerID == "" {
		return errors.New("quote deal_id and partner_id are required")
	}
	if q.Version == 0 {
		n, err := r.store.ZCard(ctx, dealQuotesKey(q.DealID))
		if err != nil {
			return fmt.Errorf("next quote version for deal %s: %w", q.DealID, err)
		}
		q.Version = n + 1
	}
	now := time.Now()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	fm, err := encodeQuote(q)
	if err != nil {
		return err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeQuote, q.ID), fm)
	diff := indexDiff{deltas: quoteDeltas(nil, q)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create quote %s: %w", q.ID, err)
	}
	if err := store.CheckBatch(store.TypeQuote, q.ID, res); err != nil {
		r.logger.Error("quote create left indexes inconsistent", zap.String("quote_id", q.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *QuoteRepo) GetQuoteByID(ctx context.Context, id string) (*domain.Quote, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeQuote, id))
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", id, err)
	}
	q, err := decodeQuote(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("quote %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return q, nil
}

// UpdateQuoteStatus moves a quote between statuses; revisions are
// otherwise immutable, a change means a new version.
func (r *QuoteRepo) UpdateQuoteStatus(ctx context.Context, id string, status domain.QuoteStatus) (*domain.Quote, error) {
	old, err := r.GetQuoteByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update quote %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	next.Status = status
	next.UpdatedAt = time.Now()

	fm, err := encodeQuote(&next)
	if err != nil {
		return nil, err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeQuote, id), fm)
	diff := indexDiff{deltas: quoteDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update quote %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeQuote, id, res); err != nil {
		r.logger.Error("quote update left indexes inconsistent", zap.String("quote_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

func (r *QuoteRepo) DeleteQuote(ctx context.Context, id string) error {
	old, err := r.GetQuoteByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete quote %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	if old.Status != "" {
		diff.Remove(quoteStatusKey(string(old.Status)), id)
	}
	diff.RemoveOrdered(store.AllKey(store.TypeQuote), id)
	diff.RemoveOrdered(partnerQuotesKey(old.PartnerID), id)
	diff.RemoveOrdered(dealQuotesKey(old.DealID), id)

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeQuote, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete quote %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeQuote, id, res); err != nil {
		r.logger.Error("quote delete left orphaned index entries", zap.String("quote_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ListQuoteVersions pages a deal's revisions, newest version first.
func (r *QuoteRepo) ListQuoteVersions(ctx context.Context, dealID, cursor string, limit int64) (domain.Page[*domain.Quote], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, dealQuotesKey(dealID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Quote]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetQuoteByID)
}

// GetLatestQuote returns the highest-version revision for a deal.
func (r *QuoteRepo) GetLatestQuote(ctx context.Context, dealID string) (*domain.Quote, error) {
	ids, err := r.store.ZRevRange(ctx, dealQuotesKey(dealID), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("latest quote for deal %s: %w", dealID, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("deal %s has no quotes: %w", dealID, domain.ErrNotFound)
	}
	return r.GetQuoteByID(ctx, ids[0])
}

func (r *QuoteRepo) ListQuotesByStatusPage(ctx context.Context, status domain.QuoteStatus, cursor string, limit int64) (domain.Page[*domain.Quote], error) {
	raw, err := store.PaginateMembers(ctx, r.store, quoteStatusKey(string(status)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Quote]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetQuoteByID)
}

func (r *QuoteRepo) ListQuotesByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.Quote], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, partnerQuotesKey(partnerID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Quote]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetQuoteByID)
}
