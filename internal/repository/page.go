package repository

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

// staleRefs counts index entries that resolved to a missing primary
// record. A climbing count means index drift an operator should look at.
var staleRefs atomic.Int64

// StaleReferenceCount reports how many stale index references listings
// have dropped since process start.
func StaleReferenceCount() int64 {
	return staleRefs.Load()
}

// resolvePage turns a page of raw identifiers into a page of entities.
// Identifiers whose record is gone (deleted after being indexed) are
// dropped, not surfaced: the page may come back short while HasMore is
// still true.
func resolvePage[T any](ctx context.Context, raw store.IDPage, logger *zap.Logger, load func(context.Context, string) (T, error)) (domain.Page[T], error) {
	page := domain.Page[T]{
		Items:      make([]T, 0, len(raw.IDs)),
		NextCursor: raw.NextCursor,
		HasMore:    raw.HasMore,
		Total:      raw.Total,
	}
	for _, id := range raw.IDs {
		item, err := load(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				staleRefs.Add(1)
				logger.Debug("dropping stale index reference", zap.String("id", id))
				continue
			}
			return domain.Page[T]{}, err
		}
		page.Items = append(page.Items, item)
	}
	return page, nil
}

// resolveAll resolves a bounded, non-paginated id listing the same way.
func resolveAll[T any](ctx context.Context, ids []string, limit int64, logger *zap.Logger, load func(context.Context, string) (T, error)) ([]T, error) {
	limit = store.ClampLimit(limit)
	items := make([]T, 0, min(int64(len(ids)), limit))
	for _, id := range ids {
		if int64(len(items)) >= limit {
			break
		}
		item, err := load(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				staleRefs.Add(1)
				logger.Debug("dropping stale index reference", zap.String("id", id))
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
