package store

import (
	"context"
	"fmt"
	"strconv"
)

const (
	// DefaultPageSize applies when a caller passes a non-positive limit.
	DefaultPageSize = 20
	// MaxPageSize bounds the cost of a single listing round trip.
	MaxPageSize = 100
)

// ClampLimit normalizes a requested page size into [1, MaxPageSize].
func ClampLimit(limit int64) int64 {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// IDPage is one page of raw identifiers out of an index, before the ids
// are resolved to entities. HasMore is computed from the raw page, so
// callers must not infer end-of-data from a short resolved page: stale
// identifiers are dropped during resolution and can shrink it.
type IDPage struct {
	IDs        []string
	NextCursor string
	HasMore    bool
	// Total is the index cardinality where it is cheap to read (ordered
	// indexes); zero for membership scans.
	Total int64
}

// PaginateOrdered pages a score-ordered index by descending score. The
// cursor is a numeric offset into the ordering; empty starts at the top.
func PaginateOrdered(ctx context.Context, s Store, key, cursor string, limit int64) (IDPage, error) {
	limit = ClampLimit(limit)
	offset, err := parseOffset(cursor)
	if err != nil {
		return IDPage{}, err
	}

	ids, err := s.ZRevRange(ctx, key, offset, offset+limit-1)
	if err != nil {
		return IDPage{}, fmt.Errorf("range %s: %w", key, err)
	}
	total, err := s.ZCard(ctx, key)
	if err != nil {
		return IDPage{}, fmt.Errorf("card %s: %w", key, err)
	}

	page := IDPage{IDs: ids, Total: total}
	if int64(len(ids)) == limit {
		page.HasMore = true
		page.NextCursor = strconv.FormatInt(offset+limit, 10)
	}
	return page, nil
}

// PaginateMembers pages an unordered membership index with the store's
// scan cursor. The cursor is opaque; the scan is over when the store hands
// back its initial sentinel, surfaced here as an empty NextCursor.
func PaginateMembers(ctx context.Context, s Store, key, cursor string, limit int64) (IDPage, error) {
	limit = ClampLimit(limit)
	scanCursor, err := parseScanCursor(cursor)
	if err != nil {
		return IDPage{}, err
	}

	ids, next, err := s.SScan(ctx, key, scanCursor, limit)
	if err != nil {
		return IDPage{}, fmt.Errorf("scan %s: %w", key, err)
	}

	page := IDPage{IDs: ids}
	if next != 0 {
		page.HasMore = true
		page.NextCursor = strconv.FormatUint(next, 10)
	}
	return page, nil
}

func parseOffset(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	offset, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("invalid page cursor %q", cursor)
	}
	return offset, nil
}

func parseScanCursor(cursor string) (uint64, error) {
	if cursor == "" {
		return 0, nil
	}
	c, err := strconv.ParseUint(cursor, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid scan cursor %q", cursor)
	}
	return c, nil
}
