package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateOrderedWalksAllPages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const n, limit = 25, 10
	for i := 0; i < n; i++ {
		require.NoError(t, s.ZAdd(ctx, "idx", fmt.Sprintf("id-%02d", i), float64(i)))
	}

	var (
		collected []string
		cursor    string
		pages     int
	)
	for {
		page, err := PaginateOrdered(ctx, s, "idx", cursor, limit)
		require.NoError(t, err)
		pages++
		collected = append(collected, page.IDs...)
		assert.Equal(t, int64(n), page.Total)
		if !page.HasMore {
			assert.Empty(t, page.NextCursor)
			break
		}
		require.NotEmpty(t, page.NextCursor)
		cursor = page.NextCursor
	}

	// ceil(25/10) pages, each id exactly once, descending score order.
	assert.Equal(t, 3, pages)
	require.Len(t, collected, n)
	assert.Equal(t, "id-24", collected[0])
	assert.Equal(t, "id-00", collected[n-1])
}

func TestPaginateOrderedExactMultipleEndsWithEmptyPage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for i := 0; i < 20; i++ {
		require.NoError(t, s.ZAdd(ctx, "idx", fmt.Sprintf("id-%02d", i), float64(i)))
	}

	page, err := PaginateOrdered(ctx, s, "idx", "", 10)
	require.NoError(t, err)
	require.True(t, page.HasMore, "a full raw page cannot prove the end")

	page, err = PaginateOrdered(ctx, s, "idx", page.NextCursor, 10)
	require.NoError(t, err)
	require.True(t, page.HasMore)

	page, err = PaginateOrdered(ctx, s, "idx", page.NextCursor, 10)
	require.NoError(t, err)
	assert.Empty(t, page.IDs)
	assert.False(t, page.HasMore)
}

func TestPaginateOrderedRejectsBadCursor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := PaginateOrdered(ctx, s, "idx", "not-a-number", 10)
	require.Error(t, err)
	_, err = PaginateOrdered(ctx, s, "idx", "-3", 10)
	require.Error(t, err)
}

func TestPaginateMembersTerminates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const n, limit = 23, 5
	for i := 0; i < n; i++ {
		require.NoError(t, s.SAdd(ctx, "bucket", fmt.Sprintf("id-%02d", i)))
	}

	seen := make(map[string]struct{})
	var cursor string
	for rounds := 0; ; rounds++ {
		require.Less(t, rounds, n+1, "scan must terminate")
		page, err := PaginateMembers(ctx, s, "bucket", cursor, limit)
		require.NoError(t, err)
		for _, id := range page.IDs {
			seen[id] = struct{}{}
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, n, "every member surfaced at least once")
}

func TestPaginateMembersEmptySet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	page, err := PaginateMembers(ctx, s, "missing", "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.IDs)
	assert.False(t, page.HasMore)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, int64(DefaultPageSize), ClampLimit(0))
	assert.Equal(t, int64(DefaultPageSize), ClampLimit(-5))
	assert.Equal(t, int64(7), ClampLimit(7))
	assert.Equal(t, int64(MaxPageSize), ClampLimit(10_000))
}
