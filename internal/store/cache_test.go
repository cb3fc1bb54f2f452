package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rollup struct {
	Total int64 `json:"total"`
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := NewCache(s, zap.NewNop())

	computes := 0
	compute := func(context.Context) (rollup, error) {
		computes++
		return rollup{Total: int64(computes)}, nil
	}

	v, err := GetOrCompute(ctx, c, "overview", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Total)

	v, err = GetOrCompute(ctx, c, "overview", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Total, "second read served from cache")
	assert.Equal(t, 1, computes)
}

func TestGetOrComputeRecomputesAfterTTL(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := NewCache(s, zap.NewNop())

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	computes := 0
	compute := func(context.Context) (rollup, error) {
		computes++
		return rollup{Total: int64(computes)}, nil
	}

	_, err := GetOrCompute(ctx, c, "overview", time.Minute, compute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	v, err := GetOrCompute(ctx, c, "overview", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Total, "expired entry recomputed")
}

func TestInvalidateForcesRecompute(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := NewCache(s, zap.NewNop())

	computes := 0
	compute := func(context.Context) (rollup, error) {
		computes++
		return rollup{Total: int64(computes)}, nil
	}

	_, err := GetOrCompute(ctx, c, "overview", time.Hour, compute)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, "overview"))

	v, err := GetOrCompute(ctx, c, "overview", time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Total)
}

func TestInvalidateByPrefixSweepsFamily(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := NewCache(s, zap.NewNop())

	require.NoError(t, s.SetEX(ctx, CacheKey("analytics:course:CRS_01"), "{}", 0))
	require.NoError(t, s.SetEX(ctx, CacheKey("analytics:course:CRS_02"), "{}", 0))
	require.NoError(t, s.SetEX(ctx, CacheKey("analytics:overview"), "{}", 0))

	require.NoError(t, c.InvalidateByPrefix(ctx, "analytics:course:"))

	_, err := s.Get(ctx, CacheKey("analytics:course:CRS_01"))
	assert.ErrorIs(t, err, ErrNoValue)
	_, err = s.Get(ctx, CacheKey("analytics:course:CRS_02"))
	assert.ErrorIs(t, err, ErrNoValue)
	_, err = s.Get(ctx, CacheKey("analytics:overview"))
	assert.NoError(t, err, "unrelated entries survive the sweep")
}

func TestGetOrComputeUndecodableEntryIsAMiss(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := NewCache(s, zap.NewNop())

	require.NoError(t, s.SetEX(ctx, CacheKey("overview"), "not-json", time.Hour))

	v, err := GetOrCompute(ctx, c, "overview", time.Hour, func(context.Context) (rollup, error) {
		return rollup{Total: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Total)
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := NewCache(s, zap.NewNop())

	boom := errors.New("index unavailable")
	_, err := GetOrCompute(ctx, c, "overview", time.Hour, func(context.Context) (rollup, error) {
		return rollup{}, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Get(ctx, CacheKey("overview"))
	assert.ErrorIs(t, err, ErrNoValue, "failed compute caches nothing")
}
