package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

func testProgress(id string) *domain.TrainingProgress {
	return &domain.TrainingProgress{
		ID:        id,
		CourseID:  "CRS_01",
		UserID:    "PUSR_01",
		PartnerID: "PTN_01",
	}
}

func TestStartProgressIsIdempotentPerPair(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewProgressRepo(ms, zap.NewNop())

	first, err := repo.StartProgress(ctx, testProgress("PRG_01"))
	require.NoError(t, err)
	assert.Equal(t, "PRG_01", first.ID)

	// Same (course, user) pair resolves to the existing record; the
	// candidate id is discarded.
	again, err := repo.StartProgress(ctx, testProgress("PRG_02"))
	require.NoError(t, err)
	assert.Equal(t, "PRG_01", again.ID)

	enrolled, err := ms.SMembers(ctx, courseProgressKey("CRS_01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"PRG_01"}, enrolled)

	mine, err := ms.SMembers(ctx, userProgressKey("PUSR_01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"PRG_01"}, mine)

	// A different user on the same course is a new record.
	other := testProgress("PRG_03")
	other.UserID = "PUSR_02"
	started, err := repo.StartProgress(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "PRG_03", started.ID)

	n, err := ms.SCard(ctx, courseProgressKey("CRS_01"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCompleteModuleTracksPercentAndCompletion(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewProgressRepo(ms, zap.NewNop())

	_, err := repo.StartProgress(ctx, testProgress("PRG_01"))
	require.NoError(t, err)

	p, err := repo.CompleteModule(ctx, "PRG_01", "intro", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, p.CompletedModules)
	assert.InDelta(t, 50, p.PercentComplete, 0.001)
	assert.False(t, p.Completed)
	assert.True(t, p.CompletedAt.IsZero())

	// Repeating a module does not double-count it.
	p, err = repo.CompleteModule(ctx, "PRG_01", "intro", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"intro"}, p.CompletedModules)
	assert.InDelta(t, 50, p.PercentComplete, 0.001)

	done, err := ms.SIsMember(ctx, courseCompletedKey("CRS_01"), "PRG_01")
	require.NoError(t, err)
	assert.False(t, done)

	p, err = repo.CompleteModule(ctx, "PRG_01", "advanced", 2)
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.InDelta(t, 100, p.PercentComplete, 0.001)
	assert.False(t, p.CompletedAt.IsZero())

	done, err = ms.SIsMember(ctx, courseCompletedKey("CRS_01"), "PRG_01")
	require.NoError(t, err)
	assert.True(t, done)

	// Persisted state agrees with the returned record.
	got, err := repo.GetProgress(ctx, "CRS_01", "PUSR_01")
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.ElementsMatch(t, []string{"intro", "advanced"}, got.CompletedModules)
}

func TestCompleteModuleMissingRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewProgressRepo(store.NewMemoryStore(), zap.NewNop())

	_, err := repo.CompleteModule(ctx, "PRG_404", "intro", 2)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestDeleteProgressDropsPairLookup(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewProgressRepo(ms, zap.NewNop())

	_, err := repo.StartProgress(ctx, testProgress("PRG_01"))
	require.NoError(t, err)
	_, err = repo.CompleteModule(ctx, "PRG_01", "intro", 1)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteProgress(ctx, "PRG_01"))

	_, err = repo.GetProgress(ctx, "CRS_01", "PUSR_01")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, key := range []string{courseProgressKey("CRS_01"), courseCompletedKey("CRS_01"), userProgressKey("PUSR_01")} {
		ok, err := ms.SIsMember(ctx, key, "PRG_01")
		require.NoError(t, err)
		assert.False(t, ok, "still listed in %s", key)
	}

	// The pair is free again.
	fresh, err := repo.StartProgress(ctx, testProgress("PRG_05"))
	require.NoError(t, err)
	assert.Equal(t, "PRG_05", fresh.ID)
}
