package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

func seedCourse(t *testing.T, uc *PortalUsecase, published bool) *domain.TrainingCourse {
	t.Helper()
	c := &domain.TrainingCourse{
		Title:    "Selling the Platform",
		Category: "sales",
		Modules: []domain.CourseModule{
			{Code: "intro", Title: "Introduction", DurationMin: 15},
			{Code: "pricing", Title: "Pricing", DurationMin: 30},
		},
		Published: published,
	}
	require.NoError(t, uc.CreateCourse(context.Background(), SystemActor(), c))
	return c
}

func seedPartnerUser(t *testing.T, uc *PortalUsecase, partnerID string) *domain.PartnerUser {
	t.Helper()
	u := &domain.PartnerUser{
		PartnerID: partnerID,
		Email:     "sam@acme.io",
		FullName:  "Sam Reyes",
		Role:      domain.PartnerUserRoleUser,
		IsActive:  true,
	}
	require.NoError(t, uc.CreatePartnerUser(context.Background(), SystemActor(), u))
	return u
}

func TestEnrollUserRequiresPublishedCourse(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)
	u := seedPartnerUser(t, uc, p.ID)
	draft := seedCourse(t, uc, false)

	_, err := uc.EnrollUser(ctx, SystemActor(), draft.ID, u.ID)
	assert.Error(t, err)
}

func TestEnrollUserIsIdempotentAndInheritsPartner(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)
	u := seedPartnerUser(t, uc, p.ID)
	course := seedCourse(t, uc, true)

	first, err := uc.EnrollUser(ctx, SystemActor(), course.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, first.PartnerID)

	again, err := uc.EnrollUser(ctx, SystemActor(), course.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestCompleteModuleValidatesAgainstCourseModules(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)
	u := seedPartnerUser(t, uc, p.ID)
	course := seedCourse(t, uc, true)

	_, err := uc.EnrollUser(ctx, SystemActor(), course.ID, u.ID)
	require.NoError(t, err)

	_, err = uc.CompleteModule(ctx, SystemActor(), course.ID, u.ID, "nonsense")
	assert.Error(t, err)

	prog, err := uc.CompleteModule(ctx, SystemActor(), course.ID, u.ID, "intro")
	require.NoError(t, err)
	assert.InDelta(t, 50, prog.PercentComplete, 0.001)
	assert.False(t, prog.Completed)

	prog, err = uc.CompleteModule(ctx, SystemActor(), course.ID, u.ID, "pricing")
	require.NoError(t, err)
	assert.True(t, prog.Completed)

	m, err := uc.GetCourseCompletion(ctx, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Enrolled)
	assert.EqualValues(t, 1, m.Completed)
	assert.InDelta(t, 1, m.CompletionRate, 0.001)
}

func TestCourseCompletionCacheDropsOnProgress(t *testing.T) {
	ctx := context.Background()
	uc, ms := newTestPortal(t)
	p := seedPartner(t, uc)
	u := seedPartnerUser(t, uc, p.ID)
	course := seedCourse(t, uc, true)

	_, err := uc.EnrollUser(ctx, SystemActor(), course.ID, u.ID)
	require.NoError(t, err)

	m, err := uc.GetCourseCompletion(ctx, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, m.Completed)

	_, err = ms.Get(ctx, store.CacheKey(courseCacheName(course.ID)))
	require.NoError(t, err, "rollup should be cached after a read")

	_, err = uc.CompleteModule(ctx, SystemActor(), course.ID, u.ID, "intro")
	require.NoError(t, err)
	_, err = uc.CompleteModule(ctx, SystemActor(), course.ID, u.ID, "pricing")
	require.NoError(t, err)

	m, err = uc.GetCourseCompletion(ctx, course.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Completed)
}

func TestDeleteCourseSweepsPerCourseCaches(t *testing.T) {
	ctx := context.Background()
	uc, ms := newTestPortal(t)
	course := seedCourse(t, uc, true)

	_, err := uc.GetCourseCompletion(ctx, course.ID)
	require.NoError(t, err)

	require.NoError(t, uc.DeleteCourse(ctx, SystemActor(), course.ID))

	_, err = ms.Get(ctx, store.CacheKey(courseCacheName(course.ID)))
	assert.ErrorIs(t, err, store.ErrNoValue)

	_, err = uc.GetCourseByID(ctx, course.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
