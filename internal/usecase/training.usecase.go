package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
	"partner-portal/pkg/id"
)

// ---------------- Courses ----------------

func (uc *PortalUsecase) CreateCourse(ctx context.Context, actor Actor, c *domain.TrainingCourse) error {
	if c.Title == "" {
		return errors.New("course title cannot be empty")
	}
	if len(c.Modules) == 0 {
		return errors.New("course needs at least one module")
	}
	if c.ID == "" {
		c.ID = id.New(id.PrefixCourse)
	}

	if err := uc.courseRepo.CreateCourse(ctx, c); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeCourse, c.ID, nil)
	return nil
}

func (uc *PortalUsecase) GetCourseByID(ctx context.Context, courseID string) (*domain.TrainingCourse, error) {
	if courseID == "" {
		return nil, errors.New("invalid course id")
	}
	return uc.courseRepo.GetCourseByID(ctx, courseID)
}

func (uc *PortalUsecase) UpdateCourse(ctx context.Context, actor Actor, c *domain.TrainingCourse) (*domain.TrainingCourse, error) {
	if c.ID == "" {
		return nil, errors.New("missing course id")
	}
	updated, err := uc.courseRepo.UpdateCourse(ctx, c)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionUpdated, store.TypeCourse, c.ID, nil)
	uc.invalidate(ctx, courseCacheName(c.ID))
	return updated, nil
}

func (uc *PortalUsecase) DeleteCourse(ctx context.Context, actor Actor, courseID string) error {
	if courseID == "" {
		return errors.New("invalid course id")
	}
	if err := uc.courseRepo.DeleteCourse(ctx, courseID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypeCourse, courseID, nil)
	// Per-course analytics keys are unbounded, sweep the family.
	if err := uc.cache.InvalidateByPrefix(ctx, cacheCoursePrefix); err != nil {
		uc.logger.Warn("course cache sweep failed", zap.Error(err))
	}
	return nil
}

func (uc *PortalUsecase) ListCoursesByCategory(ctx context.Context, category, cursor string, limit int64) (domain.Page[*domain.TrainingCourse], error) {
	if category == "" {
		return domain.Page[*domain.TrainingCourse]{}, errors.New("invalid course category")
	}
	return uc.courseRepo.ListCoursesByCategoryPage(ctx, category, cursor, limit)
}

func (uc *PortalUsecase) ListAllCourses(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.TrainingCourse], error) {
	return uc.courseRepo.ListAllCourses(ctx, cursor, limit)
}

// ---------------- Progress ----------------

// EnrollUser starts (or resumes) a user's progress through a course.
func (uc *PortalUsecase) EnrollUser(ctx context.Context, actor Actor, courseID, userID string) (*domain.TrainingProgress, error) {
	if courseID == "" || userID == "" {
		return nil, errors.New("course id and user id are required")
	}
	course, err := uc.courseRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, errors.New("course is not published")
	}
	user, err := uc.userRepo.GetPartnerUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &domain.TrainingProgress{
		ID:        id.New(id.PrefixProgress),
		CourseID:  courseID,
		UserID:    userID,
		PartnerID: user.PartnerID,
	}
	started, err := uc.progressRepo.StartProgress(ctx, p)
	if err != nil {
		return nil, err
	}
	if started.ID == p.ID {
		uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeProgress, started.ID, nil)
		uc.invalidate(ctx, courseCacheName(courseID))
	}
	return started, nil
}

func (uc *PortalUsecase) GetProgress(ctx context.Context, courseID, userID string) (*domain.TrainingProgress, error) {
	if courseID == "" || userID == "" {
		return nil, errors.New("course id and user id are required")
	}
	return uc.progressRepo.GetProgress(ctx, courseID, userID)
}

// CompleteModule marks one module done for the user's progress record and
// refreshes the per-course completion rollup.
func (uc *PortalUsecase) CompleteModule(ctx context.Context, actor Actor, courseID, userID, moduleCode string) (*domain.TrainingProgress, error) {
	if moduleCode == "" {
		return nil, errors.New("module code is required")
	}
	course, err := uc.courseRepo.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	known := false
	for _, m := range course.Modules {
		if m.Code == moduleCode {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.New("unknown module " + moduleCode)
	}

	p, err := uc.progressRepo.GetProgress(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	updated, err := uc.progressRepo.CompleteModule(ctx, p.ID, moduleCode, len(course.Modules))
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionUpdated, store.TypeProgress, updated.ID, []domain.FieldChange{
		{Field: "completed_modules", Before: "", After: moduleCode},
	})
	uc.invalidate(ctx, courseCacheName(courseID))
	return updated, nil
}

func (uc *PortalUsecase) ListProgressByCourse(ctx context.Context, courseID, cursor string, limit int64) (domain.Page[*domain.TrainingProgress], error) {
	if courseID == "" {
		return domain.Page[*domain.TrainingProgress]{}, errors.New("invalid course id")
	}
	return uc.progressRepo.ListProgressByCourse(ctx, courseID, cursor, limit)
}

func (uc *PortalUsecase) ListProgressByUser(ctx context.Context, userID string, limit int64) ([]*domain.TrainingProgress, error) {
	if userID == "" {
		return nil, errors.New("invalid user id")
	}
	return uc.progressRepo.ListProgressByUser(ctx, userID, limit)
}
