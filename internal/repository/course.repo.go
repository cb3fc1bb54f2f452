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

// CourseRepo persists training courses, indexed by category and globally
// by creation order. A course owns its enrollment and completion sets.
type CourseRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewCourseRepo(s store.Store, logger *zap.Logger) *CourseRepo {
	return &CourseRepo{store: s, logger: logger}
}

func courseCategoryKey(v string) string {
	return store.DimensionKey(store.TypeCourse, "category", v)
}

func courseProgressKey(courseID string) string {
	return store.ChildKey(store.TypeCourse, courseID, "progress")
}

func courseCompletedKey(courseID string) string {
	return store.ChildKey(store.TypeCourse, courseID, "completed")
}

func encodeCourse(c *domain.TrainingCourse) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", c.ID)
	fm.SetString("title", c.Title)
	fm.SetString("category", c.Category)
	if err := fm.SetJSON("modules", c.Modules); err != nil {
		return nil, err
	}
	fm.SetBool("is_published", c.Published)
	fm.SetTime("created_at", c.CreatedAt)
	fm.SetTime("updated_at", c.UpdatedAt)
	return fm, nil
}

func decodeCourse(fields map[string]string) (*domain.TrainingCourse, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	c := &domain.TrainingCourse{
		ID:        d.String("id"),
		Title:     d.String("title"),
		Category:  d.String("category"),
		Published: d.Bool("is_published"),
		CreatedAt: d.Time("created_at"),
		UpdatedAt: d.Time("updated_at"),
	}
	d.JSON("modules", &c.Modules)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("course %s: %w", c.ID, err)
	}
	return c, nil
}

func courseDeltas(old, c *domain.TrainingCourse) []IndexDelta {
	var oldCategory string
	if old != nil {
		oldCategory = old.Category
	}
	var diff indexDiff
	diff.Membership(courseCategoryKey, oldCategory, c.Category, c.ID)
	diff.Ordered(store.AllKey(store.TypeCourse), c.ID, float64(c.CreatedAt.UnixMilli()))
	return diff.deltas
}

func (r *CourseRepo) CreateCourse(ctx context.Context, c *domain.TrainingCourse) error {
	if err := validID(store.TypeCourse, c.ID); err != nil {
		return err
	}
	if c.Title == "" {
		return errors.New("course title is required")
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	fm, err := encodeCourse(c)
	if err != nil {
		return err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCourse, c.ID), fm)
	diff := indexDiff{deltas: courseDeltas(nil, c)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create course %s: %w", c.ID, err)
	}
	if err := store.CheckBatch(store.TypeCourse, c.ID, res); err != nil {
		r.logger.Error("course create left indexes inconsistent", zap.String("course_id", c.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *CourseRepo) GetCourseByID(ctx context.Context, id string) (*domain.TrainingCourse, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeCourse, id))
	if err != nil {
		return nil, fmt.Errorf("get course %s: %w", id, err)
	}
	c, err := decodeCourse(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("course %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// UpdateCourse re-puts course content. Category changes move the category
// membership; the enrollment sets are untouched.
func (r *CourseRepo) UpdateCourse(ctx context.Context, c *domain.TrainingCourse) (*domain.TrainingCourse, error) {
	old, err := r.GetCourseByID(ctx, c.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update course %s: %w", c.ID, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *c
	next.CreatedAt = old.CreatedAt
	next.UpdatedAt = time.Now()

	fm, err := encodeCourse(&next)
	if err != nil {
		return nil, err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCourse, c.ID), fm)
	diff := indexDiff{deltas: courseDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update course %s: %w", c.ID, err)
	}
	if err := store.CheckBatch(store.TypeCourse, c.ID, res); err != nil {
		r.logger.Error("course update left indexes inconsistent", zap.String("course_id", c.ID), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

// DeleteCourse removes the course, its memberships, and the enrollment
// and completion sets it owns. Individual progress records belong to the
// progress repository and survive as orphans only until their own delete;
// listings tolerate them via stale-reference dropping.
func (r *CourseRepo) DeleteCourse(ctx context.Context, id string) error {
	old, err := r.GetCourseByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete course %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	if old.Category != "" {
		diff.Remove(courseCategoryKey(old.Category), id)
	}
	diff.RemoveOrdered(store.AllKey(store.TypeCourse), id)
	diff.Drop(courseProgressKey(id), courseCompletedKey(id))

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeCourse, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete course %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeCourse, id, res); err != nil {
		r.logger.Error("course delete left orphaned index entries", zap.String("course_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *CourseRepo) ListCoursesByCategory(ctx context.Context, category string, limit int64) ([]*domain.TrainingCourse, error) {
	ids, err := r.store.SMembers(ctx, courseCategoryKey(category))
	if err != nil {
		return nil, fmt.Errorf("list courses by category: %w", err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetCourseByID)
}

func (r *CourseRepo) ListCoursesByCategoryPage(ctx context.Context, category, cursor string, limit int64) (domain.Page[*domain.TrainingCourse], error) {
	raw, err := store.PaginateMembers(ctx, r.store, courseCategoryKey(category), cursor, limit)
	if err != nil {
		return domain.Page[*domain.TrainingCourse]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCourseByID)
}

func (r *CourseRepo) ListAllCourses(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.TrainingCourse], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AllKey(store.TypeCourse), cursor, limit)
	if err != nil {
		return domain.Page[*domain.TrainingCourse]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCourseByID)
}

// CountEnrolled and CountCompleted read raw set cardinalities for the
// training analytics rollup.
func (r *CourseRepo) CountEnrolled(ctx context.Context, courseID string) (int64, error) {
	return r.store.SCard(ctx, courseProgressKey(courseID))
}

func (r *CourseRepo) CountCompleted(ctx context.Context, courseID string) (int64, error) {
	return r.store.SCard(ctx, courseCompletedKey(courseID))
}
