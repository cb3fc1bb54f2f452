package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

// ProgressRepo persists per-user training progress. One record exists per
// (course, user) pair, resolved through a lookup location; the record also
// joins the course enrollment set, the course completion set once done,
// the user's progress set, and the global creation ordering.
type ProgressRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewProgressRepo(s store.Store, logger *zap.Logger) *ProgressRepo {
	return &ProgressRepo{store: s, logger: logger}
}

func userProgressKey(userID string) string {
	return store.ChildKey(store.TypePartnerUser, userID, "progress")
}

func encodeProgress(p *domain.TrainingProgress) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", p.ID)
	fm.SetString("course_id", p.CourseID)
	fm.SetString("user_id", p.UserID)
	fm.SetString("partner_id", p.PartnerID)
	if err := fm.SetJSON("completed_modules", p.CompletedModules); err != nil {
		return nil, err
	}
	fm.SetFloat("percent_complete", p.PercentComplete)
	fm.SetBool("is_completed", p.Completed)
	fm.SetTime("started_at", p.StartedAt)
	fm.SetTime("completed_at", p.CompletedAt)
	fm.SetTime("updated_at", p.UpdatedAt)
	return fm, nil
}

func decodeProgress(fields map[string]string) (*domain.TrainingProgress, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	p := &domain.TrainingProgress{
		ID:              d.String("id"),
		CourseID:        d.String("course_id"),
		UserID:          d.String("user_id"),
		PartnerID:       d.String("partner_id"),
		PercentComplete: d.Float("percent_complete"),
		Completed:       d.Bool("is_completed"),
		StartedAt:       d.Time("started_at"),
		CompletedAt:     d.Time("completed_at"),
		UpdatedAt:       d.Time("updated_at"),
	}
	d.JSON("completed_modules", &p.CompletedModules)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("progress %s: %w", p.ID, err)
	}
	return p, nil
}

// StartProgress enrolls a user into a course. If the pair already has a
// record, it is returned unchanged.
func (r *ProgressRepo) StartProgress(ctx context.Context, p *domain.TrainingProgress) (*domain.TrainingProgress, error) {
	if err := validID(store.TypeProgress, p.ID); err != nil {
		return nil, err
	}
	if p.CourseID == "" || p.UserID == "" {
		return nil, errors.New("progress course_id and user_id are required")
	}

	if existingID, err := r.store.Get(ctx, store.ProgressLookupKey(p.CourseID, p.UserID)); err == nil {
		return r.GetProgressByID(ctx, existingID)
	} else if !errors.Is(err, store.ErrNoValue) {
		return nil, fmt.Errorf("progress lookup: %w", err)
	}

	now := time.Now()
	if p.StartedAt.IsZero() {
		p.StartedAt = now
	}
	p.UpdatedAt = now

	fm, err := encodeProgress(p)
	if err != nil {
		return nil, err
	}

	var diff indexDiff
	diff.Add(courseProgressKey(p.CourseID), p.ID)
	diff.Add(userProgressKey(p.UserID), p.ID)
	diff.Ordered(store.AllKey(store.TypeProgress), p.ID, float64(p.StartedAt.UnixMilli()))
	diff.Lookup("", store.ProgressLookupKey(p.CourseID, p.UserID), p.ID)

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeProgress, p.ID), fm)
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("start progress %s: %w", p.ID, err)
	}
	if err := store.CheckBatch(store.TypeProgress, p.ID, res); err != nil {
		r.logger.Error("progress create left indexes inconsistent", zap.String("progress_id", p.ID), zap.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *ProgressRepo) GetProgressByID(ctx context.Context, id string) (*domain.TrainingProgress, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeProgress, id))
	if err != nil {
		return nil, fmt.Errorf("get progress %s: %w", id, err)
	}
	p, err := decodeProgress(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("progress %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// GetProgress resolves the record for a (course, user) pair.
func (r *ProgressRepo) GetProgress(ctx context.Context, courseID, userID string) (*domain.TrainingProgress, error) {
	id, err := r.store.Get(ctx, store.ProgressLookupKey(courseID, userID))
	if err != nil {
		if errors.Is(err, store.ErrNoValue) {
			return nil, fmt.Errorf("progress for course %s user %s: %w", courseID, userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("progress lookup: %w", err)
	}
	return r.GetProgressByID(ctx, id)
}

// CompleteModule marks one module done and recomputes completion against
// totalModules. Finishing the last module moves the record into the
// course's completion set and stamps CompletedAt.
func (r *ProgressRepo) CompleteModule(ctx context.Context, id, moduleCode string, totalModules int) (*domain.TrainingProgress, error) {
	old, err := r.GetProgressByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update progress %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	if !slices.Contains(next.CompletedModules, moduleCode) {
		next.CompletedModules = append(slices.Clone(old.CompletedModules), moduleCode)
	}
	if totalModules > 0 {
		next.PercentComplete = float64(len(next.CompletedModules)) / float64(totalModules) * 100
		next.Completed = len(next.CompletedModules) >= totalModules
	}
	next.UpdatedAt = time.Now()
	if next.Completed && next.CompletedAt.IsZero() {
		next.CompletedAt = next.UpdatedAt
	}

	fm, err := encodeProgress(&next)
	if err != nil {
		return nil, err
	}

	var diff indexDiff
	if next.Completed && !old.Completed {
		diff.Add(courseCompletedKey(next.CourseID), id)
	}
	diff.Ordered(store.AllKey(store.TypeProgress), id, float64(next.StartedAt.UnixMilli()))

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeProgress, id), fm)
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update progress %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeProgress, id, res); err != nil {
		r.logger.Error("progress update left indexes inconsistent", zap.String("progress_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

// DeleteProgress removes the record and every membership it holds,
// including the pair lookup.
func (r *ProgressRepo) DeleteProgress(ctx context.Context, id string) error {
	old, err := r.GetProgressByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete progress %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	diff.Remove(courseProgressKey(old.CourseID), id)
	diff.Remove(courseCompletedKey(old.CourseID), id)
	diff.Remove(userProgressKey(old.UserID), id)
	diff.RemoveOrdered(store.AllKey(store.TypeProgress), id)
	diff.Drop(store.ProgressLookupKey(old.CourseID, old.UserID))

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeProgress, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete progress %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeProgress, id, res); err != nil {
		r.logger.Error("progress delete left orphaned index entries", zap.String("progress_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *ProgressRepo) ListProgressByCourse(ctx context.Context, courseID, cursor string, limit int64) (domain.Page[*domain.TrainingProgress], error) {
	raw, err := store.PaginateMembers(ctx, r.store, courseProgressKey(courseID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.TrainingProgress]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetProgressByID)
}

func (r *ProgressRepo) ListProgressByUser(ctx context.Context, userID string, limit int64) ([]*domain.TrainingProgress, error) {
	ids, err := r.store.SMembers(ctx, userProgressKey(userID))
	if err != nil {
		return nil, fmt.Errorf("list progress for user %s: %w", userID, err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetProgressByID)
}
