package usecase

import (
	"context"
	"errors"
	"time"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

// Cache entry names for the portal aggregates. The per-course and
// per-period families are unbounded; the fixed names cover the landing
// page.
const (
	cacheOverview         = "analytics:overview"
	cacheDealFunnel       = "analytics:deal_funnel"
	cacheCoursePrefix     = "analytics:course:"
	cacheCommissionPrefix = "analytics:commissions:"
)

const (
	overviewTTL   = 5 * time.Minute
	funnelTTL     = 5 * time.Minute
	courseTTL     = 10 * time.Minute
	commissionTTL = 15 * time.Minute
)

func courseCacheName(courseID string) string {
	return cacheCoursePrefix + courseID
}

func commissionPeriodCacheName(period string) string {
	return cacheCommissionPrefix + period
}

// GetOverview returns the landing-page rollup, cached.
func (uc *PortalUsecase) GetOverview(ctx context.Context) (domain.OverviewMetrics, error) {
	return store.GetOrCompute(ctx, uc.cache, cacheOverview, overviewTTL, uc.computeOverview)
}

func (uc *PortalUsecase) computeOverview(ctx context.Context) (domain.OverviewMetrics, error) {
	m := domain.OverviewMetrics{
		PartnersByStatus: make(map[domain.PartnerStatus]int64),
		PartnersByTier:   make(map[domain.PartnerTier]int64),
		DealsByStatus:    make(map[domain.DealStatus]int64),
	}

	for _, s := range []domain.PartnerStatus{
		domain.PartnerStatusPending, domain.PartnerStatusActive,
		domain.PartnerStatusSuspended, domain.PartnerStatusChurned,
	} {
		n, err := uc.partnerRepo.CountPartnersByStatus(ctx, s)
		if err != nil {
			return m, err
		}
		m.PartnersByStatus[s] = n
	}
	for _, t := range []domain.PartnerTier{
		domain.TierBronze, domain.TierSilver, domain.TierGold, domain.TierPlatinum,
	} {
		n, err := uc.partnerRepo.CountPartnersByTier(ctx, t)
		if err != nil {
			return m, err
		}
		m.PartnersByTier[t] = n
	}
	for _, s := range []domain.DealStatus{
		domain.DealStatusPendingApproval, domain.DealStatusApproved,
		domain.DealStatusRejected, domain.DealStatusClosedWon, domain.DealStatusClosedLost,
	} {
		n, err := uc.dealRepo.CountDealsByStatus(ctx, s)
		if err != nil {
			return m, err
		}
		m.DealsByStatus[s] = n
	}

	var err error
	if m.TotalPartners, err = uc.partnerRepo.CountPartners(ctx); err != nil {
		return m, err
	}
	if m.TotalDeals, err = uc.dealRepo.CountDeals(ctx); err != nil {
		return m, err
	}
	return m, nil
}

// GetDealFunnel returns pipeline dropoff and win rates, cached.
func (uc *PortalUsecase) GetDealFunnel(ctx context.Context) (domain.DealFunnelMetrics, error) {
	return store.GetOrCompute(ctx, uc.cache, cacheDealFunnel, funnelTTL, uc.computeDealFunnel)
}

func (uc *PortalUsecase) computeDealFunnel(ctx context.Context) (domain.DealFunnelMetrics, error) {
	var m domain.DealFunnelMetrics

	registered, err := uc.dealRepo.CountDeals(ctx)
	if err != nil {
		return m, err
	}
	approved, err := uc.dealRepo.CountDealsByStatus(ctx, domain.DealStatusApproved)
	if err != nil {
		return m, err
	}
	won, err := uc.dealRepo.CountDealsByStatus(ctx, domain.DealStatusClosedWon)
	if err != nil {
		return m, err
	}
	lost, err := uc.dealRepo.CountDealsByStatus(ctx, domain.DealStatusClosedLost)
	if err != nil {
		return m, err
	}

	// Approved counts deals still open in the stage; closed deals passed
	// through it.
	m.Registered = registered
	m.Approved = approved + won + lost
	m.Won = won
	if registered > 0 {
		m.DropoffRate = 1 - float64(m.Approved)/float64(registered)
	}
	closed := won + lost
	if closed > 0 {
		m.WinRate = float64(won) / float64(closed)
	}
	return m, nil
}

// GetCourseCompletion returns the per-course training rollup, cached per
// course.
func (uc *PortalUsecase) GetCourseCompletion(ctx context.Context, courseID string) (domain.CourseCompletionMetrics, error) {
	if courseID == "" {
		return domain.CourseCompletionMetrics{}, errors.New("invalid course id")
	}
	return store.GetOrCompute(ctx, uc.cache, courseCacheName(courseID), courseTTL,
		func(ctx context.Context) (domain.CourseCompletionMetrics, error) {
			return uc.computeCourseCompletion(ctx, courseID)
		})
}

func (uc *PortalUsecase) computeCourseCompletion(ctx context.Context, courseID string) (domain.CourseCompletionMetrics, error) {
	m := domain.CourseCompletionMetrics{CourseID: courseID}

	if _, err := uc.courseRepo.GetCourseByID(ctx, courseID); err != nil {
		return m, err
	}
	enrolled, err := uc.courseRepo.CountEnrolled(ctx, courseID)
	if err != nil {
		return m, err
	}
	completed, err := uc.courseRepo.CountCompleted(ctx, courseID)
	if err != nil {
		return m, err
	}

	m.Enrolled = enrolled
	m.Completed = completed
	if enrolled > 0 {
		m.CompletionRate = float64(completed) / float64(enrolled)
	}
	return m, nil
}

// GetCommissionPeriod totals commission state for one calendar month,
// cached per period.
func (uc *PortalUsecase) GetCommissionPeriod(ctx context.Context, period string) (domain.CommissionPeriodMetrics, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return domain.CommissionPeriodMetrics{}, errors.New("invalid period, want YYYY-MM")
	}
	return store.GetOrCompute(ctx, uc.cache, commissionPeriodCacheName(period), commissionTTL,
		func(ctx context.Context) (domain.CommissionPeriodMetrics, error) {
			return uc.computeCommissionPeriod(ctx, period)
		})
}

func (uc *PortalUsecase) computeCommissionPeriod(ctx context.Context, period string) (domain.CommissionPeriodMetrics, error) {
	m := domain.CommissionPeriodMetrics{Period: period}

	err := uc.commissionRepo.ForEachCommissionInPeriod(ctx, period, func(c *domain.Commission) error {
		m.Count++
		switch c.Status {
		case domain.CommissionStatusPending, domain.CommissionStatusApproved:
			m.PendingOut += c.Amount
		case domain.CommissionStatusPaid:
			m.PaidOut += c.Amount
		case domain.CommissionStatusClawedBack:
			m.ClaimedBack += c.Amount
		}
		return nil
	})
	return m, err
}
