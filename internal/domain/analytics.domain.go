package domain

// OverviewMetrics is the portal landing-page rollup.
type OverviewMetrics struct {
	PartnersByStatus map[PartnerStatus]int64 `json:"partners_by_status"`
	PartnersByTier   map[PartnerTier]int64   `json:"partners_by_tier"`
	DealsByStatus    map[DealStatus]int64    `json:"deals_by_status"`
	TotalPartners    int64                   `json:"total_partners"`
	TotalDeals       int64                   `json:"total_deals"`
}

// DealFunnelMetrics measures where registered deals fall out of the
// pipeline.
type DealFunnelMetrics struct {
	Registered  int64   `json:"registered"`
	Approved    int64   `json:"approved"`
	Won         int64   `json:"won"`
	DropoffRate float64 `json:"dropoff_rate"`
	WinRate     float64 `json:"win_rate"`
}

// CourseCompletionMetrics is the per-course training rollup.
type CourseCompletionMetrics struct {
	CourseID       string  `json:"course_id"`
	Enrolled       int64   `json:"enrolled"`
	Completed      int64   `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// CommissionPeriodMetrics totals commission state for one calendar month.
type CommissionPeriodMetrics struct {
	Period      string  `json:"period"`
	PendingOut  float64 `json:"pending_amount"`
	PaidOut     float64 `json:"paid_amount"`
	ClaimedBack float64 `json:"clawed_back_amount"`
	Count       int64   `json:"count"`
}
