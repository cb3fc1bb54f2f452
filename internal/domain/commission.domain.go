package domain

import "time"

type CommissionStatus string

const (
	CommissionStatusPending    CommissionStatus = "pending"
	CommissionStatusApproved   CommissionStatus = "approved"
	CommissionStatusPaid       CommissionStatus = "paid"
	CommissionStatusClawedBack CommissionStatus = "clawed_back"
)

// Commission is a payout owed to a partner for a closed deal. Period is a
// calendar month in "2006-01" form and doubles as an index dimension for
// per-period rollups.
type Commission struct {
	ID        string           `json:"id"`
	PartnerID string           `json:"partner_id"`
	DealID    string           `json:"deal_id"`
	Amount    float64          `json:"amount"`
	Currency  string           `json:"currency"`
	Status    CommissionStatus `json:"status"`
	Period    string           `json:"period"`
	PaidAt    time.Time        `json:"paid_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
