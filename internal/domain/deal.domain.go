package domain

import "time"

type DealStatus string

const (
	DealStatusPendingApproval DealStatus = "pending_approval"
	DealStatusApproved        DealStatus = "approved"
	DealStatusRejected        DealStatus = "rejected"
	DealStatusClosedWon       DealStatus = "closed_won"
	DealStatusClosedLost      DealStatus = "closed_lost"
)

// Deal is a registered sales opportunity owned by a partner.
type Deal struct {
	ID            string     `json:"id"`
	PartnerID     string     `json:"partner_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	Value         float64    `json:"value"`
	Currency      string     `json:"currency"`
	Status        DealStatus `json:"status"`
	Tags          []string   `json:"tags,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DealUpdate carries a partial update; nil fields are left as stored.
type DealUpdate struct {
	CustomerName  *string
	CustomerEmail *string
	Value         *float64
	Currency      *string
	Status        *DealStatus
	Tags          *[]string
	Notes         *string
}
