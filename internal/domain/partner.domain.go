package domain

import (
	"time"
)

type PartnerStatus string

const (
	PartnerStatusPending   PartnerStatus = "pending"
	PartnerStatusActive    PartnerStatus = "active"
	PartnerStatusSuspended PartnerStatus = "suspended"
	PartnerStatusChurned   PartnerStatus = "churned"
)

type PartnerTier string

const (
	TierBronze   PartnerTier = "bronze"
	TierSilver   PartnerTier = "silver"
	TierGold     PartnerTier = "gold"
	TierPlatinum PartnerTier = "platinum"
)

type Partner struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	ContactEmail string        `json:"contact_email"`
	ContactPhone string        `json:"contact_phone"`
	Country      string        `json:"country"`
	Status       PartnerStatus `json:"status"`
	Tier         PartnerTier   `json:"tier"`
	Rating       float64       `json:"rating"`

	// API integration fields
	APIEnabled   bool     `json:"is_api_enabled"`
	APIRateLimit int      `json:"api_rate_limit"`
	AllowedIPs   []string `json:"allowed_ips,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartnerUpdate carries a partial update; nil fields are left as stored.
type PartnerUpdate struct {
	Name         *string
	ContactEmail *string
	ContactPhone *string
	Country      *string
	Status       *PartnerStatus
	Tier         *PartnerTier
	Rating       *float64
	APIEnabled   *bool
	APIRateLimit *int
	AllowedIPs   *[]string
	Metadata     *map[string]string
}
