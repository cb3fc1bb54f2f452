package domain

import "time"

type PartnerUserRole string

const (
	PartnerUserRoleAdmin PartnerUserRole = "partner_admin"
	PartnerUserRoleUser  PartnerUserRole = "partner_user"
)

// PartnerUser is a person operating the portal on behalf of a partner.
type PartnerUser struct {
	ID        string          `json:"id"`
	PartnerID string          `json:"partner_id"`
	Role      PartnerUserRole `json:"role"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
