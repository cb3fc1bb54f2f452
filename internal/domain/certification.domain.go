package domain

import "time"

type CertificationStatus string

const (
	CertificationStatusInProgress CertificationStatus = "in_progress"
	CertificationStatusEarned     CertificationStatus = "earned"
	CertificationStatusExpired    CertificationStatus = "expired"
)

type CertificationLevel string

const (
	CertLevelAssociate    CertificationLevel = "associate"
	CertLevelProfessional CertificationLevel = "professional"
	CertLevelExpert       CertificationLevel = "expert"
)

// Certification tracks one partner's standing in a certification track.
type Certification struct {
	ID        string              `json:"id"`
	PartnerID string              `json:"partner_id"`
	Name      string              `json:"name"`
	Level     CertificationLevel  `json:"level"`
	Status    CertificationStatus `json:"status"`
	Score     float64             `json:"score"`
	EarnedAt  time.Time           `json:"earned_at,omitempty"`
	ExpiresAt time.Time           `json:"expires_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}
