package domain

import "time"

// Credential is an API key issued to a partner. Only the hash of the key
// material is stored; the plaintext is shown once at issue time and never
// persisted.
type Credential struct {
	ID         string    `json:"id"`
	PartnerID  string    `json:"partner_id"`
	Label      string    `json:"label"`
	KeyHash    string    `json:"key_hash"`
	Scopes     []string  `json:"scopes,omitempty"`
	Active     bool      `json:"is_active"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
