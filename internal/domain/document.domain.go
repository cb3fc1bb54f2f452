package domain

import "time"

type DocumentCategory string

const (
	DocumentCategoryMSA       DocumentCategory = "msa"
	DocumentCategoryNDA       DocumentCategory = "nda"
	DocumentCategoryDPA       DocumentCategory = "dpa"
	DocumentCategoryOrderForm DocumentCategory = "order_form"
)

type DocumentStatus string

const (
	DocumentStatusDraft            DocumentStatus = "draft"
	DocumentStatusPendingSignature DocumentStatus = "pending_signature"
	DocumentStatusSigned           DocumentStatus = "signed"
	DocumentStatusVoided           DocumentStatus = "voided"
)

// LegalDocument is a contract attached to a partner. The signature flow
// itself lives with the e-signature provider; this record only tracks
// status and who must sign.
type LegalDocument struct {
	ID           string           `json:"id"`
	PartnerID    string           `json:"partner_id"`
	Title        string           `json:"title"`
	Category     DocumentCategory `json:"category"`
	Status       DocumentStatus   `json:"status"`
	Version      int64            `json:"version"`
	StorageURL   string           `json:"storage_url"`
	SignerEmails []string         `json:"signer_emails,omitempty"`
	SignedAt     time.Time        `json:"signed_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
