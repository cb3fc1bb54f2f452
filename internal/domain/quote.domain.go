package domain

import "time"

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
	QuoteStatusExpired  QuoteStatus = "expired"
)

// QuoteLineItem is one priced line inside a quote. Line items live inside
// the quote record as a single serialized field, not as their own records.
type QuoteLineItem struct {
	SKU         string  `json:"sku"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Quote is one priced revision against a deal. Revisions are ordered by
// Version in a per-deal index; the newest version is the active quote.
type Quote struct {
	ID        string          `json:"id"`
	DealID    string          `json:"deal_id"`
	PartnerID string          `json:"partner_id"`
	Status    QuoteStatus     `json:"status"`
	Version   int64           `json:"version"`
	Currency  string          `json:"currency"`
	Total     float64         `json:"total"`
	LineItems []QuoteLineItem `json:"line_items,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
