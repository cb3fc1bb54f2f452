package domain

import "time"

type ActorType string

const (
	ActorSystem      ActorType = "system"
	ActorPartnerUser ActorType = "partner_user"
	ActorAdmin       ActorType = "admin"
)

// Common audit actions. Actions are free-form strings; these cover the
// portal's own mutation paths.
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionDeleted       = "deleted"
	ActionStatusChanged = "status_changed"
	ActionTierChanged   = "tier_changed"
)

// FieldChange records one before/after pair inside an audit event.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// AuditEvent is an immutable record of who did what to which entity. Once
// recorded it is never updated or deleted; it is readable through three
// views (by entity, by actor, by action) that are all written with the
// event itself.
type AuditEvent struct {
	ID         string        `json:"id"`
	ActorID    string        `json:"actor_id"`
	ActorType  ActorType     `json:"actor_type"`
	Action     string        `json:"action"`
	EntityType string        `json:"entity_type"`
	EntityID   string        `json:"entity_id"`
	Changes    []FieldChange `json:"changes,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}
