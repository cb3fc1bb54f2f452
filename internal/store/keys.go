package store

import (
	"fmt"
	"strings"
)

// Entity type names as they appear in storage locations.
const (
	TypePartner       = "partner"
	TypePartnerUser   = "user"
	TypeDeal          = "deal"
	TypeQuote         = "quote"
	TypeDocument      = "document"
	TypeCertification = "certification"
	TypeCommission    = "commission"
	TypeCourse        = "course"
	TypeProgress      = "progress"
	TypeCredential    = "credential"
	TypeAudit         = "audit"
)

// keyRoot namespaces every portal location so the store can be shared.
const keyRoot = "portal"

// PrimaryKey is the location of an entity's primary record (a hash).
// Distinct ids never collide: the id is the final segment and ids carry no
// colons (see pkg/id).
func PrimaryKey(entityType, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyRoot, entityType, id)
}

// PrimaryPattern matches every primary record of a type, for operator
// tooling that sweeps the keyspace. idPrefix is the id prefix from pkg/id
// (e.g. "DEAL"); without it the pattern would also match index locations.
// Listings never use this.
func PrimaryPattern(entityType, idPrefix string) string {
	return fmt.Sprintf("%s:%s:%s_*", keyRoot, entityType, idPrefix)
}

// AllKey is the creation-time ordered index over every entity of a type.
func AllKey(entityType string) string {
	return fmt.Sprintf("%s:%s:all", keyRoot, entityType)
}

// DimensionKey is the membership bucket for one discrete dimension value,
// e.g. portal:deal:status:approved.
func DimensionKey(entityType, dimension, value string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyRoot, entityType, dimension, value)
}

// OrderedKey is a score-ordered index over a whole entity type,
// e.g. portal:partner:rating.
func OrderedKey(entityType, dimension string) string {
	return fmt.Sprintf("%s:%s:%s", keyRoot, entityType, dimension)
}

// ChildKey is an index owned by a parent entity listing its children,
// e.g. portal:partner:PTN_x:deals. Owned children must be enumerated in
// the parent's deletion path.
func ChildKey(parentType, parentID, child string) string {
	return fmt.Sprintf("%s:%s:%s:%s", keyRoot, parentType, parentID, child)
}

// EmailKey is the unique-lookup location for a free-text email dimension.
// Emails are case-normalized here, the single choke point, so writers and
// readers can never disagree on the bucket.
func EmailKey(entityType, email string) string {
	return fmt.Sprintf("%s:%s:email:%s", keyRoot, entityType, NormalizeEmail(email))
}

// NormalizeEmail lower-cases and trims a free-text email for use as an
// index value.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Audit index locations: one per view, all time-ordered.

func AuditEntityKey(entityType, entityID string) string {
	return fmt.Sprintf("%s:%s:entity:%s:%s", keyRoot, TypeAudit, entityType, entityID)
}

func AuditActorKey(actorID string) string {
	return fmt.Sprintf("%s:%s:actor:%s", keyRoot, TypeAudit, actorID)
}

func AuditActionKey(action string) string {
	return fmt.Sprintf("%s:%s:action:%s", keyRoot, TypeAudit, action)
}

// CredentialHashKey resolves a hashed API key to its credential id, for
// request authentication.
func CredentialHashKey(keyHash string) string {
	return fmt.Sprintf("%s:%s:hash:%s", keyRoot, TypeCredential, keyHash)
}

// ProgressLookupKey resolves the (course, user) pair to its single
// training-progress record id.
func ProgressLookupKey(courseID, userID string) string {
	return fmt.Sprintf("%s:%s:lookup:%s:%s", keyRoot, TypeProgress, courseID, userID)
}

// CacheKey is the location of one cached aggregate.
func CacheKey(name string) string {
	return fmt.Sprintf("%s:cache:%s", keyRoot, name)
}

// CachePattern matches a family of cache keys for prefix invalidation.
func CachePattern(prefix string) string {
	return fmt.Sprintf("%s:cache:%s*", keyRoot, prefix)
}
