package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNamespaceInjective(t *testing.T) {
	keys := []string{
		PrimaryKey(TypePartner, "PTN_01"),
		PrimaryKey(TypeDeal, "DEAL_01"),
		AllKey(TypePartner),
		AllKey(TypeDeal),
		DimensionKey(TypePartner, "status", "active"),
		DimensionKey(TypePartner, "tier", "gold"),
		DimensionKey(TypeDeal, "status", "active"),
		OrderedKey(TypePartner, "rating"),
		ChildKey(TypePartner, "PTN_01", "deals"),
		ChildKey(TypePartner, "PTN_01", "quotes"),
		ChildKey(TypeDeal, "DEAL_01", "quotes"),
		EmailKey(TypePartner, "ops@acme.io"),
		EmailKey(TypePartnerUser, "ops@acme.io"),
		AuditEntityKey(TypeDeal, "DEAL_01"),
		AuditActorKey("PUSR_01"),
		AuditActionKey("status_changed"),
		ProgressLookupKey("CRS_01", "PUSR_01"),
		CredentialHashKey("abc123"),
		CacheKey("analytics:overview"),
	}

	seen := make(map[string]int, len(keys))
	for i, k := range keys {
		if prev, dup := seen[k]; dup {
			t.Fatalf("key collision between entries %d and %d: %q", prev, i, k)
		}
		seen[k] = i
	}
}

func TestEmailKeyNormalization(t *testing.T) {
	assert.Equal(t,
		EmailKey(TypePartner, "Ops@Acme.IO"),
		EmailKey(TypePartner, "  ops@acme.io  "),
		"case and whitespace variants must land on the same location")

	assert.NotEqual(t,
		EmailKey(TypePartner, "ops@acme.io"),
		EmailKey(TypePartner, "ops@other.io"))
}

func TestCachePatternCoversFamily(t *testing.T) {
	pattern := CachePattern("analytics:course:")
	assert.True(t, globMatch(pattern, CacheKey("analytics:course:CRS_01")))
	assert.True(t, globMatch(pattern, CacheKey("analytics:course:CRS_02")))
	assert.False(t, globMatch(pattern, CacheKey("analytics:overview")))
}
