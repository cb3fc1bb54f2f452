package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

func TestUpdatePartnerClassifiesTheAuditAction(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	actor := Actor{ID: "admin-1", Type: domain.ActorAdmin}
	p := seedPartner(t, uc)

	tier := domain.TierGold
	_, err := uc.UpdatePartner(ctx, actor, p.ID, domain.PartnerUpdate{Tier: &tier})
	require.NoError(t, err)

	status := domain.PartnerStatusSuspended
	_, err = uc.UpdatePartner(ctx, actor, p.ID, domain.PartnerUpdate{Status: &status})
	require.NoError(t, err)

	page, err := uc.ListAuditByEntity(ctx, store.TypePartner, p.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	findAudit(t, page.Items, domain.ActionCreated)
	findAudit(t, page.Items, domain.ActionStatusChanged)
	tiered := findAudit(t, page.Items, domain.ActionTierChanged)
	require.Len(t, tiered.Changes, 1)
	assert.Equal(t, domain.FieldChange{Field: "tier", Before: "bronze", After: "gold"}, tiered.Changes[0])
}

func TestOverviewIsServedFromCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	seedPartner(t, uc)

	first, err := uc.GetOverview(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first.TotalPartners)

	// A second partner lands while the rollup is cached; the stale count
	// is served until a mutation path invalidates it. CreatePartner does
	// exactly that, so the next read is fresh.
	p2 := &domain.Partner{Name: "Initech", ContactEmail: "it@initech.com"}
	require.NoError(t, uc.CreatePartner(ctx, SystemActor(), p2))

	second, err := uc.GetOverview(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, second.TotalPartners)
	assert.EqualValues(t, 1, second.PartnersByStatus[domain.PartnerStatusPending])
	assert.EqualValues(t, 1, second.PartnersByStatus[domain.PartnerStatusActive])
}

func TestIssueCredentialReturnsPlaintextOnce(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)

	plaintext, cred, err := uc.IssueCredential(ctx, SystemActor(), p.ID, "ci", []string{"deals:read"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plaintext, "pk_"))
	assert.True(t, cred.Active)

	// Only the digest is stored, and it resolves back to the credential.
	sum := sha256.Sum256([]byte(plaintext))
	assert.Equal(t, hex.EncodeToString(sum[:]), cred.KeyHash)
	assert.NotContains(t, cred.KeyHash, plaintext)

	listed, err := uc.ListCredentialsByPartner(ctx, p.ID, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, cred.ID, listed[0].ID)
}

func TestRevokeCredentialFlipsActive(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)

	_, cred, err := uc.IssueCredential(ctx, SystemActor(), p.ID, "ci", nil)
	require.NoError(t, err)

	revoked, err := uc.RevokeCredential(ctx, SystemActor(), cred.ID)
	require.NoError(t, err)
	assert.False(t, revoked.Active)

	page, err := uc.ListAuditByEntity(ctx, store.TypeCredential, cred.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	ev := findAudit(t, page.Items, domain.ActionUpdated)
	require.Len(t, ev.Changes, 1)
	assert.Equal(t, "is_active", ev.Changes[0].Field)
}

func TestDeletePartnerRemovesItFromListings(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)

	require.NoError(t, uc.DeletePartner(ctx, SystemActor(), p.ID))

	_, err := uc.GetPartnerByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	page, err := uc.ListAllPartners(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// Deletion itself is audited; the entity trail survives the entity.
	trail, err := uc.ListAuditByEntity(ctx, store.TypePartner, p.ID, "", 10)
	require.NoError(t, err)
	findAudit(t, trail.Items, domain.ActionDeleted)
}
