package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

func testPartner(id string) *domain.Partner {
	return &domain.Partner{
		ID:           id,
		Name:         "Acme Integrations",
		ContactEmail: "Ops@Acme.IO",
		Country:      "DE",
		Status:       domain.PartnerStatusPending,
		Tier:         domain.TierBronze,
		Rating:       3.5,
		APIEnabled:   true,
		APIRateLimit: 200,
		AllowedIPs:   []string{"10.0.0.1"},
		Metadata:     map[string]string{"segment": "mid-market"},
	}
}

func TestCreatePartnerSeedsEveryIndex(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewPartnerRepo(ms, zap.NewNop())

	p := testPartner("PTN_01")
	require.NoError(t, repo.CreatePartner(ctx, p))

	for _, key := range []string{
		partnerStatusKey("pending"),
		partnerTierKey("bronze"),
		partnerCountryKey("DE"),
	} {
		ok, err := ms.SIsMember(ctx, key, "PTN_01")
		require.NoError(t, err)
		assert.True(t, ok, "missing from %s", key)
	}

	all, err := ms.ZRevRange(ctx, store.AllKey(store.TypePartner), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"PTN_01"}, all)

	rated, err := ms.ZRevRange(ctx, partnerRatingKey(), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"PTN_01"}, rated)

	// Email lookup is case-normalized at the key choke point.
	id, err := ms.Get(ctx, store.EmailKey(store.TypePartner, "ops@acme.io"))
	require.NoError(t, err)
	assert.Equal(t, "PTN_01", id)

	got, err := repo.GetPartnerByID(ctx, "PTN_01")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, got.APIEnabled)
	assert.Equal(t, []string{"10.0.0.1"}, got.AllowedIPs)
}

func TestUpdatePartnerMovesIndexBuckets(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewPartnerRepo(ms, zap.NewNop())

	require.NoError(t, repo.CreatePartner(ctx, testPartner("PTN_01")))

	gold := domain.TierGold
	active := domain.PartnerStatusActive
	_, err := repo.UpdatePartner(ctx, "PTN_01", domain.PartnerUpdate{Tier: &gold, Status: &active})
	require.NoError(t, err)

	inBronze, err := ms.SIsMember(ctx, partnerTierKey("bronze"), "PTN_01")
	require.NoError(t, err)
	assert.False(t, inBronze, "left the old tier bucket")
	inGold, err := ms.SIsMember(ctx, partnerTierKey("gold"), "PTN_01")
	require.NoError(t, err)
	assert.True(t, inGold)

	inPending, err := ms.SIsMember(ctx, partnerStatusKey("pending"), "PTN_01")
	require.NoError(t, err)
	assert.False(t, inPending)
	inActive, err := ms.SIsMember(ctx, partnerStatusKey("active"), "PTN_01")
	require.NoError(t, err)
	assert.True(t, inActive)

	// Untouched dimension stays put.
	inDE, err := ms.SIsMember(ctx, partnerCountryKey("DE"), "PTN_01")
	require.NoError(t, err)
	assert.True(t, inDE)

	got, err := repo.GetPartnerByID(ctx, "PTN_01")
	require.NoError(t, err)
	assert.Equal(t, domain.TierGold, got.Tier)
	assert.Equal(t, domain.PartnerStatusActive, got.Status)
}

func TestUpdatePartnerEmailMovesLookup(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewPartnerRepo(ms, zap.NewNop())

	require.NoError(t, repo.CreatePartner(ctx, testPartner("PTN_01")))

	newEmail := "sales@acme.io"
	_, err := repo.UpdatePartner(ctx, "PTN_01", domain.PartnerUpdate{ContactEmail: &newEmail})
	require.NoError(t, err)

	_, err = ms.Get(ctx, store.EmailKey(store.TypePartner, "ops@acme.io"))
	assert.ErrorIs(t, err, store.ErrNoValue, "old lookup dropped")

	got, err := repo.GetPartnerByEmail(ctx, "SALES@acme.io")
	require.NoError(t, err)
	assert.Equal(t, "PTN_01", got.ID)
}

func TestUpdateMissingPartnerIsPreconditionFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewPartnerRepo(store.NewMemoryStore(), zap.NewNop())

	gold := domain.TierGold
	_, err := repo.UpdatePartner(ctx, "PTN_missing", domain.PartnerUpdate{Tier: &gold})
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)

	err = repo.DeletePartner(ctx, "PTN_missing")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestDeletePartnerRemovesEveryTrace(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewPartnerRepo(ms, zap.NewNop())

	require.NoError(t, repo.CreatePartner(ctx, testPartner("PTN_01")))

	// Seed owned child collections the way the child repos would.
	require.NoError(t, ms.ZAdd(ctx, partnerDealsKey("PTN_01"), "DEAL_01", 1))
	require.NoError(t, ms.SAdd(ctx, partnerUsersKey("PTN_01"), "PUSR_01"))
	require.NoError(t, ms.SAdd(ctx, partnerCredentialsKey("PTN_01"), "CRED_01"))

	require.NoError(t, repo.DeletePartner(ctx, "PTN_01"))

	_, err := repo.GetPartnerByID(ctx, "PTN_01")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, key := range []string{
		partnerStatusKey("pending"),
		partnerTierKey("bronze"),
		partnerCountryKey("DE"),
	} {
		ok, err := ms.SIsMember(ctx, key, "PTN_01")
		require.NoError(t, err)
		assert.False(t, ok, "still present in %s", key)
	}

	n, err := ms.ZCard(ctx, store.AllKey(store.TypePartner))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = ms.ZCard(ctx, partnerRatingKey())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = ms.Get(ctx, store.EmailKey(store.TypePartner, "ops@acme.io"))
	assert.ErrorIs(t, err, store.ErrNoValue)

	n, err = ms.ZCard(ctx, partnerDealsKey("PTN_01"))
	require.NoError(t, err)
	assert.Zero(t, n, "owned child collections dropped")
	c, err := ms.SCard(ctx, partnerUsersKey("PTN_01"))
	require.NoError(t, err)
	assert.Zero(t, c)
	c, err = ms.SCard(ctx, partnerCredentialsKey("PTN_01"))
	require.NoError(t, err)
	assert.Zero(t, c)
}

func TestListPartnersDropsStaleIndexEntries(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewPartnerRepo(ms, zap.NewNop())

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		p := testPartner(fmt.Sprintf("PTN_%02d", i))
		p.ContactEmail = fmt.Sprintf("p%d@acme.io", i)
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.CreatePartner(ctx, p))
	}

	// Simulate a torn delete: primary record gone, index entry left behind.
	require.NoError(t, ms.Del(ctx, store.PrimaryKey(store.TypePartner, "PTN_01")))

	page, err := repo.ListAllPartners(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2, "stale reference silently dropped")
	for _, p := range page.Items {
		assert.NotEqual(t, "PTN_01", p.ID)
	}
	assert.Equal(t, int64(3), page.Total, "total reflects the raw index")
	assert.False(t, page.HasMore)
}

func TestListPartnersByStatusPages(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewPartnerRepo(ms, zap.NewNop())

	const n = 7
	for i := 0; i < n; i++ {
		p := testPartner(fmt.Sprintf("PTN_%02d", i))
		p.ContactEmail = fmt.Sprintf("p%d@acme.io", i)
		require.NoError(t, repo.CreatePartner(ctx, p))
	}

	seen := make(map[string]struct{})
	var cursor string
	for {
		page, err := repo.ListPartnersByStatusPage(ctx, domain.PartnerStatusPending, cursor, 3)
		require.NoError(t, err)
		for _, p := range page.Items {
			seen[p.ID] = struct{}{}
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	assert.Len(t, seen, n)
}

func TestCreatePartnerRejectsLocationCollidingIDs(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewPartnerRepo(ms, zap.NewNop())

	// Ids are embedded raw in storage locations; anything outside the
	// generated PREFIX_BODY shape could collide with an index location.
	for _, bad := range []string{"", "rating", "status:active", "PTN:01", "PTN_01:deals", "ptn_01"} {
		p := testPartner(bad)
		assert.Errorf(t, repo.CreatePartner(ctx, p), "id %q accepted", bad)
	}

	// Nothing leaked into the partner namespace.
	n, err := ms.ZCard(ctx, store.AllKey(store.TypePartner))
	require.NoError(t, err)
	assert.Zero(t, n)
}
