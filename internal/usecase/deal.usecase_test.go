package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/repository"
	"partner-portal/internal/store"
)

// newTestPortal wires the full usecase over an in-memory store. No
// publisher: events are best-effort and tests assert state, not fan-out.
func newTestPortal(t *testing.T) (*PortalUsecase, *store.MemoryStore) {
	t.Helper()
	ms := store.NewMemoryStore()
	nop := zap.NewNop()
	uc := NewPortalUsecase(Repos{
		Partner:       repository.NewPartnerRepo(ms, nop),
		User:          repository.NewPartnerUserRepo(ms, nop),
		Deal:          repository.NewDealRepo(ms, nop),
		Quote:         repository.NewQuoteRepo(ms, nop),
		Document:      repository.NewDocumentRepo(ms, nop),
		Certification: repository.NewCertificationRepo(ms, nop),
		Commission:    repository.NewCommissionRepo(ms, nop),
		Course:        repository.NewCourseRepo(ms, nop),
		Progress:      repository.NewProgressRepo(ms, nop),
		Credential:    repository.NewCredentialRepo(ms, nop),
		Audit:         repository.NewAuditRepo(ms, nop),
	}, store.NewCache(ms, nop), nil, nop)
	return uc, ms
}

func seedPartner(t *testing.T, uc *PortalUsecase) *domain.Partner {
	t.Helper()
	p := &domain.Partner{
		Name:         "Acme Integrations",
		ContactEmail: "ops@acme.io",
		Country:      "DE",
		Status:       domain.PartnerStatusActive,
	}
	require.NoError(t, uc.CreatePartner(context.Background(), SystemActor(), p))
	return p
}

func seedDeal(t *testing.T, uc *PortalUsecase, partnerID string) *domain.Deal {
	t.Helper()
	d := &domain.Deal{
		PartnerID:    partnerID,
		CustomerName: "Globex GmbH",
		Value:        42000,
		Currency:     "EUR",
	}
	require.NoError(t, uc.RegisterDeal(context.Background(), SystemActor(), d))
	return d
}

// findAudit picks the first event with the given action. Events written in
// the same millisecond tie on score, so tests match on action rather than
// position.
func findAudit(t *testing.T, items []*domain.AuditEvent, action string) *domain.AuditEvent {
	t.Helper()
	for _, ev := range items {
		if ev.Action == action {
			return ev
		}
	}
	t.Fatalf("no %s event among %d items", action, len(items))
	return nil
}

func TestApproveDealRecordsAuditAndInvalidatesRollups(t *testing.T) {
	ctx := context.Background()
	uc, ms := newTestPortal(t)
	actor := Actor{ID: "admin-7", Type: domain.ActorAdmin}

	p := seedPartner(t, uc)
	d := seedDeal(t, uc, p.ID)
	assert.Equal(t, domain.DealStatusPendingApproval, d.Status)

	// Warm both rollup caches so the transition has something to drop.
	_, err := uc.GetOverview(ctx)
	require.NoError(t, err)
	_, err = uc.GetDealFunnel(ctx)
	require.NoError(t, err)

	approved, err := uc.ApproveDeal(ctx, actor, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusApproved, approved.Status)

	got, err := uc.GetDealByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusApproved, got.Status)

	// The deal moved between status buckets.
	inOld, err := ms.SIsMember(ctx, store.DimensionKey(store.TypeDeal, "status", "pending_approval"), d.ID)
	require.NoError(t, err)
	assert.False(t, inOld)
	inNew, err := ms.SIsMember(ctx, store.DimensionKey(store.TypeDeal, "status", "approved"), d.ID)
	require.NoError(t, err)
	assert.True(t, inNew)

	// Audit trail: registration plus the transition, with the
	// before/after pair on the status change.
	page, err := uc.ListAuditByEntity(ctx, store.TypeDeal, d.ID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	ev := findAudit(t, page.Items, domain.ActionStatusChanged)
	assert.Equal(t, "admin-7", ev.ActorID)
	assert.Equal(t, domain.ActorAdmin, ev.ActorType)
	require.Len(t, ev.Changes, 1)
	assert.Equal(t, domain.FieldChange{Field: "status", Before: "pending_approval", After: "approved"}, ev.Changes[0])
	findAudit(t, page.Items, domain.ActionCreated)

	// Both cached rollups were dropped by the transition.
	_, err = ms.Get(ctx, store.CacheKey(cacheOverview))
	assert.ErrorIs(t, err, store.ErrNoValue)
	_, err = ms.Get(ctx, store.CacheKey(cacheDealFunnel))
	assert.ErrorIs(t, err, store.ErrNoValue)

	// The next read recomputes from the moved buckets.
	overview, err := uc.GetOverview(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, overview.DealsByStatus[domain.DealStatusApproved])
	assert.EqualValues(t, 0, overview.DealsByStatus[domain.DealStatusPendingApproval])
}

func TestDealTransitionsGuardSourceStage(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	actor := SystemActor()

	p := seedPartner(t, uc)
	d := seedDeal(t, uc, p.ID)

	// Cannot close a deal that was never approved.
	_, err := uc.CloseDeal(ctx, actor, d.ID, true)
	assert.Error(t, err)

	_, err = uc.ApproveDeal(ctx, actor, d.ID)
	require.NoError(t, err)

	// Rejection only applies to pending deals.
	_, err = uc.RejectDeal(ctx, actor, d.ID)
	assert.Error(t, err)

	closed, err := uc.CloseDeal(ctx, actor, d.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusClosedWon, closed.Status)
}

func TestRegisterDealRequiresExistingPartner(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)

	err := uc.RegisterDeal(ctx, SystemActor(), &domain.Deal{
		PartnerID:    "PTN_ghost",
		CustomerName: "Globex GmbH",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDealFunnelCountsClosedDealsAsApproved(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	actor := SystemActor()
	p := seedPartner(t, uc)

	// Four deals: one pending, one approved, one won, one lost.
	deals := make([]*domain.Deal, 4)
	for i := range deals {
		deals[i] = seedDeal(t, uc, p.ID)
	}
	for _, d := range deals[1:] {
		_, err := uc.ApproveDeal(ctx, actor, d.ID)
		require.NoError(t, err)
	}
	_, err := uc.CloseDeal(ctx, actor, deals[2].ID, true)
	require.NoError(t, err)
	_, err = uc.CloseDeal(ctx, actor, deals[3].ID, false)
	require.NoError(t, err)

	m, err := uc.GetDealFunnel(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, m.Registered)
	assert.EqualValues(t, 3, m.Approved)
	assert.EqualValues(t, 1, m.Won)
	assert.InDelta(t, 0.25, m.DropoffRate, 0.001)
	assert.InDelta(t, 0.5, m.WinRate, 0.001)
}

func TestQuoteLifecycleThroughUsecase(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	actor := SystemActor()
	p := seedPartner(t, uc)
	d := seedDeal(t, uc, p.ID)

	q1 := &domain.Quote{DealID: d.ID, Total: 1000, Currency: "EUR"}
	require.NoError(t, uc.CreateQuote(ctx, actor, q1))
	assert.Equal(t, p.ID, q1.PartnerID, "quote inherits the deal's partner")
	assert.EqualValues(t, 1, q1.Version)
	assert.Equal(t, domain.QuoteStatusDraft, q1.Status)

	q2 := &domain.Quote{DealID: d.ID, Total: 900, Currency: "EUR"}
	require.NoError(t, uc.CreateQuote(ctx, actor, q2))
	assert.EqualValues(t, 2, q2.Version)

	latest, err := uc.GetLatestQuote(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, q2.ID, latest.ID)

	sent, err := uc.UpdateQuoteStatus(ctx, actor, q2.ID, domain.QuoteStatusSent)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusSent, sent.Status)

	page, err := uc.ListAuditByEntity(ctx, store.TypeQuote, q2.ID, "", 10)
	require.NoError(t, err)
	ev := findAudit(t, page.Items, domain.ActionStatusChanged)
	require.Len(t, ev.Changes, 1)
	assert.Equal(t, "status", ev.Changes[0].Field)
}
