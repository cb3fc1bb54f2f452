package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

func testDeal(id, partnerID string) *domain.Deal {
	return &domain.Deal{
		ID:           id,
		PartnerID:    partnerID,
		CustomerName: "Globex GmbH",
		Value:        48_000,
		Currency:     "EUR",
		Status:       domain.DealStatusPendingApproval,
		Tags:         []string{"expansion", "emea"},
	}
}

func TestDealStatusTransitionMovesBuckets(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewDealRepo(ms, zap.NewNop())

	require.NoError(t, repo.CreateDeal(ctx, testDeal("DEAL_01", "PTN_01")))

	ok, err := ms.SIsMember(ctx, dealStatusKey("pending_approval"), "DEAL_01")
	require.NoError(t, err)
	require.True(t, ok)

	approved := domain.DealStatusApproved
	updated, err := repo.UpdateDeal(ctx, "DEAL_01", domain.DealUpdate{Status: &approved})
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusApproved, updated.Status)

	ok, err = ms.SIsMember(ctx, dealStatusKey("pending_approval"), "DEAL_01")
	require.NoError(t, err)
	assert.False(t, ok, "left the old status bucket")
	ok, err = ms.SIsMember(ctx, dealStatusKey("approved"), "DEAL_01")
	require.NoError(t, err)
	assert.True(t, ok)

	// Partial update leaves other fields as stored.
	got, err := repo.GetDealByID(ctx, "DEAL_01")
	require.NoError(t, err)
	assert.Equal(t, "Globex GmbH", got.CustomerName)
	assert.Equal(t, []string{"expansion", "emea"}, got.Tags)
}

func TestDeleteDealDropsOwnedQuoteIndex(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewDealRepo(ms, zap.NewNop())

	require.NoError(t, repo.CreateDeal(ctx, testDeal("DEAL_01", "PTN_01")))
	require.NoError(t, ms.ZAdd(ctx, dealQuotesKey("DEAL_01"), "QTE_01", 1))

	require.NoError(t, repo.DeleteDeal(ctx, "DEAL_01"))

	_, err := repo.GetDealByID(ctx, "DEAL_01")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ok, err := ms.SIsMember(ctx, dealStatusKey("pending_approval"), "DEAL_01")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := ms.ZCard(ctx, dealQuotesKey("DEAL_01"))
	require.NoError(t, err)
	assert.Zero(t, n, "quote revision index dropped with the deal")

	n, err = ms.ZCard(ctx, partnerDealsKey("PTN_01"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuoteVersioningPerDeal(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	dealRepo := NewDealRepo(ms, zap.NewNop())
	quoteRepo := NewQuoteRepo(ms, zap.NewNop())

	require.NoError(t, dealRepo.CreateDeal(ctx, testDeal("DEAL_01", "PTN_01")))

	for i, id := range []string{"QTE_01", "QTE_02", "QTE_03"} {
		q := &domain.Quote{
			ID:        id,
			DealID:    "DEAL_01",
			PartnerID: "PTN_01",
			Status:    domain.QuoteStatusDraft,
			Currency:  "EUR",
			Total:     float64(10_000 * (i + 1)),
			LineItems: []domain.QuoteLineItem{{SKU: "SVC-STD", Quantity: int64(i + 1), UnitPrice: 10_000}},
		}
		require.NoError(t, quoteRepo.CreateQuote(ctx, q))
		assert.Equal(t, int64(i+1), q.Version, "versions auto-assign sequentially")
	}

	latest, err := quoteRepo.GetLatestQuote(ctx, "DEAL_01")
	require.NoError(t, err)
	assert.Equal(t, "QTE_03", latest.ID)

	page, err := quoteRepo.ListQuoteVersions(ctx, "DEAL_01", "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, int64(3), page.Items[0].Version, "newest revision first")
	assert.Equal(t, int64(1), page.Items[2].Version)
	assert.Equal(t, int64(3), page.Total)
}

func TestCreateDealPartialWriteSurfaces(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewDealRepo(ms, zap.NewNop())

	ms.FailWrites(dealStatusKey("pending_approval"), assert.AnError)

	err := repo.CreateDeal(ctx, testDeal("DEAL_01", "PTN_01"))
	require.Error(t, err)

	var partial *store.PartialWriteError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, store.TypeDeal, partial.EntityType)
	assert.Equal(t, "DEAL_01", partial.EntityID)
	require.NotEmpty(t, partial.Failed)
	assert.Equal(t, dealStatusKey("pending_approval"), partial.Failed[0].Key)

	// The rest of the batch still applied; the record is readable.
	_, err = repo.GetDealByID(ctx, "DEAL_01")
	assert.NoError(t, err)
}
