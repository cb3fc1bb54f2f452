package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partner-portal/internal/domain"
)

func TestCommissionPeriodRollupCoversFullMembership(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)

	// Well past one scan page, with every status bucket represented.
	seed := func(n int, status domain.CommissionStatus, amount float64) {
		for i := 0; i < n; i++ {
			c := &domain.Commission{
				PartnerID: p.ID,
				Amount:    amount,
				Currency:  "EUR",
				Status:    status,
				Period:    "2026-08",
			}
			require.NoError(t, uc.CreateCommission(ctx, SystemActor(), c))
		}
	}
	seed(60, domain.CommissionStatusPending, 10)
	seed(40, domain.CommissionStatusPaid, 5)
	seed(20, domain.CommissionStatusClawedBack, 1)

	m, err := uc.GetCommissionPeriod(ctx, "2026-08")
	require.NoError(t, err)
	assert.EqualValues(t, 120, m.Count)
	assert.InDelta(t, 600, m.PendingOut, 0.001)
	assert.InDelta(t, 200, m.PaidOut, 0.001)
	assert.InDelta(t, 20, m.ClaimedBack, 0.001)

	// A neighboring period stays empty.
	empty, err := uc.GetCommissionPeriod(ctx, "2026-09")
	require.NoError(t, err)
	assert.EqualValues(t, 0, empty.Count)

	_, err = uc.GetCommissionPeriod(ctx, "August 2026")
	assert.Error(t, err)
}

func TestCommissionPeriodCacheDropsOnNewCommission(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestPortal(t)
	p := seedPartner(t, uc)

	first := &domain.Commission{PartnerID: p.ID, Amount: 100, Currency: "EUR", Period: "2026-08"}
	require.NoError(t, uc.CreateCommission(ctx, SystemActor(), first))

	m, err := uc.GetCommissionPeriod(ctx, "2026-08")
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Count)

	second := &domain.Commission{PartnerID: p.ID, Amount: 50, Currency: "EUR", Period: "2026-08"}
	require.NoError(t, uc.CreateCommission(ctx, SystemActor(), second))

	m, err = uc.GetCommissionPeriod(ctx, "2026-08")
	require.NoError(t, err)
	assert.EqualValues(t, 2, m.Count)
	assert.InDelta(t, 150, m.PendingOut, 0.001)
}
