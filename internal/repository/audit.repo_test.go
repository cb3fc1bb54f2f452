package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

func TestRecordEventLandsInAllThreeViews(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewAuditRepo(ms, zap.NewNop())

	ev := &domain.AuditEvent{
		ActorID:    "PUSR_01",
		ActorType:  domain.ActorPartnerUser,
		Action:     domain.ActionStatusChanged,
		EntityType: store.TypeDeal,
		EntityID:   "DEAL_01",
		Changes: []domain.FieldChange{
			{Field: "status", Before: "pending_approval", After: "approved"},
		},
	}
	require.NoError(t, repo.RecordEvent(ctx, ev))
	require.NotEmpty(t, ev.ID, "id assigned on record")

	for _, key := range []string{
		store.AuditEntityKey(store.TypeDeal, "DEAL_01"),
		store.AuditActorKey("PUSR_01"),
		store.AuditActionKey(domain.ActionStatusChanged),
	} {
		ids, err := ms.ZRevRange(ctx, key, 0, -1)
		require.NoError(t, err)
		assert.Contains(t, ids, ev.ID, "event missing from %s", key)
	}

	got, err := repo.GetEventByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "PUSR_01", got.ActorID)
	require.Len(t, got.Changes, 1)
	assert.Equal(t, "approved", got.Changes[0].After)
}

func TestRecordEventPartialWriteIsReported(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewAuditRepo(ms, zap.NewNop())

	ms.FailWrites(store.AuditActorKey("PUSR_01"), assert.AnError)

	ev := &domain.AuditEvent{
		ActorID:    "PUSR_01",
		ActorType:  domain.ActorPartnerUser,
		Action:     domain.ActionCreated,
		EntityType: store.TypeDeal,
		EntityID:   "DEAL_01",
	}
	err := repo.RecordEvent(ctx, ev)
	require.Error(t, err)

	var partial *store.PartialWriteError
	require.ErrorAs(t, err, &partial)
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, store.AuditActorKey("PUSR_01"), partial.Failed[0].Key)
}

func TestListEventsByEntityNewestFirst(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	repo := NewAuditRepo(ms, zap.NewNop())

	base := time.Now().Add(-time.Hour)
	actions := []string{domain.ActionCreated, domain.ActionUpdated, domain.ActionStatusChanged}
	for i, action := range actions {
		ev := &domain.AuditEvent{
			ActorID:    "admin-1",
			ActorType:  domain.ActorAdmin,
			Action:     action,
			EntityType: store.TypePartner,
			EntityID:   "PTN_01",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.RecordEvent(ctx, ev))
	}

	page, err := repo.ListEventsByEntity(ctx, store.TypePartner, "PTN_01", "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, domain.ActionStatusChanged, page.Items[0].Action)
	assert.Equal(t, domain.ActionUpdated, page.Items[1].Action)
	require.True(t, page.HasMore)

	page, err = repo.ListEventsByEntity(ctx, store.TypePartner, "PTN_01", page.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.ActionCreated, page.Items[0].Action)

	byActor, err := repo.ListEventsByActor(ctx, "admin-1", "", 10)
	require.NoError(t, err)
	assert.Len(t, byActor.Items, 3)

	byAction, err := repo.ListEventsByAction(ctx, domain.ActionUpdated, "", 10)
	require.NoError(t, err)
	require.Len(t, byAction.Items, 1)
	assert.Equal(t, "PTN_01", byAction.Items[0].EntityID)
}
