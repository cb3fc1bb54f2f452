package usecase

import (
	"context"
	"errors"

	"partner-portal/internal/domain"
	"partner-portal/internal/events"
	"partner-portal/internal/store"
	"partner-portal/pkg/id"
)

// ---------------- Deals ----------------

func (uc *PortalUsecase) RegisterDeal(ctx context.Context, actor Actor, d *domain.Deal) error {
	if d.PartnerID == "" {
		return errors.New("deal partner_id cannot be empty")
	}
	if d.CustomerName == "" {
		return errors.New("deal customer_name cannot be empty")
	}
	if _, err := uc.partnerRepo.GetPartnerByID(ctx, d.PartnerID); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = id.New(id.PrefixDeal)
	}
	if d.Status == "" {
		d.Status = domain.DealStatusPendingApproval
	}

	if err := uc.dealRepo.CreateDeal(ctx, d); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeDeal, d.ID, nil)
	uc.invalidate(ctx, cacheOverview, cacheDealFunnel)
	uc.publishMutation(ctx, actor, "deal.created", store.TypeDeal, d.ID)
	return nil
}

func (uc *PortalUsecase) GetDealByID(ctx context.Context, dealID string) (*domain.Deal, error) {
	if dealID == "" {
		return nil, errors.New("invalid deal id")
	}
	return uc.dealRepo.GetDealByID(ctx, dealID)
}

func (uc *PortalUsecase) UpdateDeal(ctx context.Context, actor Actor, dealID string, upd domain.DealUpdate) (*domain.Deal, error) {
	if dealID == "" {
		return nil, errors.New("missing deal id")
	}

	old, err := uc.dealRepo.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}

	updated, err := uc.dealRepo.UpdateDeal(ctx, dealID, upd)
	if err != nil {
		return nil, err
	}

	if old.Status != updated.Status {
		uc.recordAudit(ctx, actor, domain.ActionStatusChanged, store.TypeDeal, dealID, []domain.FieldChange{
			{Field: "status", Before: string(old.Status), After: string(updated.Status)},
		})
		if uc.publisher != nil {
			_ = uc.publisher.PublishDealStatus(ctx, &events.DealStatusEvent{
				DealID:    dealID,
				PartnerID: updated.PartnerID,
				Before:    string(old.Status),
				After:     string(updated.Status),
				Value:     updated.Value,
				Currency:  updated.Currency,
			})
		}
	} else {
		uc.recordAudit(ctx, actor, domain.ActionUpdated, store.TypeDeal, dealID, nil)
	}
	uc.invalidate(ctx, cacheOverview, cacheDealFunnel)
	return updated, nil
}

// ApproveDeal moves a pending deal into the approved stage.
func (uc *PortalUsecase) ApproveDeal(ctx context.Context, actor Actor, dealID string) (*domain.Deal, error) {
	return uc.transitionDeal(ctx, actor, dealID, domain.DealStatusApproved, domain.DealStatusPendingApproval)
}

// RejectDeal moves a pending deal into the rejected stage.
func (uc *PortalUsecase) RejectDeal(ctx context.Context, actor Actor, dealID string) (*domain.Deal, error) {
	return uc.transitionDeal(ctx, actor, dealID, domain.DealStatusRejected, domain.DealStatusPendingApproval)
}

// CloseDeal records the outcome of an approved deal.
func (uc *PortalUsecase) CloseDeal(ctx context.Context, actor Actor, dealID string, won bool) (*domain.Deal, error) {
	target := domain.DealStatusClosedLost
	if won {
		target = domain.DealStatusClosedWon
	}
	return uc.transitionDeal(ctx, actor, dealID, target, domain.DealStatusApproved)
}

func (uc *PortalUsecase) transitionDeal(ctx context.Context, actor Actor, dealID string, target, from domain.DealStatus) (*domain.Deal, error) {
	if dealID == "" {
		return nil, errors.New("invalid deal id")
	}
	old, err := uc.dealRepo.GetDealByID(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if old.Status != from {
		return nil, errors.New("deal is not in " + string(from))
	}
	return uc.UpdateDeal(ctx, actor, dealID, domain.DealUpdate{Status: &target})
}

func (uc *PortalUsecase) DeleteDeal(ctx context.Context, actor Actor, dealID string) error {
	if dealID == "" {
		return errors.New("invalid deal id")
	}
	if err := uc.dealRepo.DeleteDeal(ctx, dealID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypeDeal, dealID, nil)
	uc.invalidate(ctx, cacheOverview, cacheDealFunnel)
	uc.publishMutation(ctx, actor, "deal.deleted", store.TypeDeal, dealID)
	return nil
}

func (uc *PortalUsecase) ListDealsByStatus(ctx context.Context, status domain.DealStatus, cursor string, limit int64) (domain.Page[*domain.Deal], error) {
	return uc.dealRepo.ListDealsByStatusPage(ctx, status, cursor, limit)
}

func (uc *PortalUsecase) ListDealsByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.Deal], error) {
	if partnerID == "" {
		return domain.Page[*domain.Deal]{}, errors.New("invalid partner id")
	}
	return uc.dealRepo.ListDealsByPartner(ctx, partnerID, cursor, limit)
}

func (uc *PortalUsecase) ListAllDeals(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Deal], error) {
	return uc.dealRepo.ListAllDeals(ctx, cursor, limit)
}

// ---------------- Quotes ----------------

func (uc *PortalUsecase) CreateQuote(ctx context.Context, actor Actor, q *domain.Quote) error {
	if q.DealID == "" {
		return errors.New("quote deal_id cannot be empty")
	}
	deal, err := uc.dealRepo.GetDealByID(ctx, q.DealID)
	if err != nil {
		return err
	}
	if q.PartnerID == "" {
		q.PartnerID = deal.PartnerID
	}
	if q.ID == "" {
		q.ID = id.New(id.PrefixQuote)
	}
	if q.Status == "" {
		q.Status = domain.QuoteStatusDraft
	}

	if err := uc.quoteRepo.CreateQuote(ctx, q); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeQuote, q.ID, nil)
	uc.publishMutation(ctx, actor, "quote.created", store.TypeQuote, q.ID)
	return nil
}

func (uc *PortalUsecase) GetQuoteByID(ctx context.Context, quoteID string) (*domain.Quote, error) {
	if quoteID == "" {
		return nil, errors.New("invalid quote id")
	}
	return uc.quoteRepo.GetQuoteByID(ctx, quoteID)
}

func (uc *PortalUsecase) UpdateQuoteStatus(ctx context.Context, actor Actor, quoteID string, status domain.QuoteStatus) (*domain.Quote, error) {
	if quoteID == "" {
		return nil, errors.New("missing quote id")
	}
	old, err := uc.quoteRepo.GetQuoteByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	updated, err := uc.quoteRepo.UpdateQuoteStatus(ctx, quoteID, status)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionStatusChanged, store.TypeQuote, quoteID, []domain.FieldChange{
		{Field: "status", Before: string(old.Status), After: string(updated.Status)},
	})
	return updated, nil
}

func (uc *PortalUsecase) DeleteQuote(ctx context.Context, actor Actor, quoteID string) error {
	if quoteID == "" {
		return errors.New("invalid quote id")
	}
	if err := uc.quoteRepo.DeleteQuote(ctx, quoteID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypeQuote, quoteID, nil)
	return nil
}

func (uc *PortalUsecase) ListQuoteVersions(ctx context.Context, dealID, cursor string, limit int64) (domain.Page[*domain.Quote], error) {
	if dealID == "" {
		return domain.Page[*domain.Quote]{}, errors.New("invalid deal id")
	}
	return uc.quoteRepo.ListQuoteVersions(ctx, dealID, cursor, limit)
}

func (uc *PortalUsecase) GetLatestQuote(ctx context.Context, dealID string) (*domain.Quote, error) {
	if dealID == "" {
		return nil, errors.New("invalid deal id")
	}
	return uc.quoteRepo.GetLatestQuote(ctx, dealID)
}

func (uc *PortalUsecase) ListQuotesByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.Quote], error) {
	if partnerID == "" {
		return domain.Page[*domain.Quote]{}, errors.New("invalid partner id")
	}
	return uc.quoteRepo.ListQuotesByPartner(ctx, partnerID, cursor, limit)
}
