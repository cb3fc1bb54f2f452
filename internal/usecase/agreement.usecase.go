package usecase

import (
	"context"
	"errors"
	"time"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
	"partner-portal/pkg/id"
)

// ---------------- Legal documents ----------------

func (uc *PortalUsecase) CreateDocument(ctx context.Context, actor Actor, d *domain.LegalDocument) error {
	if d.PartnerID == "" {
		return errors.New("document partner_id cannot be empty")
	}
	if d.Title == "" {
		return errors.New("document title cannot be empty")
	}
	if d.Category == "" {
		return errors.New("document category cannot be empty")
	}
	if _, err := uc.partnerRepo.GetPartnerByID(ctx, d.PartnerID); err != nil {
		return err
	}
	if d.ID == "" {
		d.ID = id.New(id.PrefixDocument)
	}
	if d.Status == "" {
		d.Status = domain.DocumentStatusDraft
	}
	if d.Version == 0 {
		d.Version = 1
	}

	if err := uc.documentRepo.CreateDocument(ctx, d); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeDocument, d.ID, nil)
	uc.publishMutation(ctx, actor, "document.created", store.TypeDocument, d.ID)
	return nil
}

func (uc *PortalUsecase) GetDocumentByID(ctx context.Context, docID string) (*domain.LegalDocument, error) {
	if docID == "" {
		return nil, errors.New("invalid document id")
	}
	return uc.documentRepo.GetDocumentByID(ctx, docID)
}

func (uc *PortalUsecase) UpdateDocumentStatus(ctx context.Context, actor Actor, docID string, status domain.DocumentStatus) (*domain.LegalDocument, error) {
	if docID == "" {
		return nil, errors.New("missing document id")
	}
	old, err := uc.documentRepo.GetDocumentByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	updated, err := uc.documentRepo.UpdateDocumentStatus(ctx, docID, status)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionStatusChanged, store.TypeDocument, docID, []domain.FieldChange{
		{Field: "status", Before: string(old.Status), After: string(updated.Status)},
	})
	return updated, nil
}

func (uc *PortalUsecase) DeleteDocument(ctx context.Context, actor Actor, docID string) error {
	if docID == "" {
		return errors.New("invalid document id")
	}
	if err := uc.documentRepo.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypeDocument, docID, nil)
	return nil
}

func (uc *PortalUsecase) ListDocumentsByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.LegalDocument], error) {
	if partnerID == "" {
		return domain.Page[*domain.LegalDocument]{}, errors.New("invalid partner id")
	}
	return uc.documentRepo.ListDocumentsByPartner(ctx, partnerID, cursor, limit)
}

func (uc *PortalUsecase) ListDocumentsByStatus(ctx context.Context, status domain.DocumentStatus, cursor string, limit int64) (domain.Page[*domain.LegalDocument], error) {
	return uc.documentRepo.ListDocumentsByStatusPage(ctx, status, cursor, limit)
}

func (uc *PortalUsecase) ListDocumentsByCategory(ctx context.Context, category domain.DocumentCategory, cursor string, limit int64) (domain.Page[*domain.LegalDocument], error) {
	return uc.documentRepo.ListDocumentsByCategoryPage(ctx, category, cursor, limit)
}

// ---------------- Certifications ----------------

func (uc *PortalUsecase) CreateCertification(ctx context.Context, actor Actor, c *domain.Certification) error {
	if c.PartnerID == "" {
		return errors.New("certification partner_id cannot be empty")
	}
	if c.Name == "" {
		return errors.New("certification name cannot be empty")
	}
	if _, err := uc.partnerRepo.GetPartnerByID(ctx, c.PartnerID); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = id.New(id.PrefixCertification)
	}
	if c.Status == "" {
		c.Status = domain.CertificationStatusInProgress
	}

	if err := uc.certRepo.CreateCertification(ctx, c); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeCertification, c.ID, nil)
	return nil
}

func (uc *PortalUsecase) GetCertificationByID(ctx context.Context, certID string) (*domain.Certification, error) {
	if certID == "" {
		return nil, errors.New("invalid certification id")
	}
	return uc.certRepo.GetCertificationByID(ctx, certID)
}

// AwardCertification marks a certification earned with the final score.
func (uc *PortalUsecase) AwardCertification(ctx context.Context, actor Actor, certID string, score float64) (*domain.Certification, error) {
	if certID == "" {
		return nil, errors.New("missing certification id")
	}
	updated, err := uc.certRepo.UpdateCertificationStatus(ctx, certID, domain.CertificationStatusEarned, score)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionStatusChanged, store.TypeCertification, certID, []domain.FieldChange{
		{Field: "status", Before: string(domain.CertificationStatusInProgress), After: string(domain.CertificationStatusEarned)},
	})
	return updated, nil
}

func (uc *PortalUsecase) ExpireCertification(ctx context.Context, actor Actor, certID string) (*domain.Certification, error) {
	if certID == "" {
		return nil, errors.New("missing certification id")
	}
	old, err := uc.certRepo.GetCertificationByID(ctx, certID)
	if err != nil {
		return nil, err
	}
	updated, err := uc.certRepo.UpdateCertificationStatus(ctx, certID, domain.CertificationStatusExpired, old.Score)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionStatusChanged, store.TypeCertification, certID, []domain.FieldChange{
		{Field: "status", Before: string(old.Status), After: string(domain.CertificationStatusExpired)},
	})
	return updated, nil
}

func (uc *PortalUsecase) DeleteCertification(ctx context.Context, actor Actor, certID string) error {
	if certID == "" {
		return errors.New("invalid certification id")
	}
	if err := uc.certRepo.DeleteCertification(ctx, certID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypeCertification, certID, nil)
	return nil
}

func (uc *PortalUsecase) ListCertificationsByPartner(ctx context.Context, partnerID string, limit int64) ([]*domain.Certification, error) {
	if partnerID == "" {
		return nil, errors.New("invalid partner id")
	}
	return uc.certRepo.ListCertificationsByPartner(ctx, partnerID, limit)
}

// ---------------- Commissions ----------------

func (uc *PortalUsecase) CreateCommission(ctx context.Context, actor Actor, c *domain.Commission) error {
	if c.PartnerID == "" {
		return errors.New("commission partner_id cannot be empty")
	}
	if c.Amount <= 0 {
		return errors.New("commission amount must be positive")
	}
	if c.DealID != "" {
		deal, err := uc.dealRepo.GetDealByID(ctx, c.DealID)
		if err != nil {
			return err
		}
		if deal.Status != domain.DealStatusClosedWon {
			return errors.New("commission requires a closed_won deal")
		}
	}
	if c.ID == "" {
		c.ID = id.New(id.PrefixCommission)
	}
	if c.Status == "" {
		c.Status = domain.CommissionStatusPending
	}

	if err := uc.commissionRepo.CreateCommission(ctx, c); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeCommission, c.ID, nil)
	uc.invalidate(ctx, commissionPeriodCacheName(c.Period))
	return nil
}

func (uc *PortalUsecase) GetCommissionByID(ctx context.Context, commissionID string) (*domain.Commission, error) {
	if commissionID == "" {
		return nil, errors.New("invalid commission id")
	}
	return uc.commissionRepo.GetCommissionByID(ctx, commissionID)
}

func (uc *PortalUsecase) UpdateCommissionStatus(ctx context.Context, actor Actor, commissionID string, status domain.CommissionStatus) (*domain.Commission, error) {
	if commissionID == "" {
		return nil, errors.New("missing commission id")
	}
	old, err := uc.commissionRepo.GetCommissionByID(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	updated, err := uc.commissionRepo.UpdateCommissionStatus(ctx, commissionID, status)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionStatusChanged, store.TypeCommission, commissionID, []domain.FieldChange{
		{Field: "status", Before: string(old.Status), After: string(updated.Status)},
	})
	uc.invalidate(ctx, commissionPeriodCacheName(updated.Period))
	return updated, nil
}

func (uc *PortalUsecase) DeleteCommission(ctx context.Context, actor Actor, commissionID string) error {
	if commissionID == "" {
		return errors.New("invalid commission id")
	}
	old, err := uc.commissionRepo.GetCommissionByID(ctx, commissionID)
	if err != nil {
		return err
	}
	if err := uc.commissionRepo.DeleteCommission(ctx, commissionID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypeCommission, commissionID, nil)
	uc.invalidate(ctx, commissionPeriodCacheName(old.Period))
	return nil
}

func (uc *PortalUsecase) ListCommissionsByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.Commission], error) {
	if partnerID == "" {
		return domain.Page[*domain.Commission]{}, errors.New("invalid partner id")
	}
	return uc.commissionRepo.ListCommissionsByPartner(ctx, partnerID, cursor, limit)
}

func (uc *PortalUsecase) ListCommissionsByPeriod(ctx context.Context, period string, limit int64) ([]*domain.Commission, error) {
	if _, err := time.Parse("2006-01", period); err != nil {
		return nil, errors.New("invalid period, want YYYY-MM")
	}
	return uc.commissionRepo.ListCommissionsByPeriod(ctx, period, limit)
}
