package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"partner-portal/internal/domain"
	"partner-portal/internal/events"
	"partner-portal/internal/store"
	"partner-portal/pkg/id"
)

// ---------------- Partner ----------------

func (uc *PortalUsecase) CreatePartner(ctx context.Context, actor Actor, p *domain.Partner) error {
	if p.Name == "" {
		return errors.New("partner name cannot be empty")
	}
	if p.ContactEmail == "" {
		return errors.New("partner contact_email cannot be empty")
	}
	if p.ID == "" {
		p.ID = id.New(id.PrefixPartner)
	}
	if p.Status == "" {
		p.Status = domain.PartnerStatusPending
	}
	if p.Tier == "" {
		p.Tier = domain.TierBronze
	}

	if err := uc.partnerRepo.CreatePartner(ctx, p); err != nil {
		return err
	}

	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypePartner, p.ID, nil)
	uc.invalidate(ctx, cacheOverview)
	uc.publishMutation(ctx, actor, "partner.created", store.TypePartner, p.ID)
	return nil
}

func (uc *PortalUsecase) GetPartnerByID(ctx context.Context, partnerID string) (*domain.Partner, error) {
	if partnerID == "" {
		return nil, errors.New("invalid partner id")
	}
	return uc.partnerRepo.GetPartnerByID(ctx, partnerID)
}

func (uc *PortalUsecase) GetPartnerByEmail(ctx context.Context, email string) (*domain.Partner, error) {
	if email == "" {
		return nil, errors.New("invalid partner email")
	}
	return uc.partnerRepo.GetPartnerByEmail(ctx, email)
}

func (uc *PortalUsecase) UpdatePartner(ctx context.Context, actor Actor, partnerID string, upd domain.PartnerUpdate) (*domain.Partner, error) {
	if partnerID == "" {
		return nil, errors.New("missing partner id")
	}

	old, err := uc.partnerRepo.GetPartnerByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	updated, err := uc.partnerRepo.UpdatePartner(ctx, partnerID, upd)
	if err != nil {
		return nil, err
	}

	changes := partnerChanges(old, updated)
	action := domain.ActionUpdated
	if old.Status != updated.Status {
		action = domain.ActionStatusChanged
	} else if old.Tier != updated.Tier {
		action = domain.ActionTierChanged
	}
	uc.recordAudit(ctx, actor, action, store.TypePartner, partnerID, changes)
	uc.invalidate(ctx, cacheOverview)

	if uc.publisher != nil {
		if old.Status != updated.Status {
			_ = uc.publisher.PublishPartnerLifecycle(ctx, &events.PartnerLifecycleEvent{
				PartnerID: partnerID,
				Field:     "status",
				Before:    string(old.Status),
				After:     string(updated.Status),
			})
		}
		if old.Tier != updated.Tier {
			_ = uc.publisher.PublishPartnerLifecycle(ctx, &events.PartnerLifecycleEvent{
				PartnerID: partnerID,
				Field:     "tier",
				Before:    string(old.Tier),
				After:     string(updated.Tier),
			})
		}
	}
	return updated, nil
}

func (uc *PortalUsecase) DeletePartner(ctx context.Context, actor Actor, partnerID string) error {
	if partnerID == "" {
		return errors.New("invalid partner id")
	}
	if err := uc.partnerRepo.DeletePartner(ctx, partnerID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypePartner, partnerID, nil)
	uc.invalidate(ctx, cacheOverview)
	uc.publishMutation(ctx, actor, "partner.deleted", store.TypePartner, partnerID)
	return nil
}

func (uc *PortalUsecase) ListPartnersByStatus(ctx context.Context, status domain.PartnerStatus, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	return uc.partnerRepo.ListPartnersByStatusPage(ctx, status, cursor, limit)
}

func (uc *PortalUsecase) ListPartnersByTier(ctx context.Context, tier domain.PartnerTier, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	return uc.partnerRepo.ListPartnersByTierPage(ctx, tier, cursor, limit)
}

func (uc *PortalUsecase) ListPartnersByCountry(ctx context.Context, country, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	return uc.partnerRepo.ListPartnersByCountryPage(ctx, country, cursor, limit)
}

func (uc *PortalUsecase) ListAllPartners(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	return uc.partnerRepo.ListAllPartners(ctx, cursor, limit)
}

func (uc *PortalUsecase) ListTopRatedPartners(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Partner], error) {
	return uc.partnerRepo.ListTopRatedPartners(ctx, cursor, limit)
}

func partnerChanges(old, next *domain.Partner) []domain.FieldChange {
	var changes []domain.FieldChange
	add := func(field, before, after string) {
		if before != after {
			changes = append(changes, domain.FieldChange{Field: field, Before: before, After: after})
		}
	}
	add("name", old.Name, next.Name)
	add("contact_email", old.ContactEmail, next.ContactEmail)
	add("country", old.Country, next.Country)
	add("status", string(old.Status), string(next.Status))
	add("tier", string(old.Tier), string(next.Tier))
	add("rating", fmt.Sprintf("%g", old.Rating), fmt.Sprintf("%g", next.Rating))
	return changes
}

// ---------------- Partner users ----------------

func (uc *PortalUsecase) CreatePartnerUser(ctx context.Context, actor Actor, u *domain.PartnerUser) error {
	if u.PartnerID == "" {
		return errors.New("partner_user partner_id cannot be empty")
	}
	if u.Email == "" {
		return errors.New("partner_user email cannot be empty")
	}
	if u.ID == "" {
		u.ID = id.New(id.PrefixPartnerUser)
	}
	if u.Role == "" {
		u.Role = domain.PartnerUserRoleUser
	}

	if err := uc.userRepo.CreatePartnerUser(ctx, u); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypePartnerUser, u.ID, nil)
	uc.publishMutation(ctx, actor, "partner_user.created", store.TypePartnerUser, u.ID)
	return nil
}

func (uc *PortalUsecase) GetPartnerUserByID(ctx context.Context, userID string) (*domain.PartnerUser, error) {
	if userID == "" {
		return nil, errors.New("invalid partner_user id")
	}
	return uc.userRepo.GetPartnerUserByID(ctx, userID)
}

func (uc *PortalUsecase) GetPartnerUserByEmail(ctx context.Context, email string) (*domain.PartnerUser, error) {
	if email == "" {
		return nil, errors.New("invalid partner_user email")
	}
	return uc.userRepo.GetPartnerUserByEmail(ctx, email)
}

func (uc *PortalUsecase) UpdatePartnerUser(ctx context.Context, actor Actor, userID string, role domain.PartnerUserRole, active bool) (*domain.PartnerUser, error) {
	if userID == "" {
		return nil, errors.New("missing partner_user id")
	}
	updated, err := uc.userRepo.UpdatePartnerUser(ctx, userID, role, active)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionUpdated, store.TypePartnerUser, userID, nil)
	return updated, nil
}

func (uc *PortalUsecase) DeletePartnerUser(ctx context.Context, actor Actor, userID string) error {
	if userID == "" {
		return errors.New("invalid partner_user id")
	}
	if err := uc.userRepo.DeletePartnerUser(ctx, userID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypePartnerUser, userID, nil)
	return nil
}

func (uc *PortalUsecase) ListPartnerUsers(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.PartnerUser], error) {
	if partnerID == "" {
		return domain.Page[*domain.PartnerUser]{}, errors.New("invalid partner id")
	}
	return uc.userRepo.ListPartnerUsersPage(ctx, partnerID, cursor, limit)
}

// ---------------- Credentials ----------------

// IssueCredential mints a new API key for a partner. The plaintext key is
// returned exactly once; only its hash is persisted.
func (uc *PortalUsecase) IssueCredential(ctx context.Context, actor Actor, partnerID, label string, scopes []string) (string, *domain.Credential, error) {
	if partnerID == "" {
		return "", nil, errors.New("invalid partner id")
	}
	if _, err := uc.partnerRepo.GetPartnerByID(ctx, partnerID); err != nil {
		return "", nil, err
	}

	plaintext := "pk_" + uuid.NewString()
	sum := sha256.Sum256([]byte(plaintext))

	cred := &domain.Credential{
		ID:        id.New(id.PrefixCredential),
		PartnerID: partnerID,
		Label:     label,
		KeyHash:   hex.EncodeToString(sum[:]),
		Scopes:    scopes,
		Active:    true,
	}
	if err := uc.credentialRepo.CreateCredential(ctx, cred); err != nil {
		return "", nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionCreated, store.TypeCredential, cred.ID, nil)
	return plaintext, cred, nil
}

func (uc *PortalUsecase) RevokeCredential(ctx context.Context, actor Actor, credentialID string) (*domain.Credential, error) {
	if credentialID == "" {
		return nil, errors.New("invalid credential id")
	}
	cred, err := uc.credentialRepo.SetCredentialActive(ctx, credentialID, false)
	if err != nil {
		return nil, err
	}
	uc.recordAudit(ctx, actor, domain.ActionUpdated, store.TypeCredential, credentialID, []domain.FieldChange{
		{Field: "is_active", Before: "true", After: "false"},
	})
	return cred, nil
}

func (uc *PortalUsecase) DeleteCredential(ctx context.Context, actor Actor, credentialID string) error {
	if credentialID == "" {
		return errors.New("invalid credential id")
	}
	if err := uc.credentialRepo.DeleteCredential(ctx, credentialID); err != nil {
		return err
	}
	uc.recordAudit(ctx, actor, domain.ActionDeleted, store.TypeCredential, credentialID, nil)
	return nil
}

func (uc *PortalUsecase) ListCredentialsByPartner(ctx context.Context, partnerID string, limit int64) ([]*domain.Credential, error) {
	if partnerID == "" {
		return nil, errors.New("invalid partner id")
	}
	return uc.credentialRepo.ListCredentialsByPartner(ctx, partnerID, limit)
}
