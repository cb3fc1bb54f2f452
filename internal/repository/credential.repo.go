package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"partner-portal/internal/domain"
	"partner-portal/internal/store"
)

// CredentialRepo persists partner API credentials, indexed under their
// partner, by active state, and globally by issue order.
type CredentialRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewCredentialRepo(s store.Store, logger *zap.Logger) *CredentialRepo {
	return &CredentialRepo{store: s, logger: logger}
}

func partnerCredentialsKey(partnerID string) string {
	return store.ChildKey(store.TypePartner, partnerID, "credentials")
}

func credentialActiveKey(v string) string {
	return store.DimensionKey(store.TypeCredential, "active", v)
}

func encodeCredential(c *domain.Credential) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", c.ID)
	fm.SetString("partner_id", c.PartnerID)
	fm.SetString("label", c.Label)
	fm.SetString("key_hash", c.KeyHash)
	if err := fm.SetJSON("scopes", c.Scopes); err != nil {
		return nil, err
	}
	fm.SetBool("is_active", c.Active)
	fm.SetTime("last_used_at", c.LastUsedAt)
	fm.SetTime("created_at", c.CreatedAt)
	return fm, nil
}

func decodeCredential(fields map[string]string) (*domain.Credential, error) {
	d := store.NewDecoder(fields)
	if !d.Exists("id") {
		return nil, domain.ErrNotFound
	}
	c := &domain.Credential{
		ID:         d.String("id"),
		PartnerID:  d.String("partner_id"),
		Label:      d.String("label"),
		KeyHash:    d.String("key_hash"),
		Active:     d.Bool("is_active"),
		LastUsedAt: d.Time("last_used_at"),
		CreatedAt:  d.Time("created_at"),
	}
	d.JSON("scopes", &c.Scopes)
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("credential %s: %w", c.ID, err)
	}
	return c, nil
}

func credentialActiveValue(active bool) string {
	if active {
		return "true"
	}
	return "false"
}

func credentialDeltas(old, c *domain.Credential) []IndexDelta {
	var oldActive string
	if old != nil {
		oldActive = credentialActiveValue(old.Active)
	}
	var diff indexDiff
	diff.Membership(credentialActiveKey, oldActive, credentialActiveValue(c.Active), c.ID)
	diff.Ordered(store.AllKey(store.TypeCredential), c.ID, float64(c.CreatedAt.UnixMilli()))
	if old == nil {
		diff.Add(partnerCredentialsKey(c.PartnerID), c.ID)
		diff.Lookup("", store.CredentialHashKey(c.KeyHash), c.ID)
	}
	return diff.deltas
}

func (r *CredentialRepo) CreateCredential(ctx context.Context, c *domain.Credential) error {
	if err := validID(store.TypeCredential, c.ID); err != nil {
		return err
	}
	if c.PartnerID == "" {
		return errors.New("credential partner_id is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	fm, err := encodeCredential(c)
	if err != nil {
		return err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCredential, c.ID), fm)
	diff := indexDiff{deltas: credentialDeltas(nil, c)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create credential %s: %w", c.ID, err)
	}
	if err := store.CheckBatch(store.TypeCredential, c.ID, res); err != nil {
		r.logger.Error("credential create left indexes inconsistent", zap.String("credential_id", c.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *CredentialRepo) GetCredentialByID(ctx context.Context, id string) (*domain.Credential, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeCredential, id))
	if err != nil {
		return nil, fmt.Errorf("get credential %s: %w", id, err)
	}
	c, err := decodeCredential(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("credential %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return c, nil
}

// GetCredentialByKeyHash resolves a presented API key (already hashed) to
// its credential record, for request authentication.
func (r *CredentialRepo) GetCredentialByKeyHash(ctx context.Context, keyHash string) (*domain.Credential, error) {
	id, err := r.store.Get(ctx, store.CredentialHashKey(keyHash))
	if err != nil {
		if errors.Is(err, store.ErrNoValue) {
			return nil, fmt.Errorf("credential by key hash: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("credential by key hash: %w", err)
	}
	return r.GetCredentialByID(ctx, id)
}

// SetCredentialActive enables or revokes a credential, moving it between
// the active buckets.
func (r *CredentialRepo) SetCredentialActive(ctx context.Context, id string, active bool) (*domain.Credential, error) {
	old, err := r.GetCredentialByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update credential %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	next.Active = active

	fm, err := encodeCredential(&next)
	if err != nil {
		return nil, err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCredential, id), fm)
	diff := indexDiff{deltas: credentialDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update credential %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeCredential, id, res); err != nil {
		r.logger.Error("credential update left indexes inconsistent", zap.String("credential_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

// TouchCredential stamps last use. Not indexed, but the write still
// refreshes the ordered memberships like any other.
func (r *CredentialRepo) TouchCredential(ctx context.Context, id string) error {
	old, err := r.GetCredentialByID(ctx, id)
	if err != nil {
		return err
	}
	next := *old
	next.LastUsedAt = time.Now()

	fm, err := encodeCredential(&next)
	if err != nil {
		return err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeCredential, id), fm)
	diff := indexDiff{deltas: credentialDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch credential %s: %w", id, err)
	}
	return store.CheckBatch(store.TypeCredential, id, res)
}

func (r *CredentialRepo) DeleteCredential(ctx context.Context, id string) error {
	old, err := r.GetCredentialByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete credential %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	diff.Remove(credentialActiveKey(credentialActiveValue(old.Active)), id)
	diff.RemoveOrdered(store.AllKey(store.TypeCredential), id)
	diff.Remove(partnerCredentialsKey(old.PartnerID), id)
	diff.Drop(store.CredentialHashKey(old.KeyHash))

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeCredential, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete credential %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeCredential, id, res); err != nil {
		r.logger.Error("credential delete left orphaned index entries", zap.String("credential_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *CredentialRepo) ListCredentialsByPartner(ctx context.Context, partnerID string, limit int64) ([]*domain.Credential, error) {
	ids, err := r.store.SMembers(ctx, partnerCredentialsKey(partnerID))
	if err != nil {
		return nil, fmt.Errorf("list credentials for partner %s: %w", partnerID, err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetCredentialByID)
}

func (r *CredentialRepo) ListActiveCredentialsPage(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.Credential], error) {
	raw, err := store.PaginateMembers(ctx, r.store, credentialActiveKey("true"), cursor, limit)
	if err != nil {
		return domain.Page[*domain.Credential]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetCredentialByID)
}
