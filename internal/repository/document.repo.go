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

// DocumentRepo persists legal documents, indexed by status, by category,
// globally by creation order, and per partner.
type DocumentRepo struct {
	store  store.Store
	logger *zap.Logger
}

func NewDocumentRepo(s store.Store, logger *zap.Logger) *DocumentRepo {
	return &DocumentRepo{store: s, logger: logger}
}

func documentStatusKey(v string) string {
	return store.DimensionKey(store.TypeDocument, "status", v)
}

func documentCategoryKey(v string) string {
	return store.DimensionKey(store.TypeDocument, "category", v)
}

func partnerDocumentsKey(partnerID string) string {
	return store.ChildKey(store.TypePartner, partnerID, "documents")
}

func encodeDocument(d *domain.LegalDocument) (store.FieldMap, error) {
	fm := store.NewFieldMap()
	fm.SetString("id", d.ID)
	fm.SetString("partner_id", d.PartnerID)
	fm.SetString("title", d.Title)
	fm.SetString("category", string(d.Category))
	fm.SetString("status", string(d.Status))
	fm.SetInt("version", d.Version)
	fm.SetString("storage_url", d.StorageURL)
	if err := fm.SetJSON("signer_emails", d.SignerEmails); err != nil {
		return nil, err
	}
	fm.SetTime("signed_at", d.SignedAt)
	fm.SetTime("created_at", d.CreatedAt)
	fm.SetTime("updated_at", d.UpdatedAt)
	return fm, nil
}

func decodeDocument(fields map[string]string) (*domain.LegalDocument, error) {
	dec := store.NewDecoder(fields)
	if !dec.Exists("id") {
		return nil, domain.ErrNotFound
	}
	d := &domain.LegalDocument{
		ID:         dec.String("id"),
		PartnerID:  dec.String("partner_id"),
		Title:      dec.String("title"),
		Category:   domain.DocumentCategory(dec.String("category")),
		Status:     domain.DocumentStatus(dec.String("status")),
		Version:    dec.Int("version"),
		StorageURL: dec.String("storage_url"),
		SignedAt:   dec.Time("signed_at"),
		CreatedAt:  dec.Time("created_at"),
		UpdatedAt:  dec.Time("updated_at"),
	}
	dec.JSON("signer_emails", &d.SignerEmails)
	if err := dec.Err(); err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	return d, nil
}

func documentDeltas(old, d *domain.LegalDocument) []IndexDelta {
	var oldStatus, oldCategory string
	if old != nil {
		oldStatus = string(old.Status)
		oldCategory = string(old.Category)
	}
	var diff indexDiff
	diff.Membership(documentStatusKey, oldStatus, string(d.Status), d.ID)
	diff.Membership(documentCategoryKey, oldCategory, string(d.Category), d.ID)
	diff.Ordered(store.AllKey(store.TypeDocument), d.ID, float64(d.CreatedAt.UnixMilli()))
	diff.Ordered(partnerDocumentsKey(d.PartnerID), d.ID, float64(d.CreatedAt.UnixMilli()))
	return diff.deltas
}

func (r *DocumentRepo) CreateDocument(ctx context.Context, d *domain.LegalDocument) error {
	if err := validID(store.TypeDocument, d.ID); err != nil {
		return err
	}
	if d.PartnerID == "" {
		return errors.New("document partner_id is required")
	}
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Version == 0 {
		d.Version = 1
	}

	fm, err := encodeDocument(d)
	if err != nil {
		return err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeDocument, d.ID), fm)
	diff := indexDiff{deltas: documentDeltas(nil, d)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("create document %s: %w", d.ID, err)
	}
	if err := store.CheckBatch(store.TypeDocument, d.ID, res); err != nil {
		r.logger.Error("document create left indexes inconsistent", zap.String("document_id", d.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *DocumentRepo) GetDocumentByID(ctx context.Context, id string) (*domain.LegalDocument, error) {
	fields, err := r.store.HGetAll(ctx, store.PrimaryKey(store.TypeDocument, id))
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	d, err := decodeDocument(fields)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

// UpdateDocumentStatus moves a document through its signature lifecycle.
// Entering the signed status stamps SignedAt.
func (r *DocumentRepo) UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus) (*domain.LegalDocument, error) {
	old, err := r.GetDocumentByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("update document %s: %w", id, domain.ErrPreconditionFailed)
		}
		return nil, err
	}

	next := *old
	next.Status = status
	next.UpdatedAt = time.Now()
	if status == domain.DocumentStatusSigned && next.SignedAt.IsZero() {
		next.SignedAt = next.UpdatedAt
	}

	fm, err := encodeDocument(&next)
	if err != nil {
		return nil, err
	}

	b := r.store.Batch()
	b.HSet(store.PrimaryKey(store.TypeDocument, id), fm)
	diff := indexDiff{deltas: documentDeltas(old, &next)}
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update document %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeDocument, id, res); err != nil {
		r.logger.Error("document update left indexes inconsistent", zap.String("document_id", id), zap.Error(err))
		return nil, err
	}
	return &next, nil
}

func (r *DocumentRepo) DeleteDocument(ctx context.Context, id string) error {
	old, err := r.GetDocumentByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete document %s: %w", id, domain.ErrPreconditionFailed)
		}
		return err
	}

	var diff indexDiff
	if old.Status != "" {
		diff.Remove(documentStatusKey(string(old.Status)), id)
	}
	if old.Category != "" {
		diff.Remove(documentCategoryKey(string(old.Category)), id)
	}
	diff.RemoveOrdered(store.AllKey(store.TypeDocument), id)
	diff.RemoveOrdered(partnerDocumentsKey(old.PartnerID), id)

	b := r.store.Batch()
	b.Del(store.PrimaryKey(store.TypeDocument, id))
	diff.apply(b)

	res, err := b.Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if err := store.CheckBatch(store.TypeDocument, id, res); err != nil {
		r.logger.Error("document delete left orphaned index entries", zap.String("document_id", id), zap.Error(err))
		return err
	}
	return nil
}

func (r *DocumentRepo) ListDocumentsByCategory(ctx context.Context, category domain.DocumentCategory, limit int64) ([]*domain.LegalDocument, error) {
	ids, err := r.store.SMembers(ctx, documentCategoryKey(string(category)))
	if err != nil {
		return nil, fmt.Errorf("list documents by category: %w", err)
	}
	return resolveAll(ctx, ids, limit, r.logger, r.GetDocumentByID)
}

func (r *DocumentRepo) ListDocumentsByCategoryPage(ctx context.Context, category domain.DocumentCategory, cursor string, limit int64) (domain.Page[*domain.LegalDocument], error) {
	raw, err := store.PaginateMembers(ctx, r.store, documentCategoryKey(string(category)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.LegalDocument]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetDocumentByID)
}

func (r *DocumentRepo) ListDocumentsByStatusPage(ctx context.Context, status domain.DocumentStatus, cursor string, limit int64) (domain.Page[*domain.LegalDocument], error) {
	raw, err := store.PaginateMembers(ctx, r.store, documentStatusKey(string(status)), cursor, limit)
	if err != nil {
		return domain.Page[*domain.LegalDocument]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetDocumentByID)
}

func (r *DocumentRepo) ListDocumentsByPartner(ctx context.Context, partnerID, cursor string, limit int64) (domain.Page[*domain.LegalDocument], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, partnerDocumentsKey(partnerID), cursor, limit)
	if err != nil {
		return domain.Page[*domain.LegalDocument]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetDocumentByID)
}

func (r *DocumentRepo) ListAllDocuments(ctx context.Context, cursor string, limit int64) (domain.Page[*domain.LegalDocument], error) {
	raw, err := store.PaginateOrdered(ctx, r.store, store.AllKey(store.TypeDocument), cursor, limit)
	if err != nil {
		return domain.Page[*domain.LegalDocument]{}, err
	}
	return resolvePage(ctx, raw, r.logger, r.GetDocumentByID)
}
