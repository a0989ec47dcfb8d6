package repository

import (
	"context"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

func (r *QuotationRepository) Create(ctx context.Context, q *domain.CaseQuotation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(q).Error
}

// CreateTx inserts the quotation inside the caller's transaction.
func (r *QuotationRepository) CreateTx(tx *gorm.DB, q *domain.CaseQuotation) error {
	return tx.Omit(clause.Associations).Create(q).Error
}

func (r *QuotationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CaseQuotation, error) {
	var q domain.CaseQuotation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetLatestByCase returns the most recent quotation of a case.
func (r *QuotationRepository) GetLatestByCase(ctx context.Context, caseID uuid.UUID) (*domain.CaseQuotation, error) {
	var q domain.CaseQuotation
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuotationRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.CaseQuotation, error) {
	var quotations []domain.CaseQuotation
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		Find(&quotations).Error
	return quotations, err
}

// ListPendingAudit returns quotations awaiting a procurement decision,
// oldest first so the audit queue drains in submission order.
func (r *QuotationRepository) ListPendingAudit(ctx context.Context) ([]domain.CaseQuotation, error) {
	var quotations []domain.CaseQuotation
	err := r.db.WithContext(ctx).
		Where("audit_status = ?", domain.AuditStatusPending).
		Order("created_at ASC").
		Find(&quotations).Error
	return quotations, err
}

// ResolveAuditTx records the audit verdict inside the caller's transaction.
// Only a pending quotation can be resolved; the guard is in the WHERE clause.
func (r *QuotationRepository) ResolveAuditTx(tx *gorm.DB, id uuid.UUID, status domain.AuditStatus, note, resolvedBy string) (int64, error) {
	now := time.Now()
	result := tx.Model(&domain.CaseQuotation{}).
		Where("id = ? AND audit_status = ?", id, domain.AuditStatusPending).
		Updates(map[string]interface{}{
			"audit_status":      status,
			"audit_note":        note,
			"audit_resolved_by": resolvedBy,
			"audit_resolved_at": now,
			"updated_at":        now,
		})
	return result.RowsAffected, result.Error
}

// SetPDFURL records the generated document location.
func (r *QuotationRepository) SetPDFURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&domain.CaseQuotation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"pdf_url": url, "updated_at": time.Now()}).Error
}
