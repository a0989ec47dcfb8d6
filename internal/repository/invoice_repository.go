package repository

import (
	"context"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceFilters contains filter options for listing invoices
type InvoiceFilters struct {
	Kind         *domain.InvoiceKind
	Status       *domain.InvoiceStatus
	CaseID       *uuid.UUID
	IssuedAfter  *time.Time
	IssuedBefore *time.Time
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// CreateTx inserts the invoice inside the caller's transaction, alongside its
// ledger pair and sequence claim.
func (r *InvoiceRepository) CreateTx(tx *gorm.DB, inv *domain.Invoice) error {
	return tx.Omit(clause.Associations).Create(inv).Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var inv domain.Invoice
	query := r.db.WithContext(ctx).Where("id = ?", id)
	query = ApplyOrgFilter(ctx, query)
	if err := query.First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	var inv domain.Invoice
	query := r.db.WithContext(ctx).Where("invoice_number = ?", number)
	query = ApplyOrgFilter(ctx, query)
	if err := query.First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// MarkPaid stamps the invoice paid. The WHERE clause keeps the write out of
// already-paid rows so re-marking stays a no-op.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ? AND status = ?", id, domain.InvoiceStatusPendingApproval).
		Updates(map[string]interface{}{
			"status":     domain.InvoiceStatusPaid,
			"paid_at":    paidAt,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int, filters *InvoiceFilters) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})
	query = ApplyOrgFilter(ctx, query)

	if filters != nil {
		if filters.Kind != nil {
			query = query.Where("kind = ?", *filters.Kind)
		}
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.CaseID != nil {
			query = query.Where("case_id = ?", *filters.CaseID)
		}
		if filters.IssuedAfter != nil {
			query = query.Where("issue_date >= ?", *filters.IssuedAfter)
		}
		if filters.IssuedBefore != nil {
			query = query.Where("issue_date <= ?", *filters.IssuedBefore)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&invoices).Error

	return invoices, total, err
}
