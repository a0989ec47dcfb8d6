package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrBOQLocked rejects writes against a BOQ that a quotation already
// references.
var ErrBOQLocked = errors.New("boq is locked and cannot be modified")

type BOQRepository struct {
	db *gorm.DB
}

func NewBOQRepository(db *gorm.DB) *BOQRepository {
	return &BOQRepository{db: db}
}

func (r *BOQRepository) Create(ctx context.Context, boq *domain.CaseBOQ) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(boq).Error
}

func (r *BOQRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CaseBOQ, error) {
	var boq domain.CaseBOQ
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&boq).Error
	if err != nil {
		return nil, err
	}
	return &boq, nil
}

// GetLatestByCase returns the most recent BOQ of a case.
func (r *BOQRepository) GetLatestByCase(ctx context.Context, caseID uuid.UUID) (*domain.CaseBOQ, error) {
	var boq domain.CaseBOQ
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		First(&boq).Error
	if err != nil {
		return nil, err
	}
	return &boq, nil
}

func (r *BOQRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.CaseBOQ, error) {
	var boqs []domain.CaseBOQ
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		Find(&boqs).Error
	return boqs, err
}

// Update persists item or metadata changes. Refused outright when the row is
// already locked; the guard lives in the WHERE clause so a concurrent lock
// cannot slip a write through.
func (r *BOQRepository) Update(ctx context.Context, boq *domain.CaseBOQ) error {
	result := r.db.WithContext(ctx).Model(&domain.CaseBOQ{}).
		Where("id = ? AND locked = ?", boq.ID, false).
		Updates(map[string]interface{}{
			"items":          boq.Items,
			"subtotal_cents": boq.SubtotalCents,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var existing domain.CaseBOQ
		if err := r.db.WithContext(ctx).Where("id = ?", boq.ID).First(&existing).Error; err != nil {
			return err
		}
		return ErrBOQLocked
	}
	return nil
}

// LockTx flips the locked flag inside the caller's transaction. Returns
// ErrBOQLocked when the row was locked already, so double submission is
// caught at the data layer too.
func (r *BOQRepository) LockTx(tx *gorm.DB, id uuid.UUID) error {
	result := tx.Model(&domain.CaseBOQ{}).
		Where("id = ? AND locked = ?", id, false).
		Updates(map[string]interface{}{"locked": true, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBOQLocked
	}
	return nil
}

// SetPDFURL records the generated document location. Allowed on locked rows:
// the artifact pointer is not part of the immutable quantity data.
func (r *BOQRepository) SetPDFURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&domain.CaseBOQ{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"pdf_url": url, "updated_at": time.Now()}).Error
}
