package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"gorm.io/gorm"
)

// Invoice number formats, per kind: SAL-2026-0042 / PUR-2026-0042.
const (
	SequenceKindSales    = "SAL"
	SequenceKindPurchase = "PUR"
)

// NumberSequenceRepository hands out document numbers per organization, kind
// and year. The claim happens under a row lock so concurrent posters never
// share a number.
type NumberSequenceRepository struct {
	db *gorm.DB
}

// NewNumberSequenceRepository creates a new NumberSequenceRepository
func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// ClaimNext claims the next number inside the caller's transaction. It must
// run within the same transaction as the invoice insert so a rollback
// releases the claimed number together with everything else. The increment
// runs first and takes the row lock; the read-back inside the same
// transaction then cannot race another claimer.
func (r *NumberSequenceRepository) ClaimNext(tx *gorm.DB, orgID domain.OrganizationID, kind string, year int) (string, error) {
	result := tx.Model(&domain.NumberSequence{}).
		Where("organization_id = ? AND kind = ? AND year = ?", orgID, kind, year).
		Updates(map[string]interface{}{
			"next_value": gorm.Expr("next_value + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return "", fmt.Errorf("failed to update number sequence: %w", result.Error)
	}

	var claimed int64
	if result.RowsAffected == 0 {
		seq := domain.NumberSequence{
			OrganizationID: orgID,
			Kind:           kind,
			Year:           year,
			NextValue:      2,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		if err := tx.Create(&seq).Error; err != nil {
			return "", fmt.Errorf("failed to create number sequence: %w", err)
		}
		claimed = 1
	} else {
		var seq domain.NumberSequence
		if err := tx.
			Where("organization_id = ? AND kind = ? AND year = ?", orgID, kind, year).
			First(&seq).Error; err != nil {
			return "", fmt.Errorf("failed to get number sequence: %w", err)
		}
		claimed = seq.NextValue - 1
	}

	return fmt.Sprintf("%s-%d-%04d", kind, year, claimed), nil
}

// Peek returns the next value without claiming it. Returns 1 when the
// sequence does not exist yet.
func (r *NumberSequenceRepository) Peek(ctx context.Context, orgID domain.OrganizationID, kind string, year int) (int64, error) {
	var seq domain.NumberSequence
	result := r.db.WithContext(ctx).
		Where("organization_id = ? AND kind = ? AND year = ?", orgID, kind, year).
		First(&seq)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if result.Error != nil {
		return 0, fmt.Errorf("failed to get number sequence: %w", result.Error)
	}

	return seq.NextValue, nil
}

// ListSequences returns all sequences (useful for debugging/admin)
func (r *NumberSequenceRepository) ListSequences(ctx context.Context) ([]domain.NumberSequence, error) {
	var sequences []domain.NumberSequence
	err := r.db.WithContext(ctx).
		Order("organization_id ASC, kind ASC, year DESC").
		Find(&sequences).Error
	return sequences, err
}
