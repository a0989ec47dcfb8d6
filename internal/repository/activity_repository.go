package repository

import (
	"context"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActivityRepository stores the append-only case event log.
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// CreateTx records the event inside the caller's transaction so the log entry
// commits or rolls back together with the state change it describes.
func (r *ActivityRepository) CreateTx(tx *gorm.DB, activity *domain.Activity) error {
	return tx.Create(activity).Error
}

func (r *ActivityRepository) ListByCase(ctx context.Context, caseID uuid.UUID, limit int) ([]domain.Activity, error) {
	var activities []domain.Activity
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// GetRecent returns the most recent activities across all cases, optionally
// bounded by a time window.
func (r *ActivityRepository) GetRecent(ctx context.Context, since *time.Time, limit int) ([]domain.Activity, error) {
	var activities []domain.Activity
	query := r.db.WithContext(ctx)
	if since != nil {
		query = query.Where("occurred_at >= ?", *since)
	}
	err := query.Order("occurred_at DESC").Limit(limit).Find(&activities).Error
	return activities, err
}
