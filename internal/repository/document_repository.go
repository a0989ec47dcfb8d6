package repository

import (
	"context"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentRepository stores the post-commit document-generation queue.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Enqueue(ctx context.Context, doc *domain.GeneratedDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.GeneratedDocument, error) {
	var doc domain.GeneratedDocument
	err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListPending returns queued documents under the attempt cap, oldest first,
// for the retry job.
func (r *DocumentRepository) ListPending(ctx context.Context, maxAttempts, limit int) ([]domain.GeneratedDocument, error) {
	var docs []domain.GeneratedDocument
	err := r.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", domain.DocumentStatusPending, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&docs).Error
	return docs, err
}

// MarkDone records the artifact URL and completes the queue entry.
func (r *DocumentRepository) MarkDone(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&domain.GeneratedDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     domain.DocumentStatusDone,
			"url":        url,
			"updated_at": time.Now(),
		}).Error
}

// RecordAttempt bumps the attempt counter and stores the failure. The row
// flips to failed once the cap is reached; until then it stays pending for
// the next sweep.
func (r *DocumentRepository) RecordAttempt(ctx context.Context, id uuid.UUID, maxAttempts int, lastErr string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc domain.GeneratedDocument
		if err := tx.First(&doc, "id = ?", id).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"attempts":   doc.Attempts + 1,
			"last_error": lastErr,
			"updated_at": time.Now(),
		}
		if doc.Attempts+1 >= maxAttempts {
			updates["status"] = domain.DocumentStatusFailed
		}
		return tx.Model(&domain.GeneratedDocument{}).Where("id = ?", id).Updates(updates).Error
	})
}
