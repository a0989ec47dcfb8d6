package repository

import (
	"context"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.CaseTask) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CaseTask, error) {
	var task domain.CaseTask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.CaseTask) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// GetOpenByCaseAndType finds the pending or started task of a given type on a
// case. Used by workflow steps that complete "the DRAWING task" without
// holding its id.
func (r *TaskRepository) GetOpenByCaseAndType(ctx context.Context, caseID uuid.UUID, taskType domain.TaskType) (*domain.CaseTask, error) {
	var task domain.CaseTask
	err := r.db.WithContext(ctx).
		Where("case_id = ? AND type = ? AND status IN ?", caseID, taskType,
			[]domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusStarted}).
		Order("created_at ASC").
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.CaseTask, error) {
	var tasks []domain.CaseTask
	err := r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// ListByAssignee returns the open tasks on a user's plate, oldest deadline first.
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID string) ([]domain.CaseTask, error) {
	var tasks []domain.CaseTask
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND status != ?", userID, domain.TaskStatusCompleted).
		Order("deadline ASC").
		Find(&tasks).Error
	return tasks, err
}

// ListOverdue returns open tasks whose deadline passed before the cutoff.
func (r *TaskRepository) ListOverdue(ctx context.Context, cutoff time.Time) ([]domain.CaseTask, error) {
	var tasks []domain.CaseTask
	err := r.db.WithContext(ctx).
		Where("status != ? AND deadline IS NOT NULL AND deadline < ?", domain.TaskStatusCompleted, cutoff).
		Order("deadline ASC").
		Find(&tasks).Error
	return tasks, err
}

// ListOverdueUnescalated returns overdue open tasks the sweep job has not yet
// flagged. The escalated_at guard keeps the periodic sweep from re-reporting
// the same task every run.
func (r *TaskRepository) ListOverdueUnescalated(ctx context.Context, cutoff time.Time, limit int) ([]domain.CaseTask, error) {
	var tasks []domain.CaseTask
	err := r.db.WithContext(ctx).
		Where("status != ? AND deadline IS NOT NULL AND deadline < ? AND escalated_at IS NULL",
			domain.TaskStatusCompleted, cutoff).
		Order("deadline ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// MarkEscalated records that the overdue sweep has reported a task. Guarded so
// two concurrent sweeps flag it once.
func (r *TaskRepository) MarkEscalated(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.CaseTask{}).
		Where("id = ? AND escalated_at IS NULL", id).
		Update("escalated_at", at)
	return result.RowsAffected, result.Error
}
