package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/mapper"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PipelineService runs the task chain: completing a task marks it done,
// spawns exactly one successor and advances the case, all in one commit.
type PipelineService struct {
	db           *gorm.DB
	taskRepo     *repository.TaskRepository
	caseRepo     *repository.CaseRepository
	activityRepo *repository.ActivityRepository
	logger       *zap.Logger
}

// NewPipelineService creates a new PipelineService
func NewPipelineService(
	db *gorm.DB,
	taskRepo *repository.TaskRepository,
	caseRepo *repository.CaseRepository,
	activityRepo *repository.ActivityRepository,
	logger *zap.Logger,
) *PipelineService {
	return &PipelineService{
		db:           db,
		taskRepo:     taskRepo,
		caseRepo:     caseRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// GetTask returns one task.
func (s *PipelineService) GetTask(ctx context.Context, id uuid.UUID) (*domain.TaskDTO, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	dto := mapper.ToTaskDTO(task)
	return &dto, nil
}

// ListByCase returns a case's tasks in pipeline order.
func (s *PipelineService) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.TaskDTO, error) {
	tasks, err := s.taskRepo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	dtos := make([]domain.TaskDTO, len(tasks))
	for i := range tasks {
		dtos[i] = mapper.ToTaskDTO(&tasks[i])
	}
	return dtos, nil
}

// ListMyTasks returns the acting user's open tasks.
func (s *PipelineService) ListMyTasks(ctx context.Context) ([]domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	tasks, err := s.taskRepo.ListByAssignee(ctx, userCtx.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	dtos := make([]domain.TaskDTO, len(tasks))
	for i := range tasks {
		dtos[i] = mapper.ToTaskDTO(&tasks[i])
	}
	return dtos, nil
}

// StartTask moves a pending task to started and stamps startedAt.
// Idempotent: starting a started task is a no-op success; a completed task
// is terminal and conflicts.
func (s *PipelineService) StartTask(ctx context.Context, id uuid.UUID) (*domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	switch task.Status {
	case domain.TaskStatusStarted:
		dto := mapper.ToTaskDTO(task)
		return &dto, nil
	case domain.TaskStatusCompleted:
		return nil, fmt.Errorf("%w: task already completed", ErrStaleState)
	}

	now := time.Now()
	task.Status = domain.TaskStatusStarted
	task.StartedAt = &now
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to start task: %w", err)
	}

	s.logger.Info("task started",
		zap.String("taskID", id.String()),
		zap.String("type", string(task.Type)),
		zap.String("userID", userCtx.UserID.String()))

	dto := mapper.ToTaskDTO(task)
	return &dto, nil
}

// CompleteTask finishes a task and fires the pipeline: one transaction marks
// the task completed, creates its successor with the computed deadline and
// the assignee bound in the case team, and applies the case transition.
// Re-completing a completed task is a no-op success and spawns nothing; the
// successor guard makes N completion calls yield exactly one successor.
func (s *PipelineService) CompleteTask(ctx context.Context, id uuid.UUID, req *domain.CompleteTaskRequest) (*domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	var completed *domain.CaseTask
	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var task domain.CaseTask
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load task: %w", err)
		}

		if task.Status == domain.TaskStatusCompleted {
			completed = &task
			return nil
		}

		report := ""
		if req != nil {
			report = req.Report
		}
		if err := completeTaskTx(tx, &task, report); err != nil {
			return err
		}

		if err := logActivityTx(tx, task.CaseID, userCtx.UserID.String(), userCtx.DisplayName,
			"Task completed", fmt.Sprintf("%s task completed", task.Type)); err != nil {
			return err
		}

		completed = &task
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToTaskDTO(completed)
	return &dto, nil
}

// completeTaskTx does the pipeline step inside an open transaction: mark the
// task completed, create the successor, move the case. Shared with the BOQ
// and quotation services, which fold a pipeline step into their own commits.
// The successor is only created when this call performed the pending/started
// -> completed flip, so duplicate completions cannot double-spawn.
func completeTaskTx(tx *gorm.DB, task *domain.CaseTask, report string) error {
	now := time.Now()

	result := tx.Model(&domain.CaseTask{}).
		Where("id = ? AND status != ?", task.ID, domain.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"status":       domain.TaskStatusCompleted,
			"completed_at": now,
			"report":       report,
			"updated_at":   now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to complete task: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Lost the race to another completer; nothing more to do.
		return nil
	}
	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &now
	task.Report = report

	successor, ok := domain.SuccessorFor(task.Type)
	if !ok {
		return nil
	}

	var c domain.Case
	if err := tx.First(&c, "id = ?", task.CaseID).Error; err != nil {
		return fmt.Errorf("failed to load case for successor: %w", err)
	}

	deadline := now.Add(successor.DeadlineAfter)
	next := &domain.CaseTask{
		CaseID:     task.CaseID,
		Type:       successor.NextType,
		Status:     domain.TaskStatusPending,
		AssignedTo: c.AssignedTeam[successor.AssigneeRole],
		Deadline:   &deadline,
	}
	if err := tx.Create(next).Error; err != nil {
		return fmt.Errorf("failed to create successor task: %w", err)
	}

	if successor.CaseTransition != "" && c.Status != successor.CaseTransition {
		if _, err := applyCaseTransitionTx(tx, task.CaseID, c.Status, successor.CaseTransition, TransitionMeta{}); err != nil {
			return err
		}
	}

	return nil
}

// closeTaskTx marks a task completed without firing its pipeline successor.
// Used when a step settles negatively and the chain must not advance.
func closeTaskTx(tx *gorm.DB, task *domain.CaseTask, report string) error {
	now := time.Now()

	result := tx.Model(&domain.CaseTask{}).
		Where("id = ? AND status != ?", task.ID, domain.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"status":       domain.TaskStatusCompleted,
			"completed_at": now,
			"report":       report,
			"updated_at":   now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to close task: %w", result.Error)
	}
	task.Status = domain.TaskStatusCompleted
	task.CompletedAt = &now
	task.Report = report
	return nil
}

// SweepOverdue flags open tasks whose deadline has passed and writes an
// activity on the case. Run periodically by the scheduler; the escalated_at
// guard makes each task report exactly once.
func (s *PipelineService) SweepOverdue(ctx context.Context) (int, error) {
	now := time.Now()
	tasks, err := s.taskRepo.ListOverdueUnescalated(ctx, now, 200)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	flagged := 0
	for i := range tasks {
		task := &tasks[i]
		rows, err := s.taskRepo.MarkEscalated(ctx, task.ID, now)
		if err != nil {
			s.logger.Warn("failed to mark task escalated",
				zap.String("taskID", task.ID.String()),
				zap.Error(err))
			continue
		}
		if rows == 0 {
			continue
		}
		flagged++

		activity := &domain.Activity{
			CaseID: task.CaseID,
			Title:  "Task overdue",
			Body: fmt.Sprintf("%s task assigned to %s missed its deadline (%s)",
				task.Type, task.AssignedTo, task.Deadline.Format("2006-01-02 15:04")),
		}
		if err := s.activityRepo.Create(ctx, activity); err != nil {
			s.logger.Warn("failed to log overdue activity",
				zap.String("taskID", task.ID.String()),
				zap.Error(err))
		}

		s.logger.Warn("task overdue",
			zap.String("taskID", task.ID.String()),
			zap.String("caseID", task.CaseID.String()),
			zap.String("type", string(task.Type)),
			zap.String("assignedTo", task.AssignedTo),
			zap.Timep("deadline", task.Deadline))
	}

	return flagged, nil
}
