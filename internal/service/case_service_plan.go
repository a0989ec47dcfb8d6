package service

// This file contains the execution-plan gate methods extracted from
// case_service.go for better code organization:
// - SubmitExecutionPlan (execution team hands in the plan)
// - ApproveExecutionPlan / RejectExecutionPlan (admin gate)

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmitExecutionPlan stores the financial plan and phase list, completes the
// EXECUTION_PLANNING task and moves the case to planning_submitted, in one
// transaction. Requires the case at quotation with an approved audit.
func (s *CaseService) SubmitExecutionPlan(ctx context.Context, id uuid.UUID, req *domain.SubmitExecutionPlanRequest) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var task domain.CaseTask
		err := tx.Where("case_id = ? AND type = ? AND status != ?",
			id, domain.TaskTypeExecutionPlanning, domain.TaskStatusCompleted).
			Order("created_at ASC").
			First(&task).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load execution planning task: %w", err)
		}

		moved, err := applyCaseTransitionTx(tx, id,
			domain.CaseStatusQuotation, domain.CaseStatusPlanningSubmitted,
			TransitionMeta{Fields: map[string]interface{}{
				"financial_plan": req.FinancialPlan,
				"phases":         domain.StringList(req.Phases),
			}})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		// The planning task only exists once the procurement audit is
		// approved; without it the plan has nothing to stand on.
		if task.ID == uuid.Nil {
			return ErrStaleState
		}

		now := time.Now()
		task.Status = domain.TaskStatusCompleted
		task.CompletedAt = &now
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("failed to complete execution planning task: %w", err)
		}

		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Execution plan submitted",
			fmt.Sprintf("Plan with %d phases submitted for approval", len(req.Phases)))
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}

// ApproveExecutionPlan is the human gate to execution: planning_submitted ->
// active, stamping the approver. Re-approving an already-active case is a
// no-op success, never a duplicate approval record. The master record PDF is
// requested post-commit; its failure cannot revert the approval.
func (s *CaseService) ApproveExecutionPlan(ctx context.Context, id uuid.UUID) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.CanApprovePlans() {
		return nil, ErrPermissionDenied
	}

	var approved bool
	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		approved = false
		now := time.Now()
		moved, err := applyCaseTransitionTx(tx, id,
			domain.CaseStatusPlanningSubmitted, domain.CaseStatusActive,
			TransitionMeta{Fields: map[string]interface{}{
				"approved_by_admin": true,
				"approved_by_id":    userCtx.UserID.String(),
				"approved_at":       now,
				"rejection_reason":  "",
			}})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		approved = true
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Execution plan approved", "Case is now active")
	})
	if err != nil {
		return nil, err
	}

	if approved && s.docService != nil {
		if err := s.docService.Enqueue(ctx, id, id, domain.DocumentKindMasterProjectPDF); err != nil {
			s.logger.Warn("failed to enqueue master record generation",
				zap.String("caseID", id.String()),
				zap.Error(err))
		}
	}

	return s.GetCase(ctx, id)
}

// RejectExecutionPlan sends the plan back: planning_submitted ->
// waiting_for_planning with a mandatory reason. No state changes when the
// reason is missing.
func (s *CaseService) RejectExecutionPlan(ctx context.Context, id uuid.UUID, reason string) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.CanApprovePlans() {
		return nil, ErrPermissionDenied
	}
	if reason == "" {
		return nil, ErrReasonRequired
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		moved, err := applyCaseTransitionTx(tx, id,
			domain.CaseStatusPlanningSubmitted, domain.CaseStatusWaitingForPlanning,
			TransitionMeta{Reason: reason})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Execution plan rejected", fmt.Sprintf("Plan rejected: %s", reason))
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}

// ResubmitPlanning moves a rejected case back into review:
// waiting_for_planning -> planning_submitted.
func (s *CaseService) ResubmitPlanning(ctx context.Context, id uuid.UUID, req *domain.SubmitExecutionPlanRequest) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		fields := map[string]interface{}{}
		if req != nil {
			fields["financial_plan"] = req.FinancialPlan
			fields["phases"] = domain.StringList(req.Phases)
		}
		moved, err := applyCaseTransitionTx(tx, id,
			domain.CaseStatusWaitingForPlanning, domain.CaseStatusPlanningSubmitted,
			TransitionMeta{Fields: fields})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Execution plan resubmitted", "Revised plan submitted for approval")
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}
