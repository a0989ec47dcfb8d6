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

// CaseService owns the case aggregate: creation, the status state machine,
// the budget gate and the execution-plan gate. Every mutation is a single
// transaction and is retried on write conflicts.
type CaseService struct {
	db           *gorm.DB
	caseRepo     *repository.CaseRepository
	taskRepo     *repository.TaskRepository
	activityRepo *repository.ActivityRepository
	docService   *DocumentService
	logger       *zap.Logger
}

// NewCaseService creates a new CaseService
func NewCaseService(
	db *gorm.DB,
	caseRepo *repository.CaseRepository,
	taskRepo *repository.TaskRepository,
	activityRepo *repository.ActivityRepository,
	docService *DocumentService,
	logger *zap.Logger,
) *CaseService {
	return &CaseService{
		db:           db,
		caseRepo:     caseRepo,
		taskRepo:     taskRepo,
		activityRepo: activityRepo,
		docService:   docService,
		logger:       logger,
	}
}

// CreateCase opens a new case and seeds its pipeline. A case entering the
// normal workflow starts at site_visit_pending with a pending SITE_VISIT
// task; a case opened against pre-approved funding starts in the budget gate
// instead and gets no pipeline task until the gate resolves.
func (s *CaseService) CreateCase(ctx context.Context, req *domain.CreateCaseRequest) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	for role := range req.AssignedTeam {
		valid := false
		for _, known := range domain.TeamRoleKeys {
			if role == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("%w: unknown team role %q", ErrInvalidInput, role)
		}
	}

	status := domain.CaseStatusSiteVisitPending
	if req.RequiresBudgetApproval {
		status = domain.CaseStatusPendingBudgetApproval
	}

	c := &domain.Case{
		OrganizationID:   userCtx.OrganizationID,
		Title:            req.Title,
		ClientName:       req.ClientName,
		Status:           status,
		AssignedTeam:     req.AssignedTeam,
		TotalBudgetCents: req.TotalBudgetCents,
		RemainingCents:   req.TotalBudgetCents,
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}

		if status == domain.CaseStatusSiteVisitPending {
			task := &domain.CaseTask{
				CaseID:     c.ID,
				Type:       domain.TaskTypeSiteVisit,
				Status:     domain.TaskStatusPending,
				AssignedTo: req.AssignedTeam["site_visit"],
			}
			if err := tx.Create(task).Error; err != nil {
				return fmt.Errorf("failed to create site visit task: %w", err)
			}
		}

		return logActivityTx(tx, c.ID, userCtx.UserID.String(), userCtx.DisplayName,
			"Case opened", fmt.Sprintf("Case '%s' opened for client %s", c.Title, c.ClientName))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("case created",
		zap.String("caseID", c.ID.String()),
		zap.String("status", string(c.Status)))

	dto := mapper.ToCaseDTO(c)
	return &dto, nil
}

// GetCase returns a single case.
func (s *CaseService) GetCase(ctx context.Context, id uuid.UUID) (*domain.CaseDTO, error) {
	c, err := s.caseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	dto := mapper.ToCaseDTO(c)
	return &dto, nil
}

// GetCaseDetail returns the full read model: case, tasks, BOQs, quotations
// and activity history. Snapshot semantics: the rows reflect the last
// committed transaction at read time.
func (s *CaseService) GetCaseDetail(ctx context.Context, id uuid.UUID) (*domain.CaseDetailDTO, error) {
	c, err := s.caseRepo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case detail: %w", err)
	}

	activities, err := s.activityRepo.ListByCase(ctx, id, 100)
	if err != nil {
		s.logger.Warn("failed to load case activities", zap.Error(err))
	}

	dto := mapper.ToCaseDetailDTO(ctx, c, activities)
	return &dto, nil
}

// ListCases returns a filtered, paginated case list.
func (s *CaseService) ListCases(ctx context.Context, page, pageSize int, filters *repository.CaseFilters, sortBy repository.CaseSortOption) ([]domain.CaseDTO, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > repository.MaxPageSize {
		pageSize = 50
	}

	cases, total, err := s.caseRepo.List(ctx, page, pageSize, filters, sortBy)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}

	dtos := make([]domain.CaseDTO, len(cases))
	for i := range cases {
		dtos[i] = mapper.ToCaseDTO(&cases[i])
	}
	return dtos, total, nil
}

// StatusOverview returns open case counts per status.
func (s *CaseService) StatusOverview(ctx context.Context) (map[domain.CaseStatus]int64, error) {
	return s.caseRepo.CountByStatus(ctx)
}

// UpdateTeam rebinds the role->user assignment map. Open tasks keep their
// current assignee; only successor tasks pick up the new binding.
func (s *CaseService) UpdateTeam(ctx context.Context, id uuid.UUID, req *domain.UpdateCaseTeamRequest) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	c, err := s.caseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	c.AssignedTeam = req.AssignedTeam
	if err := s.caseRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update case team: %w", err)
	}

	s.logActivity(ctx, c.ID, userCtx, "Team updated", "Case team assignment changed")

	dto := mapper.ToCaseDTO(c)
	return &dto, nil
}

// ApplyTransition is the raw state-machine operation: move the case from an
// expected status to a target status. Higher-level commands compose it with
// their own writes; this surface exists for the budget gate and operational
// corrections.
func (s *CaseService) ApplyTransition(ctx context.Context, id uuid.UUID, fromExpected, to domain.CaseStatus, reason string) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		moved, err := applyCaseTransitionTx(tx, id, fromExpected, to, TransitionMeta{Reason: reason})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		body := fmt.Sprintf("Status changed %s -> %s", fromExpected, to)
		if reason != "" {
			body = fmt.Sprintf("%s. Reason: %s", body, reason)
		}
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName, "Status changed", body)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}

// ApproveBudget resolves the budget gate in favor of the case: it moves to
// active and execution may begin against the funded cost center.
func (s *CaseService) ApproveBudget(ctx context.Context, id uuid.UUID) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.CanApprovePlans() {
		return nil, ErrPermissionDenied
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		moved, err := applyCaseTransitionTx(tx, id,
			domain.CaseStatusPendingBudgetApproval, domain.CaseStatusActive, TransitionMeta{})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Budget approved", "Case budget approved; case is active")
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}

// RejectBudget pushes the case to the execution-approval step of the budget
// gate. A reason is mandatory.
func (s *CaseService) RejectBudget(ctx context.Context, id uuid.UUID, reason string) (*domain.CaseDTO, error) {
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
			domain.CaseStatusPendingBudgetApproval, domain.CaseStatusPendingExecutionApproval,
			TransitionMeta{Reason: reason})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Budget rejected", fmt.Sprintf("Budget rejected: %s", reason))
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}

// ApproveExecution resolves the second step of the budget gate.
func (s *CaseService) ApproveExecution(ctx context.Context, id uuid.UUID) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.CanApprovePlans() {
		return nil, ErrPermissionDenied
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		moved, err := applyCaseTransitionTx(tx, id,
			domain.CaseStatusPendingExecutionApproval, domain.CaseStatusActive, TransitionMeta{})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Execution approved", "Execution approved; case is active")
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}

// CloseCase performs financial closure on an active case.
func (s *CaseService) CloseCase(ctx context.Context, id uuid.UUID) (*domain.CaseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.HasAnyRole(domain.RoleAdmin, domain.RoleFinance) {
		return nil, ErrPermissionDenied
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		moved, err := applyCaseTransitionTx(tx, id,
			domain.CaseStatusActive, domain.CaseStatusClosed, TransitionMeta{})
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		return logActivityTx(tx, id, userCtx.UserID.String(), userCtx.DisplayName,
			"Case closed", "Financial closure completed")
	})
	if err != nil {
		return nil, err
	}

	return s.GetCase(ctx, id)
}

// ArchiveCase retires a case from the active lists. Cases are never deleted.
func (s *CaseService) ArchiveCase(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !userCtx.IsAdmin() {
		return ErrPermissionDenied
	}

	c, err := s.caseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get case: %w", err)
	}
	if c.Status != domain.CaseStatusClosed {
		return fmt.Errorf("%w: only closed cases can be archived", ErrInvalidTransition)
	}

	if err := s.caseRepo.Archive(ctx, id); err != nil {
		return fmt.Errorf("failed to archive case: %w", err)
	}

	s.logActivity(ctx, id, userCtx, "Case archived", "")
	return nil
}

// ListActivities returns the newest-first activity history for a case.
func (s *CaseService) ListActivities(ctx context.Context, id uuid.UUID, limit int) ([]domain.ActivityDTO, error) {
	if _, err := s.caseRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	if limit < 1 || limit > 500 {
		limit = 100
	}
	activities, err := s.activityRepo.ListByCase(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list case activities: %w", err)
	}

	dtos := make([]domain.ActivityDTO, len(activities))
	for i := range activities {
		dtos[i] = mapper.ToActivityDTO(&activities[i])
	}
	return dtos, nil
}

// logActivity writes a best-effort activity record outside any transaction.
func (s *CaseService) logActivity(ctx context.Context, caseID uuid.UUID, userCtx *auth.UserContext, title, body string) {
	activity := &domain.Activity{
		CaseID:     caseID,
		Title:      title,
		Body:       body,
		ActorID:    userCtx.UserID.String(),
		ActorName:  userCtx.DisplayName,
		OccurredAt: time.Now(),
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		s.logger.Warn("failed to log activity",
			zap.String("caseID", caseID.String()),
			zap.Error(err))
	}
}
