package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldline/casework-api/internal/auth"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/mapper"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BOQService owns bills of quantities. BOQs are created unpriced by the
// drawing team and freeze forever the moment a quotation references them.
type BOQService struct {
	db         *gorm.DB
	boqRepo    *repository.BOQRepository
	caseRepo   *repository.CaseRepository
	taskRepo   *repository.TaskRepository
	docService *DocumentService
	logger     *zap.Logger
}

// NewBOQService creates a new BOQService
func NewBOQService(
	db *gorm.DB,
	boqRepo *repository.BOQRepository,
	caseRepo *repository.CaseRepository,
	taskRepo *repository.TaskRepository,
	docService *DocumentService,
	logger *zap.Logger,
) *BOQService {
	return &BOQService{
		db:         db,
		boqRepo:    boqRepo,
		caseRepo:   caseRepo,
		taskRepo:   taskRepo,
		docService: docService,
		logger:     logger,
	}
}

// GetBOQ returns one BOQ.
func (s *BOQService) GetBOQ(ctx context.Context, id uuid.UUID) (*domain.BOQDTO, error) {
	boq, err := s.boqRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get boq: %w", err)
	}
	dto := mapper.ToBOQDTO(boq)
	return &dto, nil
}

// ListByCase returns a case's BOQ history, newest first.
func (s *BOQService) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.BOQDTO, error) {
	boqs, err := s.boqRepo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boqs: %w", err)
	}
	dtos := make([]domain.BOQDTO, len(boqs))
	for i := range boqs {
		dtos[i] = mapper.ToBOQDTO(&boqs[i])
	}
	return dtos, nil
}

// CreateBOQ persists the drawing team's quantity list and runs the pipeline
// step in the same transaction: the DRAWING task completes, the QUOTATION
// task spawns and the case moves to boq_completed. Lines arrive unpriced;
// rate and total are forced to zero whatever the caller sent. A boq_pdf is
// requested post-commit.
func (s *BOQService) CreateBOQ(ctx context.Context, caseID uuid.UUID, req *domain.CreateBOQRequest) (*domain.BOQDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: boq requires at least one line", ErrInvalidInput)
	}

	items := make(domain.BOQItems, len(req.Items))
	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive on line %d", ErrInvalidInput, i+1)
		}
		items[i] = domain.BOQItem{
			Name:     line.Name,
			Unit:     line.Unit,
			Quantity: line.Quantity,
			// Pricing belongs to the quotation team.
			RateCents:  0,
			TotalCents: 0,
		}
	}

	boq := &domain.CaseBOQ{
		CaseID:    caseID,
		Items:     items,
		CreatedBy: userCtx.UserID.String(),
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var c domain.Case
		if err := tx.First(&c, "id = ?", caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load case: %w", err)
		}
		if c.Status != domain.CaseStatusWaitingForDrawing {
			return fmt.Errorf("%w: boq requires waiting_for_drawing, case is %s", ErrStaleState, c.Status)
		}

		if err := tx.Create(boq).Error; err != nil {
			return fmt.Errorf("failed to create boq: %w", err)
		}

		var task domain.CaseTask
		err := tx.Where("case_id = ? AND type = ? AND status != ?",
			caseID, domain.TaskTypeDrawing, domain.TaskStatusCompleted).
			Order("created_at ASC").
			First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no open drawing task on case", ErrStaleState)
			}
			return fmt.Errorf("failed to load drawing task: %w", err)
		}
		if err := completeTaskTx(tx, &task, fmt.Sprintf("BOQ submitted with %d lines", len(items))); err != nil {
			return err
		}

		return logActivityTx(tx, caseID, userCtx.UserID.String(), userCtx.DisplayName,
			"BOQ created", fmt.Sprintf("Bill of quantities with %d lines", len(items)))
	})
	if err != nil {
		return nil, err
	}

	if s.docService != nil {
		if err := s.docService.Enqueue(ctx, caseID, boq.ID, domain.DocumentKindBOQPDF); err != nil {
			s.logger.Warn("failed to enqueue boq pdf",
				zap.String("boqID", boq.ID.String()),
				zap.Error(err))
		}
	}

	dto := mapper.ToBOQDTO(boq)
	return &dto, nil
}

// UpdateBOQ replaces an unlocked BOQ's quantity lines. A locked BOQ rejects
// every write.
func (s *BOQService) UpdateBOQ(ctx context.Context, id uuid.UUID, req *domain.CreateBOQRequest) (*domain.BOQDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: boq requires at least one line", ErrInvalidInput)
	}

	boq, err := s.boqRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get boq: %w", err)
	}
	if boq.Locked {
		return nil, ErrBOQLocked
	}

	items := make(domain.BOQItems, len(req.Items))
	for i, line := range req.Items {
		items[i] = domain.BOQItem{
			Name:     line.Name,
			Unit:     line.Unit,
			Quantity: line.Quantity,
		}
	}
	boq.Items = items
	boq.SubtotalCents = 0

	if err := s.boqRepo.Update(ctx, boq); err != nil {
		if errors.Is(err, repository.ErrBOQLocked) {
			return nil, ErrBOQLocked
		}
		return nil, fmt.Errorf("failed to update boq: %w", err)
	}

	s.logger.Info("boq updated",
		zap.String("boqID", id.String()),
		zap.String("userID", userCtx.UserID.String()))

	dto := mapper.ToBOQDTO(boq)
	return &dto, nil
}
