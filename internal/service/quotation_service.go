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

// QuotationService prices BOQs and runs the procurement audit. Quotations are
// append-only: resubmission after a rejected audit creates a new quotation.
type QuotationService struct {
	db            *gorm.DB
	quotationRepo *repository.QuotationRepository
	boqRepo       *repository.BOQRepository
	caseRepo      *repository.CaseRepository
	docService    *DocumentService
	logger        *zap.Logger
}

// NewQuotationService creates a new QuotationService
func NewQuotationService(
	db *gorm.DB,
	quotationRepo *repository.QuotationRepository,
	boqRepo *repository.BOQRepository,
	caseRepo *repository.CaseRepository,
	docService *DocumentService,
	logger *zap.Logger,
) *QuotationService {
	return &QuotationService{
		db:            db,
		quotationRepo: quotationRepo,
		boqRepo:       boqRepo,
		caseRepo:      caseRepo,
		docService:    docService,
		logger:        logger,
	}
}

// GetQuotation returns one quotation.
func (s *QuotationService) GetQuotation(ctx context.Context, id uuid.UUID) (*domain.QuotationDTO, error) {
	q, err := s.quotationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	dto := mapper.ToQuotationDTO(ctx, q)
	return &dto, nil
}

// ListByCase returns a case's quotation history, newest first.
func (s *QuotationService) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.QuotationDTO, error) {
	quotations, err := s.quotationRepo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	dtos := make([]domain.QuotationDTO, len(quotations))
	for i := range quotations {
		dtos[i] = mapper.ToQuotationDTO(ctx, &quotations[i])
	}
	return dtos, nil
}

// ListPendingAudit returns the procurement audit queue, oldest first.
func (s *QuotationService) ListPendingAudit(ctx context.Context) ([]domain.QuotationDTO, error) {
	quotations, err := s.quotationRepo.ListPendingAudit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending audits: %w", err)
	}
	dtos := make([]domain.QuotationDTO, len(quotations))
	for i := range quotations {
		dtos[i] = mapper.ToQuotationDTO(ctx, &quotations[i])
	}
	return dtos, nil
}

// SubmitQuotation prices the case's latest BOQ. One transaction locks the
// BOQ, writes the quotation with a pending audit, completes the QUOTATION
// task (spawning PROCUREMENT_AUDIT) and moves the case to quotation. A case
// already at quotation is accepted when its latest audit was rejected: the
// revised quotation re-prices the locked BOQ and goes back to audit. Totals
// run subtotal -> -discount% -> +tax% with the percentage applied and
// rounded exactly once. A quotation_pdf is requested post-commit.
func (s *QuotationService) SubmitQuotation(ctx context.Context, caseID uuid.UUID, req *domain.SubmitQuotationRequest) (*domain.QuotationDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: quotation requires at least one priced line", ErrInvalidInput)
	}

	items := make(domain.BOQItems, len(req.Items))
	for i, line := range req.Items {
		if line.RateCents <= 0 {
			return nil, fmt.Errorf("%w: rate must be positive on line %d", ErrInvalidInput, i+1)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive on line %d", ErrInvalidInput, i+1)
		}
		items[i] = domain.BOQItem{
			Name:       line.Name,
			Unit:       line.Unit,
			Quantity:   line.Quantity,
			RateCents:  line.RateCents,
			TotalCents: domain.PriceLine(line.RateCents, line.Quantity),
		}
	}
	totals := domain.ComputeQuotationTotals(items, req.DiscountPercent, req.TaxRatePercent)

	var quotation *domain.CaseQuotation
	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var c domain.Case
		if err := tx.First(&c, "id = ?", caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load case: %w", err)
		}
		switch c.Status {
		case domain.CaseStatusBOQCompleted:
			// First submission for this pipeline pass.
		case domain.CaseStatusQuotation:
			// Only a rejected audit reopens the quotation step.
			var latest domain.CaseQuotation
			err := tx.Where("case_id = ?", caseID).Order("created_at DESC").First(&latest).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: case has no quotation to revise", ErrStaleState)
				}
				return fmt.Errorf("failed to load latest quotation: %w", err)
			}
			if latest.AuditStatus != domain.AuditStatusRejected {
				return fmt.Errorf("%w: latest quotation audit is %s, not rejected", ErrStaleState, latest.AuditStatus)
			}
		default:
			return fmt.Errorf("%w: quotation requires boq_completed, case is %s", ErrStaleState, c.Status)
		}

		var boq domain.CaseBOQ
		err := tx.Where("case_id = ?", caseID).Order("created_at DESC").First(&boq).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: case has no boq to price", ErrStaleState)
			}
			return fmt.Errorf("failed to load boq: %w", err)
		}

		// A resubmission re-prices the already-locked BOQ read-only.
		if !boq.Locked {
			if err := s.boqRepo.LockTx(tx, boq.ID); err != nil {
				if errors.Is(err, repository.ErrBOQLocked) {
					return ErrBOQLocked
				}
				return fmt.Errorf("failed to lock boq: %w", err)
			}
		}

		quotation = &domain.CaseQuotation{
			CaseID:          caseID,
			BOQID:           boq.ID,
			Items:           items,
			TaxRatePercent:  req.TaxRatePercent,
			DiscountPercent: req.DiscountPercent,
			SubtotalCents:   totals.SubtotalCents,
			GrandTotalCents: totals.GrandTotalCents,
			InternalPRCode:  req.InternalPRCode,
			AuditStatus:     domain.AuditStatusPending,
			CreatedBy:       userCtx.UserID.String(),
		}
		if err := s.quotationRepo.CreateTx(tx, quotation); err != nil {
			return fmt.Errorf("failed to create quotation: %w", err)
		}

		var task domain.CaseTask
		err = tx.Where("case_id = ? AND type = ? AND status != ?",
			caseID, domain.TaskTypeQuotation, domain.TaskStatusCompleted).
			Order("created_at ASC").
			First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no open quotation task on case", ErrStaleState)
			}
			return fmt.Errorf("failed to load quotation task: %w", err)
		}
		if err := completeTaskTx(tx, &task, "Quotation submitted"); err != nil {
			return err
		}

		return logActivityTx(tx, caseID, userCtx.UserID.String(), userCtx.DisplayName,
			"Quotation submitted",
			fmt.Sprintf("Quotation at %d cents submitted for audit", totals.GrandTotalCents))
	})
	if err != nil {
		return nil, err
	}

	if s.docService != nil {
		if err := s.docService.Enqueue(ctx, caseID, quotation.ID, domain.DocumentKindQuotationPDF); err != nil {
			s.logger.Warn("failed to enqueue quotation pdf",
				zap.String("quotationID", quotation.ID.String()),
				zap.Error(err))
		}
	}

	dto := mapper.ToQuotationDTO(ctx, quotation)
	return &dto, nil
}

// ResolveAudit settles a pending audit. Approval completes the
// PROCUREMENT_AUDIT task, spawning EXECUTION_PLANNING; rejection demands a
// note, closes the audit task and opens a fresh QUOTATION task so the team
// can submit a revised quotation. Resolving an already-settled audit with
// the same verdict is a no-op success.
func (s *QuotationService) ResolveAudit(ctx context.Context, id uuid.UUID, req *domain.ResolveAuditRequest) (*domain.QuotationDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.CanResolveAudit() {
		return nil, ErrPermissionDenied
	}

	approve := req.Decision == "approve"
	if !approve && req.Note == "" {
		return nil, fmt.Errorf("%w: audit rejection requires a note", ErrReasonRequired)
	}

	verdict := domain.AuditStatusRejected
	if approve {
		verdict = domain.AuditStatusApproved
	}

	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var q domain.CaseQuotation
		if err := tx.First(&q, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load quotation: %w", err)
		}

		if q.AuditStatus != domain.AuditStatusPending {
			if q.AuditStatus == verdict {
				return nil
			}
			return fmt.Errorf("%w: audit already resolved as %s", ErrStaleState, q.AuditStatus)
		}

		rows, err := s.quotationRepo.ResolveAuditTx(tx, id, verdict, req.Note, userCtx.UserID.String())
		if err != nil {
			return fmt.Errorf("failed to resolve audit: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: audit resolved concurrently", ErrStaleState)
		}

		var task domain.CaseTask
		err = tx.Where("case_id = ? AND type = ? AND status != ?",
			q.CaseID, domain.TaskTypeProcurementAudit, domain.TaskStatusCompleted).
			Order("created_at ASC").
			First(&task).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no open audit task on case", ErrStaleState)
			}
			return fmt.Errorf("failed to load audit task: %w", err)
		}

		if approve {
			if err := completeTaskTx(tx, &task, "Procurement audit approved"); err != nil {
				return err
			}
		} else {
			// Close the audit step without advancing the chain and hand
			// the case back to the quotation team for a revised submission.
			if err := closeTaskTx(tx, &task, "Procurement audit rejected"); err != nil {
				return err
			}

			var c domain.Case
			if err := tx.First(&c, "id = ?", q.CaseID).Error; err != nil {
				return fmt.Errorf("failed to load case for retry task: %w", err)
			}
			step := domain.QuotationRetryStep()
			deadline := time.Now().Add(step.DeadlineAfter)
			retry := &domain.CaseTask{
				CaseID:     q.CaseID,
				Type:       step.NextType,
				Status:     domain.TaskStatusPending,
				AssignedTo: c.AssignedTeam[step.AssigneeRole],
				Deadline:   &deadline,
			}
			if err := tx.Create(retry).Error; err != nil {
				return fmt.Errorf("failed to create retry quotation task: %w", err)
			}
		}

		title := "Audit rejected"
		body := fmt.Sprintf("Procurement audit rejected: %s", req.Note)
		if approve {
			title = "Audit approved"
			body = "Procurement audit approved"
		}
		return logActivityTx(tx, q.CaseID, userCtx.UserID.String(), userCtx.DisplayName, title, body)
	})
	if err != nil {
		return nil, err
	}

	return s.GetQuotation(ctx, id)
}
