package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldline/casework-api/internal/docgen"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DocumentService owns the generated-document queue. Workflow services enqueue
// after their transaction commits, and the retry job drains the queue by
// calling the external generator. Nothing here ever touches workflow state:
// a failed render only bumps the attempt counter.
type DocumentService struct {
	docRepo       *repository.DocumentRepository
	boqRepo       *repository.BOQRepository
	quotationRepo *repository.QuotationRepository
	caseRepo      *repository.CaseRepository
	client        *docgen.Client
	maxAttempts   int
	logger        *zap.Logger
}

// NewDocumentService creates a new DocumentService. The docgen client may be
// nil (generation disabled); enqueued documents then wait until a worker with
// a configured generator picks them up.
func NewDocumentService(
	docRepo *repository.DocumentRepository,
	boqRepo *repository.BOQRepository,
	quotationRepo *repository.QuotationRepository,
	caseRepo *repository.CaseRepository,
	client *docgen.Client,
	maxAttempts int,
	logger *zap.Logger,
) *DocumentService {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	return &DocumentService{
		docRepo:       docRepo,
		boqRepo:       boqRepo,
		quotationRepo: quotationRepo,
		caseRepo:      caseRepo,
		client:        client,
		maxAttempts:   maxAttempts,
		logger:        logger,
	}
}

// Enqueue records a pending generation request. Called after the workflow
// transaction that produced the source row has committed.
func (s *DocumentService) Enqueue(ctx context.Context, caseID, sourceID uuid.UUID, kind domain.DocumentKind) error {
	doc := &domain.GeneratedDocument{
		CaseID:   caseID,
		SourceID: sourceID,
		Kind:     kind,
		Status:   domain.DocumentStatusPending,
	}
	if err := s.docRepo.Enqueue(ctx, doc); err != nil {
		return fmt.Errorf("failed to enqueue document generation: %w", err)
	}

	s.logger.Debug("document generation enqueued",
		zap.String("caseID", caseID.String()),
		zap.String("kind", string(kind)))
	return nil
}

// ProcessPending drains one batch of the queue. Run by the cron retry job.
// Each document is attempted independently; one failure does not stop the
// batch, and a document that keeps failing is parked as failed after
// maxAttempts.
func (s *DocumentService) ProcessPending(ctx context.Context, batchSize int) error {
	if s.client == nil || !s.client.IsEnabled() {
		return nil
	}
	if batchSize < 1 {
		batchSize = 20
	}

	docs, err := s.docRepo.ListPending(ctx, s.maxAttempts, batchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending documents: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	s.logger.Info("processing pending document generations", zap.Int("count", len(docs)))

	for i := range docs {
		doc := &docs[i]
		if err := s.processOne(ctx, doc); err != nil {
			s.logger.Warn("document generation attempt failed",
				zap.String("documentID", doc.ID.String()),
				zap.String("kind", string(doc.Kind)),
				zap.Int("attempts", doc.Attempts+1),
				zap.Error(err))
			if recErr := s.docRepo.RecordAttempt(ctx, doc.ID, s.maxAttempts, err.Error()); recErr != nil {
				s.logger.Error("failed to record generation attempt",
					zap.String("documentID", doc.ID.String()),
					zap.Error(recErr))
			}
		}
	}
	return nil
}

// processOne renders a single document and writes the URL back to both the
// queue row and the source entity.
func (s *DocumentService) processOne(ctx context.Context, doc *domain.GeneratedDocument) error {
	url, err := s.client.Render(ctx, doc.Kind, doc.CaseID.String(), doc.SourceID.String())
	if err != nil {
		return err
	}

	switch doc.Kind {
	case domain.DocumentKindBOQPDF:
		if err := s.boqRepo.SetPDFURL(ctx, doc.SourceID, url); err != nil {
			return fmt.Errorf("failed to store BOQ pdf url: %w", err)
		}
	case domain.DocumentKindQuotationPDF:
		if err := s.quotationRepo.SetPDFURL(ctx, doc.SourceID, url); err != nil {
			return fmt.Errorf("failed to store quotation pdf url: %w", err)
		}
	case domain.DocumentKindMasterProjectPDF:
		if err := s.caseRepo.SetMasterRecordURL(ctx, doc.CaseID, url); err != nil {
			return fmt.Errorf("failed to store master record url: %w", err)
		}
	default:
		return fmt.Errorf("unknown document kind %q", doc.Kind)
	}

	if err := s.docRepo.MarkDone(ctx, doc.ID, url); err != nil {
		return fmt.Errorf("failed to mark document done: %w", err)
	}

	s.logger.Info("document generated",
		zap.String("documentID", doc.ID.String()),
		zap.String("caseID", doc.CaseID.String()),
		zap.String("kind", string(doc.Kind)),
		zap.String("url", url))
	return nil
}

// GetDocument returns one queue entry, mainly for operator inspection.
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*domain.GeneratedDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}
