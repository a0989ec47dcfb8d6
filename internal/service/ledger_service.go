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

// LedgerService posts invoices as balanced double-entry transactions and
// serves the ledger read model. Entries are immutable; corrections are new
// postings, never edits.
type LedgerService struct {
	db           *gorm.DB
	invoiceRepo  *repository.InvoiceRepository
	ledgerRepo   *repository.LedgerRepository
	caseRepo     *repository.CaseRepository
	sequenceRepo *repository.NumberSequenceRepository
	activityRepo *repository.ActivityRepository
	logger       *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	db *gorm.DB,
	invoiceRepo *repository.InvoiceRepository,
	ledgerRepo *repository.LedgerRepository,
	caseRepo *repository.CaseRepository,
	sequenceRepo *repository.NumberSequenceRepository,
	activityRepo *repository.ActivityRepository,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		db:           db,
		invoiceRepo:  invoiceRepo,
		ledgerRepo:   ledgerRepo,
		caseRepo:     caseRepo,
		sequenceRepo: sequenceRepo,
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// PostSalesInvoice posts a sales invoice: CREDIT REVENUE and DEBIT
// ACCOUNTS_RECEIVABLE, both at the invoice total.
func (s *LedgerService) PostSalesInvoice(ctx context.Context, req *domain.PostInvoiceRequest) (*domain.InvoiceDTO, error) {
	return s.postInvoice(ctx, domain.InvoiceKindSales, req)
}

// PostPurchaseInvoice posts a purchase invoice: DEBIT EXPENSE and CREDIT
// ACCOUNTS_PAYABLE, both at the pre-tax amount. When the case carries a cost
// center the same transaction bumps spent atomically.
func (s *LedgerService) PostPurchaseInvoice(ctx context.Context, req *domain.PostInvoiceRequest) (*domain.InvoiceDTO, error) {
	return s.postInvoice(ctx, domain.InvoiceKindPurchase, req)
}

// postInvoice is the single posting path. One transaction claims the invoice
// number, inserts the invoice, writes the balanced entry pair, checks the
// balance defensively, and applies the cost-center increment. Any failure
// rolls the whole posting back; a write conflict retries the whole
// transaction and exhaustion surfaces as stale state.
func (s *LedgerService) postInvoice(ctx context.Context, kind domain.InvoiceKind, req *domain.PostInvoiceRequest) (*domain.InvoiceDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.CanPostInvoices() {
		return nil, ErrPermissionDenied
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if req.TaxAmountCents < 0 {
		return nil, fmt.Errorf("%w: tax amount cannot be negative", ErrInvalidInput)
	}

	total := req.AmountCents + req.TaxAmountCents

	// Sales posts at the gross total, purchases at the pre-tax amount.
	postedAmount := req.AmountCents
	debitAccount, creditAccount := domain.AccountExpense, domain.AccountAccountsPayable
	sourceType := domain.SourceTypePurchaseInvoice
	seqKind := repository.SequenceKindPurchase
	if kind == domain.InvoiceKindSales {
		postedAmount = total
		debitAccount, creditAccount = domain.AccountAccountsReceivable, domain.AccountRevenue
		sourceType = domain.SourceTypeSalesInvoice
		seqKind = repository.SequenceKindSales
	}

	var invoice *domain.Invoice
	err := repository.RunInTransaction(ctx, s.db, func(tx *gorm.DB) error {
		number, err := s.sequenceRepo.ClaimNext(tx, userCtx.OrganizationID, seqKind, req.IssueDate.Year())
		if err != nil {
			return err
		}

		invoice = &domain.Invoice{
			OrganizationID:   userCtx.OrganizationID,
			CaseID:           req.CaseID,
			Kind:             kind,
			CounterpartyName: req.CounterpartyName,
			InvoiceNumber:    number,
			AmountCents:      req.AmountCents,
			TaxAmountCents:   req.TaxAmountCents,
			TotalAmountCents: total,
			IssueDate:        req.IssueDate,
			DueDate:          req.DueDate,
			Status:           domain.InvoiceStatusPendingApproval,
		}
		if err := s.invoiceRepo.CreateTx(tx, invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		txID := uuid.New()
		now := time.Now()
		entries := []domain.LedgerEntry{
			{
				TransactionID:  txID,
				OrganizationID: userCtx.OrganizationID,
				CaseID:         req.CaseID,
				EntryDate:      now,
				Type:           domain.EntryTypeDebit,
				AmountCents:    postedAmount,
				Account:        debitAccount,
				SourceType:     sourceType,
				SourceID:       invoice.ID,
			},
			{
				TransactionID:  txID,
				OrganizationID: userCtx.OrganizationID,
				CaseID:         req.CaseID,
				EntryDate:      now,
				Type:           domain.EntryTypeCredit,
				AmountCents:    postedAmount,
				Account:        creditAccount,
				SourceType:     sourceType,
				SourceID:       invoice.ID,
			},
		}

		// Must hold by construction; checked anyway so an imbalanced pair can
		// never reach the ledger.
		if debits, credits, balanced := domain.BalanceLedgerEntries(entries); !balanced {
			return fmt.Errorf("%w: debit %d != credit %d", ErrLedgerImbalance, debits, credits)
		}

		if err := s.ledgerRepo.AppendTx(tx, entries); err != nil {
			return fmt.Errorf("failed to append ledger entries: %w", err)
		}

		if kind == domain.InvoiceKindPurchase && req.CaseID != nil {
			var c domain.Case
			if err := tx.First(&c, "id = ?", *req.CaseID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: case for cost center", ErrNotFound)
				}
				return fmt.Errorf("failed to load case: %w", err)
			}
			if c.HasCostCenter() {
				rows, err := s.caseRepo.AddSpendingTx(tx, *req.CaseID, req.AmountCents)
				if err != nil {
					return fmt.Errorf("failed to update cost center: %w", err)
				}
				if rows == 0 {
					return fmt.Errorf("%w: posting %d cents would exceed the case budget", ErrBudgetExceeded, req.AmountCents)
				}
			}

			if err := logActivityTx(tx, *req.CaseID, userCtx.UserID.String(), userCtx.DisplayName,
				"Purchase invoice posted",
				fmt.Sprintf("Invoice %s for %d cents posted against the cost center", number, req.AmountCents)); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice posted",
		zap.String("invoiceID", invoice.ID.String()),
		zap.String("number", invoice.InvoiceNumber),
		zap.String("kind", string(kind)),
		zap.Int64("amountCents", int64(postedAmount)))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// MarkInvoicePaid is a separate idempotent status flip: it posts nothing to
// the ledger, and re-marking a paid invoice is a no-op success.
func (s *LedgerService) MarkInvoicePaid(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.CanPostInvoices() {
		return nil, ErrPermissionDenied
	}

	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if inv.Status != domain.InvoiceStatusPaid {
		if _, err := s.invoiceRepo.MarkPaid(ctx, id, time.Now()); err != nil {
			return nil, fmt.Errorf("failed to mark invoice paid: %w", err)
		}
		inv, err = s.invoiceRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to reload invoice: %w", err)
		}
	}

	dto := mapper.ToInvoiceDTO(inv)
	return &dto, nil
}

// GetInvoice returns one invoice.
func (s *LedgerService) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	dto := mapper.ToInvoiceDTO(inv)
	return &dto, nil
}

// ListInvoices returns a filtered, paginated invoice list.
func (s *LedgerService) ListInvoices(ctx context.Context, page, pageSize int, filters *repository.InvoiceFilters) ([]domain.InvoiceDTO, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > repository.MaxPageSize {
		pageSize = 50
	}

	invoices, total, err := s.invoiceRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}

	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i])
	}
	return dtos, total, nil
}

// ListLedger returns a paginated view of the organization's ledger.
func (s *LedgerService) ListLedger(ctx context.Context, page, pageSize int) ([]domain.LedgerEntryDTO, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > repository.MaxPageSize {
		pageSize = 50
	}

	entries, total, err := s.ledgerRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	dtos := make([]domain.LedgerEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToLedgerEntryDTO(&entries[i])
	}
	return dtos, total, nil
}

// ListCaseLedger returns every posting against a case.
func (s *LedgerService) ListCaseLedger(ctx context.Context, caseID uuid.UUID) ([]domain.LedgerEntryDTO, error) {
	entries, err := s.ledgerRepo.ListByCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list case ledger: %w", err)
	}
	dtos := make([]domain.LedgerEntryDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToLedgerEntryDTO(&entries[i])
	}
	return dtos, nil
}

// TrialBalance sums debits and credits per account.
func (s *LedgerService) TrialBalance(ctx context.Context) (*domain.TrialBalanceDTO, error) {
	lines, err := s.ledgerRepo.TrialBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute trial balance: %w", err)
	}

	out := &domain.TrialBalanceDTO{Lines: lines}
	for _, line := range lines {
		out.TotalDebitCents += line.DebitCents
		out.TotalCreditCents += line.CreditCents
	}
	out.Balanced = out.TotalDebitCents == out.TotalCreditCents
	return out, nil
}
