package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldline/casework-api/internal/datawarehouse"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/fieldline/casework-api/internal/repository"
	"go.uber.org/zap"
)

// ReconciliationService compares locally posted ledger entries against the
// ERP general ledger in the data warehouse. It is read-only on both sides:
// discrepancies are reported, never auto-corrected, since the fix is always
// a manual reversing posting.
type ReconciliationService struct {
	ledgerRepo *repository.LedgerRepository
	orgRepo    *repository.OrganizationRepository
	dwClient   *datawarehouse.Client
	logger     *zap.Logger
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	ledgerRepo *repository.LedgerRepository,
	orgRepo *repository.OrganizationRepository,
	dwClient *datawarehouse.Client,
	logger *zap.Logger,
) *ReconciliationService {
	return &ReconciliationService{
		ledgerRepo: ledgerRepo,
		orgRepo:    orgRepo,
		dwClient:   dwClient,
		logger:     logger,
	}
}

// ReconciliationResult summarizes one organization's comparison.
type ReconciliationResult struct {
	OrganizationID  domain.OrganizationID `json:"organizationId"`
	From            time.Time             `json:"from"`
	To              time.Time             `json:"to"`
	LocalDebitCents domain.Cents          `json:"localDebitCents"`
	LocalCreditCents domain.Cents         `json:"localCreditCents"`
	ERPDebitCents   domain.Cents          `json:"erpDebitCents"`
	ERPCreditCents  domain.Cents          `json:"erpCreditCents"`
	Matched         bool                  `json:"matched"`
}

// ReconcileAll runs the comparison for every active organization over the
// previous day. Invoked by the nightly cron job.
func (s *ReconciliationService) ReconcileAll(ctx context.Context) error {
	if s.dwClient == nil || !s.dwClient.IsEnabled() {
		return nil
	}

	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.Add(-24 * time.Hour)

	orgs, err := s.orgRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	for _, org := range orgs {
		result, err := s.ReconcileOrganization(ctx, org.ID, from, to)
		if err != nil {
			s.logger.Error("reconciliation failed",
				zap.String("organizationID", string(org.ID)),
				zap.Error(err))
			continue
		}
		if !result.Matched {
			s.logger.Warn("ledger does not match ERP general ledger",
				zap.String("organizationID", string(org.ID)),
				zap.Int64("localDebitCents", int64(result.LocalDebitCents)),
				zap.Int64("localCreditCents", int64(result.LocalCreditCents)),
				zap.Int64("erpDebitCents", int64(result.ERPDebitCents)),
				zap.Int64("erpCreditCents", int64(result.ERPCreditCents)))
		}
	}
	return nil
}

// ReconcileOrganization compares one organization's ledger over [from, to).
func (s *ReconciliationService) ReconcileOrganization(ctx context.Context, orgID domain.OrganizationID, from, to time.Time) (*ReconciliationResult, error) {
	if s.dwClient == nil || !s.dwClient.IsEnabled() {
		return nil, fmt.Errorf("data warehouse not available")
	}

	localDebit, localCredit, err := s.ledgerRepo.SumByDateRange(ctx, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum local ledger: %w", err)
	}

	erpTotals, err := s.dwClient.GetLedgerTotals(ctx, string(orgID), from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ERP totals: %w", err)
	}

	result := &ReconciliationResult{
		OrganizationID:   orgID,
		From:             from,
		To:               to,
		LocalDebitCents:  localDebit,
		LocalCreditCents: localCredit,
		ERPDebitCents:    domain.Cents(erpTotals.DebitCents),
		ERPCreditCents:   domain.Cents(erpTotals.CreditCents),
	}
	result.Matched = result.LocalDebitCents == result.ERPDebitCents &&
		result.LocalCreditCents == result.ERPCreditCents

	return result, nil
}
