package repository

import (
	"context"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerRepository is append-only. There is deliberately no Update or Delete:
// a wrong posting is corrected by a reversing posting.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// AppendTx writes a balanced entry set inside the caller's transaction.
func (r *LedgerRepository) AppendTx(tx *gorm.DB, entries []domain.LedgerEntry) error {
	return tx.Create(&entries).Error
}

func (r *LedgerRepository) ListByCase(ctx context.Context, caseID uuid.UUID) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	query := r.db.WithContext(ctx).Where("case_id = ?", caseID)
	query = ApplyOrgFilter(ctx, query)
	err := query.Order("entry_date ASC, created_at ASC").Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) ListByTransaction(ctx context.Context, txID uuid.UUID) ([]domain.LedgerEntry, error) {
	var entries []domain.LedgerEntry
	query := r.db.WithContext(ctx).Where("transaction_id = ?", txID)
	query = ApplyOrgFilter(ctx, query)
	err := query.Order("created_at ASC").Find(&entries).Error
	return entries, err
}

func (r *LedgerRepository) List(ctx context.Context, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	var entries []domain.LedgerEntry
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.LedgerEntry{})
	query = ApplyOrgFilter(ctx, query)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("entry_date DESC, created_at DESC").
		Offset(offset).Limit(pageSize).Find(&entries).Error

	return entries, total, err
}

// SumByDateRange totals debits and credits for one organization over
// [from, to). Used by the ERP reconciliation job, which runs outside any
// request context and therefore passes the organization explicitly.
func (r *LedgerRepository) SumByDateRange(ctx context.Context, orgID domain.OrganizationID, from, to time.Time) (debit, credit domain.Cents, err error) {
	type row struct {
		Type  domain.EntryType
		Total int64
	}
	var rows []row

	err = r.db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Select("type, SUM(amount_cents) as total").
		Where("organization_id = ? AND entry_date >= ? AND entry_date < ?", orgID, from, to).
		Group("type").
		Find(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	for _, r := range rows {
		switch r.Type {
		case domain.EntryTypeDebit:
			debit = domain.Cents(r.Total)
		case domain.EntryTypeCredit:
			credit = domain.Cents(r.Total)
		}
	}
	return debit, credit, nil
}

// TrialBalance sums debits and credits per account across the visible ledger.
func (r *LedgerRepository) TrialBalance(ctx context.Context) ([]domain.TrialBalanceLineDTO, error) {
	type row struct {
		Account domain.LedgerAccount
		Type    domain.EntryType
		Total   int64
	}
	var rows []row

	query := r.db.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Select("account, type, SUM(amount_cents) as total").
		Group("account, type")
	query = ApplyOrgFilter(ctx, query)
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	byAccount := make(map[domain.LedgerAccount]*domain.TrialBalanceLineDTO)
	order := []domain.LedgerAccount{}
	for _, r := range rows {
		line, ok := byAccount[r.Account]
		if !ok {
			line = &domain.TrialBalanceLineDTO{Account: r.Account}
			byAccount[r.Account] = line
			order = append(order, r.Account)
		}
		switch r.Type {
		case domain.EntryTypeDebit:
			line.DebitCents = domain.Cents(r.Total)
		case domain.EntryTypeCredit:
			line.CreditCents = domain.Cents(r.Total)
		}
	}

	lines := make([]domain.TrialBalanceLineDTO, 0, len(order))
	for _, acct := range order {
		lines = append(lines, *byAccount[acct])
	}
	return lines, nil
}
