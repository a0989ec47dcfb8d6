package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/fieldline/casework-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPriceLine(t *testing.T) {
	tests := []struct {
		name     string
		rate     domain.Cents
		quantity float64
		want     domain.Cents
	}{
		{"whole quantity", 12500, 4, 50000},
		{"fractional quantity", 12500, 2.5, 31250},
		{"rounds half up", 333, 1.5, 500},         // 499.5 -> 500
		{"tiny fraction rounds down", 100, 0.004, 0},
		{"zero rate", 0, 99, 0},
		{"zero quantity", 9900, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.PriceLine(tt.rate, tt.quantity))
		})
	}
}

func TestComputeQuotationTotals(t *testing.T) {
	items := []domain.BOQItem{
		{Name: "Concrete C30", Unit: "m3", Quantity: 10, RateCents: 50000, TotalCents: 500000},
		{Name: "Rebar 12mm", Unit: "kg", Quantity: 200, RateCents: 250, TotalCents: 50000},
	}

	totals := domain.ComputeQuotationTotals(items, 10, 25)

	assert.Equal(t, domain.Cents(550000), totals.SubtotalCents)
	assert.Equal(t, domain.Cents(55000), totals.DiscountCents)
	// Tax applies to the discounted amount: (550000-55000) * 25% = 123750
	assert.Equal(t, domain.Cents(123750), totals.TaxCents)
	assert.Equal(t, domain.Cents(618750), totals.GrandTotalCents)
}

func TestComputeQuotationTotals_NoDiscountNoTax(t *testing.T) {
	items := []domain.BOQItem{
		{Name: "Labour", Unit: "h", Quantity: 8, RateCents: 95000, TotalCents: 760000},
	}

	totals := domain.ComputeQuotationTotals(items, 0, 0)

	assert.Equal(t, domain.Cents(760000), totals.SubtotalCents)
	assert.Equal(t, domain.Cents(0), totals.DiscountCents)
	assert.Equal(t, domain.Cents(0), totals.TaxCents)
	assert.Equal(t, domain.Cents(760000), totals.GrandTotalCents)
}

func TestComputeQuotationTotals_RoundsPercentagesOnce(t *testing.T) {
	// 33333 * 7.5% = 2499.975, rounded once to 2500.
	items := []domain.BOQItem{
		{Name: "Misc", Unit: "pcs", Quantity: 1, RateCents: 33333, TotalCents: 33333},
	}

	totals := domain.ComputeQuotationTotals(items, 7.5, 0)

	assert.Equal(t, domain.Cents(2500), totals.DiscountCents)
	assert.Equal(t, domain.Cents(30833), totals.GrandTotalCents)
}

func TestComputeQuotationTotals_EmptyItems(t *testing.T) {
	totals := domain.ComputeQuotationTotals(nil, 10, 25)

	assert.Equal(t, domain.Cents(0), totals.SubtotalCents)
	assert.Equal(t, domain.Cents(0), totals.GrandTotalCents)
}

func TestBalanceLedgerEntries(t *testing.T) {
	txID := uuid.New()

	balancedPair := []domain.LedgerEntry{
		{TransactionID: txID, Type: domain.EntryTypeDebit, AmountCents: 125000, Account: domain.AccountAccountsReceivable},
		{TransactionID: txID, Type: domain.EntryTypeCredit, AmountCents: 125000, Account: domain.AccountRevenue},
	}

	debits, credits, balanced := domain.BalanceLedgerEntries(balancedPair)
	assert.Equal(t, domain.Cents(125000), debits)
	assert.Equal(t, domain.Cents(125000), credits)
	assert.True(t, balanced)
}

func TestBalanceLedgerEntries_Imbalanced(t *testing.T) {
	entries := []domain.LedgerEntry{
		{Type: domain.EntryTypeDebit, AmountCents: 100000},
		{Type: domain.EntryTypeCredit, AmountCents: 99999},
	}

	debits, credits, balanced := domain.BalanceLedgerEntries(entries)
	assert.Equal(t, domain.Cents(100000), debits)
	assert.Equal(t, domain.Cents(99999), credits)
	assert.False(t, balanced)
}

func TestBalanceLedgerEntries_Empty(t *testing.T) {
	debits, credits, balanced := domain.BalanceLedgerEntries(nil)
	assert.Equal(t, domain.Cents(0), debits)
	assert.Equal(t, domain.Cents(0), credits)
	assert.True(t, balanced)
}
