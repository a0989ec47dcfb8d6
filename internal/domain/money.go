package domain

import "github.com/shopspring/decimal"

// PriceLine computes a line total in cents from a unit rate and a quantity.
// The product is rounded to whole cents once, at this point, so every later
// aggregation is pure integer arithmetic.
func PriceLine(rate Cents, quantity float64) Cents {
	total := decimal.NewFromInt(int64(rate)).
		Mul(decimal.NewFromFloat(quantity)).
		Round(0)
	return Cents(total.IntPart())
}

// QuotationTotals holds the derived amounts of a priced quotation.
type QuotationTotals struct {
	SubtotalCents   Cents
	DiscountCents   Cents
	TaxCents        Cents
	GrandTotalCents Cents
}

// ComputeQuotationTotals derives subtotal, discount, tax and grand total from
// priced lines. Discount applies to the subtotal, tax to the discounted
// amount; each percentage is applied and rounded exactly once.
func ComputeQuotationTotals(items []BOQItem, discountPercent, taxRatePercent float64) QuotationTotals {
	var subtotal Cents
	for _, it := range items {
		subtotal += it.TotalCents
	}

	sub := decimal.NewFromInt(int64(subtotal))
	hundred := decimal.NewFromInt(100)

	discount := sub.Mul(decimal.NewFromFloat(discountPercent)).Div(hundred).Round(0)
	afterDiscount := sub.Sub(discount)
	tax := afterDiscount.Mul(decimal.NewFromFloat(taxRatePercent)).Div(hundred).Round(0)
	grand := afterDiscount.Add(tax)

	return QuotationTotals{
		SubtotalCents:   subtotal,
		DiscountCents:   Cents(discount.IntPart()),
		TaxCents:        Cents(tax.IntPart()),
		GrandTotalCents: Cents(grand.IntPart()),
	}
}

// BalanceLedgerEntries verifies that a set of entries nets to zero, debits
// against credits. Returns the debit and credit sums for diagnostics.
func BalanceLedgerEntries(entries []LedgerEntry) (debits, credits Cents, balanced bool) {
	for _, e := range entries {
		switch e.Type {
		case EntryTypeDebit:
			debits += e.AmountCents
		case EntryTypeCredit:
			credits += e.AmountCents
		}
	}
	return debits, credits, debits == credits
}
