// Package calc holds the quote totals arithmetic. Everything here is
// pure: the same lines, selection and VAT rate always produce the same
// totals, so the functions serve both persisted pricing and the public
// selection preview.
package calc

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Line is a priced quote line as the calculator sees it.
type Line struct {
	ID        string
	Qty       decimal.Decimal
	UnitPrice decimal.Decimal
	Optional  bool
}

// Totals is the full breakdown shown to customers. Subtotal splits
// into the mandatory base and the currently selected optional items.
type Totals struct {
	BaseSubtotal      decimal.Decimal
	OptionalSubtotal  decimal.Decimal
	Subtotal          decimal.Decimal
	VAT               decimal.Decimal
	Total             decimal.Decimal
	SelectedItemCount int
}

// Selection answers whether an optional line is currently selected.
// *selection.State satisfies it.
type Selection interface {
	IsSelected(id string) bool
}

// LineTotal prices one line: qty times unit price, rounded to two
// decimals. Stored line totals are always recomputed through this
// rather than trusted, so cached values cannot drift.
func LineTotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Round(2)
}

// Compute derives the totals for a set of lines under a selection.
// vatRate is a percentage (25.00 means 25%). Each line total is
// rounded before summation; VAT and the grand total are rounded once
// at the end. A nil selection means no optional line is selected.
func Compute(lines []Line, sel Selection, vatRate decimal.Decimal) Totals {
	var t Totals
	for _, line := range lines {
		lineTotal := LineTotal(line.Qty, line.UnitPrice)
		if !line.Optional {
			t.BaseSubtotal = t.BaseSubtotal.Add(lineTotal)
			continue
		}
		if sel != nil && sel.IsSelected(line.ID) {
			t.OptionalSubtotal = t.OptionalSubtotal.Add(lineTotal)
			t.SelectedItemCount++
		}
	}
	t.Subtotal = t.BaseSubtotal.Add(t.OptionalSubtotal)
	t.VAT = t.Subtotal.Mul(vatRate).Div(hundred).Round(2)
	t.Total = t.Subtotal.Add(t.VAT).Round(2)
	return t
}

// ApplyMarkup prices a material for sale: unit cost increased by the
// markup percentage, rounded to two decimals.
func ApplyMarkup(unitCost, markupPct decimal.Decimal) decimal.Decimal {
	return unitCost.Mul(one.Add(markupPct.Div(hundred))).Round(2)
}
