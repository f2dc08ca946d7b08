package calc

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Calle9610/smart-offertgenerator-sub001/pkg/selection"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type picked map[string]bool

func (p picked) IsSelected(id string) bool { return p[id] }

func demoLines() []Line {
	return []Line{
		{ID: "item-1", Qty: d("26"), UnitPrice: d("500.00")},
		{ID: "item-2", Qty: d("12"), UnitPrice: d("270.00")},
		{ID: "item-3", Qty: d("15"), UnitPrice: d("350.00"), Optional: true},
		{ID: "item-4", Qty: d("12"), UnitPrice: d("270.00"), Optional: true},
		{ID: "item-5", Qty: d("8"), UnitPrice: d("750.00"), Optional: true},
	}
}

func TestLineTotal(t *testing.T) {
	tests := []struct {
		name      string
		qty       string
		unitPrice string
		want      string
	}{
		{"whole units", "26", "500.00", "13000.00"},
		{"fractional quantity", "2.5", "199.90", "499.75"},
		{"rounding", "3.333", "3.00", "10.00"},
		{"zero quantity", "0", "500.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineTotal(d(tt.qty), d(tt.unitPrice))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestComputeBaseOnly(t *testing.T) {
	totals := Compute(demoLines(), nil, d("25.00"))

	assert.True(t, totals.BaseSubtotal.Equal(d("16240.00")), "base %s", totals.BaseSubtotal)
	assert.True(t, totals.OptionalSubtotal.IsZero())
	assert.True(t, totals.Subtotal.Equal(d("16240.00")))
	assert.True(t, totals.VAT.Equal(d("4060.00")), "vat %s", totals.VAT)
	assert.True(t, totals.Total.Equal(d("20300.00")), "total %s", totals.Total)
	assert.Equal(t, 0, totals.SelectedItemCount)
}

func TestComputeWithCheckboxSelection(t *testing.T) {
	totals := Compute(demoLines(), picked{"item-5": true}, d("25.00"))

	assert.True(t, totals.OptionalSubtotal.Equal(d("6000.00")))
	assert.True(t, totals.Subtotal.Equal(d("22240.00")))
	assert.Equal(t, 1, totals.SelectedItemCount)
}

func TestComputeRadioSwitch(t *testing.T) {
	items := []selection.Item{
		{ID: "item-1"},
		{ID: "item-2"},
		{ID: "item-3", Optional: true, Group: "materials"},
		{ID: "item-4", Optional: true, Group: "materials"},
		{ID: "item-5", Optional: true, Group: "services"},
	}
	modes := map[string]selection.Mode{
		"materials": selection.ModeSingle,
		"services":  selection.ModeMulti,
	}
	state := selection.NewState(items, modes)

	require.NoError(t, state.Toggle("item-3"))
	totals := Compute(demoLines(), state, d("25.00"))
	assert.True(t, totals.OptionalSubtotal.Equal(d("5250.00")), "after item-3: %s", totals.OptionalSubtotal)

	require.NoError(t, state.Toggle("item-4"))
	totals = Compute(demoLines(), state, d("25.00"))
	assert.True(t, totals.OptionalSubtotal.Equal(d("3240.00")), "after item-4: %s", totals.OptionalSubtotal)
	assert.Equal(t, 1, totals.SelectedItemCount)
}

func TestComputeIsPure(t *testing.T) {
	lines := demoLines()
	sel := picked{"item-3": true, "item-5": true}

	first := Compute(lines, sel, d("25.00"))
	second := Compute(lines, sel, d("25.00"))

	assert.True(t, first.Subtotal.Equal(second.Subtotal))
	assert.True(t, first.VAT.Equal(second.VAT))
	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, first.SelectedItemCount, second.SelectedItemCount)
}

func TestComputeRecomputesLineTotals(t *testing.T) {
	// Base subtotal never includes optional lines, whatever is selected.
	totals := Compute(demoLines(), picked{"item-3": true, "item-4": true, "item-5": true}, d("25.00"))
	assert.True(t, totals.BaseSubtotal.Equal(d("16240.00")))
}

func TestComputeEmpty(t *testing.T) {
	totals := Compute(nil, nil, d("25.00"))
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.VAT.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestApplyMarkup(t *testing.T) {
	tests := []struct {
		name     string
		unitCost string
		markup   string
		want     string
	}{
		{"default markup", "100.00", "20.00", "120.00"},
		{"zero markup", "45.50", "0", "45.50"},
		{"fractional result", "33.33", "12.50", "37.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyMarkup(d(tt.unitCost), d(tt.markup))
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}
