package sales

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Totals is the priced summary of a sale's line items.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	FinalAmount   decimal.Decimal
}

// CalculateLineTotal prices a single line:
// gross = quantity * unitPrice, discount = gross * discountPercent/100.
func CalculateLineTotal(quantity int64, unitPrice, discountPercent decimal.Decimal) (discountAmount, lineTotal decimal.Decimal) {
	gross := unitPrice.Mul(decimal.NewFromInt(quantity))
	discountAmount = gross.Mul(discountPercent).Div(oneHundred)
	lineTotal = gross.Sub(discountAmount)
	return discountAmount, lineTotal
}

// PriceItems computes subtotal, discount total, and final amount over the
// given inputs, and returns the priced items. It is a pure function shared by
// the create and update paths so that totals are always recomputed from the
// items rather than accepted from a caller.
func PriceItems(inputs []SaleItemInput) (Totals, []SaleItem) {
	var totals Totals
	items := make([]SaleItem, 0, len(inputs))
	for i, in := range inputs {
		gross := in.UnitPrice.Mul(decimal.NewFromInt(in.Quantity))
		discountAmount, lineTotal := CalculateLineTotal(in.Quantity, in.UnitPrice, in.Discount)

		totals.Subtotal = totals.Subtotal.Add(gross)
		totals.DiscountTotal = totals.DiscountTotal.Add(discountAmount)

		items = append(items, SaleItem{
			ItemName:        in.ItemName,
			Quantity:        in.Quantity,
			UnitPrice:       in.UnitPrice,
			DiscountPercent: in.Discount,
			LineTotal:       lineTotal,
			LineOrder:       i + 1,
		})
	}
	totals.FinalAmount = totals.Subtotal.Sub(totals.DiscountTotal)
	return totals, items
}
