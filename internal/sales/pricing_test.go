package sales

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateLineTotal(t *testing.T) {
	discount, total := CalculateLineTotal(3, dec("1000"), dec("10"))
	require.True(t, discount.Equal(dec("300")), "discount = %s", discount)
	require.True(t, total.Equal(dec("2700")), "total = %s", total)

	discount, total = CalculateLineTotal(2, dec("49.99"), dec("0"))
	require.True(t, discount.IsZero())
	require.True(t, total.Equal(dec("99.98")))

	discount, total = CalculateLineTotal(1, dec("500"), dec("100"))
	require.True(t, discount.Equal(dec("500")))
	require.True(t, total.IsZero())
}

func TestPriceItems(t *testing.T) {
	totals, items := PriceItems([]SaleItemInput{
		{ItemName: "Widget", Quantity: 3, UnitPrice: dec("1000"), Discount: dec("10")},
	})
	require.True(t, totals.Subtotal.Equal(dec("3000")), "subtotal = %s", totals.Subtotal)
	require.True(t, totals.DiscountTotal.Equal(dec("300")), "discountTotal = %s", totals.DiscountTotal)
	require.True(t, totals.FinalAmount.Equal(dec("2700")), "finalAmount = %s", totals.FinalAmount)

	require.Len(t, items, 1)
	require.Equal(t, "Widget", items[0].ItemName)
	require.Equal(t, 1, items[0].LineOrder)
	require.True(t, items[0].LineTotal.Equal(dec("2700")))
}

func TestPriceItemsMultipleLines(t *testing.T) {
	totals, items := PriceItems([]SaleItemInput{
		{ItemName: "A", Quantity: 2, UnitPrice: dec("150"), Discount: dec("0")},
		{ItemName: "B", Quantity: 1, UnitPrice: dec("800"), Discount: dec("25")},
	})
	require.True(t, totals.Subtotal.Equal(dec("1100")))
	require.True(t, totals.DiscountTotal.Equal(dec("200")))
	require.True(t, totals.FinalAmount.Equal(dec("900")))
	require.Equal(t, 1, items[0].LineOrder)
	require.Equal(t, 2, items[1].LineOrder)
}

func TestPriceItemsEmpty(t *testing.T) {
	totals, items := PriceItems(nil)
	require.True(t, totals.Subtotal.IsZero())
	require.True(t, totals.FinalAmount.IsZero())
	require.Empty(t, items)
}
