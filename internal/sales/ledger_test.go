package sales

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDeriveCreditStatus(t *testing.T) {
	final := dec("2700")

	require.Equal(t, CreditStatusUnpaid, DeriveCreditStatus(final, decimal.Zero))
	require.Equal(t, CreditStatusPartial, DeriveCreditStatus(final, dec("1000")))
	require.Equal(t, CreditStatusPaid, DeriveCreditStatus(final, dec("2700")))
	// Overpayment saturates at paid.
	require.Equal(t, CreditStatusPaid, DeriveCreditStatus(final, dec("3000")))
}

func TestDeriveCreditStatusMonotonic(t *testing.T) {
	final := dec("1000")
	rank := map[CreditStatus]int{
		CreditStatusUnpaid:  0,
		CreditStatusPartial: 1,
		CreditStatusPaid:    2,
	}

	paid := decimal.Zero
	prev := DeriveCreditStatus(final, paid)
	for _, amount := range []string{"100", "250", "400", "300"} {
		paid = paid.Add(dec(amount))
		next := DeriveCreditStatus(final, paid)
		require.GreaterOrEqual(t, rank[next], rank[prev],
			"status regressed from %s to %s at totalPaid=%s", prev, next, paid)
		prev = next
	}
	require.Equal(t, CreditStatusPaid, prev)
}

func TestTotalPaidOrderIndependent(t *testing.T) {
	a := []Payment{{Amount: dec("100")}, {Amount: dec("250.50")}, {Amount: dec("0.50")}}
	b := []Payment{a[2], a[0], a[1]}

	require.True(t, TotalPaid(a).Equal(TotalPaid(b)))
	require.True(t, TotalPaid(a).Equal(dec("351")))
}

func TestBalanceOf(t *testing.T) {
	require.True(t, BalanceOf(dec("2700"), dec("1000")).Equal(dec("1700")))
	require.True(t, BalanceOf(dec("2700"), dec("2700")).IsZero())
	// Overpayment never yields a negative balance.
	require.True(t, BalanceOf(dec("2700"), dec("5000")).IsZero())
}

func TestSaleLedgerHelpers(t *testing.T) {
	partial := CreditStatusPartial
	credit := &Sale{
		PaymentMethod: PaymentMethodCredit,
		FinalAmount:   dec("2700"),
		CreditStatus:  &partial,
		Payments:      []Payment{{Amount: dec("1000")}},
	}
	require.True(t, credit.TotalPaid().Equal(dec("1000")))
	require.True(t, credit.Balance().Equal(dec("1700")))
	require.Equal(t, CreditStatusPartial, credit.EffectiveCreditStatus())

	cash := &Sale{PaymentMethod: PaymentMethodCash, FinalAmount: dec("500")}
	require.True(t, cash.Balance().IsZero())
	require.Equal(t, CreditStatusPaid, cash.EffectiveCreditStatus())
}
