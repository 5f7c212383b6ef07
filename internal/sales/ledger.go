package sales

import "github.com/shopspring/decimal"

// TotalPaid sums the full payment history. Amounts are always positive, so
// the sum is non-decreasing as entries are appended.
func TotalPaid(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// DeriveCreditStatus classifies the payment history against the amount owed:
// unpaid when nothing is paid, paid when totalPaid covers finalAmount
// (saturating on overpayment), partial otherwise. For a fixed finalAmount the
// result can only move unpaid -> partial -> paid.
func DeriveCreditStatus(finalAmount, totalPaid decimal.Decimal) CreditStatus {
	switch {
	case totalPaid.IsZero():
		return CreditStatusUnpaid
	case totalPaid.GreaterThanOrEqual(finalAmount):
		return CreditStatusPaid
	default:
		return CreditStatusPartial
	}
}

// BalanceOf returns the amount still owed, floored at zero.
func BalanceOf(finalAmount, totalPaid decimal.Decimal) decimal.Decimal {
	balance := finalAmount.Sub(totalPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// TotalPaid sums the sale's recorded payments.
func (s *Sale) TotalPaid() decimal.Decimal {
	return TotalPaid(s.Payments)
}

// Balance is the amount still owed on the sale. A cash sale is settled at
// creation and always has a zero balance.
func (s *Sale) Balance() decimal.Decimal {
	if !s.IsCredit() {
		return decimal.Zero
	}
	return BalanceOf(s.FinalAmount, s.TotalPaid())
}

// EffectiveCreditStatus is the stored credit status for credit sales; cash
// sales report paid so that listings and reports need no special case.
func (s *Sale) EffectiveCreditStatus() CreditStatus {
	if !s.IsCredit() || s.CreditStatus == nil {
		return CreditStatusPaid
	}
	return *s.CreditStatus
}
