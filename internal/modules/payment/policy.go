package payment

import "github.com/shopspring/decimal"

// DepositPolicy decides how much of an order is collected up front. Orders
// strictly above Threshold pay Rate of the total; the rest pay in full.
type DepositPolicy struct {
	Threshold int64
	Rate      decimal.Decimal
}

func (p DepositPolicy) AmountDue(total int64) int64 {
	if total <= p.Threshold {
		return total
	}
	return decimal.NewFromInt(total).Mul(p.Rate).Round(0).IntPart()
}

// reconcileTotal picks the order total after an online payment: the lower of
// the listed total and the amount paid, ignoring whichever of the two is zero.
func reconcileTotal(current, paid int64) int64 {
	switch {
	case current <= 0:
		return paid
	case paid <= 0:
		return current
	case paid < current:
		return paid
	default:
		return current
	}
}
