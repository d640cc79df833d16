package service

import "github.com/shopspring/decimal"

// FeeCalculator computes the delivery fee for a single shop's order.
type FeeCalculator interface {
	DeliveryFee(itemsTotal decimal.Decimal) decimal.Decimal
}

// FlatFee charges the same delivery fee per shop regardless of order size.
type FlatFee struct {
	Amount decimal.Decimal
}

// DefaultDeliveryFee is the flat per-shop delivery fee in FCFA.
var DefaultDeliveryFee = decimal.NewFromInt(1500)

func (f FlatFee) DeliveryFee(decimal.Decimal) decimal.Decimal {
	return f.Amount
}
