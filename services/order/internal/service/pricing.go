package service

import "github.com/shopspring/decimal"

// Pricing holds the shop-wide shipping and tax rules. Prices are tax
// inclusive, so Tax is reported but never added to the total.
type Pricing struct {
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		ShippingFee:           decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.NewFromInt(100),
		TaxRate:               decimal.RequireFromString("0.19"),
	}
}

type Quote struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Tax         decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Quote prices a cart. A non-nil shippingOverride replaces the computed fee.
func (p Pricing) Quote(subtotal, discount decimal.Decimal, shippingOverride *decimal.Decimal) Quote {
	shipping := p.ShippingFee
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	if shippingOverride != nil {
		shipping = *shippingOverride
	}

	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Quote{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         subtotal.Mul(p.TaxRate).Round(2),
		Discount:    discount,
		Total:       total,
	}
}
