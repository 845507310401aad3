package orders

import "github.com/shopspring/decimal"

// PricedLine is one (unit price, quantity) pair fed to the pricing policy.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// PricingConfig holds the three storefront constants, loaded once at start.
type PricingConfig struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingCost          decimal.Decimal
}

type Pricing struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Quote computes subtotal, shipping, tax and total for a set of priced lines.
// Pure: no side effects, no rounding here; callers round at presentation.
// Shipping is free when the subtotal reaches the threshold (>=, not >).
func Quote(lines []PricedLine, cfg PricingConfig) Pricing {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	shipping := cfg.ShippingCost
	if subtotal.GreaterThanOrEqual(cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(cfg.TaxRate)

	return Pricing{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}
