package domain

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)

	// DefaultTaxRate is applied to the subtotal before any discount.
	DefaultTaxRate = decimal.RequireFromString("0.10")
)

// moneyPlaces is the number of fraction digits tax and discount are rounded to.
const moneyPlaces = 2

// Totals is the price breakdown derived from a cart. It is never stored.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

// Subtotal is the sum of price times quantity over all items.
func (c *Cart) Subtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range c.items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal
}

// Totals computes the price breakdown. Tax and discount are both taken from
// the undiscounted subtotal and rounded to cents, so Total always equals
// Subtotal + DeliveryFee + Tax - Discount exactly.
func (c *Cart) Totals(taxRate decimal.Decimal) Totals {
	subtotal := c.Subtotal()

	deliveryFee := decimal.Zero
	if c.vendor != nil {
		deliveryFee = c.vendor.DeliveryFee
	}

	tax := subtotal.Mul(taxRate).Round(moneyPlaces)

	discount := decimal.Zero
	if c.offer != nil {
		discount = subtotal.Mul(c.offer.DiscountValue).Div(hundred).Round(moneyPlaces)
	}

	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Tax:         tax,
		Discount:    discount,
		Total:       subtotal.Add(deliveryFee).Add(tax).Sub(discount),
	}
}
