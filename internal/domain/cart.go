package domain

import (
	"errors"

	"github.com/shopspring/decimal"

	apperrors "github.com/devmojahid/restu-food/pkg/errors"
)

// ErrVendorConflict is returned by AddItem when the cart already holds items
// from a different vendor. Callers resolve it by confirming and clearing.
var ErrVendorConflict = errors.New("cart holds items from another vendor")

// LineItem is a single catalogue item selected into the cart.
type LineItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Vendor is the restaurant every item in a non-empty cart belongs to.
type Vendor struct {
	ID          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// AppliedOffer is a validated promotional code. DiscountValue is a percentage.
type AppliedOffer struct {
	Code          string          `json:"code"`
	DiscountType  string          `json:"discount_type,omitempty"`
	DiscountValue decimal.Decimal `json:"discount_value"`
}

// Cart is the cart aggregate. Its state is only reachable through the
// methods below; an empty cart never carries a vendor or an offer.
type Cart struct {
	items  []LineItem
	vendor *Vendor
	offer  *AppliedOffer
}

// NewCart returns an empty cart.
func NewCart() *Cart {
	return &Cart{items: []LineItem{}}
}

// AddItem adds one unit of item, merging with an existing line of the same ID.
func (c *Cart) AddItem(item LineItem, vendor Vendor) error {
	if item.ID == "" {
		return apperrors.InvalidInput("item id is required")
	}
	if vendor.ID == "" {
		return apperrors.InvalidInput("vendor id is required")
	}
	if item.Price.IsNegative() {
		return apperrors.InvalidInput("price must not be negative")
	}
	if vendor.DeliveryFee.IsNegative() {
		return apperrors.InvalidInput("delivery fee must not be negative")
	}
	if c.ConflictsWith(vendor) {
		return ErrVendorConflict
	}

	if i := c.findItem(item.ID); i >= 0 {
		c.items[i].Quantity++
	} else {
		c.items = append(c.items, LineItem{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: 1,
		})
	}

	v := vendor
	c.vendor = &v
	return nil
}

// ConflictsWith reports whether adding an item from vendor would break
// vendor exclusivity.
func (c *Cart) ConflictsWith(vendor Vendor) bool {
	return !c.IsEmpty() && c.vendor != nil && c.vendor.ID != vendor.ID
}

// UpdateQuantity sets the quantity of an item. Zero removes the item;
// negative quantities are rejected.
func (c *Cart) UpdateQuantity(itemID string, quantity int) error {
	if quantity < 0 {
		return apperrors.InvalidInput("quantity must not be negative")
	}

	i := c.findItem(itemID)
	if i < 0 {
		return apperrors.NotFound("cart item", itemID)
	}

	if quantity == 0 {
		c.removeAt(i)
		return nil
	}

	c.items[i].Quantity = quantity
	return nil
}

// RemoveItem deletes an item and reports whether it was present.
func (c *Cart) RemoveItem(itemID string) bool {
	i := c.findItem(itemID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = []LineItem{}
	c.vendor = nil
	c.offer = nil
}

// ApplyOffer installs a validated offer, replacing any previous one.
func (c *Cart) ApplyOffer(offer AppliedOffer) error {
	if c.IsEmpty() {
		return apperrors.InvalidInput("cannot apply an offer to an empty cart")
	}
	if offer.Code == "" {
		return apperrors.InvalidInput("offer code is required")
	}
	if offer.DiscountValue.IsNegative() || offer.DiscountValue.GreaterThan(hundred) {
		return apperrors.InvalidInput("discount value must be between 0 and 100")
	}

	o := offer
	c.offer = &o
	return nil
}

// RemoveOffer drops the applied offer, if any.
func (c *Cart) RemoveOffer() {
	c.offer = nil
}

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	items := make([]LineItem, len(c.items))
	copy(items, c.items)
	return items
}

// Vendor returns the cart's vendor, if the cart is non-empty.
func (c *Cart) Vendor() (Vendor, bool) {
	if c.vendor == nil {
		return Vendor{}, false
	}
	return *c.vendor, true
}

// Offer returns the applied offer, if any.
func (c *Cart) Offer() (AppliedOffer, bool) {
	if c.offer == nil {
		return AppliedOffer{}, false
	}
	return *c.offer, true
}

// IsEmpty reports whether the cart holds no items.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// ItemCount returns the total number of units in the cart.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

func (c *Cart) findItem(itemID string) int {
	for i := range c.items {
		if c.items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// removeAt deletes the item at index i. Removing the last item also drops
// the vendor and the offer.
func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
	if len(c.items) == 0 {
		c.vendor = nil
		c.offer = nil
	}
}
