package domain

import (
	"errors"
	"fmt"
)

// SchemaVersion tags every persisted snapshot. Snapshots with any other
// version are discarded on load.
const SchemaVersion = 1

var (
	// ErrSchemaMismatch means the stored snapshot has a missing or unknown version.
	ErrSchemaMismatch = errors.New("cart snapshot schema mismatch")
	// ErrInvalidSnapshot means the stored snapshot violates the cart invariants.
	ErrInvalidSnapshot = errors.New("invalid cart snapshot")
)

// Snapshot is the serialized form of a cart, the unit of persistence.
type Snapshot struct {
	Version      int           `json:"version"`
	Items        []LineItem    `json:"items"`
	Vendor       *Vendor       `json:"vendor,omitempty"`
	AppliedOffer *AppliedOffer `json:"applied_offer,omitempty"`
}

// Snapshot captures the full cart state.
func (c *Cart) Snapshot() *Snapshot {
	s := &Snapshot{
		Version: SchemaVersion,
		Items:   c.Items(),
	}
	if c.vendor != nil {
		v := *c.vendor
		s.Vendor = &v
	}
	if c.offer != nil {
		o := *c.offer
		s.AppliedOffer = &o
	}
	return s
}

// Restore rebuilds a cart from a snapshot, checking the version tag and the
// cart invariants.
func Restore(s *Snapshot) (*Cart, error) {
	if s == nil || s.Version != SchemaVersion {
		return nil, ErrSchemaMismatch
	}

	c := NewCart()
	if len(s.Items) == 0 {
		return c, nil
	}
	if s.Vendor == nil || s.Vendor.ID == "" {
		return nil, fmt.Errorf("%w: items without vendor", ErrInvalidSnapshot)
	}

	seen := make(map[string]struct{}, len(s.Items))
	for _, item := range s.Items {
		if item.ID == "" || item.Quantity < 1 || item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: bad line item %q", ErrInvalidSnapshot, item.ID)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate line item %q", ErrInvalidSnapshot, item.ID)
		}
		seen[item.ID] = struct{}{}
		c.items = append(c.items, item)
	}

	if s.Vendor.DeliveryFee.IsNegative() {
		return nil, fmt.Errorf("%w: negative delivery fee", ErrInvalidSnapshot)
	}
	v := *s.Vendor
	c.vendor = &v
	if s.AppliedOffer != nil {
		if err := c.ApplyOffer(*s.AppliedOffer); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	}
	return c, nil
}
