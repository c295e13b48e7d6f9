package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devmojahid/restu-food/internal/domain"
	"github.com/devmojahid/restu-food/internal/event"
	"github.com/devmojahid/restu-food/internal/repository"
	apperrors "github.com/devmojahid/restu-food/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart item.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct items allowed in a cart.
	MaxItemsPerCart = 50
)

// ErrOfferStale is returned by ApplyOffer when the cart was emptied or moved
// to another vendor while the offer was being validated.
var ErrOfferStale = apperrors.ConflictWithCode("OFFER_STALE", "cart changed while the offer was being validated")

// Confirmer decides whether a cart holding items from current may be
// replaced by a cart for next.
type Confirmer interface {
	ConfirmVendorSwitch(ctx context.Context, current, next domain.Vendor) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, current, next domain.Vendor) bool

// ConfirmVendorSwitch calls f.
func (f ConfirmFunc) ConfirmVendorSwitch(ctx context.Context, current, next domain.Vendor) bool {
	return f(ctx, current, next)
}

// Notifier is the fire-and-forget user notification channel.
type Notifier interface {
	Notify(ctx context.Context, n event.Notification)
}

// OfferValidator checks a promotional code with the offer service.
type OfferValidator interface {
	Validate(ctx context.Context, code, vendorID string, subtotal decimal.Decimal) (domain.AppliedOffer, error)
}

// CartView is a read-only projection of a cart with its derived totals.
type CartView struct {
	Items     []domain.LineItem    `json:"items"`
	Vendor    *domain.Vendor       `json:"vendor,omitempty"`
	Offer     *domain.AppliedOffer `json:"applied_offer,omitempty"`
	Totals    domain.Totals        `json:"totals"`
	ItemCount int                  `json:"item_count"`
}

// AddResult reports the outcome of AddItem.
type AddResult struct {
	Cart CartView
	// Added is false when a vendor switch was declined and nothing changed.
	Added bool
	// Replaced is true when the previous vendor's cart was cleared first.
	Replaced bool
}

type entry struct {
	mu       sync.Mutex
	cart     *domain.Cart
	lastUsed time.Time
	evicted  bool
	// dirty is set while the in-memory cart is ahead of the store.
	dirty bool
}

// CartService owns one cart aggregate per session. Each cart has a single
// writer at a time; every mutation is followed by a full snapshot write.
type CartService struct {
	repo      repository.CartRepository
	validator OfferValidator
	notifier  Notifier
	logger    *slog.Logger
	taxRate   decimal.Decimal
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, validator OfferValidator, notifier Notifier, logger *slog.Logger, taxRate decimal.Decimal) *CartService {
	return &CartService{
		repo:      repo,
		validator: validator,
		notifier:  notifier,
		logger:    logger,
		taxRate:   taxRate,
		now:       func() time.Time { return time.Now().UTC() },
		entries:   make(map[string]*entry),
	}
}

// GetCart returns the current cart for a session. A session without a cart
// gets an empty one.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (CartView, error) {
	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	defer e.mu.Unlock()

	return s.view(e.cart), nil
}

// AddItem adds one unit of item from vendor. If the cart holds another
// vendor's items, confirmer decides: declined leaves the cart untouched,
// confirmed clears it first.
func (s *CartService) AddItem(ctx context.Context, sessionID string, item domain.LineItem, vendor domain.Vendor, confirmer Confirmer) (AddResult, error) {
	var note *event.Notification
	defer func() { s.notify(ctx, note) }()

	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return AddResult{}, err
	}
	defer e.mu.Unlock()

	cart := e.cart
	replaced := false

	if cart.ConflictsWith(vendor) {
		current, _ := cart.Vendor()
		if confirmer == nil || !confirmer.ConfirmVendorSwitch(ctx, current, vendor) {
			cartOperations.WithLabelValues("add_item", outcomeDeclined).Inc()
			s.logger.InfoContext(ctx, "vendor switch declined",
				slog.String("session_id", sessionID),
				slog.String("current_vendor_id", current.ID),
				slog.String("vendor_id", vendor.ID),
			)
			return AddResult{Cart: s.view(cart), Added: false}, nil
		}
		// A rejected item must leave the old cart intact.
		if err := domain.NewCart().AddItem(item, vendor); err != nil {
			cartOperations.WithLabelValues("add_item", outcomeError).Inc()
			return AddResult{}, err
		}
		cart.Clear()
		replaced = true
	}

	if err := checkAddLimits(cart, item.ID); err != nil {
		cartOperations.WithLabelValues("add_item", outcomeError).Inc()
		return AddResult{}, err
	}

	if err := cart.AddItem(item, vendor); err != nil {
		cartOperations.WithLabelValues("add_item", outcomeError).Inc()
		return AddResult{}, err
	}

	s.persist(ctx, sessionID, e)
	cartOperations.WithLabelValues("add_item", outcomeOK).Inc()

	added := event.ItemAdded(sessionID, item.ID, item.Name, vendor.ID)
	note = &added

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.String("item_id", item.ID),
		slog.String("vendor_id", vendor.ID),
		slog.Bool("replaced", replaced),
	)

	return AddResult{Cart: s.view(cart), Added: true, Replaced: replaced}, nil
}

// UpdateQuantity sets an item's quantity. Zero removes the item.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (CartView, error) {
	if quantity > MaxQuantityPerItem {
		return CartView{}, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	var note *event.Notification
	defer func() { s.notify(ctx, note) }()

	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	defer e.mu.Unlock()

	cart := e.cart
	var removed *domain.LineItem
	if quantity == 0 {
		removed = findItem(cart, itemID)
	}

	if err := cart.UpdateQuantity(itemID, quantity); err != nil {
		cartOperations.WithLabelValues("update_quantity", outcomeError).Inc()
		return CartView{}, err
	}

	s.persist(ctx, sessionID, e)
	cartOperations.WithLabelValues("update_quantity", outcomeOK).Inc()

	if removed != nil {
		n := event.ItemRemoved(sessionID, removed.ID, removed.Name)
		note = &n
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return s.view(cart), nil
}

// RemoveItem deletes an item. Removing an absent item is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, itemID string) (CartView, error) {
	var note *event.Notification
	defer func() { s.notify(ctx, note) }()

	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	defer e.mu.Unlock()

	cart := e.cart
	removed := findItem(cart, itemID)
	if !cart.RemoveItem(itemID) {
		return s.view(cart), nil
	}

	s.persist(ctx, sessionID, e)
	cartOperations.WithLabelValues("remove_item", outcomeOK).Inc()

	n := event.ItemRemoved(sessionID, removed.ID, removed.Name)
	note = &n

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.String("item_id", itemID),
	)

	return s.view(cart), nil
}

// ClearCart empties the cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (CartView, error) {
	var note *event.Notification
	defer func() { s.notify(ctx, note) }()

	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	defer e.mu.Unlock()

	cart := e.cart
	wasEmpty := cart.IsEmpty()
	cart.Clear()

	s.persist(ctx, sessionID, e)
	cartOperations.WithLabelValues("clear_cart", outcomeOK).Inc()

	if !wasEmpty {
		n := event.CartCleared(sessionID)
		note = &n
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("session_id", sessionID),
	)

	return s.view(cart), nil
}

// ApplyOffer validates code against the current vendor and subtotal and
// installs it. The cart lock is not held while the offer service is called;
// if the cart was emptied or switched vendor in the meantime the offer is
// discarded with ErrOfferStale. A rejected code leaves any previous offer in
// place.
func (s *CartService) ApplyOffer(ctx context.Context, sessionID, code string) (CartView, error) {
	if code == "" {
		return CartView{}, apperrors.InvalidInput("offer code is required")
	}

	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	vendor, ok := e.cart.Vendor()
	if !ok || e.cart.IsEmpty() {
		e.mu.Unlock()
		cartOperations.WithLabelValues("apply_offer", outcomeError).Inc()
		return CartView{}, apperrors.InvalidInput("cannot apply an offer to an empty cart")
	}
	subtotal := e.cart.Subtotal()
	e.mu.Unlock()

	offer, err := s.validator.Validate(ctx, code, vendor.ID, subtotal)
	if err != nil {
		cartOperations.WithLabelValues("apply_offer", outcomeError).Inc()
		return CartView{}, err
	}

	e, err = s.acquire(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	defer e.mu.Unlock()

	cart := e.cart
	current, ok := cart.Vendor()
	if !ok || cart.IsEmpty() || current.ID != vendor.ID {
		cartOperations.WithLabelValues("apply_offer", outcomeStale).Inc()
		s.logger.WarnContext(ctx, "discarding offer validated for a stale cart",
			slog.String("session_id", sessionID),
			slog.String("code", code),
			slog.String("vendor_id", vendor.ID),
		)
		return CartView{}, ErrOfferStale
	}

	if err := cart.ApplyOffer(offer); err != nil {
		cartOperations.WithLabelValues("apply_offer", outcomeError).Inc()
		return CartView{}, err
	}

	s.persist(ctx, sessionID, e)
	cartOperations.WithLabelValues("apply_offer", outcomeOK).Inc()

	s.logger.InfoContext(ctx, "offer applied",
		slog.String("session_id", sessionID),
		slog.String("code", offer.Code),
		slog.String("discount_value", offer.DiscountValue.String()),
	)

	return s.view(cart), nil
}

// RemoveOffer drops the applied offer.
func (s *CartService) RemoveOffer(ctx context.Context, sessionID string) (CartView, error) {
	e, err := s.acquire(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}
	defer e.mu.Unlock()

	cart := e.cart
	if _, ok := cart.Offer(); !ok {
		return s.view(cart), nil
	}
	cart.RemoveOffer()

	s.persist(ctx, sessionID, e)
	cartOperations.WithLabelValues("remove_offer", outcomeOK).Inc()

	s.logger.InfoContext(ctx, "offer removed",
		slog.String("session_id", sessionID),
	)

	return s.view(cart), nil
}

// Sweep drops in-memory carts idle for longer than maxIdle and returns how
// many were evicted. Their durable copies stay in the repository. Carts in
// use are skipped. A cart whose last write failed is saved again first and
// kept in memory if that fails too.
func (s *CartService) Sweep(ctx context.Context, maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	evicted := 0
	var dirty []string
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		switch {
		case !e.lastUsed.Before(cutoff):
			// recently used
		case e.dirty:
			dirty = append(dirty, id)
		default:
			e.evicted = true
			delete(s.entries, id)
			evicted++
		}
		e.mu.Unlock()
	}
	s.mu.Unlock()

	for _, id := range dirty {
		if s.flush(ctx, id, cutoff) {
			evicted++
		}
	}

	s.mu.Lock()
	activeCarts.Set(float64(len(s.entries)))
	s.mu.Unlock()

	return evicted
}

// flush retries the write of an idle dirty cart and evicts it on success.
func (s *CartService) flush(ctx context.Context, sessionID string, cutoff time.Time) bool {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	s.mu.Unlock()
	if !ok || !e.mu.TryLock() {
		return false
	}
	defer e.mu.Unlock()

	if e.evicted || !e.dirty || !e.lastUsed.Before(cutoff) {
		return false
	}
	if !s.persist(ctx, sessionID, e) {
		s.logger.WarnContext(ctx, "keeping unsaved idle cart in memory",
			slog.String("session_id", sessionID),
		)
		return false
	}

	s.mu.Lock()
	if s.entries[sessionID] == e {
		delete(s.entries, sessionID)
	}
	s.mu.Unlock()
	e.evicted = true
	return true
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *CartService) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx, maxIdle); n > 0 {
				s.logger.InfoContext(ctx, "evicted idle carts", slog.Int("count", n))
			}
		}
	}
}

// acquire returns the locked entry for sessionID, rehydrating it from the
// repository on first use. The caller must unlock e.mu.
func (s *CartService) acquire(ctx context.Context, sessionID string) (*entry, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	for {
		s.mu.Lock()
		e, ok := s.entries[sessionID]
		if !ok {
			e = &entry{}
			s.entries[sessionID] = e
			activeCarts.Set(float64(len(s.entries)))
		}
		s.mu.Unlock()

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}
		if e.cart == nil {
			e.cart = s.load(ctx, sessionID)
		}
		e.lastUsed = s.now()
		return e, nil
	}
}

// load rehydrates a cart. Any failure, including an unknown schema version,
// yields an empty cart.
func (s *CartService) load(ctx context.Context, sessionID string) *domain.Cart {
	snapshot, err := s.repo.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			persistenceFailures.WithLabelValues("load").Inc()
			s.logger.WarnContext(ctx, "failed to load cart, starting empty",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
		return domain.NewCart()
	}

	cart, err := domain.Restore(snapshot)
	if err != nil {
		persistenceFailures.WithLabelValues("restore").Inc()
		s.logger.WarnContext(ctx, "discarding unusable cart snapshot",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return domain.NewCart()
	}

	return cart
}

// persist writes the full cart state and reports whether the store now
// matches memory. An empty cart deletes the slot. Failures are logged,
// counted and leave the entry dirty; they never fail the caller.
func (s *CartService) persist(ctx context.Context, sessionID string, e *entry) bool {
	var (
		op  = "save"
		err error
	)
	if e.cart.IsEmpty() {
		op = "delete"
		err = s.repo.Delete(ctx, sessionID)
	} else {
		err = s.repo.Save(ctx, sessionID, e.cart.Snapshot())
	}

	if err != nil {
		e.dirty = true
		persistenceFailures.WithLabelValues(op).Inc()
		s.logger.ErrorContext(ctx, "failed to persist cart",
			slog.String("session_id", sessionID),
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return false
	}
	e.dirty = false
	return true
}

// notify hands n to the notifier once the cart lock has been released. The
// request context is detached so a finished request does not cancel it.
func (s *CartService) notify(ctx context.Context, n *event.Notification) {
	if n == nil {
		return
	}
	s.notifier.Notify(context.WithoutCancel(ctx), *n)
}

func (s *CartService) view(cart *domain.Cart) CartView {
	v := CartView{
		Items:     cart.Items(),
		Totals:    cart.Totals(s.taxRate),
		ItemCount: cart.ItemCount(),
	}
	if vendor, ok := cart.Vendor(); ok {
		v.Vendor = &vendor
	}
	if offer, ok := cart.Offer(); ok {
		v.Offer = &offer
	}
	return v
}

func checkAddLimits(cart *domain.Cart, itemID string) error {
	if existing := findItem(cart, itemID); existing != nil {
		if existing.Quantity+1 > MaxQuantityPerItem {
			return apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
		}
		return nil
	}
	if len(cart.Items()) >= MaxItemsPerCart {
		return apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
	}
	return nil
}

func findItem(cart *domain.Cart, itemID string) *domain.LineItem {
	for _, item := range cart.Items() {
		if item.ID == itemID {
			return &item
		}
	}
	return nil
}
