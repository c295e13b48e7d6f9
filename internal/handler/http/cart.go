package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/devmojahid/restu-food/internal/domain"
	"github.com/devmojahid/restu-food/internal/service"
	"github.com/devmojahid/restu-food/pkg/httputil"
	"github.com/devmojahid/restu-food/pkg/logger"
	"github.com/devmojahid/restu-food/pkg/middleware"
	"github.com/devmojahid/restu-food/pkg/validator"
)

// maxBodyBytes caps request bodies on the cart API.
const maxBodyBytes = 64 << 10

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ItemRequest describes the catalogue item being added.
type ItemRequest struct {
	ID    string           `json:"id" validate:"required,max=128"`
	Name  string           `json:"name" validate:"max=500"`
	Price *decimal.Decimal `json:"price" validate:"required,gte=0"`
}

// VendorRequest describes the vendor selling the item.
type VendorRequest struct {
	ID          string          `json:"id" validate:"required,max=128"`
	Name        string          `json:"name" validate:"max=500"`
	DeliveryFee decimal.Decimal `json:"delivery_fee" validate:"gte=0"`
}

// AddItemRequest is the JSON request body for adding an item to the cart.
// ReplaceCart is the caller's answer to the vendor-switch question.
type AddItemRequest struct {
	Item        ItemRequest   `json:"item" validate:"required"`
	Vendor      VendorRequest `json:"vendor" validate:"required"`
	ReplaceCart bool          `json:"replace_cart"`
}

// UpdateQuantityRequest is the JSON request body for updating an item's quantity.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

// ApplyOfferRequest is the JSON request body for applying a promotional code.
type ApplyOfferRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// --- Response DTOs ---

type itemResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type vendorResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	DeliveryFee string `json:"delivery_fee"`
}

type offerResponse struct {
	Code          string `json:"code"`
	DiscountType  string `json:"discount_type,omitempty"`
	DiscountValue string `json:"discount_value"`
}

type totalsResponse struct {
	Subtotal    string `json:"subtotal"`
	DeliveryFee string `json:"delivery_fee"`
	Tax         string `json:"tax"`
	Discount    string `json:"discount"`
	Total       string `json:"total"`
}

// CartResponse is the wire form of a cart. Money is rendered as a decimal
// string with two fraction digits.
type CartResponse struct {
	Items        []itemResponse  `json:"items"`
	Vendor       *vendorResponse `json:"vendor"`
	AppliedOffer *offerResponse  `json:"applied_offer"`
	Totals       totalsResponse  `json:"totals"`
	ItemCount    int             `json:"item_count"`
}

// AddItemResponse wraps the cart returned by AddItem.
type AddItemResponse struct {
	Cart     CartResponse `json:"cart"`
	Replaced bool         `json:"replaced"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toCartResponse(v service.CartView) CartResponse {
	resp := CartResponse{
		Items: make([]itemResponse, 0, len(v.Items)),
		Totals: totalsResponse{
			Subtotal:    money(v.Totals.Subtotal),
			DeliveryFee: money(v.Totals.DeliveryFee),
			Tax:         money(v.Totals.Tax),
			Discount:    money(v.Totals.Discount),
			Total:       money(v.Totals.Total),
		},
		ItemCount: v.ItemCount,
	}

	for _, item := range v.Items {
		resp.Items = append(resp.Items, itemResponse{
			ID:        item.ID,
			Name:      item.Name,
			Price:     money(item.Price),
			Quantity:  item.Quantity,
			LineTotal: money(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}
	if v.Vendor != nil {
		resp.Vendor = &vendorResponse{
			ID:          v.Vendor.ID,
			Name:        v.Vendor.Name,
			DeliveryFee: money(v.Vendor.DeliveryFee),
		}
	}
	if v.Offer != nil {
		resp.AppliedOffer = &offerResponse{
			Code:          v.Offer.Code,
			DiscountType:  v.Offer.DiscountType,
			DiscountValue: v.Offer.DiscountValue.String(),
		}
	}

	return resp
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	cart, err := h.service.GetCart(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(cart)})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item := domain.LineItem{ID: req.Item.ID, Name: req.Item.Name, Price: *req.Item.Price}
	vendor := domain.Vendor{ID: req.Vendor.ID, Name: req.Vendor.Name, DeliveryFee: req.Vendor.DeliveryFee}

	confirm := service.ConfirmFunc(func(ctx context.Context, current, next domain.Vendor) bool {
		logger.FromContext(ctx).DebugContext(ctx, "vendor switch requested",
			slog.String("current_vendor", current.ID),
			slog.String("next_vendor", next.ID),
			slog.Bool("confirmed", req.ReplaceCart),
		)
		return req.ReplaceCart
	})

	result, err := h.service.AddItem(r.Context(), sessionID, item, vendor, confirm)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if !result.Added {
		httputil.WriteJSON(w, http.StatusConflict, httputil.Response{
			Data: toCartResponse(result.Cart),
			Error: &httputil.ErrorResponse{
				Code:      "VENDOR_CONFLICT",
				Message:   "cart holds items from another vendor; resend with replace_cart to start a new cart",
				RequestID: logger.CorrelationIDFromContext(r.Context()),
			},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: AddItemResponse{
		Cart:     toCartResponse(result.Cart),
		Replaced: result.Replaced,
	}})
}

// UpdateItemQuantity handles PUT /api/v1/cart/items/{itemId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	var req UpdateQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), sessionID, itemID, *req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(cart)})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	itemID := chi.URLParam(r, "itemId")

	cart, err := h.service.RemoveItem(r.Context(), sessionID, itemID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(cart)})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	cart, err := h.service.ClearCart(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(cart)})
}

// ApplyOffer handles POST /api/v1/cart/offer
func (h *CartHandler) ApplyOffer(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	var req ApplyOfferRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart, err := h.service.ApplyOffer(r.Context(), sessionID, req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(cart)})
}

// RemoveOffer handles DELETE /api/v1/cart/offer
func (h *CartHandler) RemoveOffer(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())

	cart, err := h.service.RemoveOffer(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: toCartResponse(cart)})
}

// decode reads and validates a JSON body into dst. It writes the error
// response itself and reports whether the handler should continue.
func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := validator.DecodeAndValidate(r, dst); err != nil {
		httputil.WriteValidationError(w, err)
		return false
	}
	return true
}
