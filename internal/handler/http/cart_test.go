package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devmojahid/restu-food/internal/domain"
	"github.com/devmojahid/restu-food/internal/event"
	redisrepo "github.com/devmojahid/restu-food/internal/repository/redis"
	"github.com/devmojahid/restu-food/internal/service"
	apperrors "github.com/devmojahid/restu-food/pkg/errors"
	"github.com/devmojahid/restu-food/pkg/health"
	"github.com/devmojahid/restu-food/pkg/httputil"
	"github.com/devmojahid/restu-food/pkg/middleware"
)

// ============================================================================
// Mock OfferValidator
// ============================================================================

type mockOfferValidator struct {
	mock.Mock
}

func (m *mockOfferValidator) Validate(ctx context.Context, code, vendorID string, subtotal decimal.Decimal) (domain.AppliedOffer, error) {
	args := m.Called(ctx, code, vendorID, subtotal)
	return args.Get(0).(domain.AppliedOffer), args.Error(1)
}

// ============================================================================
// Test helpers
// ============================================================================

const testSession = "sess-123"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	router    http.Handler
	validator *mockOfferValidator
	redis     *miniredis.Miniredis
}

// setupTestServer wires the production router over a real cart service
// backed by miniredis.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	return setupTestServerWithConfig(t, RouterConfig{})
}

func setupTestServerWithConfig(t *testing.T, cfg RouterConfig) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	validator := &mockOfferValidator{}
	logger := testLogger()
	svc := service.NewCartService(
		redisrepo.NewCartRepository(client, time.Hour),
		validator,
		event.NewLogNotifier(logger),
		logger,
		domain.DefaultTaxRate,
	)

	return &testServer{
		router:    NewRouter(svc, health.NewHandler(), logger, cfg),
		validator: validator,
		redis:     mr,
	}
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(middleware.SessionHeader, testSession)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func decodeCart(t *testing.T, env envelope) CartResponse {
	t.Helper()
	var cart CartResponse
	require.NoError(t, json.Unmarshal(env.Data, &cart))
	return cart
}

func addBody(itemID, name, price, vendorID, fee string, replace bool) map[string]any {
	return map[string]any{
		"item":         map[string]any{"id": itemID, "name": name, "price": price},
		"vendor":       map[string]any{"id": vendorID, "name": "Vendor " + vendorID, "delivery_fee": fee},
		"replace_cart": replace,
	}
}

func burgerFromA() map[string]any { return addBody("1", "Burger", "8.00", "A", "2.00", false) }

// ============================================================================
// GET /api/v1/cart - GetCart
// ============================================================================

func TestGetCart_EmptyCart(t *testing.T) {
	s := setupTestServer(t)

	rec, env := s.do(t, http.MethodGet, "/api/v1/cart", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Nil(t, env.Error)

	cart := decodeCart(t, env)
	assert.Empty(t, cart.Items)
	assert.Nil(t, cart.Vendor)
	assert.Nil(t, cart.AppliedOffer)
	assert.Equal(t, "0.00", cart.Totals.Total)
	assert.Equal(t, 0, cart.ItemCount)
}

func TestGetCart_EmptyItemsSerializeAsArray(t *testing.T) {
	s := setupTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/v1/cart", nil)

	assert.Contains(t, rec.Body.String(), `"items":[]`)
	assert.Contains(t, rec.Body.String(), `"vendor":null`)
}

// ============================================================================
// Session handling
// ============================================================================

func TestAllEndpoints_RejectMissingSession(t *testing.T) {
	s := setupTestServer(t)

	endpoints := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/v1/cart", ""},
		{http.MethodDelete, "/api/v1/cart", ""},
		{http.MethodPost, "/api/v1/cart/items", `{}`},
		{http.MethodPut, "/api/v1/cart/items/1", `{"quantity":1}`},
		{http.MethodDelete, "/api/v1/cart/items/1", ""},
		{http.MethodPost, "/api/v1/cart/offer", `{"code":"SAVE10"}`},
		{http.MethodDelete, "/api/v1/cart/offer", ""},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, strings.NewReader(ep.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			s.router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "MISSING_SESSION")
		})
	}
}

func TestSessions_AreIsolated(t *testing.T) {
	s := setupTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(middleware.SessionHeader, "other-session")
	other := httptest.NewRecorder()
	s.router.ServeHTTP(other, req)

	require.Equal(t, http.StatusOK, other.Code)
	assert.Contains(t, other.Body.String(), `"items":[]`)
}

// ============================================================================
// POST /api/v1/cart/items - AddItem
// ============================================================================

func TestAddItem_Success(t *testing.T) {
	s := setupTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, env.Error)

	var resp AddItemResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.False(t, resp.Replaced)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "1", resp.Cart.Items[0].ID)
	assert.Equal(t, "8.00", resp.Cart.Items[0].Price)
	assert.Equal(t, 1, resp.Cart.Items[0].Quantity)
	require.NotNil(t, resp.Cart.Vendor)
	assert.Equal(t, "A", resp.Cart.Vendor.ID)
	assert.Equal(t, totalsResponse{
		Subtotal:    "8.00",
		DeliveryFee: "2.00",
		Tax:         "0.80",
		Discount:    "0.00",
		Total:       "10.80",
	}, resp.Cart.Totals)
}

func TestAddItem_SameItemIncrementsQuantity(t *testing.T) {
	s := setupTestServer(t)

	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())
	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AddItemResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, 2, resp.Cart.Items[0].Quantity)
	assert.Equal(t, "16.00", resp.Cart.Items[0].LineTotal)
	assert.Equal(t, 2, resp.Cart.ItemCount)
}

func TestAddItem_VendorConflict_Declined(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", addBody("9", "Pizza", "12.00", "B", "0", false))

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VENDOR_CONFLICT", env.Error.Code)

	cart := decodeCart(t, env)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "1", cart.Items[0].ID)
	assert.Equal(t, "A", cart.Vendor.ID)
}

func TestAddItem_VendorConflict_Replaced(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", addBody("9", "Pizza", "12.00", "B", "0", true))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp AddItemResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.Replaced)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "9", resp.Cart.Items[0].ID)
	assert.Equal(t, "B", resp.Cart.Vendor.ID)
	assert.Equal(t, "13.20", resp.Cart.Totals.Total)
}

func TestAddItem_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  any
		field string
	}{
		{
			name:  "missing price",
			body:  map[string]any{"item": map[string]any{"id": "1"}, "vendor": map[string]any{"id": "A"}},
			field: "price",
		},
		{
			name:  "negative price",
			body:  addBody("1", "Burger", "-1.00", "A", "2.00", false),
			field: "price",
		},
		{
			name:  "missing item id",
			body:  addBody("", "Burger", "8.00", "A", "2.00", false),
			field: "id",
		},
		{
			name:  "negative delivery fee",
			body:  addBody("1", "Burger", "8.00", "A", "-2.00", false),
			field: "delivery_fee",
		},
		{
			name:  "missing vendor",
			body:  map[string]any{"item": map[string]any{"id": "1", "price": "8.00"}},
			field: "vendor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t)

			rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
			assert.Contains(t, env.Error.Fields, tt.field)
		})
	}
}

func TestAddItem_InvalidJSON(t *testing.T) {
	s := setupTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/items", `{"item":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestAddItem_WrongContentType(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader("id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.SessionHeader, testSession)
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNSUPPORTED_MEDIA_TYPE")
}

func TestAddItem_PersistsAcrossRequests(t *testing.T) {
	s := setupTestServer(t)

	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	assert.True(t, s.redis.Exists(redisrepo.KeyPrefix+testSession))
}

// ============================================================================
// PUT /api/v1/cart/items/{itemId} - UpdateItemQuantity
// ============================================================================

func TestUpdateItemQuantity_Success(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	rec, env := s.do(t, http.MethodPut, "/api/v1/cart/items/1", map[string]any{"quantity": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, env)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "24.00", cart.Totals.Subtotal)
}

func TestUpdateItemQuantity_ZeroRemoves(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	rec, env := s.do(t, http.MethodPut, "/api/v1/cart/items/1", map[string]any{"quantity": 0})

	assert.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, env)
	assert.Empty(t, cart.Items)
	assert.Nil(t, cart.Vendor)
	assert.False(t, s.redis.Exists(redisrepo.KeyPrefix+testSession))
}

func TestUpdateItemQuantity_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"unknown item", "/api/v1/cart/items/404", map[string]any{"quantity": 2}, http.StatusNotFound, "NOT_FOUND"},
		{"negative quantity", "/api/v1/cart/items/1", map[string]any{"quantity": -1}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing quantity", "/api/v1/cart/items/1", map[string]any{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"over the limit", "/api/v1/cart/items/1", map[string]any{"quantity": service.MaxQuantityPerItem + 1}, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t)
			s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

			rec, env := s.do(t, http.MethodPut, tt.path, tt.body)

			assert.Equal(t, tt.status, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

// ============================================================================
// DELETE /api/v1/cart/items/{itemId} - RemoveItem
// ============================================================================

func TestRemoveItem_Success(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())
	s.do(t, http.MethodPost, "/api/v1/cart/items", addBody("2", "Fries", "3.00", "A", "2.00", false))

	rec, env := s.do(t, http.MethodDelete, "/api/v1/cart/items/1", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, env)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "2", cart.Items[0].ID)
}

func TestRemoveItem_AbsentIsNoOp(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	rec, env := s.do(t, http.MethodDelete, "/api/v1/cart/items/nope", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, env)
	assert.Len(t, cart.Items, 1)
}

// ============================================================================
// DELETE /api/v1/cart - ClearCart
// ============================================================================

func TestClearCart_Success(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	rec, env := s.do(t, http.MethodDelete, "/api/v1/cart", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, env)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Totals.Total)
	assert.False(t, s.redis.Exists(redisrepo.KeyPrefix+testSession))
}

// ============================================================================
// POST/DELETE /api/v1/cart/offer - ApplyOffer / RemoveOffer
// ============================================================================

func TestApplyOffer_Success(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	s.validator.On("Validate", mock.Anything, "SAVE10", "A", mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.RequireFromString("8.00"))
	})).Return(domain.AppliedOffer{
		Code:          "SAVE10",
		DiscountType:  "percentage",
		DiscountValue: decimal.NewFromInt(10),
	}, nil).Once()

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{"code": "SAVE10"})

	assert.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, env)
	require.NotNil(t, cart.AppliedOffer)
	assert.Equal(t, "SAVE10", cart.AppliedOffer.Code)
	assert.Equal(t, "10", cart.AppliedOffer.DiscountValue)
	assert.Equal(t, "0.80", cart.Totals.Discount)
	assert.Equal(t, "10.00", cart.Totals.Total)
	s.validator.AssertExpectations(t)
}

func TestApplyOffer_RateLimitedPerSession(t *testing.T) {
	s := setupTestServerWithConfig(t, RouterConfig{OfferRatePerMinute: 1, OfferBurst: 2})
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	s.validator.On("Validate", mock.Anything, "GUESS", "A", mock.Anything).
		Return(domain.AppliedOffer{}, apperrors.InvalidOffer(`offer code "GUESS" is not valid`)).Twice()

	for i := 0; i < 2; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{"code": "GUESS"})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{"code": "GUESS"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
	s.validator.AssertNumberOfCalls(t, "Validate", 2)

	// Other cart routes are not limited.
	rec, _ = s.do(t, http.MethodGet, "/api/v1/cart", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApplyOffer_Rejected(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	s.validator.On("Validate", mock.Anything, "BOGUS", "A", mock.Anything).
		Return(domain.AppliedOffer{}, apperrors.InvalidOffer(`offer code "BOGUS" is not valid`)).Once()

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{"code": "BOGUS"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_OFFER_CODE", env.Error.Code)
}

func TestApplyOffer_EmptyCart(t *testing.T) {
	s := setupTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{"code": "SAVE10"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	s.validator.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplyOffer_MissingCode(t *testing.T) {
	s := setupTestServer(t)

	rec, env := s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "code")
}

func TestApplyOffer_RejectedLeavesCartUnchanged(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	s.validator.On("Validate", mock.Anything, "SAVE10", "A", mock.Anything).
		Return(domain.AppliedOffer{}, apperrors.InvalidOffer(`offer code "SAVE10" is not valid`)).Once()

	rec, _ := s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{"code": "SAVE10"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	_, env := s.do(t, http.MethodGet, "/api/v1/cart", nil)
	cart := decodeCart(t, env)
	assert.Nil(t, cart.AppliedOffer)
	assert.Len(t, cart.Items, 1)
}

func TestRemoveOffer_Success(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/v1/cart/items", burgerFromA())

	s.validator.On("Validate", mock.Anything, "SAVE10", "A", mock.Anything).Return(domain.AppliedOffer{
		Code:          "SAVE10",
		DiscountValue: decimal.NewFromInt(10),
	}, nil).Once()
	s.do(t, http.MethodPost, "/api/v1/cart/offer", map[string]any{"code": "SAVE10"})

	rec, env := s.do(t, http.MethodDelete, "/api/v1/cart/offer", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cart := decodeCart(t, env)
	assert.Nil(t, cart.AppliedOffer)
	assert.Equal(t, "0.00", cart.Totals.Discount)
	assert.Equal(t, "10.80", cart.Totals.Total)
}

// ============================================================================
// Operational endpoints
// ============================================================================

func TestHealthLive(t *testing.T) {
	s := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		method string
		ct     string
		passes bool
	}{
		{http.MethodPost, "", true},
		{http.MethodPost, "application/json", true},
		{http.MethodPut, "application/json; charset=utf-8", true},
		{http.MethodPost, "text/plain", false},
		{http.MethodPost, "application/jsonp", false},
		{http.MethodPut, ";;", false},
		{http.MethodGet, "text/plain", true},
		{http.MethodDelete, "text/plain", true},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.ct, func(t *testing.T) {
			called := false
			h := requireJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(tt.method, "/", strings.NewReader(`{}`))
			if tt.ct != "" {
				req.Header.Set("Content-Type", tt.ct)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.passes, called)
			if !tt.passes {
				assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
				assert.Contains(t, rec.Body.String(), "UNSUPPORTED_MEDIA_TYPE")
			}
		})
	}
}
