package offer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/devmojahid/restu-food/internal/domain"
	apperrors "github.com/devmojahid/restu-food/pkg/errors"
	"github.com/devmojahid/restu-food/pkg/httpclient"
)

const validatePath = "/api/v1/offers/validate"

// DiscountTypePercentage is the only discount type the cart can price.
const DiscountTypePercentage = "percentage"

// CircuitOpenFallback replaces the raw open-circuit error with a structured
// unavailability error.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("offer service is temporarily unavailable")
}

// Request is the body sent to the offer service.
type Request struct {
	Code     string          `json:"code"`
	VendorID string          `json:"vendor_id"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type validateResponse struct {
	Data *struct {
		Code          string          `json:"code"`
		DiscountType  string          `json:"discount_type"`
		DiscountValue decimal.Decimal `json:"discount_value"`
	} `json:"data"`
}

// HTTPValidator validates promotional codes against the remote offer service.
type HTTPValidator struct {
	client  httpclient.Doer
	baseURL string
	timeout time.Duration
	logger  *slog.Logger
}

// NewHTTPValidator creates a validator. A zero timeout inherits the caller's
// deadline.
func NewHTTPValidator(client httpclient.Doer, baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPValidator {
	return &HTTPValidator{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger,
	}
}

// Validate asks the offer service whether code applies to the given vendor and
// subtotal. Every failure, including transport errors, is reported as an
// invalid offer so the caller has a single rejection path.
func (v *HTTPValidator) Validate(ctx context.Context, code, vendorID string, subtotal decimal.Decimal) (domain.AppliedOffer, error) {
	offer, err := v.validate(ctx, code, vendorID, subtotal)
	if err != nil {
		v.logger.WarnContext(ctx, "offer rejected",
			slog.String("code", code),
			slog.String("vendor_id", vendorID),
			slog.String("error", err.Error()),
		)
		return domain.AppliedOffer{}, apperrors.InvalidOffer(fmt.Sprintf("offer code %q is not valid", code))
	}

	v.logger.InfoContext(ctx, "offer validated",
		slog.String("code", offer.Code),
		slog.String("vendor_id", vendorID),
		slog.String("discount_value", offer.DiscountValue.String()),
	)
	return offer, nil
}

func (v *HTTPValidator) validate(ctx context.Context, code, vendorID string, subtotal decimal.Decimal) (domain.AppliedOffer, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	body, err := json.Marshal(Request{Code: code, VendorID: vendorID, Subtotal: subtotal})
	if err != nil {
		return domain.AppliedOffer{}, fmt.Errorf("marshal offer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+validatePath, bytes.NewReader(body))
	if err != nil {
		return domain.AppliedOffer{}, fmt.Errorf("create offer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(ctx, httpReq)
	if err != nil {
		return domain.AppliedOffer{}, fmt.Errorf("call offer service: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.AppliedOffer{}, httpclient.ErrorFromResponse(resp, "offer")
	}
	defer resp.Body.Close()

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.AppliedOffer{}, fmt.Errorf("decode offer response: %w", err)
	}
	if out.Data == nil {
		return domain.AppliedOffer{}, fmt.Errorf("offer response has no data")
	}

	discountType := out.Data.DiscountType
	if discountType == "" {
		discountType = DiscountTypePercentage
	}
	if discountType != DiscountTypePercentage {
		return domain.AppliedOffer{}, fmt.Errorf("unsupported discount type %q", discountType)
	}
	if out.Data.DiscountValue.IsNegative() || out.Data.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return domain.AppliedOffer{}, fmt.Errorf("discount value %s out of range", out.Data.DiscountValue)
	}

	applied := out.Data.Code
	if applied == "" {
		applied = code
	}

	return domain.AppliedOffer{
		Code:          applied,
		DiscountType:  discountType,
		DiscountValue: out.Data.DiscountValue,
	}, nil
}
