package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// StripeConfig configures the Stripe-backed gateway.
type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
	TestMode  bool
	Currency  string
	// URL overrides the API base, e.g. for stripe-mock.
	URL string
}

// StripeGateway charges cards through the Stripe charges API. Requests are
// never retried by the client library; each attempt carries a fresh
// idempotency key so a retried HTTP request cannot bill twice.
type StripeGateway struct {
	api      *client.API
	testMode bool
	currency string
	now      func() time.Time
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
	}
	if cfg.URL != "" {
		backendCfg.URL = stripe.String(cfg.URL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &StripeGateway{
		api:      client.New(cfg.SecretKey, backends),
		testMode: cfg.TestMode,
		currency: cfg.Currency,
		now:      time.Now,
	}
}

func (g *StripeGateway) Purchase(ctx context.Context, amountMinor int64, card CardDetails, billing Address) (*Response, error) {
	params := chargeParams(amountMinor, g.currency, card, billing)
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	ch, err := g.api.Charges.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
			slog.InfoContext(ctx, "Card charge declined",
				slog.String("code", string(stripeErr.Code)),
				slog.String("request_id", stripeErr.RequestID))
			return &Response{Success: false, Message: stripeErr.Msg, Test: g.testMode}, nil
		}
		return nil, unavailable(err)
	}

	resp := &Response{
		Success:       ch.Paid && ch.Status == stripe.ChargeStatusSucceeded,
		Authorization: ch.ID,
		Test:          !ch.Livemode,
		Message:       string(ch.Status),
	}
	if ch.Outcome != nil && ch.Outcome.SellerMessage != "" {
		resp.Message = ch.Outcome.SellerMessage
	}
	if !resp.Success && ch.FailureMessage != "" {
		resp.Message = ch.FailureMessage
	}
	return resp, nil
}

// unavailable wraps a transport failure. Timeouts stay recognisable as
// context.DeadlineExceeded.
func unavailable(err error) error {
	var netErr net.Error
	if !errors.Is(err, context.DeadlineExceeded) && errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w: %w", ErrUnavailable, context.DeadlineExceeded, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

func (g *StripeGateway) Validate(card CardDetails) ValidationResult {
	return validateCard(card, g.testMode, g.now())
}

func (g *StripeGateway) TestMode() bool {
	return g.testMode
}

func chargeParams(amountMinor int64, currency string, card CardDetails, billing Address) *stripe.ChargeParams {
	country := billing.Country
	if country == "" {
		country = DefaultCountry
	}

	cardParams := &stripe.CardParams{
		Number:         stripe.String(card.Number),
		ExpMonth:       stripe.String(card.Month),
		ExpYear:        stripe.String(card.Year),
		CVC:            stripe.String(card.VerificationValue),
		Name:           stripe.String(card.FirstName + " " + card.LastName),
		AddressLine1:   stripe.String(billing.Address1),
		AddressCity:    stripe.String(billing.City),
		AddressState:   stripe.String(billing.State),
		AddressZip:     stripe.String(billing.Zip),
		AddressCountry: stripe.String(country),
	}
	if billing.Address2 != "" {
		cardParams.AddressLine2 = stripe.String(billing.Address2)
	}

	params := &stripe.ChargeParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		Source:   &stripe.SourceParams{Card: cardParams},
	}
	if billing.Email != "" {
		params.ReceiptEmail = stripe.String(billing.Email)
	}
	return params
}
