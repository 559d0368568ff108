package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func validCard() CardDetails {
	return CardDetails{
		FirstName:         "Ada",
		LastName:          "Lovelace",
		Number:            "4242424242424242",
		Month:             "12",
		Year:              "2030",
		Brand:             "visa",
		VerificationValue: "123",
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		total string
		want  int64
	}{
		{"19.999", 2000},
		{"19.994", 1999},
		{"25.00", 2500},
		{"0", 0},
		{"0.005", 1},
		{"1234.56", 123456},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			assert.Equal(t, tt.want, MinorUnits(decimal.RequireFromString(tt.total)))
		})
	}
}

func TestRequiredCardFields(t *testing.T) {
	assert.Equal(t, []string{FieldNumber, FieldYear, FieldType, FieldMonth, FieldVerificationValue}, RequiredCardFields(false))
	assert.NotContains(t, RequiredCardFields(true), FieldType)
}

func TestNewCardDetailsDropsBrandInTestMode(t *testing.T) {
	live := NewCardDetails("A", "B", "4242424242424242", "1", "2030", "visa", "123", false)
	test := NewCardDetails("A", "B", "4242424242424242", "1", "2030", "visa", "123", true)

	assert.Equal(t, "visa", live.Brand)
	assert.Empty(t, test.Brand)
}

func TestValidateCard(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *CardDetails)
		testMode bool
		want     map[string]string
	}{
		{name: "valid card", mutate: func(c *CardDetails) {}},
		{
			name:   "bad checksum",
			mutate: func(c *CardDetails) { c.Number = "4242424242424241" },
			want:   map[string]string{FieldNumber: "is not a valid credit card number"},
		},
		{
			name:   "non digits",
			mutate: func(c *CardDetails) { c.Number = "4242-4242-4242-4242" },
			want:   map[string]string{FieldNumber: "is not a valid credit card number"},
		},
		{
			name:   "expired last month",
			mutate: func(c *CardDetails) { c.Month = "9"; c.Year = "2026" },
			want:   map[string]string{FieldYear: "expired"},
		},
		{
			name:   "current month is still valid",
			mutate: func(c *CardDetails) { c.Month = "10"; c.Year = "2026" },
		},
		{
			name:   "bad month",
			mutate: func(c *CardDetails) { c.Month = "13" },
			want:   map[string]string{FieldMonth: "is not a valid month"},
		},
		{
			name:   "short cvv",
			mutate: func(c *CardDetails) { c.VerificationValue = "12" },
			want:   map[string]string{FieldVerificationValue: "should be 3 or 4 digits"},
		},
		{
			name:   "missing brand outside test mode",
			mutate: func(c *CardDetails) { c.Brand = "" },
			want:   map[string]string{FieldType: "is required"},
		},
		{
			name:   "unknown brand",
			mutate: func(c *CardDetails) { c.Brand = "cheque" },
			want:   map[string]string{FieldType: "is invalid"},
		},
		{
			name:     "brand ignored in test mode",
			mutate:   func(c *CardDetails) { c.Brand = "" },
			testMode: true,
		},
		{
			name:   "missing names",
			mutate: func(c *CardDetails) { c.FirstName = ""; c.LastName = "" },
			want: map[string]string{
				FieldFirstName: "cannot be empty",
				FieldLastName:  "cannot be empty",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := validCard()
			tt.mutate(&card)

			result := validateCard(card, tt.testMode, fixedNow)
			if len(tt.want) == 0 {
				assert.True(t, result.Valid(), "unexpected errors: %v", result.FieldErrors)
				return
			}

			require.Len(t, result.FieldErrors, len(tt.want))
			for field, msg := range tt.want {
				require.Len(t, result.FieldErrors[field], 1, field)
				assert.Equal(t, msg, result.FieldErrors[field][0])
			}
		})
	}
}

func TestBogusGateway(t *testing.T) {
	g := NewBogusGateway(true)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		resp, err := g.Purchase(ctx, 2500, validCard(), Address{Country: DefaultCountry})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Authorization)
	})

	t.Run("decline", func(t *testing.T) {
		card := validCard()
		card.Number = BogusDeclineCard
		resp, err := g.Purchase(ctx, 100, card, Address{})
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "Card declined", resp.Message)
	})

	t.Run("processing error", func(t *testing.T) {
		card := validCard()
		card.Number = BogusErrorCard
		_, err := g.Purchase(ctx, 100, card, Address{})
		assert.True(t, errors.Is(err, ErrUnavailable))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := g.Purchase(cctx, 100, validCard(), Address{})
		assert.ErrorIs(t, err, context.Canceled)
	})

	calls := g.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, int64(2500), calls[0].AmountMinor)
	assert.True(t, g.TestMode())
}

func TestBogusGatewayTestCardsPassValidation(t *testing.T) {
	g := NewBogusGateway(false)
	g.now = func() time.Time { return fixedNow }

	for _, number := range []string{BogusDeclineCard, BogusErrorCard} {
		card := validCard()
		card.Number = number
		assert.True(t, g.Validate(card).Valid(), number)
	}
}

func TestChargeParams(t *testing.T) {
	params := chargeParams(2500, "usd", validCard(), Address{
		Address1: "1 Main St",
		City:     "Oakland",
		State:    "CA",
		Zip:      "94607",
		Email:    "ada@example.com",
	})

	assert.Equal(t, int64(2500), *params.Amount)
	assert.Equal(t, "usd", *params.Currency)
	require.NotNil(t, params.Source)
	require.NotNil(t, params.Source.Card)
	assert.Equal(t, "US", *params.Source.Card.AddressCountry)
	assert.Nil(t, params.Source.Card.AddressLine2)
	assert.Equal(t, "ada@example.com", *params.ReceiptEmail)
}

func TestUnavailableKeepsTimeouts(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantTimeout bool
	}{
		{name: "context deadline", err: context.DeadlineExceeded, wantTimeout: true},
		{name: "network timeout", err: &net.DNSError{Err: "i/o timeout", IsTimeout: true}, wantTimeout: true},
		{name: "connection reset", err: errors.New("connection reset by peer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := unavailable(tt.err)
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.wantTimeout, errors.Is(err, context.DeadlineExceeded))
		})
	}
}

func TestStripeGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", TestMode: true, URL: srv.URL})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	resp, err := g.Purchase(ctx, 2500, validCard(), Address{Country: DefaultCountry})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
