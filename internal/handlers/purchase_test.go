package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domainerrors "spotus/internal/errors"
	"spotus/internal/models"
	"spotus/internal/repositories"
	"spotus/internal/services/purchase"
	"spotus/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func purchaseApp(svc *MockPurchaseService) *fiber.App {
	h := NewPurchaseHandler(svc)
	app := fiber.New()
	app.Post("/purchases", asUser(7), h.Create)
	app.Get("/purchases", asUser(7), h.List)
	app.Get("/purchases/:id", asUser(7), h.Get)
	app.Get("/purchase", asUser(7), h.Summary)
	app.Get("/donations", asUser(7), h.UnpaidDonations)
	return app
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestPurchaseHandler_Create(t *testing.T) {
	body := `{
		"purchase": {
			"first_name": "Ada", "last_name": "Lovelace", "address1": "1 Main St",
			"city": "Oakland", "state": "CA", "zip": "94607",
			"credit_card_number": "4242424242424242", "credit_card_month": "12",
			"credit_card_year": "2030", "credit_card_type": "visa", "verification_value": "123"
		},
		"donation_ids": [1, 2],
		"credit_pitch_ids": [3]
	}`

	t.Run("maps the form onto a checkout request", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(req purchase.CreateRequest) bool {
			return req.UserID == 7 &&
				req.Billing.FirstName == "Ada" &&
				req.Billing.Zip == "94607" &&
				req.Card != nil &&
				req.Card.Number == "4242424242424242" &&
				req.Card.VerificationValue == "123" &&
				assert.ObjectsAreEqual([]uint{1, 2}, req.DonationIDs) &&
				assert.ObjectsAreEqual([]uint{3}, req.CreditPitchIDs)
		})).Return(&models.Purchase{ID: 11, UserID: 7, TotalAmount: decimal.NewFromInt(25)}, nil)

		req := httptest.NewRequest("POST", "/purchases", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := purchaseApp(svc).Test(req)
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		out := decode(t, resp)
		assert.Equal(t, float64(11), out["data"].(map[string]interface{})["id"])
		svc.AssertExpectations(t)
	})

	t.Run("credit checkout sends no card", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(req purchase.CreateRequest) bool {
			return req.Card == nil
		})).Return(&models.Purchase{ID: 12}, nil)

		req := httptest.NewRequest("POST", "/purchases", strings.NewReader(`{"donation_ids":[1]}`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := purchaseApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	})

	forms := []struct {
		name string
		body string
	}{
		{
			name: "dotted form keys",
			body: "purchase.first_name=Ada&purchase.zip=94607&purchase.credit_card_number=4242424242424242" +
				"&purchase.verification_value=123&donation_ids=1&donation_ids=2",
		},
		{
			name: "bracketed form keys",
			body: "purchase%5Bfirst_name%5D=Ada&purchase%5Bzip%5D=94607" +
				"&purchase%5Bcredit_card_number%5D=4242424242424242&purchase%5Bverification_value%5D=123" +
				"&donation_ids=1&donation_ids=2",
		},
	}
	for _, tt := range forms {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPurchaseService)
			svc.On("Create", mock.Anything, mock.MatchedBy(func(req purchase.CreateRequest) bool {
				return req.Billing.FirstName == "Ada" &&
					req.Billing.Zip == "94607" &&
					req.Card != nil &&
					req.Card.Number == "4242424242424242" &&
					req.Card.VerificationValue == "123" &&
					assert.ObjectsAreEqual([]uint{1, 2}, req.DonationIDs) &&
					req.CreditPitchIDs == nil
			})).Return(&models.Purchase{ID: 13}, nil)

			req := httptest.NewRequest("POST", "/purchases", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
			resp, err := purchaseApp(svc).Test(req)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
			svc.AssertExpectations(t)
		})
	}

	t.Run("form without ids settles everything unpaid", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(req purchase.CreateRequest) bool {
			return req.DonationIDs == nil && req.CreditPitchIDs == nil && req.Card == nil
		})).Return(&models.Purchase{ID: 14}, nil)

		req := httptest.NewRequest("POST", "/purchases", strings.NewReader("purchase.first_name=Ada"))
		req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
		resp, err := purchaseApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
		svc.AssertExpectations(t)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		check      func(t *testing.T, out map[string]interface{})
	}{
		{
			name: "validation errors keep their order",
			err: &purchase.ValidationError{Fields: []validation.FieldError{
				{Field: "first_name", Message: validation.MsgBlank},
				{Field: "credit_card_number", Message: validation.MsgBlank},
			}},
			wantStatus: fiber.StatusUnprocessableEntity,
			check: func(t *testing.T, out map[string]interface{}) {
				errs := out["errors"].([]interface{})
				require.Len(t, errs, 2)
				assert.Equal(t, "first_name", errs[0].(map[string]interface{})["field"])
				assert.Equal(t, "credit_card_number", errs[1].(map[string]interface{})["field"])
			},
		},
		{
			name:       "gateway message is passed through",
			err:        &purchase.GatewayError{Message: "Bogus Gateway: Forced failure"},
			wantStatus: fiber.StatusPaymentRequired,
			check: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "Bogus Gateway: Forced failure", out["error"])
			},
		},
		{
			name:       "inconsistent state names the purchase",
			err:        &purchase.InconsistentStateError{PurchaseID: 99, Err: errors.New("link failed")},
			wantStatus: fiber.StatusInternalServerError,
			check: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, float64(99), out["purchase_id"])
			},
		},
		{
			name:       "concurrent checkout",
			err:        domainerrors.ErrCheckoutInProgress,
			wantStatus: fiber.StatusConflict,
		},
		{
			name:       "unexpected failure",
			err:        errors.New("connection reset"),
			wantStatus: fiber.StatusInternalServerError,
			check: func(t *testing.T, out map[string]interface{}) {
				assert.Equal(t, "Internal server error", out["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPurchaseService)
			svc.On("Create", mock.Anything, mock.Anything).Return(nil, tt.err)

			req := httptest.NewRequest("POST", "/purchases", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := purchaseApp(svc).Test(req)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.check != nil {
				tt.check(t, decode(t, resp))
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockPurchaseService)
		req := httptest.NewRequest("POST", "/purchases", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := purchaseApp(svc).Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestPurchaseHandler_Reads(t *testing.T) {
	t.Run("get", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("Get", mock.Anything, uint(7), uint(3)).Return(&models.Purchase{ID: 3, UserID: 7}, nil)

		resp, err := purchaseApp(svc).Test(httptest.NewRequest("GET", "/purchases/3", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("get someone else's purchase", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("Get", mock.Anything, uint(7), uint(4)).Return(nil, repositories.ErrPurchaseNotFound)

		resp, err := purchaseApp(svc).Test(httptest.NewRequest("GET", "/purchases/4", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := purchaseApp(new(MockPurchaseService)).Test(httptest.NewRequest("GET", "/purchases/abc", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("list is paginated", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("List", mock.Anything, uint(7), 5, 5).Return([]models.Purchase{{ID: 1}}, int64(6), nil)

		resp, err := purchaseApp(svc).Test(httptest.NewRequest("GET", "/purchases?page=2&limit=5", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		data := decode(t, resp)["data"].(map[string]interface{})
		pagination := data["pagination"].(map[string]interface{})
		assert.Equal(t, float64(6), pagination["total"])
		assert.Equal(t, float64(2), pagination["last_page"])
	})

	t.Run("summary", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("Summary", mock.Anything, uint(7)).Return(&purchase.Summary{
			Total:             decimal.RequireFromString("19.50"),
			CreditAvailable:   decimal.NewFromInt(5),
			CreditCoversTotal: false,
		}, nil)

		resp, err := purchaseApp(svc).Test(httptest.NewRequest("GET", "/purchase", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		data := decode(t, resp)["data"].(map[string]interface{})
		assert.Equal(t, "19.5", data["total_amount"])
	})

	t.Run("unpaid donations", func(t *testing.T) {
		svc := new(MockPurchaseService)
		svc.On("UnpaidDonations", mock.Anything, uint(7)).Return([]models.Donation{{ID: 1}, {ID: 2}}, nil)

		resp, err := purchaseApp(svc).Test(httptest.NewRequest("GET", "/donations", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Len(t, decode(t, resp)["data"], 2)
	})
}
