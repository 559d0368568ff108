package handlers

import (
	"context"

	"spotus/internal/models"
	"spotus/internal/services/paypal"
	"spotus/internal/services/purchase"
	"spotus/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
)

type MockPurchaseService struct {
	mock.Mock
}

func (m *MockPurchaseService) Create(ctx context.Context, req purchase.CreateRequest) (*models.Purchase, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*models.Purchase)
	return p, args.Error(1)
}

func (m *MockPurchaseService) Get(ctx context.Context, userID, purchaseID uint) (*models.Purchase, error) {
	args := m.Called(ctx, userID, purchaseID)
	p, _ := args.Get(0).(*models.Purchase)
	return p, args.Error(1)
}

func (m *MockPurchaseService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Purchase, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Purchase), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseService) Summary(ctx context.Context, userID uint) (*purchase.Summary, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).(*purchase.Summary)
	return s, args.Error(1)
}

func (m *MockPurchaseService) UnpaidDonations(ctx context.Context, userID uint) ([]models.Donation, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Donation), args.Error(1)
}

type MockPaypalService struct {
	mock.Mock
}

func (m *MockPaypalService) HandleIPN(ctx context.Context, body []byte) (*paypal.Result, error) {
	args := m.Called(ctx, body)
	r, _ := args.Get(0).(*paypal.Result)
	return r, args.Error(1)
}

func (m *MockPaypalService) HandleReturn(ctx context.Context, userID uint, ret paypal.Return) (*paypal.Result, error) {
	args := m.Called(ctx, userID, ret)
	r, _ := args.Get(0).(*paypal.Result)
	return r, args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*models.User, string, string, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*models.User)
	return u, args.String(1), args.String(2), args.Error(3)
}

func (m *MockAuthService) RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	return m.Called(ctx, userID, oldPassword, newPassword).Error(0)
}

func (m *MockAuthService) Authenticate(ctx context.Context, accessToken string) (*models.UserClaims, error) {
	args := m.Called(ctx, accessToken)
	c, _ := args.Get(0).(*models.UserClaims)
	return c, args.Error(1)
}

// asUser stands in for the auth middleware.
func asUser(userID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		utils.SetUserClaims(c, &models.UserClaims{
			UserID:      userID,
			Role:        models.RoleUser,
			Permissions: models.GetDefaultPermissions(models.RoleUser),
		})
		return c.Next()
	}
}
