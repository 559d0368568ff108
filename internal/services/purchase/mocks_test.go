package purchase

import (
	"context"
	"time"

	"spotus/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepo) IncrementTokenVersion(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *MockUserRepo) UpdatePassword(ctx context.Context, userID uint, hashedPassword string) error {
	return m.Called(ctx, userID, hashedPassword).Error(0)
}

type MockDonationRepo struct {
	mock.Mock
}

func (m *MockDonationRepo) Create(ctx context.Context, donation *models.Donation) error {
	return m.Called(ctx, donation).Error(0)
}

func (m *MockDonationRepo) CreateSpotusDonation(ctx context.Context, donation *models.SpotusDonation) error {
	return m.Called(ctx, donation).Error(0)
}

func (m *MockDonationRepo) FindByIDs(ctx context.Context, ids []uint) ([]models.Donation, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Donation), args.Error(1)
}

func (m *MockDonationRepo) ListUnpaid(ctx context.Context, userID uint, donationType string) ([]models.Donation, error) {
	args := m.Called(ctx, userID, donationType)
	return args.Get(0).([]models.Donation), args.Error(1)
}

func (m *MockDonationRepo) PendingSpotusDonation(ctx context.Context, userID uint) (*models.SpotusDonation, error) {
	args := m.Called(ctx, userID)
	if d := args.Get(0); d != nil {
		return d.(*models.SpotusDonation), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPurchaseRepo struct {
	mock.Mock
}

func (m *MockPurchaseRepo) Create(ctx context.Context, purchase *models.Purchase) error {
	return m.Called(ctx, purchase).Error(0)
}

func (m *MockPurchaseRepo) GetForUser(ctx context.Context, userID, id uint) (*models.Purchase, error) {
	args := m.Called(ctx, userID, id)
	if p := args.Get(0); p != nil {
		return p.(*models.Purchase), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Purchase, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]models.Purchase), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseRepo) GetByPaypalTxn(ctx context.Context, txnID string) (*models.Purchase, error) {
	args := m.Called(ctx, txnID)
	if p := args.Get(0); p != nil {
		return p.(*models.Purchase), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseRepo) LinkDonations(ctx context.Context, purchaseID, userID uint, donationIDs []uint, spotusDonationID *uint) error {
	return m.Called(ctx, purchaseID, userID, donationIDs, spotusDonationID).Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) ReleaseLock(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordSettlement(method, result string) {
	m.Called(method, result)
}

func (m *MockMetrics) RecordSettlementDuration(method string, d time.Duration) {
	m.Called(method, d)
}

func (m *MockMetrics) RecordSettledAmount(method string, amount float64) {
	m.Called(method, amount)
}
