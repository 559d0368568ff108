package purchase

import (
	"context"
	"time"

	"spotus/internal/models"
)

// Service settles checkouts and reads a user's purchase history.
type Service interface {
	// Create runs one checkout attempt. It returns *ValidationError,
	// *GatewayError or *InconsistentStateError for the failures callers
	// are expected to surface.
	Create(ctx context.Context, req CreateRequest) (*models.Purchase, error)
	Get(ctx context.Context, userID, purchaseID uint) (*models.Purchase, error)
	List(ctx context.Context, userID uint, limit, offset int) ([]models.Purchase, int64, error)
	Summary(ctx context.Context, userID uint) (*Summary, error)
	UnpaidDonations(ctx context.Context, userID uint) ([]models.Donation, error)
}

// Locker serializes checkouts per user.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// MetricsCollector records settlement outcomes.
type MetricsCollector interface {
	RecordSettlement(method, result string)
	RecordSettlementDuration(method string, d time.Duration)
	RecordSettledAmount(method string, amount float64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordSettlement(string, string)                {}
func (n *NoopMetricsCollector) RecordSettlementDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordSettledAmount(string, float64)            {}
