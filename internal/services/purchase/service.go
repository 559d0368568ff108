package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	domainerrors "spotus/internal/errors"
	"spotus/internal/models"
	"spotus/internal/repositories"
	"spotus/internal/services/gateway"
	"spotus/internal/services/ledger"
)

type service struct {
	users     repositories.UserRepository
	donations repositories.DonationRepository
	purchases repositories.PurchaseRepository
	gateway   gateway.Gateway
	locker    Locker
	config    Config
	metrics   MetricsCollector
}

// NewService creates a new purchase service. locker and metrics are optional.
func NewService(
	users repositories.UserRepository,
	donations repositories.DonationRepository,
	purchases repositories.PurchaseRepository,
	gw gateway.Gateway,
	locker Locker,
	config Config,
	metrics MetricsCollector,
) Service {
	if users == nil {
		panic("user repository is required")
	}
	if donations == nil {
		panic("donation repository is required")
	}
	if purchases == nil {
		panic("purchase repository is required")
	}
	if gw == nil {
		panic("gateway is required")
	}

	if config.GatewayTimeout == 0 {
		config.GatewayTimeout = DefaultGatewayTimeout
	}
	if config.LockTTL == 0 {
		config.LockTTL = DefaultLockTTL
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		users:     users,
		donations: donations,
		purchases: purchases,
		gateway:   gw,
		locker:    locker,
		config:    config,
		metrics:   metrics,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Purchase, error) {
	start := time.Now()
	c := &checkout{req: req}

	if err := s.lockCheckout(ctx, req.UserID); err != nil {
		return nil, err
	}
	defer s.unlockCheckout(ctx, req.UserID)

	err := s.run(ctx, c)
	s.record(c, err, time.Since(start))
	return c.purchase, err
}

func (s *service) Get(ctx context.Context, userID, purchaseID uint) (*models.Purchase, error) {
	return s.purchases.GetForUser(ctx, userID, purchaseID)
}

func (s *service) List(ctx context.Context, userID uint, limit, offset int) ([]models.Purchase, int64, error) {
	return s.purchases.ListByUser(ctx, userID, limit, offset)
}

func (s *service) UnpaidDonations(ctx context.Context, userID uint) ([]models.Donation, error) {
	return s.donations.ListUnpaid(ctx, userID, models.DonationTypePayment)
}

func (s *service) Summary(ctx context.Context, userID uint) (*Summary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	donations, err := s.donations.ListUnpaid(ctx, userID, models.DonationTypePayment)
	if err != nil {
		return nil, err
	}
	creditPitches, err := s.donations.ListUnpaid(ctx, userID, models.DonationTypeCredit)
	if err != nil {
		return nil, err
	}
	spotus, err := s.donations.PendingSpotusDonation(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := ledger.ComputeTotal(nil, slices.Concat(donations, creditPitches), spotus, nil)
	return &Summary{
		Donations:           donations,
		CreditPitches:       creditPitches,
		SpotusDonation:      spotus,
		Total:               total,
		CreditAvailable:     ledger.CreditAvailable(user, total),
		CreditCoversTotal:   ledger.CreditCoversTotal(total),
		CreditCoversPartial: ledger.CreditCoversPartial(user, total),
	}, nil
}

func lockKey(userID uint) string {
	return fmt.Sprintf("checkout:%d", userID)
}

// lockCheckout keeps a user to one checkout at a time. Without a locker the
// conditional donation update is the only guard.
func (s *service) lockCheckout(ctx context.Context, userID uint) error {
	if s.locker == nil {
		return nil
	}
	ok, err := s.locker.AcquireLock(ctx, lockKey(userID), s.config.LockTTL)
	if err != nil {
		return fmt.Errorf("failed to lock checkout: %w", err)
	}
	if !ok {
		return domainerrors.ErrCheckoutInProgress
	}
	return nil
}

func (s *service) unlockCheckout(ctx context.Context, userID uint) {
	if s.locker == nil {
		return
	}
	if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), lockKey(userID)); err != nil {
		slog.WarnContext(ctx, "Failed to release checkout lock",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("err", err))
	}
}

func (s *service) record(c *checkout, err error, elapsed time.Duration) {
	method := c.method
	if method == "" {
		method = MethodCard
	}

	result := ResultSuccess
	var (
		validationErr   *ValidationError
		gatewayErr      *GatewayError
		inconsistentErr *InconsistentStateError
	)
	switch {
	case err == nil:
		f, _ := c.total.Float64()
		s.metrics.RecordSettledAmount(method, f)
	case errors.As(err, &validationErr):
		result = ResultValidationError
	case errors.As(err, &gatewayErr):
		result = ResultGatewayError
	case errors.As(err, &inconsistentErr):
		result = ResultInconsistent
	default:
		result = ResultFailed
	}

	s.metrics.RecordSettlement(method, result)
	s.metrics.RecordSettlementDuration(method, elapsed)
}
