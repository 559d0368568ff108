package paypal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"spotus/internal/models"
	"spotus/internal/repositories"
	"spotus/internal/services/purchase"
)

var (
	ErrAmountMismatch   = errors.New("paypal amount does not match amount owed")
	ErrReceiverMismatch = errors.New("paypal payment was sent to another account")
	ErrUserMismatch     = errors.New("paypal payment belongs to another user")
	ErrUnknownUser      = errors.New("paypal notification does not name a user")
	ErrInProgress       = errors.New("paypal transaction is being settled")
)

// Outcomes of a settlement attempt.
const (
	OutcomeSettled   = "settled"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomePending   = "pending"
)

// Return is what the buyer's browser brings back from PayPal. Only the
// transaction id is used; its details come from PayPal itself.
type Return struct {
	TxnID string
}

// Result reports what a notification did. Purchase is nil when ignored or
// pending.
type Result struct {
	Purchase *models.Purchase `json:"purchase,omitempty"`
	Outcome  string           `json:"outcome"`
}

type Config struct {
	// ReceiverEmail, when set, must match the notification's receiver_email.
	ReceiverEmail string
	LockTTL       time.Duration
}

type Service interface {
	HandleIPN(ctx context.Context, body []byte) (*Result, error)
	HandleReturn(ctx context.Context, userID uint, ret Return) (*Result, error)
}

type service struct {
	purchases     purchase.Service
	purchaseRepo  repositories.PurchaseRepository
	notifications repositories.PaypalNotificationRepository
	verifier      Verifier
	lookup        TransactionLookup
	locker        purchase.Locker
	config        Config
}

// NewService creates the PayPal settlement service. locker may be nil.
// Without a lookup, buyer returns never settle and wait for the IPN.
func NewService(
	purchases purchase.Service,
	purchaseRepo repositories.PurchaseRepository,
	notifications repositories.PaypalNotificationRepository,
	verifier Verifier,
	lookup TransactionLookup,
	locker purchase.Locker,
	config Config,
) Service {
	if purchases == nil || purchaseRepo == nil || notifications == nil {
		panic("paypal service dependencies are required")
	}
	if verifier == nil {
		verifier = TrustingVerifier{}
	}
	if config.LockTTL == 0 {
		config.LockTTL = purchase.DefaultLockTTL
	}
	return &service{
		purchases:     purchases,
		purchaseRepo:  purchaseRepo,
		notifications: notifications,
		verifier:      verifier,
		lookup:        lookup,
		locker:        locker,
		config:        config,
	}
}

func (s *service) HandleIPN(ctx context.Context, body []byte) (*Result, error) {
	if err := s.verifier.Verify(ctx, body); err != nil {
		return nil, err
	}
	n, err := ParseNotification(body)
	if err != nil {
		return nil, err
	}
	if err := s.checkRecipient(n); err != nil {
		return nil, err
	}
	return s.settle(ctx, n, SourceIPN)
}

func (s *service) HandleReturn(ctx context.Context, userID uint, ret Return) (*Result, error) {
	txnID := strings.TrimSpace(ret.TxnID)
	if txnID == "" {
		return nil, ErrMissingTxnID
	}
	if existing, err := s.existing(ctx, txnID, userID); existing != nil || err != nil {
		return existing, err
	}

	if s.lookup == nil {
		slog.InfoContext(ctx, "PayPal return awaiting IPN", slog.String("txn_id", txnID))
		return &Result{Outcome: OutcomePending}, nil
	}

	n, err := s.lookup.Lookup(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if err := s.checkRecipient(n); err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrUserMismatch
	}
	return s.settle(ctx, n, SourceReturn)
}

// checkRecipient makes sure the payment names a user and reached our account.
func (s *service) checkRecipient(n *Notification) error {
	if n.UserID == 0 {
		return ErrUnknownUser
	}
	if s.config.ReceiverEmail != "" && !strings.EqualFold(n.ReceiverEmail, s.config.ReceiverEmail) {
		return ErrReceiverMismatch
	}
	return nil
}

// settle creates at most one purchase per transaction id no matter how
// often, or through which path, PayPal reports it.
func (s *service) settle(ctx context.Context, n *Notification, source string) (*Result, error) {
	if existing, err := s.existing(ctx, n.TxnID, n.UserID); existing != nil || err != nil {
		return existing, err
	}

	if _, err := s.notifications.Record(ctx, &models.PaypalNotification{
		TxnID:         n.TxnID,
		PaymentStatus: n.PaymentStatus,
		Source:        source,
		Payload:       n.Payload(),
	}); err != nil {
		return nil, err
	}

	if !n.Completed() {
		slog.InfoContext(ctx, "Ignoring paypal notification",
			slog.String("txn_id", n.TxnID),
			slog.String("payment_status", n.PaymentStatus),
			slog.String("source", source))
		if err := s.notifications.MarkProcessed(ctx, n.TxnID, nil, n.PaymentStatus); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	unlock, err := s.lock(ctx, n.TxnID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another delivery may have settled while we waited for the lock.
	if existing, err := s.existing(ctx, n.TxnID, n.UserID); existing != nil || err != nil {
		return existing, err
	}

	summary, err := s.purchases.Summary(ctx, n.UserID)
	if err != nil {
		return nil, err
	}
	if !n.Gross.Equal(summary.Total) {
		slog.WarnContext(ctx, "PayPal amount mismatch",
			slog.String("txn_id", n.TxnID),
			slog.String("gross", n.Gross.String()),
			slog.String("owed", summary.Total.String()))
		return nil, fmt.Errorf("%w: paid %s, owed %s", ErrAmountMismatch, n.Gross.StringFixed(2), summary.Total.StringFixed(2))
	}

	p, err := s.purchases.Create(ctx, purchase.CreateRequest{
		UserID:              n.UserID,
		PaypalTransactionID: n.TxnID,
		DonationIDs:         ids(summary.Donations),
		CreditPitchIDs:      ids(summary.CreditPitches),
		Billing: purchase.Billing{
			FirstName: n.FirstName,
			LastName:  n.LastName,
			Address1:  n.Street,
			City:      n.City,
			State:     n.State,
			Zip:       n.Zip,
		},
	})
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicatePaypalTxn) {
			return s.existing(ctx, n.TxnID, n.UserID)
		}
		var incErr *purchase.InconsistentStateError
		if errors.As(err, &incErr) && p != nil {
			s.markProcessed(ctx, n, &p.ID)
		}
		return nil, err
	}

	s.markProcessed(ctx, n, &p.ID)
	slog.InfoContext(ctx, "Settled paypal purchase",
		slog.String("txn_id", n.TxnID),
		slog.Uint64("purchase_id", uint64(p.ID)),
		slog.String("source", source))
	return &Result{Purchase: p, Outcome: OutcomeSettled}, nil
}

// existing returns the purchase already settled for txnID, refusing to hand
// another user's purchase to userID.
func (s *service) existing(ctx context.Context, txnID string, userID uint) (*Result, error) {
	p, err := s.purchaseRepo.GetByPaypalTxn(ctx, txnID)
	if err != nil {
		if errors.Is(err, repositories.ErrPurchaseNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrUserMismatch
	}
	return &Result{Purchase: p, Outcome: OutcomeDuplicate}, nil
}

func (s *service) lock(ctx context.Context, txnID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := "paypal:" + txnID
	ok, err := s.locker.AcquireLock(ctx, key, s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock paypal transaction: %w", err)
	}
	if !ok {
		return nil, ErrInProgress
	}
	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key); err != nil {
			slog.WarnContext(ctx, "Failed to release paypal lock", slog.String("txn_id", txnID), slog.Any("err", err))
		}
	}, nil
}

func (s *service) markProcessed(ctx context.Context, n *Notification, purchaseID *uint) {
	if err := s.notifications.MarkProcessed(ctx, n.TxnID, purchaseID, n.PaymentStatus); err != nil {
		slog.WarnContext(ctx, "Failed to mark paypal notification processed",
			slog.String("txn_id", n.TxnID),
			slog.Any("err", err))
	}
}

func ids(donations []models.Donation) []uint {
	out := make([]uint, len(donations))
	for i, d := range donations {
		out[i] = d.ID
	}
	return out
}
