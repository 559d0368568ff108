package repositories

import (
	"context"
	"errors"
	"fmt"

	"spotus/internal/models"

	"gorm.io/gorm"
)

var (
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrDuplicatePaypalTxn   = errors.New("paypal transaction already settled")
	ErrDonationsNotLinkable = errors.New("donations are no longer unpaid")
	ErrSpotusAlreadyLinked  = errors.New("spotus donation already linked")
)

// PurchaseRepository persists settled purchases. Purchases are insert-only.
type PurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error

	// GetForUser loads a purchase owned by userID with its donations.
	GetForUser(ctx context.Context, userID, id uint) (*models.Purchase, error)
	// ListByUser returns one page of the user's purchases, newest first,
	// together with the user's total purchase count.
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Purchase, int64, error)
	GetByPaypalTxn(ctx context.Context, txnID string) (*models.Purchase, error)

	// LinkDonations marks every donation in donationIDs paid and links it to
	// purchaseID, then links the spotus donation when spotusDonationID is set.
	// Only unpaid donations owned by userID are touched; if any donation was
	// already paid the whole link is rolled back.
	LinkDonations(ctx context.Context, purchaseID, userID uint, donationIDs []uint, spotusDonationID *uint) error
}

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	err := r.db.WithContext(ctx).Omit("Donations", "SpotusDonation").Create(purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && purchase.PaypalTransaction() {
			return ErrDuplicatePaypalTxn
		}
		return fmt.Errorf("failed to create purchase: %w", err)
	}
	return nil
}

func (r *purchaseRepository) GetForUser(ctx context.Context, userID, id uint) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Donations").
		Preload("SpotusDonation").
		Where("id = ? AND user_id = ?", id, userID).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}
	return &purchase, nil
}

func (r *purchaseRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Purchase, int64, error) {
	var (
		purchases []models.Purchase
		total     int64
	)
	query := r.db.WithContext(ctx).Model(&models.Purchase{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&purchases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, total, nil
}

func (r *purchaseRepository) GetByPaypalTxn(ctx context.Context, txnID string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Donations").
		Where("paypal_transaction_id = ?", txnID).
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}
	return &purchase, nil
}

func (r *purchaseRepository) LinkDonations(ctx context.Context, purchaseID, userID uint, donationIDs []uint, spotusDonationID *uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(donationIDs) > 0 {
			result := tx.Model(&models.Donation{}).
				Where("id IN ? AND user_id = ? AND status = ? AND purchase_id IS NULL",
					donationIDs, userID, models.DonationStatusUnpaid).
				Updates(map[string]interface{}{
					"status":      models.DonationStatusPaid,
					"purchase_id": purchaseID,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to pay donations: %w", result.Error)
			}
			if result.RowsAffected != int64(len(donationIDs)) {
				return fmt.Errorf("%w: paid %d of %d", ErrDonationsNotLinkable, result.RowsAffected, len(donationIDs))
			}
		}

		if spotusDonationID != nil {
			result := tx.Model(&models.SpotusDonation{}).
				Where("id = ? AND user_id = ? AND purchase_id IS NULL", *spotusDonationID, userID).
				Update("purchase_id", purchaseID)
			if result.Error != nil {
				return fmt.Errorf("failed to link spotus donation: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrSpotusAlreadyLinked
			}
		}
		return nil
	})
}
