package repositories

import (
	"context"
	"errors"
	"fmt"

	"spotus/internal/models"

	"gorm.io/gorm"
)

// DonationRepository reads donations and the platform donation awaiting
// settlement. Paying donations happens through PurchaseRepository.LinkDonations.
type DonationRepository interface {
	Create(ctx context.Context, donation *models.Donation) error
	CreateSpotusDonation(ctx context.Context, donation *models.SpotusDonation) error

	// FindByIDs returns the donations with the given ids; missing ids are
	// simply absent from the result.
	FindByIDs(ctx context.Context, ids []uint) ([]models.Donation, error)

	// ListUnpaid returns the user's unpaid donations of donationType, oldest first.
	ListUnpaid(ctx context.Context, userID uint, donationType string) ([]models.Donation, error)

	// PendingSpotusDonation returns the user's unlinked platform donation, or
	// nil when there is none.
	PendingSpotusDonation(ctx context.Context, userID uint) (*models.SpotusDonation, error)
}

type donationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(ctx context.Context, donation *models.Donation) error {
	if err := r.db.WithContext(ctx).Create(donation).Error; err != nil {
		return fmt.Errorf("failed to create donation: %w", err)
	}
	return nil
}

func (r *donationRepository) CreateSpotusDonation(ctx context.Context, donation *models.SpotusDonation) error {
	if err := r.db.WithContext(ctx).Create(donation).Error; err != nil {
		return fmt.Errorf("failed to create spotus donation: %w", err)
	}
	return nil
}

func (r *donationRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Donation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var donations []models.Donation
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&donations).Error; err != nil {
		return nil, fmt.Errorf("failed to load donations: %w", err)
	}
	return donations, nil
}

func (r *donationRepository) ListUnpaid(ctx context.Context, userID uint, donationType string) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND donation_type = ? AND status = ? AND purchase_id IS NULL",
			userID, donationType, models.DonationStatusUnpaid).
		Order("created_at, id").
		Find(&donations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid donations: %w", err)
	}
	return donations, nil
}

func (r *donationRepository) PendingSpotusDonation(ctx context.Context, userID uint) (*models.SpotusDonation, error) {
	var donation models.SpotusDonation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND purchase_id IS NULL", userID).
		Order("created_at DESC, id DESC").
		First(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load spotus donation: %w", err)
	}
	return &donation, nil
}
