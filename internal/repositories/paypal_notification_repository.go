package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spotus/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotificationNotFound = errors.New("paypal notification not found")

// PaypalNotificationRepository keeps one row per PayPal transaction id.
type PaypalNotificationRepository interface {
	// Record stores n unless a row with the same TxnID exists. It reports
	// whether n was newly stored.
	Record(ctx context.Context, n *models.PaypalNotification) (bool, error)
	GetByTxnID(ctx context.Context, txnID string) (*models.PaypalNotification, error)
	MarkProcessed(ctx context.Context, txnID string, purchaseID *uint, status string) error
}

type paypalNotificationRepository struct {
	db *gorm.DB
}

func NewPaypalNotificationRepository(db *gorm.DB) PaypalNotificationRepository {
	return &paypalNotificationRepository{db: db}
}

func (r *paypalNotificationRepository) Record(ctx context.Context, n *models.PaypalNotification) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "txn_id"}}, DoNothing: true}).
		Create(n)
	if result.Error != nil {
		return false, fmt.Errorf("failed to record paypal notification: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *paypalNotificationRepository) GetByTxnID(ctx context.Context, txnID string) (*models.PaypalNotification, error) {
	var n models.PaypalNotification
	if err := r.db.WithContext(ctx).Where("txn_id = ?", txnID).First(&n).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to load paypal notification: %w", err)
	}
	return &n, nil
}

func (r *paypalNotificationRepository) MarkProcessed(ctx context.Context, txnID string, purchaseID *uint, status string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.PaypalNotification{}).
		Where("txn_id = ?", txnID).
		Updates(map[string]interface{}{
			"purchase_id":    purchaseID,
			"payment_status": status,
			"processed_at":   &now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark paypal notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
