package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Donation types
const (
	DonationTypePayment = "payment"
	DonationTypeCredit  = "credit"
)

// Donation statuses
const (
	DonationStatusUnpaid = "unpaid"
	DonationStatusPaid   = "paid"
)

// Donation is a pledge toward a pitch. Credit pitches are donations funded
// from the user's allocated credits and carry DonationTypeCredit.
type Donation struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	UserID       uint            `gorm:"not null;index" json:"user_id"`
	PitchID      uint            `gorm:"index" json:"pitch_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	DonationType string          `gorm:"not null;default:'payment';index" json:"donation_type"`
	Status       string          `gorm:"not null;default:'unpaid';index" json:"status"`
	PurchaseID   *uint           `gorm:"index" json:"purchase_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (d *Donation) Unpaid() bool {
	return d.Status == DonationStatusUnpaid && d.PurchaseID == nil
}

func (d *Donation) IsCredit() bool {
	return d.DonationType == DonationTypeCredit
}

// SpotusDonation is a donation to the platform itself, settled together with
// the user's next purchase. It is pending while PurchaseID is nil.
type SpotusDonation struct {
	ID         uint            `gorm:"primarykey" json:"id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	PurchaseID *uint           `gorm:"uniqueIndex" json:"purchase_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (s *SpotusDonation) Pending() bool {
	return s.PurchaseID == nil
}
