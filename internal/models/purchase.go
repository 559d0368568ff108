package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase settles a user's donations against a card charge, a PayPal
// payment or their allocated credits. Rows are written once and never updated.
type Purchase struct {
	ID                     uint            `gorm:"primarykey" json:"id"`
	Reference              string          `gorm:"uniqueIndex;not null" json:"reference"`
	UserID                 uint            `gorm:"not null;index" json:"user_id"`
	FirstName              string          `json:"first_name"`
	LastName               string          `json:"last_name"`
	Address1               string          `json:"address1"`
	Address2               string          `json:"address2"`
	City                   string          `json:"city"`
	State                  string          `json:"state"`
	Zip                    string          `json:"zip"`
	CreditCardNumberEnding string          `json:"credit_card_number_ending"`
	TotalAmount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PaypalTransactionID    *string         `gorm:"uniqueIndex" json:"paypal_transaction_id,omitempty"`
	GatewayAuthorization   string          `json:"gateway_authorization,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`

	Donations      []Donation      `gorm:"foreignKey:PurchaseID" json:"donations,omitempty"`
	SpotusDonation *SpotusDonation `gorm:"foreignKey:PurchaseID" json:"spotus_donation,omitempty"`
}

func (p *Purchase) PaypalTransaction() bool {
	return p.PaypalTransactionID != nil && *p.PaypalTransactionID != ""
}

func (p *Purchase) CreditCoversTotal() bool {
	return p.TotalAmount.IsZero()
}

// PaymentDonations returns the linked donations of type payment.
func (p *Purchase) PaymentDonations() []Donation {
	return p.donationsOfType(DonationTypePayment)
}

// CreditPitches returns the linked donations funded from credits.
func (p *Purchase) CreditPitches() []Donation {
	return p.donationsOfType(DonationTypeCredit)
}

func (p *Purchase) donationsOfType(kind string) []Donation {
	var out []Donation
	for _, d := range p.Donations {
		if d.DonationType == kind {
			out = append(out, d)
		}
	}
	return out
}

// PaypalNotification records every PayPal callback by transaction id so that
// redelivered notifications are recognised.
type PaypalNotification struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	TxnID         string `gorm:"uniqueIndex;not null" json:"txn_id"`
	PaymentStatus string `gorm:"not null" json:"payment_status"`
	Source        string `gorm:"not null" json:"source"`
	Payload       JSON   `gorm:"type:jsonb" json:"payload"`
	PurchaseID    *uint  `json:"purchase_id,omitempty"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
