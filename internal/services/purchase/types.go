package purchase

import (
	"time"

	"spotus/internal/models"

	"github.com/shopspring/decimal"
)

// Settlement methods
const (
	MethodCard   = "card"
	MethodCredit = "credit"
	MethodPaypal = "paypal"
)

// Settlement results
const (
	ResultSuccess         = "success"
	ResultValidationError = "validation_error"
	ResultGatewayError    = "gateway_error"
	ResultInconsistent    = "inconsistent"
	ResultFailed          = "failed"
)

const (
	DefaultGatewayTimeout = 30 * time.Second
	DefaultLockTTL        = 2 * time.Minute
)

// Config tunes the settlement pipeline.
type Config struct {
	GatewayTimeout time.Duration
	LockTTL        time.Duration
}

// Billing holds the billing fields of a checkout form.
type Billing struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

// CardFields are the transient card inputs. They are never persisted.
type CardFields struct {
	Number            string `json:"credit_card_number"`
	Month             string `json:"credit_card_month"`
	Year              string `json:"credit_card_year"`
	Type              string `json:"credit_card_type"`
	VerificationValue string `json:"verification_value"`
}

// CreateRequest is one checkout attempt.
type CreateRequest struct {
	UserID              uint
	Billing             Billing
	DonationIDs         []uint
	CreditPitchIDs      []uint
	Card                *CardFields
	PaypalTransactionID string

	// TotalOverride replaces the computed total. Kept for legacy callers.
	TotalOverride *decimal.Decimal
}

// Summary is what a user owes before checking out.
type Summary struct {
	Donations           []models.Donation      `json:"donations"`
	CreditPitches       []models.Donation      `json:"credit_pitches"`
	SpotusDonation      *models.SpotusDonation `json:"spotus_donation,omitempty"`
	Total               decimal.Decimal        `json:"total_amount"`
	CreditAvailable     decimal.Decimal        `json:"credit_available"`
	CreditCoversTotal   bool                   `json:"credit_covers_total"`
	CreditCoversPartial bool                   `json:"credit_covers_partial"`
}

// checkout carries a request through the pipeline steps.
type checkout struct {
	req            CreateRequest
	user           *models.User
	donations      []models.Donation
	creditPitches  []models.Donation
	spotusDonation *models.SpotusDonation
	total          decimal.Decimal
	method         string
	card           CardFields
	ending         string
	authorization  string
	purchase       *models.Purchase
}

func (c *checkout) paypal() bool {
	return c.req.PaypalTransactionID != ""
}

// donationIDs lists every donation and credit pitch to pay.
func (c *checkout) donationIDs() []uint {
	ids := make([]uint, 0, len(c.donations)+len(c.creditPitches))
	for _, d := range c.donations {
		ids = append(ids, d.ID)
	}
	for _, d := range c.creditPitches {
		ids = append(ids, d.ID)
	}
	return ids
}
