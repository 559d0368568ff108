// Package gateway charges credit cards on behalf of the purchase pipeline.
//
// A Gateway is injected into the services that need it; there is no
// process-wide gateway. Two implementations exist: StripeGateway for real
// charges and BogusGateway for development and tests.
package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Card field keys, in the order their errors are reported.
const (
	FieldFirstName         = "first_name"
	FieldLastName          = "last_name"
	FieldNumber            = "number"
	FieldMonth             = "month"
	FieldYear              = "year"
	FieldType              = "type"
	FieldVerificationValue = "verification_value"
)

// CardFieldOrder is the order Validate reports field errors in.
var CardFieldOrder = []string{
	FieldFirstName,
	FieldLastName,
	FieldNumber,
	FieldMonth,
	FieldYear,
	FieldType,
	FieldVerificationValue,
}

var ErrUnavailable = errors.New("payment gateway unavailable")

// CardDetails is the card presented to the gateway. The raw number only
// lives in memory for the duration of a checkout.
type CardDetails struct {
	FirstName         string
	LastName          string
	Number            string
	Month             string
	Year              string
	Brand             string
	VerificationValue string
}

// NewCardDetails builds the card the way the gateway expects it: in test
// mode the brand is not sent.
func NewCardDetails(firstName, lastName, number, month, year, brand, cvv string, testMode bool) CardDetails {
	card := CardDetails{
		FirstName:         firstName,
		LastName:          lastName,
		Number:            number,
		Month:             month,
		Year:              year,
		VerificationValue: cvv,
	}
	if !testMode {
		card.Brand = brand
	}
	return card
}

// Address is the billing address sent with a charge.
type Address struct {
	Address1 string
	Address2 string
	City     string
	State    string
	Zip      string
	Country  string
	Email    string
}

// DefaultCountry is used for every billing address.
const DefaultCountry = "US"

// Response is the outcome of a charge attempt the gateway answered.
type Response struct {
	Success       bool
	Message       string
	Authorization string
	Test          bool
}

// ValidationResult lists at most one message per invalid card field.
type ValidationResult struct {
	FieldErrors map[string][]string
}

func (r ValidationResult) Valid() bool {
	return len(r.FieldErrors) == 0
}

// Gateway is the card payment collaborator.
type Gateway interface {
	// Purchase charges amountMinor (cents) to card. A declined card is a
	// Response with Success false; err is reserved for transport failures.
	Purchase(ctx context.Context, amountMinor int64, card CardDetails, billing Address) (*Response, error)
	Validate(card CardDetails) ValidationResult
	TestMode() bool
}

// RequiredCardFields lists the card inputs a checkout must supply. The card
// brand is not required when the gateway runs in test mode.
func RequiredCardFields(testMode bool) []string {
	fields := []string{FieldNumber, FieldYear, FieldType, FieldMonth, FieldVerificationValue}
	if testMode {
		return []string{FieldNumber, FieldYear, FieldMonth, FieldVerificationValue}
	}
	return fields
}

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a dollar amount to cents, rounding half away from zero.
func MinorUnits(total decimal.Decimal) int64 {
	return total.Mul(hundred).Round(0).IntPart()
}
