package gateway

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Card brands accepted outside test mode.
var Brands = []interface{}{"visa", "master", "american_express", "discover", "diners_club", "jcb"}

var cvvPattern = regexp.MustCompile(`^\d{3,4}$`)

// validateCard checks card well-formedness against now. Each field reports
// only the first rule it fails.
func validateCard(card CardDetails, testMode bool, now time.Time) ValidationResult {
	rules := map[string]struct {
		value interface{}
		rules []validation.Rule
	}{
		FieldFirstName: {card.FirstName, []validation.Rule{validation.Required.Error("cannot be empty")}},
		FieldLastName:  {card.LastName, []validation.Rule{validation.Required.Error("cannot be empty")}},
		FieldNumber: {card.Number, []validation.Rule{
			validation.Required.Error("cannot be empty"),
			is.Digit.Error("is not a valid credit card number"),
			validation.Length(12, 19).Error("is not a valid credit card number"),
			validation.By(luhnRule),
		}},
		FieldMonth: {card.Month, []validation.Rule{
			validation.Required.Error("cannot be empty"),
			validation.By(monthRule),
		}},
		FieldYear: {card.Year, []validation.Rule{
			validation.Required.Error("cannot be empty"),
			is.Digit.Error("is not a valid year"),
			validation.Length(4, 4).Error("is not a valid year"),
			validation.By(expiryRule(card.Month, now)),
		}},
		FieldVerificationValue: {card.VerificationValue, []validation.Rule{
			validation.Required.Error("is required"),
			validation.Match(cvvPattern).Error("should be 3 or 4 digits"),
		}},
	}
	if !testMode {
		rules[FieldType] = struct {
			value interface{}
			rules []validation.Rule
		}{card.Brand, []validation.Rule{
			validation.Required.Error("is required"),
			validation.In(Brands...).Error("is invalid"),
		}}
	}

	result := ValidationResult{FieldErrors: map[string][]string{}}
	for _, field := range CardFieldOrder {
		r, ok := rules[field]
		if !ok {
			continue
		}
		if err := validation.Validate(r.value, r.rules...); err != nil {
			result.FieldErrors[field] = []string{err.Error()}
		}
	}
	return result
}

func luhnRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !isValidCardNumber(s) {
		return errors.New("is not a valid credit card number")
	}
	return nil
}

// Luhn Algorithm: Used to validate credit card numbers
func isValidCardNumber(cardNumber string) bool {
	var sum int
	shouldDouble := false

	for i := len(cardNumber) - 1; i >= 0; i-- {
		digit := int(cardNumber[i] - '0')
		if digit < 0 || digit > 9 {
			return false
		}
		if shouldDouble {
			digit = digit * 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		shouldDouble = !shouldDouble
	}

	return sum%10 == 0
}

func monthRule(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	month, err := strconv.Atoi(s)
	if err != nil || month < 1 || month > 12 {
		return errors.New("is not a valid month")
	}
	return nil
}

// expiryRule fails when the card expired before the month containing now.
func expiryRule(monthValue string, now time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		year, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		month, err := strconv.Atoi(monthValue)
		if err != nil || month < 1 || month > 12 {
			return nil
		}
		currentYear, currentMonth, _ := now.Date()
		if year < currentYear || (year == currentYear && month < int(currentMonth)) {
			return errors.New("expired")
		}
		return nil
	}
}
