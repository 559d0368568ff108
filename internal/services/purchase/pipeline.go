package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	domainerrors "spotus/internal/errors"
	"spotus/internal/models"
	"spotus/internal/repositories"
	"spotus/internal/services/gateway"
	"spotus/internal/services/ledger"
	"spotus/internal/validation"

	"github.com/google/uuid"
)

// Checkout form field names as they appear in validation errors.
const (
	FieldFirstName              = "first_name"
	FieldLastName               = "last_name"
	FieldCreditCardNumberEnding = "credit_card_number_ending"
	FieldAddress1               = "address1"
	FieldCity                   = "city"
	FieldState                  = "state"
	FieldZip                    = "zip"
	FieldUserID                 = "user_id"
	FieldCreditCardNumber       = "credit_card_number"
	FieldCreditCardMonth        = "credit_card_month"
	FieldCreditCardYear         = "credit_card_year"
	FieldCreditCardType         = "credit_card_type"
	FieldVerificationValue      = "verification_value"
	FieldTotalAmount            = "total_amount"
	FieldDonations              = "donations"
	FieldCreditPitches          = "credit_pitches"
)

// cardFormFields maps gateway card fields to the form inputs that carry them.
var cardFormFields = map[string]string{
	gateway.FieldNumber:            FieldCreditCardNumber,
	gateway.FieldMonth:             FieldCreditCardMonth,
	gateway.FieldYear:              FieldCreditCardYear,
	gateway.FieldType:              FieldCreditCardType,
	gateway.FieldVerificationValue: FieldVerificationValue,
}

type step struct {
	name string
	run  func(ctx context.Context, c *checkout) error
}

// steps is the settlement pipeline in execution order.
func (s *service) steps() []step {
	return []step{
		{"resolveDonations", s.resolveDonations},
		{"computeTotal", s.computeTotal},
		{"validate", s.validate},
		{"chargeIfNeeded", s.chargeIfNeeded},
		{"persist", s.persist},
		{"linkDonations", s.linkDonations},
	}
}

func (s *service) run(ctx context.Context, c *checkout) error {
	for _, st := range s.steps() {
		if err := st.run(ctx, c); err != nil {
			slog.DebugContext(ctx, "Checkout stopped",
				slog.String("step", st.name),
				slog.Uint64("user_id", uint64(c.req.UserID)),
				slog.Any("err", err))
			return err
		}
	}
	return nil
}

// resolveDonations loads the candidate donations and enforces that each one
// belongs to the purchaser and is unpaid. With no candidates at all the
// user's whole unpaid balance is settled.
func (s *service) resolveDonations(ctx context.Context, c *checkout) error {
	if c.req.UserID == 0 {
		return &ValidationError{Fields: []FieldError{{Field: FieldUserID, Message: validation.MsgBlank}}}
	}

	user, err := s.users.GetByID(ctx, c.req.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return &ValidationError{
				Fields: []FieldError{{Field: FieldUserID, Message: "does not exist"}},
				Err:    err,
			}
		}
		return err
	}
	c.user = user

	if c.req.DonationIDs == nil && c.req.CreditPitchIDs == nil {
		if c.donations, err = s.donations.ListUnpaid(ctx, user.ID, models.DonationTypePayment); err != nil {
			return err
		}
		if c.creditPitches, err = s.donations.ListUnpaid(ctx, user.ID, models.DonationTypeCredit); err != nil {
			return err
		}
	} else {
		if c.donations, err = s.loadCandidates(ctx, user.ID, c.req.DonationIDs, models.DonationTypePayment, FieldDonations); err != nil {
			return err
		}
		if c.creditPitches, err = s.loadCandidates(ctx, user.ID, c.req.CreditPitchIDs, models.DonationTypeCredit, FieldCreditPitches); err != nil {
			return err
		}
	}

	spotus, err := s.donations.PendingSpotusDonation(ctx, user.ID)
	if err != nil {
		return err
	}
	c.spotusDonation = spotus
	return nil
}

func (s *service) loadCandidates(ctx context.Context, userID uint, ids []uint, kind, field string) ([]models.Donation, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	found, err := s.donations.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Donation, len(found))
	for _, d := range found {
		byID[d.ID] = d
	}

	out := make([]models.Donation, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		var cause error
		switch {
		case !ok:
			cause = domainerrors.ErrDonationNotFound
		case d.UserID != userID:
			cause = domainerrors.ErrDonationNotOwned
		case !d.Unpaid():
			cause = domainerrors.ErrDonationAlreadyPaid
		case d.DonationType != kind:
			cause = domainerrors.ErrDonationTypeMismatch
		}
		if cause != nil {
			return nil, &ValidationError{
				Fields: []FieldError{{Field: field, Message: fmt.Sprintf("%d: %s", id, cause.Error())}},
				Err:    cause,
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *service) computeTotal(_ context.Context, c *checkout) error {
	pending := slices.Concat(c.donations, c.creditPitches)
	c.total = ledger.ComputeTotal(nil, pending, c.spotusDonation, c.req.TotalOverride)

	if c.total.IsNegative() {
		return &ValidationError{Fields: []FieldError{{Field: FieldTotalAmount, Message: "must be greater than or equal to 0"}}}
	}

	switch {
	case c.paypal():
		c.method = MethodPaypal
	case ledger.CreditCoversTotal(c.total):
		c.method = MethodCredit
	default:
		c.method = MethodCard
	}
	return nil
}

// validate checks billing presence, then card presence, then card validity.
// Credit and PayPal settlements skip all three.
func (s *service) validate(_ context.Context, c *checkout) error {
	if !c.paypal() && c.req.Card != nil {
		c.card = *c.req.Card
		if len(c.card.Number) >= 4 {
			c.ending = c.card.Number[len(c.card.Number)-4:]
		}
	}
	if c.method != MethodCard {
		return nil
	}

	b := c.req.Billing
	v := validation.New()
	v.Present(FieldFirstName, b.FirstName)
	v.Present(FieldLastName, b.LastName)
	v.Present(FieldCreditCardNumberEnding, c.ending)
	v.Present(FieldAddress1, b.Address1)
	v.Present(FieldCity, b.City)
	v.Present(FieldState, b.State)
	v.Present(FieldZip, b.Zip)
	v.Present(FieldUserID, c.req.UserID)

	testMode := s.gateway.TestMode()
	values := map[string]string{
		gateway.FieldNumber:            c.card.Number,
		gateway.FieldMonth:             c.card.Month,
		gateway.FieldYear:              c.card.Year,
		gateway.FieldType:              c.card.Type,
		gateway.FieldVerificationValue: c.card.VerificationValue,
	}
	for _, field := range gateway.RequiredCardFields(testMode) {
		v.Present(cardFormFields[field], values[field])
	}

	result := s.gateway.Validate(s.cardDetails(c))
	for _, field := range gateway.CardFieldOrder {
		name := "credit_card_" + field
		if v.Has(name) || v.Has(cardFormFields[field]) {
			continue
		}
		for _, msg := range result.FieldErrors[field] {
			v.AddError(name, msg)
		}
	}

	if !v.Valid() {
		return &ValidationError{Fields: v.Errors}
	}
	return nil
}

func (s *service) cardDetails(c *checkout) gateway.CardDetails {
	return gateway.NewCardDetails(
		c.req.Billing.FirstName,
		c.req.Billing.LastName,
		c.card.Number,
		c.card.Month,
		c.card.Year,
		c.card.Type,
		c.card.VerificationValue,
		s.gateway.TestMode(),
	)
}

// chargeIfNeeded bills the card once. The call is bounded by the gateway
// timeout and never retried.
func (s *service) chargeIfNeeded(ctx context.Context, c *checkout) error {
	if c.method != MethodCard {
		return nil
	}

	billing := gateway.Address{
		Address1: c.req.Billing.Address1,
		Address2: c.req.Billing.Address2,
		City:     c.req.Billing.City,
		State:    c.req.Billing.State,
		Zip:      c.req.Billing.Zip,
		Country:  gateway.DefaultCountry,
	}
	if c.user != nil {
		billing.Email = c.user.Email
	}

	chargeCtx, cancel := context.WithTimeout(ctx, s.config.GatewayTimeout)
	defer cancel()

	resp, err := s.gateway.Purchase(chargeCtx, gateway.MinorUnits(c.total), s.cardDetails(c), billing)
	if err != nil {
		msg := gateway.ErrUnavailable.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "payment gateway timed out"
		}
		slog.ErrorContext(ctx, "Card charge failed",
			slog.Uint64("user_id", uint64(c.req.UserID)),
			slog.Any("err", err))
		return &GatewayError{Message: msg, Err: err}
	}
	if !resp.Success {
		slog.InfoContext(ctx, "Card charge declined",
			slog.Uint64("user_id", uint64(c.req.UserID)),
			slog.String("message", resp.Message))
		return &GatewayError{Message: resp.Message}
	}

	c.authorization = resp.Authorization
	return nil
}

func (s *service) persist(ctx context.Context, c *checkout) error {
	b := c.req.Billing
	p := &models.Purchase{
		Reference:              uuid.NewString(),
		UserID:                 c.req.UserID,
		FirstName:              b.FirstName,
		LastName:               b.LastName,
		Address1:               b.Address1,
		Address2:               b.Address2,
		City:                   b.City,
		State:                  b.State,
		Zip:                    b.Zip,
		CreditCardNumberEnding: c.ending,
		TotalAmount:            c.total,
		GatewayAuthorization:   c.authorization,
	}
	if c.paypal() {
		txn := c.req.PaypalTransactionID
		p.PaypalTransactionID = &txn
	}

	if err := s.purchases.Create(ctx, p); err != nil {
		if p.GatewayAuthorization != "" {
			slog.ErrorContext(ctx, "Charged card but could not save purchase",
				slog.Uint64("user_id", uint64(c.req.UserID)),
				slog.String("authorization", p.GatewayAuthorization),
				slog.String("total", c.total.StringFixed(2)),
				slog.Any("err", err))
		}
		return err
	}
	c.purchase = p
	return nil
}

// linkDonations pays and links every candidate, then the pending spotus
// donation. The purchase is already committed when this runs.
func (s *service) linkDonations(ctx context.Context, c *checkout) error {
	p := c.purchase
	var spotusID *uint
	if c.spotusDonation != nil {
		spotusID = &c.spotusDonation.ID
	}

	if err := s.purchases.LinkDonations(ctx, p.ID, c.req.UserID, c.donationIDs(), spotusID); err != nil {
		slog.ErrorContext(ctx, "Purchase committed but donations not linked",
			slog.Uint64("purchase_id", uint64(p.ID)),
			slog.Uint64("user_id", uint64(c.req.UserID)),
			slog.Any("err", err))
		return &InconsistentStateError{PurchaseID: p.ID, Err: err}
	}

	p.Donations = make([]models.Donation, 0, len(c.donations)+len(c.creditPitches))
	for _, d := range slices.Concat(c.donations, c.creditPitches) {
		d.Status = models.DonationStatusPaid
		d.PurchaseID = &p.ID
		p.Donations = append(p.Donations, d)
	}
	if c.spotusDonation != nil {
		sd := *c.spotusDonation
		sd.PurchaseID = &p.ID
		p.SpotusDonation = &sd
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
