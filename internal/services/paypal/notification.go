// Package paypal settles purchases confirmed by PayPal, either through an
// instant payment notification (IPN) or through the buyer returning to the
// site with a transaction PayPal then confirms over PDT. Both paths can
// fire for the same transaction, and PayPal redelivers IPNs, so settlement
// is keyed on the transaction id.
package paypal

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"spotus/internal/models"

	"github.com/shopspring/decimal"
)

// Payment statuses PayPal reports. Only StatusCompleted settles a purchase.
const (
	StatusCompleted = "Completed"
	StatusPending   = "Pending"
	StatusRefunded  = "Refunded"
	StatusReversed  = "Reversed"
)

// Sources a notification arrived through.
const (
	SourceIPN    = "ipn"
	SourceReturn = "return"
)

var (
	ErrMissingTxnID          = errors.New("paypal notification has no txn_id")
	ErrMalformedNotification = errors.New("malformed paypal notification")
)

// Notification is the subset of an IPN message the settlement reads.
type Notification struct {
	TxnID         string
	PaymentStatus string
	UserID        uint
	Gross         decimal.Decimal
	Currency      string
	ReceiverEmail string
	PayerEmail    string
	FirstName     string
	LastName      string
	Street        string
	City          string
	State         string
	Zip           string
	Raw           url.Values
}

// ParseNotification decodes a form-encoded IPN body. The purchasing user
// travels in the custom field.
func ParseNotification(body []byte) (*Notification, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedNotification, err)
	}
	return notificationFromValues(values)
}

func notificationFromValues(values url.Values) (*Notification, error) {
	n := &Notification{
		TxnID:         strings.TrimSpace(values.Get("txn_id")),
		PaymentStatus: values.Get("payment_status"),
		Currency:      values.Get("mc_currency"),
		ReceiverEmail: values.Get("receiver_email"),
		PayerEmail:    values.Get("payer_email"),
		FirstName:     values.Get("first_name"),
		LastName:      values.Get("last_name"),
		Street:        values.Get("address_street"),
		City:          values.Get("address_city"),
		State:         values.Get("address_state"),
		Zip:           values.Get("address_zip"),
		Raw:           values,
	}
	if n.TxnID == "" {
		return nil, ErrMissingTxnID
	}

	if custom := strings.TrimSpace(values.Get("custom")); custom != "" {
		id, err := strconv.ParseUint(custom, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: custom %q: %w", ErrMalformedNotification, custom, err)
		}
		n.UserID = uint(id)
	}

	if gross := values.Get("mc_gross"); gross != "" {
		var err error
		n.Gross, err = decimal.NewFromString(gross)
		if err != nil {
			return nil, fmt.Errorf("%w: mc_gross %q: %w", ErrMalformedNotification, gross, err)
		}
	}
	return n, nil
}

// Payload flattens the raw message for storage.
func (n *Notification) Payload() models.JSON {
	payload := models.JSON{}
	for key, vals := range n.Raw {
		if len(vals) == 1 {
			payload[key] = vals[0]
		} else {
			payload[key] = vals
		}
	}
	return payload
}

func (n *Notification) Completed() bool {
	return n.PaymentStatus == StatusCompleted
}
