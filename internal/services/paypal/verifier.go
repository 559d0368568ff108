package paypal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotVerified        = errors.New("paypal did not verify notification")
	ErrVerificationFailed = errors.New("paypal verification request failed")
)

const defaultVerifyTimeout = 30 * time.Second

// Verifier confirms that an IPN body really came from PayPal.
type Verifier interface {
	Verify(ctx context.Context, body []byte) error
}

// TransactionLookup asks PayPal for the details of a transaction the buyer
// claims to have completed.
type TransactionLookup interface {
	Lookup(ctx context.Context, txnID string) (*Notification, error)
}

// HTTPVerifier posts the notification back to PayPal, which answers
// VERIFIED or INVALID.
type HTTPVerifier struct {
	URL     string
	Timeout time.Duration
}

func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	if timeout == 0 {
		timeout = defaultVerifyTimeout
	}
	return &HTTPVerifier{URL: url, Timeout: timeout}
}

func (v *HTTPVerifier) Verify(ctx context.Context, body []byte) error {
	payload := make([]byte, 0, len(body)+len("cmd=_notify-validate&"))
	payload = append(payload, "cmd=_notify-validate&"...)
	payload = append(payload, body...)

	resp, err := post(ctx, v.URL, payload, v.Timeout)
	if err != nil {
		return err
	}
	if !bytes.Equal(bytes.TrimSpace(resp), []byte("VERIFIED")) {
		return ErrNotVerified
	}
	return nil
}

// PDTLookup confirms a returning buyer's transaction with Payment Data
// Transfer. PayPal answers SUCCESS followed by one key=value line per
// transaction field, or FAIL.
type PDTLookup struct {
	URL           string
	IdentityToken string
	Timeout       time.Duration
}

func NewPDTLookup(url, identityToken string, timeout time.Duration) *PDTLookup {
	if timeout == 0 {
		timeout = defaultVerifyTimeout
	}
	return &PDTLookup{URL: url, IdentityToken: identityToken, Timeout: timeout}
}

func (l *PDTLookup) Lookup(ctx context.Context, txnID string) (*Notification, error) {
	form := url.Values{
		"cmd": {"_notify-synch"},
		"tx":  {txnID},
		"at":  {l.IdentityToken},
	}
	resp, err := post(ctx, l.URL, []byte(form.Encode()), l.Timeout)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.ReplaceAll(string(resp), "\r\n", "\n"), "\n")
	if strings.TrimSpace(lines[0]) != "SUCCESS" {
		return nil, ErrNotVerified
	}

	values := url.Values{}
	for _, line := range lines[1:] {
		key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok || key == "" {
			continue
		}
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrMalformedNotification, key, err)
		}
		v, err := url.QueryUnescape(val)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrMalformedNotification, k, err)
		}
		values.Add(k, v)
	}

	n, err := notificationFromValues(values)
	if err != nil {
		return nil, err
	}
	if n.TxnID != txnID {
		return nil, ErrNotVerified
	}
	return n, nil
}

// post sends a form to PayPal and returns the body of a 200 answer. The
// request is bounded by the caller's deadline when that is sooner than
// timeout.
func post(ctx context.Context, endpoint string, payload []byte, timeout time.Duration) ([]byte, error) {
	timeout, err := requestTimeout(ctx, timeout)
	if err != nil {
		return nil, err
	}

	agent := fiber.Post(endpoint)
	agent.ContentType(fiber.MIMEApplicationForm)
	agent.Set(fiber.HeaderUserAgent, "spotus-paypal-client")
	agent.Timeout(timeout)
	agent.Body(payload)
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	code, resp, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrVerificationFailed, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrVerificationFailed, code)
	}
	return resp, nil
}

func requestTimeout(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if left < timeout {
			return left, nil
		}
	}
	return timeout, nil
}

// TrustingVerifier accepts every notification. Development only.
type TrustingVerifier struct{}

func (TrustingVerifier) Verify(context.Context, []byte) error {
	return nil
}
