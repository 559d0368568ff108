package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Card numbers with a scripted outcome on the bogus gateway. Both pass the
// Luhn check, so they reach the gateway.
const (
	BogusDeclineCard = "4000000000000002"
	BogusErrorCard   = "4000000000000119"
)

// BogusCall is one recorded charge attempt.
type BogusCall struct {
	AmountMinor int64
	Card        CardDetails
	Billing     Address
}

// BogusGateway never talks to a network. Every card succeeds except
// BogusDeclineCard, which is declined, and BogusErrorCard, which fails like
// an unreachable gateway.
type BogusGateway struct {
	testMode bool
	now      func() time.Time

	mu    sync.Mutex
	calls []BogusCall
}

func NewBogusGateway(testMode bool) *BogusGateway {
	return &BogusGateway{testMode: testMode, now: time.Now}
}

func (g *BogusGateway) Purchase(ctx context.Context, amountMinor int64, card CardDetails, billing Address) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	g.calls = append(g.calls, BogusCall{AmountMinor: amountMinor, Card: card, Billing: billing})
	g.mu.Unlock()

	switch card.Number {
	case BogusDeclineCard:
		return &Response{Success: false, Message: "Card declined", Test: true}, nil
	case BogusErrorCard:
		return nil, fmt.Errorf("%w: bogus processing error", ErrUnavailable)
	}

	return &Response{
		Success:       true,
		Message:       "Bogus Gateway: Forced success",
		Authorization: uuid.NewString(),
		Test:          true,
	}, nil
}

func (g *BogusGateway) Validate(card CardDetails) ValidationResult {
	return validateCard(card, g.testMode, g.now())
}

func (g *BogusGateway) TestMode() bool {
	return g.testMode
}

// Calls returns a copy of every charge attempt so far.
func (g *BogusGateway) Calls() []BogusCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]BogusCall(nil), g.calls...)
}
