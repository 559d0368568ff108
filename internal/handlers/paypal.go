package handlers

import (
	"errors"
	"log/slog"

	"spotus/internal/services/paypal"
	"spotus/internal/utils"
	"spotus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type PaypalHandler struct {
	paypal paypal.Service
}

func NewPaypalHandler(service paypal.Service) *PaypalHandler {
	return &PaypalHandler{paypal: service}
}

// Return handles the buyer coming back from PayPal with the transaction id
// in tx, as a query parameter or a form post. The purchase settles only once
// PayPal confirms the transaction; st and amt from the browser are ignored.
func (h *PaypalHandler) Return(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	result, err := h.paypal.HandleReturn(c.UserContext(), claims.UserID, paypal.Return{
		TxnID: param(c, "tx"),
	})
	if err != nil {
		return settlementError(c, err)
	}

	if result.Outcome == paypal.OutcomePending {
		return response.Accepted(c, paypalMessage(result.Outcome), result)
	}
	return response.Success(c, paypalMessage(result.Outcome), result)
}

// IPN receives PayPal's server-to-server notification. Once a notification
// is settled, recognised as a duplicate or ignored, PayPal gets a 200 so it
// stops redelivering.
func (h *PaypalHandler) IPN(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)

	result, err := h.paypal.HandleIPN(c.UserContext(), body)
	if err != nil {
		if errors.Is(err, paypal.ErrVerificationFailed) {
			// Let PayPal retry once verification is reachable again.
			slog.WarnContext(c.UserContext(), "PayPal IPN verification unavailable", slog.Any("err", err))
			return response.Error(c, fiber.StatusServiceUnavailable, "verification unavailable")
		}
		if errors.Is(err, paypal.ErrMalformedNotification) {
			// Redelivery cannot fix it.
			slog.WarnContext(c.UserContext(), "Dropping malformed PayPal IPN", slog.Any("err", err))
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"outcome": outcomeRejected})
		}
		return settlementError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"outcome": result.Outcome})
}

const outcomeRejected = "rejected"

func paypalMessage(outcome string) string {
	switch outcome {
	case paypal.OutcomePending:
		return "Waiting for PayPal to confirm the payment"
	case paypal.OutcomeSettled:
		return "Purchase completed"
	case paypal.OutcomeDuplicate:
		return "Purchase already recorded"
	default:
		return "Payment not completed yet"
	}
}

func param(c *fiber.Ctx, key string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return c.FormValue(key)
}
