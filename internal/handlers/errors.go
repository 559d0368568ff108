package handlers

import (
	"errors"
	"log/slog"

	domainerrors "spotus/internal/errors"
	"spotus/internal/repositories"
	"spotus/internal/services/paypal"
	"spotus/internal/services/purchase"
	"spotus/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// settlementError maps checkout and PayPal failures to HTTP responses.
func settlementError(c *fiber.Ctx, err error) error {
	var (
		validationErr   *purchase.ValidationError
		gatewayErr      *purchase.GatewayError
		inconsistentErr *purchase.InconsistentStateError
	)

	switch {
	case errors.As(err, &validationErr):
		return response.ValidationFailed(c, "Purchase could not be created", validationErr.Fields)
	case errors.As(err, &gatewayErr):
		return response.Error(c, fiber.StatusPaymentRequired, gatewayErr.Message)
	case errors.As(err, &inconsistentErr):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":       "Purchase recorded but donations could not be linked",
			"purchase_id": inconsistentErr.PurchaseID,
		})
	case errors.Is(err, domainerrors.ErrCheckoutInProgress), errors.Is(err, paypal.ErrInProgress):
		return response.Conflict(c, err.Error())
	case errors.Is(err, repositories.ErrPurchaseNotFound):
		return response.NotFound(c, "Purchase not found")
	case errors.Is(err, paypal.ErrUserMismatch):
		return response.Forbidden(c)
	case errors.Is(err, paypal.ErrAmountMismatch):
		return response.Error(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, paypal.ErrVerificationFailed):
		return response.Error(c, fiber.StatusServiceUnavailable, "PayPal is unreachable, try again shortly")
	case errors.Is(err, paypal.ErrMissingTxnID),
		errors.Is(err, paypal.ErrMalformedNotification),
		errors.Is(err, paypal.ErrReceiverMismatch),
		errors.Is(err, paypal.ErrUnknownUser),
		errors.Is(err, paypal.ErrNotVerified):
		return response.BadRequest(c, err.Error())
	}

	slog.ErrorContext(c.UserContext(), "Request failed",
		slog.String("path", c.Path()),
		slog.Any("err", err))
	return response.ServerError(c, "Internal server error")
}
