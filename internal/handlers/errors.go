package handlers

import (
	"errors"

	apperrors "tourneypay/internal/errors"
	"tourneypay/internal/services/wallet"
	"tourneypay/internal/utils"
	"tourneypay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

// kindStatus maps an outcome kind onto an HTTP status.
func kindStatus(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindWalletNotFound:
		return fiber.StatusNotFound
	case apperrors.KindPermissionDenied:
		return fiber.StatusForbidden
	case apperrors.KindStoreUnavailable:
		return fiber.StatusServiceUnavailable
	case apperrors.KindInvariantViolation:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusUnprocessableEntity
	}
}

// writeError renders a service error. Store failures never leak details.
func writeError(c *fiber.Ctx, err error) error {
	var derr *apperrors.DomainError
	switch {
	case errors.As(err, &derr):
		return utils.Respond(c, kindStatus(derr.Code), fiber.Map{"error": derr.Message, "code": derr.Code})
	case errors.Is(err, wallet.ErrInvariantViolation):
		return utils.InternalError(c, "ledger invariant violated")
	case errors.Is(err, wallet.ErrStoreUnavailable):
		return utils.ServiceUnavailable(c, "ledger store unavailable")
	default:
		return utils.InternalError(c, "internal error")
	}
}

func validationProblem(err error) fiber.Map {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return fiber.Map{"error": "validation failed", "fields": verrs}
	}
	return fiber.Map{"error": err.Error()}
}
