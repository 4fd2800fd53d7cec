package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-marketplace-be/internal/dto"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// standard envelope. Fiber errors keep their status; usage-limit errors map
// to 429; everything else is a 500 with a generic message.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var limitErr *dto.LimitExceededError
		if errors.As(err, &limitErr) {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"message":     limitErr.Error(),
				"limit":       limitErr.Limit,
				"used":        limitErr.Used,
				"reset_after": limitErr.ResetAfter,
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(FailResponse(fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(FailResponse("internal server error"))
	}
}
