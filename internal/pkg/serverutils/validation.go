package serverutils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// ValidateRequest runs struct tag validation and converts failures into a
// 400 with a readable field list.
func ValidateRequest(request interface{}) error {
	if err := validate.Struct(request); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request")
		}

		message := "validation failed:"
		for _, fieldErr := range validationErrors {
			message += fmt.Sprintf(" %s (%s)", fieldErr.Field(), fieldErr.Tag())
		}
		return fiber.NewError(fiber.StatusBadRequest, message)
	}
	return nil
}
