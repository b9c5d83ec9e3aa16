package validate

import (
	"errors"
	"restaurant_manager/utils"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// GetByKey checks that route parameter key is present and stores it as the "inputId" local.
func GetByKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value := strings.TrimSpace(c.Params(key))
		if err := validate.Var(value, "required,max=64"); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid "+key, errors.New("params invalid"))
		}

		c.Locals("inputId", value)
		return c.Next()
	}
}
