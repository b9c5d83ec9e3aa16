package validate

import (
	"errors"
	"fmt"
	"restaurant_manager/model"
	"restaurant_manager/utils"

	"github.com/gofiber/fiber/v2"
)

// SubmitOrder parses the cart. The session id always comes from the session header, so a
// diner cannot order under someone else's session.
func SubmitOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.SubmitOrderInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid input %s", err.Error()), err)
		}
		if session, ok := c.Locals("sessionId").(string); ok && session != "" {
			input.SessionID = session
		}

		if err := validate.Struct(input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid order", err)
		}

		c.Locals("input", input)
		return c.Next()
	}
}

func CashierApproval() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.CashierApprovalInput
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid input %s", err.Error()), err)
		}

		if err := validate.Struct(input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid charges", err)
		}

		c.Locals("input", input)
		return c.Next()
	}
}

// OrderFilter validates the optional ?status= query.
func OrderFilter() fiber.Handler {
	statuses := make([]string, 0, len(model.OrderStatuses))
	for _, s := range model.OrderStatuses {
		statuses = append(statuses, string(s))
	}
	return func(c *fiber.Ctx) error {
		status := c.Query("status")
		if status != "" && !utils.IsValidValueOfConstant(status, statuses) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status filter", errors.New("unknown status "+status))
		}
		c.Locals("statusFilter", model.OrderStatus(status))
		return c.Next()
	}
}
