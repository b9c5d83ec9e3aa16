package handler

import (
	"restaurant_manager/utils"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetSyncStatus(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, fiber.StatusOK, h.Sync.Status())
}

// TriggerSync runs one pass and reports what happened. A skipped pass is not an error.
func (h *Handler) TriggerSync(c *fiber.Ctx) error {
	report := h.Sync.SyncPendingOperations(c.UserContext())
	return utils.SuccessResponse(c, fiber.StatusOK, report)
}
