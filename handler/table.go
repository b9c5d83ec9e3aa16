package handler

import (
	"restaurant_manager/helper"
	"restaurant_manager/utils"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetTables(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, fiber.StatusOK, h.Flow.Tables())
}

// GetTableByUUID là trang khách quét QR: chỉ trả thông tin bàn, không kèm đơn hàng.
func (h *Handler) GetTableByUUID(c *fiber.Ctx) error {
	view, err := h.Flow.Table(c.Locals("inputId").(string))
	if err != nil {
		return h.flowError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, view.Table)
}

// GetTableView is the staff view of one table with its derived status and order.
func (h *Handler) GetTableView(c *fiber.Ctx) error {
	view, err := h.Flow.Table(c.Locals("inputId").(string))
	if err != nil {
		return h.flowError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, view)
}

// GetTableQR renders the link diners scan to order at the table.
func (h *Handler) GetTableQR(c *fiber.Ctx) error {
	table, err := h.Flow.Table(c.Locals("inputId").(string))
	if err != nil {
		return h.flowError(c, err)
	}
	size := c.QueryInt("size", 256)
	if size < 64 || size > 1024 {
		size = 256
	}
	png, err := utils.GenerateQRCode(utils.TableOrderLink(h.AppURL, table.UUID), size)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Không tạo được mã QR", err)
	}
	c.Set(fiber.HeaderContentDisposition, `inline; filename="ban-`+table.UUID+`.png"`)
	c.Type("png")
	return c.Send(png)
}

func (h *Handler) GetMenu(c *fiber.Ctx) error {
	items := h.Flow.MenuItems()
	if c.QueryBool("available", false) {
		filtered := items[:0]
		for _, m := range items {
			if m.Available {
				filtered = append(filtered, m)
			}
		}
		items = filtered
	}
	return utils.SuccessResponse(c, fiber.StatusOK, helper.GroupMenuByCategory(items))
}
