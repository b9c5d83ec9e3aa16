package handler

import (
	"context"
	"errors"
	"restaurant_manager/model"
	"restaurant_manager/orderflow"
	"restaurant_manager/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type SyncService interface {
	SyncPendingOperations(ctx context.Context) model.SyncReport
	Status() model.SyncStatus
}

type Handler struct {
	Flow   *orderflow.Controller
	Sync   SyncService
	Hub    *Hub
	AppURL string
	Log    logrus.FieldLogger
}

// flowError maps controller errors onto HTTP statuses.
func (h *Handler) flowError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orderflow.ErrValidation):
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Dữ liệu không hợp lệ", err)
	case errors.Is(err, orderflow.ErrOrderNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Không tìm thấy đơn hàng", err)
	case errors.Is(err, orderflow.ErrTableNotFound):
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Không tìm thấy bàn", err)
	case errors.Is(err, orderflow.ErrInvalidTransition):
		return utils.ErrorResponse(c, fiber.StatusConflict, "Trạng thái đơn hàng không cho phép thao tác này", err)
	case errors.Is(err, orderflow.ErrActiveOrderExists):
		return utils.ErrorResponse(c, fiber.StatusConflict, "Bạn đã có đơn hàng đang xử lý tại bàn này", err)
	}
	h.Log.WithError(err).WithField("path", c.Path()).Error("request failed")
	return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Lỗi hệ thống", err)
}
