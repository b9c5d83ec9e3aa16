package handler

import (
	"errors"
	"restaurant_manager/helper"
	"restaurant_manager/model"
	"restaurant_manager/orderflow"
	"restaurant_manager/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func (h *Handler) GetOrders(c *fiber.Ctx) error {
	status, _ := c.Locals("statusFilter").(model.OrderStatus)
	table := c.Query("table")

	orders := []model.Order{}
	for _, o := range h.Flow.Orders() {
		if status != "" && o.Status != status {
			continue
		}
		if table != "" && o.TableUUID != table {
			continue
		}
		orders = append(orders, o)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, orders)
}

func (h *Handler) GetOrderById(c *fiber.Ctx) error {
	order, err := h.Flow.Order(c.Locals("inputId").(string))
	if err != nil {
		return h.flowError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusOK, order)
}

func (h *Handler) SubmitOrder(c *fiber.Ctx) error {
	input := c.Locals("input").(model.SubmitOrderInput)
	order, err := h.Flow.SubmitOrder(c.UserContext(), input)
	if err != nil {
		return h.flowError(c, err)
	}
	return utils.SuccessResponse(c, fiber.StatusCreated, order)
}

func (h *Handler) CashierApproveOrder(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CashierApprovalInput)
	order, err := h.Flow.ApproveOrderByCashier(c.UserContext(), c.Locals("inputId").(string), input)
	if err != nil {
		return h.flowError(c, err)
	}
	h.audit(c, orderflow.ActionCashierApprove, order)
	return utils.SuccessResponse(c, fiber.StatusOK, order)
}

// StaffOrderAction runs action a on the order in the route.
func (h *Handler) StaffOrderAction(a orderflow.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		order, err := h.Flow.Do(c.UserContext(), a, c.Locals("inputId").(string))
		if err != nil {
			return h.flowError(c, err)
		}
		h.audit(c, a, order)
		return utils.SuccessResponse(c, fiber.StatusOK, order)
	}
}

// CustomerOrderAction is StaffOrderAction for diners: the order must belong to the
// caller's session.
func (h *Handler) CustomerOrderAction(a orderflow.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Locals("inputId").(string)
		order, err := h.Flow.Order(id)
		if err != nil {
			return h.flowError(c, err)
		}
		if order.SessionID != c.Locals("sessionId").(string) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Đơn hàng không thuộc phiên của bạn", errors.New("session mismatch"))
		}
		order, err = h.Flow.Do(c.UserContext(), a, id)
		if err != nil {
			return h.flowError(c, err)
		}
		return utils.SuccessResponse(c, fiber.StatusOK, order)
	}
}

// GetMyOrder returns the caller's active order at the table in the route, or null.
func (h *Handler) GetMyOrder(c *fiber.Ctx) error {
	table := c.Locals("inputId").(string)
	session := c.Locals("sessionId").(string)
	if _, err := h.Flow.Table(table); err != nil {
		return h.flowError(c, err)
	}
	for _, o := range h.Flow.Orders() {
		if o.TableUUID == table && o.SessionID == session && o.Status.IsActive() {
			return utils.SuccessResponse(c, fiber.StatusOK, o)
		}
	}
	return utils.SuccessResponse(c, fiber.StatusOK, nil)
}

func (h *Handler) audit(c *fiber.Ctx, a orderflow.Action, order model.Order) {
	staff, err := helper.GetStaffFromToken(c)
	if err != nil {
		return
	}
	h.Log.WithFields(logrus.Fields{
		"staff":  staff.Username,
		"action": a,
		"order":  helper.ShortOrderID(order.ID),
		"status": order.Status,
	}).Info("staff action")
}
