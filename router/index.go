package router

import (
	"restaurant_manager/handler"
	"restaurant_manager/middleware"
	"restaurant_manager/orderflow"
	"restaurant_manager/utils"
	"restaurant_manager/validate"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func SetupRoutes(app *fiber.App, h *handler.Handler, locale utils.LanguageType) {
	api := app.Group("/api", logger.New())
	v1 := api.Group("/v1", middleware.Locale(locale))

	table := v1.Group("/tables")
	table.Get("/", middleware.Protected(), h.GetTables)
	table.Get("/:uuid", validate.GetByKey("uuid"), h.GetTableByUUID)
	table.Get("/:uuid/view", middleware.Protected(), validate.GetByKey("uuid"), h.GetTableView)
	table.Get("/:uuid/qr", middleware.Protected(), validate.GetByKey("uuid"), h.GetTableQR)
	table.Get("/:uuid/my-order", middleware.SessionRequired(), validate.GetByKey("uuid"), h.GetMyOrder)

	v1.Get("/menu", h.GetMenu)

	order := v1.Group("/orders")
	order.Post("/", middleware.SessionRequired(), validate.SubmitOrder(), h.SubmitOrder)
	order.Get("/", middleware.Protected(), validate.OrderFilter(), h.GetOrders)
	order.Get("/:orderId", middleware.Protected(), validate.GetByKey("orderId"), h.GetOrderById)

	// Diner actions on their own order.
	order.Post("/:orderId/confirm", middleware.SessionRequired(), validate.GetByKey("orderId"), h.CustomerOrderAction(orderflow.ActionConfirm))
	order.Post("/:orderId/bill", middleware.SessionRequired(), validate.GetByKey("orderId"), h.CustomerOrderAction(orderflow.ActionRequestBill))
	order.Post("/:orderId/attention", middleware.SessionRequired(), validate.GetByKey("orderId"), h.CustomerOrderAction(orderflow.ActionRequestAttention))

	// Staff actions.
	order.Post("/:orderId/chef-approve", middleware.Protected(), validate.GetByKey("orderId"), h.StaffOrderAction(orderflow.ActionChefApprove))
	order.Post("/:orderId/cashier-approve", middleware.Protected(), validate.GetByKey("orderId"), validate.CashierApproval(), h.CashierApproveOrder)
	order.Post("/:orderId/ready", middleware.Protected(), validate.GetByKey("orderId"), h.StaffOrderAction(orderflow.ActionReady))
	order.Post("/:orderId/resolve-attention", middleware.Protected(), validate.GetByKey("orderId"), h.StaffOrderAction(orderflow.ActionResolveAttention))
	order.Post("/:orderId/complete", middleware.Protected(), validate.GetByKey("orderId"), h.StaffOrderAction(orderflow.ActionComplete))
	order.Post("/:orderId/cancel", middleware.Protected(), validate.GetByKey("orderId"), h.StaffOrderAction(orderflow.ActionCancel))

	sync := v1.Group("/sync", middleware.Protected())
	sync.Get("/", h.GetSyncStatus)
	sync.Post("/", h.TriggerSync)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tables", middleware.Protected(), websocket.New(h.Hub.TablesWebsocket))
}
