package notify

import (
	"fmt"
	"restaurant_manager/model"
)

const FallbackLocale = "vi"

type Key string

const (
	OrderSubmitted         Key = "order_submitted"
	OrderChefApproved      Key = "order_chef_approved"
	OrderCashierApproved   Key = "order_cashier_approved"
	OrderConfirmed         Key = "order_confirmed"
	OrderReady             Key = "order_ready"
	OrderPaying            Key = "order_paying"
	OrderNeedsAttention    Key = "order_needs_attention"
	OrderAttentionResolved Key = "order_attention_resolved"
	OrderCompleted         Key = "order_completed"
	OrderCancelled         Key = "order_cancelled"
	OrderStatusChanged     Key = "order_status_changed"
	SyncFailed             Key = "sync_failed"
	SyncCompleted          Key = "sync_completed"
	WentOffline            Key = "went_offline"
	BackOnline             Key = "back_online"
)

type text struct{ title, description string }

type entry struct {
	severity Severity
	text     map[string]text
}

var catalog = map[Key]entry{
	OrderSubmitted: {SeveritySuccess, map[string]text{
		"vi": {"Đã gửi đơn", "Đơn hàng %s đang chờ bếp duyệt."},
		"en": {"Order sent", "Order %s is waiting for the kitchen to approve it."},
	}},
	OrderChefApproved: {SeverityInfo, map[string]text{
		"vi": {"Bếp đã duyệt", "Đơn hàng %s đang chờ thu ngân tính tiền."},
		"en": {"Approved by kitchen", "Order %s is waiting for the cashier."},
	}},
	OrderCashierApproved: {SeverityInfo, map[string]text{
		"vi": {"Thu ngân đã duyệt", "Đơn hàng %s có tổng cộng %.0fđ, vui lòng xác nhận."},
		"en": {"Bill prepared", "Order %s totals %.0f, please confirm."},
	}},
	OrderConfirmed: {SeveritySuccess, map[string]text{
		"vi": {"Đã xác nhận", "Đơn hàng %s đã được chuyển xuống bếp."},
		"en": {"Order confirmed", "Order %s has been sent to the kitchen."},
	}},
	OrderReady: {SeveritySuccess, map[string]text{
		"vi": {"Món đã sẵn sàng", "Đơn hàng %s đã sẵn sàng phục vụ."},
		"en": {"Order ready", "Order %s is ready to serve."},
	}},
	OrderPaying: {SeverityInfo, map[string]text{
		"vi": {"Yêu cầu thanh toán", "Đơn hàng %s đang chờ thanh toán."},
		"en": {"Bill requested", "Order %s is waiting for payment."},
	}},
	OrderNeedsAttention: {SeverityWarning, map[string]text{
		"vi": {"Gọi nhân viên", "Đơn hàng %s cần hỗ trợ."},
		"en": {"Attention requested", "Order %s needs a member of staff."},
	}},
	OrderAttentionResolved: {SeverityInfo, map[string]text{
		"vi": {"Đã hỗ trợ", "Đơn hàng %s đã được xử lý."},
		"en": {"Attention resolved", "Order %s has been looked after."},
	}},
	OrderCompleted: {SeveritySuccess, map[string]text{
		"vi": {"Hoàn tất", "Đơn hàng %s đã thanh toán xong."},
		"en": {"Completed", "Order %s has been paid."},
	}},
	OrderCancelled: {SeverityWarning, map[string]text{
		"vi": {"Đã hủy đơn", "Đơn hàng %s đã bị hủy."},
		"en": {"Order cancelled", "Order %s has been cancelled."},
	}},
	OrderStatusChanged: {SeverityInfo, map[string]text{
		"vi": {"Cập nhật đơn hàng", "Đơn hàng %s: %s → %s"},
		"en": {"Order updated", "Order %s: %s → %s"},
	}},
	SyncFailed: {SeverityError, map[string]text{
		"vi": {"Đồng bộ thất bại", "Còn %d thao tác chưa đồng bộ, sẽ thử lại sau."},
		"en": {"Sync failed", "%d changes are still waiting and will be retried."},
	}},
	SyncCompleted: {SeveritySuccess, map[string]text{
		"vi": {"Đã đồng bộ", "Đã gửi %d thao tác lên máy chủ."},
		"en": {"Synced", "%d changes reached the server."},
	}},
	WentOffline: {SeverityWarning, map[string]text{
		"vi": {"Mất kết nối", "Đang làm việc ngoại tuyến, thay đổi sẽ được đồng bộ khi có mạng."},
		"en": {"Offline", "Working offline, changes will sync when the connection returns."},
	}},
	BackOnline: {SeverityInfo, map[string]text{
		"vi": {"Đã kết nối lại", "Đang đồng bộ các thay đổi."},
		"en": {"Back online", "Syncing pending changes."},
	}},
}

var statusLabels = map[string]map[model.OrderStatus]string{
	"vi": {
		model.OrderPendingChefApproval:      "Chờ bếp duyệt",
		model.OrderPendingCashierApproval:   "Chờ thu ngân",
		model.OrderPendingFinalConfirmation: "Chờ khách xác nhận",
		model.OrderConfirmed:                "Đã xác nhận",
		model.OrderReady:                    "Sẵn sàng",
		model.OrderPaying:                   "Đang thanh toán",
		model.OrderNeedsAttention:           "Cần hỗ trợ",
		model.OrderCompleted:                "Hoàn tất",
		model.OrderCancelled:                "Đã hủy",
	},
	"en": {
		model.OrderPendingChefApproval:      "Waiting for kitchen",
		model.OrderPendingCashierApproval:   "Waiting for cashier",
		model.OrderPendingFinalConfirmation: "Waiting for customer",
		model.OrderConfirmed:                "Confirmed",
		model.OrderReady:                    "Ready",
		model.OrderPaying:                   "Paying",
		model.OrderNeedsAttention:           "Needs attention",
		model.OrderCompleted:                "Completed",
		model.OrderCancelled:                "Cancelled",
	},
}

func Message(locale string, key Key, args ...any) Notification {
	e, ok := catalog[key]
	if !ok {
		return Notification{Title: string(key), Severity: SeverityInfo}
	}
	t, ok := e.text[normalizeLocale(locale)]
	if !ok {
		t = e.text[FallbackLocale]
	}
	return Notification{
		Title:       t.title,
		Description: fmt.Sprintf(t.description, args...),
		Severity:    e.severity,
	}
}

func StatusLabel(locale string, s model.OrderStatus) string {
	labels, ok := statusLabels[normalizeLocale(locale)]
	if !ok {
		labels = statusLabels[FallbackLocale]
	}
	if label, ok := labels[s]; ok {
		return label
	}
	return string(s)
}
