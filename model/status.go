package model

type OrderStatus string

const (
	OrderPendingChefApproval      OrderStatus = "pending_chef_approval"
	OrderPendingCashierApproval   OrderStatus = "pending_cashier_approval"
	OrderPendingFinalConfirmation OrderStatus = "pending_final_confirmation"
	OrderConfirmed                OrderStatus = "confirmed"
	OrderReady                    OrderStatus = "ready"
	OrderPaying                   OrderStatus = "paying"
	OrderNeedsAttention           OrderStatus = "needs_attention"
	OrderCompleted                OrderStatus = "completed"
	OrderCancelled                OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderPendingChefApproval,
	OrderPendingCashierApproval,
	OrderPendingFinalConfirmation,
	OrderConfirmed,
	OrderReady,
	OrderPaying,
	OrderNeedsAttention,
	OrderCompleted,
	OrderCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// IsActive is the complement of IsTerminal. Unknown statuses count as active so the
// table they sit on is never shown as free.
func (s OrderStatus) IsActive() bool {
	return !s.IsTerminal()
}

// Charged reports whether the cashier has priced the order, i.e. service charge and tax
// are part of final_total from this status on.
func (s OrderStatus) Charged() bool {
	switch s {
	case OrderPendingChefApproval, OrderPendingCashierApproval:
		return false
	}
	return true
}

type TableStatus string

const (
	TableAvailable                 TableStatus = "available"
	TableNewOrder                  TableStatus = "new_order"
	TablePendingCashierApproval    TableStatus = "pending_cashier_approval"
	TableAwaitingFinalConfirmation TableStatus = "awaiting_final_confirmation"
	TableConfirmed                 TableStatus = "confirmed"
	TableReady                     TableStatus = "ready"
	TablePaying                    TableStatus = "paying"
	TableNeedsAttention            TableStatus = "needs_attention"
	TableOccupied                  TableStatus = "occupied"
)
