package orderflow

import (
	"restaurant_manager/model"
	"restaurant_manager/notify"
)

type Action string

const (
	ActionChefApprove      Action = "chef_approve"
	ActionCashierApprove   Action = "cashier_approve"
	ActionConfirm          Action = "confirm"
	ActionReady            Action = "ready"
	ActionRequestBill      Action = "request_bill"
	ActionRequestAttention Action = "request_attention"
	ActionResolveAttention Action = "resolve_attention"
	ActionComplete         Action = "complete"
	ActionCancel           Action = "cancel"
)

type rule struct {
	// from lists the statuses the action may leave. Empty means every active status.
	from   []model.OrderStatus
	to     model.OrderStatus
	notice notify.Key
}

var rules = map[Action]rule{
	ActionChefApprove: {
		from:   []model.OrderStatus{model.OrderPendingChefApproval},
		to:     model.OrderPendingCashierApproval,
		notice: notify.OrderChefApproved,
	},
	ActionCashierApprove: {
		from:   []model.OrderStatus{model.OrderPendingCashierApproval},
		to:     model.OrderPendingFinalConfirmation,
		notice: notify.OrderCashierApproved,
	},
	ActionConfirm: {
		from:   []model.OrderStatus{model.OrderPendingFinalConfirmation},
		to:     model.OrderConfirmed,
		notice: notify.OrderConfirmed,
	},
	ActionReady: {
		from:   []model.OrderStatus{model.OrderConfirmed},
		to:     model.OrderReady,
		notice: notify.OrderReady,
	},
	ActionRequestBill: {
		from: []model.OrderStatus{
			model.OrderPendingChefApproval,
			model.OrderPendingCashierApproval,
			model.OrderPendingFinalConfirmation,
			model.OrderConfirmed,
			model.OrderReady,
			model.OrderNeedsAttention,
		},
		to:     model.OrderPaying,
		notice: notify.OrderPaying,
	},
	ActionRequestAttention: {
		from:   []model.OrderStatus{model.OrderConfirmed, model.OrderReady, model.OrderPaying},
		to:     model.OrderNeedsAttention,
		notice: notify.OrderNeedsAttention,
	},
	ActionResolveAttention: {
		from:   []model.OrderStatus{model.OrderNeedsAttention},
		notice: notify.OrderAttentionResolved,
	},
	ActionComplete: {to: model.OrderCompleted, notice: notify.OrderCompleted},
	ActionCancel:   {to: model.OrderCancelled, notice: notify.OrderCancelled},
}

func (r rule) allows(s model.OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if len(r.from) == 0 {
		return true
	}
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

// Permitted reports whether a may be applied to o. An order that needs attention still
// accepts whatever its previous status accepted.
func Permitted(a Action, o model.Order) bool {
	r, ok := rules[a]
	if !ok {
		return false
	}
	if r.allows(o.Status) {
		return true
	}
	return o.Status == model.OrderNeedsAttention &&
		a != ActionRequestAttention &&
		o.PreviousStatus != "" &&
		r.allows(o.PreviousStatus)
}

// target is the status o moves to under a.
func target(a Action, o model.Order) model.OrderStatus {
	if a == ActionResolveAttention {
		if o.PreviousStatus.Valid() && o.PreviousStatus != model.OrderNeedsAttention {
			return o.PreviousStatus
		}
		return model.OrderConfirmed
	}
	return rules[a].to
}
