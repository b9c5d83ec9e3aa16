// Package projection derives what the floor dashboards show for each table.
package projection

import (
	"restaurant_manager/model"
	"sort"
)

var statusByOrder = map[model.OrderStatus]model.TableStatus{
	model.OrderPendingChefApproval:      model.TableNewOrder,
	model.OrderPendingCashierApproval:   model.TablePendingCashierApproval,
	model.OrderPendingFinalConfirmation: model.TableAwaitingFinalConfirmation,
	model.OrderConfirmed:                model.TableConfirmed,
	model.OrderReady:                    model.TableReady,
	model.OrderPaying:                   model.TablePaying,
	model.OrderNeedsAttention:           model.TableNeedsAttention,
}

// Lower rank surfaces first.
var priority = map[model.TableStatus]int{
	model.TableNeedsAttention:            0,
	model.TableNewOrder:                  1,
	model.TablePendingCashierApproval:    2,
	model.TableAwaitingFinalConfirmation: 3,
	model.TableReady:                     4,
	model.TablePaying:                    5,
	model.TableConfirmed:                 6,
	model.TableOccupied:                  7,
	model.TableAvailable:                 8,
}

func TableStatusFor(s model.OrderStatus) model.TableStatus {
	if ts, ok := statusByOrder[s]; ok {
		return ts
	}
	return model.TableOccupied
}

func Rank(s model.TableStatus) int {
	if r, ok := priority[s]; ok {
		return r
	}
	return len(priority)
}

// DeriveTables maps the roster and the orders to one view per table, most urgent first.
// Tables without an active order are available. When two active orders claim the same
// table the one created last wins; equal creation times fall back to input order.
// Inputs are not modified.
func DeriveTables(tables []model.Table, orders []model.Order) []model.TableView {
	views := make([]model.TableView, len(tables))
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		views[i] = model.TableView{Table: t, Status: model.TableAvailable}
		index[t.UUID] = i
	}

	for _, o := range orders {
		if !o.Status.IsActive() {
			continue
		}
		i, ok := index[o.TableUUID]
		if !ok {
			continue
		}
		if cur := views[i].Order; cur != nil && cur.CreatedAt.After(o.CreatedAt) {
			continue
		}
		order := o
		created := o.CreatedAt
		views[i].Order = &order
		views[i].Status = TableStatusFor(o.Status)
		views[i].SeatedSince = &created
	}

	sort.SliceStable(views, func(a, b int) bool {
		ra, rb := Rank(views[a].Status), Rank(views[b].Status)
		if ra != rb {
			return ra < rb
		}
		return views[a].ID < views[b].ID
	})
	return views
}
