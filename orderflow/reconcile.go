package orderflow

import (
	"context"
	"fmt"
	"restaurant_manager/model"

	"github.com/sirupsen/logrus"
)

// Reconcile replaces local state with the backend's copy. Operations still waiting in the
// queue are laid over the fetched orders so optimistic changes stay visible until they
// are replayed. A failed fetch leaves local state alone.
func (c *Controller) Reconcile(ctx context.Context) error {
	var (
		orders []model.Order
		tables []model.Table
		menu   []model.MenuItem
	)
	if err := c.remote.FetchAll(ctx, model.ResourceOrders, &orders); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if err := c.remote.FetchAll(ctx, model.ResourceTables, &tables); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if err := c.remote.FetchAll(ctx, model.ResourceMenuItems, &menu); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	orders = overlayQueue(orders, c.store.ListQueue(), c.store.ResolveAlias, c.log)
	c.store.ReplaceOrders(orders)
	c.store.ReplaceTables(tables)
	c.store.ReplaceMenuItems(menu)
	c.orders = orders
	c.tables = tables
	c.menu = menu
	c.refreshViews()

	c.log.WithFields(logrus.Fields{
		"orders": len(orders),
		"tables": len(tables),
		"menu":   len(menu),
	}).Debug("reconciled with backend")
	return nil
}

// overlayQueue applies queued order operations, oldest first, on top of fetched orders.
// A queued insert whose temporary record already has a fetched counterpart in the same
// slot (table, session, status) is dropped. The result depends only on its inputs.
func overlayQueue(orders []model.Order, queue []model.PendingOperation, resolve func(string) string, log logrus.FieldLogger) []model.Order {
	out := make([]model.Order, 0, len(orders))
	out = append(out, orders...)

	find := func(id string) int {
		for i := range out {
			if out[i].ID == id {
				return i
			}
		}
		return -1
	}
	locate := func(id string) int {
		if i := find(id); i >= 0 {
			return i
		}
		if model.IsTempID(id) {
			return find(resolve(id))
		}
		return -1
	}

	for _, op := range queue {
		if op.Resource != model.ResourceOrders {
			continue
		}
		fields, err := op.Fields()
		if err != nil {
			log.WithError(err).WithField("operation", op.ID).Warn("skip unreadable queued operation")
			continue
		}
		switch op.Kind {
		case model.OpInsert:
			o, err := model.Order{}.Merge(fields)
			if err != nil {
				log.WithError(err).WithField("operation", op.ID).Warn("skip unreadable queued insert")
				continue
			}
			if locate(o.ID) >= 0 || superseded(o, orders) {
				continue
			}
			out = append(out, o)
		case model.OpUpdate:
			id, _ := fields["id"].(string)
			i := locate(id)
			if i < 0 {
				continue
			}
			delete(fields, "id")
			merged, err := out[i].Merge(fields)
			if err != nil {
				log.WithError(err).WithField("operation", op.ID).Warn("skip unreadable queued update")
				continue
			}
			out[i] = merged
		case model.OpDelete:
			id, _ := fields["id"].(string)
			if i := locate(id); i >= 0 {
				out = append(out[:i], out[i+1:]...)
			}
		}
	}
	return out
}

func superseded(temp model.Order, fetched []model.Order) bool {
	if !model.IsTempID(temp.ID) {
		return false
	}
	for _, o := range fetched {
		if !model.IsTempID(o.ID) && o.SameSlot(temp) {
			return true
		}
	}
	return false
}
