// Package orderflow owns the in-memory orders, tables and menu, applies every order
// action as an optimistic local write and queues it for the backend.
package orderflow

import (
	"context"
	"errors"
	"fmt"
	"restaurant_manager/helper"
	"restaurant_manager/model"
	"restaurant_manager/notify"
	"restaurant_manager/projection"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/copier"
	"github.com/sirupsen/logrus"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrInvalidTransition = errors.New("action not allowed in current status")
	ErrValidation        = errors.New("invalid input")
	ErrActiveOrderExists = errors.New("session already has an active order at this table")
)

type Store interface {
	Orders() []model.Order
	Tables() []model.Table
	MenuItems() []model.MenuItem
	PutOrder(o model.Order)
	ReplaceOrders(orders []model.Order)
	ReplaceTables(tables []model.Table)
	ReplaceMenuItems(items []model.MenuItem)
	Enqueue(op model.PendingOperation) model.PendingOperation
	ListQueue() []model.PendingOperation
	ResolveAlias(id string) string
}

type Fetcher interface {
	FetchAll(ctx context.Context, r model.Resource, dest any) error
}

type Syncer interface {
	RequestSync(ctx context.Context)
}

// ViewSink receives the derived table list every time it changes. It must not block.
type ViewSink interface {
	PublishTables(views []model.TableView)
}

type Options struct {
	Locale string
	Now    func() time.Time
}

type Controller struct {
	mu     sync.Mutex
	orders []model.Order
	tables []model.Table
	menu   []model.MenuItem
	views  []model.TableView

	store    Store
	remote   Fetcher
	syncer   Syncer
	sink     notify.Sink
	viewSink ViewSink
	validate *validator.Validate
	now      func() time.Time
	locale   string
	log      logrus.FieldLogger
}

func New(store Store, remote Fetcher, syncer Syncer, sink notify.Sink, views ViewSink, opts Options, log logrus.FieldLogger) *Controller {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if sink == nil {
		sink = notify.Discard{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locale == "" {
		opts.Locale = notify.FallbackLocale
	}
	return &Controller{
		store:    store,
		remote:   remote,
		syncer:   syncer,
		sink:     sink,
		viewSink: views,
		validate: validator.New(),
		now:      opts.Now,
		locale:   opts.Locale,
		log:      log.WithField("component", "orderflow"),
	}
}

// Load fills memory from the local cache, so the floor works before the backend answers.
func (c *Controller) Load() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = c.store.Orders()
	c.tables = c.store.Tables()
	c.menu = c.store.MenuItems()
	c.refreshViews()
	c.log.WithFields(logrus.Fields{
		"orders": len(c.orders),
		"tables": len(c.tables),
		"menu":   len(c.menu),
	}).Info("state loaded from local cache")
}

// phải giữ mu
func (c *Controller) refreshViews() {
	c.views = projection.DeriveTables(c.tables, c.orders)
	if c.viewSink != nil {
		c.viewSink.PublishTables(cloneViews(c.views))
	}
}

func cloneViews(v []model.TableView) []model.TableView {
	out := make([]model.TableView, len(v))
	copy(out, v)
	return out
}

// Tìm theo id, id tạm thì tra qua alias
func (c *Controller) indexOf(id string) int {
	for i := range c.orders {
		if c.orders[i].ID == id {
			return i
		}
	}
	if model.IsTempID(id) {
		if resolved := c.store.ResolveAlias(id); resolved != id {
			return c.indexOf(resolved)
		}
	}
	return -1
}

func (c *Controller) SubmitOrder(ctx context.Context, in model.SubmitOrderInput) (model.Order, error) {
	if err := c.validate.Struct(in); err != nil {
		return model.Order{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	c.mu.Lock()
	order, err := c.submitLocked(in)
	c.mu.Unlock()
	if err != nil {
		return model.Order{}, err
	}

	c.syncer.RequestSync(ctx)
	c.sink.Notify(notify.Message(notify.LocaleFrom(ctx, c.locale), notify.OrderSubmitted, helper.ShortOrderID(order.ID)))
	return order, nil
}

func (c *Controller) submitLocked(in model.SubmitOrderInput) (model.Order, error) {
	var table *model.Table
	for i := range c.tables {
		if c.tables[i].UUID == in.TableUUID {
			table = &c.tables[i]
			break
		}
	}
	if table == nil && len(c.tables) > 0 {
		return model.Order{}, fmt.Errorf("%w: unknown table %s", ErrValidation, in.TableUUID)
	}

	for _, o := range c.orders {
		if o.TableUUID == in.TableUUID && o.SessionID == in.SessionID && o.Status.IsActive() {
			return model.Order{}, fmt.Errorf("%w: order %s", ErrActiveOrderExists, o.ID)
		}
	}

	catalog := make(map[string]model.MenuItem, len(c.menu))
	for _, m := range c.menu {
		catalog[m.ID] = m
	}
	for _, item := range in.Items {
		if m, ok := catalog[item.ID]; ok && !m.Available {
			return model.Order{}, fmt.Errorf("%w: %s is not available", ErrValidation, m.Name)
		}
	}

	var order model.Order
	if err := copier.Copy(&order, &in); err != nil {
		return model.Order{}, fmt.Errorf("build order: %w", err)
	}
	now := c.now()
	order.ID = model.NewTempID()
	order.Items = helper.CapturePrices(in.Items, catalog)
	order.Subtotal = helper.CalculateSubtotal(order.Items)
	order.ServiceCharge = 0
	order.Tax = 0
	order.FinalTotal = order.Subtotal
	order.Status = model.OrderPendingChefApproval
	order.CreatedAt = now
	order.UpdatedAt = now
	if table != nil {
		order.TableID = table.ID
	}

	op, err := model.NewOperation(model.OpInsert, model.ResourceOrders, order)
	if err != nil {
		return model.Order{}, fmt.Errorf("queue order: %w", err)
	}
	c.orders = append(c.orders, order)
	c.store.PutOrder(order)
	c.store.Enqueue(op)
	c.refreshViews()

	c.log.WithFields(logrus.Fields{"order": order.ID, "table": order.TableUUID}).Info("order submitted")
	return order, nil
}

func (c *Controller) ApproveOrderByChef(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionChefApprove, func(o model.Order, now time.Time) map[string]any {
		return map[string]any{"chef_approved_at": now}
	})
}

func (c *Controller) ApproveOrderByCashier(ctx context.Context, id string, in model.CashierApprovalInput) (model.Order, error) {
	if err := c.validate.Struct(in); err != nil {
		return model.Order{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return c.apply(ctx, id, ActionCashierApprove, func(o model.Order, now time.Time) map[string]any {
		return map[string]any{
			"service_charge":      in.ServiceCharge,
			"tax":                 in.Tax,
			"final_total":         helper.CalculateFinalTotal(o.Subtotal, in.ServiceCharge, in.Tax),
			"cashier_approved_at": now,
		}
	})
}

func (c *Controller) ConfirmFinalOrder(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionConfirm, func(o model.Order, now time.Time) map[string]any {
		return map[string]any{"customer_confirmed_at": now}
	})
}

func (c *Controller) ConfirmOrderReady(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionReady, nil)
}

func (c *Controller) RequestBill(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionRequestBill, nil)
}

func (c *Controller) RequestAttention(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionRequestAttention, func(o model.Order, _ time.Time) map[string]any {
		return map[string]any{"previous_status": o.Status}
	})
}

func (c *Controller) ResolveAttention(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionResolveAttention, nil)
}

func (c *Controller) CompleteOrder(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionComplete, func(o model.Order, now time.Time) map[string]any {
		return map[string]any{"completed_at": now}
	})
}

func (c *Controller) CancelOrder(ctx context.Context, id string) (model.Order, error) {
	return c.apply(ctx, id, ActionCancel, func(o model.Order, now time.Time) map[string]any {
		return map[string]any{"cancelled_at": now}
	})
}

// Do runs an action by name. Cashier approval needs charges and goes through
// ApproveOrderByCashier.
func (c *Controller) Do(ctx context.Context, a Action, id string) (model.Order, error) {
	switch a {
	case ActionChefApprove:
		return c.ApproveOrderByChef(ctx, id)
	case ActionConfirm:
		return c.ConfirmFinalOrder(ctx, id)
	case ActionReady:
		return c.ConfirmOrderReady(ctx, id)
	case ActionRequestBill:
		return c.RequestBill(ctx, id)
	case ActionRequestAttention:
		return c.RequestAttention(ctx, id)
	case ActionResolveAttention:
		return c.ResolveAttention(ctx, id)
	case ActionComplete:
		return c.CompleteOrder(ctx, id)
	case ActionCancel:
		return c.CancelOrder(ctx, id)
	}
	return model.Order{}, fmt.Errorf("%w: unsupported action %q", ErrValidation, a)
}

type patchFunc func(o model.Order, now time.Time) map[string]any

// apply moves order id through action a. The merged record is cached and an update
// carrying only the changed fields is queued before the lock is released.
func (c *Controller) apply(ctx context.Context, id string, a Action, extra patchFunc) (model.Order, error) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	prev := c.orders[i]
	if !Permitted(a, prev) {
		c.mu.Unlock()
		return model.Order{}, fmt.Errorf("%w: cannot %s order in %s", ErrInvalidTransition, a, prev.Status)
	}

	now := c.now()
	to := target(a, prev)
	fields := map[string]any{}
	if extra != nil {
		fields = extra(prev, now)
	}
	fields["status"] = to
	fields["updated_at"] = now
	if prev.Status == model.OrderNeedsAttention && to != model.OrderNeedsAttention {
		fields["previous_status"] = ""
	}

	next, err := prev.Merge(fields)
	if err != nil {
		c.mu.Unlock()
		return model.Order{}, fmt.Errorf("merge order %s: %w", id, err)
	}
	fields["id"] = next.ID
	op, err := model.NewOperation(model.OpUpdate, model.ResourceOrders, fields)
	if err != nil {
		c.mu.Unlock()
		return model.Order{}, fmt.Errorf("queue order %s: %w", id, err)
	}

	c.orders[i] = next
	c.store.PutOrder(next)
	c.store.Enqueue(op)
	c.refreshViews()
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{"order": next.ID, "from": prev.Status, "to": next.Status}).Info("order transition")
	c.syncer.RequestSync(ctx)
	c.sink.Notify(c.notice(ctx, a, next))
	return next, nil
}

func (c *Controller) notice(ctx context.Context, a Action, o model.Order) notify.Notification {
	locale := notify.LocaleFrom(ctx, c.locale)
	if a == ActionCashierApprove {
		return notify.Message(locale, notify.OrderCashierApproved, helper.ShortOrderID(o.ID), o.FinalTotal)
	}
	return notify.Message(locale, rules[a].notice, helper.ShortOrderID(o.ID))
}

func (c *Controller) Tables() []model.TableView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneViews(c.views)
}

func (c *Controller) Table(uuid string) (model.TableView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.views {
		if v.UUID == uuid {
			return v, nil
		}
	}
	return model.TableView{}, fmt.Errorf("%w: %s", ErrTableNotFound, uuid)
}

func (c *Controller) Orders() []model.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Order, len(c.orders))
	copy(out, c.orders)
	return out
}

func (c *Controller) Order(id string) (model.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return model.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return c.orders[i], nil
}

func (c *Controller) MenuItems() []model.MenuItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.MenuItem, len(c.menu))
	copy(out, c.menu)
	return out
}
