package projection

import (
	"restaurant_manager/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roster() []model.Table {
	return []model.Table{
		{ID: 1, UUID: "t1"},
		{ID: 2, UUID: "t2"},
		{ID: 3, UUID: "t3"},
		{ID: 4, UUID: "t4"},
	}
}

func byUUID(views []model.TableView) map[string]model.TableView {
	out := map[string]model.TableView{}
	for _, v := range views {
		out[v.UUID] = v
	}
	return out
}

func TestDeriveTablesDefaultsToAvailable(t *testing.T) {
	views := DeriveTables(roster(), nil)
	require.Len(t, views, 4)
	for i, v := range views {
		assert.Equal(t, model.TableAvailable, v.Status)
		assert.Nil(t, v.Order)
		assert.Equal(t, uint(i+1), v.ID)
	}
}

func TestDeriveTablesStatusMapping(t *testing.T) {
	cases := map[model.OrderStatus]model.TableStatus{
		model.OrderPendingChefApproval:      model.TableNewOrder,
		model.OrderPendingCashierApproval:   model.TablePendingCashierApproval,
		model.OrderPendingFinalConfirmation: model.TableAwaitingFinalConfirmation,
		model.OrderConfirmed:                model.TableConfirmed,
		model.OrderReady:                    model.TableReady,
		model.OrderPaying:                   model.TablePaying,
		model.OrderNeedsAttention:           model.TableNeedsAttention,
		model.OrderStatus("legacy_status"):  model.TableOccupied,
		model.OrderCompleted:                model.TableAvailable,
		model.OrderCancelled:                model.TableAvailable,
	}
	for status, want := range cases {
		t.Run(string(status), func(t *testing.T) {
			views := DeriveTables(roster(), []model.Order{{ID: "o", TableUUID: "t2", Status: status}})
			assert.Equal(t, want, byUUID(views)["t2"].Status)
		})
	}
}

func TestDeriveTablesPriorityOrder(t *testing.T) {
	orders := []model.Order{
		{ID: "a", TableUUID: "t1", Status: model.OrderConfirmed},
		{ID: "b", TableUUID: "t3", Status: model.OrderNeedsAttention},
		{ID: "c", TableUUID: "t4", Status: model.OrderPendingChefApproval},
	}
	views := DeriveTables(roster(), orders)

	var got []string
	for _, v := range views {
		got = append(got, v.UUID)
	}
	assert.Equal(t, []string{"t3", "t4", "t1", "t2"}, got)
}

func TestDeriveTablesIgnoresUnknownTables(t *testing.T) {
	views := DeriveTables(roster(), []model.Order{{ID: "x", TableUUID: "nope", Status: model.OrderReady}})
	for _, v := range views {
		assert.Equal(t, model.TableAvailable, v.Status)
	}
}

func TestDeriveTablesLatestOrderWins(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	newer := model.Order{ID: "new", TableUUID: "t1", Status: model.OrderReady, CreatedAt: now}
	older := model.Order{ID: "old", TableUUID: "t1", Status: model.OrderConfirmed, CreatedAt: now.Add(-time.Hour)}

	for _, orders := range [][]model.Order{{newer, older}, {older, newer}} {
		v := byUUID(DeriveTables(roster(), orders))["t1"]
		require.NotNil(t, v.Order)
		assert.Equal(t, "new", v.Order.ID)
		assert.Equal(t, model.TableReady, v.Status)
	}

	tieA := model.Order{ID: "a", TableUUID: "t1", Status: model.OrderReady, CreatedAt: now}
	tieB := model.Order{ID: "b", TableUUID: "t1", Status: model.OrderPaying, CreatedAt: now}
	v := byUUID(DeriveTables(roster(), []model.Order{tieA, tieB}))["t1"]
	assert.Equal(t, "b", v.Order.ID)
}

func TestDeriveTablesIsDeterministic(t *testing.T) {
	orders := []model.Order{
		{ID: "a", TableUUID: "t1", Status: model.OrderPaying},
		{ID: "b", TableUUID: "t2", Status: model.OrderPaying},
		{ID: "c", TableUUID: "t3", Status: model.OrderCancelled},
	}
	tables := roster()

	first := DeriveTables(tables, orders)
	second := DeriveTables(tables, orders)
	assert.Equal(t, first, second)
	assert.Equal(t, roster(), tables, "input roster is untouched")
}
