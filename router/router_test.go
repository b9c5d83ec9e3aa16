package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"restaurant_manager/cache"
	"restaurant_manager/connectivity"
	"restaurant_manager/handler"
	"restaurant_manager/helper"
	"restaurant_manager/model"
	"restaurant_manager/notify"
	"restaurant_manager/orderflow"
	"restaurant_manager/remote"
	"restaurant_manager/syncer"
	"restaurant_manager/utils"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	app   *fiber.App
	token string
}

func openDB(t *testing.T, prefix string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+prefix+"_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// newApp serves the full route table over an offline device, so every change stays
// queued and ids stay temporary.
func newApp(t *testing.T) *testApp {
	t.Helper()
	t.Setenv("JWT_SECRET", "router-test-secret")
	log := logrus.New()
	log.SetOutput(io.Discard)

	backend := openDB(t, "backend")
	require.NoError(t, backend.AutoMigrate(&model.Table{}, &model.MenuItem{}, &model.Order{}))
	require.NoError(t, backend.Create(&[]model.Table{{UUID: "t1", Name: "Bàn 1"}, {UUID: "t2", Name: "Bàn 2"}}).Error)
	require.NoError(t, backend.Create(&[]model.MenuItem{
		{ID: "pho", Name: "Phở bò", Price: 45000, Category: "Món chính", Available: true},
		{ID: "che", Name: "Chè ba màu", Price: 15000, Category: "Tráng miệng", Available: false},
	}).Error)

	store, err := cache.New(openDB(t, "device"), log)
	require.NoError(t, err)
	client := remote.NewClient(backend, nil, log)
	monitor := connectivity.NewMonitor(false, log)
	hub := handler.NewHub(log)

	engine := syncer.New(store, client, monitor, notify.Discard{}, syncer.Options{Locale: "en"}, log)
	flow := orderflow.New(store, client, engine, hub, hub, orderflow.Options{Locale: "en"}, log)
	engine.SetReconciler(flow)
	t.Cleanup(engine.Wait)
	require.NoError(t, flow.Reconcile(context.Background()))

	app := fiber.New()
	SetupRoutes(app, &handler.Handler{Flow: flow, Sync: engine, Hub: hub, AppURL: "https://quan.example", Log: log}, utils.EN)

	token, err := helper.GenerateAccessToken(model.TokenClaim{AccountId: 1, Username: "thu-ngan"})
	require.NoError(t, err)
	return &testApp{app: app, token: token}
}

func (a *testApp) do(t *testing.T, method, path, session string, staff bool, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if session != "" {
		req.Header.Set("X-Session-Id", session)
	}
	if staff {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+a.token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

var cart = map[string]any{
	"table_uuid": "t1",
	"items":      []map[string]any{{"id": "pho", "quantity": 2}},
}

func TestStaffRoutesNeedToken(t *testing.T) {
	a := newApp(t)

	resp, _ := a.do(t, http.MethodGet, "/api/v1/tables", "", false, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, env := a.do(t, http.MethodGet, "/api/v1/tables", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.TableView](t, env.Data), 2)

	resp, _ = a.do(t, http.MethodPost, "/api/v1/orders/x/ready", "", false, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestCustomerRoutesNeedSession(t *testing.T) {
	a := newApp(t)

	resp, _ := a.do(t, http.MethodPost, "/api/v1/orders", "", false, cart)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	a := newApp(t)

	resp, env := a.do(t, http.MethodPost, "/api/v1/orders", "khach-1", false, cart)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, env.Data)
	assert.True(t, model.IsTempID(order.ID))
	assert.Equal(t, model.OrderPendingChefApproval, order.Status)
	assert.Equal(t, "khach-1", order.SessionID)
	assert.Equal(t, 90000.0, order.Subtotal)

	resp, _ = a.do(t, http.MethodPost, "/api/v1/orders", "khach-1", false, cart)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode, "one active order per session and table")

	base := "/api/v1/orders/" + order.ID

	resp, _ = a.do(t, http.MethodPost, base+"/ready", "", true, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, env = a.do(t, http.MethodPost, base+"/chef-approve", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.OrderPendingCashierApproval, decode[model.Order](t, env.Data).Status)

	resp, _ = a.do(t, http.MethodPost, base+"/cashier-approve", "", true, map[string]any{"service_charge": -1})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, env = a.do(t, http.MethodPost, base+"/cashier-approve", "", true, map[string]any{"service_charge": 5000, "tax": 9000})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	approved := decode[model.Order](t, env.Data)
	assert.Equal(t, model.OrderPendingFinalConfirmation, approved.Status)
	assert.Equal(t, 104000.0, approved.FinalTotal)

	resp, _ = a.do(t, http.MethodPost, base+"/confirm", "khach-khac", false, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "another diner cannot confirm")

	resp, env = a.do(t, http.MethodPost, base+"/confirm", "khach-1", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.OrderConfirmed, decode[model.Order](t, env.Data).Status)

	resp, env = a.do(t, http.MethodGet, "/api/v1/tables/t1/my-order", "khach-1", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, order.ID, decode[model.Order](t, env.Data).ID)

	resp, env = a.do(t, http.MethodGet, "/api/v1/tables/t1/my-order", "khach-khac", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "null", string(env.Data))

	resp, env = a.do(t, http.MethodPost, base+"/attention", "khach-1", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.OrderNeedsAttention, decode[model.Order](t, env.Data).Status)

	resp, env = a.do(t, http.MethodPost, base+"/resolve-attention", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.OrderConfirmed, decode[model.Order](t, env.Data).Status)

	resp, env = a.do(t, http.MethodPost, base+"/bill", "khach-1", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.OrderPaying, decode[model.Order](t, env.Data).Status)

	resp, env = a.do(t, http.MethodPost, base+"/complete", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, model.OrderCompleted, decode[model.Order](t, env.Data).Status)

	resp, env = a.do(t, http.MethodGet, "/api/v1/sync", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	status := decode[model.SyncStatus](t, env.Data)
	assert.False(t, status.Online)
	assert.NotEmpty(t, status.Pending)

	resp, env = a.do(t, http.MethodPost, "/api/v1/sync", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decode[model.SyncReport](t, env.Data).Skipped, "offline pass is skipped")
}

func TestPublicTableHidesOrders(t *testing.T) {
	a := newApp(t)

	resp, env := a.do(t, http.MethodPost, "/api/v1/orders", "khach-1", false, cart)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	order := decode[model.Order](t, env.Data)

	resp, env = a.do(t, http.MethodGet, "/api/v1/tables/t1", "", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotContains(t, string(env.Data), "khach-1")
	assert.NotContains(t, string(env.Data), "session_id")
	assert.NotContains(t, string(env.Data), order.ID)
	fields := decode[map[string]any](t, env.Data)
	assert.Equal(t, "t1", fields["uuid"])
	assert.NotContains(t, fields, "order")

	resp, _ = a.do(t, http.MethodGet, "/api/v1/tables/t1/view", "", false, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, env = a.do(t, http.MethodGet, "/api/v1/tables/t1/view", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	view := decode[model.TableView](t, env.Data)
	assert.Equal(t, model.TableNewOrder, view.Status)
	require.NotNil(t, view.Order)
	assert.Equal(t, order.ID, view.Order.ID)
}

func TestOrderErrors(t *testing.T) {
	a := newApp(t)

	resp, _ := a.do(t, http.MethodGet, "/api/v1/orders/khong-co", "", true, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/v1/orders?status=dancing", "", true, nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPost, "/api/v1/orders", "khach-1", false, map[string]any{
		"table_uuid": "t1",
		"items":      []map[string]any{{"id": "che", "quantity": 1}},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "unavailable item")

	resp, _ = a.do(t, http.MethodPost, "/api/v1/orders", "khach-1", false, map[string]any{
		"table_uuid": "t9",
		"items":      []map[string]any{{"id": "pho", "quantity": 1}},
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "unknown table")
}

func TestOrderFilters(t *testing.T) {
	a := newApp(t)

	resp, _ := a.do(t, http.MethodPost, "/api/v1/orders", "khach-1", false, cart)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp, env := a.do(t, http.MethodGet, "/api/v1/orders?status=pending_chef_approval", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Order](t, env.Data), 1)

	resp, env = a.do(t, http.MethodGet, "/api/v1/orders?table=t2", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]model.Order](t, env.Data))
}

func TestMenuAndQR(t *testing.T) {
	a := newApp(t)

	resp, env := a.do(t, http.MethodGet, "/api/v1/menu", "", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]helper.MenuSection](t, env.Data), 2)

	resp, env = a.do(t, http.MethodGet, "/api/v1/menu?available=true", "", false, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	sections := decode[[]helper.MenuSection](t, env.Data)
	require.Len(t, sections, 1)
	assert.Equal(t, "mon-chinh", sections[0].Slug)

	resp, _ = a.do(t, http.MethodGet, "/api/v1/tables/t1/qr", "", true, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	png, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	resp, _ = a.do(t, http.MethodGet, "/api/v1/tables/t9/qr", "", true, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestWebsocketRejectsPlainHTTP(t *testing.T) {
	a := newApp(t)

	resp, _ := a.do(t, http.MethodGet, "/ws/tables", "", true, nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
