package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"restaurant_manager/cache"
	"restaurant_manager/connectivity"
	"restaurant_manager/model"
	"restaurant_manager/notify"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type call struct {
	kind     model.OperationKind
	resource model.Resource
	key      string
	payload  map[string]any
}

type fakeGateway struct {
	mu      sync.Mutex
	calls   []call
	failKey string
	block   chan struct{}
}

func (g *fakeGateway) record(kind model.OperationKind, r model.Resource, key string, payload []byte) error {
	if g.block != nil {
		<-g.block
	}
	fields := map[string]any{}
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &fields)
	}
	if key == "" {
		key = fmt.Sprint(fields[r.KeyField()])
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{kind: kind, resource: r, key: key, payload: fields})
	if g.failKey != "" && key == g.failKey {
		return errors.New("503 service unavailable")
	}
	return nil
}

func (g *fakeGateway) Insert(_ context.Context, r model.Resource, payload []byte) ([]byte, error) {
	if err := g.record(model.OpInsert, r, "", payload); err != nil {
		return nil, err
	}
	fields := map[string]any{}
	_ = json.Unmarshal(payload, &fields)
	if id, ok := fields["id"].(string); ok && model.IsTempID(id) {
		fields["id"] = "srv-" + strings.TrimPrefix(id, model.TempIDPrefix)
	}
	return json.Marshal(fields)
}

func (g *fakeGateway) Update(_ context.Context, r model.Resource, key string, payload []byte) ([]byte, error) {
	return payload, g.record(model.OpUpdate, r, key, payload)
}

func (g *fakeGateway) Delete(_ context.Context, r model.Resource, key string) error {
	return g.record(model.OpDelete, r, key, nil)
}

func (g *fakeGateway) keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.key)
	}
	return out
}

type recorder struct {
	mu  sync.Mutex
	got []notify.Notification
}

func (r *recorder) Notify(n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.got {
		out = append(out, n.Title)
	}
	return out
}

type countingReconciler struct {
	mu    sync.Mutex
	calls int
}

func (c *countingReconciler) Reconcile(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingReconciler) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newQueue(t *testing.T) *cache.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:sync_"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	s, err := cache.New(db, quiet())
	require.NoError(t, err)
	return s
}

func enqueue(t *testing.T, s *cache.Store, kind model.OperationKind, r model.Resource, payload any) model.PendingOperation {
	t.Helper()
	op, err := model.NewOperation(kind, r, payload)
	require.NoError(t, err)
	op = s.Enqueue(op)
	require.NotZero(t, op.ID)
	return op
}

type fixture struct {
	queue   *cache.Store
	gateway *fakeGateway
	conn    *connectivity.Monitor
	sink    *recorder
	rec     *countingReconciler
	engine  *Engine
}

func newFixture(t *testing.T, online bool) *fixture {
	f := &fixture{
		queue:   newQueue(t),
		gateway: &fakeGateway{},
		conn:    connectivity.NewMonitor(online, quiet()),
		sink:    &recorder{},
		rec:     &countingReconciler{},
	}
	f.engine = New(f.queue, f.gateway, f.conn, f.sink, Options{Locale: "en"}, quiet())
	f.engine.SetReconciler(f.rec)
	return f
}

func TestSyncStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t, true)
	a := enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "A", "status": "ready"})
	b := enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "B", "status": "ready"})
	c := enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "C", "status": "ready"})
	f.gateway.failKey = "B"

	report := f.engine.SyncPendingOperations(context.Background())

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 2, report.Remaining)
	assert.NotEmpty(t, report.Error)
	assert.Equal(t, []string{"A", "B"}, f.gateway.keys(), "C must not be attempted after B fails")

	left := f.queue.ListQueue()
	require.Len(t, left, 2)
	assert.Equal(t, b.ID, left[0].ID)
	assert.Equal(t, c.ID, left[1].ID)
	assert.NotEqual(t, a.ID, left[0].ID)

	assert.Contains(t, f.sink.titles(), "Sync failed")
	assert.Equal(t, 1, f.rec.count(), "one applied operation is enough to reconcile")
}

func TestFailedHeadBlocksQueue(t *testing.T) {
	f := newFixture(t, true)
	enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "B", "status": "ready"})
	enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "C", "status": "ready"})
	f.gateway.failKey = "B"

	for i := 0; i < 3; i++ {
		report := f.engine.SyncPendingOperations(context.Background())
		assert.Equal(t, 0, report.Applied)
		assert.Equal(t, 2, report.Remaining)
	}
	assert.Equal(t, 0, f.rec.count())

	f.gateway.failKey = ""
	report := f.engine.SyncPendingOperations(context.Background())
	assert.Equal(t, 2, report.Applied)
	assert.Zero(t, report.Remaining)
	assert.Contains(t, f.sink.titles(), "Synced")
}

func TestSyncSkipsWhileOffline(t *testing.T) {
	f := newFixture(t, false)
	enqueue(t, f.queue, model.OpInsert, model.ResourceOrders, map[string]any{"id": model.NewTempID()})

	report := f.engine.SyncPendingOperations(context.Background())

	assert.True(t, report.Skipped)
	assert.Equal(t, "offline", report.Reason)
	assert.Equal(t, 1, report.Remaining)
	assert.Empty(t, f.gateway.keys())
	assert.Equal(t, 0, f.rec.count())
}

func TestConcurrentPassesCollapse(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.block = make(chan struct{})
	enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "A", "status": "ready"})

	done := make(chan model.SyncReport)
	go func() { done <- f.engine.SyncPendingOperations(context.Background()) }()
	require.Eventually(t, func() bool { return f.engine.Status().InFlight }, time.Second, 5*time.Millisecond)

	second := f.engine.SyncPendingOperations(context.Background())
	assert.True(t, second.Skipped)

	close(f.gateway.block)
	first := <-done
	assert.Equal(t, 1, first.Applied)
	assert.Equal(t, []string{"A"}, f.gateway.keys())
}

func TestTemporaryIDsResolveAfterInsert(t *testing.T) {
	f := newFixture(t, true)
	tempID := model.NewTempID()
	enqueue(t, f.queue, model.OpInsert, model.ResourceOrders, map[string]any{"id": tempID, "status": "pending_chef_approval"})
	enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": tempID, "status": "pending_cashier_approval"})

	report := f.engine.SyncPendingOperations(context.Background())
	require.Equal(t, 2, report.Applied)

	serverID := "srv-" + strings.TrimPrefix(tempID, model.TempIDPrefix)
	assert.Equal(t, []string{tempID, serverID}, f.gateway.keys())
	assert.Equal(t, serverID, f.queue.ResolveAlias(tempID))
}

func TestTablesAreAddressedByUUID(t *testing.T) {
	f := newFixture(t, true)
	enqueue(t, f.queue, model.OpUpdate, model.ResourceTables, map[string]any{"id": 7, "uuid": "t7", "name": "Bàn 7"})
	enqueue(t, f.queue, model.OpDelete, model.ResourceMenuItems, map[string]any{"id": "pho"})

	report := f.engine.SyncPendingOperations(context.Background())
	require.Equal(t, 2, report.Applied)
	assert.Equal(t, []string{"t7", "pho"}, f.gateway.keys())
}

func TestOperationWithoutKeyBlocks(t *testing.T) {
	f := newFixture(t, true)
	enqueue(t, f.queue, model.OpUpdate, model.ResourceTables, map[string]any{"name": "Bàn ?"})

	report := f.engine.SyncPendingOperations(context.Background())
	assert.Equal(t, 0, report.Applied)
	assert.Contains(t, report.Error, model.ErrMissingKey.Error())
	assert.Equal(t, 1, f.queue.QueueLen())
}

func TestEmptyQueueDoesNotReconcile(t *testing.T) {
	f := newFixture(t, true)
	report := f.engine.SyncPendingOperations(context.Background())
	assert.False(t, report.Skipped)
	assert.Zero(t, report.Attempted)
	assert.Equal(t, 0, f.rec.count())
}

func TestRequestSyncRunsInBackground(t *testing.T) {
	f := newFixture(t, true)
	enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "A", "status": "ready"})

	f.engine.RequestSync(context.Background())
	f.engine.Wait()

	assert.Zero(t, f.queue.QueueLen())
	assert.Equal(t, 1, f.rec.count())
}

func TestRequestSyncIgnoredOffline(t *testing.T) {
	f := newFixture(t, false)
	enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "A", "status": "ready"})

	f.engine.RequestSync(context.Background())
	f.engine.Wait()

	assert.Equal(t, 1, f.queue.QueueLen())
	assert.Empty(t, f.gateway.keys())
}

func TestComingOnlineDrainsQueue(t *testing.T) {
	f := newFixture(t, false)
	f.engine = New(f.queue, f.gateway, f.conn, f.sink, Options{Locale: "en", Interval: time.Hour}, quiet())
	f.engine.SetReconciler(f.rec)
	require.NoError(t, f.engine.Start(context.Background()))
	t.Cleanup(f.engine.Stop)

	enqueue(t, f.queue, model.OpUpdate, model.ResourceOrders, map[string]any{"id": "A", "status": "ready"})
	f.conn.Set(true)

	require.Eventually(t, func() bool { return f.queue.QueueLen() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return f.rec.count() == 1 }, time.Second, 10*time.Millisecond)

	f.conn.Set(false)
	assert.Eventually(t, func() bool {
		titles := f.sink.titles()
		return len(titles) > 0 && titles[len(titles)-1] == "Offline"
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, f.sink.titles(), "Back online")
}

func TestStatusListsPending(t *testing.T) {
	f := newFixture(t, false)
	enqueue(t, f.queue, model.OpDelete, model.ResourceOrders, map[string]any{"id": "A"})

	st := f.engine.Status()
	assert.False(t, st.Online)
	assert.False(t, st.InFlight)
	require.Len(t, st.Pending, 1)
	assert.Equal(t, model.OpDelete, st.Pending[0].Kind)
}
