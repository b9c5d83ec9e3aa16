// Package syncer replays locally queued mutations against the backend.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"restaurant_manager/model"
	"restaurant_manager/notify"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

const DefaultInterval = 10 * time.Second

var ErrUnknownKind = errors.New("unknown operation kind")

type Gateway interface {
	Insert(ctx context.Context, r model.Resource, payload []byte) ([]byte, error)
	Update(ctx context.Context, r model.Resource, key string, payload []byte) ([]byte, error)
	Delete(ctx context.Context, r model.Resource, key string) error
}

type Queue interface {
	ListQueue() []model.PendingOperation
	QueueLen() int
	Dequeue(id uint)
	PutAlias(tempID, serverID string)
	ResolveAlias(id string) string
}

type Connectivity interface {
	Online() bool
	Subscribe() <-chan bool
}

// Reconciler refetches authoritative state after the backend accepted local changes.
type Reconciler interface {
	Reconcile(ctx context.Context) error
}

type Options struct {
	Interval time.Duration
	Locale   string
}

type Engine struct {
	queue   Queue
	gateway Gateway
	conn    Connectivity
	sink    notify.Sink
	log     logrus.FieldLogger

	interval time.Duration
	locale   string

	mu         sync.RWMutex
	reconciler Reconciler

	inFlight atomic.Bool
	// còn tồn đọng sau lần sync lỗi hoặc offline
	backlog atomic.Bool

	scheduler gocron.Scheduler
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func New(queue Queue, gateway Gateway, conn Connectivity, sink notify.Sink, opts Options, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if sink == nil {
		sink = notify.Discard{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Locale == "" {
		opts.Locale = notify.FallbackLocale
	}
	return &Engine{
		queue:    queue,
		gateway:  gateway,
		conn:     conn,
		sink:     sink,
		log:      log.WithField("component", "syncer"),
		interval: opts.Interval,
		locale:   opts.Locale,
	}
}

// SetReconciler wires the component that owns the in-memory state.
func (e *Engine) SetReconciler(r Reconciler) {
	e.mu.Lock()
	e.reconciler = r
	e.mu.Unlock()
}

func (e *Engine) getReconciler() Reconciler {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reconciler
}

// SyncPendingOperations replays the queue in enqueue order and stops at the first
// operation the backend does not accept. It does nothing while offline or while another
// pass is running.
func (e *Engine) SyncPendingOperations(ctx context.Context) model.SyncReport {
	if !e.conn.Online() {
		if e.queue.QueueLen() > 0 {
			e.backlog.Store(true)
		}
		return model.SyncReport{Skipped: true, Reason: "offline", Remaining: e.queue.QueueLen()}
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return model.SyncReport{Skipped: true, Reason: "sync already in progress"}
	}
	defer e.inFlight.Store(false)

	var report model.SyncReport
	ops := e.queue.ListQueue()
	for _, op := range ops {
		report.Attempted++
		if err := e.apply(ctx, op); err != nil {
			report.Error = err.Error()
			e.log.WithError(err).WithFields(logrus.Fields{
				"operation": op.ID,
				"kind":      op.Kind,
				"resource":  op.Resource,
			}).Warn("sync stopped at failed operation")
			break
		}
		e.queue.Dequeue(op.ID)
		report.Applied++
	}
	report.Remaining = e.queue.QueueLen()

	if report.Error != "" {
		e.backlog.Store(true)
		e.sink.Notify(notify.Message(e.locale, notify.SyncFailed, report.Remaining))
	} else if report.Applied > 0 && e.backlog.CompareAndSwap(true, false) {
		e.sink.Notify(notify.Message(e.locale, notify.SyncCompleted, report.Applied))
	}

	if report.Applied > 0 {
		if r := e.getReconciler(); r != nil {
			if err := r.Reconcile(ctx); err != nil {
				e.log.WithError(err).Warn("reconcile after sync")
			}
		}
	}
	if report.Attempted > 0 {
		e.log.WithFields(logrus.Fields{
			"applied":   report.Applied,
			"remaining": report.Remaining,
		}).Info("sync pass finished")
	}
	return report
}

func (e *Engine) apply(ctx context.Context, op model.PendingOperation) error {
	switch op.Kind {
	case model.OpInsert:
		out, err := e.gateway.Insert(ctx, op.Resource, op.Payload)
		if err != nil {
			return err
		}
		e.rememberServerID(op, out)
		return nil
	case model.OpUpdate:
		key, err := e.keyOf(op)
		if err != nil {
			return err
		}
		_, err = e.gateway.Update(ctx, op.Resource, key, op.Payload)
		return err
	case model.OpDelete:
		key, err := e.keyOf(op)
		if err != nil {
			return err
		}
		return e.gateway.Delete(ctx, op.Resource, key)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, op.Kind)
}

// Đơn tạo offline dùng id tạm cho tới khi insert được đồng bộ
func (e *Engine) keyOf(op model.PendingOperation) (string, error) {
	key, err := op.Key()
	if err != nil {
		return "", err
	}
	if model.IsTempID(key) {
		key = e.queue.ResolveAlias(key)
	}
	return key, nil
}

func (e *Engine) rememberServerID(op model.PendingOperation, stored []byte) {
	sent, err := op.Key()
	if err != nil || !model.IsTempID(sent) {
		return
	}
	var out map[string]any
	if err := json.Unmarshal(stored, &out); err != nil {
		e.log.WithError(err).Warn("decode inserted record")
		return
	}
	if id, ok := out[op.Resource.KeyField()].(string); ok && id != "" && id != sent {
		e.queue.PutAlias(sent, id)
	}
}

// RequestSync starts a pass in the background after a local mutation. Nothing happens
// while offline; the online transition will pick the queue up.
func (e *Engine) RequestSync(ctx context.Context) {
	if !e.conn.Online() {
		if e.queue.QueueLen() > 0 {
			e.backlog.Store(true)
		}
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.SyncPendingOperations(ctx)
	}()
}

func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) Status() model.SyncStatus {
	pending := e.queue.ListQueue()
	if pending == nil {
		pending = []model.PendingOperation{}
	}
	return model.SyncStatus{
		Online:   e.conn.Online(),
		InFlight: e.inFlight.Load(),
		Pending:  pending,
	}
}

// Start schedules the periodic pass and listens for connectivity changes and the platform
// trigger until Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	s, err := gocron.NewScheduler()
	if err != nil {
		cancel()
		return fmt.Errorf("create sync scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(e.interval),
		gocron.NewTask(func() { e.SyncPendingOperations(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return fmt.Errorf("schedule sync job: %w", err)
	}

	e.scheduler = s
	e.cancel = cancel
	s.Start()

	changes := e.conn.Subscribe()
	trigger, stopTrigger := platformTrigger()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer stopTrigger()
		e.watch(ctx, changes, trigger)
	}()

	e.log.WithField("interval", e.interval).Info("sync engine started")
	return nil
}

func (e *Engine) watch(ctx context.Context, changes <-chan bool, trigger <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if !online {
				e.sink.Notify(notify.Message(e.locale, notify.WentOffline))
				continue
			}
			e.sink.Notify(notify.Message(e.locale, notify.BackOnline))
			e.SyncPendingOperations(ctx)
		case <-trigger:
			e.log.Debug("platform sync trigger")
			e.SyncPendingOperations(ctx)
		}
	}
}

func (e *Engine) Stop() {
	if e.scheduler != nil {
		if err := e.scheduler.Shutdown(); err != nil {
			e.log.WithError(err).Warn("shutdown sync scheduler")
		}
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.log.Info("sync engine stopped")
}
