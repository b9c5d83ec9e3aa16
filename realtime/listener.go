// Package realtime turns backend change notifications into full refetches.
package realtime

import (
	"context"
	"restaurant_manager/helper"
	"restaurant_manager/model"
	"restaurant_manager/notify"
	"time"

	"github.com/sirupsen/logrus"
)

type Subscriber interface {
	Subscribe(ctx context.Context, resources ...model.Resource) (<-chan model.ChangeEvent, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context) error
}

type Listener struct {
	sub        Subscriber
	reconciler Reconciler
	sink       notify.Sink
	locale     string
	retry      time.Duration
	log        logrus.FieldLogger
}

func NewListener(sub Subscriber, reconciler Reconciler, sink notify.Sink, locale string, log logrus.FieldLogger) *Listener {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if sink == nil {
		sink = notify.Discard{}
	}
	return &Listener{
		sub:        sub,
		reconciler: reconciler,
		sink:       sink,
		locale:     locale,
		retry:      5 * time.Second,
		log:        log.WithField("component", "realtime"),
	}
}

// Run listens for order and table changes until ctx ends, subscribing again after the
// retry delay whenever the subscription drops.
func (l *Listener) Run(ctx context.Context) {
	for {
		events, err := l.sub.Subscribe(ctx, model.ResourceOrders, model.ResourceTables)
		if err != nil {
			l.log.WithError(err).Warn("subscribe to change notifications")
		} else {
			l.log.Info("listening for backend changes")
			l.consume(ctx, events)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retry):
		}
	}
}

// WatchConnectivity refetches everything each time the backend becomes reachable again.
func (l *Listener) WatchConnectivity(ctx context.Context, changes <-chan bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case online, ok := <-changes:
			if !ok {
				return
			}
			if !online {
				continue
			}
			if err := l.reconciler.Reconcile(ctx); err != nil {
				l.log.WithError(err).Warn("refetch after reconnect")
			}
		}
	}
}

func (l *Listener) consume(ctx context.Context, events <-chan model.ChangeEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				l.log.Warn("change notifications closed")
				return
			}
			l.Handle(ctx, append([]model.ChangeEvent{ev}, drain(events)...))
		}
	}
}

// Gom các event đang chờ để chỉ fetch lại một lần
func drain(events <-chan model.ChangeEvent) []model.ChangeEvent {
	var out []model.ChangeEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Handle refetches everything once for a batch of events, then tells staff about status
// changes. The event payloads are only used for the message text.
func (l *Listener) Handle(ctx context.Context, batch []model.ChangeEvent) {
	if len(batch) == 0 {
		return
	}
	if err := l.reconciler.Reconcile(ctx); err != nil {
		l.log.WithError(err).Warn("refetch after change notification")
	}
	seen := map[string]bool{}
	for _, ev := range batch {
		if ev.Resource != model.ResourceOrders || !ev.StatusChanged() {
			continue
		}
		dedup := ev.Key + "|" + string(ev.NewStatus)
		if seen[dedup] {
			continue
		}
		seen[dedup] = true
		l.sink.Notify(notify.Message(l.locale, notify.OrderStatusChanged,
			helper.ShortOrderID(ev.Key),
			notify.StatusLabel(l.locale, ev.OldStatus),
			notify.StatusLabel(l.locale, ev.NewStatus),
		))
	}
}
