// Package connectivity tracks whether the hosted backend is reachable and tells
// subscribers when that changes.
package connectivity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Monitor struct {
	mu        sync.Mutex
	online    bool
	listeners []chan bool
	scheduler *cron.Cron
	log       logrus.FieldLogger
}

func NewMonitor(online bool, log logrus.FieldLogger) *Monitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Monitor{online: online, log: log.WithField("component", "connectivity")}
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set records the current state. Subscribers hear about it only when it differs from the
// previous one.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	m.log.WithField("online", online).Info("connectivity changed")
	for _, ch := range m.listeners {
		deliver(ch, online)
	}
}

// deliver never blocks. A full channel loses its oldest value so the newest state
// always gets through.
func deliver(ch chan bool, v bool) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Subscribe returns a channel of state changes. It is closed by Stop.
func (m *Monitor) Subscribe() <-chan bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan bool, 4)
	m.listeners = append(m.listeners, ch)
	return ch
}

// Probe pings the backend once and records the outcome.
func (m *Monitor) Probe(ctx context.Context, p Pinger) bool {
	err := p.Ping(ctx)
	if err != nil {
		m.log.WithError(err).Debug("backend probe failed")
	}
	m.Set(err == nil)
	return err == nil
}

// Start probes p immediately and then every interval. A probe that is still running when
// the next one is due is skipped.
func (m *Monitor) Start(p Pinger, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("probe interval must be positive, got %s", interval)
	}
	probe := func() {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()
		m.Probe(ctx, p)
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(m.log)),
	))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), probe); err != nil {
		return fmt.Errorf("schedule probe: %w", err)
	}

	m.mu.Lock()
	m.scheduler = c
	m.mu.Unlock()

	go probe()
	c.Start()
	m.log.WithField("interval", interval).Info("connectivity probe started")
	return nil
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	c := m.scheduler
	m.scheduler = nil
	listeners := m.listeners
	m.listeners = nil
	m.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		m.log.Info("connectivity probe stopped")
	}
	for _, ch := range listeners {
		close(ch)
	}
}
