// Package remote talks to the hosted database that holds the authoritative copy of every
// resource, and announces each change it makes on redis so other devices can refetch.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"restaurant_manager/model"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// bản ghi không tồn tại trên server
	ErrNotFound        = errors.New("remote record not found")
	ErrUnknownResource = errors.New("unknown resource")
	ErrNoNotifier      = errors.New("change notifications are not configured")
	ErrNotConnected    = errors.New("backend not connected")
)

// Dialer opens the backend database. A lazy client calls it from Ping until it succeeds.
type Dialer func(ctx context.Context) (*gorm.DB, error)

const channelPrefix = "changes:"

func ChannelFor(r model.Resource) string {
	return channelPrefix + string(r)
}

type Client struct {
	mu     sync.RWMutex
	db     *gorm.DB
	dial   Dialer
	dialMu sync.Mutex

	rdb *redis.Client
	log logrus.FieldLogger
}

// NewClient builds a gateway over db. rdb may be nil, in which case writes are not
// announced and Subscribe fails.
func NewClient(db *gorm.DB, rdb *redis.Client, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{db: db, rdb: rdb, log: log.WithField("component", "remote")}
}

// NewLazyClient builds a gateway that is not connected yet. Every call fails with
// ErrNotConnected until a Ping manages to dial.
func NewLazyClient(dial Dialer, rdb *redis.Client, log logrus.FieldLogger) *Client {
	c := NewClient(nil, rdb, log)
	c.dial = dial
	return c
}

func (c *Client) conn() (*gorm.DB, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

func (c *Client) connect(ctx context.Context) (*gorm.DB, error) {
	if db, err := c.conn(); err == nil {
		return db, nil
	}
	if c.dial == nil {
		return nil, ErrNotConnected
	}

	c.dialMu.Lock()
	defer c.dialMu.Unlock()
	if db, err := c.conn(); err == nil {
		return db, nil
	}
	db, err := c.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	c.mu.Lock()
	c.db = db
	c.mu.Unlock()
	c.log.Info("backend connected")
	return db, nil
}

func newRecord(r model.Resource) (any, error) {
	switch r {
	case model.ResourceOrders:
		return &model.Order{}, nil
	case model.ResourceTables:
		return &model.Table{}, nil
	case model.ResourceMenuItems:
		return &model.MenuItem{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownResource, r)
}

func statusOf(rec any) model.OrderStatus {
	if o, ok := rec.(*model.Order); ok {
		return o.Status
	}
	return ""
}

// Ping dials first when the client is not connected yet.
func (c *Client) Ping(ctx context.Context) error {
	db, err := c.connect(ctx)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// FetchAll loads every record of r into dest, a pointer to a slice of the resource model.
func (c *Client) FetchAll(ctx context.Context, r model.Resource, dest any) error {
	db, err := c.conn()
	if err != nil {
		return fmt.Errorf("fetch %s: %w", r, err)
	}
	q := db.WithContext(ctx)
	switch r {
	case model.ResourceOrders:
		q = q.Order("created_at asc").Order("id asc")
	case model.ResourceTables:
		q = q.Order("id asc")
	case model.ResourceMenuItems:
		q = q.Order("category asc").Order("id asc")
	default:
		return fmt.Errorf("%w: %s", ErrUnknownResource, r)
	}
	if err := q.Find(dest).Error; err != nil {
		return fmt.Errorf("fetch %s: %w", r, err)
	}
	return nil
}

// Insert creates a record from payload and returns it as stored, with server ids.
func (c *Client) Insert(ctx context.Context, r model.Resource, payload []byte) ([]byte, error) {
	rec, err := newRecord(r)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", r, err)
	}
	db, err := c.conn()
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", r, err)
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("insert %s: %w", r, err)
	}
	out, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	key, _ := keyOf(r, out)
	c.publish(ctx, model.ChangeEvent{Resource: r, Type: model.ChangeInsert, Key: key, NewStatus: statusOf(rec)})
	return out, nil
}

// Update applies the fields present in payload to the record addressed by key. Key
// fields in the payload are ignored.
func (c *Client) Update(ctx context.Context, r model.Resource, key string, payload []byte) ([]byte, error) {
	rec, err := newRecord(r)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", r, err)
	}
	delete(fields, "id")
	delete(fields, r.KeyField())

	patch, _ := newRecord(r)
	stripped, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stripped, patch); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", r, err)
	}

	db, err := c.conn()
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", r, key, err)
	}

	var oldStatus model.OrderStatus
	keyCol := r.KeyField()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(keyCol+" = ?", key).Take(rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		oldStatus = statusOf(rec)

		columns, err := columnsOf(tx, rec, fields)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			return nil
		}
		if err := tx.Model(rec).Select(columns).Updates(patch).Error; err != nil {
			return err
		}
		return tx.Where(keyCol+" = ?", key).Take(rec).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("update %s %s: %w", r, key, ErrNotFound)
		}
		return nil, fmt.Errorf("update %s %s: %w", r, key, err)
	}

	out, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	c.publish(ctx, model.ChangeEvent{Resource: r, Type: model.ChangeUpdate, Key: key, OldStatus: oldStatus, NewStatus: statusOf(rec)})
	return out, nil
}

func (c *Client) Delete(ctx context.Context, r model.Resource, key string) error {
	rec, err := newRecord(r)
	if err != nil {
		return err
	}
	db, err := c.conn()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", r, key, err)
	}
	res := db.WithContext(ctx).Where(r.KeyField()+" = ?", key).Delete(rec)
	if res.Error != nil {
		return fmt.Errorf("delete %s %s: %w", r, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete %s %s: %w", r, key, ErrNotFound)
	}
	c.publish(ctx, model.ChangeEvent{Resource: r, Type: model.ChangeDelete, Key: key})
	return nil
}

// Bỏ qua field không có trong bảng
func columnsOf(tx *gorm.DB, rec any, fields map[string]any) ([]string, error) {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(rec); err != nil {
		return nil, err
	}
	var columns []string
	for name := range fields {
		if f := stmt.Schema.LookUpField(name); f != nil && f.DBName != "" && !f.PrimaryKey {
			columns = append(columns, f.DBName)
		}
	}
	sort.Strings(columns)
	return columns, nil
}

func keyOf(r model.Resource, raw []byte) (string, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", err
	}
	v, ok := fields[r.KeyField()]
	if !ok {
		return "", model.ErrMissingKey
	}
	return fmt.Sprint(v), nil
}

func (c *Client) publish(ctx context.Context, ev model.ChangeEvent) {
	if c.rdb == nil {
		return
	}
	ev.At = time.Now()
	raw, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := c.rdb.Publish(ctx, ChannelFor(ev.Resource), raw).Err(); err != nil {
		c.log.WithError(err).WithField("resource", ev.Resource).Warn("publish change notification")
	}
}

// Subscribe streams change notifications for the given resources until ctx ends.
// A message that cannot be decoded still yields an event naming its resource.
func (c *Client) Subscribe(ctx context.Context, resources ...model.Resource) (<-chan model.ChangeEvent, error) {
	if c.rdb == nil {
		return nil, ErrNoNotifier
	}
	channels := make([]string, 0, len(resources))
	for _, r := range resources {
		channels = append(channels, ChannelFor(r))
	}
	pubsub := c.rdb.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %v: %w", channels, err)
	}

	out := make(chan model.ChangeEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev model.ChangeEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					c.log.WithError(err).WithField("channel", msg.Channel).Debug("undecodable change notification")
					ev = model.ChangeEvent{Resource: model.Resource(strings.TrimPrefix(msg.Channel, channelPrefix))}
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
