// Package cache is the on-device copy of tables, orders and the menu, plus the queue of
// mutations waiting to reach the backend. Storage failures are logged and swallowed.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"restaurant_manager/model"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type record struct {
	Collection model.Resource `gorm:"primaryKey;size:32"`
	RecordKey  string         `gorm:"primaryKey;size:64"`
	Position   int64          `gorm:"index;not null"`
	Payload    datatypes.JSON `gorm:"not null"`
	UpdatedAt  time.Time
}

func (record) TableName() string { return "cache_records" }

type Store struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func New(db *gorm.DB, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := db.AutoMigrate(&record{}, &model.PendingOperation{}, &model.IDAlias{}); err != nil {
		return nil, fmt.Errorf("migrate local cache: %w", err)
	}
	return &Store{db: db, log: log.WithField("component", "cache")}, nil
}

func (s *Store) Orders() []model.Order {
	return get[model.Order](s, model.ResourceOrders)
}

func (s *Store) Tables() []model.Table {
	return get[model.Table](s, model.ResourceTables)
}

func (s *Store) MenuItems() []model.MenuItem {
	return get[model.MenuItem](s, model.ResourceMenuItems)
}

func (s *Store) PutOrder(o model.Order) {
	s.put(model.ResourceOrders, o.ID, o)
}

func (s *Store) PutTable(t model.Table) {
	s.put(model.ResourceTables, t.UUID, t)
}

func (s *Store) PutMenuItem(m model.MenuItem) {
	s.put(model.ResourceMenuItems, m.ID, m)
}

func (s *Store) ReplaceOrders(orders []model.Order) {
	replaceAll(s, model.ResourceOrders, orders, func(o model.Order) string { return o.ID })
}

func (s *Store) ReplaceTables(tables []model.Table) {
	replaceAll(s, model.ResourceTables, tables, func(t model.Table) string { return t.UUID })
}

func (s *Store) ReplaceMenuItems(items []model.MenuItem) {
	replaceAll(s, model.ResourceMenuItems, items, func(m model.MenuItem) string { return m.ID })
}

func get[T any](s *Store, c model.Resource) []T {
	var rows []record
	if err := s.db.Where("collection = ?", c).Order("position asc").Order("record_key asc").Find(&rows).Error; err != nil {
		s.log.WithError(err).WithField("collection", c).Error("read cache collection")
		return nil
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		var v T
		if err := json.Unmarshal(r.Payload, &v); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{"collection": c, "key": r.RecordKey}).Warn("skip unreadable cache record")
			continue
		}
		out = append(out, v)
	}
	return out
}

// Ghi đè theo key, key mới nằm cuối danh sách
func (s *Store) put(c model.Resource, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"collection": c, "key": key}).Error("encode cache record")
		return
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing record
		err := tx.Where("collection = ? AND record_key = ?", c, key).Take(&existing).Error
		switch {
		case err == nil:
			return tx.Model(&existing).Updates(map[string]any{
				"payload":    datatypes.JSON(raw),
				"updated_at": time.Now(),
			}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			var last int64
			if err := tx.Model(&record{}).Where("collection = ?", c).Select("COALESCE(MAX(position), 0)").Scan(&last).Error; err != nil {
				return err
			}
			return tx.Create(&record{Collection: c, RecordKey: key, Position: last + 1, Payload: raw}).Error
		default:
			return err
		}
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"collection": c, "key": key}).Error("write cache record")
	}
}

// Xoá cả collection rồi ghi lại trong một transaction
func replaceAll[T any](s *Store, c model.Resource, items []T, key func(T) string) {
	rows := make([]record, 0, len(items))
	now := time.Now()
	for i, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			s.log.WithError(err).WithField("collection", c).Error("encode cache record")
			return
		}
		rows = append(rows, record{Collection: c, RecordKey: key(item), Position: int64(i + 1), Payload: raw, UpdatedAt: now})
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection = ?", c).Delete(&record{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		s.log.WithError(err).WithField("collection", c).Error("replace cache collection")
	}
}
