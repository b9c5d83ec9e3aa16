package cache

import (
	"errors"
	"restaurant_manager/model"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Enqueue appends op to the pending queue and returns it with its sequence id.
// A zero id means the write did not happen.
func (s *Store) Enqueue(op model.PendingOperation) model.PendingOperation {
	op.ID = 0
	if op.EnqueuedAt.IsZero() {
		op.EnqueuedAt = time.Now()
	}
	if err := s.db.Create(&op).Error; err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"kind": op.Kind, "resource": op.Resource}).Error("enqueue pending operation")
		return model.PendingOperation{}
	}
	return op
}

// ListQueue returns pending operations by sequence id, oldest first.
func (s *Store) ListQueue() []model.PendingOperation {
	var ops []model.PendingOperation
	if err := s.db.Order("id asc").Find(&ops).Error; err != nil {
		s.log.WithError(err).Error("list pending operations")
		return nil
	}
	return ops
}

func (s *Store) QueueLen() int {
	var n int64
	if err := s.db.Model(&model.PendingOperation{}).Count(&n).Error; err != nil {
		s.log.WithError(err).Error("count pending operations")
		return 0
	}
	return int(n)
}

func (s *Store) Dequeue(id uint) {
	if err := s.db.Delete(&model.PendingOperation{}, id).Error; err != nil {
		s.log.WithError(err).WithField("operation", id).Error("dequeue pending operation")
	}
}

func (s *Store) PutAlias(tempID, serverID string) {
	alias := model.IDAlias{TempID: tempID, ServerID: serverID}
	if err := s.db.Save(&alias).Error; err != nil {
		s.log.WithError(err).WithField("temp_id", tempID).Error("save id alias")
	}
}

// ResolveAlias maps a temporary id to its server id, or returns id unchanged.
func (s *Store) ResolveAlias(id string) string {
	var alias model.IDAlias
	err := s.db.Where("temp_id = ?", id).Take(&alias).Error
	if err == nil {
		return alias.ServerID
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.WithError(err).WithField("id", id).Error("resolve id alias")
	}
	return id
}
