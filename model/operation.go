package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type OperationKind string

const (
	OpInsert OperationKind = "insert"
	OpUpdate OperationKind = "update"
	OpDelete OperationKind = "delete"
)

type Resource string

const (
	ResourceOrders    Resource = "orders"
	ResourceTables    Resource = "tables"
	ResourceMenuItems Resource = "menu_items"
)

// KeyField is the payload field the backend addresses a record of r by.
func (r Resource) KeyField() string {
	if r == ResourceTables {
		return "uuid"
	}
	return "id"
}

var ErrMissingKey = errors.New("payload has no key")

// PendingOperation is a local mutation that the backend has not confirmed yet.
// Rows are only ever inserted and deleted.
type PendingOperation struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind       OperationKind  `gorm:"size:10;not null" json:"kind"`
	Resource   Resource       `gorm:"size:32;not null" json:"resource"`
	Payload    datatypes.JSON `json:"payload"`
	EnqueuedAt time.Time      `gorm:"index;not null" json:"enqueued_at"`
}

func (op PendingOperation) Fields() (map[string]any, error) {
	fields := map[string]any{}
	if len(op.Payload) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(op.Payload, &fields); err != nil {
		return nil, fmt.Errorf("decode payload of operation %d: %w", op.ID, err)
	}
	return fields, nil
}

// Key derives the remote identifier of the record the operation targets.
func (op PendingOperation) Key() (string, error) {
	fields, err := op.Fields()
	if err != nil {
		return "", err
	}
	v, ok := fields[op.Resource.KeyField()]
	if !ok || v == nil || v == "" {
		return "", fmt.Errorf("%w: %s operation %d on %s", ErrMissingKey, op.Kind, op.ID, op.Resource)
	}
	return fmt.Sprint(v), nil
}

func NewOperation(kind OperationKind, resource Resource, payload any) (PendingOperation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return PendingOperation{}, err
	}
	return PendingOperation{
		Kind:       kind,
		Resource:   resource,
		Payload:    datatypes.JSON(raw),
		EnqueuedAt: time.Now(),
	}, nil
}
