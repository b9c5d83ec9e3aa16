package model

import "time"

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent says "something changed on the backend". It is a hint to refetch, never
// a source of state.
type ChangeEvent struct {
	Resource  Resource    `json:"resource"`
	Type      ChangeType  `json:"type"`
	Key       string      `json:"key"`
	OldStatus OrderStatus `json:"old_status,omitempty"`
	NewStatus OrderStatus `json:"new_status,omitempty"`
	At        time.Time   `json:"at"`
}

func (e ChangeEvent) StatusChanged() bool {
	return e.NewStatus != "" && e.OldStatus != e.NewStatus
}
