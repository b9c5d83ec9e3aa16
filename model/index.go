package model

import "time"

type TokenClaim struct {
	AccountId uint   `json:"accountId"`
	Username  string `json:"username"`
}

// IDAlias links a device-local order id to the id the backend assigned on insert.
type IDAlias struct {
	TempID    string    `gorm:"primaryKey;size:64" json:"tempId"`
	ServerID  string    `gorm:"size:64;not null" json:"serverId"`
	CreatedAt time.Time `json:"createdAt"`
}

type SyncReport struct {
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
	Attempted int    `json:"attempted"`
	Applied   int    `json:"applied"`
	Remaining int    `json:"remaining"`
	Error     string `json:"error,omitempty"`
}

type SyncStatus struct {
	Online   bool               `json:"online"`
	InFlight bool               `json:"inFlight"`
	Pending  []PendingOperation `json:"pending"`
}
