package model

import "time"

type Table struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      string    `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	Number    *int      `json:"number,omitempty"`
	Name      string    `json:"name"`
	Seats     int       `json:"seats"`
	CreatedAt time.Time `json:"created_at"`
}

// TableView is a table as the floor dashboards see it: status and order are derived
// from the active order sitting on the table.
type TableView struct {
	Table
	Status      TableStatus `json:"status"`
	Order       *Order      `json:"order"`
	SeatedSince *time.Time  `json:"seated_since,omitempty"`
}

type MenuItem struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Price     float64   `gorm:"not null" json:"price"`
	Category  string    `gorm:"size:64" json:"category"`
	Available bool      `gorm:"not null" json:"available"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
