package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TempIDPrefix marks ids generated on the device before the backend has seen the order.
const TempIDPrefix = "temp-"

func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

type OrderItem struct {
	ID       string  `json:"id" validate:"required"`
	Name     string  `json:"name"`
	Price    float64 `json:"price" validate:"gte=0"`
	Quantity int     `json:"quantity" validate:"gt=0"`
	Category string  `json:"category,omitempty"`
}

type Order struct {
	ID             string                         `gorm:"primaryKey;size:64" json:"id"`
	Items          datatypes.JSONSlice[OrderItem] `json:"items"`
	Subtotal       float64                        `gorm:"not null;default:0" json:"subtotal"`
	ServiceCharge  float64                        `gorm:"not null;default:0" json:"service_charge"`
	Tax            float64                        `gorm:"not null;default:0" json:"tax"`
	FinalTotal     float64                        `gorm:"not null;default:0" json:"final_total"`
	Status         OrderStatus                    `gorm:"size:40;index;not null" json:"status"`
	PreviousStatus OrderStatus                    `gorm:"size:40" json:"previous_status,omitempty"`
	TableID        uint                           `json:"table_id"`
	TableUUID      string                         `gorm:"size:64;index" json:"table_uuid"`
	SessionID      string                         `gorm:"size:64;index" json:"session_id"`
	CreatedAt      time.Time                      `json:"created_at"`
	UpdatedAt      time.Time                      `json:"updated_at"`

	ChefApprovedAt      *time.Time `json:"chef_approved_at,omitempty"`
	CashierApprovedAt   *time.Time `json:"cashier_approved_at,omitempty"`
	CustomerConfirmedAt *time.Time `json:"customer_confirmed_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
}

// BeforeCreate replaces a device-local id with the authoritative one.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" || IsTempID(o.ID) {
		o.ID = uuid.NewString()
	}
	return nil
}

// Merge returns a copy of o with the fields named in patch (by json name) overwritten.
func (o Order) Merge(patch map[string]any) (Order, error) {
	base, err := json.Marshal(o)
	if err != nil {
		return o, err
	}
	fields := map[string]any{}
	if err := json.Unmarshal(base, &fields); err != nil {
		return o, err
	}
	for k, v := range patch {
		fields[k] = v
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return o, err
	}
	var merged Order
	if err := json.Unmarshal(raw, &merged); err != nil {
		return o, err
	}
	return merged, nil
}

// SameSlot reports whether both orders belong to the same diner at the same table in the
// same lifecycle step. Used to match a temporary record with its server copy.
func (o Order) SameSlot(other Order) bool {
	return o.TableUUID == other.TableUUID && o.SessionID == other.SessionID && o.Status == other.Status
}

type SubmitOrderInput struct {
	TableUUID string      `json:"table_uuid" validate:"required"`
	SessionID string      `json:"session_id" validate:"required"`
	Items     []OrderItem `json:"items" validate:"required,min=1,dive"`
}

type CashierApprovalInput struct {
	ServiceCharge float64 `json:"service_charge" validate:"gte=0"`
	Tax           float64 `json:"tax" validate:"gte=0"`
}
