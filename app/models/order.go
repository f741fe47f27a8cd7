package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is open-ended: besides the three well-known values, unmapped
// provider status keys are stored uppercased while an order is still open.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusSuccess OrderStatus = "SUCCESS"
	OrderStatusFailed  OrderStatus = "FAILED"
)

// IsTerminal reports whether no further status transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusSuccess || s == OrderStatusFailed
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order is one purchase attempt of a subject by a parent.
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ParentID      *uint           `gorm:"index" json:"parent_id"`
	SubjectID     *uint           `gorm:"index" json:"subject_id"`
	ExternalID    string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"external_id"`
	ProviderID    string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"provider_id"`
	ParentOrderID string          `gorm:"type:varchar(100);default:''" json:"parent_order_id"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status        OrderStatus     `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"`
	RedirectURL   string          `gorm:"type:varchar(500);default:''" json:"redirect_url"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ChargeReference returns the gateway id used for recurring charges.
func (o *Order) ChargeReference() string {
	if ref := strings.TrimSpace(o.ParentOrderID); ref != "" {
		return ref
	}
	return o.ProviderID
}
