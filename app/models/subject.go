package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subject is a purchasable catalog entry. A successful order for a subject
// grants a time-boxed subscription to it.
type Subject struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"type:varchar(100);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"price"`
	IsActive  bool            `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPurchasable reports whether the subject can be sold at its current price.
func (s *Subject) IsPurchasable() bool {
	return s != nil && s.Price.IsPositive()
}
