package models

import "time"

// Payment provider constants.
const (
	PaymentProviderBOG = "bog"
)

// PaymentCallback stores every webhook delivery from the payment provider for
// diagnosis. Deliveries are not deduplicated: a repeated terminal event is
// meaningful (it extends the subscription).
type PaymentCallback struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Provider        string     `gorm:"type:varchar(20);not null;index" json:"provider"`
	ProviderOrderID string     `gorm:"type:varchar(100);not null;default:'';index" json:"provider_order_id"`
	EventType       string     `gorm:"type:varchar(100);not null;default:''" json:"event_type"`
	StatusKey       string     `gorm:"type:varchar(50);not null;default:''" json:"status_key"`
	PayloadJSON     string     `gorm:"type:text;not null" json:"payload_json"`
	SignatureValid  bool       `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time `gorm:"default:null" json:"processed_at,omitempty"`
	ProcessingError string     `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
