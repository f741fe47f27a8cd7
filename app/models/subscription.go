package models

import "time"

// Subscription is the entitlement of a parent to a subject, funded by an order.
// (parent, subject, order) is unique so repeated webhook deliveries for the
// same order can never create a second row.
type Subscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ParentID  *uint     `gorm:"index:ux_subscriptions_party_subject_order,unique,priority:1" json:"parent_id"`
	SubjectID *uint     `gorm:"index:ux_subscriptions_party_subject_order,unique,priority:2" json:"subject_id"`
	OrderID   uint      `gorm:"not null;index:ux_subscriptions_party_subject_order,unique,priority:3;index" json:"order_id"`
	Order     *Order    `gorm:"foreignKey:OrderID" json:"-"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null;index:idx_subscriptions_active_end,priority:2" json:"end_date"`
	Active    bool      `gorm:"not null;default:true;index:idx_subscriptions_active_end,priority:1" json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsDue reports whether the entitlement expired and needs a renewal charge.
func (s *Subscription) IsDue(now time.Time) bool {
	return s.Active && !s.EndDate.After(now)
}
