package models

import (
	"crypto/subtle"
	"time"

	"github.com/go-playground/validator/v10"
)

// Child is a learner registered by a parent. A child signs in with the one
// time code issued at registration.
type Child struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ParentID  uint      `gorm:"not null;index" json:"parent_id" validate:"required"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=1,max=100"`
	Grade     int       `gorm:"not null" json:"grade" validate:"gte=1"`
	OTPCode   *string   `gorm:"type:varchar(6);uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *Child) Validate() error {
	v := validator.New()
	return v.Struct(c)
}

// VerifyOTP reports whether code is the child's outstanding login code.
func (c *Child) VerifyOTP(code string) bool {
	if c == nil || c.OTPCode == nil || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*c.OTPCode), []byte(code)) == 1
}
