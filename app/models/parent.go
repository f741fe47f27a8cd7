package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Parent is the account that buys subjects and owns subscriptions.
type Parent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=2,max=100"`
	MobilePhone string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"mobile_phone" validate:"required,min=5,max=20"`
	Password    string    `gorm:"type:varchar(128);not null" json:"-" validate:"required"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Parent) Validate() error {
	v := validator.New()
	return v.Struct(p)
}

// NewParent builds a validated parent with a hashed password. The caller
// persists it.
func NewParent(name, mobilePhone, password string) (*Parent, error) {
	p := &Parent{
		Name:        name,
		MobilePhone: mobilePhone,
	}
	if err := p.SetPassword(password); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parent) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Password = string(hash)
	return nil
}

// CheckPassword compares the given password with the stored hash.
func (p *Parent) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)) == nil
}

func FindParentByID(db *gorm.DB, id uint) (*Parent, error) {
	var parent Parent
	if err := db.First(&parent, id).Error; err != nil {
		return nil, err
	}
	return &parent, nil
}
