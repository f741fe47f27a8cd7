package repository

import (
	"strings"

	"github.com/ManuelReschke/edupay/app/models"
	"gorm.io/gorm"
)

type parentRepository struct {
	db *gorm.DB
}

// NewParentRepository creates a new parent repository instance
func NewParentRepository(db *gorm.DB) ParentRepository {
	return &parentRepository{db: db}
}

func (r *parentRepository) Create(parent *models.Parent) error {
	return r.db.Create(parent).Error
}

func (r *parentRepository) GetByID(id uint) (*models.Parent, error) {
	return models.FindParentByID(r.db, id)
}

// GetByMobilePhone looks up the login identity of a parent.
func (r *parentRepository) GetByMobilePhone(mobilePhone string) (*models.Parent, error) {
	var parent models.Parent
	err := r.db.Where("mobile_phone = ?", strings.TrimSpace(mobilePhone)).First(&parent).Error
	if err != nil {
		return nil, err
	}
	return &parent, nil
}
