package repository

import (
	"github.com/ManuelReschke/edupay/app/models"
	"gorm.io/gorm"
)

type childRepository struct {
	db *gorm.DB
}

// NewChildRepository creates a new child repository instance
func NewChildRepository(db *gorm.DB) ChildRepository {
	return &childRepository{db: db}
}

func (r *childRepository) Create(child *models.Child) error {
	return r.db.Create(child).Error
}

func (r *childRepository) GetByID(id uint) (*models.Child, error) {
	var child models.Child
	if err := r.db.First(&child, id).Error; err != nil {
		return nil, err
	}
	return &child, nil
}

// GetByOTP finds the child holding the outstanding login code.
func (r *childRepository) GetByOTP(code string) (*models.Child, error) {
	var child models.Child
	if err := r.db.Where("otp_code = ?", code).First(&child).Error; err != nil {
		return nil, err
	}
	return &child, nil
}

// ConsumeOTP clears the login code if it is still code. It reports false when
// another request used it first.
func (r *childRepository) ConsumeOTP(id uint, code string) (bool, error) {
	res := r.db.Model(&models.Child{}).
		Where("id = ? AND otp_code = ?", id, code).
		UpdateColumn("otp_code", nil)
	return res.RowsAffected == 1, res.Error
}
