package repository

import (
	"github.com/ManuelReschke/edupay/app/models"
	"gorm.io/gorm"
)

type subjectRepository struct {
	db *gorm.DB
}

// NewSubjectRepository creates a new subject repository instance
func NewSubjectRepository(db *gorm.DB) SubjectRepository {
	return &subjectRepository{db: db}
}

func (r *subjectRepository) Create(subject *models.Subject) error {
	return r.db.Create(subject).Error
}

// GetByID returns the subject regardless of its active flag; pricing checks
// happen in the order service.
func (r *subjectRepository) GetByID(id uint) (*models.Subject, error) {
	var subject models.Subject
	if err := r.db.First(&subject, id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepository) ListActive() ([]models.Subject, error) {
	var subjects []models.Subject
	err := r.db.Where("is_active = ?", true).Order("name ASC").Find(&subjects).Error
	return subjects, err
}
