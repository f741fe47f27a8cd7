package repository

import (
	"github.com/ManuelReschke/edupay/app/models"
	"gorm.io/gorm"
)

type gradeRepository struct {
	db *gorm.DB
}

func NewGradeRepository(db *gorm.DB) GradeRepository {
	return &gradeRepository{db: db}
}

func (r *gradeRepository) Create(grade *models.Grade) error {
	return r.db.Create(grade).Error
}

func (r *gradeRepository) List() ([]models.Grade, error) {
	var grades []models.Grade
	err := r.db.Order("id ASC").Find(&grades).Error
	return grades, err
}
