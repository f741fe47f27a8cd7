package repository

import (
	"github.com/ManuelReschke/edupay/app/models"
	"gorm.io/gorm"
)

type topicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) Create(topic *models.Topic) error {
	return r.db.Create(topic).Error
}

// ListBySubject returns the topics of a subject. A non-zero gradeID keeps
// only the topics of that grade.
func (r *topicRepository) ListBySubject(subjectID, gradeID uint) ([]models.Topic, error) {
	q := r.db.Where("subject_id = ?", subjectID)
	if gradeID != 0 {
		q = q.Where("grade_id = ?", gradeID)
	}
	var topics []models.Topic
	err := q.Order("id ASC").Find(&topics).Error
	return topics, err
}
