package repository

import (
	"github.com/ManuelReschke/edupay/app/models"
	"gorm.io/gorm"
)

// ParentRepository defines the interface for parent account operations
type ParentRepository interface {
	Create(parent *models.Parent) error
	GetByID(id uint) (*models.Parent, error)
	GetByMobilePhone(mobilePhone string) (*models.Parent, error)
}

// ChildRepository defines the interface for child account operations
type ChildRepository interface {
	Create(child *models.Child) error
	GetByID(id uint) (*models.Child, error)
	GetByOTP(code string) (*models.Child, error)
	ConsumeOTP(id uint, code string) (bool, error)
}

// SubjectRepository defines the interface for catalog subject operations
type SubjectRepository interface {
	Create(subject *models.Subject) error
	GetByID(id uint) (*models.Subject, error)
	ListActive() ([]models.Subject, error)
}

type GradeRepository interface {
	Create(grade *models.Grade) error
	List() ([]models.Grade, error)
}

type TopicRepository interface {
	Create(topic *models.Topic) error
	ListBySubject(subjectID, gradeID uint) ([]models.Topic, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Parent  ParentRepository
	Child   ChildRepository
	Subject SubjectRepository
	Grade   GradeRepository
	Topic   TopicRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Parent:  NewParentRepository(db),
		Child:   NewChildRepository(db),
		Subject: NewSubjectRepository(db),
		Grade:   NewGradeRepository(db),
		Topic:   NewTopicRepository(db),
	}
}
