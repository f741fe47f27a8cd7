package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetParentRepository returns the parent repository instance
func (f *Factory) GetParentRepository() ParentRepository {
	return f.GetRepositories().Parent
}

// GetSubjectRepository returns the subject repository instance
func (f *Factory) GetSubjectRepository() SubjectRepository {
	return f.GetRepositories().Subject
}

// GetChildRepository returns the child repository instance
func (f *Factory) GetChildRepository() ChildRepository {
	return f.GetRepositories().Child
}

// GetGradeRepository returns the grade repository instance
func (f *Factory) GetGradeRepository() GradeRepository {
	return f.GetRepositories().Grade
}

// GetTopicRepository returns the topic repository instance
func (f *Factory) GetTopicRepository() TopicRepository {
	return f.GetRepositories().Topic
}
