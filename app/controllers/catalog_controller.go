package controllers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/edupay/app/models"
	"github.com/ManuelReschke/edupay/app/repository"
)

type subjectView struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type gradeView struct {
	ID    uint   `json:"id"`
	Level string `json:"level"`
}

type topicView struct {
	ID          uint            `json:"id"`
	Name        string          `json:"name"`
	GradeID     *uint           `json:"grade_id"`
	Image       json.RawMessage `json:"image"`
	Video       json.RawMessage `json:"video"`
	Description *string         `json:"description"`
}

// CatalogController serves the read side of the subject catalog.
type CatalogController struct {
	subjects repository.SubjectRepository
	grades   repository.GradeRepository
	topics   repository.TopicRepository
}

func NewCatalogController(subjects repository.SubjectRepository, grades repository.GradeRepository, topics repository.TopicRepository) *CatalogController {
	return &CatalogController{subjects: subjects, grades: grades, topics: topics}
}

func newSubjectView(s models.Subject) subjectView {
	return subjectView{ID: s.ID, Name: s.Name, Price: s.Price.StringFixed(2)}
}

// HandleListSubjects lists the purchasable subjects with their prices.
func (cc *CatalogController) HandleListSubjects(c *fiber.Ctx) error {
	subjects, err := cc.subjects.ListActive()
	if err != nil {
		log.Errorf("[Catalog] listing subjects failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	out := make([]subjectView, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, newSubjectView(s))
	}
	return c.JSON(fiber.Map{"subjects": out})
}

// HandleGetSubject returns one subject by id.
func (cc *CatalogController) HandleGetSubject(c *fiber.Ctx) error {
	subject, err := cc.lookupSubject(c)
	if subject == nil {
		return err
	}
	return c.JSON(newSubjectView(*subject))
}

// HandleListTopics lists a subject's topics, optionally for one grade given
// as ?grade_id=.
func (cc *CatalogController) HandleListTopics(c *fiber.Ctx) error {
	subject, err := cc.lookupSubject(c)
	if subject == nil {
		return err
	}
	gradeID := c.QueryInt("grade_id", 0)
	if gradeID < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "grade_id: gte"})
	}

	topics, err := cc.topics.ListBySubject(subject.ID, uint(gradeID))
	if err != nil {
		log.Errorf("[Catalog] listing topics of subject=%d failed: %v", subject.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	out := make([]topicView, 0, len(topics))
	for i := range topics {
		t := &topics[i]
		out = append(out, topicView{
			ID:          t.ID,
			Name:        t.Name,
			GradeID:     t.GradeID,
			Image:       t.ImageJSON(),
			Video:       t.VideoJSON(),
			Description: t.Description,
		})
	}
	return c.JSON(fiber.Map{"subject": newSubjectView(*subject), "topics": out})
}

func (cc *CatalogController) HandleListGrades(c *fiber.Ctx) error {
	grades, err := cc.grades.List()
	if err != nil {
		log.Errorf("[Catalog] listing grades failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	out := make([]gradeView, 0, len(grades))
	for _, g := range grades {
		out = append(out, gradeView{ID: g.ID, Level: g.Level})
	}
	return c.JSON(fiber.Map{"grades": out})
}

// lookupSubject resolves the :id route parameter. A nil subject means the
// error response has been written.
func (cc *CatalogController) lookupSubject(c *fiber.Ctx) (*models.Subject, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_error", "message": "id: must be a positive integer"})
	}
	subject, err := cc.subjects.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "subject not found"})
		}
		log.Errorf("[Catalog] loading subject=%d failed: %v", id, err)
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return subject, nil
}
