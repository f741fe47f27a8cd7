package models

import (
	"encoding/json"
	"time"
)

// Topic is a lesson inside a subject, optionally tied to a grade. Image and
// Video hold JSON documents describing the media.
type Topic struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SubjectID   uint      `gorm:"not null;index" json:"subject_id"`
	GradeID     *uint     `gorm:"index" json:"grade_id,omitempty"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Image       *string   `gorm:"type:text" json:"-"`
	Video       *string   `gorm:"type:text" json:"-"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ImageJSON returns the stored image document, or nil when none is set or
// the column does not hold valid JSON.
func (t *Topic) ImageJSON() json.RawMessage {
	return rawJSON(t.Image)
}

func (t *Topic) VideoJSON() json.RawMessage {
	return rawJSON(t.Video)
}

func rawJSON(s *string) json.RawMessage {
	if s == nil || *s == "" || !json.Valid([]byte(*s)) {
		return nil
	}
	return json.RawMessage(*s)
}
