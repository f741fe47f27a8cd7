package models

// Grade is a school year level such as "5" or "Kindergarten".
type Grade struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Level string `gorm:"type:varchar(50);not null" json:"level"`
}
