package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project groups tasks under a deadline.
type Project struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    int64  `gorm:"not null;index"`
	Name      string `gorm:"size:200"`
	Status    string `gorm:"size:32"`
	Deadline  string `gorm:"size:10"`
	CreatedAt time.Time
}

// BeforeCreate assigns a UUID when the caller did not.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Outcome is a measurable result of a project. Progress is stored either as a
// fraction (0..1) or as a percentage.
type Outcome struct {
	ID        string  `gorm:"primaryKey;size:36"`
	ProjectID string  `gorm:"size:36;not null;index"`
	Name      string  `gorm:"size:200"`
	Status    string  `gorm:"size:32"`
	Progress  float64 `gorm:"default:0"`
	CreatedAt time.Time
}

// BeforeCreate assigns a UUID when the caller did not.
func (o *Outcome) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
