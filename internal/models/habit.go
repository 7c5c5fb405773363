package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HabitDefinition is a recurring habit. Archiving clears Active.
type HabitDefinition struct {
	ID          string `gorm:"primaryKey;size:36"`
	UserID      int64  `gorm:"not null;index"`
	Name        string `gorm:"size:120;not null"`
	Cadence     string `gorm:"size:8;default:daily"`
	TargetCount int    `gorm:"default:1"`
	Active      bool   `gorm:"default:true;index"`
	CreatedAt   time.Time
}

// BeforeCreate assigns a UUID when the caller did not.
func (h *HabitDefinition) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// HabitCompletion records that a habit was done at an instant.
type HabitCompletion struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	HabitID     string    `gorm:"size:36;not null;index"`
	UserID      int64     `gorm:"not null;index"`
	CompletedAt time.Time `gorm:"not null;index"`
}
