package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskItem is a dated to-do owned by one user.
type TaskItem struct {
	ID          string  `gorm:"primaryKey;size:36"`
	UserID      int64   `gorm:"not null;index"`
	Title       string  `gorm:"size:240;not null"`
	DueDate     string  `gorm:"size:10;not null;index"`
	Status      string  `gorm:"size:16;default:pending;index"`
	Priority    *string `gorm:"size:8"`
	ProjectID   *string `gorm:"size:36;index"`
	Note        *string `gorm:"type:text"`
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// BeforeCreate assigns a UUID when the caller did not.
func (t *TaskItem) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
