package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a chat message or dashboard activity entry.
type Event struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;index"`
	Role      string    `gorm:"size:16"`
	Category  string    `gorm:"size:64"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

// LifeEvent is a free-text journal entry.
type LifeEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;index"`
	Category  string    `gorm:"size:64"`
	RawText   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

// DailyReview is the end-of-day review, one per user and day.
type DailyReview struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	UserID       int64  `gorm:"not null;uniqueIndex:idx_review_user_date"`
	ReviewDate   string `gorm:"size:10;not null;uniqueIndex:idx_review_user_date"`
	Summary      string `gorm:"type:text"`
	TomorrowPlan string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BotKnowledge is a knowledge-base fact. A nil UserID is shared by everyone.
// Tags holds either a comma list or a JSON array.
type BotKnowledge struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    *int64 `gorm:"index"`
	Category  string `gorm:"size:64"`
	Source    string `gorm:"size:64"`
	Title     string `gorm:"size:200"`
	Content   string `gorm:"type:text"`
	Fact      string `gorm:"type:text"`
	Tags      string `gorm:"type:text"`
	CreatedAt time.Time
}

// TableName keeps the singular table name.
func (BotKnowledge) TableName() string { return "bot_knowledge" }

// BeforeCreate assigns a UUID when the caller did not.
func (k *BotKnowledge) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
