package models

import "time"

// MemoryChunk is one indexed piece of long-term memory.
type MemoryChunk struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	UserID     int64     `gorm:"not null;index"`
	SourceType string    `gorm:"size:32"`
	Content    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"index"`
}

// Reminder is a scheduled notification.
type Reminder struct {
	ID        uint       `gorm:"primaryKey;autoIncrement"`
	UserID    int64      `gorm:"not null;index"`
	Status    string     `gorm:"size:16;index"`
	Message   string     `gorm:"type:text"`
	DueAt     *time.Time `gorm:"index"`
	CreatedAt time.Time
}

// SystemLog is an entry in the shared system log.
type SystemLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Module    string    `gorm:"size:64"`
	Message   string    `gorm:"type:text"`
	Level     string    `gorm:"size:16;index"`
	Status    string    `gorm:"size:16"`
	Timestamp time.Time `gorm:"index"`
}
