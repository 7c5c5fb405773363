package models

import "time"

// UserPreference stores per-user documents such as the dashboard layout.
type UserPreference struct {
	UserID         int64  `gorm:"primaryKey;autoIncrement:false"`
	DashboardPrefs string `gorm:"type:text"`
	UpdatedAt      time.Time
}

// TableName matches the plural table used by the other clients.
func (UserPreference) TableName() string { return "user_preferences" }

// AppUserLink maps an external identity to the numeric user id.
type AppUserLink struct {
	AuthUID   string `gorm:"primaryKey;size:64"`
	AppUserID int64  `gorm:"not null;index"`
	CreatedAt time.Time
}
