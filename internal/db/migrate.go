package db

import (
	"fmt"

	"github.com/zulandar/cockpit/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model the dashboard reads or writes.
func AllModels() []interface{} {
	return []interface{}{
		&models.TaskItem{},
		&models.HabitDefinition{},
		&models.HabitCompletion{},
		&models.Project{},
		&models.Outcome{},
		&models.BotKnowledge{},
		&models.Event{},
		&models.LifeEvent{},
		&models.DailyReview{},
		&models.MemoryChunk{},
		&models.Reminder{},
		&models.SystemLog{},
		&models.UserPreference{},
		&models.AppUserLink{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// CriticalTables are reported by the health check.
var CriticalTables = []string{
	"task_items",
	"habit_definitions",
	"habit_completions",
	"daily_reviews",
	"events",
	"life_events",
	"memory_chunks",
	"reminders",
	"system_logs",
}

// Table states reported by CheckTables.
const (
	TableOK      = "ok"
	TableMissing = "missing"
)

// CheckTables reports whether each critical table exists.
func CheckTables(db *gorm.DB) map[string]string {
	out := make(map[string]string, len(CriticalTables))
	migrator := db.Migrator()
	for _, table := range CriticalTables {
		if migrator.HasTable(table) {
			out[table] = TableOK
		} else {
			out[table] = TableMissing
		}
	}
	return out
}

// LinkUser upserts the mapping from an external identity to a user id.
func LinkUser(db *gorm.DB, table, authUID string, userID int64) error {
	if table == "" {
		table = "app_user_links"
	}
	link := models.AppUserLink{AuthUID: authUID, AppUserID: userID}
	result := db.Table(table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "auth_uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"app_user_id"}),
	}).Create(&link)
	if result.Error != nil {
		return fmt.Errorf("db: link user %q: %w", authUID, result.Error)
	}
	return nil
}
