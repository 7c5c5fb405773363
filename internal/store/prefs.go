package store

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zulandar/cockpit/internal/db"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/view"
)

// UIPrefs loads the user's dashboard layout merged with defaults. Missing
// storage yields the defaults.
func (s *Store) UIPrefs(ctx context.Context, userID int64) (view.UIPrefs, error) {
	var row models.UserPreference
	err := s.q(ctx).Select("user_id", "dashboard_prefs").Where("user_id = ?", userID).Take(&row).Error
	switch {
	case err == nil:
		return view.NormalizeUIPrefs([]byte(row.DashboardPrefs)), nil
	case errors.Is(err, gorm.ErrRecordNotFound), db.IsMissingRelation(err):
		return view.DefaultUIPrefs(), nil
	default:
		return view.UIPrefs{}, wrap("load ui prefs", err)
	}
}

// SaveUIPrefs normalizes and upserts the user's dashboard layout. Missing
// storage is ignored.
func (s *Store) SaveUIPrefs(ctx context.Context, userID int64, prefs view.UIPrefs) error {
	doc, err := json.Marshal(prefs.Normalize())
	if err != nil {
		return wrap("encode ui prefs", err)
	}
	row := models.UserPreference{
		UserID:         userID,
		DashboardPrefs: string(doc),
		UpdatedAt:      s.now().UTC(),
	}
	err = s.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"dashboard_prefs", "updated_at"}),
	}).Create(&row).Error
	if err != nil && !db.IsMissingRelation(err) {
		return wrap("save ui prefs", err)
	}
	return nil
}
