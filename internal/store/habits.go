package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/derive"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/view"
)

// Habit lookback windows, in calendar days ending today.
const (
	habitHistoryDays = 30
	streakHorizon    = 60
)

// Toggle results.
const (
	ToggleCompleted   = "completed"
	ToggleUncompleted = "uncompleted"
)

// Habits loads the user's habits with today's state, the number of distinct
// days completed this week and the current streak. Inactive habits are
// included only when includeInactive is set.
func (s *Store) Habits(ctx context.Context, userID int64, f dates.Frame, includeInactive bool) ([]view.Habit, error) {
	q := s.q(ctx).Where("user_id = ?", userID)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	var defs []models.HabitDefinition
	if err := q.Order("created_at ASC").Find(&defs).Error; err != nil {
		if absorb(err) == nil {
			return []view.Habit{}, nil
		}
		return nil, wrap("load habits", err)
	}
	if len(defs) == 0 {
		return []view.Habit{}, nil
	}

	lookback := max(habitHistoryDays, streakHorizon)
	marks, err := s.habitMarks(ctx, userID, f, lookback)
	if err != nil {
		return nil, err
	}
	daysByHabit := make(map[string]map[string]bool)
	for _, m := range marks {
		set, ok := daysByHabit[m.HabitID]
		if !ok {
			set = map[string]bool{}
			daysByHabit[m.HabitID] = set
		}
		set[m.Day] = true
	}

	habits := make([]view.Habit, 0, len(defs))
	for _, d := range defs {
		days := daysByHabit[d.ID]
		week := 0
		for day := range days {
			if f.Week.Contains(day) {
				week++
			}
		}
		cadence := "daily"
		if d.Cadence == "weekly" {
			cadence = "weekly"
		}
		habits = append(habits, view.Habit{
			ID:              d.ID,
			Name:            d.Name,
			Cadence:         cadence,
			TargetCount:     max(1, d.TargetCount),
			CompletedToday:  days[f.Today],
			Active:          d.Active,
			CompletionsWeek: week,
			StreakDays:      Streak(days, f.Today, streakHorizon),
		})
	}
	return habits, nil
}

// Streak counts consecutive days with a completion, walking back from today,
// up to horizon days.
func Streak(days map[string]bool, today string, horizon int) int {
	streak := 0
	for i := range horizon {
		if !days[dates.ShiftDate(today, -i)] {
			break
		}
		streak++
	}
	return streak
}

// HabitMarks returns the user's completions over the last n calendar days,
// each resolved to its day in the frame's zone.
func (s *Store) HabitMarks(ctx context.Context, userID int64, f dates.Frame, n int) ([]derive.HabitMark, error) {
	return s.habitMarks(ctx, userID, f, n)
}

func (s *Store) habitMarks(ctx context.Context, userID int64, f dates.Frame, n int) ([]derive.HabitMark, error) {
	from, to := dayRange(dates.ShiftDate(f.Today, -(n-1)), dates.ShiftDate(f.Today, 1), f.Location)
	var rows []models.HabitCompletion
	err := s.q(ctx).Select("habit_id", "completed_at").
		Where("user_id = ? AND completed_at >= ? AND completed_at < ?", userID, from, to).
		Find(&rows).Error
	if err != nil {
		if absorb(err) == nil {
			return nil, nil
		}
		return nil, wrap("load habit completions", err)
	}
	marks := make([]derive.HabitMark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, derive.HabitMark{HabitID: r.HabitID, Day: f.DayOf(r.CompletedAt)})
	}
	return marks, nil
}

// Heatmap loads the 28-day habit heatmap for activeHabits habits.
func (s *Store) Heatmap(ctx context.Context, userID int64, f dates.Frame, activeHabits int) ([]view.HeatmapPoint, error) {
	marks, err := s.habitMarks(ctx, userID, f, derive.HeatmapDays)
	if err != nil {
		return nil, err
	}
	return derive.Heatmap(marks, f.Today, activeHabits), nil
}

// NewHabit is a validated create request.
type NewHabit struct {
	Name        string
	Cadence     string
	TargetCount int
}

// CreateHabit inserts an active habit and returns its id.
func (s *Store) CreateHabit(ctx context.Context, userID int64, in NewHabit) (string, error) {
	row := models.HabitDefinition{
		UserID:      userID,
		Name:        in.Name,
		Cadence:     in.Cadence,
		TargetCount: max(1, in.TargetCount),
		Active:      true,
		CreatedAt:   s.now().UTC(),
	}
	if row.Cadence == "" {
		row.Cadence = "daily"
	}
	if err := s.q(ctx).Create(&row).Error; err != nil {
		return "", wrap("create habit", err)
	}
	return row.ID, nil
}

// SetHabitActive archives (false) or restores (true) one of the user's habits.
func (s *Store) SetHabitActive(ctx context.Context, userID int64, id string, active bool) error {
	if err := s.ownsHabit(ctx, userID, id); err != nil {
		return err
	}
	err := s.q(ctx).Model(&models.HabitDefinition{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("active", active).Error
	if err != nil {
		return wrap("set habit active", err)
	}
	return nil
}

// ToggleHabit flips today's completion: it deletes today's completion when
// one exists and inserts one otherwise.
func (s *Store) ToggleHabit(ctx context.Context, userID int64, id string, f dates.Frame) (string, error) {
	if err := s.ownsHabit(ctx, userID, id); err != nil {
		return "", err
	}
	from, to := dayRange(f.Today, dates.ShiftDate(f.Today, 1), f.Location)
	result := ""
	err := s.q(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.HabitCompletion
		err := tx.Where("habit_id = ? AND user_id = ? AND completed_at >= ? AND completed_at < ?", id, userID, from, to).
			Take(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&models.HabitCompletion{}, existing.ID).Error; err != nil {
				return err
			}
			result = ToggleUncompleted
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := models.HabitCompletion{HabitID: id, UserID: userID, CompletedAt: s.completionInstant(f)}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			result = ToggleCompleted
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return "", wrap("toggle habit", err)
	}
	return result, nil
}

// completionInstant is now, or midday of the frame's today when the clock
// and the frame disagree about the day.
func (s *Store) completionInstant(f dates.Frame) time.Time {
	now := s.now()
	if f.DayOf(now) == f.Today {
		return now.UTC()
	}
	return f.DayStart(f.Today).Add(12 * time.Hour).UTC()
}

func (s *Store) ownsHabit(ctx context.Context, userID int64, id string) error {
	var count int64
	err := s.q(ctx).Model(&models.HabitDefinition{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error
	if err != nil {
		return wrap("find habit", err)
	}
	if count == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return nil
}
