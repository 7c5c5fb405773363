package derive

import (
	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/view"
)

// Momentum range bounds.
const (
	DefaultMomentumDays = 30
	MinMomentumDays     = 7
	MaxMomentumDays     = 60
	ActivityDays        = 7
	HeatmapDays         = 28
)

// TaskDay is the projection of a task row the chart series need.
type TaskDay struct {
	DueDate string
	Status  string
}

// HabitMark is one completion resolved to a calendar day.
type HabitMark struct {
	HabitID string
	Day     string
}

// Focus bucket colors.
const (
	ColorOverdue = "#f43f5e"
	ColorToday   = "#22c55e"
	ColorWeek    = "#06b6d4"
	ColorLater   = "#a78bfa"
)

// MomentumRange clamps a requested day count to [7, 60].
func MomentumRange(days int) int {
	return Clamp(days, MinMomentumDays, MaxMomentumDays)
}

type dayCounts struct {
	total, completed, pending int
}

func countByDay(days []string, rows []TaskDay) map[string]*dayCounts {
	buckets := make(map[string]*dayCounts, len(days))
	for _, d := range days {
		buckets[d] = &dayCounts{}
	}
	for _, r := range rows {
		b, ok := buckets[r.DueDate]
		if !ok || r.Status == view.StatusCancelled {
			continue
		}
		b.total++
		switch r.Status {
		case view.StatusDone:
			b.completed++
		case view.StatusPending:
			b.pending++
		}
	}
	return buckets
}

// Momentum builds the per-day backlog series ending at today, oldest first.
func Momentum(rows []TaskDay, today string, days int) []view.MomentumPoint {
	span := dates.Span(today, MomentumRange(days))
	buckets := countByDay(span, rows)
	points := make([]view.MomentumPoint, 0, len(span))
	for _, d := range span {
		b := buckets[d]
		points = append(points, view.MomentumPoint{
			Date:      d,
			Label:     dates.Label(d),
			Total:     b.total,
			Completed: b.completed,
			Pending:   b.pending,
		})
	}
	return points
}

// Activity builds the seven-day completed/total series ending at today.
func Activity(rows []TaskDay, today string) []view.ActivityPoint {
	span := dates.Span(today, ActivityDays)
	buckets := countByDay(span, rows)
	points := make([]view.ActivityPoint, 0, len(span))
	for _, d := range span {
		b := buckets[d]
		points = append(points, view.ActivityPoint{
			Date:      dates.WeekdayLabel(d),
			Completed: b.completed,
			Total:     b.total,
		})
	}
	return points
}

// Focus buckets pending tasks into overdue, today, this week and later.
func Focus(rows []TaskDay, f dates.Frame) []view.FocusPoint {
	var overdue, today, week, later int
	for _, r := range rows {
		if r.Status != view.StatusPending || r.DueDate == "" {
			continue
		}
		switch {
		case r.DueDate < f.Today:
			overdue++
		case r.DueDate == f.Today:
			today++
		case f.Week.Contains(r.DueDate):
			week++
		default:
			later++
		}
	}
	return []view.FocusPoint{
		{Name: "Overdue", Value: overdue, Color: ColorOverdue},
		{Name: "Today", Value: today, Color: ColorToday},
		{Name: "Week", Value: week, Color: ColorWeek},
		{Name: "Later", Value: later, Color: ColorLater},
	}
}

// Heatmap counts distinct habits completed per day over the 28 days ending
// at today. The daily target is the active habit count, at least one.
func Heatmap(marks []HabitMark, today string, activeHabits int) []view.HeatmapPoint {
	span := dates.Span(today, HeatmapDays)
	seen := make(map[string]map[string]struct{}, len(span))
	for _, d := range span {
		seen[d] = map[string]struct{}{}
	}
	for _, m := range marks {
		if set, ok := seen[m.Day]; ok {
			set[m.HabitID] = struct{}{}
		}
	}
	target := max(1, activeHabits)
	points := make([]view.HeatmapPoint, 0, len(span))
	for _, d := range span {
		n := len(seen[d])
		ratio := float64(n) / float64(target)
		if ratio > 1 {
			ratio = 1
		}
		points = append(points, view.HeatmapPoint{
			Date:        d,
			Label:       dates.Label(d),
			Completions: n,
			Target:      target,
			Ratio:       ratio,
		})
	}
	return points
}
