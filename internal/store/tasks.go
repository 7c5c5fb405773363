package store

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/derive"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/task"
	"github.com/zulandar/cockpit/internal/view"
)

// Task scopes.
const (
	ScopeToday   = "today"
	ScopeWeek    = "week"
	ScopeOverdue = "overdue"
)

// Bulk actions.
const (
	BulkMarkDone     = "mark_done"
	BulkMarkPending  = "mark_pending"
	BulkCancel       = "cancel"
	BulkPostponeDay  = "postpone_day"
	BulkPostponeWeek = "postpone_week"
)

// ValidScope reports whether s names a task scope.
func ValidScope(s string) bool {
	return s == ScopeToday || s == ScopeWeek || s == ScopeOverdue
}

// TaskQuery refines a scoped task load.
type TaskQuery struct {
	task.Filter
	SortBy  string
	SortDir string
}

// Tasks loads the user's tasks for scope, normalized, filtered and sorted.
// Cancelled tasks are hidden unless the status filter asks for them.
func (s *Store) Tasks(ctx context.Context, userID int64, f dates.Frame, scope string, tq TaskQuery) ([]view.Task, error) {
	q := s.q(ctx).Where("user_id = ?", userID)
	if tq.Status != view.StatusCancelled {
		q = q.Where("status <> ?", view.StatusCancelled)
	}
	switch scope {
	case ScopeToday:
		q = q.Where("due_date = ?", f.Today)
	case ScopeOverdue:
		q = q.Where("status = ? AND due_date < ?", view.StatusPending, f.Today)
	case ScopeWeek:
		q = q.Where("due_date >= ? AND due_date <= ?", f.Week.From, f.Week.To)
	default:
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalid, scope)
	}
	if tq.Status != "" {
		q = q.Where("status = ?", tq.Status)
	}
	if tq.ProjectID != "" {
		q = q.Where("project_id = ?", tq.ProjectID)
	}

	var rows []models.TaskItem
	if err := q.Order("due_date ASC").Find(&rows).Error; err != nil {
		if absorb(err) == nil {
			return []view.Task{}, nil
		}
		return nil, wrap("load tasks", err)
	}

	tasks := task.NormalizeAll(rows, f)
	tasks = task.Apply(tasks, task.Filter{Priority: tq.Priority})
	sortBy := tq.SortBy
	if sortBy == "" {
		sortBy = task.SortSmart
	}
	return task.Sort(tasks, sortBy, tq.SortDir), nil
}

// NewTask is a validated create request.
type NewTask struct {
	Title     string
	DueDate   string
	Priority  string
	ProjectID *string
	Note      *string
}

// CreateTask inserts a pending task and returns its id.
func (s *Store) CreateTask(ctx context.Context, userID int64, in NewTask) (string, error) {
	if !task.ValidPriority(in.Priority) {
		in.Priority = view.PriorityMedium
	}
	row := models.TaskItem{
		UserID:    userID,
		Title:     in.Title,
		DueDate:   in.DueDate,
		Status:    view.StatusPending,
		Priority:  &in.Priority,
		ProjectID: emptyToNil(in.ProjectID),
		Note:      task.StripMarker(in.Note),
		CreatedAt: s.now().UTC(),
	}
	if err := s.q(ctx).Create(&row).Error; err != nil {
		return "", wrap("create task", err)
	}
	return row.ID, nil
}

// TaskPatch lists the fields to change. Nil pointers are left alone; the
// Set flags distinguish "clear" from "absent" for nullable fields.
type TaskPatch struct {
	Title        *string
	Status       *string
	DueDate      *string
	Priority     *string
	SetNote      bool
	Note         *string
	SetProjectID bool
	ProjectID    *string
}

func (p TaskPatch) updates(now func() any) map[string]any {
	out := map[string]any{}
	if p.Title != nil && *p.Title != "" {
		out["title"] = *p.Title
	}
	if p.Status != nil && *p.Status != "" {
		out["status"] = *p.Status
		if *p.Status == view.StatusDone {
			out["completed_at"] = now()
		} else {
			out["completed_at"] = nil
		}
	}
	if p.DueDate != nil && *p.DueDate != "" {
		out["due_date"] = *p.DueDate
	}
	if p.Priority != nil && *p.Priority != "" {
		out["priority"] = *p.Priority
	}
	if p.SetNote {
		out["note"] = task.StripMarker(p.Note)
	}
	if p.SetProjectID {
		out["project_id"] = emptyToNil(p.ProjectID)
	}
	return out
}

// PatchTask applies p to one of the user's tasks. completed_at follows the
// status: set on done, cleared otherwise.
func (s *Store) PatchTask(ctx context.Context, userID int64, id string, p TaskPatch) error {
	updates := p.updates(func() any { return s.now().UTC() })
	if len(updates) == 0 {
		return fmt.Errorf("%w: empty patch payload", ErrInvalid)
	}
	return s.q(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.TaskItem{}).Where("id = ? AND user_id = ?", id, userID).Count(&count).Error; err != nil {
			return wrap("patch task", err)
		}
		if count == 0 {
			return fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		if err := tx.Model(&models.TaskItem{}).Where("id = ? AND user_id = ?", id, userID).Updates(updates).Error; err != nil {
			return wrap("patch task", err)
		}
		return nil
	})
}

// DedupeIDs trims ids, drops blanks and keeps the first occurrence of each.
func DedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// BulkTasks applies action to the user's tasks in ids and returns how many
// rows changed. Postpone actions only touch pending tasks.
func (s *Store) BulkTasks(ctx context.Context, userID int64, ids []string, action string) (int, error) {
	ids = DedupeIDs(ids)
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no task ids provided", ErrInvalid)
	}
	switch action {
	case BulkMarkDone, BulkMarkPending, BulkCancel:
		status := map[string]string{
			BulkMarkDone:    view.StatusDone,
			BulkMarkPending: view.StatusPending,
			BulkCancel:      view.StatusCancelled,
		}[action]
		updates := map[string]any{"status": status, "completed_at": nil}
		if status == view.StatusDone {
			updates["completed_at"] = s.now().UTC()
		}
		res := s.q(ctx).Model(&models.TaskItem{}).
			Where("user_id = ? AND id IN ?", userID, ids).
			Updates(updates)
		if res.Error != nil {
			return 0, wrap("bulk "+action, res.Error)
		}
		return int(res.RowsAffected), nil
	case BulkPostponeDay, BulkPostponeWeek:
		days := 1
		if action == BulkPostponeWeek {
			days = 7
		}
		return s.postpone(ctx, userID, ids, days)
	default:
		return 0, fmt.Errorf("%w: unknown bulk action %q", ErrInvalid, action)
	}
}

func (s *Store) postpone(ctx context.Context, userID int64, ids []string, days int) (int, error) {
	updated := 0
	err := s.q(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.TaskItem
		if err := tx.Select("id", "due_date").
			Where("user_id = ? AND id IN ? AND status = ?", userID, ids, view.StatusPending).
			Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			if !dates.Valid(row.DueDate) {
				continue
			}
			res := tx.Model(&models.TaskItem{}).
				Where("id = ? AND user_id = ?", row.ID, userID).
				Update("due_date", dates.ShiftDate(row.DueDate, days))
			if res.Error != nil {
				return res.Error
			}
			updated += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, wrap("postpone tasks", err)
	}
	return updated, nil
}

// TaskDays returns (due_date, status) for the user's non-cancelled tasks due
// in [from, to].
func (s *Store) TaskDays(ctx context.Context, userID int64, from, to string) ([]derive.TaskDay, error) {
	var rows []derive.TaskDay
	err := s.q(ctx).Model(&models.TaskItem{}).
		Select("due_date, status").
		Where("user_id = ? AND due_date >= ? AND due_date <= ? AND status <> ?", userID, from, to, view.StatusCancelled).
		Scan(&rows).Error
	if err != nil {
		if absorb(err) == nil {
			return nil, nil
		}
		return nil, wrap("load task days", err)
	}
	return rows, nil
}

// PendingTaskDays returns (due_date, status) for every pending task.
func (s *Store) PendingTaskDays(ctx context.Context, userID int64) ([]derive.TaskDay, error) {
	var rows []derive.TaskDay
	err := s.q(ctx).Model(&models.TaskItem{}).
		Select("due_date, status").
		Where("user_id = ? AND status = ?", userID, view.StatusPending).
		Scan(&rows).Error
	if err != nil {
		if absorb(err) == nil {
			return nil, nil
		}
		return nil, wrap("load pending tasks", err)
	}
	return rows, nil
}

// Momentum loads the backlog series of days calendar days ending today.
func (s *Store) Momentum(ctx context.Context, userID int64, f dates.Frame, days int) ([]view.MomentumPoint, error) {
	n := derive.MomentumRange(days)
	rows, err := s.TaskDays(ctx, userID, dates.ShiftDate(f.Today, -(n-1)), f.Today)
	if err != nil {
		return nil, err
	}
	return derive.Momentum(rows, f.Today, n), nil
}

// Activity loads the seven-day activity series.
func (s *Store) Activity(ctx context.Context, userID int64, f dates.Frame) ([]view.ActivityPoint, error) {
	rows, err := s.TaskDays(ctx, userID, dates.ShiftDate(f.Today, -(derive.ActivityDays-1)), f.Today)
	if err != nil {
		return nil, err
	}
	return derive.Activity(rows, f.Today), nil
}

// Focus loads the pending-task focus distribution.
func (s *Store) Focus(ctx context.Context, userID int64, f dates.Frame) ([]view.FocusPoint, error) {
	rows, err := s.PendingTaskDays(ctx, userID)
	if err != nil {
		return nil, err
	}
	return derive.Focus(rows, f), nil
}

func emptyToNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
