// Package task turns stored task rows into view rows with a concrete
// priority and orders them for display.
package task

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/view"
)

// Sort keys.
const (
	SortSmart     = "smart"
	SortDueDate   = "due_date"
	SortPriority  = "priority"
	SortCreatedAt = "created_at"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// noteMarker matches the legacy priority tag embedded in notes, e.g. "[p:high]".
var noteMarker = regexp.MustCompile(`(?i)\[p:(high|medium|low)\]`)

// Filter narrows a normalized task list. Empty fields match everything.
type Filter struct {
	Status    string
	Priority  string
	ProjectID string
}

// ValidPriority reports whether p is one of high, medium or low.
func ValidPriority(p string) bool {
	return p == view.PriorityHigh || p == view.PriorityMedium || p == view.PriorityLow
}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	return s == view.StatusPending || s == view.StatusDone || s == view.StatusCancelled
}

// PriorityFromNote returns the priority named by a note marker, or "".
func PriorityFromNote(note string) string {
	m := noteMarker.FindStringSubmatch(note)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

// StripMarker removes every priority marker from note. A note left empty
// becomes nil.
func StripMarker(note *string) *string {
	if note == nil {
		return nil
	}
	clean := strings.TrimSpace(noteMarker.ReplaceAllString(*note, ""))
	if clean == "" {
		return nil
	}
	return &clean
}

// DerivePriority resolves a row's priority. The structured field wins, then
// a note marker, then a status and due-date heuristic.
func DerivePriority(row models.TaskItem, f dates.Frame) string {
	if row.Priority != nil && ValidPriority(*row.Priority) {
		return *row.Priority
	}
	if row.Note != nil {
		if p := PriorityFromNote(*row.Note); p != "" {
			return p
		}
	}
	switch {
	case row.Status == view.StatusDone:
		return view.PriorityLow
	case row.DueDate <= f.Today:
		return view.PriorityHigh
	case f.Week.Contains(row.DueDate):
		return view.PriorityMedium
	default:
		return view.PriorityLow
	}
}

// Normalize converts a stored row into its view form.
func Normalize(row models.TaskItem, f dates.Frame) view.Task {
	t := view.Task{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		DueDate:   row.DueDate,
		Status:    row.Status,
		Priority:  DerivePriority(row, f),
		Note:      StripMarker(row.Note),
		CreatedAt: dates.Stamp(row.CreatedAt),
	}
	if row.ProjectID != nil && *row.ProjectID != "" {
		id := *row.ProjectID
		t.ProjectID = &id
	}
	if row.CompletedAt != nil {
		s := dates.Stamp(*row.CompletedAt)
		t.CompletedAt = &s
	}
	return t
}

// NormalizeAll converts rows in order.
func NormalizeAll(rows []models.TaskItem, f dates.Frame) []view.Task {
	out := make([]view.Task, 0, len(rows))
	for _, row := range rows {
		out = append(out, Normalize(row, f))
	}
	return out
}

// Apply keeps the tasks matching every non-empty filter field. It runs on
// normalized tasks because priority is derived.
func Apply(tasks []view.Task, filter Filter) []view.Task {
	out := make([]view.Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			continue
		}
		if filter.ProjectID != "" && (t.ProjectID == nil || *t.ProjectID != filter.ProjectID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func statusRank(s string) int {
	switch s {
	case view.StatusPending:
		return 0
	case view.StatusDone:
		return 1
	default:
		return 2
	}
}

func priorityRank(p string) int {
	switch p {
	case view.PriorityHigh:
		return 0
	case view.PriorityMedium:
		return 1
	default:
		return 2
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// smartCompare orders by status, priority, due date and creation time.
func smartCompare(a, b view.Task) int {
	if c := cmpInt(statusRank(a.Status), statusRank(b.Status)); c != 0 {
		return c
	}
	if c := cmpInt(priorityRank(a.Priority), priorityRank(b.Priority)); c != 0 {
		return c
	}
	if c := strings.Compare(a.DueDate, b.DueDate); c != 0 {
		return c
	}
	if c := strings.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// keyCompare orders by one key with due date then id as tie-breakers.
func keyCompare(by string, a, b view.Task) int {
	var c int
	switch by {
	case SortPriority:
		c = cmpInt(priorityRank(a.Priority), priorityRank(b.Priority))
	case SortCreatedAt:
		c = strings.Compare(a.CreatedAt, b.CreatedAt)
	}
	if c != 0 {
		return c
	}
	if c := strings.Compare(a.DueDate, b.DueDate); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Sort returns a sorted copy of tasks. Unknown keys sort by due date and any
// direction other than desc is ascending.
func Sort(tasks []view.Task, by, dir string) []view.Task {
	out := make([]view.Task, len(tasks))
	copy(out, tasks)
	sign := 1
	if dir == Desc {
		sign = -1
	}
	sort.SliceStable(out, func(i, j int) bool {
		var c int
		if by == SortSmart || by == "" {
			c = smartCompare(out[i], out[j])
		} else {
			c = keyCompare(by, out[i], out[j])
		}
		return c*sign < 0
	})
	return out
}
