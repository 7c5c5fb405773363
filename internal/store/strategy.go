package store

import (
	"context"
	"math"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/derive"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/view"
)

// Strategy limits and the synthesized fallback ids.
const (
	projectLimit = 25
	outcomeLimit = 200

	DerivedProjectID = "derived-execution"
	DerivedOutcomeID = "derived-outcome-execution"
)

// Outcome statuses.
const (
	OutcomeOnTrack  = "on_track"
	OutcomeAtRisk   = "at_risk"
	OutcomeOffTrack = "off_track"
)

// Strategy loads the user's projects with task rollups and their outcomes.
// Outcome progress blends its stored value (60%) with the project's
// execution (40%). A user without projects gets one project derived from
// this week's tasks.
func (s *Store) Strategy(ctx context.Context, userID int64, f dates.Frame) (view.Strategy, error) {
	var projectRows []models.Project
	err := s.q(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(projectLimit).Find(&projectRows).Error
	if absorb(err) != nil {
		return view.Strategy{}, wrap("load projects", err)
	}
	if len(projectRows) == 0 {
		return s.derivedStrategy(ctx, userID, f)
	}

	projects := make([]view.Project, 0, len(projectRows))
	ids := make([]string, 0, len(projectRows))
	for _, p := range projectRows {
		ids = append(ids, p.ID)
		projects = append(projects, view.Project{
			ID:       p.ID,
			Name:     orDefault(p.Name, "Project"),
			Status:   orDefault(p.Status, "active"),
			Deadline: p.Deadline,
		})
	}

	var outcomeRows []models.Outcome
	err = s.q(ctx).Where("project_id IN ?", ids).Limit(outcomeLimit).Find(&outcomeRows).Error
	if absorb(err) != nil {
		return view.Strategy{}, wrap("load outcomes", err)
	}
	outcomes := make([]view.Outcome, 0, len(outcomeRows))
	for _, o := range outcomeRows {
		outcomes = append(outcomes, view.Outcome{
			ID:        o.ID,
			ProjectID: o.ProjectID,
			Name:      orDefault(o.Name, "Outcome"),
			Status:    orDefault(o.Status, OutcomeOnTrack),
			Progress:  OutcomeProgress(o.Progress),
		})
	}

	type statRow struct {
		ProjectID string
		Status    string
		DueDate   string
	}
	var stats []statRow
	err = s.q(ctx).Model(&models.TaskItem{}).
		Select("project_id, status, due_date").
		Where("user_id = ? AND project_id IN ? AND status <> ?", userID, ids, view.StatusCancelled).
		Scan(&stats).Error
	if absorb(err) != nil {
		return view.Strategy{}, wrap("load project tasks", err)
	}
	if err != nil {
		return view.Strategy{Projects: projects, Outcomes: outcomes}, nil
	}

	index := make(map[string]int, len(projects))
	for i, p := range projects {
		index[p.ID] = i
	}
	for _, st := range stats {
		i, ok := index[st.ProjectID]
		if !ok {
			continue
		}
		projects[i].TaskTotal++
		switch {
		case st.Status == view.StatusDone:
			projects[i].TaskDone++
		case st.Status == view.StatusPending && st.DueDate < f.Today:
			projects[i].TaskOverdue++
		}
	}
	for i := range projects {
		projects[i].ExecutionPct = derive.Pct(projects[i].TaskDone, projects[i].TaskTotal)
	}
	for i, o := range outcomes {
		if j, ok := index[o.ProjectID]; ok {
			outcomes[i].Progress = BlendProgress(o.Progress, projects[j].ExecutionPct)
		}
	}
	return view.Strategy{Projects: projects, Outcomes: outcomes}, nil
}

func (s *Store) derivedStrategy(ctx context.Context, userID int64, f dates.Frame) (view.Strategy, error) {
	rows, err := s.TaskDays(ctx, userID, f.Week.From, f.Week.To)
	if err != nil {
		return view.Strategy{}, err
	}
	total, done, overdue := len(rows), 0, 0
	for _, r := range rows {
		switch {
		case r.Status == view.StatusDone:
			done++
		case r.Status == view.StatusPending && r.DueDate < f.Today:
			overdue++
		}
	}
	execution := derive.Pct(done, total)
	status := "active"
	if overdue > 0 {
		status = OutcomeAtRisk
	}
	return view.Strategy{
		Projects: []view.Project{{
			ID:           DerivedProjectID,
			Name:         "Weekly execution (derived)",
			Status:       status,
			Deadline:     f.Week.To,
			TaskTotal:    total,
			TaskDone:     done,
			TaskOverdue:  overdue,
			ExecutionPct: execution,
		}},
		Outcomes: []view.Outcome{{
			ID:        DerivedOutcomeID,
			ProjectID: DerivedProjectID,
			Name:      "Stable weekly execution",
			Status:    OutcomeStatus(execution),
			Progress:  execution,
		}},
	}, nil
}

// OutcomeProgress reads a stored progress value. Values up to 1 are
// fractions; larger values are percentages. The result is in [0,100].
func OutcomeProgress(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	if raw <= 1 {
		raw *= 100
	}
	return derive.Clamp(int(math.Round(raw)), 0, 100)
}

// BlendProgress weights an outcome's own progress 60/40 against its project's
// execution.
func BlendProgress(progress, execution int) int {
	return derive.Clamp(int(math.Round(float64(progress)*0.6+float64(execution)*0.4)), 0, 100)
}

// OutcomeStatus grades an execution percentage.
func OutcomeStatus(execution int) string {
	switch {
	case execution >= 70:
		return OutcomeOnTrack
	case execution >= 40:
		return OutcomeAtRisk
	default:
		return OutcomeOffTrack
	}
}
