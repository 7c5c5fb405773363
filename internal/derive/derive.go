// Package derive computes KPIs, risk items, decision cards, trend summaries,
// operational alerts and chart series from collections already loaded for
// one request. Nothing here touches the store.
package derive

import (
	"fmt"
	"math"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/view"
)

// Card tones.
const (
	ToneGood     = "good"
	ToneWarn     = "warn"
	ToneCritical = "critical"
)

// Alert levels.
const (
	LevelCritical = "critical"
	LevelWarn     = "warn"
	LevelInfo     = "info"
)

const (
	maxRiskItems   = 8
	maxAlerts      = 4
	recoveryAt     = 5
	criticalAt     = 5
	trendDropLimit = -10
)

// Pct returns round(100*part/total), or 0 when total is zero.
func Pct(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CountStatus counts tasks with the given status.
func CountStatus(tasks []view.Task, status string) int {
	n := 0
	for _, t := range tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

// HabitsDone counts habits completed today.
func HabitsDone(habits []view.Habit) int {
	n := 0
	for _, h := range habits {
		if h.CompletedToday {
			n++
		}
	}
	return n
}

// Overview computes the four KPI numbers.
func Overview(today, week, overdue []view.Task, habits []view.Habit) view.KPI {
	weekPct := Pct(CountStatus(week, view.StatusDone), len(week))
	habitsPct := Pct(HabitsDone(habits), len(habits))
	return view.KPI{
		DailyExecutionPct:    Pct(CountStatus(today, view.StatusDone), len(today)),
		WeeklyMomentumPct:    int(math.Round(0.7*float64(weekPct) + 0.3*float64(habitsPct))),
		OverdueCount:         len(overdue),
		HabitsConsistencyPct: habitsPct,
	}
}

type riskBand struct {
	severity string
	reason   string
	action   string
}

var riskBands = []struct {
	minDays int
	band    riskBand
}{
	{7, riskBand{view.PriorityHigh,
		"Long slip. This task undermines the credibility of the week plan.",
		"Cut the backlog and close this as the first block of the day."}},
	{3, riskBand{view.PriorityMedium,
		"Growing delay. Reschedule it or close it today.",
		"Book a 30-60 minute slot today and mark it when done."}},
	{0, riskBand{view.PriorityLow,
		"Fresh delay. Act before it turns critical.",
		"Move the date deliberately or close it in a quick block."}},
}

func bandFor(days int) riskBand {
	for _, b := range riskBands {
		if days >= b.minDays {
			return b.band
		}
	}
	return riskBands[len(riskBands)-1].band
}

// Risks projects the first eight overdue tasks into risk items. Overdue
// tasks arrive sorted by due date, so these are the oldest.
func Risks(overdue []view.Task, today string) []view.RiskItem {
	n := min(len(overdue), maxRiskItems)
	items := make([]view.RiskItem, 0, n)
	for _, t := range overdue[:n] {
		days := dates.DaysOverdue(today, t.DueDate)
		band := bandFor(days)
		items = append(items, view.RiskItem{
			ID:                t.ID,
			Title:             t.Title,
			Severity:          band.severity,
			DueDate:           t.DueDate,
			DaysOverdue:       days,
			Reason:            band.reason,
			RecommendedAction: band.action,
		})
	}
	return items
}

// DecisionCards returns the three standing cards plus a recovery card when
// the overdue queue reaches five.
func DecisionCards(kpi view.KPI, today, overdue []view.Task, habits []view.Habit) []view.DecisionCard {
	pendingToday := CountStatus(today, view.StatusPending)
	habitsDone := HabitsDone(habits)

	focus := view.DecisionCard{
		ID:           "d1",
		Title:        "Focus for the next 2 hours",
		Insight:      "Today's list is closed. You can move on to the week plan.",
		ActionLabel:  "Go to today's focus",
		ActionIntent: view.IntentFocus,
		Tone:         ToneGood,
	}
	if pendingToday > 0 {
		focus.Insight = fmt.Sprintf("You have %d open tasks today. Start with the single highest-impact one.", pendingToday)
		focus.Tone = ToneWarn
	}

	week := view.DecisionCard{
		ID:           "d2",
		Title:        "Week stability",
		Insight:      "No overdue items. Keep the pace and do not grow the list past 3 tasks a day.",
		ActionLabel:  "Open the risk queue",
		ActionIntent: view.IntentTasks,
		Tone:         ToneGood,
	}
	if kpi.OverdueCount > 0 {
		week.Insight = fmt.Sprintf("The critical queue holds %d overdue items. That is the main risk this week.", kpi.OverdueCount)
		week.Tone = ToneCritical
	}

	rhythm := view.DecisionCard{
		ID:           "d3",
		Title:        "Habit rhythm",
		Insight:      "No active habits. Add at least one daily ritual.",
		ActionLabel:  "Check habits",
		ActionIntent: view.IntentHabits,
		Tone:         ToneGood,
	}
	if len(habits) > 0 {
		rhythm.Insight = fmt.Sprintf("Habits today: %d/%d. Consistency drives weekly momentum.", habitsDone, len(habits))
	}
	if kpi.HabitsConsistencyPct < 50 {
		rhythm.Tone = ToneWarn
	}

	cards := []view.DecisionCard{focus, week, rhythm}
	if len(overdue) >= recoveryAt {
		cards = append(cards, view.DecisionCard{
			ID:           "d4",
			Title:        "Recovery mode",
			Insight:      "Overdue work is past the safe threshold. Run a short review and reschedule the 3 most important tasks.",
			ActionLabel:  "Open review",
			ActionIntent: view.IntentReview,
			Tone:         ToneCritical,
		})
	}
	return cards
}

// Trend compares the last seven momentum days against the seven before.
func Trend(series []view.MomentumPoint) view.TrendSummary {
	if len(series) == 0 {
		return view.TrendSummary{}
	}
	current := series[max(0, len(series)-7):]
	previous := series[max(0, len(series)-14):max(0, len(series)-7)]

	sum := func(points []view.MomentumPoint) (total, done, pending int) {
		for _, p := range points {
			total += p.Total
			done += p.Completed
			pending += p.Pending
		}
		return total, done, pending
	}
	curTotal, curDone, curBacklog := sum(current)
	prevTotal, prevDone, prevBacklog := sum(previous)
	curPct := Pct(curDone, curTotal)
	prevPct := Pct(prevDone, prevTotal)

	return view.TrendSummary{
		CurrentWeekExecutionPct:  curPct,
		PreviousWeekExecutionPct: prevPct,
		DeltaExecutionPct:        curPct - prevPct,
		CurrentWeekBacklog:       curBacklog,
		PreviousWeekBacklog:      prevBacklog,
		DeltaBacklog:             curBacklog - prevBacklog,
	}
}

// Alerts runs the ordered alert checklist. Check order is priority order and
// at most four alerts are returned.
func Alerts(kpi view.KPI, system view.SystemHealth, habits []view.Habit, trend view.TrendSummary) []view.OpsAlert {
	var alerts []view.OpsAlert

	if kpi.OverdueCount >= criticalAt {
		alerts = append(alerts, view.OpsAlert{
			ID:           "alert-overdue",
			Level:        LevelCritical,
			Title:        "Critical backlog",
			Detail:       fmt.Sprintf("Overdue tasks: %d. Reschedule quickly and close 2 items today.", kpi.OverdueCount),
			ActionIntent: view.IntentTasks,
		})
	}

	if system.PendingErrors > 0 || system.TotalErrors24h > 0 {
		level := LevelWarn
		if system.PendingErrors > 0 {
			level = LevelCritical
		}
		alerts = append(alerts, view.OpsAlert{
			ID:           "alert-system",
			Level:        level,
			Title:        "System errors",
			Detail:       fmt.Sprintf("Pending errors: %d, 24h: %d.", system.PendingErrors, system.TotalErrors24h),
			ActionIntent: view.IntentReview,
		})
	}

	if len(habits) > 0 && HabitsDone(habits) == 0 {
		alerts = append(alerts, view.OpsAlert{
			ID:           "alert-habits",
			Level:        LevelWarn,
			Title:        "No habits checked off",
			Detail:       "No habits are closed for today yet. Start with the easiest ritual.",
			ActionIntent: view.IntentHabits,
		})
	}

	if trend.DeltaExecutionPct < trendDropLimit {
		alerts = append(alerts, view.OpsAlert{
			ID:           "alert-trend",
			Level:        LevelWarn,
			Title:        "Week-over-week execution drop",
			Detail:       fmt.Sprintf("Execution fell by %d pp. Cut work in progress and pick 1 daily priority.", -trend.DeltaExecutionPct),
			ActionIntent: view.IntentFocus,
		})
	}

	if len(alerts) == 0 {
		alerts = append(alerts, view.OpsAlert{
			ID:           "alert-green",
			Level:        LevelInfo,
			Title:        "System stable",
			Detail:       "No critical operational alerts. Keep the pace and review regularly.",
			ActionIntent: view.IntentStrategy,
		})
	}
	if len(alerts) > maxAlerts {
		alerts = alerts[:maxAlerts]
	}
	return alerts
}
