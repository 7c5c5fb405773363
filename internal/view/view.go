// Package view holds the read models served by the dashboard API.
//
// Field names follow the JSON contract consumed by the browser client, which is
// why some are snake_case and others camelCase.
package view

// Task statuses.
const (
	StatusPending   = "pending"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// Priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Action intents shared by cards, advice and alerts.
const (
	IntentFocus    = "focus"
	IntentTasks    = "tasks"
	IntentHabits   = "habits"
	IntentStrategy = "strategy"
	IntentReview   = "review"
)

// Task is a normalized task row. Priority is always concrete.
type Task struct {
	ID          string  `json:"id"`
	UserID      int64   `json:"user_id"`
	Title       string  `json:"title"`
	DueDate     string  `json:"due_date"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	ProjectID   *string `json:"project_id"`
	Note        *string `json:"note"`
	CreatedAt   string  `json:"created_at"`
	CompletedAt *string `json:"completed_at"`
}

// Habit is a habit definition enriched with completion stats.
type Habit struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Cadence         string `json:"cadence"`
	TargetCount     int    `json:"target_count"`
	CompletedToday  bool   `json:"completed_today"`
	Active          bool   `json:"active"`
	CompletionsWeek int    `json:"completions_week"`
	StreakDays      int    `json:"streak_days"`
}

// KPI is the four-number overview.
type KPI struct {
	DailyExecutionPct    int `json:"dailyExecutionPct"`
	WeeklyMomentumPct    int `json:"weeklyMomentumPct"`
	OverdueCount         int `json:"overdueCount"`
	HabitsConsistencyPct int `json:"habitsConsistencyPct"`
}

// ActivityPoint is one day of the 7-day activity chart.
type ActivityPoint struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// FocusPoint is one bucket of the focus distribution chart.
type FocusPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Color string `json:"color"`
}

// HeatmapPoint is one day of the habit heatmap.
type HeatmapPoint struct {
	Date        string  `json:"date"`
	Label       string  `json:"label"`
	Completions int     `json:"completions"`
	Target      int     `json:"target"`
	Ratio       float64 `json:"ratio"`
}

// MomentumPoint is one day of the momentum/backlog series.
type MomentumPoint struct {
	Date      string `json:"date"`
	Label     string `json:"label"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
	Overdue   int    `json:"overdue"`
}

// RiskItem flags an overdue task.
type RiskItem struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	Severity          string `json:"severity"`
	DueDate           string `json:"due_date"`
	DaysOverdue       int    `json:"daysOverdue"`
	Reason            string `json:"reason"`
	RecommendedAction string `json:"recommendedAction"`
}

// DecisionCard is a fixed-slot card on the overview.
type DecisionCard struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Insight      string `json:"insight"`
	ActionLabel  string `json:"actionLabel"`
	ActionIntent string `json:"actionIntent"`
	Tone         string `json:"tone"`
}

// AdviceItem is a single piece of advice, rule-based or generated.
type AdviceItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Rationale    string `json:"rationale"`
	ActionLabel  string `json:"actionLabel"`
	ActionIntent string `json:"actionIntent"`
	Priority     string `json:"priority"`
	Horizon      string `json:"horizon"`
}

// ReflectionItem reads one journal entry back to the user.
type ReflectionItem struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	Excerpt         string `json:"excerpt"`
	Insight         string `json:"insight"`
	SuggestedAction string `json:"suggestedAction"`
	CreatedAt       string `json:"created_at"`
	Mood            string `json:"mood"`
	Score           int    `json:"score"`
}

// OpsAlert is one operational alert.
type OpsAlert struct {
	ID           string `json:"id"`
	Level        string `json:"level"`
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	ActionIntent string `json:"actionIntent"`
}

// TrendSummary compares the last 7 days of momentum with the 7 before.
type TrendSummary struct {
	CurrentWeekExecutionPct  int `json:"currentWeekExecutionPct"`
	PreviousWeekExecutionPct int `json:"previousWeekExecutionPct"`
	DeltaExecutionPct        int `json:"deltaExecutionPct"`
	CurrentWeekBacklog       int `json:"currentWeekBacklog"`
	PreviousWeekBacklog      int `json:"previousWeekBacklog"`
	DeltaBacklog             int `json:"deltaBacklog"`
}

// PanelPrefs toggles overview panels.
type PanelPrefs struct {
	Charts bool `json:"charts"`
	Advice bool `json:"advice"`
	Risk   bool `json:"risk"`
}

// UIPrefs is the persisted dashboard layout document.
type UIPrefs struct {
	CockpitSection  string            `json:"cockpitSection"`
	PanelPrefs      PanelPrefs        `json:"panelPrefs"`
	HiddenAdviceIDs map[string]bool   `json:"hiddenAdviceIds"`
	InboxTriage     map[string]string `json:"inboxTriage"`
}

// Project is a project with task rollups.
type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Deadline     string `json:"deadline"`
	TaskTotal    int    `json:"task_total"`
	TaskDone     int    `json:"task_done"`
	TaskOverdue  int    `json:"task_overdue"`
	ExecutionPct int    `json:"execution_pct"`
}

// Outcome is a project outcome with blended progress.
type Outcome struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
}

// Strategy groups projects and outcomes.
type Strategy struct {
	Projects []Project `json:"projects"`
	Outcomes []Outcome `json:"outcomes"`
}

// Knowledge is one knowledge-base entry.
type Knowledge struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Tags     string `json:"tags"`
}

// Review is a daily review.
type Review struct {
	ReviewDate   string `json:"review_date"`
	Summary      string `json:"summary"`
	TomorrowPlan string `json:"tomorrow_plan"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// ReviewDraft is a proposed review produced by the copilot.
type ReviewDraft struct {
	Summary      string `json:"summary"`
	TomorrowPlan string `json:"tomorrow_plan"`
}

// CategoryCount is a category with its occurrence count.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// SourceCount is a memory source type with its chunk count.
type SourceCount struct {
	SourceType string `json:"sourceType"`
	Count      int    `json:"count"`
}

// ConversationSummary covers the last 24 hours of messages.
type ConversationSummary struct {
	Messages24h    int             `json:"messages24h"`
	LifeEvents24h  int             `json:"lifeEvents24h"`
	TopCategories  []CategoryCount `json:"topCategories"`
	PendingSignals int             `json:"pendingSignals"`
}

// MemorySummary describes the memory index.
type MemorySummary struct {
	ChunkCount      int           `json:"chunkCount"`
	SourceBreakdown []SourceCount `json:"sourceBreakdown"`
	LastIndexedAt   string        `json:"lastIndexedAt"`
}

// ReminderSummary describes the reminder queue.
type ReminderSummary struct {
	Pending   int    `json:"pending"`
	Sending   int    `json:"sending"`
	Sent24h   int    `json:"sent24h"`
	Failed24h int    `json:"failed24h"`
	NextDueAt string `json:"nextDueAt"`
}

// LatestError is the most recent system error.
type LatestError struct {
	Module    string `json:"module"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// SystemHealth summarizes the system error log.
type SystemHealth struct {
	PendingErrors  int          `json:"pendingErrors"`
	TotalErrors24h int          `json:"totalErrors24h"`
	LatestError    *LatestError `json:"latestError"`
}

// Ops groups the operational sub-summaries.
type Ops struct {
	Conversation ConversationSummary `json:"conversation"`
	Memory       MemorySummary       `json:"memory"`
	Reminders    ReminderSummary     `json:"reminders"`
	System       SystemHealth        `json:"system"`
}

// InboxItem is one entry of the merged inbox.
type InboxItem struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Role      string `json:"role"`
	Category  string `json:"category"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Signal is a journal entry used as input for reflections.
type Signal struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	RawText   string `json:"raw_text"`
	CreatedAt string `json:"created_at"`
}

// Snapshot is the full dashboard payload. It is never mutated after assembly.
type Snapshot struct {
	Overview      KPI              `json:"overview"`
	TasksToday    []Task           `json:"tasksToday"`
	TasksWeek     []Task           `json:"tasksWeek"`
	TasksOverdue  []Task           `json:"tasksOverdue"`
	Habits        []Habit          `json:"habits"`
	HabitsCatalog []Habit          `json:"habitsCatalog"`
	Inbox         []InboxItem      `json:"inbox"`
	Strategy      Strategy         `json:"strategy"`
	Knowledge     []Knowledge      `json:"knowledge"`
	ActivityData  []ActivityPoint  `json:"activityData"`
	FocusData     []FocusPoint     `json:"focusData"`
	MomentumData  []MomentumPoint  `json:"momentumData"`
	HabitsHeatmap []HeatmapPoint   `json:"habitsHeatmap"`
	RiskItems     []RiskItem       `json:"riskItems"`
	DecisionCards []DecisionCard   `json:"decisionCards"`
	Advice        []AdviceItem     `json:"advice"`
	Reflections   []ReflectionItem `json:"reflections"`
	Alerts        []OpsAlert       `json:"alerts"`
	TrendSummary  TrendSummary     `json:"trendSummary"`
	UIPrefs       UIPrefs          `json:"uiPrefs"`
	Review        *Review          `json:"review"`
	Ops           Ops              `json:"ops"`
	GeneratedAt   string           `json:"generatedAt"`
}
