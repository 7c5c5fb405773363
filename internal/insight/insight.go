// Package insight produces advice and reflection items. It asks a model
// first and falls back to deterministic rules on any failure, so callers
// always get a usable result.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/derive"
	"github.com/zulandar/cockpit/internal/llm"
	"github.com/zulandar/cockpit/internal/telemetry"
	"github.com/zulandar/cockpit/internal/view"
)

const scope = "github.com/zulandar/cockpit/insight"

var fallbackCounter metric.Int64Counter

var metricsOnce sync.Once

func initMetrics() {
	fallbackCounter, _ = telemetry.Meter(scope).Int64Counter("cockpit.insight.fallbacks",
		metric.WithDescription("Insight requests answered by the rule-based path after a model failure"),
	)
}

// Input is everything the generator may look at for one snapshot.
type Input struct {
	KPI          view.KPI
	TasksToday   []view.Task
	TasksOverdue []view.Task
	Habits       []view.Habit
	Review       *view.Review
	Conversation view.ConversationSummary
	Signals      []view.Signal
}

// ReviewInput feeds the review copilot.
type ReviewInput struct {
	TasksToday   []view.Task
	TasksOverdue []view.Task
	Habits       []view.Habit
	LatestReview *view.Review
	Signals      []view.Signal
}

// Generator builds advice, reflections and review drafts. A nil client means
// the model is disabled.
type Generator struct {
	client  llm.Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// New returns a generator. timeout bounds every model call.
func New(client llm.Client, timeout time.Duration, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metricsOnce.Do(initMetrics)
	return &Generator{client: client, timeout: timeout, logger: logger, now: time.Now}
}

// Enabled reports whether a model is configured.
func (g *Generator) Enabled() bool { return g.client != nil }

// Generate returns advice and reflections. It never fails.
func (g *Generator) Generate(ctx context.Context, in Input) ([]view.AdviceItem, []view.ReflectionItem) {
	ruleAdvice := RuleAdvice(RuleInput{
		KPI:            in.KPI,
		TasksToday:     in.TasksToday,
		TasksOverdue:   in.TasksOverdue,
		Habits:         in.Habits,
		PendingSignals: in.Conversation.PendingSignals,
	})
	ruleReflections := RuleReflections(in.Signals)
	if !g.Enabled() {
		return ruleAdvice, ruleReflections
	}

	ctx, span := telemetry.Tracer(scope).Start(ctx, "insight.generate")
	defer span.End()

	doc, err := g.structured(ctx, "insights", adviceSystemPrompt, adviceUserPrompt(in))
	if err != nil {
		return ruleAdvice, ruleReflections
	}

	advice := ParseAdvice(doc.Get("advice"))
	reflections := ParseReflections(doc.Get("reflections"), dates.Stamp(g.now()))
	span.SetAttributes(
		attribute.Int("cockpit.insight.advice", len(advice)),
		attribute.Int("cockpit.insight.reflections", len(reflections)),
	)
	if len(advice) == 0 {
		g.countFallback(ctx, "empty_advice")
		advice = ruleAdvice
	}
	if len(reflections) == 0 {
		g.countFallback(ctx, "empty_reflections")
		reflections = ruleReflections
	}
	return advice, reflections
}

// ReviewDraft proposes a daily review. It never fails.
func (g *Generator) ReviewDraft(ctx context.Context, in ReviewInput) view.ReviewDraft {
	fallback := FallbackReview(in.TasksToday, in.TasksOverdue, in.Habits)
	if !g.Enabled() {
		return fallback
	}
	doc, err := g.structured(ctx, "review", reviewSystemPrompt, reviewUserPrompt(in))
	if err != nil {
		return fallback
	}
	summary := Clip(doc.Get("summary").String(), 2000)
	plan := ClipLines(doc.Get("tomorrow_plan").String(), 3000)
	if summary == "" || plan == "" {
		g.countFallback(ctx, "empty_review")
		return fallback
	}
	return view.ReviewDraft{Summary: summary, TomorrowPlan: plan}
}

// structured runs one bounded model call. Failures are logged and counted.
func (g *Generator) structured(ctx context.Context, kind, system, user string) (gjson.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	doc, err := llm.GenerateStructured(ctx, g.client, system, user)
	if err != nil {
		g.logger.Warn("insight: model unavailable, using rules", "kind", kind, "model", g.client.Model(), "error", err)
		g.countFallback(ctx, kind)
		return gjson.Result{}, err
	}
	return doc, nil
}

func (g *Generator) countFallback(ctx context.Context, reason string) {
	if fallbackCounter != nil {
		fallbackCounter.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// ParseAdvice validates model advice items. Items without a title or
// rationale are dropped; out-of-enum fields get safe defaults.
func ParseAdvice(arr gjson.Result) []view.AdviceItem {
	if !arr.IsArray() {
		return nil
	}
	var out []view.AdviceItem
	for i, item := range arr.Array() {
		a := view.AdviceItem{
			ID:           fmt.Sprintf("ai-adv-%d", i),
			Title:        Clip(item.Get("title").String(), 120),
			Rationale:    Clip(item.Get("rationale").String(), 280),
			ActionLabel:  Clip(orDefault(item.Get("actionLabel").String(), "Go to tasks"), 48),
			ActionIntent: NormalizeIntent(item.Get("actionIntent").String()),
			Priority:     view.PriorityMedium,
			Horizon:      HorizonWeek,
		}
		switch strings.ToLower(item.Get("priority").String()) {
		case view.PriorityHigh:
			a.Priority = view.PriorityHigh
		case view.PriorityLow:
			a.Priority = view.PriorityLow
		}
		if strings.ToLower(item.Get("horizon").String()) == HorizonToday {
			a.Horizon = HorizonToday
		}
		if a.Title == "" || a.Rationale == "" {
			continue
		}
		out = append(out, a)
		if len(out) == maxAdvice {
			break
		}
	}
	return out
}

// ParseReflections validates model reflection items. Items without an
// insight are dropped; scores are clamped to [0,100] with mood defaults.
func ParseReflections(arr gjson.Result, createdAt string) []view.ReflectionItem {
	if !arr.IsArray() {
		return nil
	}
	var out []view.ReflectionItem
	for i, item := range arr.Array() {
		mood := strings.ToLower(item.Get("mood").String())
		if mood != MoodPositive && mood != MoodNegative {
			mood = MoodNeutral
		}
		r := view.ReflectionItem{
			ID:              fmt.Sprintf("ai-ref-%d", i),
			Category:        Clip(orDefault(item.Get("category").String(), defaultCategory), 60),
			Excerpt:         Clip(item.Get("sourceSnippet").String(), 180),
			Insight:         Clip(item.Get("insight").String(), 280),
			SuggestedAction: Clip(item.Get("suggestedAction").String(), 180),
			CreatedAt:       createdAt,
			Mood:            mood,
			Score:           scoreOf(item.Get("score"), mood),
		}
		if r.Insight == "" {
			continue
		}
		out = append(out, r)
		if len(out) == maxReflections {
			break
		}
	}
	return out
}

// NormalizeIntent maps a model-supplied intent onto the fixed set, defaulting
// to tasks.
func NormalizeIntent(s string) string {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case view.IntentFocus, view.IntentTasks, view.IntentHabits, view.IntentStrategy, view.IntentReview:
		return v
	}
	return view.IntentTasks
}

func scoreOf(r gjson.Result, mood string) int {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return MoodScore(mood)
		}
		v = f
	default:
		return MoodScore(mood)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return MoodScore(mood)
	}
	return derive.Clamp(int(math.Round(v)), 0, 100)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

const adviceSystemPrompt = "You are the operations coach behind a CEO dashboard. " +
	"Return ONLY valid JSON with no markdown and no comments. " +
	"Write short, concrete advice and reflections based on the input data. " +
	"Do not invent facts beyond the input. " +
	"actionIntent must be one of: focus,tasks,habits,strategy,review. " +
	"priority: high|medium|low; horizon: today|week; mood: positive|neutral|negative; score: 0-100."

const reviewSystemPrompt = "You are an executive review assistant. You return only valid JSON."

type adviceMetrics struct {
	DailyExecutionPct    int                  `json:"dailyExecutionPct"`
	WeeklyMomentumPct    int                  `json:"weeklyMomentumPct"`
	OverdueCount         int                  `json:"overdueCount"`
	HabitsConsistencyPct int                  `json:"habitsConsistencyPct"`
	PendingToday         int                  `json:"pendingToday"`
	PendingSignals24h    int                  `json:"pendingSignals24h"`
	TopCategories24h     []view.CategoryCount `json:"topCategories24h"`
}

type reviewClip struct {
	Summary      string `json:"summary"`
	TomorrowPlan string `json:"tomorrow_plan"`
}

type lifeSample struct {
	Category  string `json:"category"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at,omitempty"`
}

func adviceUserPrompt(in Input) string {
	payload := struct {
		Metrics    adviceMetrics `json:"metrics"`
		Review     *reviewClip   `json:"review"`
		LifeEvents []lifeSample  `json:"lifeEvents"`
	}{
		Metrics: adviceMetrics{
			DailyExecutionPct:    in.KPI.DailyExecutionPct,
			WeeklyMomentumPct:    in.KPI.WeeklyMomentumPct,
			OverdueCount:         in.KPI.OverdueCount,
			HabitsConsistencyPct: in.KPI.HabitsConsistencyPct,
			PendingToday:         derive.CountStatus(in.TasksToday, view.StatusPending),
			PendingSignals24h:    in.Conversation.PendingSignals,
			TopCategories24h:     in.Conversation.TopCategories,
		},
		LifeEvents: []lifeSample{},
	}
	if in.Review != nil {
		payload.Review = &reviewClip{
			Summary:      Clip(in.Review.Summary, 400),
			TomorrowPlan: Clip(in.Review.TomorrowPlan, 400),
		}
	}
	for _, s := range in.Signals[:min(len(in.Signals), 20)] {
		payload.LifeEvents = append(payload.LifeEvents, lifeSample{
			Category:  s.Category,
			Text:      Clip(s.RawText, 240),
			CreatedAt: s.CreatedAt,
		})
	}
	return strings.Join([]string{
		"Return JSON shaped like:",
		"{",
		`  "advice": [{"title":"...","rationale":"...","actionLabel":"...","actionIntent":"tasks","priority":"high","horizon":"today"}],`,
		`  "reflections": [{"category":"...","sourceSnippet":"...","insight":"...","suggestedAction":"...","mood":"neutral","score":60}]`,
		"}",
		"Requirements:",
		"- advice: 3-5 items, as concrete as possible.",
		"- reflections: 4-8 items, grounded in lifeEvents.",
		"- sourceSnippet is a short quote or paraphrase of the signal.",
		"",
		mustJSON(payload),
	}, "\n")
}

func reviewUserPrompt(in ReviewInput) string {
	type taskLine struct {
		Title    string `json:"title"`
		Status   string `json:"status,omitempty"`
		DueDate  string `json:"due_date"`
		Priority string `json:"priority"`
	}
	type habitLine struct {
		Name           string `json:"name"`
		CompletedToday bool   `json:"completed_today"`
		StreakDays     int    `json:"streak_days"`
	}
	payload := struct {
		TasksToday     []taskLine   `json:"tasksToday"`
		TasksOverdue   []taskLine   `json:"tasksOverdue"`
		Habits         []habitLine  `json:"habits"`
		PreviousReview *reviewClip  `json:"previousReview"`
		Reflections    []lifeSample `json:"reflections"`
	}{
		TasksToday:   []taskLine{},
		TasksOverdue: []taskLine{},
		Habits:       []habitLine{},
		Reflections:  []lifeSample{},
	}
	for _, t := range in.TasksToday[:min(len(in.TasksToday), 20)] {
		payload.TasksToday = append(payload.TasksToday, taskLine{t.Title, t.Status, t.DueDate, t.Priority})
	}
	for _, t := range in.TasksOverdue[:min(len(in.TasksOverdue), 12)] {
		payload.TasksOverdue = append(payload.TasksOverdue, taskLine{Title: t.Title, DueDate: t.DueDate, Priority: t.Priority})
	}
	for _, h := range in.Habits[:min(len(in.Habits), 12)] {
		payload.Habits = append(payload.Habits, habitLine{h.Name, h.CompletedToday, h.StreakDays})
	}
	if in.LatestReview != nil {
		payload.PreviousReview = &reviewClip{
			Summary:      Clip(in.LatestReview.Summary, 500),
			TomorrowPlan: Clip(in.LatestReview.TomorrowPlan, 500),
		}
	}
	for _, s := range in.Signals[:min(len(in.Signals), 12)] {
		payload.Reflections = append(payload.Reflections, lifeSample{Category: s.Category, Text: Clip(s.RawText, 180)})
	}
	return strings.Join([]string{
		`Return JSON without markdown: {"summary":"...","tomorrow_plan":"..."}.`,
		"summary: 3-5 sentences summing up the day.",
		"tomorrow_plan: 3-6 concrete points, one per line, focused on execution and cutting the backlog.",
		mustJSON(payload),
	}, "\n")
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
