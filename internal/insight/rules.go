package insight

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zulandar/cockpit/internal/derive"
	"github.com/zulandar/cockpit/internal/view"
)

// Moods.
const (
	MoodPositive = "positive"
	MoodNeutral  = "neutral"
	MoodNegative = "negative"
)

// Horizons.
const (
	HorizonToday = "today"
	HorizonWeek  = "week"
)

const (
	maxAdvice         = 5
	maxReflections    = 8
	defaultCategory   = "Reflection"
	pendingSignalsMin = 3
)

// The keyword sets match the language the journal is written in (Polish),
// with and without diacritics.
var (
	negativeWords = regexp.MustCompile(`(?i)(stres|problem|blad|błąd|zmecz|zmęcz|nie zdaz|nie wyrab|chaos|trudno|opozni|opóźni|frustr|kryzys)`)
	positiveWords = regexp.MustCompile(`(?i)(dobrze|sukces|zrobione|postep|postęp|spoko|udalo|udało|jest moc|stabilnie|domkniete|domknięte)`)
	whitespace    = regexp.MustCompile(`\s+`)
)

// DetectMood classifies free text by keyword. Negative keywords win.
func DetectMood(text string) string {
	lower := strings.ToLower(text)
	switch {
	case negativeWords.MatchString(lower):
		return MoodNegative
	case positiveWords.MatchString(lower):
		return MoodPositive
	default:
		return MoodNeutral
	}
}

// MoodScore is the default score for a mood.
func MoodScore(mood string) int {
	switch mood {
	case MoodPositive:
		return 72
	case MoodNegative:
		return 38
	default:
		return 55
	}
}

// Clip collapses whitespace and cuts s to limit runes, marking the cut with an
// ellipsis.
func Clip(s string, limit int) string {
	text := strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:max(1, limit-1)]) + "…"
}

// ClipLines is Clip that keeps line breaks, trimming each line.
func ClipLines(s string, limit int) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(whitespace.ReplaceAllString(line, " ")); line != "" {
			kept = append(kept, line)
		}
	}
	text := strings.Join(kept, "\n")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:max(1, limit-1)]) + "…"
}

// RuleInput is what the rule ladder looks at.
type RuleInput struct {
	KPI            view.KPI
	TasksToday     []view.Task
	TasksOverdue   []view.Task
	Habits         []view.Habit
	PendingSignals int
}

// RuleAdvice walks a fixed ladder of conditions. When none applies it emits a
// single steady-state card.
func RuleAdvice(in RuleInput) []view.AdviceItem {
	pendingToday := derive.CountStatus(in.TasksToday, view.StatusPending)
	doneToday := derive.CountStatus(in.TasksToday, view.StatusDone)
	habitsDone := derive.HabitsDone(in.Habits)

	var cards []view.AdviceItem
	if n := len(in.TasksOverdue); n > 0 {
		priority := view.PriorityMedium
		if n >= 5 {
			priority = view.PriorityHigh
		}
		cards = append(cards, view.AdviceItem{
			ID:           "rb-overdue",
			Title:        "Cut off the source of slippage",
			Rationale:    fmt.Sprintf("You have %d overdue tasks. Closing the 1-2 oldest gives the most leverage.", n),
			ActionLabel:  "Go to the critical queue",
			ActionIntent: view.IntentTasks,
			Priority:     priority,
			Horizon:      HorizonToday,
		})
	}
	if pendingToday >= 3 {
		cards = append(cards, view.AdviceItem{
			ID:           "rb-focus",
			Title:        "Reduce today's fragmentation",
			Rationale:    fmt.Sprintf("Open today: %d. Block 90 minutes for one high-impact task without context switching.", pendingToday),
			ActionLabel:  "Open today's focus",
			ActionIntent: view.IntentFocus,
			Priority:     view.PriorityHigh,
			Horizon:      HorizonToday,
		})
	}
	if len(in.Habits) > 0 && in.KPI.HabitsConsistencyPct < 60 {
		cards = append(cards, view.AdviceItem{
			ID:           "rb-habits",
			Title:        "Rebuild the habit rhythm",
			Rationale:    fmt.Sprintf("Habits today: %d/%d. Higher consistency steadies the week's execution.", habitsDone, len(in.Habits)),
			ActionLabel:  "Check habits",
			ActionIntent: view.IntentHabits,
			Priority:     view.PriorityMedium,
			Horizon:      HorizonWeek,
		})
	}
	if in.PendingSignals >= pendingSignalsMin {
		cards = append(cards, view.AdviceItem{
			ID:           "rb-review",
			Title:        "Close the decision loops",
			Rationale:    "Conversations show a growing number of put-off signals. Run a short review and give each decision a date.",
			ActionLabel:  "Open review",
			ActionIntent: view.IntentReview,
			Priority:     view.PriorityMedium,
			Horizon:      HorizonToday,
		})
	}
	if len(cards) == 0 {
		cards = append(cards, view.AdviceItem{
			ID:           "rb-keep",
			Title:        "Keep the pace",
			Rationale:    fmt.Sprintf("Closed today: %d. Things look stable; keep the rhythm and do not add parallel topics.", doneToday),
			ActionLabel:  "Go to strategy",
			ActionIntent: view.IntentStrategy,
			Priority:     view.PriorityLow,
			Horizon:      HorizonWeek,
		})
	}
	if len(cards) > maxAdvice {
		cards = cards[:maxAdvice]
	}
	return cards
}

type moodTemplate struct {
	insight string
	action  string
}

var moodTemplates = map[string]moodTemplate{
	MoodNegative: {
		"The entry signals operational friction; turn it into one concrete decision or one fixing task.",
		"Add one fixing task due today or tomorrow.",
	},
	MoodPositive: {
		"The entry shows a working pattern. Lock it in as a habit or a weekly standard.",
		"Write a short checklist of the repeatable steps and reuse it.",
	},
	MoodNeutral: {
		"Neutral signal. Check whether the topic needs a decision, a date or clarification.",
		"Decide: drop it, delegate it or schedule it for a specific day.",
	},
}

// RuleReflections reads the first eight signals back through the mood
// classifier and a canned template per mood.
func RuleReflections(signals []view.Signal) []view.ReflectionItem {
	n := min(len(signals), maxReflections)
	items := make([]view.ReflectionItem, 0, n)
	for i, s := range signals[:n] {
		mood := DetectMood(s.RawText)
		tpl := moodTemplates[mood]
		category := s.Category
		if category == "" {
			category = defaultCategory
		}
		items = append(items, view.ReflectionItem{
			ID:              fmt.Sprintf("rb-ref-%d-%s", i, s.ID),
			Category:        category,
			Excerpt:         Clip(s.RawText, 180),
			Insight:         tpl.insight,
			SuggestedAction: tpl.action,
			CreatedAt:       s.CreatedAt,
			Mood:            mood,
			Score:           MoodScore(mood),
		})
	}
	return items
}

// FallbackReview is the deterministic review draft.
func FallbackReview(today, overdue []view.Task, habits []view.Habit) view.ReviewDraft {
	return view.ReviewDraft{
		Summary: fmt.Sprintf("Done today: %d. Open today: %d. Overdue: %d. Habits done: %d/%d.",
			derive.CountStatus(today, view.StatusDone),
			derive.CountStatus(today, view.StatusPending),
			len(overdue),
			derive.HabitsDone(habits),
			len(habits),
		),
		TomorrowPlan: strings.Join([]string{
			"1) One strategic task as the first 90-minute block.",
			"2) Close the single oldest overdue item.",
			"3) Check off at least one habit before 10:00.",
		}, "\n"),
	}
}
