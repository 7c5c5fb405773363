package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/zulandar/cockpit/internal/view"
)

type fakeClient struct {
	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration
	users []string
}

func (f *fakeClient) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.users = append(f.users, user)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeClient) Model() string { return "fake" }

func fixedNow() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }

func newGen(c *fakeClient) *Generator {
	var g *Generator
	if c == nil {
		g = New(nil, time.Second, nil)
	} else {
		g = New(c, time.Second, nil)
	}
	g.now = fixedNow
	return g
}

func sampleInput() Input {
	return Input{
		KPI:          view.KPI{DailyExecutionPct: 40, HabitsConsistencyPct: 30},
		TasksToday:   []view.Task{{Status: view.StatusPending}, {Status: view.StatusPending}, {Status: view.StatusPending}},
		TasksOverdue: []view.Task{{ID: "o1"}},
		Habits:       []view.Habit{{ID: "h1"}},
		Signals: []view.Signal{
			{ID: "s1", Category: "work", RawText: "Duży stres przed demo", CreatedAt: "2026-03-04T08:00:00.000Z"},
			{ID: "s2", RawText: "Wszystko zrobione", CreatedAt: "2026-03-04T09:00:00.000Z"},
		},
	}
}

func TestDetectMood(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Mam dziś stres", MoodNegative},
		{"Duży BŁĄD na produkcji", MoodNegative},
		{"Zadanie zrobione, jest moc", MoodPositive},
		{"udało się, ale chaos", MoodNegative},
		{"Spotkanie o 15", MoodNeutral},
		{"", MoodNeutral},
	}
	for _, tt := range tests {
		if got := DetectMood(tt.text); got != tt.want {
			t.Errorf("DetectMood(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestClip(t *testing.T) {
	if got := Clip("  a   b\n c ", 10); got != "a b c" {
		t.Errorf("Clip collapse = %q", got)
	}
	if got := Clip("abcdef", 4); got != "abc…" {
		t.Errorf("Clip cut = %q", got)
	}
	if got := Clip("zażółć gęślą", 6); got != "zażół…" {
		t.Errorf("Clip runes = %q", got)
	}
	if got := ClipLines("1) a\r\n\n  2)   b  \n", 100); got != "1) a\n2) b" {
		t.Errorf("ClipLines = %q", got)
	}
}

func TestRuleAdvice(t *testing.T) {
	advice := RuleAdvice(RuleInput{
		KPI:            view.KPI{HabitsConsistencyPct: 20},
		TasksToday:     sampleInput().TasksToday,
		TasksOverdue:   make([]view.Task, 6),
		Habits:         []view.Habit{{}, {}},
		PendingSignals: 4,
	})
	var ids []string
	for _, a := range advice {
		ids = append(ids, a.ID)
	}
	if got := strings.Join(ids, ","); got != "rb-overdue,rb-focus,rb-habits,rb-review" {
		t.Fatalf("ids = %s", got)
	}
	if advice[0].Priority != view.PriorityHigh {
		t.Errorf("overdue priority = %q, want high with 6 overdue", advice[0].Priority)
	}

	calm := RuleAdvice(RuleInput{KPI: view.KPI{HabitsConsistencyPct: 100}})
	if len(calm) != 1 || calm[0].ID != "rb-keep" || calm[0].ActionIntent != view.IntentStrategy {
		t.Errorf("calm advice = %+v", calm)
	}
}

func TestRuleReflections(t *testing.T) {
	signals := make([]view.Signal, 10)
	for i := range signals {
		signals[i] = view.Signal{ID: "x", RawText: "notatka"}
	}
	signals[0] = view.Signal{ID: "a", Category: "zdrowie", RawText: "frustracja"}
	got := RuleReflections(signals)
	if len(got) != maxReflections {
		t.Fatalf("len = %d, want %d", len(got), maxReflections)
	}
	if got[0].ID != "rb-ref-0-a" || got[0].Mood != MoodNegative || got[0].Score != 38 || got[0].Category != "zdrowie" {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Category != defaultCategory || got[1].Score != 55 {
		t.Errorf("second = %+v", got[1])
	}
	if RuleReflections(nil) == nil {
		t.Error("RuleReflections(nil) should be an empty slice")
	}
}

func TestParseAdvice(t *testing.T) {
	arr := gjson.Parse(`[
		{"title":"Close X","rationale":"because","actionIntent":" Habits ","priority":"HIGH","horizon":"today"},
		{"title":"","rationale":"dropped"},
		{"title":"Plan","rationale":"r","actionIntent":"dance","priority":"urgent","horizon":"year"},
		{"title":"a","rationale":"b"},{"title":"a","rationale":"b"},{"title":"a","rationale":"b"},{"title":"a","rationale":"b"}
	]`)
	got := ParseAdvice(arr)
	if len(got) != maxAdvice {
		t.Fatalf("len = %d, want %d", len(got), maxAdvice)
	}
	first := got[0]
	if first.ID != "ai-adv-0" || first.ActionIntent != view.IntentHabits || first.Priority != view.PriorityHigh ||
		first.Horizon != HorizonToday || first.ActionLabel != "Go to tasks" {
		t.Errorf("first = %+v", first)
	}
	second := got[1]
	if second.ID != "ai-adv-2" || second.ActionIntent != view.IntentTasks || second.Priority != view.PriorityMedium || second.Horizon != HorizonWeek {
		t.Errorf("second = %+v", second)
	}
	if ParseAdvice(gjson.Parse(`{"title":"x"}`)) != nil {
		t.Error("non-array should parse to nil")
	}
}

func TestParseReflections(t *testing.T) {
	arr := gjson.Parse(`[
		{"category":"Praca","sourceSnippet":"stres","insight":"i1","mood":"NEGATIVE","score":140},
		{"insight":"i2","mood":"happy","score":"41.6"},
		{"insight":"i3","mood":"positive","score":"n/a"},
		{"insight":"","mood":"positive"},
		{"insight":"i5","score":-3}
	]`)
	got := ParseReflections(arr, "2026-03-04T10:00:00.000Z")
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	tests := []struct {
		id, category, mood string
		score              int
	}{
		{"ai-ref-0", "Praca", MoodNegative, 100},
		{"ai-ref-1", defaultCategory, MoodNeutral, 42},
		{"ai-ref-2", defaultCategory, MoodPositive, 72},
		{"ai-ref-4", defaultCategory, MoodNeutral, 0},
	}
	for i, tt := range tests {
		r := got[i]
		if r.ID != tt.id || r.Category != tt.category || r.Mood != tt.mood || r.Score != tt.score {
			t.Errorf("item %d = %+v, want %+v", i, r, tt)
		}
		if r.CreatedAt != "2026-03-04T10:00:00.000Z" {
			t.Errorf("item %d created_at = %q", i, r.CreatedAt)
		}
	}
	if got[0].Excerpt != "stres" {
		t.Errorf("excerpt = %q", got[0].Excerpt)
	}
}

func TestGenerate_Disabled(t *testing.T) {
	g := newGen(nil)
	advice, reflections := g.Generate(context.Background(), sampleInput())
	if len(advice) == 0 || !strings.HasPrefix(advice[0].ID, "rb-") {
		t.Errorf("advice = %+v, want rule-based", advice)
	}
	if len(reflections) != 2 || !strings.HasPrefix(reflections[0].ID, "rb-ref-") {
		t.Errorf("reflections = %+v", reflections)
	}
}

func TestGenerate_Model(t *testing.T) {
	fake := &fakeClient{reply: "```json\n" + `{
		"advice":[{"title":"T","rationale":"R","actionIntent":"focus","priority":"low","horizon":"today"}],
		"reflections":[{"category":"C","sourceSnippet":"S","insight":"I","suggestedAction":"A","mood":"positive","score":90}]
	}` + "\n```"}
	g := newGen(fake)
	advice, reflections := g.Generate(context.Background(), sampleInput())
	if len(advice) != 1 || advice[0].ID != "ai-adv-0" || advice[0].ActionIntent != view.IntentFocus {
		t.Errorf("advice = %+v", advice)
	}
	if len(reflections) != 1 || reflections[0].Score != 90 || reflections[0].CreatedAt != "2026-03-04T10:00:00.000Z" {
		t.Errorf("reflections = %+v", reflections)
	}
	if len(fake.users) != 1 {
		t.Fatalf("calls = %d", len(fake.users))
	}
	prompt := fake.users[0]
	for _, want := range []string{`"pendingToday":3`, `"lifeEvents":[`, "Duży stres przed demo", `"review":null`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %s", want)
		}
	}
}

func TestGenerate_PartialFallback(t *testing.T) {
	fake := &fakeClient{reply: `{"advice":[{"title":"T","rationale":"R"}],"reflections":[{"insight":""}]}`}
	advice, reflections := newGen(fake).Generate(context.Background(), sampleInput())
	if advice[0].ID != "ai-adv-0" {
		t.Errorf("advice = %+v, want model advice", advice)
	}
	if len(reflections) == 0 || !strings.HasPrefix(reflections[0].ID, "rb-ref-") {
		t.Errorf("reflections = %+v, want rule-based", reflections)
	}
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name string
		c    *fakeClient
	}{
		{"transport error", &fakeClient{err: errors.New("503")}},
		{"no json", &fakeClient{reply: "sorry"}},
		{"timeout", &fakeClient{reply: `{"advice":[]}`, delay: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGen(tt.c)
			g.timeout = 20 * time.Millisecond
			start := time.Now()
			advice, reflections := g.Generate(context.Background(), sampleInput())
			if time.Since(start) > 5*time.Second {
				t.Fatal("Generate did not respect the timeout")
			}
			if !strings.HasPrefix(advice[0].ID, "rb-") || !strings.HasPrefix(reflections[0].ID, "rb-ref-") {
				t.Errorf("got %+v / %+v, want rule-based", advice, reflections)
			}
		})
	}
}

func TestReviewDraft(t *testing.T) {
	in := ReviewInput{
		TasksToday:   []view.Task{{Title: "a", Status: view.StatusDone}, {Title: "b", Status: view.StatusPending}},
		TasksOverdue: []view.Task{{Title: "c"}},
		Habits:       []view.Habit{{Name: "run", CompletedToday: true}, {Name: "read"}},
		LatestReview: &view.Review{Summary: "yesterday"},
	}

	fallback := newGen(nil).ReviewDraft(context.Background(), in)
	if fallback.Summary != "Done today: 1. Open today: 1. Overdue: 1. Habits done: 1/2." {
		t.Errorf("fallback summary = %q", fallback.Summary)
	}
	if strings.Count(fallback.TomorrowPlan, "\n") != 2 {
		t.Errorf("fallback plan = %q", fallback.TomorrowPlan)
	}

	fake := &fakeClient{reply: `{"summary":"Good day.","tomorrow_plan":"1) x\n2) y"}`}
	got := newGen(fake).ReviewDraft(context.Background(), in)
	if got.Summary != "Good day." || got.TomorrowPlan != "1) x\n2) y" {
		t.Errorf("draft = %+v", got)
	}
	if !strings.Contains(fake.users[0], `"previousReview":{"summary":"yesterday"`) {
		t.Errorf("prompt = %s", fake.users[0])
	}

	empty := newGen(&fakeClient{reply: `{"summary":"only summary"}`}).ReviewDraft(context.Background(), in)
	if empty != fallback {
		t.Errorf("partial draft = %+v, want fallback", empty)
	}
}
