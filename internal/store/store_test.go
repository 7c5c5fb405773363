package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/db"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/task"
	"github.com/zulandar/cockpit/internal/view"
)

// Wednesday; the week runs 2026-03-02..2026-03-08.
var testNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

const (
	user  int64 = 7
	other int64 = 8
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

func testStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	gdb := openTestDB(t)
	return New(gdb, nil).WithNow(func() time.Time { return testNow }), gdb
}

func utcFrame() dates.Frame {
	return dates.NewClock(time.UTC).WithNow(func() time.Time { return testNow }).Frame()
}

func ptr[T any](v T) *T { return &v }

func mustCreate(t *testing.T, gdb *gorm.DB, rows ...any) {
	t.Helper()
	for _, r := range rows {
		if err := gdb.Create(r).Error; err != nil {
			t.Fatalf("create %T: %v", r, err)
		}
	}
}

func seedTasks(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	created := testNow.Add(-48 * time.Hour)
	mustCreate(t, gdb,
		&models.TaskItem{ID: "t1", UserID: user, Title: "today pending", DueDate: "2026-03-04", Status: "pending", CreatedAt: created},
		&models.TaskItem{ID: "t2", UserID: user, Title: "today done", DueDate: "2026-03-04", Status: "done", CreatedAt: created},
		&models.TaskItem{ID: "t3", UserID: user, Title: "overdue", DueDate: "2026-03-01", Status: "pending", Priority: ptr("low"), CreatedAt: created},
		&models.TaskItem{ID: "t4", UserID: user, Title: "old done", DueDate: "2026-03-01", Status: "done", CreatedAt: created},
		&models.TaskItem{ID: "t5", UserID: user, Title: "cancelled", DueDate: "2026-03-04", Status: "cancelled", CreatedAt: created},
		&models.TaskItem{ID: "t6", UserID: user, Title: "friday", DueDate: "2026-03-06", Status: "pending", Note: ptr("[p:low] later"), CreatedAt: created},
		&models.TaskItem{ID: "t7", UserID: other, Title: "not mine", DueDate: "2026-03-04", Status: "pending", CreatedAt: created},
	)
}

func taskIDs(tasks []view.Task) string {
	ids := make([]string, len(tasks))
	for i, tk := range tasks {
		ids[i] = tk.ID
	}
	return strings.Join(ids, ",")
}

func TestTasks_Scopes(t *testing.T) {
	s, gdb := testStore(t)
	seedTasks(t, gdb)
	ctx := context.Background()
	f := utcFrame()

	tests := []struct {
		scope string
		query TaskQuery
		want  string
	}{
		{ScopeToday, TaskQuery{}, "t1,t2"},
		{ScopeOverdue, TaskQuery{}, "t3"},
		{ScopeWeek, TaskQuery{}, "t1,t6,t2"},
		{ScopeToday, TaskQuery{Filter: task.Filter{Status: "cancelled"}}, "t5"},
		{ScopeWeek, TaskQuery{Filter: task.Filter{Priority: "low"}}, "t6,t2"},
		{ScopeWeek, TaskQuery{SortBy: task.SortDueDate, SortDir: task.Desc}, "t6,t2,t1"},
	}
	for _, tt := range tests {
		got, err := s.Tasks(ctx, user, f, tt.scope, tt.query)
		if err != nil {
			t.Fatalf("Tasks(%s): %v", tt.scope, err)
		}
		if ids := taskIDs(got); ids != tt.want {
			t.Errorf("Tasks(%s, %+v) = %s, want %s", tt.scope, tt.query, ids, tt.want)
		}
	}

	today, _ := s.Tasks(ctx, user, f, ScopeToday, TaskQuery{})
	if today[0].Priority != view.PriorityHigh {
		t.Errorf("t1 priority = %q, want high (due today)", today[0].Priority)
	}
	week, _ := s.Tasks(ctx, user, f, ScopeWeek, TaskQuery{})
	for _, tk := range week {
		if tk.ID == "t6" && (tk.Priority != view.PriorityLow || tk.Note == nil || *tk.Note != "later") {
			t.Errorf("t6 = priority %q note %v, want low/later", tk.Priority, tk.Note)
		}
	}

	if _, err := s.Tasks(ctx, user, f, "month", TaskQuery{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown scope error = %v, want ErrInvalid", err)
	}
}

func TestCreateAndPatchTask(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()

	id, err := s.CreateTask(ctx, user, NewTask{Title: "Call bank", DueDate: "2026-03-05", Priority: "low", Note: ptr("[p:high] about the loan")})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	var row models.TaskItem
	gdb.First(&row, "id = ?", id)
	if row.Status != "pending" || *row.Priority != "low" || row.Note == nil || *row.Note != "about the loan" {
		t.Errorf("created row = %+v", row)
	}

	if err := s.PatchTask(ctx, user, id, TaskPatch{Status: ptr("done")}); err != nil {
		t.Fatalf("PatchTask done: %v", err)
	}
	gdb.First(&row, "id = ?", id)
	if row.Status != "done" || row.CompletedAt == nil {
		t.Errorf("after done: status %q completed_at %v", row.Status, row.CompletedAt)
	}

	if err := s.PatchTask(ctx, user, id, TaskPatch{Status: ptr("pending"), SetNote: true}); err != nil {
		t.Fatalf("PatchTask pending: %v", err)
	}
	row = models.TaskItem{}
	gdb.First(&row, "id = ?", id)
	if row.CompletedAt != nil || row.Note != nil {
		t.Errorf("after pending: completed_at %v note %v, want both nil", row.CompletedAt, row.Note)
	}

	if err := s.PatchTask(ctx, other, id, TaskPatch{Title: ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign patch error = %v, want ErrNotFound", err)
	}
	if err := s.PatchTask(ctx, user, id, TaskPatch{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty patch error = %v, want ErrInvalid", err)
	}
}

func TestBulkTasks_PostponeWeek(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	mustCreate(t, gdb,
		&models.TaskItem{ID: "a", UserID: user, Title: "a", DueDate: "2026-03-04", Status: "pending"},
		&models.TaskItem{ID: "b", UserID: user, Title: "b", DueDate: "2026-03-04", Status: "done"},
		&models.TaskItem{ID: "c", UserID: user, Title: "c", DueDate: "2026-02-27", Status: "pending"},
		&models.TaskItem{ID: "d", UserID: user, Title: "d", DueDate: "2026-03-04", Status: "cancelled"},
		&models.TaskItem{ID: "e", UserID: other, Title: "e", DueDate: "2026-03-04", Status: "pending"},
	)

	n, err := s.BulkTasks(ctx, user, []string{"a", " b", "c", "d", "e", "a ", "missing"}, BulkPostponeWeek)
	if err != nil {
		t.Fatalf("BulkTasks: %v", err)
	}
	if n != 2 {
		t.Errorf("updatedCount = %d, want 2", n)
	}
	want := map[string]string{"a": "2026-03-11", "b": "2026-03-04", "c": "2026-03-06", "d": "2026-03-04", "e": "2026-03-04"}
	var rows []models.TaskItem
	gdb.Find(&rows)
	for _, r := range rows {
		if r.DueDate != want[r.ID] {
			t.Errorf("%s due_date = %s, want %s", r.ID, r.DueDate, want[r.ID])
		}
	}
}

func TestBulkTasks_Status(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	seedTasks(t, gdb)

	n, err := s.BulkTasks(ctx, user, []string{"t1", "t3", "t7"}, BulkMarkDone)
	if err != nil {
		t.Fatalf("BulkTasks: %v", err)
	}
	if n != 2 {
		t.Errorf("updatedCount = %d, want 2", n)
	}
	var row models.TaskItem
	gdb.First(&row, "id = ?", "t3")
	if row.Status != "done" || row.CompletedAt == nil {
		t.Errorf("t3 = %s/%v, want done with completed_at", row.Status, row.CompletedAt)
	}

	if _, err := s.BulkTasks(ctx, user, []string{" ", ""}, BulkCancel); !errors.Is(err, ErrInvalid) {
		t.Errorf("blank ids error = %v, want ErrInvalid", err)
	}
	if _, err := s.BulkTasks(ctx, user, []string{"t1"}, "archive"); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown action error = %v, want ErrInvalid", err)
	}
}

func TestDedupeIDs(t *testing.T) {
	got := DedupeIDs([]string{" a", "b", "a", "", "  ", "c "})
	if strings.Join(got, ",") != "a,b,c" {
		t.Errorf("DedupeIDs = %v", got)
	}
}

func TestStreak(t *testing.T) {
	days := map[string]bool{"2026-03-04": true, "2026-03-03": true, "2026-03-02": true, "2026-02-28": true}
	if got := Streak(days, "2026-03-04", 60); got != 3 {
		t.Errorf("Streak = %d, want 3", got)
	}
	if got := Streak(days, "2026-03-05", 60); got != 0 {
		t.Errorf("Streak without today = %d, want 0", got)
	}
	if got := Streak(days, "2026-03-04", 2); got != 2 {
		t.Errorf("Streak capped = %d, want 2", got)
	}
}

func TestHabits(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	mustCreate(t, gdb,
		&models.HabitDefinition{ID: "h1", UserID: user, Name: "Run", Cadence: "daily", TargetCount: 1, CreatedAt: testNow.Add(-time.Hour)},
		&models.HabitDefinition{ID: "h2", UserID: user, Name: "Read", Cadence: "weekly", TargetCount: 3, CreatedAt: testNow},
	)
	gdb.Model(&models.HabitDefinition{}).Where("id = ?", "h2").Update("active", false)

	noon := func(day string) time.Time { return dates.DayStart(day, time.UTC).Add(12 * time.Hour) }
	mustCreate(t, gdb,
		&models.HabitCompletion{HabitID: "h1", UserID: user, CompletedAt: noon("2026-03-04")},
		&models.HabitCompletion{HabitID: "h1", UserID: user, CompletedAt: noon("2026-03-04").Add(time.Hour)},
		&models.HabitCompletion{HabitID: "h1", UserID: user, CompletedAt: noon("2026-03-03")},
		&models.HabitCompletion{HabitID: "h1", UserID: user, CompletedAt: noon("2026-03-02")},
		&models.HabitCompletion{HabitID: "h1", UserID: user, CompletedAt: noon("2026-02-28")},
	)

	habits, err := s.Habits(ctx, user, utcFrame(), false)
	if err != nil {
		t.Fatalf("Habits: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("active habits = %d, want 1", len(habits))
	}
	h := habits[0]
	if !h.CompletedToday || h.StreakDays != 3 || h.CompletionsWeek != 3 {
		t.Errorf("h1 = today %v streak %d week %d, want true/3/3", h.CompletedToday, h.StreakDays, h.CompletionsWeek)
	}

	all, _ := s.Habits(ctx, user, utcFrame(), true)
	if len(all) != 2 || all[1].Active || all[1].Cadence != "weekly" {
		t.Errorf("catalog = %+v", all)
	}
}

func TestHabits_ZoneDay(t *testing.T) {
	s, gdb := testStore(t)
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	f := dates.NewClock(warsaw).WithNow(func() time.Time { return testNow }).Frame()
	mustCreate(t, gdb,
		&models.HabitDefinition{ID: "h1", UserID: user, Name: "Stretch"},
		// 00:30 on the 4th in Warsaw.
		&models.HabitCompletion{HabitID: "h1", UserID: user, CompletedAt: time.Date(2026, 3, 3, 23, 30, 0, 0, time.UTC)},
	)
	habits, err := s.Habits(context.Background(), user, f, false)
	if err != nil {
		t.Fatalf("Habits: %v", err)
	}
	if !habits[0].CompletedToday {
		t.Error("completion just after local midnight should count for today")
	}
}

func TestToggleHabit(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	f := utcFrame()
	mustCreate(t, gdb, &models.HabitDefinition{ID: "h1", UserID: user, Name: "Run"})

	got, err := s.ToggleHabit(ctx, user, "h1", f)
	if err != nil || got != ToggleCompleted {
		t.Fatalf("first toggle = %q, %v", got, err)
	}
	got, err = s.ToggleHabit(ctx, user, "h1", f)
	if err != nil || got != ToggleUncompleted {
		t.Fatalf("second toggle = %q, %v", got, err)
	}
	var count int64
	gdb.Model(&models.HabitCompletion{}).Count(&count)
	if count != 0 {
		t.Errorf("completions = %d, want 0", count)
	}
	if _, err := s.ToggleHabit(ctx, other, "h1", f); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign toggle error = %v, want ErrNotFound", err)
	}
}

func TestArchiveRestoreHabit(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	id, err := s.CreateHabit(ctx, user, NewHabit{Name: "Journal", TargetCount: 0})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}
	if err := s.SetHabitActive(ctx, user, id, false); err != nil {
		t.Fatalf("archive: %v", err)
	}
	var row models.HabitDefinition
	gdb.First(&row, "id = ?", id)
	if row.Active || row.Cadence != "daily" || row.TargetCount != 1 {
		t.Errorf("archived row = %+v", row)
	}
	if err := s.SetHabitActive(ctx, user, id, true); err != nil {
		t.Fatalf("restore: %v", err)
	}
	gdb.First(&row, "id = ?", id)
	if !row.Active {
		t.Error("restore should set active")
	}
	if err := s.SetHabitActive(ctx, user, "nope", false); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing habit error = %v, want ErrNotFound", err)
	}
}

func TestLoaders_MissingTables(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	f := utcFrame()
	for _, table := range []string{
		"task_items", "habit_definitions", "habit_completions", "projects", "outcomes", "bot_knowledge",
		"events", "life_events", "daily_reviews", "memory_chunks", "reminders", "system_logs", "user_preferences",
	} {
		if err := gdb.Migrator().DropTable(table); err != nil {
			t.Fatalf("drop %s: %v", table, err)
		}
	}

	if got, err := s.Tasks(ctx, user, f, ScopeToday, TaskQuery{}); err != nil || len(got) != 0 {
		t.Errorf("Tasks = %v, %v", got, err)
	}
	if got, err := s.Habits(ctx, user, f, false); err != nil || len(got) != 0 {
		t.Errorf("Habits = %v, %v", got, err)
	}
	if got, err := s.Inbox(ctx, user); err != nil || len(got) != 0 {
		t.Errorf("Inbox = %v, %v", got, err)
	}
	if got, err := s.Knowledge(ctx, user); err != nil || len(got) != 0 {
		t.Errorf("Knowledge = %v, %v", got, err)
	}
	if got, err := s.Signals(ctx, user); err != nil || len(got) != 0 {
		t.Errorf("Signals = %v, %v", got, err)
	}
	if got, err := s.LatestReview(ctx, user); err != nil || got != nil {
		t.Errorf("LatestReview = %v, %v", got, err)
	}
	if got, err := s.Strategy(ctx, user, f); err != nil || len(got.Projects) != 1 || got.Projects[0].ID != DerivedProjectID {
		t.Errorf("Strategy = %+v, %v", got, err)
	}
	if got, err := s.Momentum(ctx, user, f, 30); err != nil || len(got) != 30 {
		t.Errorf("Momentum = %d points, %v", len(got), err)
	}
	if got, err := s.Heatmap(ctx, user, f, 0); err != nil || len(got) != 28 {
		t.Errorf("Heatmap = %d points, %v", len(got), err)
	}
	if got, err := s.Ops(ctx, user); err != nil || got.System.LatestError != nil {
		t.Errorf("Ops = %+v, %v", got, err)
	}
	prefs, err := s.UIPrefs(ctx, user)
	if err != nil || prefs.CockpitSection != "overview" {
		t.Errorf("UIPrefs = %+v, %v", prefs, err)
	}
	if err := s.SaveUIPrefs(ctx, user, prefs); err != nil {
		t.Errorf("SaveUIPrefs on missing table: %v", err)
	}
	s.LogEvent(ctx, user, "ignored")
}

func TestInbox_MergesNewestFirst(t *testing.T) {
	s, gdb := testStore(t)
	mustCreate(t, gdb,
		&models.Event{UserID: user, Role: "assistant", Content: "reply", CreatedAt: testNow.Add(-time.Minute)},
		&models.Event{UserID: user, Role: "tool", Content: "hi", CreatedAt: testNow.Add(-3 * time.Minute)},
		&models.LifeEvent{UserID: user, RawText: "slept well", CreatedAt: testNow.Add(-2 * time.Minute)},
		&models.Event{UserID: other, Content: "foreign", CreatedAt: testNow},
	)
	items, err := s.Inbox(context.Background(), user)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.Source+":"+it.Role+":"+it.Category)
	}
	want := "events:assistant:Inbox,life_events:system:life_event,events:user:Inbox"
	if strings.Join(got, ",") != want {
		t.Errorf("Inbox = %v, want %s", got, want)
	}
}

func TestKnowledge(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	mustCreate(t, gdb, &models.LifeEvent{UserID: user, Category: "health", RawText: "Walked 10k steps", CreatedAt: testNow})

	items, err := s.Knowledge(ctx, user)
	if err != nil {
		t.Fatalf("Knowledge: %v", err)
	}
	if len(items) != 1 || items[0].Tags != "life_event" || items[0].Title != "Walked 10k steps" {
		t.Errorf("fallback knowledge = %+v", items)
	}

	mustCreate(t, gdb,
		&models.BotKnowledge{ID: "k1", UserID: ptr(user), Fact: "Prefers mornings", Tags: `["time","focus"]`},
		&models.BotKnowledge{ID: "k2", Source: "import", Title: "Shared", Content: "Shared fact"},
		&models.BotKnowledge{ID: "k3", UserID: ptr(other), Title: "Hidden"},
	)
	items, err = s.Knowledge(ctx, user)
	if err != nil {
		t.Fatalf("Knowledge: %v", err)
	}
	byID := map[string]view.Knowledge{}
	for _, it := range items {
		byID[it.ID] = it
	}
	if len(byID) != 2 {
		t.Fatalf("knowledge ids = %v, want k1,k2", byID)
	}
	if k := byID["k1"]; k.Content != "Prefers mornings" || k.Title != "Prefers mornings" || k.Tags != "time,focus" || k.Category != "operations" {
		t.Errorf("k1 = %+v", k)
	}
	if k := byID["k2"]; k.Category != "import" || k.Tags != "import" {
		t.Errorf("k2 = %+v", k)
	}
}

func TestTaskFromKnowledge(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	mustCreate(t, gdb, &models.BotKnowledge{ID: "k1", Title: "Renew passport", Content: "Office opens at 8"})

	id, err := s.TaskFromKnowledge(ctx, user, "k1", utcFrame(), KnowledgeAction{Priority: "high"})
	if err != nil {
		t.Fatalf("TaskFromKnowledge: %v", err)
	}
	var row models.TaskItem
	gdb.First(&row, "id = ?", id)
	if row.Title != "From knowledge: Renew passport" || row.DueDate != "2026-03-04" || *row.Priority != "high" || *row.Note != "Office opens at 8" {
		t.Errorf("task = %+v", row)
	}
	if _, err := s.TaskFromKnowledge(ctx, user, "missing", utcFrame(), KnowledgeAction{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing knowledge error = %v, want ErrNotFound", err)
	}
}

func TestStrategy(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	f := utcFrame()

	derived, err := s.Strategy(ctx, user, f)
	if err != nil {
		t.Fatalf("Strategy: %v", err)
	}
	if derived.Outcomes[0].Status != OutcomeOffTrack || derived.Projects[0].Deadline != "2026-03-08" {
		t.Errorf("derived = %+v", derived)
	}

	mustCreate(t, gdb,
		&models.Project{ID: "p1", UserID: user, Name: "Launch"},
		&models.Outcome{ID: "o1", ProjectID: "p1", Name: "Beta", Progress: 1},
		&models.Outcome{ID: "o2", ProjectID: "p1", Progress: 250},
		&models.TaskItem{ID: "x1", UserID: user, Title: "x", DueDate: "2026-03-01", Status: "pending", ProjectID: ptr("p1")},
		&models.TaskItem{ID: "x2", UserID: user, Title: "y", DueDate: "2026-03-05", Status: "done", ProjectID: ptr("p1")},
	)
	got, err := s.Strategy(ctx, user, f)
	if err != nil {
		t.Fatalf("Strategy: %v", err)
	}
	p := got.Projects[0]
	if p.TaskTotal != 2 || p.TaskDone != 1 || p.TaskOverdue != 1 || p.ExecutionPct != 50 || p.Status != "active" {
		t.Errorf("project = %+v", p)
	}
	progress := map[string]int{}
	for _, o := range got.Outcomes {
		progress[o.ID] = o.Progress
	}
	// o1: 100*0.6 + 50*0.4; o2 clamps to 100 first.
	if progress["o1"] != 80 || progress["o2"] != 80 {
		t.Errorf("outcome progress = %v, want 80/80", progress)
	}
}

func TestOutcomeHelpers(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{{0.456, 46}, {1, 100}, {0, 0}, {55, 55}, {-3, 0}, {140, 100}}
	for _, tt := range tests {
		if got := OutcomeProgress(tt.raw); got != tt.want {
			t.Errorf("OutcomeProgress(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
	if OutcomeStatus(70) != OutcomeOnTrack || OutcomeStatus(40) != OutcomeAtRisk || OutcomeStatus(39) != OutcomeOffTrack {
		t.Error("OutcomeStatus thresholds")
	}
}

func TestReviews(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	f := utcFrame()

	if r, err := s.LatestReview(ctx, user); err != nil || r != nil {
		t.Fatalf("LatestReview empty = %v, %v", r, err)
	}
	day, err := s.SaveReview(ctx, user, f, ReviewInput{Summary: "ok", TomorrowPlan: "1) a"})
	if err != nil || day != "2026-03-04" {
		t.Fatalf("SaveReview = %q, %v", day, err)
	}
	if _, err := s.SaveReview(ctx, user, f, ReviewInput{ReviewDate: "2026-03-04", Summary: "better"}); err != nil {
		t.Fatalf("SaveReview upsert: %v", err)
	}
	if _, err := s.SaveReview(ctx, user, f, ReviewInput{ReviewDate: "2026-03-01", Summary: "old"}); err != nil {
		t.Fatalf("SaveReview old: %v", err)
	}

	latest, err := s.LatestReview(ctx, user)
	if err != nil || latest == nil {
		t.Fatalf("LatestReview = %v, %v", latest, err)
	}
	if latest.ReviewDate != "2026-03-04" || latest.Summary != "better" || latest.UpdatedAt == "" {
		t.Errorf("latest = %+v", latest)
	}
	old, _ := s.ReviewOn(ctx, user, "2026-03-01")
	if old == nil || old.Summary != "old" {
		t.Errorf("ReviewOn = %+v", old)
	}
	if none, _ := s.ReviewOn(ctx, user, "2026-01-01"); none != nil {
		t.Errorf("ReviewOn missing = %+v, want nil", none)
	}
}

func TestUIPrefs_RoundTrip(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	prefs := view.DefaultUIPrefs()
	prefs.CockpitSection = "ops"
	prefs.PanelPrefs.Risk = false
	prefs.HiddenAdviceIDs["rb-keep"] = true

	if err := s.SaveUIPrefs(ctx, user, prefs); err != nil {
		t.Fatalf("SaveUIPrefs: %v", err)
	}
	prefs.CockpitSection = "insights"
	if err := s.SaveUIPrefs(ctx, user, prefs); err != nil {
		t.Fatalf("SaveUIPrefs again: %v", err)
	}
	got, err := s.UIPrefs(ctx, user)
	if err != nil {
		t.Fatalf("UIPrefs: %v", err)
	}
	if got.CockpitSection != "insights" || got.PanelPrefs.Risk || !got.HiddenAdviceIDs["rb-keep"] {
		t.Errorf("prefs = %+v", got)
	}
}

func TestOps(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	recent := testNow.Add(-time.Hour)
	stale := testNow.Add(-48 * time.Hour)
	due := testNow.Add(time.Hour)
	mustCreate(t, gdb,
		&models.Event{UserID: user, Content: "Muszę to w końcu zrobić", CreatedAt: recent},
		&models.Event{UserID: user, Content: "ok", CreatedAt: recent},
		&models.Event{UserID: user, Content: "odkladam", CreatedAt: stale},
		&models.LifeEvent{UserID: user, Category: "work", CreatedAt: recent},
		&models.LifeEvent{UserID: user, Category: "work", CreatedAt: recent},
		&models.LifeEvent{UserID: user, Category: "health", CreatedAt: recent},
		&models.MemoryChunk{UserID: user, SourceType: "chat", CreatedAt: recent},
		&models.MemoryChunk{UserID: user, CreatedAt: stale},
		&models.Reminder{UserID: user, Status: "pending", DueAt: &due, CreatedAt: recent},
		&models.Reminder{UserID: user, Status: "failed", CreatedAt: recent},
		&models.Reminder{UserID: user, Status: "sent", CreatedAt: stale},
		&models.SystemLog{Module: "bot", Message: "boom", Level: "error", Status: "pending", Timestamp: recent},
		&models.SystemLog{Module: "bot", Message: "older", Level: "error", Status: "resolved", Timestamp: stale},
		&models.SystemLog{Module: "bot", Message: "fine", Level: "info", Timestamp: recent},
	)

	ops, err := s.Ops(ctx, user)
	if err != nil {
		t.Fatalf("Ops: %v", err)
	}
	c := ops.Conversation
	if c.Messages24h != 2 || c.LifeEvents24h != 3 || c.PendingSignals != 1 {
		t.Errorf("conversation = %+v", c)
	}
	if len(c.TopCategories) != 2 || c.TopCategories[0] != (view.CategoryCount{Category: "work", Count: 2}) {
		t.Errorf("top categories = %+v", c.TopCategories)
	}
	if m := ops.Memory; m.ChunkCount != 2 || len(m.SourceBreakdown) != 2 || m.LastIndexedAt != dates.Stamp(recent) {
		t.Errorf("memory = %+v", m)
	}
	if r := ops.Reminders; r.Pending != 1 || r.Failed24h != 1 || r.Sent24h != 0 || r.NextDueAt != dates.Stamp(due) {
		t.Errorf("reminders = %+v", r)
	}
	sys := ops.System
	if sys.PendingErrors != 1 || sys.TotalErrors24h != 1 || sys.LatestError == nil || sys.LatestError.Message != "boom" {
		t.Errorf("system = %+v", sys)
	}
}

func TestLogEvent(t *testing.T) {
	s, gdb := testStore(t)
	s.LogEvent(context.Background(), user, "  "+strings.Repeat("x", 1500))
	s.LogEvent(context.Background(), user, "   ")

	var rows []models.Event
	gdb.Find(&rows)
	if len(rows) != 1 {
		t.Fatalf("events = %d, want 1", len(rows))
	}
	if rows[0].Category != ActivityCategory || rows[0].Role != "assistant" || len([]rune(rows[0].Content)) != 1200 {
		t.Errorf("event = category %q role %q len %d", rows[0].Category, rows[0].Role, len(rows[0].Content))
	}
}

func TestCharts(t *testing.T) {
	s, gdb := testStore(t)
	ctx := context.Background()
	f := utcFrame()
	seedTasks(t, gdb)

	activity, err := s.Activity(ctx, user, f)
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	last := activity[len(activity)-1]
	if len(activity) != 7 || last.Total != 2 || last.Completed != 1 {
		t.Errorf("activity today = %+v (len %d)", last, len(activity))
	}

	focus, err := s.Focus(ctx, user, f)
	if err != nil {
		t.Fatalf("Focus: %v", err)
	}
	wantFocus := []int{1, 1, 1, 0}
	for i, p := range focus {
		if p.Value != wantFocus[i] {
			t.Errorf("focus[%s] = %d, want %d", p.Name, p.Value, wantFocus[i])
		}
	}

	momentum, err := s.Momentum(ctx, user, f, 3)
	if err != nil {
		t.Fatalf("Momentum: %v", err)
	}
	if len(momentum) != 7 || momentum[0].Date != "2026-02-26" {
		t.Errorf("momentum range = %d from %s, want 7 from 2026-02-26", len(momentum), momentum[0].Date)
	}
}
