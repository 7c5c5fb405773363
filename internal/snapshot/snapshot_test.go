package snapshot

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/db"
	"github.com/zulandar/cockpit/internal/insight"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/store"
	"github.com/zulandar/cockpit/internal/view"
)

const user int64 = 3

// testClock is a settable clock shared by the store and the builder.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Connect(db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

func newBuilder(t *testing.T) (*Builder, *gorm.DB, *testClock) {
	t.Helper()
	gdb := testDB(t)
	tc := &testClock{now: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)}
	st := store.New(gdb, nil).WithNow(tc.Now)
	clock := dates.NewClock(time.UTC).WithNow(tc.Now)
	return NewBuilder(st, insight.New(nil, time.Second, nil), clock, nil), gdb, tc
}

func seed(t *testing.T, gdb *gorm.DB, rows ...any) {
	t.Helper()
	for _, r := range rows {
		if err := gdb.Create(r).Error; err != nil {
			t.Fatalf("create %T: %v", r, err)
		}
	}
}

func TestBuild_EmptyStore(t *testing.T) {
	b, _, _ := newBuilder(t)
	snap, err := b.Build(context.Background(), user)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if snap.GeneratedAt != "2026-03-04T10:00:00.000Z" {
		t.Errorf("GeneratedAt = %q", snap.GeneratedAt)
	}
	if len(snap.TasksToday) != 0 || len(snap.Habits) != 0 {
		t.Errorf("expected empty collections, got %d tasks %d habits", len(snap.TasksToday), len(snap.Habits))
	}
	if len(snap.HabitsHeatmap) != 28 || len(snap.ActivityData) != 7 || len(snap.MomentumData) != 30 {
		t.Errorf("chart lengths = heatmap %d activity %d momentum %d", len(snap.HabitsHeatmap), len(snap.ActivityData), len(snap.MomentumData))
	}
	if len(snap.Advice) == 0 {
		t.Error("advice should fall back to the steady-state card")
	}
	if len(snap.Strategy.Projects) != 1 || snap.Strategy.Projects[0].ID != store.DerivedProjectID {
		t.Errorf("strategy = %+v, want derived project", snap.Strategy)
	}
	if snap.UIPrefs.CockpitSection != "overview" {
		t.Errorf("ui prefs = %+v, want defaults", snap.UIPrefs)
	}
	if len(snap.DecisionCards) == 0 {
		t.Error("decision cards should always be present")
	}
}

func TestBuild_KPIScenario(t *testing.T) {
	b, gdb, tc := newBuilder(t)
	seed(t, gdb,
		&models.TaskItem{ID: "a", UserID: user, Title: "a", DueDate: "2026-03-04", Status: "done"},
		&models.TaskItem{ID: "b", UserID: user, Title: "b", DueDate: "2026-03-04", Status: "done"},
		&models.TaskItem{ID: "c", UserID: user, Title: "c", DueDate: "2026-03-04", Status: "pending"},
		&models.TaskItem{ID: "d", UserID: user, Title: "d", DueDate: "2026-02-20", Status: "pending"},
		&models.HabitDefinition{ID: "h1", UserID: user, Name: "Run"},
		&models.HabitDefinition{ID: "h2", UserID: user, Name: "Read"},
		&models.HabitCompletion{HabitID: "h1", UserID: user, CompletedAt: tc.now.Add(-time.Hour)},
	)

	snap, err := b.Build(context.Background(), user)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if snap.Overview.DailyExecutionPct != 67 || snap.Overview.HabitsConsistencyPct != 50 || snap.Overview.OverdueCount != 1 {
		t.Errorf("overview = %+v", snap.Overview)
	}
	if len(snap.RiskItems) != 1 || snap.RiskItems[0].DaysOverdue != 12 {
		t.Errorf("risks = %+v", snap.RiskItems)
	}
	last := snap.HabitsHeatmap[len(snap.HabitsHeatmap)-1]
	if last.Completions != 1 || last.Target != 2 || last.Ratio != 0.5 {
		t.Errorf("heatmap today = %+v", last)
	}
}

func TestBuild_MissingTable(t *testing.T) {
	b, gdb, _ := newBuilder(t)
	for _, table := range []string{"task_items", "habit_completions", "reminders"} {
		if err := gdb.Migrator().DropTable(table); err != nil {
			t.Fatalf("drop %s: %v", table, err)
		}
	}
	snap, err := b.Build(context.Background(), user)
	if err != nil {
		t.Fatalf("Build with missing tables: %v", err)
	}
	if len(snap.TasksWeek) != 0 || snap.Ops.Reminders.Pending != 0 {
		t.Errorf("expected empty sections, got %d tasks", len(snap.TasksWeek))
	}
}

func TestService_CachesUntilInvalidated(t *testing.T) {
	b, _, tc := newBuilder(t)
	svc := NewService(b, NewCache(8, time.Minute))
	ctx := context.Background()

	first, err := svc.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	tc.now = tc.now.Add(2 * time.Second)
	second, err := svc.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.GeneratedAt != first.GeneratedAt {
		t.Errorf("cached read generatedAt = %s, want %s", second.GeneratedAt, first.GeneratedAt)
	}

	svc.Invalidate(user)
	third, err := svc.Get(ctx, user)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if third.GeneratedAt <= first.GeneratedAt {
		t.Errorf("after invalidate generatedAt = %s, want newer than %s", third.GeneratedAt, first.GeneratedAt)
	}

	other, _ := svc.Get(ctx, user+1)
	if other == third {
		t.Error("users must not share a cache entry")
	}
}

func TestCache_Disabled(t *testing.T) {
	c := NewCache(4, 0)
	c.Put(user, &view.Snapshot{GeneratedAt: "x"})
	if _, ok := c.Get(context.Background(), user); ok {
		t.Error("zero TTL should disable caching")
	}
	c.Invalidate(user)
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestCache_Expires(t *testing.T) {
	c := NewCache(4, 20*time.Millisecond)
	c.Put(user, &view.Snapshot{GeneratedAt: "x"})
	if _, ok := c.Get(context.Background(), user); !ok {
		t.Fatal("fresh entry should be served")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(context.Background(), user); ok {
		t.Error("expired entry should not be served")
	}
}

func TestReviewDraft_Fallback(t *testing.T) {
	b, gdb, _ := newBuilder(t)
	seed(t, gdb,
		&models.TaskItem{ID: "a", UserID: user, Title: "Ship report", DueDate: "2026-03-04", Status: "done"},
		&models.TaskItem{ID: "b", UserID: user, Title: "Call mom", DueDate: "2026-03-04", Status: "pending"},
	)
	draft, err := b.ReviewDraft(context.Background(), user)
	if err != nil {
		t.Fatalf("ReviewDraft: %v", err)
	}
	if !strings.Contains(draft.Summary, "Done today: 1") || draft.TomorrowPlan == "" {
		t.Errorf("draft = %+v", draft)
	}
}
