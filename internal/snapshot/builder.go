// Package snapshot assembles the dashboard payload for one user and caches it
// for a short time.
//
// A build runs in phases. Every independent loader runs concurrently; the
// habit heatmap waits for the active habit count; the metric builders run
// over the collected results; advice and reflections come last because they
// may call a model. generatedAt is captured when assembly finishes.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/derive"
	"github.com/zulandar/cockpit/internal/insight"
	"github.com/zulandar/cockpit/internal/store"
	"github.com/zulandar/cockpit/internal/telemetry"
	"github.com/zulandar/cockpit/internal/view"
)

const scope = "github.com/zulandar/cockpit/snapshot"

// Builder produces snapshots from the store.
type Builder struct {
	store   *store.Store
	insight *insight.Generator
	clock   *dates.Clock
	logger  *slog.Logger
}

// NewBuilder returns a builder. A nil logger discards output.
func NewBuilder(st *store.Store, gen *insight.Generator, clock *dates.Clock, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{store: st, insight: gen, clock: clock, logger: logger}
}

// Clock returns the builder's clock.
func (b *Builder) Clock() *dates.Clock { return b.clock }

// Build assembles a fresh snapshot. Any loader failure other than schema
// absence fails the whole build; no partial snapshot is returned.
func (b *Builder) Build(ctx context.Context, userID int64) (*view.Snapshot, error) {
	ctx, span := telemetry.Tracer(scope).Start(ctx, "snapshot.build")
	defer span.End()
	span.SetAttributes(attribute.Int64("cockpit.user_id", userID))

	f := b.clock.Frame()
	snap := &view.Snapshot{}
	var signals []view.Signal

	g, gctx := errgroup.WithContext(ctx)
	tasks := func(dst *[]view.Task, which string) {
		g.Go(func() (err error) {
			*dst, err = b.store.Tasks(gctx, userID, f, which, store.TaskQuery{})
			return err
		})
	}
	tasks(&snap.TasksToday, store.ScopeToday)
	tasks(&snap.TasksWeek, store.ScopeWeek)
	tasks(&snap.TasksOverdue, store.ScopeOverdue)
	g.Go(func() (err error) {
		snap.Habits, err = b.store.Habits(gctx, userID, f, false)
		return err
	})
	g.Go(func() (err error) {
		snap.HabitsCatalog, err = b.store.Habits(gctx, userID, f, true)
		return err
	})
	g.Go(func() (err error) {
		snap.Inbox, err = b.store.Inbox(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Strategy, err = b.store.Strategy(gctx, userID, f)
		return err
	})
	g.Go(func() (err error) {
		snap.Knowledge, err = b.store.Knowledge(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.ActivityData, err = b.store.Activity(gctx, userID, f)
		return err
	})
	g.Go(func() (err error) {
		snap.FocusData, err = b.store.Focus(gctx, userID, f)
		return err
	})
	g.Go(func() (err error) {
		snap.MomentumData, err = b.store.Momentum(gctx, userID, f, derive.DefaultMomentumDays)
		return err
	})
	g.Go(func() (err error) {
		snap.Review, err = b.store.LatestReview(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Ops.Conversation, err = b.store.Conversation(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Ops.Memory, err = b.store.Memory(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Ops.Reminders, err = b.store.Reminders(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.Ops.System, err = b.store.System(gctx)
		return err
	})
	g.Go(func() (err error) {
		signals, err = b.store.Signals(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		snap.UIPrefs, err = b.store.UIPrefs(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load")
		return nil, fmt.Errorf("snapshot: load: %w", err)
	}

	heatmap, err := b.store.Heatmap(ctx, userID, f, len(snap.Habits))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "heatmap")
		return nil, fmt.Errorf("snapshot: heatmap: %w", err)
	}
	snap.HabitsHeatmap = heatmap

	snap.Overview = derive.Overview(snap.TasksToday, snap.TasksWeek, snap.TasksOverdue, snap.Habits)
	snap.RiskItems = derive.Risks(snap.TasksOverdue, f.Today)
	snap.DecisionCards = derive.DecisionCards(snap.Overview, snap.TasksToday, snap.TasksOverdue, snap.Habits)
	snap.TrendSummary = derive.Trend(snap.MomentumData)
	snap.Alerts = derive.Alerts(snap.Overview, snap.Ops.System, snap.Habits, snap.TrendSummary)

	snap.Advice, snap.Reflections = b.insight.Generate(ctx, insight.Input{
		KPI:          snap.Overview,
		TasksToday:   snap.TasksToday,
		TasksOverdue: snap.TasksOverdue,
		Habits:       snap.Habits,
		Review:       snap.Review,
		Conversation: snap.Ops.Conversation,
		Signals:      signals,
	})

	snap.GeneratedAt = dates.Stamp(b.clock.Now())
	b.logger.Debug("snapshot built", "user_id", userID, "generated_at", snap.GeneratedAt)
	return snap, nil
}

// ReviewDraft loads the review copilot's inputs concurrently and proposes a
// review for today.
func (b *Builder) ReviewDraft(ctx context.Context, userID int64) (view.ReviewDraft, error) {
	f := b.clock.Frame()
	var in insight.ReviewInput

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.TasksToday, err = b.store.Tasks(gctx, userID, f, store.ScopeToday, store.TaskQuery{})
		return err
	})
	g.Go(func() (err error) {
		in.TasksOverdue, err = b.store.Tasks(gctx, userID, f, store.ScopeOverdue, store.TaskQuery{})
		return err
	})
	g.Go(func() (err error) {
		in.Habits, err = b.store.Habits(gctx, userID, f, false)
		return err
	})
	g.Go(func() (err error) {
		in.LatestReview, err = b.store.LatestReview(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		in.Signals, err = b.store.Signals(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return view.ReviewDraft{}, fmt.Errorf("snapshot: review inputs: %w", err)
	}
	return b.insight.ReviewDraft(ctx, in), nil
}
