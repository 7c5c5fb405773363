package store

import (
	"context"
	"regexp"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/view"
)

// Ops query limits.
const (
	conversationEventLimit = 500
	conversationLifeLimit  = 400
	topCategoryLimit       = 6
	memoryLimit            = 1000
	reminderLimit          = 500
	systemLogLimit         = 500
)

// pendingSignal matches messages where the user is putting something off.
var pendingSignal = regexp.MustCompile(`(?i)musze|muszę|powinienem|pozniej|później|odkladam|odkładam|nie zdaz|nie zdąż`)

// Ops loads the four operational summaries concurrently.
func (s *Store) Ops(ctx context.Context, userID int64) (view.Ops, error) {
	var ops view.Ops
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ops.Conversation, err = s.Conversation(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		ops.Memory, err = s.Memory(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		ops.Reminders, err = s.Reminders(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		ops.System, err = s.System(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return view.Ops{}, err
	}
	return ops, nil
}

// Conversation summarizes the last 24 hours of messages and journal entries.
func (s *Store) Conversation(ctx context.Context, userID int64) (view.ConversationSummary, error) {
	since := s.now().Add(-24 * time.Hour).UTC()
	out := view.ConversationSummary{TopCategories: []view.CategoryCount{}}

	var events []models.Event
	err := s.q(ctx).Select("content").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Limit(conversationEventLimit).Find(&events).Error
	if absorb(err) != nil {
		return out, wrap("load conversation", err)
	}
	var life []models.LifeEvent
	err = s.q(ctx).Select("category").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Limit(conversationLifeLimit).Find(&life).Error
	if absorb(err) != nil {
		return out, wrap("load conversation journal", err)
	}

	out.Messages24h = len(events)
	out.LifeEvents24h = len(life)
	counts := map[string]int{}
	for _, l := range life {
		counts[orDefault(l.Category, "other")]++
	}
	out.TopCategories = rankCategories(counts, topCategoryLimit)
	for _, e := range events {
		if pendingSignal.MatchString(e.Content) {
			out.PendingSignals++
		}
	}
	return out, nil
}

// rankCategories orders counts descending, ties by name, keeping limit
// entries. A limit of zero keeps all.
func rankCategories(counts map[string]int, limit int) []view.CategoryCount {
	out := make([]view.CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, view.CategoryCount{Category: c, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Memory summarizes the memory index.
func (s *Store) Memory(ctx context.Context, userID int64) (view.MemorySummary, error) {
	out := view.MemorySummary{SourceBreakdown: []view.SourceCount{}}
	var rows []models.MemoryChunk
	err := s.q(ctx).Select("source_type", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").Limit(memoryLimit).Find(&rows).Error
	if err != nil {
		return out, absorbWrap("load memory", err)
	}
	counts := map[string]int{}
	for _, r := range rows {
		counts[orDefault(r.SourceType, "unknown")]++
	}
	for _, c := range rankCategories(counts, 0) {
		out.SourceBreakdown = append(out.SourceBreakdown, view.SourceCount{SourceType: c.Category, Count: c.Count})
	}
	out.ChunkCount = len(rows)
	if len(rows) > 0 {
		out.LastIndexedAt = dates.Stamp(rows[0].CreatedAt)
	}
	return out, nil
}

// Reminder statuses.
const (
	reminderPending = "pending"
	reminderSending = "sending"
	reminderSent    = "sent"
	reminderFailed  = "failed"
)

// Reminders summarizes the reminder queue.
func (s *Store) Reminders(ctx context.Context, userID int64) (view.ReminderSummary, error) {
	var out view.ReminderSummary
	var rows []models.Reminder
	err := s.q(ctx).Select("status", "due_at", "created_at").
		Where("user_id = ?", userID).
		Order("due_at ASC").Limit(reminderLimit).Find(&rows).Error
	if err != nil {
		return out, absorbWrap("load reminders", err)
	}
	since := s.now().Add(-24 * time.Hour)
	for _, r := range rows {
		recent := !r.CreatedAt.Before(since)
		switch r.Status {
		case reminderPending:
			out.Pending++
			if out.NextDueAt == "" && r.DueAt != nil {
				out.NextDueAt = dates.Stamp(*r.DueAt)
			}
		case reminderSending:
			out.Sending++
		case reminderSent:
			if recent {
				out.Sent24h++
			}
		case reminderFailed:
			if recent {
				out.Failed24h++
			}
		}
	}
	return out, nil
}

// System summarizes the shared error log. It is not scoped to a user.
func (s *Store) System(ctx context.Context) (view.SystemHealth, error) {
	var out view.SystemHealth
	var rows []models.SystemLog
	err := s.q(ctx).Where("level = ?", "error").
		Order("timestamp DESC").Limit(systemLogLimit).Find(&rows).Error
	if err != nil {
		return out, absorbWrap("load system log", err)
	}
	since := s.now().Add(-24 * time.Hour)
	for _, r := range rows {
		if r.Status == "pending" {
			out.PendingErrors++
		}
		if !r.Timestamp.Before(since) {
			out.TotalErrors24h++
		}
	}
	if len(rows) > 0 {
		latest := rows[0]
		out.LatestError = &view.LatestError{
			Module:    orDefault(latest.Module, "unknown"),
			Message:   latest.Message,
			Timestamp: dates.Stamp(latest.Timestamp),
		}
	}
	return out, nil
}

// absorbWrap returns nil for schema absence and a wrapped error otherwise.
func absorbWrap(op string, err error) error {
	if absorb(err) == nil {
		return nil
	}
	return wrap(op, err)
}
