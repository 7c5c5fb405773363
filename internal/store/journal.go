package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/models"
	"github.com/zulandar/cockpit/internal/view"
)

// Row limits for the journal-backed loaders.
const (
	inboxEventLimit     = 80
	inboxLifeLimit      = 40
	inboxLimit          = 100
	signalLimit         = 80
	knowledgeLimit      = 80
	knowledgeEmptyLimit = 40
	knowledgeTitleRunes = 80
)

// Inbox merges recent chat events and journal entries, newest first.
func (s *Store) Inbox(ctx context.Context, userID int64) ([]view.InboxItem, error) {
	type entry struct {
		item view.InboxItem
		at   time.Time
	}
	var entries []entry

	var events []models.Event
	if err := s.q(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(inboxEventLimit).Find(&events).Error; absorb(err) != nil {
		return nil, wrap("load inbox events", err)
	}
	for _, e := range events {
		role := "user"
		if e.Role == "assistant" {
			role = "assistant"
		}
		entries = append(entries, entry{at: e.CreatedAt, item: view.InboxItem{
			ID:        idString(e.ID),
			Source:    "events",
			Role:      role,
			Category:  orDefault(e.Category, "Inbox"),
			Content:   e.Content,
			CreatedAt: dates.Stamp(e.CreatedAt),
		}})
	}

	life, err := s.lifeEvents(ctx, userID, inboxLifeLimit)
	if err != nil {
		return nil, wrap("load inbox journal", err)
	}
	for _, l := range life {
		entries = append(entries, entry{at: l.CreatedAt, item: view.InboxItem{
			ID:        idString(l.ID),
			Source:    "life_events",
			Role:      "system",
			Category:  orDefault(l.Category, "life_event"),
			Content:   l.RawText,
			CreatedAt: dates.Stamp(l.CreatedAt),
		}})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	items := make([]view.InboxItem, 0, min(len(entries), inboxLimit))
	for _, e := range entries[:min(len(entries), inboxLimit)] {
		items = append(items, e.item)
	}
	return items, nil
}

// Signals returns recent non-empty journal entries for reflections.
func (s *Store) Signals(ctx context.Context, userID int64) ([]view.Signal, error) {
	rows, err := s.lifeEvents(ctx, userID, signalLimit)
	if err != nil {
		return nil, wrap("load signals", err)
	}
	signals := make([]view.Signal, 0, len(rows))
	for _, r := range rows {
		text := strings.TrimSpace(r.RawText)
		if text == "" {
			continue
		}
		signals = append(signals, view.Signal{
			ID:        idString(r.ID),
			Category:  orDefault(r.Category, "Reflection"),
			RawText:   text,
			CreatedAt: dates.Stamp(r.CreatedAt),
		})
	}
	return signals, nil
}

// lifeEvents returns the newest journal rows. A missing table yields none.
func (s *Store) lifeEvents(ctx context.Context, userID int64, limit int) ([]models.LifeEvent, error) {
	var rows []models.LifeEvent
	err := s.q(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, absorb(err)
	}
	return rows, nil
}

// Knowledge loads knowledge entries owned by the user or shared. When the
// table is missing or holds nothing for the user, recent journal entries are
// presented instead.
func (s *Store) Knowledge(ctx context.Context, userID int64) ([]view.Knowledge, error) {
	var rows []models.BotKnowledge
	err := s.q(ctx).Where("user_id = ? OR user_id IS NULL", userID).Limit(knowledgeLimit).Find(&rows).Error
	fallbackLimit := knowledgeEmptyLimit
	if err != nil {
		if absorb(err) != nil {
			return nil, wrap("load knowledge", err)
		}
		fallbackLimit = knowledgeLimit
		rows = nil
	}
	if len(rows) > 0 {
		items := make([]view.Knowledge, 0, len(rows))
		for _, r := range rows {
			items = append(items, knowledgeView(r))
		}
		return items, nil
	}

	life, err := s.lifeEvents(ctx, userID, fallbackLimit)
	if err != nil {
		return []view.Knowledge{}, nil
	}
	items := make([]view.Knowledge, 0, len(life))
	for _, l := range life {
		items = append(items, view.Knowledge{
			ID:       idString(l.ID),
			Category: orDefault(l.Category, "operations"),
			Title:    orDefault(clipRunes(l.RawText, knowledgeTitleRunes), "Knowledge entry"),
			Content:  l.RawText,
			Tags:     "life_event",
		})
	}
	return items, nil
}

func knowledgeView(r models.BotKnowledge) view.Knowledge {
	content := orDefault(r.Content, r.Fact)
	title := r.Title
	if strings.TrimSpace(title) == "" {
		title = orDefault(clipRunes(content, knowledgeTitleRunes), "Knowledge entry")
	}
	return view.Knowledge{
		ID:       r.ID,
		Category: orDefault(orDefault(r.Category, r.Source), "operations"),
		Title:    title,
		Content:  content,
		Tags:     joinTags(r.Tags, r.Source),
	}
}

// joinTags flattens a JSON array of tags into a comma list. Anything else is
// returned as stored, or fallback when empty.
func joinTags(raw, fallback string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") && gjson.Valid(trimmed) {
		var parts []string
		for _, t := range gjson.Parse(trimmed).Array() {
			parts = append(parts, t.String())
		}
		return strings.Join(parts, ",")
	}
	return orDefault(raw, fallback)
}

// KnowledgeAction is a validated request to turn a knowledge entry into a task.
type KnowledgeAction struct {
	DueDate   string
	Priority  string
	ProjectID *string
}

// TaskFromKnowledge creates a pending task from a knowledge entry the user
// can see and returns the new task id.
func (s *Store) TaskFromKnowledge(ctx context.Context, userID int64, id string, f dates.Frame, in KnowledgeAction) (string, error) {
	var row models.BotKnowledge
	err := s.q(ctx).Where("id = ? AND (user_id = ? OR user_id IS NULL)", id, userID).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound) || (err != nil && absorb(err) == nil):
		return "", fmt.Errorf("knowledge item %s: %w", id, ErrNotFound)
	case err != nil:
		return "", wrap("load knowledge item", err)
	}

	titleSource := strings.TrimSpace(orDefault(row.Title, row.Content))
	title := "From knowledge #" + clipRunes(id, 6)
	if titleSource != "" {
		title = "From knowledge: " + clipRunes(titleSource, 140)
	}
	var note *string
	if content := strings.TrimSpace(row.Content); content != "" {
		n := clipRunes(content, 500)
		note = &n
	}
	due := in.DueDate
	if due == "" {
		due = f.Today
	}
	return s.CreateTask(ctx, userID, NewTask{
		Title:     title,
		DueDate:   due,
		Priority:  in.Priority,
		ProjectID: in.ProjectID,
		Note:      note,
	})
}

// LatestReview returns the user's most recent review, or nil.
func (s *Store) LatestReview(ctx context.Context, userID int64) (*view.Review, error) {
	var row models.DailyReview
	err := s.q(ctx).Where("user_id = ?", userID).Order("review_date DESC").Take(&row).Error
	return reviewResult(row, err)
}

// ReviewOn returns the user's review for day, or nil.
func (s *Store) ReviewOn(ctx context.Context, userID int64, day string) (*view.Review, error) {
	var row models.DailyReview
	err := s.q(ctx).Where("user_id = ? AND review_date = ?", userID, day).Take(&row).Error
	return reviewResult(row, err)
}

func reviewResult(row models.DailyReview, err error) (*view.Review, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		if absorb(err) == nil {
			return nil, nil
		}
		return nil, wrap("load review", err)
	}
	updated := row.UpdatedAt
	if updated.IsZero() {
		updated = row.CreatedAt
	}
	return &view.Review{
		ReviewDate:   row.ReviewDate,
		Summary:      row.Summary,
		TomorrowPlan: row.TomorrowPlan,
		CreatedAt:    dates.Stamp(row.CreatedAt),
		UpdatedAt:    dates.Stamp(updated),
	}, nil
}

// ReviewInput is a validated review upsert.
type ReviewInput struct {
	ReviewDate   string
	Summary      string
	TomorrowPlan string
}

// SaveReview upserts the review keyed by (user, review_date). An empty date
// means today. It returns the date written.
func (s *Store) SaveReview(ctx context.Context, userID int64, f dates.Frame, in ReviewInput) (string, error) {
	day := in.ReviewDate
	if day == "" {
		day = f.Today
	}
	now := s.now().UTC()
	row := models.DailyReview{
		UserID:       userID,
		ReviewDate:   day,
		Summary:      in.Summary,
		TomorrowPlan: in.TomorrowPlan,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "review_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"summary", "tomorrow_plan", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", wrap("save review", err)
	}
	return day, nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
