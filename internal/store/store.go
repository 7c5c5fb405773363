// Package store loads dashboard resources from the relational database and
// applies user mutations.
//
// Every loader treats a missing table or column as an empty result. Any other
// query failure is returned to the caller wrapped with the operation name.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/zulandar/cockpit/internal/dates"
	"github.com/zulandar/cockpit/internal/db"
	"github.com/zulandar/cockpit/internal/models"
)

var (
	// ErrNotFound is returned when a mutation targets a row the user does not own.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalid is returned for input that passes decoding but cannot be applied.
	ErrInvalid = errors.New("store: invalid input")
)

// Activity log settings.
const (
	ActivityCategory = "DashboardAction"
	activityRole     = "assistant"
	maxActivityText  = 1200
)

// Store wraps a gorm handle. It is safe for concurrent use.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// New returns a store over gdb. A nil logger discards output.
func New(gdb *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: gdb, logger: logger, now: time.Now}
}

// WithNow returns a copy of the store that reads time from now.
func (s *Store) WithNow(now func() time.Time) *Store {
	cp := *s
	cp.now = now
	return &cp
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) q(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// absorb turns schema-absence into success.
func absorb(err error) error {
	if db.IsMissingRelation(err) {
		return nil
	}
	return err
}

// Tables reports whether each critical table exists.
func (s *Store) Tables(ctx context.Context) map[string]string {
	return db.CheckTables(s.q(ctx))
}

// LogEvent writes a best-effort activity entry. Failures are logged, never
// returned.
func (s *Store) LogEvent(ctx context.Context, userID int64, content string) {
	text := clipRunes(strings.TrimSpace(content), maxActivityText)
	if text == "" {
		return
	}
	ev := models.Event{
		UserID:    userID,
		Role:      activityRole,
		Category:  ActivityCategory,
		Content:   text,
		CreatedAt: s.now().UTC(),
	}
	if err := s.q(context.WithoutCancel(ctx)).Create(&ev).Error; err != nil && !db.IsMissingRelation(err) {
		s.logger.Warn("store: activity log failed", "user_id", userID, "error", err)
	}
}

// clipRunes cuts s to at most n runes without adding a marker.
func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// dayRange returns the UTC instants bounding the calendar days
// [from, toExclusive) in loc.
func dayRange(from, toExclusive string, loc *time.Location) (time.Time, time.Time) {
	return dates.DayStart(from, loc).UTC(), dates.DayStart(toExclusive, loc).UTC()
}

func wrap(op string, err error) error {
	return fmt.Errorf("store: %s: %w", op, err)
}
