// Package dates computes calendar days and week windows in a configured zone.
//
// Everything downstream of the clock works on YYYY-MM-DD strings. Instants are
// converted to a calendar day exactly once, here, using the dashboard's zone.
package dates

import (
	"time"
)

// Layout is the calendar-date format used throughout the dashboard.
const Layout = "2006-01-02"

// Window is an inclusive range of calendar days.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day string) bool {
	return day >= w.From && day <= w.To
}

// Frame is the date context captured once per request so that every loader
// and metric agrees on what "today" means.
type Frame struct {
	Now      time.Time
	Today    string
	Week     Window
	Location *time.Location
}

// DayOf returns the calendar day of t in the frame's zone.
func (f Frame) DayOf(t time.Time) string {
	return DayOf(t, f.Location)
}

// DayStart returns the first instant of day in the frame's zone.
func (f Frame) DayStart(day string) time.Time {
	return DayStart(day, f.Location)
}

// Clock produces frames for a fixed zone. The now func is injectable for tests.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a clock for loc. A nil loc means UTC.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// WithNow returns a copy of the clock that reads time from now.
func (c *Clock) WithNow(now func() time.Time) *Clock {
	return &Clock{loc: c.loc, now: now}
}

// Location returns the clock's zone.
func (c *Clock) Location() *time.Location { return c.loc }

// Now returns the current instant.
func (c *Clock) Now() time.Time { return c.now() }

// Today returns the current calendar day in the clock's zone.
func (c *Clock) Today() string {
	return DayOf(c.now(), c.loc)
}

// Frame captures today and the Monday-Sunday week around it.
func (c *Clock) Frame() Frame {
	now := c.now()
	today := DayOf(now, c.loc)
	return Frame{
		Now:      now,
		Today:    today,
		Week:     WeekOf(today),
		Location: c.loc,
	}
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(Layout)
}

// DayStart returns midnight of day in loc. Unparseable input yields the zero time.
func DayStart(day string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(Layout, day, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Valid reports whether s is a well-formed calendar date.
func Valid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

// WeekOf returns the Monday-Sunday window containing day.
func WeekOf(day string) Window {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return Window{From: day, To: day}
	}
	// time.Weekday counts Sunday as 0.
	offset := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -offset)
	return Window{
		From: monday.Format(Layout),
		To:   monday.AddDate(0, 0, 6).Format(Layout),
	}
}

// ShiftDate moves day by n calendar days. Unparseable input is returned as-is.
func ShiftDate(day string, n int) string {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return day
	}
	return t.AddDate(0, 0, n).Format(Layout)
}

// DaysOverdue returns how many whole days due lies before today, never negative.
func DaysOverdue(today, due string) int {
	a, err := time.Parse(Layout, today)
	if err != nil {
		return 0
	}
	b, err := time.Parse(Layout, due)
	if err != nil {
		return 0
	}
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// Span returns n consecutive days ending at end, oldest first.
func Span(end string, n int) []string {
	if n <= 0 {
		return nil
	}
	days := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		days = append(days, ShiftDate(end, -i))
	}
	return days
}

// Label renders day as dd.mm for chart axes.
func Label(day string) string {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return day
	}
	return t.Format("02.01")
}

// WeekdayLabel renders day as a short weekday name.
func WeekdayLabel(day string) string {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return day
	}
	return t.Format("Mon")
}

// StampLayout is the instant format used in JSON payloads.
const StampLayout = "2006-01-02T15:04:05.000Z07:00"

// Stamp renders t in UTC with millisecond precision. The zero time renders empty.
func Stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(StampLayout)
}
