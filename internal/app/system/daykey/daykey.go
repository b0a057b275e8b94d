// Package daykey maps wall-clock instants to logical program dates.
//
// The program day does not end at midnight. Any instant whose local hour is
// before the cutoff (02:00 by default) still belongs to the previous calendar
// day. Three queries are exposed:
//
//   - CurrentLogicalDate: the date an action performed now is stamped with.
//   - MatchingTargetDate: the date whose committed assignment set is "today's
//     matches". Matching only runs on fully closed days, so this trails the
//     calendar date by a configurable number of days per hour bucket.
//   - PreviousLogicalDate: CurrentLogicalDate minus one day.
//
// A Resolver never reads the wall clock directly; callers inject a Clock.
package daykey

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	// Embedded zone data so hosts without /usr/share/zoneinfo resolve the
	// program timezone.
	_ "time/tzdata"
)

// DateLayout is the wire and storage format for logical dates.
const DateLayout = "2006-01-02"

// DefaultCutoffHour is the local hour at which a new logical day begins.
const DefaultCutoffHour = 2

// DefaultTimezone is the program's home timezone.
const DefaultTimezone = "Asia/Seoul"

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var (
	// ErrBadDate is returned for strings that are not YYYY-MM-DD calendar dates.
	ErrBadDate = errors.New("date must be YYYY-MM-DD")
	// ErrBadConfig is returned by New for an unusable resolver configuration.
	ErrBadConfig = errors.New("invalid day-key configuration")
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the process wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock returns a Clock that always reports t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// MatchingOffsets is the number of calendar days MatchingTargetDate trails the
// local calendar date, keyed by hour bucket relative to the cutoff.
type MatchingOffsets struct {
	BeforeCutoff int // local hour in [00:00, cutoff)
	AfterCutoff  int // local hour in [cutoff, 24:00)
}

// DefaultMatchingOffsets resolves to two days back before the cutoff and one
// day back after it.
var DefaultMatchingOffsets = MatchingOffsets{BeforeCutoff: 2, AfterCutoff: 1}

// Config configures a Resolver. A nil Location, Offsets or Clock selects the
// default; CutoffHour is taken as given (0 means midnight).
type Config struct {
	Location   *time.Location
	CutoffHour int
	Offsets    *MatchingOffsets
	Clock      Clock
}

// Resolver answers logical-date queries for one timezone and cutoff.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	clock   Clock
	loc     *time.Location
	cutoff  int
	offsets MatchingOffsets
}

// New validates cfg and returns a Resolver.
func New(cfg Config) (*Resolver, error) {
	r := &Resolver{
		clock:   cfg.Clock,
		loc:     cfg.Location,
		cutoff:  cfg.CutoffHour,
		offsets: DefaultMatchingOffsets,
	}
	if r.clock == nil {
		r.clock = SystemClock
	}
	if r.loc == nil {
		loc, err := time.LoadLocation(DefaultTimezone)
		if err != nil {
			return nil, fmt.Errorf("%w: load %s: %v", ErrBadConfig, DefaultTimezone, err)
		}
		r.loc = loc
	}
	if cfg.Offsets != nil {
		r.offsets = *cfg.Offsets
	}
	if r.cutoff < 0 || r.cutoff > 23 {
		return nil, fmt.Errorf("%w: cutoff hour %d outside 0..23", ErrBadConfig, r.cutoff)
	}
	if r.offsets.BeforeCutoff < 0 || r.offsets.AfterCutoff < 0 {
		return nil, fmt.Errorf("%w: matching offsets must not be negative", ErrBadConfig)
	}
	return r, nil
}

// MustNew is New for static configurations; it panics on error.
func MustNew(cfg Config) *Resolver {
	r, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return r
}

// Now returns the injected clock's current instant in the program timezone.
func (r *Resolver) Now() time.Time { return r.clock.Now().In(r.loc) }

// Location returns the program timezone.
func (r *Resolver) Location() *time.Location { return r.loc }

// CutoffHour returns the local hour at which a logical day begins.
func (r *Resolver) CutoffHour() int { return r.cutoff }

// Offsets returns the matching offset table.
func (r *Resolver) Offsets() MatchingOffsets { return r.offsets }

// CurrentLogicalDate is LogicalDateAt(now).
func (r *Resolver) CurrentLogicalDate() string { return r.LogicalDateAt(r.clock.Now()) }

// MatchingTargetDate is MatchingTargetDateAt(now).
func (r *Resolver) MatchingTargetDate() string { return r.MatchingTargetDateAt(r.clock.Now()) }

// PreviousLogicalDate is PreviousLogicalDateAt(now).
func (r *Resolver) PreviousLogicalDate() string { return r.PreviousLogicalDateAt(r.clock.Now()) }

// LogicalDateAt returns the logical date t belongs to.
func (r *Resolver) LogicalDateAt(t time.Time) string {
	local := t.In(r.loc)
	back := 0
	if local.Hour() < r.cutoff {
		back = 1
	}
	return calendarDate(local, -back)
}

// MatchingTargetDateAt returns the logical date whose assignment set is
// delivered as the current matches at instant t.
func (r *Resolver) MatchingTargetDateAt(t time.Time) string {
	local := t.In(r.loc)
	back := r.offsets.AfterCutoff
	if local.Hour() < r.cutoff {
		back = r.offsets.BeforeCutoff
	}
	return calendarDate(local, -back)
}

// PreviousLogicalDateAt returns the logical date before LogicalDateAt(t).
func (r *Resolver) PreviousLogicalDateAt(t time.Time) string {
	local := t.In(r.loc)
	back := 1
	if local.Hour() < r.cutoff {
		back = 2
	}
	return calendarDate(local, -back)
}

// calendarDate shifts the wall-clock date of local by days. Arithmetic runs
// on a UTC midnight so DST transitions cannot skip or repeat a date.
func calendarDate(local time.Time, days int) string {
	y, m, d := local.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// ValidDate reports whether s is a real YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ParseDate parses a logical date into UTC midnight of that day.
func ParseDate(s string) (time.Time, error) {
	if !dateShape.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
	}
	return t, nil
}

// AddDays returns date shifted by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DaysBetween returns the whole number of days from from to to
// (negative when to precedes from).
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}
