// Package timewindow turns local calendar days in an IANA timezone into
// UTC query bounds.
package timewindow

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidTimezone = errors.New("invalid timezone")
	ErrInvalidDate     = errors.New("invalid date")
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// TimeWindow is a [start, end) interval expressed both in the requested
// timezone and in UTC.
type TimeWindow struct {
	LocalStart time.Time `json:"localStart"`
	LocalEnd   time.Time `json:"localEnd"`
	UTCStart   time.Time `json:"utcStart"`
	UTCEnd     time.Time `json:"utcEnd"`
	Timezone   string    `json:"timezone"`
	Label      string    `json:"label"`
}

// Bounds are the UTC limits of a window, start inclusive and end exclusive.
type Bounds struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside [UTCStart, UTCEnd).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.UTCStart) && t.Before(w.UTCEnd)
}

// Duration is the length of the window. Calendar days crossing a DST switch
// are 23 or 25 hours long.
func (w TimeWindow) Duration() time.Duration {
	return w.UTCEnd.Sub(w.UTCStart)
}

// QueryBounds extracts the UTC bounds for a store query.
func QueryBounds(w TimeWindow) Bounds {
	return Bounds{Start: w.UTCStart, End: w.UTCEnd}
}

// LoadLocation resolves an IANA zone name. The empty name and "Local" are
// rejected so results never depend on the server's own zone.
func LoadLocation(timezone string) (*time.Location, error) {
	name := strings.TrimSpace(timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}
	return loc, nil
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(date string) (year int, month time.Month, day int, err error) {
	if !datePattern.MatchString(date) {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.Year(), t.Month(), t.Day(), nil
}

// ResolveDayWindow returns local midnight to the next local midnight of date
// in timezone.
func ResolveDayWindow(timezone, date string) (TimeWindow, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return TimeWindow{}, err
	}
	y, m, d, err := ParseDate(date)
	if err != nil {
		return TimeWindow{}, err
	}
	return dayWindow(loc, y, m, d, date), nil
}

func dayWindow(loc *time.Location, y int, m time.Month, d int, label string) TimeWindow {
	start := dayStart(loc, y, m, d)
	ny, nm, nd := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC).Date()
	end := dayStart(loc, ny, nm, nd)
	return TimeWindow{
		LocalStart: start,
		LocalEnd:   end,
		UTCStart:   start.UTC(),
		UTCEnd:     end.UTC(),
		Timezone:   loc.String(),
		Label:      label,
	}
}

// dayStart is the first instant of the local day. Where the clocks skip
// midnight that is the moment of the zone change, not midnight itself.
func dayStart(loc *time.Location, y int, m time.Month, d int) time.Time {
	want := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	onOrAfter := func(t time.Time) bool {
		ly, lm, ld := t.In(loc).Date()
		return !time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC).Before(want)
	}
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if onOrAfter(start) {
		return start
	}
	lo, hi := start.Unix(), time.Date(y, m, d, 12, 0, 0, 0, loc).Unix()
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if onOrAfter(time.Unix(mid, 0)) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return time.Unix(hi, 0).In(loc)
}

// Resolver builds windows relative to a clock.
type Resolver struct {
	Now func() time.Time
}

// NewResolver returns a Resolver on the wall clock.
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// Current is the resolver's notion of now.
func (r *Resolver) Current() time.Time {
	return r.now()
}

func (r *Resolver) now() time.Time {
	if r == nil || r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Day is ResolveDayWindow.
func (r *Resolver) Day(timezone, date string) (TimeWindow, error) {
	return ResolveDayWindow(timezone, date)
}

// Today is the calendar day containing now in timezone.
func (r *Resolver) Today(timezone string) (TimeWindow, error) {
	return r.relativeDay(timezone, 0, "today")
}

// Yesterday is the calendar day before today in timezone.
func (r *Resolver) Yesterday(timezone string) (TimeWindow, error) {
	return r.relativeDay(timezone, -1, "yesterday")
}

// Last24Hours is the rolling window [now-24h, now). It is not aligned to the
// calendar.
func (r *Resolver) Last24Hours(timezone string) (TimeWindow, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return TimeWindow{}, err
	}
	end := r.now().In(loc)
	start := end.Add(-24 * time.Hour)
	return TimeWindow{
		LocalStart: start,
		LocalEnd:   end,
		UTCStart:   start.UTC(),
		UTCEnd:     end.UTC(),
		Timezone:   loc.String(),
		Label:      "last 24 hours",
	}, nil
}

// LocalDate formats the calendar date of now shifted by offsetDays in timezone.
func (r *Resolver) LocalDate(timezone string, offsetDays int) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	now := r.now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day()+offsetDays, 12, 0, 0, 0, loc).Format(dateLayout), nil
}

func (r *Resolver) relativeDay(timezone string, offsetDays int, label string) (TimeWindow, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return TimeWindow{}, err
	}
	now := r.now().In(loc)
	return dayWindow(loc, now.Year(), now.Month(), now.Day()+offsetDays, label), nil
}

// TodayWindow is Today on the wall clock.
func TodayWindow(timezone string) (TimeWindow, error) {
	return NewResolver().Today(timezone)
}

// YesterdayWindow is Yesterday on the wall clock.
func YesterdayWindow(timezone string) (TimeWindow, error) {
	return NewResolver().Yesterday(timezone)
}

// Last24HoursWindow is Last24Hours on the wall clock.
func Last24HoursWindow(timezone string) (TimeWindow, error) {
	return NewResolver().Last24Hours(timezone)
}
