package engine

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar value of date fields
// =============================================================================

// TimePoint is the value stored in a date field. Timestamps keep their
// time-of-day; comparisons that care about the calendar day go through Date().
type TimePoint struct {
	Time        time.Time
	Granularity Granularity
}

type Granularity int

const (
	GranularityDay Granularity = iota
	GranularityMinute
)

// Accepted input layouts, most specific first.
var timeLayouts = []struct {
	layout      string
	granularity Granularity
}{
	{time.RFC3339, GranularityMinute},
	{"2006-01-02T15:04", GranularityMinute},
	{"2006-01-02 15:04:05", GranularityMinute},
	{"2006-01-02 15:04", GranularityMinute},
	{"2006-01-02", GranularityDay},
	{"02-Jan-2006 15:04", GranularityMinute},
	{"02-Jan-2006", GranularityDay},
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Granularity: GranularityDay}
}

func NewTimestamp(year int, month time.Month, day, hour, minute int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, hour, minute, 0, 0, time.UTC), Granularity: GranularityMinute}
}

// ParseTimePoint accepts ISO dates, ISO date-times and the DD-MMM-YYYY form
// the spreadsheets display.
func ParseTimePoint(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		t, err := time.Parse(l.layout, s)
		if err == nil {
			if l.granularity == GranularityMinute {
				t = t.Truncate(time.Minute)
			}
			return TimePoint{Time: t, Granularity: l.granularity}, nil
		}
	}
	return TimePoint{}, fmt.Errorf("unrecognised date %q", s)
}

// Date strips the time-of-day component.
func (tp TimePoint) Date() TimePoint {
	return NewTimePoint(tp.Time.Year(), tp.Time.Month(), tp.Time.Day())
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return tp.Before(other) || tp.Equal(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return tp.After(other) || tp.Equal(other) }

func (tp TimePoint) normalize() time.Time {
	if tp.Granularity == GranularityDay {
		return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
	}
	return tp.Time.Truncate(time.Minute)
}

func (tp TimePoint) AddDays(n int) TimePoint {
	return TimePoint{Time: tp.Time.AddDate(0, 0, n), Granularity: tp.Granularity}
}

func (tp TimePoint) IsZero() bool { return tp.Time.IsZero() }

func (tp TimePoint) String() string {
	if tp.Granularity == GranularityDay {
		return tp.Time.Format("2006-01-02")
	}
	return tp.Time.Format("2006-01-02 15:04")
}
