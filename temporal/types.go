// Package temporal provides the date/time types and the strategy-driven
// codec used by generated map converters.
//
// time.Time is the zone-aware instant type. LocalDate, LocalTime and
// LocalDateTime are zone-naive civil values: they carry no location and
// compare field-by-field. Timestamp is the legacy epoch-milliseconds
// representation kept for interop with systems that exchange raw epochs.
package temporal

import (
	"fmt"
	"strings"
	"time"
)

// LocalDate is a zone-naive calendar date.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the LocalDate of t in t's location.
func DateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// ParseLocalDate parses an ISO-8601 date ("2006-01-02").
func ParseLocalDate(s string) (LocalDate, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("parse local date %q: %w", s, err)
	}

	return DateOf(t), nil
}

// String formats the date as ISO-8601.
func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero value.
func (d LocalDate) IsZero() bool {
	return d == LocalDate{}
}

// At returns the instant at midnight of d in loc.
func (d LocalDate) At(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// LocalTime is a zone-naive time of day.
type LocalTime struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// TimeOf returns the LocalTime of t in t's location.
func TimeOf(t time.Time) LocalTime {
	h, m, s := t.Clock()
	return LocalTime{Hour: h, Minute: m, Second: s, Nanosecond: t.Nanosecond()}
}

// ParseLocalTime parses an ISO-8601 time of day ("15:04:05" with an
// optional fractional second).
func ParseLocalTime(s string) (LocalTime, error) {
	layout := "15:04:05"
	if strings.Contains(s, ".") {
		layout = "15:04:05.999999999"
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return LocalTime{}, fmt.Errorf("parse local time %q: %w", s, err)
	}

	return TimeOf(t), nil
}

// String formats the time of day as ISO-8601, with a fractional second
// only when sub-second precision is present.
func (t LocalTime) String() string {
	base := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if t.Nanosecond == 0 {
		return base
	}

	frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond), "0")

	return base + "." + frac
}

// IsZero reports whether t is the zero value.
func (t LocalTime) IsZero() bool {
	return t == LocalTime{}
}

// On returns the instant at time t on date d in loc.
func (t LocalTime) On(d LocalDate, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, t.Second, t.Nanosecond, loc)
}

// LocalDateTime is a zone-naive date and time of day.
type LocalDateTime struct {
	Date LocalDate
	Time LocalTime
}

// DateTimeOf returns the LocalDateTime of t in t's location.
func DateTimeOf(t time.Time) LocalDateTime {
	return LocalDateTime{Date: DateOf(t), Time: TimeOf(t)}
}

// ParseLocalDateTime parses an ISO-8601 local date-time
// ("2006-01-02T15:04:05" with an optional fractional second).
func ParseLocalDateTime(s string) (LocalDateTime, error) {
	layout := "2006-01-02T15:04:05"
	if strings.Contains(s, ".") {
		layout = "2006-01-02T15:04:05.999999999"
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return LocalDateTime{}, fmt.Errorf("parse local date-time %q: %w", s, err)
	}

	return DateTimeOf(t), nil
}

// String formats the value as ISO-8601 local date-time.
func (dt LocalDateTime) String() string {
	return dt.Date.String() + "T" + dt.Time.String()
}

// IsZero reports whether dt is the zero value.
func (dt LocalDateTime) IsZero() bool {
	return dt.Date.IsZero() && dt.Time.IsZero()
}

// In returns the instant dt denotes when interpreted in loc.
func (dt LocalDateTime) In(loc *time.Location) time.Time {
	return dt.Time.On(dt.Date, loc)
}

// Timestamp is a legacy epoch value in milliseconds since the Unix epoch.
type Timestamp int64

// TimestampOf returns the Timestamp for the instant t.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

// Time returns the instant the timestamp denotes, in UTC.
func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts)).UTC()
}

// IsZero reports whether ts is the zero value.
func (ts Timestamp) IsZero() bool {
	return ts == 0
}

// String formats the timestamp as its instant in RFC 3339 form.
func (ts Timestamp) String() string {
	return ts.Time().Format(time.RFC3339Nano)
}
