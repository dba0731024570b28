package temporal

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"
)

// Kind identifies which temporal family a declared type belongs to.
type Kind int

const (
	_ Kind = iota // zero is the invalid Kind

	// KindInstant is a zone-aware point in time (time.Time).
	KindInstant
	// KindLocalDateTime is a zone-naive date and time of day.
	KindLocalDateTime
	// KindLocalDate is a zone-naive calendar date.
	KindLocalDate
	// KindLocalTime is a zone-naive time of day.
	KindLocalTime
	// KindLegacy is the epoch-milliseconds Timestamp family.
	KindLegacy
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindInstant:
		return "instant"
	case KindLocalDateTime:
		return "local_date_time"
	case KindLocalDate:
		return "local_date"
	case KindLocalTime:
		return "local_time"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

var (
	timeType          = reflect.TypeOf(time.Time{})
	localDateTimeType = reflect.TypeOf(LocalDateTime{})
	localDateType     = reflect.TypeOf(LocalDate{})
	localTimeType     = reflect.TypeOf(LocalTime{})
	timestampType     = reflect.TypeOf(Timestamp(0))
)

// KindOf reports the temporal kind of t, or false when t is not a
// recognized temporal type. Pointer indirection is the caller's concern.
func KindOf(t reflect.Type) (Kind, bool) {
	switch t {
	case timeType:
		return KindInstant, true
	case localDateTimeType:
		return KindLocalDateTime, true
	case localDateType:
		return KindLocalDate, true
	case localTimeType:
		return KindLocalTime, true
	case timestampType:
		return KindLegacy, true
	default:
		return 0, false
	}
}

// Strategy selects how a temporal value is represented in a map.
type Strategy int

const (
	// StrategyAuto picks the default strategy for the field's kind.
	StrategyAuto Strategy = iota
	// StrategyInstantString encodes RFC 3339 instant text in UTC.
	StrategyInstantString
	// StrategyLocalString encodes ISO local text with no zone designator.
	StrategyLocalString
	// StrategyEpochMillis encodes milliseconds since the Unix epoch.
	StrategyEpochMillis
	// StrategyEpochSeconds encodes seconds since the Unix epoch.
	StrategyEpochSeconds
	// StrategyCustomPattern encodes with an explicit layout string.
	StrategyCustomPattern
	// StrategyLocaleText encodes the type's default textual form.
	StrategyLocaleText
)

// String returns a human-readable strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyInstantString:
		return "instant"
	case StrategyLocalString:
		return "local"
	case StrategyEpochMillis:
		return "epoch_millis"
	case StrategyEpochSeconds:
		return "epoch_seconds"
	case StrategyCustomPattern:
		return "pattern"
	case StrategyLocaleText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseStrategy resolves a strategy from its tag spelling.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "auto":
		return StrategyAuto, nil
	case "instant":
		return StrategyInstantString, nil
	case "local":
		return StrategyLocalString, nil
	case "epoch_millis":
		return StrategyEpochMillis, nil
	case "epoch_seconds":
		return StrategyEpochSeconds, nil
	case "pattern":
		return StrategyCustomPattern, nil
	case "text":
		return StrategyLocaleText, nil
	default:
		return 0, fmt.Errorf("unknown temporal strategy %q", s)
	}
}

// Config carries the per-field temporal conversion parameters.
type Config struct {
	Strategy Strategy
	// Pattern is the layout string for StrategyCustomPattern.
	Pattern string
	// TZ is an IANA zone name; empty means UTC.
	TZ string
	// PreserveSubsecond keeps sub-millisecond precision on decode.
	PreserveSubsecond bool
	// Lenient enables the fallback parser when strict parsing fails.
	Lenient bool
}

// DefaultConfig is the configuration applied to temporal fields that carry
// no explicit settings.
func DefaultConfig() Config {
	return Config{Strategy: StrategyAuto, Lenient: true}
}

// Resolve returns the effective strategy for a field of kind k.
//
// The auto table: zone-aware instants encode as instant text, zone-naive
// locals as local text, and the legacy epoch family as epoch millis.
func (c Config) Resolve(k Kind) Strategy {
	if c.Strategy != StrategyAuto {
		return c.Strategy
	}

	switch k {
	case KindInstant:
		return StrategyInstantString
	case KindLocalDateTime, KindLocalDate, KindLocalTime:
		return StrategyLocalString
	case KindLegacy:
		return StrategyEpochMillis
	default:
		return StrategyInstantString
	}
}

func (c Config) location() (*time.Location, error) {
	if c.TZ == "" {
		return time.UTC, nil
	}

	return time.LoadLocation(c.TZ)
}

// ErrParse is wrapped by decode failures that exhausted both strict and
// lenient parsing.
var ErrParse = errors.New("temporal parse failed")

// Encode converts a temporal value of kind k to its map representation.
func Encode(v any, k Kind, c Config) (any, error) {
	loc, err := c.location()
	if err != nil {
		return nil, err
	}

	instant, err := toInstant(v, k, loc)
	if err != nil {
		return nil, err
	}

	switch c.Resolve(k) {
	case StrategyInstantString:
		return instant.UTC().Format(time.RFC3339Nano), nil
	case StrategyLocalString:
		return localText(v, instant, k, loc), nil
	case StrategyEpochMillis:
		return instant.UnixMilli(), nil
	case StrategyEpochSeconds:
		return instant.Unix(), nil
	case StrategyCustomPattern:
		if c.Pattern == "" {
			return nil, errors.New("temporal: pattern strategy requires a layout")
		}

		return instant.In(loc).Format(c.Pattern), nil
	case StrategyLocaleText:
		return fmt.Sprint(v), nil
	default:
		return nil, fmt.Errorf("temporal: unsupported strategy %v", c.Strategy)
	}
}

// localText renders the zone-naive ISO text for v. Zone-aware kinds are
// first shifted into the configured location.
func localText(v any, instant time.Time, k Kind, loc *time.Location) string {
	switch k {
	case KindLocalDateTime:
		return v.(LocalDateTime).String()
	case KindLocalDate:
		return v.(LocalDate).String()
	case KindLocalTime:
		return v.(LocalTime).String()
	default:
		return DateTimeOf(instant.In(loc)).String()
	}
}

// toInstant maps any recognized temporal value onto the time line. Local
// values are interpreted in loc; a lone time of day is anchored on the
// zero date, matching how the local text round-trips.
func toInstant(v any, k Kind, loc *time.Location) (time.Time, error) {
	switch k {
	case KindInstant:
		t, ok := v.(time.Time)
		if !ok {
			return time.Time{}, fmt.Errorf("temporal: expected time.Time, got %T", v)
		}

		return t, nil
	case KindLocalDateTime:
		dt, ok := v.(LocalDateTime)
		if !ok {
			return time.Time{}, fmt.Errorf("temporal: expected LocalDateTime, got %T", v)
		}

		return dt.In(loc), nil
	case KindLocalDate:
		d, ok := v.(LocalDate)
		if !ok {
			return time.Time{}, fmt.Errorf("temporal: expected LocalDate, got %T", v)
		}

		return d.At(loc), nil
	case KindLocalTime:
		t, ok := v.(LocalTime)
		if !ok {
			return time.Time{}, fmt.Errorf("temporal: expected LocalTime, got %T", v)
		}

		return t.On(LocalDate{Year: 1970, Month: time.January, Day: 1}, loc), nil
	case KindLegacy:
		ts, ok := v.(Timestamp)
		if !ok {
			return time.Time{}, fmt.Errorf("temporal: expected Timestamp, got %T", v)
		}

		return ts.Time(), nil
	default:
		return time.Time{}, fmt.Errorf("temporal: unknown kind %v", k)
	}
}

// Decode converts a map value back to the temporal kind k. It accepts
// both numeric and textual forms: numbers are epoch values scaled by the
// strategy, text is parsed per the strategy with an optional lenient
// fallback.
func Decode(mv any, k Kind, c Config) (any, error) {
	loc, err := c.location()
	if err != nil {
		return nil, err
	}

	var instant time.Time

	switch v := mv.(type) {
	case string:
		if zv, ok := zeroFromText(v, k); ok {
			return zv, nil
		}

		instant, err = parseText(v, k, c, loc)
		if err != nil {
			return nil, err
		}
	default:
		millis, castErr := cast.ToInt64E(mv)
		if castErr != nil {
			return nil, fmt.Errorf("%w: cannot decode %T as %v", ErrParse, mv, k)
		}

		if c.Resolve(k) == StrategyEpochSeconds {
			millis *= 1000
		}

		instant = time.UnixMilli(millis).UTC()
	}

	// Epoch strategies carry millisecond precision on the wire; textual
	// strategies keep whatever precision the text itself holds.
	if !c.PreserveSubsecond {
		switch c.Resolve(k) {
		case StrategyEpochMillis, StrategyEpochSeconds:
			instant = instant.Truncate(time.Millisecond)
		}
	}

	return fromInstant(instant, k, loc), nil
}

// zeroFromText matches the textual form of a civil zero value, which has
// no valid calendar representation and cannot pass through the instant
// path.
func zeroFromText(s string, k Kind) (any, bool) {
	switch k {
	case KindLocalDate:
		if s == (LocalDate{}).String() {
			return LocalDate{}, true
		}
	case KindLocalDateTime:
		if s == (LocalDateTime{}).String() {
			return LocalDateTime{}, true
		}
	}

	return nil, false
}

func fromInstant(t time.Time, k Kind, loc *time.Location) any {
	switch k {
	case KindInstant:
		return t
	case KindLocalDateTime:
		return DateTimeOf(t.In(loc))
	case KindLocalDate:
		return DateOf(t.In(loc))
	case KindLocalTime:
		return TimeOf(t.In(loc))
	case KindLegacy:
		return TimestampOf(t)
	default:
		return nil
	}
}

func parseText(s string, k Kind, c Config, loc *time.Location) (time.Time, error) {
	switch c.Resolve(k) {
	case StrategyInstantString:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err == nil {
			return t, nil
		}

		return lenientParse(s, c, loc)
	case StrategyLocalString:
		t, err := parseLocalText(s, k, loc)
		if err == nil {
			return t, nil
		}

		return lenientParse(s, c, loc)
	case StrategyCustomPattern:
		t, err := time.ParseInLocation(c.Pattern, s, loc)
		if err == nil {
			return t, nil
		}

		if !c.Lenient {
			return time.Time{}, fmt.Errorf("%w: %q does not match layout %q", ErrParse, s, c.Pattern)
		}

		return lenientParse(s, c, loc)
	case StrategyEpochMillis, StrategyEpochSeconds:
		// A digit string is an epoch value at the strategy's own scale.
		if n, convErr := cast.ToInt64E(s); convErr == nil {
			if c.Resolve(k) == StrategyEpochSeconds {
				n *= 1000
			}

			return time.UnixMilli(n).UTC(), nil
		}

		return lenientParse(s, c, loc)
	default:
		return lenientParse(s, c, loc)
	}
}

func parseLocalText(s string, k Kind, loc *time.Location) (time.Time, error) {
	switch k {
	case KindLocalDate:
		d, err := ParseLocalDate(s)
		if err != nil {
			return time.Time{}, err
		}

		return d.At(loc), nil
	case KindLocalTime:
		t, err := ParseLocalTime(s)
		if err != nil {
			return time.Time{}, err
		}

		return t.On(LocalDate{Year: 1970, Month: time.January, Day: 1}, loc), nil
	default:
		dt, err := ParseLocalDateTime(s)
		if err != nil {
			return time.Time{}, err
		}

		return dt.In(loc), nil
	}
}

// fallbackLayouts are tried in order by the lenient parser. The list
// mirrors the formats historically accepted by legacy date parsers.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

func lenientParse(s string, c Config, loc *time.Location) (time.Time, error) {
	if !c.Lenient {
		return time.Time{}, fmt.Errorf("%w: %q", ErrParse, s)
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if millis, err := cast.ToInt64E(s); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrParse, s)
}
