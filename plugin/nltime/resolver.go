// Package nltime resolves natural-language date/time expressions into
// timezone-qualified instants. Relative phrases ("tomorrow", "end of today")
// are short-circuited through a fixed rule table before falling back to a
// general parser, because generic layout parsing handles colloquial relative
// terms inconsistently.
package nltime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Patterns for the fallback natural-language parser.
var (
	inOffsetPattern  = regexp.MustCompile(`^in\s+(\d+)\s+(minutes?|hours?|days?|weeks?)$`)
	agoOffsetPattern = regexp.MustCompile(`^(\d+)\s+(minutes?|hours?|days?|weeks?)\s+ago$`)

	nextWeekdayPattern = regexp.MustCompile(`\bnext\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	lastWeekdayPattern = regexp.MustCompile(`\blast\s+(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	thisWeekdayPattern = regexp.MustCompile(`\b(?:this\s+)?(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)

	monthDayPattern = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\.?\s+(\d{1,2})(?:st|nd|rd|th)?(?:,?\s*(\d{4}))?\b`)
	dayMonthPattern = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(january|february|march|april|may|june|july|august|september|october|november|december)\b(?:,?\s*(\d{4}))?`)

	hourMinutePattern = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\s*(am|pm)?\b`)
	hourMeridiem      = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm)\b`)

	lowerRFC3339Pattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})t(\d{2}:\d{2}.*)$`)
)

// dayWords maps relative day keywords to day offsets. Ordered so that
// "day after tomorrow" is matched before the "tomorrow" it contains.
var dayWords = []struct {
	word   string
	offset int
}{
	{"day after tomorrow", 2},
	{"tomorrow", 1},
	{"yesterday", -1},
	{"today", 0},
	{"tonight", 0},
}

// weekdayNames maps lowercase weekday names to offsets from Monday.
var weekdayNames = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// monthNames maps lowercase month names to time.Month.
var monthNames = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// relativeRules maps a normalized phrase to a pure function of "now".
// Keeping the rules parameterized by the caller's instant (instead of
// closures over wall-clock reads) makes resolution deterministic under
// instant injection.
var relativeRules = map[string]func(now time.Time) time.Time{
	"now":                    func(now time.Time) time.Time { return now },
	"today":                  dayStartRule(0),
	"start of today":         dayStartRule(0),
	"beginning of today":     dayStartRule(0),
	"end of today":           dayEndRule(0),
	"tonight":                dayEndRule(0),
	"tomorrow":               dayStartRule(1),
	"start of tomorrow":      dayStartRule(1),
	"beginning of tomorrow":  dayStartRule(1),
	"end of tomorrow":        dayEndRule(1),
	"yesterday":              dayStartRule(-1),
	"start of yesterday":     dayStartRule(-1),
	"beginning of yesterday": dayStartRule(-1),
	"end of yesterday":       dayEndRule(-1),
}

func dayStartRule(offset int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		return startOfDay(now.AddDate(0, 0, offset))
	}
}

func dayEndRule(offset int) func(time.Time) time.Time {
	return func(now time.Time) time.Time {
		return endOfDay(now.AddDate(0, 0, offset))
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// ResolutionError reports a date/time expression that could not be resolved.
// It always carries the original expression; the resolver never returns a
// guessed instant.
type ResolutionError struct {
	Expr string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to resolve time expression: %q", e.Expr)
}

// ClockTime is a clock-time-of-day used to requalify bare-date resolutions.
type ClockTime struct {
	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// StartOfDay returns the midnight clock time.
func StartOfDay() ClockTime {
	return ClockTime{}
}

// EndOfDay returns the last representable clock time of a day.
func EndOfDay() ClockTime {
	return ClockTime{Hour: 23, Minute: 59, Second: 59, Nanosecond: 999999999}
}

// Resolver resolves time expressions relative to an injectable "now".
type Resolver struct {
	timezone     *time.Location
	now          func() time.Time
	preferFuture bool
}

// NewResolver creates a resolver for the given timezone. A nil location
// falls back to time.Local. Bare weekday names prefer the nearest future
// occurrence by default.
func NewResolver(timezone *time.Location) *Resolver {
	if timezone == nil {
		timezone = time.Local
	}
	return &Resolver{
		timezone:     timezone,
		now:          time.Now,
		preferFuture: true,
	}
}

// WithTimezone returns a copy of the resolver using the given timezone.
func (r *Resolver) WithTimezone(tz *time.Location) *Resolver {
	return &Resolver{timezone: tz, now: r.now, preferFuture: r.preferFuture}
}

// WithNow returns a copy of the resolver using the given clock. Used to pin
// "now" for deterministic resolution.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	return &Resolver{timezone: r.timezone, now: now, preferFuture: r.preferFuture}
}

// Resolve converts an expression into an instant in the resolver's timezone.
//
// When the resolution lands exactly on midnight and defaultClock is non-nil,
// the clock component is replaced with defaultClock while keeping the
// resolved date. Callers use this to push bare dates to end-of-day for
// range-maximum fields.
func (r *Resolver) Resolve(expr string, defaultClock *ClockTime) (time.Time, error) {
	normalized := normalize(expr)
	if normalized == "" {
		return time.Time{}, &ResolutionError{Expr: expr}
	}

	now := r.now().In(r.timezone)

	if rule, ok := relativeRules[normalized]; ok {
		return r.applyDefaultClock(rule(now), defaultClock), nil
	}

	if t, ok := r.tryLayouts(strings.TrimSpace(expr), now); ok {
		return r.applyDefaultClock(t, defaultClock), nil
	}

	t, err := r.parseNatural(normalized, now)
	if err != nil {
		return time.Time{}, &ResolutionError{Expr: expr}
	}
	return r.applyDefaultClock(t, defaultClock), nil
}

// applyDefaultClock substitutes the clock component of midnight results.
func (r *Resolver) applyDefaultClock(t time.Time, clock *ClockTime) time.Time {
	if clock == nil {
		return t
	}
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(),
		clock.Hour, clock.Minute, clock.Second, clock.Nanosecond, t.Location())
}

// tryLayouts attempts a fixed table of standard date/time layouts.
func (r *Resolver) tryLayouts(input string, now time.Time) (time.Time, bool) {
	// RFC 3339 permits lowercase date/time separator and zone designator;
	// Go layouts treat them as literals, so canonicalize first.
	if m := lowerRFC3339Pattern.FindStringSubmatch(input); m != nil {
		input = m[1] + "T" + strings.ToUpper(m[2])
	}

	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
		"2006/01/02",
		"01/02/2006 15:04",
		"01/02/2006",
		"January 2, 2006 15:04",
		"January 2, 2006 3:04 PM",
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"15:04:05",
		"15:04",
	}

	for _, layout := range layouts {
		t, err := time.ParseInLocation(layout, input, r.timezone)
		if err != nil {
			continue
		}
		// Time-only layouts resolve onto today's date.
		if layout == "15:04:05" || layout == "15:04" {
			return time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, r.timezone), true
		}
		return t, true
	}

	return time.Time{}, false
}

// parseNatural handles compound natural expressions such as
// "tomorrow at 3pm", "next friday 15:00", "may 21st at 3pm" or "in 2 hours".
func (r *Resolver) parseNatural(input string, now time.Time) (time.Time, error) {
	if t, ok := r.tryRelativeOffset(input, now); ok {
		return t, nil
	}

	datePart := now
	dateModified := false

	for _, dw := range dayWords {
		if strings.Contains(input, dw.word) {
			datePart = now.AddDate(0, 0, dw.offset)
			dateModified = true
			break
		}
	}

	if !dateModified {
		if t, ok := r.parseWeekday(input, now); ok {
			datePart = t
			dateModified = true
		}
	}

	if !dateModified {
		if t, ok := r.parseMonthDay(input, now); ok {
			datePart = t
			dateModified = true
		}
	}

	clock, err := parseClockPart(input)
	if err != nil {
		return time.Time{}, err
	}

	switch {
	case dateModified && clock != nil:
		return time.Date(datePart.Year(), datePart.Month(), datePart.Day(),
			clock.hour, clock.minute, clock.second, 0, r.timezone), nil
	case dateModified:
		// Date-only resolution yields midnight so that the default-clock
		// substitution applies uniformly.
		return startOfDay(datePart.In(r.timezone)), nil
	case clock != nil:
		// A clock with no recognized date part resolves onto today only
		// when nothing else surrounds it; "gibberish 14:00" is not a time
		// expression, and guessing the date would hide the garbage.
		if !clockOnly(input, clock) {
			return time.Time{}, fmt.Errorf("unparsed tokens around clock time: %s", input)
		}
		return time.Date(now.Year(), now.Month(), now.Day(),
			clock.hour, clock.minute, clock.second, 0, r.timezone), nil
	}

	return time.Time{}, fmt.Errorf("unable to parse time: %s", input)
}

// tryRelativeOffset parses "in N hours" and "N hours ago" expressions.
func (r *Resolver) tryRelativeOffset(input string, now time.Time) (time.Time, bool) {
	matches := inOffsetPattern.FindStringSubmatch(input)
	backwards := false
	if matches == nil {
		matches = agoOffsetPattern.FindStringSubmatch(input)
		backwards = true
	}
	if matches == nil {
		return time.Time{}, false
	}

	n, _ := strconv.Atoi(matches[1])
	var d time.Duration
	switch strings.TrimSuffix(matches[2], "s") {
	case "minute":
		d = time.Duration(n) * time.Minute
	case "hour":
		d = time.Duration(n) * time.Hour
	case "day":
		d = time.Duration(n) * 24 * time.Hour
	case "week":
		d = time.Duration(n) * 7 * 24 * time.Hour
	default:
		return time.Time{}, false
	}

	if backwards {
		d = -d
	}
	return now.Add(d), true
}

// parseWeekday resolves weekday references against Monday-based weeks.
// "next X" means X of the following Monday-based week, so on a Wednesday
// "next friday" is nine days out while "next monday" is five; a bare
// weekday name instead means the nearest occurrence (future when
// preferFuture is set). "last X" mirrors "next X" into the previous week.
func (r *Resolver) parseWeekday(input string, now time.Time) (time.Time, bool) {
	current := int(now.Weekday())
	if current == 0 {
		current = 7
	}
	current-- // Monday = 0

	// "next X" before the bare pattern so "next friday" is not consumed
	// as a this-week "friday".
	if matches := nextWeekdayPattern.FindStringSubmatch(input); len(matches) > 1 {
		target := weekdayNames[matches[1]]
		return now.AddDate(0, 0, (7-current)+target), true
	}

	if matches := lastWeekdayPattern.FindStringSubmatch(input); len(matches) > 1 {
		target := weekdayNames[matches[1]]
		return now.AddDate(0, 0, -(current+7)+target), true
	}

	if matches := thisWeekdayPattern.FindStringSubmatch(input); len(matches) > 1 {
		target := weekdayNames[matches[1]]
		diff := target - current
		if diff < 0 && r.preferFuture {
			diff += 7
		}
		return now.AddDate(0, 0, diff), true
	}

	return time.Time{}, false
}

// parseMonthDay resolves month-name dates such as "may 21st" or
// "21st of may, 2026". A missing year defaults to the current year.
func (r *Resolver) parseMonthDay(input string, now time.Time) (time.Time, bool) {
	var monthName, dayStr, yearStr string

	if matches := monthDayPattern.FindStringSubmatch(input); len(matches) > 3 {
		monthName, dayStr, yearStr = matches[1], matches[2], matches[3]
	} else if matches := dayMonthPattern.FindStringSubmatch(input); len(matches) > 3 {
		dayStr, monthName, yearStr = matches[1], matches[2], matches[3]
	} else {
		return time.Time{}, false
	}

	month, ok := monthNames[monthName]
	if !ok {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(dayStr)
	if day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := now.Year()
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, r.timezone)
	// Reject normalized overflow such as "february 30".
	if t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// errInvalidClock marks a clock-like token with out-of-range components.
var errInvalidClock = fmt.Errorf("invalid clock time")

// clockMatch is a clock time extracted from an expression, with the input
// span it occupied.
type clockMatch struct {
	hour, minute, second int
	start, end           int
}

// clockFillerWords are the connectives allowed around a bare clock time.
var clockFillerWords = map[string]bool{
	"at":     true,
	"around": true,
	"about":  true,
	"by":     true,
	"on":     true,
}

// clockOnly reports whether input contains nothing but the matched clock
// and filler words.
func clockOnly(input string, clock *clockMatch) bool {
	rest := input[:clock.start] + " " + input[clock.end:]
	for _, token := range strings.Fields(rest) {
		if !clockFillerWords[token] {
			return false
		}
	}
	return true
}

// parseClockPart extracts a clock time from an expression. Nil with no
// error means no clock is present; a clock-like token with out-of-range
// components is an error, so "tomorrow at 15pm" fails instead of quietly
// resolving to midnight.
func parseClockPart(input string) (*clockMatch, error) {
	if span := hourMinutePattern.FindStringSubmatchIndex(input); span != nil {
		matches := hourMinutePattern.FindStringSubmatch(input)
		h, _ := strconv.Atoi(matches[1])
		m, _ := strconv.Atoi(matches[2])
		sec := 0
		if matches[3] != "" {
			sec, _ = strconv.Atoi(matches[3])
		}
		if matches[4] != "" && (h < 1 || h > 12) {
			return nil, errInvalidClock
		}
		if h > 23 || m > 59 || sec > 59 {
			return nil, errInvalidClock
		}
		return &clockMatch{
			hour:   adjustMeridiem(h, matches[4]),
			minute: m,
			second: sec,
			start:  span[0],
			end:    span[1],
		}, nil
	}

	if span := hourMeridiem.FindStringSubmatchIndex(input); span != nil {
		matches := hourMeridiem.FindStringSubmatch(input)
		h, _ := strconv.Atoi(matches[1])
		if h < 1 || h > 12 {
			return nil, errInvalidClock
		}
		return &clockMatch{
			hour:  adjustMeridiem(h, matches[2]),
			start: span[0],
			end:   span[1],
		}, nil
	}

	if i := strings.Index(input, "noon"); i >= 0 {
		return &clockMatch{hour: 12, start: i, end: i + len("noon")}, nil
	}
	if i := strings.Index(input, "midnight"); i >= 0 {
		return &clockMatch{start: i, end: i + len("midnight")}, nil
	}

	return nil, nil
}

func adjustMeridiem(hour int, meridiem string) int {
	switch meridiem {
	case "pm":
		if hour < 12 {
			return hour + 12
		}
	case "am":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

// normalize lowercases, trims, collapses underscores to spaces and squeezes
// repeated whitespace.
func normalize(expr string) string {
	s := strings.ToLower(strings.TrimSpace(expr))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}
