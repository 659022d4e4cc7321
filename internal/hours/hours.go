// Package hours parses free-text business hours into minute ranges and derives an
// "open now" status from them.
//
// Parsing never fails: text that cannot be understood yields an Unknown schedule,
// which callers must not treat as closed.
package hours

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MinutesPerDay is the number of minutes in a day; valid offsets are 0..MinutesPerDay-1.
const MinutesPerDay = 24 * 60

// Range is one open period in minutes since local midnight.
// A Close that is numerically <= Open means the range runs past midnight.
type Range struct {
	Open  int
	Close int
}

// Wraps reports whether the range crosses midnight.
func (r Range) Wraps() bool {
	return r.Close <= r.Open
}

// Contains reports whether minute falls inside the range, honoring wraparound.
func (r Range) Contains(minute int) bool {
	if r.Wraps() {
		return minute >= r.Open || minute < r.Close
	}
	return minute >= r.Open && minute < r.Close
}

// Kind classifies a parsed hours text.
type Kind int

const (
	// Unknown means nothing could be parsed. It is not evidence of closure.
	Unknown Kind = iota
	// Scheduled means one or more ranges were parsed.
	Scheduled
	// AlwaysOpen is the literal "Open 24 hours".
	AlwaysOpen
	// ClosedToday is the literal "Closed".
	ClosedToday
)

func (k Kind) String() string {
	switch k {
	case Scheduled:
		return "scheduled"
	case AlwaysOpen:
		return "always_open"
	case ClosedToday:
		return "closed_today"
	default:
		return "unknown"
	}
}

// Schedule is the parsed form of one hours text.
// Ranges keep the order in which they appear in the text and may overlap.
type Schedule struct {
	Kind   Kind
	Ranges []Range
}

// rangeDash matches the separators seen between open and close times: en dash,
// em dash, tilde, wave dash and ASCII hyphen.
const rangeDash = `[–—~〜-]`

var (
	openAllDayPattern = regexp.MustCompile(`(?i)open\s*24`)
	closedPattern     = regexp.MustCompile(`(?i)^closed$`)

	// "11:30 AM – 10:00 PM"
	bothMeridiemPattern = regexp.MustCompile(
		`(?i)(\d{1,2}):(\d{2})\s*(AM|PM)\s*` + rangeDash + `\s*(\d{1,2}):(\d{2})\s*(AM|PM)`)

	// "12:00 – 3:00 PM"
	closeMeridiemPattern = regexp.MustCompile(
		`(?i)(\d{1,2}):(\d{2})\s*` + rangeDash + `\s*(\d{1,2}):(\d{2})\s*(AM|PM)`)

	// "11:30~22:00", "17:00〜翌2:00"
	twentyFourPattern = regexp.MustCompile(
		`(\d{1,2}):(\d{2})\s*` + rangeDash + `\s*(翌)?(\d{1,2}):(\d{2})`)
)

// Parse classifies and parses an hours text.
func Parse(text string) Schedule {
	trimmed := strings.TrimSpace(normalize(text))
	if trimmed == "" {
		return Schedule{Kind: Unknown}
	}
	if openAllDayPattern.MatchString(trimmed) {
		return Schedule{Kind: AlwaysOpen}
	}
	if closedPattern.MatchString(trimmed) {
		return Schedule{Kind: ClosedToday}
	}

	ranges := parseClauses(trimmed)
	if len(ranges) == 0 {
		return Schedule{Kind: Unknown}
	}
	return Schedule{Kind: Scheduled, Ranges: ranges}
}

// ParseRanges returns the ranges found in text, in source order.
// The literals "Open 24 hours" and "Closed" carry no ranges.
func ParseRanges(text string) []Range {
	return Parse(text).Ranges
}

// parseClauses splits on commas and parses each clause independently.
// Clauses that do not parse are dropped.
func parseClauses(text string) []Range {
	var ranges []Range
	for _, clause := range strings.Split(text, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if r, ok := parseClause(clause); ok {
			ranges = append(ranges, r)
		}
	}
	return ranges
}

func parseClause(clause string) (Range, bool) {
	if m := bothMeridiemPattern.FindStringSubmatch(clause); m != nil {
		open, okOpen := twelveHour(m[1], m[2], meridiemOf(m[3]))
		closing, okClose := twelveHour(m[4], m[5], meridiemOf(m[6]))
		if okOpen && okClose {
			return Range{Open: open, Close: closing}, true
		}
		return Range{}, false
	}

	if m := closeMeridiemPattern.FindStringSubmatch(clause); m != nil {
		closeMeridiem := meridiemOf(m[5])
		closing, okClose := twelveHour(m[3], m[4], closeMeridiem)
		if !okClose {
			return Range{}, false
		}
		open, okOpen := twelveHour(m[1], m[2], inferOpenMeridiem(m[1], m[2], closing, closeMeridiem))
		if !okOpen {
			return Range{}, false
		}
		return Range{Open: open, Close: closing}, true
	}

	if m := twentyFourPattern.FindStringSubmatch(clause); m != nil {
		open, okOpen := twentyFourHour(m[1], m[2])
		closing, okClose := twentyFourHour(m[4], m[5])
		if okOpen && okClose {
			return Range{Open: open, Close: closing}, true
		}
	}

	return Range{}, false
}

type meridiem int

const (
	am meridiem = iota
	pm
)

func meridiemOf(s string) meridiem {
	if strings.EqualFold(s, "PM") {
		return pm
	}
	return am
}

func (m meridiem) opposite() meridiem {
	if m == am {
		return pm
	}
	return am
}

// inferOpenMeridiem picks the open side's meridiem when only the close side has one.
// Same meridiem wins if it puts open before close, then the opposite one; if neither
// orders the range, same meridiem is used and the range wraps past midnight.
func inferOpenMeridiem(hour, minute string, closeMinutes int, closeMeridiem meridiem) meridiem {
	if same, ok := twelveHour(hour, minute, closeMeridiem); ok && same < closeMinutes {
		return closeMeridiem
	}
	if opp, ok := twelveHour(hour, minute, closeMeridiem.opposite()); ok && opp < closeMinutes {
		return closeMeridiem.opposite()
	}
	return closeMeridiem
}

// twelveHour converts a 12-hour clock reading to minutes since midnight.
func twelveHour(hour, minute string, m meridiem) (int, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h > 12 {
		return 0, false
	}
	mins, err := strconv.Atoi(minute)
	if err != nil || mins > 59 {
		return 0, false
	}
	if m == am && h == 12 {
		h = 0
	}
	if m == pm && h != 12 {
		h += 12
	}
	return h*60 + mins, true
}

// twentyFourHour converts a 24-hour reading to minutes since midnight. Readings past
// 24:00 ("26:00" for 2 AM the next day) fold back into the day.
func twentyFourHour(hour, minute string) (int, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h > 47 {
		return 0, false
	}
	mins, err := strconv.Atoi(minute)
	if err != nil || mins > 59 {
		return 0, false
	}
	return (h*60 + mins) % MinutesPerDay, true
}

// normalize folds compatibility characters (full-width digits and colons, narrow
// no-break spaces) to ASCII and maps every remaining Unicode space to ' '.
func normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, norm.NFKC.String(text))
}
