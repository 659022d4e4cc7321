package hours

import (
	"fmt"
	"sort"
	"time"
)

// Status is the "open now" view of an hours text.
// An empty Label means there is nothing worth rendering.
type Status struct {
	IsOpen bool
	Label  string
}

const (
	labelAlwaysOpen  = "Open 24 hours"
	labelClosedToday = "Closed today"
)

// OpenStatus parses text and evaluates it at now's local wall-clock time.
func OpenStatus(text string, now time.Time) Status {
	return Parse(text).StatusAt(now.Hour()*60 + now.Minute())
}

// StatusAt evaluates the schedule at the given minute since midnight.
//
// When several ranges contain minute, the first one in source order decides the
// closing time. When none does, the label names the next opening later today, or the
// earliest opening of the day if nothing opens later.
func (s Schedule) StatusAt(minute int) Status {
	switch s.Kind {
	case AlwaysOpen:
		return Status{IsOpen: true, Label: labelAlwaysOpen}
	case ClosedToday:
		return Status{IsOpen: false, Label: labelClosedToday}
	case Scheduled:
	default:
		return Status{}
	}
	if len(s.Ranges) == 0 {
		return Status{}
	}

	for _, r := range s.Ranges {
		if r.Contains(minute) {
			return Status{IsOpen: true, Label: "Open · til " + FormatMinutes(r.Close)}
		}
	}

	sorted := make([]Range, len(s.Ranges))
	copy(sorted, s.Ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Open < sorted[j].Open })

	next := sorted[0]
	for _, r := range sorted {
		if r.Open > minute {
			next = r
			break
		}
	}
	return Status{IsOpen: false, Label: "Closed · Opens " + FormatMinutes(next.Open)}
}

// FormatMinutes renders minutes since midnight as "HH:MM".
func FormatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", (total/60)%24, total%60)
}
