package hours

// Meal-time cutoffs in minutes since midnight.
const (
	LunchCutoff       = 15 * 60
	DinnerCutoff      = 17 * 60
	LateNightCloseMax = 3 * 60
)

// ServesLunch reports whether any range opens before 15:00.
// Unknown hours count as serving lunch; an explicit "Closed" does not.
func (s Schedule) ServesLunch() bool {
	switch s.Kind {
	case ClosedToday:
		return false
	case Scheduled:
		for _, r := range s.Ranges {
			if r.Open < LunchCutoff {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// ServesDinner reports whether any range closes at or after 17:00 or runs into the
// small hours (closes at or before 03:00).
// Unknown hours count as serving dinner; an explicit "Closed" does not.
func (s Schedule) ServesDinner() bool {
	switch s.Kind {
	case ClosedToday:
		return false
	case Scheduled:
		for _, r := range s.Ranges {
			if r.Close >= DinnerCutoff || r.Close <= LateNightCloseMax {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// ServesLunch parses text and reports Schedule.ServesLunch.
func ServesLunch(text string) bool {
	return Parse(text).ServesLunch()
}

// ServesDinner parses text and reports Schedule.ServesDinner.
func ServesDinner(text string) bool {
	return Parse(text).ServesDinner()
}
