package billing

// =============================================================================
// PERIOD - One monthly billing interval of a booking
// =============================================================================

// Period is a billing interval [Start, End). End is clamped to the booking's
// check-out date for the final period.
type Period struct {
	Start Date
	End   Date
}

// Days returns the length of the period in days.
func (p Period) Days() int {
	return p.Start.DaysUntil(p.End)
}

// Contains reports whether d falls inside [Start, End).
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.Before(p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + ")"
}

// =============================================================================
// PERIOD GENERATOR
// =============================================================================

// GeneratePeriods splits [start, end) into consecutive monthly periods.
//
// Every boundary is start + k months on the start's day of month (the
// anchor day). Months too short for the anchor use their last day instead,
// and the next boundary returns to the anchor: a booking from Jan 31 runs
// Jan 31 -> Feb 28 -> Mar 31 -> Apr 30. The last period ends exactly at end.
//
// Returns nil when end is not after start.
func GeneratePeriods(start, end Date) []Period {
	if !start.Before(end) {
		return nil
	}

	anchor := start.Day()
	var periods []Period
	current := start
	for k := 1; current.Before(end); k++ {
		next := start.AddMonthsAnchored(k, anchor)
		if next.After(end) {
			next = end
		}
		periods = append(periods, Period{Start: current, End: next})
		current = next
	}
	return periods
}
