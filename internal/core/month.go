package core

import "time"

// ReferenceZone is the fixed UTC+8 offset used for every "current date"
// derivation. Pinning the zone keeps "today" identical no matter where the
// server runs.
var ReferenceZone = time.FixedZone("UTC+8", 8*60*60)

// MonthWindow is an inclusive [Start, End] calendar range in YYYY-MM-DD form,
// suitable for lexical comparison against Expenditure.Date.
type MonthWindow struct {
	Start string
	End   string
}

// ResolveMonthWindow returns the window for the given year and zero-based
// month index (0 = January). Start is the 1st; End is the last calendar day,
// computed as day zero of the following month so 28/29/30/31-day months and
// leap years fall out of time.Date normalization.
func ResolveMonthWindow(year, monthIndex int) MonthWindow {
	first := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, time.Month(monthIndex+2), 0, 0, 0, 0, 0, time.UTC)
	return MonthWindow{
		Start: first.Format(DateLayout),
		End:   last.Format(DateLayout),
	}
}

// CurrentMonthWindow resolves the window for the current month in the fixed
// UTC+8 reference zone.
func CurrentMonthWindow() MonthWindow {
	now := time.Now().In(ReferenceZone)
	return ResolveMonthWindow(now.Year(), int(now.Month())-1)
}

// Today returns the current calendar date in the reference zone.
func Today() string {
	return time.Now().In(ReferenceZone).Format(DateLayout)
}

// Contains reports whether date falls inside the window. Dates are compared
// lexically, which matches chronological order for the zero-padded layout.
func (w MonthWindow) Contains(date string) bool {
	return date >= w.Start && date <= w.End
}
