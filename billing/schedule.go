/*
schedule.go - Monthly payment schedule of a booking

PURPOSE:
  Turns a booking's date range and its recorded payments into the month by
  month schedule shown on the reservation page:

    GeneratePeriods -> Reconcile (against BuildIndex) -> FilterByYear

  Everything here is a pure function of its inputs. Nothing is persisted;
  the schedule is recomputed on every view.

FALLBACKS:
  The schedule must always render, whatever is stored:
  - unknown month keys are skipped by the index
  - an unreadable payment amount shows the property's base rate
  - an unreadable payment date shows the period start

REFERENCE DATE:
  Periods whose date lies after "today" are hidden. Today comes from
  Calculator.Now so that callers and tests can pin it.

SEE ALSO:
  - period.go: Period generation and anchor-day clamping
  - index.go: First-payment-per-bucket lookup
*/
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of a billing period.
type Status string

const (
	StatusPaid    Status = "paid"
	StatusPending Status = "pending"
)

// Entry is one line of the schedule.
type Entry struct {
	Month       time.Month
	Year        int
	PeriodStart Date
	PeriodEnd   Date
	Amount      decimal.Decimal
	Date        Date
	Status      Status
}

// Label is the full month name, e.g. "January".
func (e Entry) Label() string { return e.Month.String() }

// =============================================================================
// RECONCILER
// =============================================================================

// Reconcile pairs every period with the payment recorded in its start
// month. Unpaid periods are pending at the fallback rate.
func Reconcile(periods []Period, idx Index, fallbackRate decimal.Decimal) []Entry {
	entries := make([]Entry, 0, len(periods))
	for _, p := range periods {
		e := Entry{
			Month:       p.Start.Month(),
			Year:        p.Start.Year(),
			PeriodStart: p.Start,
			PeriodEnd:   p.End,
			Amount:      fallbackRate,
			Date:        p.Start,
			Status:      StatusPending,
		}
		if ev, ok := idx.Lookup(BucketOf(p.Start)); ok {
			e.Status = StatusPaid
			if amount, ok := ev.ParsedAmount(); ok {
				e.Amount = amount
			}
			if date, ok := ev.ParsedDate(); ok {
				e.Date = date
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// =============================================================================
// YEAR FILTER
// =============================================================================

// FilterOptions selects which part of a schedule is shown.
type FilterOptions struct {
	Year         int
	BookingStart Date
	BookingEnd   Date
	// AsOf hides entries dated after it. Zero disables the cut-off.
	AsOf Date
}

// FilterByYear keeps the entries of the selected year, bounded by the
// booking's first month in its start year and by its last month in its end
// year. Input order is preserved.
func FilterByYear(entries []Entry, opts FilterOptions) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !opts.AsOf.IsZero() && e.Date.After(opts.AsOf) {
			continue
		}
		if e.Year != opts.Year {
			continue
		}
		switch {
		case opts.Year == opts.BookingStart.Year():
			if e.PeriodStart.Month() < opts.BookingStart.Month() {
				continue
			}
		case opts.Year == opts.BookingEnd.Year():
			if e.PeriodStart.Month() > opts.BookingEnd.Month() {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// =============================================================================
// CALCULATOR
// =============================================================================

// Request is everything needed to compute a booking's schedule.
type Request struct {
	Start        Date
	End          Date
	Payments     PaymentData
	FallbackRate decimal.Decimal
	// Year to display. Zero means the booking's start year.
	Year int
}

// Result is a computed schedule for one year.
type Result struct {
	SelectedYear int
	Years        []int
	Entries      []Entry
	TotalPaid    decimal.Decimal
	TotalPending decimal.Decimal
}

// Calculator computes schedules relative to a clock.
type Calculator struct {
	Now func() time.Time
}

// NewCalculator returns a calculator on the wall clock.
func NewCalculator() *Calculator {
	return &Calculator{Now: time.Now}
}

// FixedClock returns a clock that always reads d.
func FixedClock(d Date) func() time.Time {
	return func() time.Time { return d.Time() }
}

// Today returns the calculator's reference date.
func (c *Calculator) Today() Date {
	if c == nil || c.Now == nil {
		return Today()
	}
	return DateOf(c.Now())
}

// Compute builds the schedule for req.
func (c *Calculator) Compute(req Request) Result {
	year := req.Year
	if year == 0 {
		year = req.Start.Year()
	}

	periods := GeneratePeriods(req.Start, req.End)
	entries := Reconcile(periods, BuildIndex(req.Payments), req.FallbackRate)
	entries = FilterByYear(entries, FilterOptions{
		Year:         year,
		BookingStart: req.Start,
		BookingEnd:   req.End,
		AsOf:         c.Today(),
	})

	res := Result{
		SelectedYear: year,
		Years:        Years(req.Start, req.End),
		Entries:      entries,
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
	}
	for _, e := range entries {
		if e.Status == StatusPaid {
			res.TotalPaid = res.TotalPaid.Add(e.Amount)
		} else {
			res.TotalPending = res.TotalPending.Add(e.Amount)
		}
	}
	return res
}

// Years lists the calendar years a booking touches, for the year picker.
func Years(start, end Date) []int {
	if start.IsZero() || end.Before(start) {
		return nil
	}
	years := make([]int, 0, end.Year()-start.Year()+1)
	for y := start.Year(); y <= end.Year(); y++ {
		years = append(years, y)
	}
	return years
}
