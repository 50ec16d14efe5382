package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-engine/billing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const januaryPaid = `[{"year":2025,"months":{"January":[{"payment_date":"2025-01-16","payment_time":"10:00:00","payment_amount":1000}]}}]`

func parse(t *testing.T, doc string) billing.PaymentData {
	t.Helper()
	data, err := billing.ParsePaymentData([]byte(doc))
	require.NoError(t, err)
	return data
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func rate(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// =============================================================================
// INDEX
// =============================================================================

func TestBuildIndex_FirstEventPerBucket(t *testing.T) {
	data := parse(t, `[{"year":2025,"months":{"March":[
		{"payment_date":"2025-03-02","payment_time":"09:00:00","payment_amount":500},
		{"payment_date":"2025-03-20","payment_time":"09:00:00","payment_amount":700}
	]}}]`)

	idx := billing.BuildIndex(data)

	ev, ok := idx.Lookup(billing.Bucket{Year: 2025, Month: time.March})
	require.True(t, ok)
	assert.Equal(t, "2025-03-02", ev.Date)
	assert.Len(t, idx, 1)
}

func TestBuildIndex_SkipsMalformedMonthKeys(t *testing.T) {
	// GIVEN: A document with a bogus month key next to a real one
	data := parse(t, `[{"year":2025,"months":{
		"Foo":[{"payment_date":"2025-01-16","payment_time":"10:00:00","payment_amount":1}],
		"January":[{"payment_date":"2025-01-16","payment_time":"10:00:00","payment_amount":1000}]
	}}]`)

	// WHEN: Building the index
	idx := billing.BuildIndex(data)

	// THEN: Only January is indexed and its schedule line is unaffected
	assert.Len(t, idx, 1)
	entries := billing.Reconcile(billing.GeneratePeriods(d("2025-01-15"), d("2025-02-15")), idx, rate(1200))
	require.Len(t, entries, 1)
	assert.Equal(t, billing.StatusPaid, entries[0].Status)
	assertAmount(t, "1000", entries[0].Amount)
}

func TestBuildIndex_IgnoresEmptyBucketsAndBrokenEntries(t *testing.T) {
	data := parse(t, `[
		"not an entry",
		{"months":{"May":[{"payment_date":"2025-05-01","payment_time":"10:00:00","payment_amount":1}]}},
		{"year":2025,"months":{"April":[],"May":{"oops":true}}}
	]`)

	assert.Empty(t, billing.BuildIndex(data))
}

func TestBuildIndex_DuplicateYearFirstWins(t *testing.T) {
	data := parse(t, `[
		{"year":2025,"months":{"June":[{"payment_date":"2025-06-01","payment_time":"10:00:00","payment_amount":1}]}},
		{"year":2025,"months":{"June":[{"payment_date":"2025-06-09","payment_time":"10:00:00","payment_amount":2}]}}
	]`)

	ev, ok := billing.BuildIndex(data).Lookup(billing.Bucket{Year: 2025, Month: time.June})
	require.True(t, ok)
	assert.Equal(t, "2025-06-01", ev.Date)
}

func TestParseMonth(t *testing.T) {
	m, ok := billing.ParseMonth("january")
	assert.True(t, ok)
	assert.Equal(t, time.January, m)

	_, ok = billing.ParseMonth("Jan")
	assert.False(t, ok)
	_, ok = billing.ParseMonth("Foo")
	assert.False(t, ok)
}

// =============================================================================
// RECONCILER
// =============================================================================

func TestReconcile_PaidAndPendingPeriods(t *testing.T) {
	periods := billing.GeneratePeriods(d("2025-01-15"), d("2025-03-15"))
	idx := billing.BuildIndex(parse(t, januaryPaid))

	entries := billing.Reconcile(periods, idx, rate(1200))

	require.Len(t, entries, 2)

	jan := entries[0]
	assert.Equal(t, "January", jan.Label())
	assert.Equal(t, 2025, jan.Year)
	assert.Equal(t, billing.StatusPaid, jan.Status)
	assertAmount(t, "1000", jan.Amount)
	assert.Equal(t, "2025-01-16", jan.Date.String())

	feb := entries[1]
	assert.Equal(t, billing.StatusPending, feb.Status)
	assertAmount(t, "1200", feb.Amount)
	assert.Equal(t, "2025-02-15", feb.Date.String())
	assert.Equal(t, "2025-03-15", feb.PeriodEnd.String())
}

func TestReconcile_UnreadableEventFallsBack(t *testing.T) {
	data := parse(t, `[{"year":2025,"months":{"January":[{"payment_date":"16/01/2025","payment_time":"10:00:00","payment_amount":"abc"}]}}]`)
	periods := billing.GeneratePeriods(d("2025-01-15"), d("2025-02-15"))

	entries := billing.Reconcile(periods, billing.BuildIndex(data), rate(1200))

	require.Len(t, entries, 1)
	assert.Equal(t, billing.StatusPaid, entries[0].Status)
	assertAmount(t, "1200", entries[0].Amount)
	assert.Equal(t, "2025-01-15", entries[0].Date.String())
}

func TestReconcile_NumericStringAmount(t *testing.T) {
	data := parse(t, `[{"year":2025,"months":{"January":[{"payment_date":"2025-01-20","payment_time":"10:00:00","payment_amount":"950.50"}]}}]`)
	periods := billing.GeneratePeriods(d("2025-01-15"), d("2025-02-15"))

	entries := billing.Reconcile(periods, billing.BuildIndex(data), rate(1200))

	assertAmount(t, "950.50", entries[0].Amount)
}

func TestReconcile_Idempotent(t *testing.T) {
	periods := billing.GeneratePeriods(d("2024-11-05"), d("2025-06-05"))
	idx := billing.BuildIndex(parse(t, januaryPaid))

	first := billing.Reconcile(periods, idx, rate(1200))
	second := billing.Reconcile(periods, idx, rate(1200))

	assert.Equal(t, first, second)
}

// =============================================================================
// YEAR FILTER
// =============================================================================

func TestFilterByYear_EndYearOfBooking(t *testing.T) {
	// GIVEN: A booking spanning Dec 2024 - Mar 2025
	start, end := d("2024-12-10"), d("2025-03-10")
	entries := billing.Reconcile(billing.GeneratePeriods(start, end), billing.Index{}, rate(1000))

	// WHEN: Selecting 2025
	got := billing.FilterByYear(entries, billing.FilterOptions{Year: 2025, BookingStart: start, BookingEnd: end})

	// THEN: Only 2025 periods up to March remain
	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, 2025, e.Year)
		assert.LessOrEqual(t, e.PeriodStart.Month(), time.March)
	}
}

func TestFilterByYear_MonthBounds(t *testing.T) {
	start, end := d("2024-05-20"), d("2026-03-20")
	entry := func(s string) billing.Entry {
		date := d(s)
		return billing.Entry{Month: date.Month(), Year: date.Year(), PeriodStart: date, Date: date}
	}
	entries := []billing.Entry{
		entry("2024-04-20"), // before the start month
		entry("2024-05-20"),
		entry("2025-01-20"),
		entry("2025-12-20"),
		entry("2026-03-20"),
		entry("2026-04-20"), // after the end month
	}

	years := map[int][]string{}
	for _, y := range []int{2024, 2025, 2026} {
		for _, e := range billing.FilterByYear(entries, billing.FilterOptions{Year: y, BookingStart: start, BookingEnd: end}) {
			years[y] = append(years[y], e.PeriodStart.String())
		}
	}

	assert.Equal(t, []string{"2024-05-20"}, years[2024])
	assert.Equal(t, []string{"2025-01-20", "2025-12-20"}, years[2025])
	assert.Equal(t, []string{"2026-03-20"}, years[2026])
}

func TestFilterByYear_HidesFutureEntries(t *testing.T) {
	start, end := d("2025-01-15"), d("2025-06-15")
	entries := billing.Reconcile(billing.GeneratePeriods(start, end), billing.Index{}, rate(1000))

	got := billing.FilterByYear(entries, billing.FilterOptions{
		Year: 2025, BookingStart: start, BookingEnd: end, AsOf: d("2025-03-15"),
	})

	require.Len(t, got, 3)
	assert.Equal(t, "2025-03-15", got[2].PeriodStart.String())
}

// =============================================================================
// CALCULATOR
// =============================================================================

func TestCalculator_DefaultsToStartYear(t *testing.T) {
	calc := &billing.Calculator{Now: billing.FixedClock(d("2026-12-01"))}

	res := calc.Compute(billing.Request{
		Start:        d("2024-12-10"),
		End:          d("2025-03-10"),
		Payments:     parse(t, `[{"year":2024,"months":{"December":[{"payment_date":"2024-12-11","payment_time":"08:30:00","payment_amount":900}]}}]`),
		FallbackRate: rate(1000),
	})

	assert.Equal(t, 2024, res.SelectedYear)
	assert.Equal(t, []int{2024, 2025}, res.Years)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, billing.StatusPaid, res.Entries[0].Status)
	assertAmount(t, "900", res.TotalPaid)
	assertAmount(t, "0", res.TotalPending)
}

func TestCalculator_TotalsForSelectedYear(t *testing.T) {
	calc := &billing.Calculator{Now: billing.FixedClock(d("2026-12-01"))}

	res := calc.Compute(billing.Request{
		Start:        d("2025-01-15"),
		End:          d("2025-04-15"),
		Payments:     parse(t, januaryPaid),
		FallbackRate: rate(1200),
		Year:         2025,
	})

	require.Len(t, res.Entries, 3)
	assertAmount(t, "1000", res.TotalPaid)
	assertAmount(t, "2400", res.TotalPending)
}

func TestCalculator_NeverFailsOnGarbage(t *testing.T) {
	calc := &billing.Calculator{Now: billing.FixedClock(d("2026-12-01"))}

	res := calc.Compute(billing.Request{
		Start:        d("2025-01-15"),
		End:          d("2025-03-15"),
		Payments:     parse(t, `[null, 7, {"year":"2025"}, {"year":2025,"months":{"Smarch":[]}}]`),
		FallbackRate: rate(1200),
	})

	require.Len(t, res.Entries, 2)
	for _, e := range res.Entries {
		assert.Equal(t, billing.StatusPending, e.Status)
	}
}
