package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-engine/billing"
)

func d(s string) billing.Date { return billing.MustParseDate(s) }

func periodStrings(periods []billing.Period) []string {
	out := make([]string, len(periods))
	for i, p := range periods {
		out[i] = p.String()
	}
	return out
}

func TestGeneratePeriods_ThreeWholeMonths(t *testing.T) {
	periods := billing.GeneratePeriods(d("2025-01-15"), d("2025-04-15"))

	assert.Equal(t, []string{
		"[2025-01-15, 2025-02-15)",
		"[2025-02-15, 2025-03-15)",
		"[2025-03-15, 2025-04-15)",
	}, periodStrings(periods))
}

func TestGeneratePeriods_AnchorDayClampsInFebruary(t *testing.T) {
	t.Run("non-leap year", func(t *testing.T) {
		periods := billing.GeneratePeriods(d("2025-01-31"), d("2025-04-30"))
		assert.Equal(t, []string{
			"[2025-01-31, 2025-02-28)",
			"[2025-02-28, 2025-03-31)",
			"[2025-03-31, 2025-04-30)",
		}, periodStrings(periods))
	})

	t.Run("leap year", func(t *testing.T) {
		periods := billing.GeneratePeriods(d("2024-01-31"), d("2024-03-31"))
		assert.Equal(t, []string{
			"[2024-01-31, 2024-02-29)",
			"[2024-02-29, 2024-03-31)",
		}, periodStrings(periods))
	})
}

func TestGeneratePeriods_PartialLastPeriod(t *testing.T) {
	periods := billing.GeneratePeriods(d("2025-01-10"), d("2025-02-20"))

	assert.Equal(t, []string{
		"[2025-01-10, 2025-02-10)",
		"[2025-02-10, 2025-02-20)",
	}, periodStrings(periods))
}

func TestGeneratePeriods_ShorterThanOneMonth(t *testing.T) {
	periods := billing.GeneratePeriods(d("2025-03-10"), d("2025-03-20"))

	require.Len(t, periods, 1)
	assert.Equal(t, 10, periods[0].Days())
}

func TestGeneratePeriods_CrossesYearBoundary(t *testing.T) {
	periods := billing.GeneratePeriods(d("2024-11-30"), d("2025-03-01"))

	assert.Equal(t, []string{
		"[2024-11-30, 2024-12-30)",
		"[2024-12-30, 2025-01-30)",
		"[2025-01-30, 2025-02-28)",
		"[2025-02-28, 2025-03-01)",
	}, periodStrings(periods))
}

func TestGeneratePeriods_EmptyWhenEndNotAfterStart(t *testing.T) {
	assert.Empty(t, billing.GeneratePeriods(d("2025-01-15"), d("2025-01-15")))
	assert.Empty(t, billing.GeneratePeriods(d("2025-02-15"), d("2025-01-15")))
}

func TestGeneratePeriods_CoverageProperties(t *testing.T) {
	ranges := [][2]string{
		{"2025-01-01", "2025-01-02"},
		{"2025-01-29", "2026-03-29"},
		{"2024-02-29", "2025-03-01"},
		{"2023-08-31", "2024-08-30"},
		{"2025-12-31", "2027-01-15"},
		{"2025-06-15", "2025-06-14"},
	}

	for _, r := range ranges {
		start, end := d(r[0]), d(r[1])
		periods := billing.GeneratePeriods(start, end)
		if !start.Before(end) {
			assert.Empty(t, periods, "range %v", r)
			continue
		}

		require.NotEmpty(t, periods, "range %v", r)
		assert.True(t, periods[0].Start.Equal(start), "first start for %v", r)
		assert.True(t, periods[len(periods)-1].End.Equal(end), "last end for %v", r)

		for i, p := range periods {
			assert.True(t, p.Start.Before(p.End), "non-empty period %s", p)
			assert.LessOrEqual(t, p.Days(), 31, "period %s longer than a month", p)
			if i > 0 {
				assert.True(t, periods[i-1].Start.Before(p.Start), "starts increase at %d for %v", i, r)
				assert.True(t, periods[i-1].End.Equal(p.Start), "contiguous at %d for %v", i, r)
			}
		}
	}
}

func TestDate_AddMonthsAnchored(t *testing.T) {
	start := d("2025-01-31")

	assert.Equal(t, "2025-02-28", start.AddMonthsAnchored(1, 31).String())
	assert.Equal(t, "2025-03-31", start.AddMonthsAnchored(2, 31).String())
	assert.Equal(t, "2025-04-30", start.AddMonthsAnchored(3, 31).String())
	assert.Equal(t, "2026-01-31", start.AddMonthsAnchored(12, 31).String())
	assert.Equal(t, 29, billing.DaysInMonth(2024, time.February))
}

func TestPeriod_Contains(t *testing.T) {
	p := billing.Period{Start: d("2025-01-15"), End: d("2025-02-15")}

	assert.True(t, p.Contains(d("2025-01-15")))
	assert.True(t, p.Contains(d("2025-02-14")))
	assert.False(t, p.Contains(d("2025-02-15")))
	assert.False(t, p.Contains(d("2025-01-14")))
}
