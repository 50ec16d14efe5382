package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

func TestLeaseScheduler_RunNowReleasesEndedStays(t *testing.T) {
	// GIVEN: A paid stay that ended in March 2024
	store := setupScenarioStore(t)
	ctx := context.Background()
	require.NoError(t, LoadScenario(ctx, store, "multi-year", testNow))
	booking, prop := onlyBooking(t, store, mustUser(t, store, "tenant").ID)
	require.Equal(t, rental.PropertyRented, prop.Status)

	// WHEN: The scheduler runs before and after the check-out date
	before := NewLeaseScheduler(store, &billing.Calculator{Now: billing.FixedClock(booking.End.AddDays(-1))})
	assert.Empty(t, before.RunNow(ctx))

	ls := NewLeaseScheduler(store, scenarioCalculator())
	released := ls.RunNow(ctx)

	// THEN: The property is back on the market, once
	assert.Equal(t, []string{prop.ID}, released)
	prop, err := store.GetProperty(ctx, prop.ID)
	require.NoError(t, err)
	assert.Equal(t, rental.PropertyActive, prop.Status)
	assert.Empty(t, ls.RunNow(ctx))
}

func TestLeaseScheduler_StartStop(t *testing.T) {
	store := setupScenarioStore(t)
	ls := NewLeaseScheduler(store, scenarioCalculator())
	ls.CheckInterval = time.Millisecond

	ls.Start()
	ls.Start() // second start is a no-op
	time.Sleep(5 * time.Millisecond)
	ls.Stop()
	ls.Stop()

	disabled := NewLeaseScheduler(store, scenarioCalculator())
	disabled.Enabled = false
	disabled.Start()
	assert.Nil(t, disabled.ticker)
}
