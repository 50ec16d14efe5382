package rental_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

var (
	now    = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	tenant = rental.Principal{UserID: "tenant-1", Role: rental.RoleUser}
	vendor = rental.Principal{UserID: "vendor-1", Role: rental.RoleVendor}
)

func d(s string) billing.Date { return billing.MustParseDate(s) }

func listing() rental.Property {
	return rental.Property{
		ID:      "prop-1",
		OwnerID: vendor.UserID,
		Status:  rental.PropertyActive,
		Price:   decimal.NewFromInt(1200),
	}
}

func pendingBooking(t *testing.T) rental.Booking {
	t.Helper()
	b, err := rental.NewBooking(listing(), tenant, rental.BookingRequest{
		Start: d("2025-01-15"), End: d("2025-03-15"), Guests: 2,
	}, now)
	require.NoError(t, err)
	return b
}

// =============================================================================
// CREATION
// =============================================================================

func TestNewBooking_PricesProRata(t *testing.T) {
	b := pendingBooking(t)

	// 59 days at 1200 / 30
	assert.True(t, decimal.RequireFromString("2360").Equal(b.TotalPrice), b.TotalPrice.String())
	assert.Equal(t, rental.BookingPending, b.Status)
	assert.Equal(t, 59, b.DurationDays())
	assert.Equal(t, billing.Bucket{Year: 2025, Month: time.January}, b.FirstBucket())
	assert.NotEmpty(t, b.ID)
}

func TestNewBooking_RoundsToCents(t *testing.T) {
	price := rental.StayPrice(decimal.NewFromInt(1000), d("2025-01-01"), d("2025-01-08"))
	assert.Equal(t, "233.33", price.StringFixed(2))
}

func TestNewBooking_Rejections(t *testing.T) {
	rented := listing()
	rented.Status = rental.PropertyRented

	cases := map[string]struct {
		property rental.Property
		who      rental.Principal
		req      rental.BookingRequest
		check    func(error) bool
	}{
		"vendor cannot book": {
			property: listing(), who: vendor,
			req:   rental.BookingRequest{Start: d("2025-01-15"), End: d("2025-02-15")},
			check: rental.IsForbidden,
		},
		"property not active": {
			property: rented, who: tenant,
			req:   rental.BookingRequest{Start: d("2025-01-15"), End: d("2025-02-15")},
			check: rental.IsClientError,
		},
		"end before start": {
			property: listing(), who: tenant,
			req:   rental.BookingRequest{Start: d("2025-02-15"), End: d("2025-01-15")},
			check: rental.IsClientError,
		},
		"same day": {
			property: listing(), who: tenant,
			req:   rental.BookingRequest{Start: d("2025-02-15"), End: d("2025-02-15")},
			check: rental.IsClientError,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := rental.NewBooking(tc.property, tc.who, tc.req, now)
			require.Error(t, err)
			assert.True(t, tc.check(err), err.Error())
		})
	}
}

func TestNewBooking_EndBeforeStartMessage(t *testing.T) {
	_, err := rental.NewBooking(listing(), tenant, rental.BookingRequest{
		Start: d("2025-02-15"), End: d("2025-01-15"),
	}, now)

	var verr *rental.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Check-out date must be after check-in date."}, verr.Fields["end_date"])
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestBooking_ApproveOnlyByOwnerWhilePending(t *testing.T) {
	b := pendingBooking(t)
	other := rental.Principal{UserID: "vendor-2", Role: rental.RoleVendor}

	assert.True(t, rental.IsForbidden(b.Approve(other, listing(), now)))
	assert.True(t, rental.IsForbidden(b.Approve(tenant, listing(), now)))

	require.NoError(t, b.Approve(vendor, listing(), now))
	assert.Equal(t, rental.BookingApproved, b.Status)

	err := b.Decline(vendor, listing(), now)
	assert.True(t, rental.IsClientError(err))
	assert.Equal(t, rental.BookingApproved, b.Status)
}

func TestBooking_RecordPayment(t *testing.T) {
	// GIVEN: An approved booking
	b := pendingBooking(t)
	require.NoError(t, b.Approve(vendor, listing(), now))

	// WHEN: The tenant pays for January
	at := time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC)
	ev, err := b.RecordPayment(tenant, listing(), billing.Bucket{Year: 2025, Month: time.January}, at)
	require.NoError(t, err)

	// THEN: The event is stored at the base price and the booking is paid
	assert.Equal(t, rental.BookingPaid, b.Status)
	assert.Equal(t, "2025-01-16", ev.Date)
	assert.Equal(t, "10:00:00", ev.Time)
	out, err := b.Payments.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"year":2025,"months":{"January":[{"payment_date":"2025-01-16","payment_time":"10:00:00","payment_amount":1200}]}}]`, string(out))

	// AND: The schedule shows January paid and February pending
	calc := &billing.Calculator{Now: billing.FixedClock(d("2025-12-31"))}
	res := b.Schedule(calc, listing(), 0)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, billing.StatusPaid, res.Entries[0].Status)
	assert.Equal(t, billing.StatusPending, res.Entries[1].Status)
}

func TestBooking_RecordPaymentRejected(t *testing.T) {
	b := pendingBooking(t)
	jan := billing.Bucket{Year: 2025, Month: time.January}

	_, err := b.RecordPayment(vendor, listing(), jan, now)
	assert.True(t, rental.IsForbidden(err))

	_, err = b.RecordPayment(tenant, listing(), billing.Bucket{Year: 2025, Month: 13}, now)
	assert.True(t, rental.IsClientError(err))

	require.NoError(t, b.Decline(vendor, listing(), now))
	_, err = b.RecordPayment(tenant, listing(), jan, now)
	assert.True(t, rental.IsClientError(err))
	assert.Empty(t, b.Payments)
}

func TestBooking_Extend(t *testing.T) {
	b := pendingBooking(t)

	assert.True(t, rental.IsClientError(b.Extend(tenant, d("2025-03-01"), now)))
	assert.True(t, rental.IsForbidden(b.Extend(vendor, d("2025-04-15"), now)))

	require.NoError(t, b.Extend(tenant, d("2025-04-15"), now))
	assert.Equal(t, "2025-04-15", b.End.String())
}

func TestBooking_Visibility(t *testing.T) {
	b := pendingBooking(t)
	stranger := rental.Principal{UserID: "someone", Role: rental.RoleUser}

	assert.True(t, b.CanView(tenant, listing()))
	assert.True(t, b.CanView(vendor, listing()))
	assert.False(t, b.CanView(stranger, listing()))

	assert.NoError(t, b.CheckCancel(tenant))
	assert.True(t, rental.IsForbidden(b.CheckCancel(vendor)))
}
