/*
booking.go - Booking lifecycle

PURPOSE:
  A tenant requests a property for [Start, End). The vendor owning the
  property approves or declines the request; the tenant records monthly
  payments against it, extends the stay, or cancels it.

STATUS FLOW:
  pending  --approve-->  approved
  pending  --decline-->  declined
  pending|approved|paid  --payment-->  paid
  any (tenant)  --cancel-->  removed, property back to active

PRICING:
  total = days / 30 x monthly price, rounded to cents. Each monthly period
  of the schedule is billed at the property's price.

SEE ALSO:
  - billing/schedule.go: Monthly schedule derived from the booking
  - store/sqlite/sqlite.go: UpdateBooking (optimistic version check)
*/
package rental

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/rental-engine/billing"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingDeclined  BookingStatus = "declined"
	BookingPaid      BookingStatus = "paid"
	BookingCancelled BookingStatus = "cancelled"
)

// daysPerBillingMonth prices a stay pro rata against the monthly rate.
var daysPerBillingMonth = decimal.NewFromInt(30)

// Booking is a tenant's stay at a property.
type Booking struct {
	ID         string
	PropertyID string
	UserID     string
	Start      billing.Date
	End        billing.Date
	Status     BookingStatus
	TotalPrice decimal.Decimal
	Guests     int
	Notes      string
	Payments   billing.PaymentData
	// Version is bumped on every write; stale writes are rejected.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingRequest is a tenant's booking input.
type BookingRequest struct {
	Start  billing.Date
	End    billing.Date
	Guests int
	Notes  string
}

// NewBooking validates a request against the property and the tenant.
func NewBooking(p Property, tenant Principal, req BookingRequest, now time.Time) (Booking, error) {
	if tenant.IsVendor() {
		return Booking{}, fmt.Errorf("%w: vendors cannot book properties directly, use a tenant account", ErrForbidden)
	}
	if p.Status != PropertyActive {
		return Booking{}, fmt.Errorf("%w: property is %s", ErrConflict, p.Status)
	}

	verr := NewValidationError()
	if req.Start.IsZero() {
		verr.Add("start_date", "check-in date is required")
	}
	if req.End.IsZero() {
		verr.Add("end_date", "check-out date is required")
	}
	if !req.Start.IsZero() && !req.End.IsZero() && !req.Start.Before(req.End) {
		verr.Add("end_date", "Check-out date must be after check-in date.")
	}
	if req.Guests < 0 {
		verr.Add("guests", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return Booking{}, err
	}

	return Booking{
		ID:         uuid.NewString(),
		PropertyID: p.ID,
		UserID:     tenant.UserID,
		Start:      req.Start,
		End:        req.End,
		Status:     BookingPending,
		TotalPrice: StayPrice(p.Price, req.Start, req.End),
		Guests:     req.Guests,
		Notes:      req.Notes,
		Payments:   billing.PaymentData{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// StayPrice prices [start, end) pro rata on a 30-day month.
func StayPrice(monthly decimal.Decimal, start, end billing.Date) decimal.Decimal {
	days := decimal.NewFromInt(int64(start.DaysUntil(end)))
	return days.Div(daysPerBillingMonth).Mul(monthly).Round(2)
}

// DurationDays is the length of the stay.
func (b Booking) DurationDays() int { return b.Start.DaysUntil(b.End) }

// FirstBucket is the billing month of the first period, the one paid at
// checkout.
func (b Booking) FirstBucket() billing.Bucket { return billing.BucketOf(b.Start) }

// CanView reports whether who may see the booking: its tenant or the
// property's vendor.
func (b Booking) CanView(who Principal, p Property) bool {
	return b.UserID == who.UserID || p.IsOwnedBy(who)
}

// Extend moves the check-out date later.
func (b *Booking) Extend(who Principal, newEnd billing.Date, now time.Time) error {
	if b.UserID != who.UserID {
		return fmt.Errorf("%w: only the tenant can extend a booking", ErrForbidden)
	}
	if newEnd.IsZero() || !newEnd.After(b.End) {
		return Invalid("new_end_date", "must be after the current check-out date")
	}
	b.End = newEnd
	b.UpdatedAt = now
	return nil
}

// Approve accepts a pending request. Only the property's vendor may do it.
func (b *Booking) Approve(who Principal, p Property, now time.Time) error {
	return b.decide(who, p, BookingApproved, now)
}

// Decline rejects a pending request.
func (b *Booking) Decline(who Principal, p Property, now time.Time) error {
	return b.decide(who, p, BookingDeclined, now)
}

func (b *Booking) decide(who Principal, p Property, to BookingStatus, now time.Time) error {
	if !p.IsOwnedBy(who) || b.PropertyID != p.ID {
		return fmt.Errorf("%w: only the property's vendor can %s", ErrForbidden, verbFor(to))
	}
	if b.Status != BookingPending {
		return fmt.Errorf("%w: booking is %s, not pending", ErrConflict, b.Status)
	}
	b.Status = to
	b.UpdatedAt = now
	return nil
}

func verbFor(s BookingStatus) string {
	if s == BookingApproved {
		return "approve"
	}
	return "decline"
}

// RecordPayment appends a payment for the (year, month) bucket at the
// property's monthly price and marks the booking paid.
func (b *Booking) RecordPayment(who Principal, p Property, bucket billing.Bucket, at time.Time) (billing.PaymentEvent, error) {
	if b.UserID != who.UserID {
		return billing.PaymentEvent{}, fmt.Errorf("%w: only the tenant can pay for a booking", ErrForbidden)
	}
	if b.Status == BookingDeclined || b.Status == BookingCancelled {
		return billing.PaymentEvent{}, fmt.Errorf("%w: booking is %s", ErrConflict, b.Status)
	}
	if bucket.Year <= 0 || bucket.Month < time.January || bucket.Month > time.December {
		return billing.PaymentEvent{}, Invalid("month", "invalid payment period")
	}

	ev := billing.NewPaymentEvent(at, p.Price)
	b.Payments.Record(bucket.Year, bucket.Month, ev)
	b.Status = BookingPaid
	b.UpdatedAt = at
	return ev, nil
}

// CheckCancel verifies that who may cancel the booking.
func (b Booking) CheckCancel(who Principal) error {
	if b.UserID != who.UserID {
		return fmt.Errorf("%w: only the tenant can cancel a booking", ErrForbidden)
	}
	return nil
}

// Schedule computes the booking's payment schedule for year (0 = start
// year), billing unpaid periods at the property's price.
func (b Booking) Schedule(calc *billing.Calculator, p Property, year int) billing.Result {
	return calc.Compute(billing.Request{
		Start:        b.Start,
		End:          b.End,
		Payments:     b.Payments,
		FallbackRate: p.Price,
		Year:         year,
	})
}
