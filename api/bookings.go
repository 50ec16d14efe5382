package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

// paymentAttempts bounds retries of a payment that lost an optimistic
// locking race.
const paymentAttempts = 3

const recentBookingsLimit = 5

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking requests a stay and names the first month to pay.
// POST /api/properties/{id}/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid booking", err)
		return
	}
	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		respondError(w, r, "Invalid booking", rental.Invalid("start_date", "Invalid date format."))
		return
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		respondError(w, r, "Invalid booking", rental.Invalid("end_date", "Invalid date format."))
		return
	}

	ctx := r.Context()
	prop, err := h.Store.GetProperty(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "Failed to load property", err)
		return
	}

	booking, err := rental.NewBooking(prop, principal(r), rental.BookingRequest{
		Start:  start,
		End:    end,
		Guests: req.Guests,
		Notes:  req.Notes,
	}, h.now())
	if err != nil {
		respondError(w, r, "Cannot book property", err)
		return
	}
	if err := h.Store.CreateBooking(ctx, &booking); err != nil {
		respondError(w, r, "Failed to save booking", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateBookingResponse{
		Booking:      toBookingDTO(booking),
		FirstPayment: toBucketDTO(booking.FirstBucket()),
	})
}

// ListBookings returns bookings on the caller's listings for vendors, and
// the caller's own bookings for tenants.
// GET /api/bookings
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	who := principal(r)

	var (
		bookings []rental.Booking
		err      error
	)
	if who.IsVendor() {
		bookings, err = h.Store.ListBookingsByOwner(r.Context(), who.UserID, 0)
	} else {
		bookings, err = h.Store.ListBookingsByUser(r.Context(), who.UserID)
	}
	if err != nil {
		respondError(w, r, "Failed to list bookings", err)
		return
	}
	if !who.IsVendor() {
		writeJSON(w, http.StatusOK, toBookingDTOs(bookings))
		return
	}
	dtos, err := h.withTenants(r.Context(), bookings)
	if err != nil {
		respondError(w, r, "Failed to load tenants", err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

// withTenants converts bookings for a vendor, naming who made each one.
func (h *Handler) withTenants(ctx context.Context, bookings []rental.Booking) ([]BookingDTO, error) {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.UserID)
	}
	tenants, err := h.Store.GetUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := toBookingDTOs(bookings)
	for i := range out {
		out[i].Tenant = tenants[out[i].UserID].Username
	}
	return out, nil
}

// GetBooking returns the reservation details with the payment schedule of
// the selected year. A missing or unreadable year selects the start year.
// GET /api/bookings/{id}?year=2025
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	booking, prop, ok := h.loadBooking(w, r)
	if !ok {
		return
	}
	if !booking.CanView(principal(r), prop) {
		respondError(w, r, "Cannot view booking", rental.ErrForbidden)
		return
	}

	tenant, err := h.Store.GetUser(ctx, booking.UserID)
	if err != nil {
		respondError(w, r, "Failed to load tenant", err)
		return
	}
	previous, err := h.Store.CountOtherBookings(ctx, booking.UserID, booking.ID)
	if err != nil {
		respondError(w, r, "Failed to count bookings", err)
		return
	}
	avgRating, err := h.Store.AverageRatingByUser(ctx, booking.UserID)
	if err != nil {
		respondError(w, r, "Failed to load ratings", err)
		return
	}

	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	if year < 0 {
		year = 0
	}
	schedule := booking.Schedule(h.Calculator, prop, year)

	writeJSON(w, http.StatusOK, ReservationDetailsResponse{
		Booking:          toBookingDTO(booking),
		Property:         toPropertyDTO(prop),
		Tenant:           toUserDTO(tenant),
		BookingDuration:  booking.DurationDays(),
		PreviousBookings: previous,
		AverageRating:    avgRating,
		CurrentYear:      h.Calculator.Today().Year(),
		SelectedYear:     schedule.SelectedYear,
		Years:            schedule.Years,
		MonthlyPayments:  toScheduleDTOs(schedule.Entries),
		TotalPaid:        schedule.TotalPaid,
		TotalPending:     schedule.TotalPending,
	})
}

// ExtendBooking moves the check-out date later.
// POST /api/bookings/{id}/extend
func (h *Handler) ExtendBooking(w http.ResponseWriter, r *http.Request) {
	var req ExtendRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid extension", err)
		return
	}
	newEnd, err := billing.ParseDate(req.NewEndDate)
	if err != nil {
		respondError(w, r, "Invalid extension", rental.Invalid("new_end_date", "Invalid date format."))
		return
	}

	h.updateBooking(w, r, "Cannot extend booking", func(b *rental.Booking, _ rental.Property) error {
		return b.Extend(principal(r), newEnd, h.now())
	})
}

// ApproveBooking accepts a pending request.
// POST /api/bookings/{id}/approve
func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	h.updateBooking(w, r, "Cannot approve booking", func(b *rental.Booking, p rental.Property) error {
		return b.Approve(principal(r), p, h.now())
	})
}

// DeclineBooking rejects a pending request.
// POST /api/bookings/{id}/decline
func (h *Handler) DeclineBooking(w http.ResponseWriter, r *http.Request) {
	h.updateBooking(w, r, "Cannot decline booking", func(b *rental.Booking, p rental.Property) error {
		return b.Decline(principal(r), p, h.now())
	})
}

// updateBooking applies change to a fresh copy of the booking and writes
// it back under the version check.
func (h *Handler) updateBooking(w http.ResponseWriter, r *http.Request, message string, change func(*rental.Booking, rental.Property) error) {
	booking, prop, ok := h.loadBooking(w, r)
	if !ok {
		return
	}
	if err := change(&booking, prop); err != nil {
		respondError(w, r, message, err)
		return
	}
	if err := h.Store.UpdateBooking(r.Context(), &booking); err != nil {
		respondError(w, r, "Failed to save booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingDTO(booking))
}

// RecordPayment pays one month of a booking at the property's price. The
// booking is marked paid and the property rented. A write that races
// another payment is retried on fresh data.
// POST /api/bookings/{id}/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid payment period.", err)
		return
	}
	month, ok := billing.ParseMonth(req.Month)
	if !ok {
		respondError(w, r, "Invalid payment period.", rental.Invalid("month", "must be a full English month name"))
		return
	}
	bucket := billing.Bucket{Year: req.Year, Month: month}

	var (
		booking rental.Booking
		event   billing.PaymentEvent
		err     error
	)
	for attempt := 1; attempt <= paymentAttempts; attempt++ {
		booking, event, err = h.recordPayment(r.Context(), chi.URLParam(r, "id"), principal(r), bucket)
		if !rental.IsRetryable(err) {
			break
		}
	}
	if err != nil {
		respondError(w, r, "Cannot record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, PaymentResponse{
		Booking: toBookingDTO(booking),
		Payment: event,
	})
}

func (h *Handler) recordPayment(ctx context.Context, id string, who rental.Principal, bucket billing.Bucket) (rental.Booking, billing.PaymentEvent, error) {
	booking, err := h.Store.GetBooking(ctx, id)
	if err != nil {
		return rental.Booking{}, billing.PaymentEvent{}, err
	}
	prop, err := h.Store.GetProperty(ctx, booking.PropertyID)
	if err != nil {
		return rental.Booking{}, billing.PaymentEvent{}, err
	}

	event, err := booking.RecordPayment(who, prop, bucket, h.now())
	if err != nil {
		return rental.Booking{}, billing.PaymentEvent{}, err
	}
	if h.beforePaymentWrite != nil {
		h.beforePaymentWrite(ctx, booking.ID)
	}
	if err := h.Store.RecordPayment(ctx, &booking); err != nil {
		return rental.Booking{}, billing.PaymentEvent{}, err
	}
	return booking, event, nil
}

// CancelBooking removes a booking and reopens its property.
// DELETE /api/bookings/{id}
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	booking, err := h.Store.GetBooking(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "Failed to load booking", err)
		return
	}
	if err := booking.CheckCancel(principal(r)); err != nil {
		respondError(w, r, "Cannot cancel booking", err)
		return
	}
	if err := h.Store.CancelBooking(ctx, booking); err != nil {
		respondError(w, r, "Failed to cancel booking", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadBooking(w http.ResponseWriter, r *http.Request) (rental.Booking, rental.Property, bool) {
	ctx := r.Context()
	booking, err := h.Store.GetBooking(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "Failed to load booking", err)
		return rental.Booking{}, rental.Property{}, false
	}
	prop, err := h.Store.GetProperty(ctx, booking.PropertyID)
	if err != nil {
		respondError(w, r, "Failed to load property", err)
		return rental.Booking{}, rental.Property{}, false
	}
	return booking, prop, true
}

// =============================================================================
// DASHBOARD
// =============================================================================

// Dashboard returns listing stats and recent bookings for vendors, and
// bookings, wishlist and open listings for tenants.
// GET /api/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who := principal(r)

	if who.IsVendor() {
		props, err := h.Store.ListPropertiesByOwner(ctx, who.UserID)
		if err != nil {
			respondError(w, r, "Failed to list properties", err)
			return
		}
		stats, err := h.Store.VendorStats(ctx, who.UserID)
		if err != nil {
			respondError(w, r, "Failed to compute stats", err)
			return
		}
		recent, err := h.Store.ListBookingsByOwner(ctx, who.UserID, recentBookingsLimit)
		if err != nil {
			respondError(w, r, "Failed to list bookings", err)
			return
		}
		recentDTOs, err := h.withTenants(ctx, recent)
		if err != nil {
			respondError(w, r, "Failed to load tenants", err)
			return
		}
		writeJSON(w, http.StatusOK, VendorDashboard{
			Role:           string(rental.RoleVendor),
			Stats:          VendorStatsDTO(stats),
			Properties:     toPropertyDTOs(props),
			RecentBookings: recentDTOs,
		})
		return
	}

	props, err := h.Store.ListActiveProperties(ctx, false)
	if err != nil {
		respondError(w, r, "Failed to list properties", err)
		return
	}
	bookings, err := h.Store.ListBookingsByUser(ctx, who.UserID)
	if err != nil {
		respondError(w, r, "Failed to list bookings", err)
		return
	}
	wishlist, err := h.Store.ListWishlist(ctx, who.UserID, 4)
	if err != nil {
		respondError(w, r, "Failed to list wishlist", err)
		return
	}
	writeJSON(w, http.StatusOK, TenantDashboard{
		Role:       string(rental.RoleUser),
		Properties: toPropertyDTOs(props),
		Bookings:   toBookingDTOs(bookings),
		Wishlist:   toPropertyDTOs(wishlist),
	})
}
