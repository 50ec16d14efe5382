/*
scenarios.go - Demo datasets for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates users, listings and bookings that
	exercise a specific part of the payment schedule.

AVAILABLE SCENARIOS:

	demo:        A vendor, a tenant, four listings, bookings in every state
	multi-year:  One stay spanning New Year, paid in both years
	legacy-data: A booking whose stored payment_data has damaged entries
	empty:       Reset only

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Register users (password "password123")
 3. List properties as the vendor
 4. Book as the tenant and record payments

Dates are relative to the handler's clock, so schedules always have
past and future months.

USAGE VIA API:

	POST /api/admin/seed
	{"scenario_id": "demo"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - cmd/rental/main.go: `rental seed` runs the same loaders
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
	"github.com/warp/rental-engine/store/sqlite"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "demo",
		Name:        "Demo",
		Description: "Vendor and tenant with listings and bookings in every state",
	},
	{
		ID:          "multi-year",
		Name:        "Multi-Year Stay",
		Description: "A stay from November to March, paid in both calendar years",
	},
	{
		ID:          "legacy-data",
		Name:        "Legacy Payment Data",
		Description: "Stored payments with unknown month keys and unreadable amounts",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "No data",
	},
}

// ListScenarios returns available scenarios.
// GET /api/admin/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario resets the database and loads a scenario.
// POST /api/admin/seed
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if r.ContentLength != 0 {
		if err := h.decode(r, &req); err != nil {
			respondError(w, r, "Invalid request body", err)
			return
		}
	}
	if req.ScenarioID == "" {
		req.ScenarioID = "demo"
	}

	if err := LoadScenario(r.Context(), h.Store, req.ScenarioID, h.now()); err != nil {
		respondError(w, r, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// LoadScenario resets store and loads the named scenario as of now.
func LoadScenario(ctx context.Context, store *sqlite.Store, id string, now time.Time) error {
	var load func(*seeder) error
	switch id {
	case "demo":
		load = (*seeder).demo
	case "multi-year":
		load = (*seeder).multiYear
	case "legacy-data":
		load = (*seeder).legacyData
	case "empty":
		load = func(*seeder) error { return nil }
	default:
		return rental.Invalid("scenario_id", fmt.Sprintf("unknown scenario %q", id))
	}

	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("reset database: %w", err)
	}
	return load(&seeder{ctx: ctx, store: store, now: now.UTC()})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seeder struct {
	ctx   context.Context
	store *sqlite.Store
	now   time.Time
}

func (s *seeder) demo() error {
	vendor, tenant, err := s.users()
	if err != nil {
		return err
	}

	flat, err := s.property(vendor, "Sunny 2BHK near the lake", "Pune, Koregaon Park", rental.TypeApartment, 1200, true)
	if err != nil {
		return err
	}
	villa, err := s.property(vendor, "Garden villa", "Goa, Candolim", rental.TypeVilla, 3500, true)
	if err != nil {
		return err
	}
	house, err := s.property(vendor, "Family house with terrace", "Pune, Baner", rental.TypeHouse, 1800, false)
	if err != nil {
		return err
	}
	if _, err := s.property(vendor, "Studio by the station", "Mumbai, Dadar", rental.TypeCondo, 900, false); err != nil {
		return err
	}

	today := billing.DateOf(s.now)

	// Paid stay that started two months ago: first month paid, rest pending.
	paid, err := s.book(tenant, flat, today.AddDays(-60), today.AddDays(90))
	if err != nil {
		return err
	}
	if err := s.approve(vendor, flat, &paid); err != nil {
		return err
	}
	if err := s.pay(tenant, paid, paid.FirstBucket(), paid.Start.Time().Add(26*time.Hour)); err != nil {
		return err
	}

	// Pending request awaiting the vendor.
	if _, err := s.book(tenant, villa, today.AddDays(30), today.AddDays(75)); err != nil {
		return err
	}

	// Declined request.
	declined, err := s.book(tenant, house, today.AddDays(10), today.AddDays(40))
	if err != nil {
		return err
	}
	if err := declined.Decline(vendor.Principal(), house, s.now); err != nil {
		return err
	}
	if err := s.store.UpdateBooking(s.ctx, &declined); err != nil {
		return err
	}

	review, err := rental.NewReview(villa.ID, tenant, 5, "Beautiful garden, very responsive host.", s.now)
	if err != nil {
		return err
	}
	if err := s.store.SaveReview(s.ctx, review); err != nil {
		return err
	}
	_, err = s.store.ToggleWishlist(s.ctx, tenant.ID, villa.ID)
	return err
}

func (s *seeder) multiYear() error {
	vendor, tenant, err := s.users()
	if err != nil {
		return err
	}
	prop, err := s.property(vendor, "Hill cottage", "Lonavala", rental.TypeHouse, 1000, false)
	if err != nil {
		return err
	}

	year := s.now.Year() - 1
	b, err := s.book(tenant, prop, billing.NewDate(year-1, time.November, 20), billing.NewDate(year, time.March, 20))
	if err != nil {
		return err
	}
	if err := s.approve(vendor, prop, &b); err != nil {
		return err
	}
	for _, at := range []billing.Date{
		billing.NewDate(year-1, time.November, 21),
		billing.NewDate(year-1, time.December, 20),
		billing.NewDate(year, time.January, 22),
	} {
		if err := s.pay(tenant, b, billing.BucketOf(at), at.Time().Add(10*time.Hour)); err != nil {
			return err
		}
		if b, err = s.store.GetBooking(s.ctx, b.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) legacyData() error {
	vendor, tenant, err := s.users()
	if err != nil {
		return err
	}
	prop, err := s.property(vendor, "Old town apartment", "Mysuru", rental.TypeApartment, 800, false)
	if err != nil {
		return err
	}

	year := s.now.Year() - 1
	b, err := s.book(tenant, prop, billing.NewDate(year, time.January, 15), billing.NewDate(year, time.May, 15))
	if err != nil {
		return err
	}
	doc := fmt.Sprintf(`[
		"corrupted entry",
		{"year":%[1]d,"months":{
			"january":[{"payment_date":"%[1]d-01-16","payment_time":"10:00:00","payment_amount":800}],
			"Febuary":[{"payment_date":"%[1]d-02-15","payment_time":"10:00:00","payment_amount":800}],
			"March":[{"payment_date":"15/03/%[1]d","payment_time":"10:00:00","payment_amount":"eight hundred"}]
		}}
	]`, year)
	if b.Payments, err = billing.ParsePaymentData([]byte(doc)); err != nil {
		return err
	}
	b.Status = rental.BookingPaid
	return s.store.UpdateBooking(s.ctx, &b)
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *seeder) users() (vendor, tenant rental.User, err error) {
	vendor, err = s.user(rental.Registration{
		Username: "vendor", Email: "vendor@example.com", FirstName: "Priya", LastName: "Shah",
		Role: "vendor", CompanyName: "Shah Homes", Phone: "9820000001",
	})
	if err != nil {
		return
	}
	tenant, err = s.user(rental.Registration{
		Username: "tenant", Email: "tenant@example.com", FirstName: "Arjun", LastName: "Mehta",
		Role: "user", Phone: "9820000002",
	})
	return
}

func (s *seeder) user(reg rental.Registration) (rental.User, error) {
	reg.Password, reg.ConfirmPassword = DemoPassword, DemoPassword
	u, err := rental.NewUser(reg, s.now)
	if err != nil {
		return rental.User{}, err
	}
	return u, s.store.CreateUser(s.ctx, u)
}

func (s *seeder) property(owner rental.User, title, location string, typ rental.PropertyType, price int64, featured bool) (rental.Property, error) {
	p, err := rental.NewProperty(owner.Principal(), rental.PropertyInput{
		Title:       title,
		Description: title + " in " + location + ".",
		Type:        typ,
		Price:       decimal.NewFromInt(price),
		Deposit:     decimal.NewFromInt(price * 2),
		Location:    location,
		Bedrooms:    2,
		Bathrooms:   1,
		Area:        decimal.NewFromInt(850),
		IsFeatured:  featured,
		Amenities:   []string{"wifi", "parking"},
	}, s.now)
	if err != nil {
		return rental.Property{}, err
	}
	return p, s.store.SaveProperty(s.ctx, p)
}

func (s *seeder) book(tenant rental.User, p rental.Property, start, end billing.Date) (rental.Booking, error) {
	b, err := rental.NewBooking(p, tenant.Principal(), rental.BookingRequest{
		Start: start, End: end, Guests: 2,
	}, s.now)
	if err != nil {
		return rental.Booking{}, err
	}
	return b, s.store.CreateBooking(s.ctx, &b)
}

func (s *seeder) approve(vendor rental.User, p rental.Property, b *rental.Booking) error {
	if err := b.Approve(vendor.Principal(), p, s.now); err != nil {
		return err
	}
	return s.store.UpdateBooking(s.ctx, b)
}

func (s *seeder) pay(tenant rental.User, b rental.Booking, bucket billing.Bucket, at time.Time) error {
	p, err := s.store.GetProperty(s.ctx, b.PropertyID)
	if err != nil {
		return err
	}
	if _, err := b.RecordPayment(tenant.Principal(), p, bucket, at); err != nil {
		return err
	}
	return s.store.RecordPayment(s.ctx, &b)
}
