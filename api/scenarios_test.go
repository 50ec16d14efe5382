/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Users are created and can sign in
	- Listings land in the expected status
	- Payment schedules render from the seeded payment data

These tests ensure scenarios work correctly and can be used as integration tests.
*/
package api

import (
	"context"
	"strings"
	"testing"

	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
	"github.com/warp/rental-engine/store/sqlite"
)

func setupScenarioStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func scenarioCalculator() *billing.Calculator {
	return &billing.Calculator{Now: billing.FixedClock(billing.DateOf(testNow))}
}

func mustUser(t *testing.T, store *sqlite.Store, username string) rental.User {
	t.Helper()
	u, err := store.GetUserByUsername(context.Background(), username)
	if err != nil {
		t.Fatalf("Failed to load user %q: %v", username, err)
	}
	return u
}

func onlyBooking(t *testing.T, store *sqlite.Store, userID string) (rental.Booking, rental.Property) {
	t.Helper()
	ctx := context.Background()
	bookings, err := store.ListBookingsByUser(ctx, userID)
	if err != nil {
		t.Fatalf("Failed to list bookings: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("Expected 1 booking, got %d", len(bookings))
	}
	prop, err := store.GetProperty(ctx, bookings[0].PropertyID)
	if err != nil {
		t.Fatalf("Failed to load property: %v", err)
	}
	return bookings[0], prop
}

func TestScenario_Demo(t *testing.T) {
	// GIVEN: Demo scenario
	// WHEN: Loading the scenario
	// THEN: Both accounts, four listings and a booking in each state exist

	store := setupScenarioStore(t)
	ctx := context.Background()

	if err := LoadScenario(ctx, store, "demo", testNow); err != nil {
		t.Fatalf("Failed to load demo scenario: %v", err)
	}

	vendor := mustUser(t, store, "vendor")
	tenant := mustUser(t, store, "tenant")
	if !vendor.CheckPassword(DemoPassword) {
		t.Error("Vendor should sign in with the demo password")
	}
	if tenant.Profile.Role != rental.RoleUser {
		t.Errorf("Expected tenant role user, got %s", tenant.Profile.Role)
	}

	owned, err := store.ListPropertiesByOwner(ctx, vendor.ID)
	if err != nil {
		t.Fatalf("Failed to list properties: %v", err)
	}
	if len(owned) != 4 {
		t.Errorf("Expected 4 properties, got %d", len(owned))
	}

	// The paid stay takes its listing off the market
	active, err := store.ListActiveProperties(ctx, false)
	if err != nil {
		t.Fatalf("Failed to list active properties: %v", err)
	}
	if len(active) != 3 {
		t.Errorf("Expected 3 active properties, got %d", len(active))
	}

	bookings, err := store.ListBookingsByUser(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("Failed to list bookings: %v", err)
	}
	byStatus := map[rental.BookingStatus]rental.Booking{}
	for _, b := range bookings {
		byStatus[b.Status] = b
	}
	for _, status := range []rental.BookingStatus{rental.BookingPaid, rental.BookingPending, rental.BookingDeclined} {
		if _, ok := byStatus[status]; !ok {
			t.Errorf("Expected a %s booking", status)
		}
	}

	// Paid stay: first month paid, second pending, rest not yet due
	paid := byStatus[rental.BookingPaid]
	prop, err := store.GetProperty(ctx, paid.PropertyID)
	if err != nil {
		t.Fatalf("Failed to load property: %v", err)
	}
	if prop.Status != rental.PropertyRented {
		t.Errorf("Expected paid listing to be rented, got %s", prop.Status)
	}
	schedule := paid.Schedule(scenarioCalculator(), prop, 0)
	if len(schedule.Entries) != 2 {
		t.Fatalf("Expected 2 entries in the start year, got %d", len(schedule.Entries))
	}
	if schedule.Entries[0].Status != billing.StatusPaid || schedule.Entries[1].Status != billing.StatusPending {
		t.Errorf("Expected paid then pending, got %s then %s", schedule.Entries[0].Status, schedule.Entries[1].Status)
	}

	wishlist, err := store.ListWishlist(ctx, tenant.ID, 0)
	if err != nil {
		t.Fatalf("Failed to list wishlist: %v", err)
	}
	if len(wishlist) != 1 || wishlist[0].Rating.String() != "5" {
		t.Errorf("Expected the reviewed villa on the wishlist, got %+v", wishlist)
	}
}

func TestScenario_MultiYear(t *testing.T) {
	// GIVEN: A stay from November 2023 to March 2024
	// WHEN: Rendering each calendar year
	// THEN: Each year shows only its own months

	store := setupScenarioStore(t)
	ctx := context.Background()

	if err := LoadScenario(ctx, store, "multi-year", testNow); err != nil {
		t.Fatalf("Failed to load multi-year scenario: %v", err)
	}
	booking, prop := onlyBooking(t, store, mustUser(t, store, "tenant").ID)
	calc := scenarioCalculator()

	first := booking.Schedule(calc, prop, 2023)
	if len(first.Years) != 2 || first.Years[0] != 2023 || first.Years[1] != 2024 {
		t.Errorf("Expected years [2023 2024], got %v", first.Years)
	}
	if len(first.Entries) != 2 {
		t.Fatalf("Expected 2 entries in 2023, got %d", len(first.Entries))
	}
	for _, e := range first.Entries {
		if e.Status != billing.StatusPaid {
			t.Errorf("Expected %s 2023 paid, got %s", e.Label(), e.Status)
		}
	}
	if first.TotalPaid.String() != "2000" {
		t.Errorf("Expected 2000 paid in 2023, got %s", first.TotalPaid)
	}

	second := booking.Schedule(calc, prop, 2024)
	if len(second.Entries) != 2 {
		t.Fatalf("Expected 2 entries in 2024, got %d", len(second.Entries))
	}
	jan, feb := second.Entries[0], second.Entries[1]
	if jan.Status != billing.StatusPaid || jan.Date.String() != "2024-01-22" {
		t.Errorf("Expected January paid on 2024-01-22, got %s on %s", jan.Status, jan.Date)
	}
	if feb.Status != billing.StatusPending {
		t.Errorf("Expected February pending, got %s", feb.Status)
	}
}

func TestScenario_LegacyData(t *testing.T) {
	// GIVEN: Stored payment data with a junk entry, a lowercase month, a
	// misspelled month and an unreadable amount
	// WHEN: Rendering the schedule
	// THEN: Readable payments count, the rest falls back to defaults

	store := setupScenarioStore(t)
	ctx := context.Background()

	if err := LoadScenario(ctx, store, "legacy-data", testNow); err != nil {
		t.Fatalf("Failed to load legacy-data scenario: %v", err)
	}
	booking, prop := onlyBooking(t, store, mustUser(t, store, "tenant").ID)

	result := booking.Schedule(scenarioCalculator(), prop, 0)
	if len(result.Entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(result.Entries))
	}

	want := []struct {
		status billing.Status
		date   string
	}{
		{billing.StatusPaid, "2024-01-16"},
		{billing.StatusPending, "2024-02-15"},
		{billing.StatusPaid, "2024-03-15"},
		{billing.StatusPending, "2024-04-15"},
	}
	for i, w := range want {
		e := result.Entries[i]
		if e.Status != w.status || e.Date.String() != w.date {
			t.Errorf("%s: expected %s on %s, got %s on %s", e.Label(), w.status, w.date, e.Status, e.Date)
		}
		if e.Amount.String() != "800" {
			t.Errorf("%s: expected amount 800, got %s", e.Label(), e.Amount)
		}
	}

	// The damaged entries survive a round trip through the store
	encoded, err := booking.Payments.Encode()
	if err != nil {
		t.Fatalf("Failed to encode payments: %v", err)
	}
	for _, fragment := range []string{`"corrupted entry"`, `"Febuary"`, `"eight hundred"`} {
		if !strings.Contains(string(encoded), fragment) {
			t.Errorf("Expected stored payment data to keep %s", fragment)
		}
	}
}

func TestScenario_UnknownIsRejected(t *testing.T) {
	store := setupScenarioStore(t)

	err := LoadScenario(context.Background(), store, "nope", testNow)
	if !rental.IsClientError(err) {
		t.Errorf("Expected a validation error, got %v", err)
	}
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	store := setupScenarioStore(t)
	ctx := context.Background()

	// Loading twice in a row also checks that Reset clears everything
	for _, sc := range scenarios {
		for i := 0; i < 2; i++ {
			if err := LoadScenario(ctx, store, sc.ID, testNow); err != nil {
				t.Errorf("Scenario %s failed to load: %v", sc.ID, err)
			}
		}
	}
}

func TestScenario_SeedEndpoint(t *testing.T) {
	api := newTestAPIWith(t, RouterOptions{EnableAdmin: true})

	rec := api.do("POST", "/api/admin/seed", "", map[string]string{"scenario_id": "multi-year"})
	if rec.Code != 200 {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = api.do("GET", "/api/admin/scenarios", "", nil)
	if got := len(decodeBody[[]ScenarioDTO](t, rec)); got != len(scenarios) {
		t.Errorf("Expected %d scenarios, got %d", len(scenarios), got)
	}
	rec = api.do("POST", "/api/admin/seed", "", map[string]string{"scenario_id": "nope"})
	if rec.Code != 400 {
		t.Errorf("Expected 400 for unknown scenario, got %d", rec.Code)
	}
}

func TestScenario_SeedEndpointDisabledByDefault(t *testing.T) {
	api := newTestAPI(t)
	vendor := api.register("vera", "vendor")

	rec := api.do("POST", "/api/admin/seed", "", map[string]string{"scenario_id": "empty"})
	if rec.Code != 404 {
		t.Fatalf("Expected 404 with admin routes off, got %d", rec.Code)
	}
	if got := api.do("GET", "/api/users/me", vendor, nil).Code; got != 200 {
		t.Errorf("Expected existing data to survive, got %d", got)
	}
}
