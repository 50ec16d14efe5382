/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Composite response wrappers

VALIDATION:
  Request types carry `validate` tags checked by go-playground/validator
  before the handler runs. Rules that need domain state (dates in order,
  property bookable, ownership) are checked by the rental package.

MONEY:
  Amounts are decimal.Decimal and serialize as JSON strings ("1200.5").
  payment_data keeps its stored numeric layout; see billing/payments.go.

SEE ALSO:
  - handlers.go: decode() and error mapping
  - rental/: Domain types these are built from
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Details string              `json:"details,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// =============================================================================
// USERS
// =============================================================================

// RegisterRequest is the sign-up body.
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,max=150"`
	Email           string `json:"email" validate:"omitempty,email"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Phone           string `json:"phone" validate:"max=15"`
	Role            string `json:"role" validate:"omitempty,oneof=user vendor"`
	CompanyName     string `json:"company_name" validate:"max=255"`
	AadhaarNumber   string `json:"aadhaar_number" validate:"max=20"`
	PanNumber       string `json:"pan_number" validate:"max=20"`
}

// UpdateProfileRequest edits the caller's profile. Omitted fields are kept.
type UpdateProfileRequest struct {
	Role          *string `json:"role" validate:"omitempty,oneof=user vendor"`
	Phone         *string `json:"phone" validate:"omitempty,max=15"`
	Bio           *string `json:"bio"`
	CompanyName   *string `json:"company_name" validate:"omitempty,max=255"`
	AadhaarNumber *string `json:"aadhaar_number" validate:"omitempty,max=20"`
	PanNumber     *string `json:"pan_number" validate:"omitempty,max=20"`
}

// UserDTO is a user without credentials.
type UserDTO struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Profile   ProfileDTO `json:"profile"`
	CreatedAt string     `json:"created_at"`
}

type ProfileDTO struct {
	Role             string       `json:"role"`
	Phone            string       `json:"phone,omitempty"`
	Bio              string       `json:"bio,omitempty"`
	CompanyName      string       `json:"company_name,omitempty"`
	AadhaarNumber    string       `json:"aadhaar_number,omitempty"`
	PanNumber        string       `json:"pan_number,omitempty"`
	IsEmailVerified  bool         `json:"is_email_verified"`
	IsVerified       bool         `json:"is_verified"`
	RegistrationDate billing.Date `json:"registration_date"`
}

func toUserDTO(u rental.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Profile: ProfileDTO{
			Role:             string(u.Profile.Role),
			Phone:            u.Profile.Phone,
			Bio:              u.Profile.Bio,
			CompanyName:      u.Profile.CompanyName,
			AadhaarNumber:    u.Profile.AadhaarNumber,
			PanNumber:        u.Profile.PanNumber,
			IsEmailVerified:  u.Profile.IsEmailVerified,
			IsVerified:       u.Profile.IsVerified,
			RegistrationDate: u.Profile.RegistrationDate,
		},
		CreatedAt: formatTime(u.CreatedAt),
	}
}

// =============================================================================
// PROPERTIES
// =============================================================================

// PropertyRequest creates or replaces a listing.
type PropertyRequest struct {
	Title        string              `json:"title" validate:"required,max=255"`
	Description  string              `json:"description"`
	Status       string              `json:"status" validate:"omitempty,oneof=active pending rented sold draft"`
	PropertyType string              `json:"property_type" validate:"omitempty,oneof=apartment house villa condo land commercial"`
	Price        decimal.Decimal     `json:"price"`
	Deposit      decimal.Decimal     `json:"deposit"`
	Location     string              `json:"location" validate:"max=255"`
	Address      string              `json:"address" validate:"max=255"`
	City         string              `json:"city" validate:"max=100"`
	State        string              `json:"state" validate:"max=100"`
	ZipCode      string              `json:"zip_code" validate:"max=20"`
	Latitude     decimal.NullDecimal `json:"latitude"`
	Longitude    decimal.NullDecimal `json:"longitude"`
	ImageURL     string              `json:"image_url" validate:"omitempty,url"`
	Bedrooms     int                 `json:"bedrooms" validate:"gte=0"`
	Bathrooms    int                 `json:"bathrooms" validate:"gte=0"`
	Area         decimal.Decimal     `json:"area"`
	YearBuilt    *int                `json:"year_built" validate:"omitempty,gte=1800,lte=2100"`
	IsFeatured   bool                `json:"is_featured"`
	Amenities    []string            `json:"amenities" validate:"dive,required"`
}

func (r PropertyRequest) toInput() rental.PropertyInput {
	return rental.PropertyInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      rental.PropertyStatus(r.Status),
		Type:        rental.PropertyType(r.PropertyType),
		Price:       r.Price,
		Deposit:     r.Deposit,
		Location:    r.Location,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		ZipCode:     r.ZipCode,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		ImageURL:    r.ImageURL,
		Bedrooms:    r.Bedrooms,
		Bathrooms:   r.Bathrooms,
		Area:        r.Area,
		YearBuilt:   r.YearBuilt,
		IsFeatured:  r.IsFeatured,
		Amenities:   r.Amenities,
	}
}

// PropertyDTO represents a listing in API responses.
type PropertyDTO struct {
	ID           string              `json:"id"`
	OwnerID      string              `json:"owner_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Status       string              `json:"status"`
	PropertyType string              `json:"property_type"`
	Price        decimal.Decimal     `json:"price"`
	Deposit      decimal.Decimal     `json:"deposit"`
	Location     string              `json:"location"`
	Address      string              `json:"address,omitempty"`
	City         string              `json:"city,omitempty"`
	State        string              `json:"state,omitempty"`
	ZipCode      string              `json:"zip_code,omitempty"`
	Latitude     decimal.NullDecimal `json:"latitude"`
	Longitude    decimal.NullDecimal `json:"longitude"`
	ImageURL     string              `json:"image_url,omitempty"`
	Bedrooms     int                 `json:"bedrooms"`
	Bathrooms    int                 `json:"bathrooms"`
	Area         decimal.Decimal     `json:"area"`
	YearBuilt    *int                `json:"year_built,omitempty"`
	Views        int                 `json:"views"`
	Rating       decimal.Decimal     `json:"rating"`
	IsFeatured   bool                `json:"is_featured"`
	Amenities    []string            `json:"amenities"`
	DateAdded    string              `json:"date_added"`
	LastUpdated  string              `json:"last_updated"`
}

func toPropertyDTO(p rental.Property) PropertyDTO {
	amenities := p.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	return PropertyDTO{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Title:        p.Title,
		Description:  p.Description,
		Status:       string(p.Status),
		PropertyType: string(p.Type),
		Price:        p.Price,
		Deposit:      p.Deposit,
		Location:     p.Location,
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		Latitude:     p.Latitude,
		Longitude:    p.Longitude,
		ImageURL:     p.ImageURL,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		Area:         p.Area,
		YearBuilt:    p.YearBuilt,
		Views:        p.Views,
		Rating:       p.Rating,
		IsFeatured:   p.IsFeatured,
		Amenities:    amenities,
		DateAdded:    formatTime(p.DateAdded),
		LastUpdated:  formatTime(p.LastUpdated),
	}
}

func toPropertyDTOs(ps []rental.Property) []PropertyDTO {
	out := make([]PropertyDTO, len(ps))
	for i, p := range ps {
		out[i] = toPropertyDTO(p)
	}
	return out
}

// PropertyDetailResponse is a listing with its context for the detail page.
type PropertyDetailResponse struct {
	Property     PropertyDTO   `json:"property"`
	Similar      []PropertyDTO `json:"similar_properties"`
	Reviews      []ReviewDTO   `json:"reviews"`
	IsBookmarked bool          `json:"is_bookmarked"`
}

// ReviewRequest rates a property.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewDTO struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	CreatedAt  string `json:"created_at"`
}

func toReviewDTO(r rental.Review) ReviewDTO {
	return ReviewDTO{
		ID:         r.ID,
		PropertyID: r.PropertyID,
		UserID:     r.UserID,
		Username:   r.Username,
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  formatTime(r.CreatedAt),
	}
}

// WishlistToggleResponse reports the outcome of a toggle.
type WishlistToggleResponse struct {
	Status string `json:"status"` // "added" or "removed"
}

// =============================================================================
// BOOKINGS
// =============================================================================

// BookingRequest asks for a stay.
type BookingRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Guests    int    `json:"guests" validate:"gte=0,lte=50"`
	Notes     string `json:"notes" validate:"max=2000"`
}

// ExtendRequest moves the check-out date.
type ExtendRequest struct {
	NewEndDate string `json:"new_end_date" validate:"required,datetime=2006-01-02"`
}

// PaymentRequest pays for one month. Month is the full English name.
type PaymentRequest struct {
	Month string `json:"month" validate:"required"`
	Year  int    `json:"year" validate:"required,gte=1900,lte=9999"`
}

type BookingDTO struct {
	ID         string              `json:"id"`
	PropertyID string              `json:"property_id"`
	UserID     string              `json:"user_id"`
	Tenant     string              `json:"tenant_username,omitempty"`
	StartDate  billing.Date        `json:"start_date"`
	EndDate    billing.Date        `json:"end_date"`
	Status     string              `json:"status"`
	TotalPrice decimal.Decimal     `json:"total_price"`
	Guests     int                 `json:"guests"`
	Notes      string              `json:"notes"`
	Payments   billing.PaymentData `json:"payment_data"`
	Version    int                 `json:"version"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  string              `json:"updated_at"`
}

func toBookingDTO(b rental.Booking) BookingDTO {
	payments := b.Payments
	if payments == nil {
		payments = billing.PaymentData{}
	}
	return BookingDTO{
		ID:         b.ID,
		PropertyID: b.PropertyID,
		UserID:     b.UserID,
		StartDate:  b.Start,
		EndDate:    b.End,
		Status:     string(b.Status),
		TotalPrice: b.TotalPrice,
		Guests:     b.Guests,
		Notes:      b.Notes,
		Payments:   payments,
		Version:    b.Version,
		CreatedAt:  formatTime(b.CreatedAt),
		UpdatedAt:  formatTime(b.UpdatedAt),
	}
}

func toBookingDTOs(bs []rental.Booking) []BookingDTO {
	out := make([]BookingDTO, len(bs))
	for i, b := range bs {
		out[i] = toBookingDTO(b)
	}
	return out
}

// PaymentBucketDTO names a billing month, e.g. {"month":"January","year":2025}.
type PaymentBucketDTO struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
}

func toBucketDTO(b billing.Bucket) PaymentBucketDTO {
	return PaymentBucketDTO{Month: b.Month.String(), Year: b.Year}
}

// CreateBookingResponse points the client at the first month to pay.
type CreateBookingResponse struct {
	Booking      BookingDTO       `json:"booking"`
	FirstPayment PaymentBucketDTO `json:"first_payment"`
}

// PaymentResponse is a recorded payment with the updated booking.
type PaymentResponse struct {
	Booking BookingDTO           `json:"booking"`
	Payment billing.PaymentEvent `json:"payment"`
}

// ScheduleEntryDTO is one month of a booking's payment schedule.
type ScheduleEntryDTO struct {
	Month       string          `json:"month"`
	Year        int             `json:"year"`
	Date        billing.Date    `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	PeriodStart billing.Date    `json:"period_start"`
	PeriodEnd   billing.Date    `json:"period_end"`
	Status      string          `json:"status"`
}

func toScheduleDTOs(entries []billing.Entry) []ScheduleEntryDTO {
	out := make([]ScheduleEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = ScheduleEntryDTO{
			Month:       e.Label(),
			Year:        e.Year,
			Date:        e.Date,
			Amount:      e.Amount,
			PeriodStart: e.PeriodStart,
			PeriodEnd:   e.PeriodEnd,
			Status:      string(e.Status),
		}
	}
	return out
}

// ReservationDetailsResponse is the reservation page: the booking, who
// made it, and its payment schedule for the selected year.
type ReservationDetailsResponse struct {
	Booking          BookingDTO         `json:"booking"`
	Property         PropertyDTO        `json:"property"`
	Tenant           UserDTO            `json:"tenant"`
	BookingDuration  int                `json:"booking_duration"`
	PreviousBookings int                `json:"previous_bookings"`
	AverageRating    decimal.Decimal    `json:"average_rating"`
	CurrentYear      int                `json:"current_year"`
	SelectedYear     int                `json:"selected_year"`
	Years            []int              `json:"years"`
	MonthlyPayments  []ScheduleEntryDTO `json:"monthly_payments"`
	TotalPaid        decimal.Decimal    `json:"total_paid"`
	TotalPending     decimal.Decimal    `json:"total_pending"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

// VendorDashboard is the landing page of a vendor.
type VendorDashboard struct {
	Role           string         `json:"role"`
	Stats          VendorStatsDTO `json:"stats"`
	Properties     []PropertyDTO  `json:"properties"`
	RecentBookings []BookingDTO   `json:"recent_bookings"`
}

type VendorStatsDTO struct {
	TotalProperties   int `json:"total_properties"`
	ActiveProperties  int `json:"active_properties"`
	PendingProperties int `json:"pending_properties"`
	RentedProperties  int `json:"rented_properties"`
	TotalBookings     int `json:"total_bookings"`
	PendingBookings   int `json:"pending_bookings"`
}

// TenantDashboard is the landing page of a tenant.
type TenantDashboard struct {
	Role       string        `json:"role"`
	Properties []PropertyDTO `json:"properties"`
	Bookings   []BookingDTO  `json:"bookings"`
	Wishlist   []PropertyDTO `json:"wishlist"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo dataset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo dataset. Empty means "demo".
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
