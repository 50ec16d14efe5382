/*
Package rental holds the domain model of the rental service.

KEY CONCEPTS:
  - User: a registered account, either a tenant ("user") or a vendor
  - Property: a listing owned by a vendor, priced per month
  - Booking: a tenant's request for a property over [Start, End)
  - Review / WishlistItem: per-user, per-property records
  - Principal: who is acting on a request, resolved once per request

ROLES:
  The role is read once when a request is authenticated and travels as a
  Principal. Domain functions take the Principal explicitly instead of
  re-reading the user record.

SEE ALSO:
  - booking.go: Booking lifecycle rules
  - user.go: Registration
  - billing/: Payment schedule computation
*/
package rental

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-engine/billing"
)

// =============================================================================
// ROLES
// =============================================================================

// Role decides which actions a user may take.
type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
)

// ParseRole accepts "user" and "vendor". Empty means user.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleVendor:
		return RoleVendor, nil
	}
	return "", Invalid("role", "must be 'user' or 'vendor'")
}

// Principal is the acting user of a request.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsVendor() bool { return p.Role == RoleVendor }
func (p Principal) IsZero() bool   { return p.UserID == "" }

// =============================================================================
// USER
// =============================================================================

// User is an account with its profile.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Profile      Profile
	CreatedAt    time.Time
}

// Profile holds role and contact details. Vendor-only fields are empty for
// tenants.
type Profile struct {
	Role             Role
	Phone            string
	Bio              string
	CompanyName      string
	AadhaarNumber    string
	PanNumber        string
	IsEmailVerified  bool
	IsVerified       bool
	RegistrationDate billing.Date
}

// Principal returns the user as the acting party.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Profile.Role}
}

// =============================================================================
// PROPERTY
// =============================================================================

type PropertyStatus string

const (
	PropertyActive  PropertyStatus = "active"
	PropertyPending PropertyStatus = "pending"
	PropertyRented  PropertyStatus = "rented"
	PropertySold    PropertyStatus = "sold"
	PropertyDraft   PropertyStatus = "draft"
)

type PropertyType string

const (
	TypeApartment  PropertyType = "apartment"
	TypeHouse      PropertyType = "house"
	TypeVilla      PropertyType = "villa"
	TypeCondo      PropertyType = "condo"
	TypeLand       PropertyType = "land"
	TypeCommercial PropertyType = "commercial"
)

// Property is a listing. Price is the monthly base rate and the fallback
// amount of unpaid billing periods.
type Property struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Status      PropertyStatus
	Type        PropertyType
	Price       decimal.Decimal
	Deposit     decimal.Decimal
	Location    string
	Address     string
	City        string
	State       string
	ZipCode     string
	Latitude    decimal.NullDecimal
	Longitude   decimal.NullDecimal
	ImageURL    string
	Bedrooms    int
	Bathrooms   int
	Area        decimal.Decimal
	YearBuilt   *int
	Views       int
	Rating      decimal.Decimal
	IsFeatured  bool
	Amenities   []string
	DateAdded   time.Time
	LastUpdated time.Time
}

// IsOwnedBy reports whether the principal listed this property.
func (p Property) IsOwnedBy(who Principal) bool {
	return who.IsVendor() && p.OwnerID == who.UserID
}

// VendorStats summarizes a vendor's listings and bookings.
type VendorStats struct {
	TotalProperties   int
	ActiveProperties  int
	PendingProperties int
	RentedProperties  int
	TotalBookings     int
	PendingBookings   int
}

// =============================================================================
// REVIEW / WISHLIST
// =============================================================================

// Review is one user's rating of a property. One per user and property.
type Review struct {
	ID         string
	PropertyID string
	UserID     string
	Username   string
	Rating     int
	Comment    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// WishlistItem bookmarks a property for a user.
type WishlistItem struct {
	ID         string
	UserID     string
	PropertyID string
	CreatedAt  time.Time
}
