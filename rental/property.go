package rental

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PropertyInput is the listing form, used for both create and update.
type PropertyInput struct {
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
	IsFeatured  bool
	Amenities   []string
}

func (in PropertyInput) validate() error {
	verr := NewValidationError()
	if strings.TrimSpace(in.Title) == "" {
		verr.Add("title", "is required")
	}
	if !in.Price.IsPositive() {
		verr.Add("price", "must be greater than zero")
	}
	if in.Deposit.IsNegative() {
		verr.Add("deposit", "must not be negative")
	}
	if in.Bedrooms < 0 {
		verr.Add("bedrooms", "must not be negative")
	}
	if in.Bathrooms < 0 {
		verr.Add("bathrooms", "must not be negative")
	}
	switch in.Status {
	case "", PropertyActive, PropertyPending, PropertyRented, PropertySold, PropertyDraft:
	default:
		verr.Add("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	switch in.Type {
	case "", TypeApartment, TypeHouse, TypeVilla, TypeCondo, TypeLand, TypeCommercial:
	default:
		verr.Add("property_type", fmt.Sprintf("unknown type %q", in.Type))
	}
	return verr.OrNil()
}

// NewProperty lists a property for a vendor. New listings are active
// apartments unless the input says otherwise.
func NewProperty(owner Principal, in PropertyInput, now time.Time) (Property, error) {
	if !owner.IsVendor() {
		return Property{}, fmt.Errorf("%w: only vendors can list properties", ErrForbidden)
	}
	if err := in.validate(); err != nil {
		return Property{}, err
	}
	p := Property{
		ID:        uuid.NewString(),
		OwnerID:   owner.UserID,
		Status:    PropertyActive,
		Type:      TypeApartment,
		Rating:    decimal.Zero,
		DateAdded: now,
	}
	p.apply(in, now)
	return p, nil
}

// Update replaces the listing fields. Only the owner may edit.
func (p *Property) Update(who Principal, in PropertyInput, now time.Time) error {
	if !p.IsOwnedBy(who) {
		return fmt.Errorf("%w: you can only edit your own properties", ErrForbidden)
	}
	if err := in.validate(); err != nil {
		return err
	}
	p.apply(in, now)
	return nil
}

// CheckDelete verifies that who may remove the listing.
func (p Property) CheckDelete(who Principal) error {
	if !p.IsOwnedBy(who) {
		return fmt.Errorf("%w: you can only delete your own properties", ErrForbidden)
	}
	return nil
}

func (p *Property) apply(in PropertyInput, now time.Time) {
	p.Title = strings.TrimSpace(in.Title)
	p.Description = in.Description
	if in.Status != "" {
		p.Status = in.Status
	}
	if in.Type != "" {
		p.Type = in.Type
	}
	p.Price = in.Price
	p.Deposit = in.Deposit
	p.Location = in.Location
	p.Address = in.Address
	p.City = in.City
	p.State = in.State
	p.ZipCode = in.ZipCode
	p.Latitude = in.Latitude
	p.Longitude = in.Longitude
	p.ImageURL = in.ImageURL
	p.Bedrooms = in.Bedrooms
	p.Bathrooms = in.Bathrooms
	p.Area = in.Area
	p.YearBuilt = in.YearBuilt
	p.IsFeatured = in.IsFeatured
	p.Amenities = in.Amenities
	p.LastUpdated = now
}
