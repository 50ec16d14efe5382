package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/rental-engine/rental"
)

// =============================================================================
// PROPERTY STORE
// =============================================================================

type propertyRecord struct {
	ID            string              `db:"id"`
	OwnerID       string              `db:"owner_id"`
	Title         string              `db:"title"`
	Description   string              `db:"description"`
	Status        string              `db:"status"`
	PropertyType  string              `db:"property_type"`
	Price         decimal.Decimal     `db:"price"`
	Deposit       decimal.Decimal     `db:"deposit"`
	Location      string              `db:"location"`
	Address       string              `db:"address"`
	City          string              `db:"city"`
	State         string              `db:"state"`
	ZipCode       string              `db:"zip_code"`
	Latitude      decimal.NullDecimal `db:"latitude"`
	Longitude     decimal.NullDecimal `db:"longitude"`
	ImageURL      string              `db:"image_url"`
	Bedrooms      int                 `db:"bedrooms"`
	Bathrooms     int                 `db:"bathrooms"`
	Area          decimal.Decimal     `db:"area"`
	YearBuilt     sql.NullInt64       `db:"year_built"`
	Views         int                 `db:"views"`
	Rating        decimal.Decimal     `db:"rating"`
	IsFeatured    bool                `db:"is_featured"`
	AmenitiesJSON string              `db:"amenities_json"`
	DateAdded     string              `db:"date_added"`
	LastUpdated   string              `db:"last_updated"`
}

const selectProperty = `
	SELECT id, owner_id, title, description, status, property_type, price, deposit,
		location, address, city, state, zip_code, latitude, longitude, image_url,
		bedrooms, bathrooms, area, year_built, views, rating, is_featured,
		amenities_json, date_added, last_updated
	FROM properties
`

func (r propertyRecord) toProperty() rental.Property {
	p := rental.Property{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
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
		Views:       r.Views,
		Rating:      r.Rating,
		IsFeatured:  r.IsFeatured,
		DateAdded:   parseTime(r.DateAdded),
		LastUpdated: parseTime(r.LastUpdated),
	}
	if r.YearBuilt.Valid {
		y := int(r.YearBuilt.Int64)
		p.YearBuilt = &y
	}
	// Unreadable amenities show as none.
	_ = json.Unmarshal([]byte(r.AmenitiesJSON), &p.Amenities)
	return p
}

func toProperties(recs []propertyRecord) []rental.Property {
	out := make([]rental.Property, len(recs))
	for i, r := range recs {
		out[i] = r.toProperty()
	}
	return out
}

// SaveProperty inserts or updates a property. Views and rating are kept
// on update.
func (s *Store) SaveProperty(ctx context.Context, p rental.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	amenities := p.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	amenitiesJSON, err := json.Marshal(amenities)
	if err != nil {
		return fmt.Errorf("encode amenities: %w", err)
	}
	var yearBuilt sql.NullInt64
	if p.YearBuilt != nil {
		yearBuilt = sql.NullInt64{Int64: int64(*p.YearBuilt), Valid: true}
	}
	added, updated := p.DateAdded, p.LastUpdated
	if added.IsZero() {
		added = s.now()
	}
	if updated.IsZero() {
		updated = added
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO properties (id, owner_id, title, description, status, property_type, price, deposit,
			location, address, city, state, zip_code, latitude, longitude, image_url,
			bedrooms, bathrooms, area, year_built, views, rating, is_featured,
			amenities_json, date_added, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			status = excluded.status,
			property_type = excluded.property_type,
			price = excluded.price,
			deposit = excluded.deposit,
			location = excluded.location,
			address = excluded.address,
			city = excluded.city,
			state = excluded.state,
			zip_code = excluded.zip_code,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			image_url = excluded.image_url,
			bedrooms = excluded.bedrooms,
			bathrooms = excluded.bathrooms,
			area = excluded.area,
			year_built = excluded.year_built,
			is_featured = excluded.is_featured,
			amenities_json = excluded.amenities_json,
			last_updated = excluded.last_updated`,
		p.ID, p.OwnerID, p.Title, p.Description, string(p.Status), string(p.Type), p.Price, p.Deposit,
		p.Location, p.Address, p.City, p.State, p.ZipCode, p.Latitude, p.Longitude, p.ImageURL,
		p.Bedrooms, p.Bathrooms, p.Area, yearBuilt, p.Views, p.Rating, p.IsFeatured,
		string(amenitiesJSON), formatTime(added), formatTime(updated),
	)
	return err
}

// GetProperty retrieves a property by ID.
func (s *Store) GetProperty(ctx context.Context, id string) (rental.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec propertyRecord
	if err := s.db.GetContext(ctx, &rec, selectProperty+" WHERE id = ?", id); err != nil {
		return rental.Property{}, notFound(err, "property", id)
	}
	return rec.toProperty(), nil
}

// ListActiveProperties returns bookable listings, newest first.
func (s *Store) ListActiveProperties(ctx context.Context, featuredOnly bool) ([]rental.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := selectProperty + " WHERE status = 'active'"
	if featuredOnly {
		query += " AND is_featured"
	}
	query += " ORDER BY date_added DESC"

	var recs []propertyRecord
	if err := s.db.SelectContext(ctx, &recs, query); err != nil {
		return nil, err
	}
	return toProperties(recs), nil
}

// ListPropertiesByOwner returns a vendor's listings, newest first.
func (s *Store) ListPropertiesByOwner(ctx context.Context, ownerID string) ([]rental.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []propertyRecord
	if err := s.db.SelectContext(ctx, &recs,
		selectProperty+" WHERE owner_id = ? ORDER BY date_added DESC", ownerID); err != nil {
		return nil, err
	}
	return toProperties(recs), nil
}

// ListSimilarProperties returns active listings sharing the location
// (substring, case-insensitive) or the type of p.
func (s *Store) ListSimilarProperties(ctx context.Context, p rental.Property, limit int) ([]rental.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []propertyRecord
	err := s.db.SelectContext(ctx, &recs, selectProperty+`
		WHERE status = 'active' AND id != ?
			AND (instr(lower(location), lower(?)) > 0 OR property_type = ?)
		ORDER BY date_added DESC
		LIMIT ?`,
		p.ID, p.Location, string(p.Type), limit,
	)
	if err != nil {
		return nil, err
	}
	return toProperties(recs), nil
}

// IncrementViews counts one view of a property.
func (s *Store) IncrementViews(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "UPDATE properties SET views = views + 1 WHERE id = ?", id)
	return err
}

// SetPropertyStatus changes a listing's status.
func (s *Store) SetPropertyStatus(ctx context.Context, id string, status rental.PropertyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE properties SET status = ?, last_updated = ? WHERE id = ?",
		string(status), formatTime(s.now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("property %s: %w", id, rental.ErrNotFound)
	}
	return nil
}

// DeleteProperty removes a listing with its bookings, reviews and
// wishlist entries.
func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("property %s: %w", id, rental.ErrNotFound)
	}
	return nil
}

// VendorStats counts a vendor's listings by status and the bookings on
// them.
func (s *Store) VendorStats(ctx context.Context, ownerID string) (rental.VendorStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec struct {
		Total   int `db:"total"`
		Active  int `db:"active"`
		Pending int `db:"pending"`
		Rented  int `db:"rented"`
	}
	err := s.db.GetContext(ctx, &rec, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(status = 'active'), 0) AS active,
			COALESCE(SUM(status = 'pending'), 0) AS pending,
			COALESCE(SUM(status = 'rented'), 0) AS rented
		FROM properties WHERE owner_id = ?`, ownerID)
	if err != nil {
		return rental.VendorStats{}, err
	}

	var bookings struct {
		Total   int `db:"total"`
		Pending int `db:"pending"`
	}
	err = s.db.GetContext(ctx, &bookings, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(b.status = 'pending'), 0) AS pending
		FROM bookings b
		JOIN properties p ON p.id = b.property_id
		WHERE p.owner_id = ?`, ownerID)
	if err != nil {
		return rental.VendorStats{}, err
	}

	return rental.VendorStats{
		TotalProperties:   rec.Total,
		ActiveProperties:  rec.Active,
		PendingProperties: rec.Pending,
		RentedProperties:  rec.Rented,
		TotalBookings:     bookings.Total,
		PendingBookings:   bookings.Pending,
	}, nil
}
