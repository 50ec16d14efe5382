package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/warp/rental-engine/rental"
)

// =============================================================================
// REVIEW STORE
// =============================================================================

type reviewRecord struct {
	ID         string `db:"id"`
	PropertyID string `db:"property_id"`
	UserID     string `db:"user_id"`
	Username   string `db:"username"`
	Rating     int    `db:"rating"`
	Comment    string `db:"comment"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

// SaveReview stores a review and refreshes the property's average rating.
// A second review by the same user returns rental.ErrDuplicate.
func (s *Store) SaveReview(ctx context.Context, r rental.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reviews (id, property_id, user_id, rating, comment, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.PropertyID, r.UserID, r.Rating, r.Comment,
			formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("review of %s by %s: %w", r.PropertyID, r.UserID, rental.ErrDuplicate)
		}
		if err != nil {
			return err
		}

		var avg sql.NullFloat64
		if err := tx.GetContext(ctx, &avg,
			"SELECT AVG(rating) FROM reviews WHERE property_id = ?", r.PropertyID); err != nil {
			return err
		}
		rating := decimal.NewFromFloat(avg.Float64).Round(1)
		_, err = tx.ExecContext(ctx, "UPDATE properties SET rating = ? WHERE id = ?", rating, r.PropertyID)
		return err
	})
}

// ListReviews returns a property's reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, propertyID string) ([]rental.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []reviewRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT r.id, r.property_id, r.user_id, u.username, r.rating, r.comment, r.created_at, r.updated_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.property_id = ?
		ORDER BY r.created_at DESC`, propertyID)
	if err != nil {
		return nil, err
	}

	out := make([]rental.Review, len(recs))
	for i, r := range recs {
		out[i] = rental.Review{
			ID:         r.ID,
			PropertyID: r.PropertyID,
			UserID:     r.UserID,
			Username:   r.Username,
			Rating:     r.Rating,
			Comment:    r.Comment,
			CreatedAt:  parseTime(r.CreatedAt),
			UpdatedAt:  parseTime(r.UpdatedAt),
		}
	}
	return out, nil
}

// AverageRatingByUser is the mean rating of the reviews a user wrote,
// rounded to one decimal. Zero when there are none.
func (s *Store) AverageRatingByUser(ctx context.Context, userID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var avg sql.NullFloat64
	if err := s.db.GetContext(ctx, &avg, "SELECT AVG(rating) FROM reviews WHERE user_id = ?", userID); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(avg.Float64).Round(1), nil
}

// =============================================================================
// WISHLIST STORE
// =============================================================================

// ToggleWishlist adds the property to the user's wishlist, or removes it
// when already there. Returns true when added.
func (s *Store) ToggleWishlist(ctx context.Context, userID, propertyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM wishlists WHERE user_id = ? AND property_id = ?", userID, propertyID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wishlists (id, user_id, property_id, created_at) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), userID, propertyID, formatTime(s.now()))
		added = err == nil
		return err
	})
	return added, err
}

// IsWishlisted reports whether the user bookmarked the property.
func (s *Store) IsWishlisted(ctx context.Context, userID, propertyID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM wishlists WHERE user_id = ? AND property_id = ?", userID, propertyID)
	return n > 0, err
}

// ListWishlist returns the user's bookmarked properties, most recently
// added first. limit <= 0 means all.
func (s *Store) ListWishlist(ctx context.Context, userID string, limit int) ([]rental.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT p.id, p.owner_id, p.title, p.description, p.status, p.property_type, p.price, p.deposit,
			p.location, p.address, p.city, p.state, p.zip_code, p.latitude, p.longitude, p.image_url,
			p.bedrooms, p.bathrooms, p.area, p.year_built, p.views, p.rating, p.is_featured,
			p.amenities_json, p.date_added, p.last_updated
		FROM wishlists w
		JOIN properties p ON p.id = w.property_id
		WHERE w.user_id = ?
		ORDER BY w.created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var recs []propertyRecord
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, err
	}
	return toProperties(recs), nil
}
