package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

// =============================================================================
// BOOKING STORE
// =============================================================================

type bookingRecord struct {
	ID          string          `db:"id"`
	PropertyID  string          `db:"property_id"`
	UserID      string          `db:"user_id"`
	StartDate   string          `db:"start_date"`
	EndDate     string          `db:"end_date"`
	Status      string          `db:"status"`
	TotalPrice  decimal.Decimal `db:"total_price"`
	Guests      int             `db:"guests"`
	Notes       string          `db:"notes"`
	PaymentData string          `db:"payment_data"`
	Version     int             `db:"version"`
	CreatedAt   string          `db:"created_at"`
	UpdatedAt   string          `db:"updated_at"`
}

const selectBooking = `
	SELECT b.id, b.property_id, b.user_id, b.start_date, b.end_date, b.status, b.total_price,
		b.guests, b.notes, b.payment_data, b.version, b.created_at, b.updated_at
	FROM bookings b
`

func (r bookingRecord) toBooking() rental.Booking {
	start, _ := billing.ParseDate(r.StartDate)
	end, _ := billing.ParseDate(r.EndDate)
	// A payment_data column that is not even a JSON array reads as no
	// payments; the schedule still renders.
	payments, err := billing.ParsePaymentData([]byte(r.PaymentData))
	if err != nil {
		payments = billing.PaymentData{}
	}
	return rental.Booking{
		ID:         r.ID,
		PropertyID: r.PropertyID,
		UserID:     r.UserID,
		Start:      start,
		End:        end,
		Status:     rental.BookingStatus(r.Status),
		TotalPrice: r.TotalPrice,
		Guests:     r.Guests,
		Notes:      r.Notes,
		Payments:   payments,
		Version:    r.Version,
		CreatedAt:  parseTime(r.CreatedAt),
		UpdatedAt:  parseTime(r.UpdatedAt),
	}
}

func toBookings(recs []bookingRecord) []rental.Booking {
	out := make([]rental.Booking, len(recs))
	for i, r := range recs {
		out[i] = r.toBooking()
	}
	return out
}

// CreateBooking inserts a new booking at version 1.
func (s *Store) CreateBooking(ctx context.Context, b *rental.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, err := b.Payments.Encode()
	if err != nil {
		return fmt.Errorf("encode payment data: %w", err)
	}
	created := b.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, property_id, user_id, start_date, end_date, status, total_price,
			guests, notes, payment_data, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		b.ID, b.PropertyID, b.UserID, b.Start.String(), b.End.String(), string(b.Status), b.TotalPrice,
		b.Guests, b.Notes, string(payments), formatTime(created), formatTime(created),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("booking %s: %w", b.ID, rental.ErrDuplicate)
	}
	if err != nil {
		return err
	}
	b.Version = 1
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (rental.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec bookingRecord
	if err := s.db.GetContext(ctx, &rec, selectBooking+" WHERE b.id = ?", id); err != nil {
		return rental.Booking{}, notFound(err, "booking", id)
	}
	return rec.toBooking(), nil
}

// ListBookingsByUser returns a tenant's bookings, newest first.
func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]rental.Booking, error) {
	return s.queryBookings(ctx, selectBooking+" WHERE b.user_id = ? ORDER BY b.created_at DESC", userID)
}

// ListBookingsByOwner returns bookings on a vendor's properties, newest
// first. limit <= 0 means all.
func (s *Store) ListBookingsByOwner(ctx context.Context, ownerID string, limit int) ([]rental.Booking, error) {
	query := selectBooking + `
		JOIN properties p ON p.id = b.property_id
		WHERE p.owner_id = ?
		ORDER BY b.created_at DESC`
	if limit > 0 {
		return s.queryBookings(ctx, query+" LIMIT ?", ownerID, limit)
	}
	return s.queryBookings(ctx, query, ownerID)
}

func (s *Store) queryBookings(ctx context.Context, query string, args ...any) ([]rental.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []bookingRecord
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, err
	}
	return toBookings(recs), nil
}

// CountOtherBookings counts a tenant's bookings except one.
func (s *Store) CountOtherBookings(ctx context.Context, userID, excludeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM bookings WHERE user_id = ? AND id != ?", userID, excludeID)
	return n, err
}

// UpdateBooking writes b if nobody changed it since it was read. On success
// b.Version is the new version.
func (s *Store) UpdateBooking(ctx context.Context, b *rental.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return s.updateBooking(ctx, tx, b)
	})
}

// RecordPayment writes the booking carrying a new payment and marks its
// property rented, atomically.
func (s *Store) RecordPayment(ctx context.Context, b *rental.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.updateBooking(ctx, tx, b); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE properties SET status = ?, last_updated = ? WHERE id = ?",
			string(rental.PropertyRented), formatTime(s.now()), b.PropertyID)
		return err
	})
}

func (s *Store) updateBooking(ctx context.Context, tx *sqlx.Tx, b *rental.Booking) error {
	payments, err := b.Payments.Encode()
	if err != nil {
		return fmt.Errorf("encode payment data: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE bookings SET
			start_date = ?, end_date = ?, status = ?, total_price = ?, guests = ?, notes = ?,
			payment_data = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		b.Start.String(), b.End.String(), string(b.Status), b.TotalPrice, b.Guests, b.Notes,
		string(payments), formatTime(s.now()),
		b.ID, b.Version,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := tx.GetContext(ctx, &exists, "SELECT COUNT(*) FROM bookings WHERE id = ?", b.ID); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("booking %s: %w", b.ID, rental.ErrNotFound)
		}
		return fmt.Errorf("booking %s at version %d: %w", b.ID, b.Version, rental.ErrConcurrentModification)
	}
	b.Version++
	return nil
}

// CancelBooking deletes a booking and puts its property back on the
// market, atomically.
func (s *Store) CancelBooking(ctx context.Context, b rental.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", b.ID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("booking %s: %w", b.ID, rental.ErrNotFound)
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE properties SET status = ?, last_updated = ? WHERE id = ?",
			string(rental.PropertyActive), formatTime(s.now()), b.PropertyID)
		return err
	})
}

// =============================================================================
// LEASE RELEASE
// =============================================================================

// ReleaseEndedLeases puts rented properties back to active once every paid
// booking on them has ended by asOf. Returns the released property IDs.
func (s *Store) ReleaseEndedLeases(ctx context.Context, asOf billing.Date) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var released []string
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		day := asOf.String()
		if err := tx.SelectContext(ctx, &released, `
			SELECT p.id FROM properties p
			WHERE p.status = 'rented'
				AND EXISTS (
					SELECT 1 FROM bookings b
					WHERE b.property_id = p.id AND b.status = 'paid' AND b.end_date <= ?)
				AND NOT EXISTS (
					SELECT 1 FROM bookings b
					WHERE b.property_id = p.id AND b.status = 'paid' AND b.end_date > ?)
			ORDER BY p.id`, day, day); err != nil {
			return err
		}
		if len(released) == 0 {
			return nil
		}

		query, args, err := sqlx.In(
			"UPDATE properties SET status = 'active', last_updated = ? WHERE id IN (?)",
			formatTime(s.now()), released)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}
