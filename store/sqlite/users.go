package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
)

// =============================================================================
// USER STORE
// =============================================================================

// userRecord is a users row joined with its profile.
type userRecord struct {
	ID               string `db:"id"`
	Username         string `db:"username"`
	Email            string `db:"email"`
	FirstName        string `db:"first_name"`
	LastName         string `db:"last_name"`
	PasswordHash     string `db:"password_hash"`
	CreatedAt        string `db:"created_at"`
	Role             string `db:"role"`
	Phone            string `db:"phone"`
	Bio              string `db:"bio"`
	CompanyName      string `db:"company_name"`
	AadhaarNumber    string `db:"aadhaar_number"`
	PanNumber        string `db:"pan_number"`
	IsEmailVerified  bool   `db:"is_email_verified"`
	IsVerified       bool   `db:"is_verified"`
	RegistrationDate string `db:"registration_date"`
}

const selectUser = `
	SELECT u.id, u.username, u.email, u.first_name, u.last_name, u.password_hash, u.created_at,
		p.role, p.phone, p.bio, p.company_name, p.aadhaar_number, p.pan_number,
		p.is_email_verified, p.is_verified, p.registration_date
	FROM users u
	JOIN profiles p ON p.user_id = u.id
`

func (r userRecord) toUser() rental.User {
	regDate, _ := billing.ParseDate(r.RegistrationDate)
	return rental.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		PasswordHash: r.PasswordHash,
		CreatedAt:    parseTime(r.CreatedAt),
		Profile: rental.Profile{
			Role:             rental.Role(r.Role),
			Phone:            r.Phone,
			Bio:              r.Bio,
			CompanyName:      r.CompanyName,
			AadhaarNumber:    r.AadhaarNumber,
			PanNumber:        r.PanNumber,
			IsEmailVerified:  r.IsEmailVerified,
			IsVerified:       r.IsVerified,
			RegistrationDate: regDate,
		},
	}
}

// CreateUser inserts a user and its profile. A taken username or email
// returns rental.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u rental.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var taken int
		if err := tx.GetContext(ctx, &taken, "SELECT COUNT(*) FROM users WHERE username = ?", u.Username); err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("username %q is already taken: %w", u.Username, rental.ErrDuplicate)
		}
		if u.Email != "" {
			if err := tx.GetContext(ctx, &taken, "SELECT COUNT(*) FROM users WHERE email = ?", u.Email); err != nil {
				return err
			}
			if taken > 0 {
				return fmt.Errorf("email %q is already registered: %w", u.Email, rental.ErrDuplicate)
			}
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, email, first_name, last_name, password_hash, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, formatTime(u.CreatedAt),
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", u.Username, rental.ErrDuplicate)
		}
		if err != nil {
			return err
		}
		return saveProfile(ctx, tx, u.ID, u.Profile)
	})
}

func saveProfile(ctx context.Context, ex sqlx.ExecerContext, userID string, p rental.Profile) error {
	regDate := p.RegistrationDate.String()
	if p.RegistrationDate.IsZero() {
		regDate = billing.Today().String()
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO profiles (user_id, role, phone, bio, company_name, aadhaar_number, pan_number,
			is_email_verified, is_verified, registration_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			role = excluded.role,
			phone = excluded.phone,
			bio = excluded.bio,
			company_name = excluded.company_name,
			aadhaar_number = excluded.aadhaar_number,
			pan_number = excluded.pan_number,
			is_email_verified = excluded.is_email_verified,
			is_verified = excluded.is_verified`,
		userID, string(p.Role), p.Phone, p.Bio, p.CompanyName, p.AadhaarNumber, p.PanNumber,
		p.IsEmailVerified, p.IsVerified, regDate,
	)
	return err
}

// UpdateProfile overwrites a user's profile.
func (s *Store) UpdateProfile(ctx context.Context, userID string, p rental.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.GetContext(ctx, &exists, "SELECT COUNT(*) FROM users WHERE id = ?", userID); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("user %s: %w", userID, rental.ErrNotFound)
	}
	return saveProfile(ctx, s.db, userID, p)
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (rental.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec userRecord
	if err := s.db.GetContext(ctx, &rec, selectUser+" WHERE u.id = ?", id); err != nil {
		return rental.User{}, notFound(err, "user", id)
	}
	return rec.toUser(), nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (rental.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec userRecord
	if err := s.db.GetContext(ctx, &rec, selectUser+" WHERE u.username = ?", username); err != nil {
		return rental.User{}, notFound(err, "user", username)
	}
	return rec.toUser(), nil
}

// GetUserByEmail retrieves a user by email address. Accounts without an
// email are never matched.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (rental.User, error) {
	if email == "" {
		return rental.User{}, fmt.Errorf("user with empty email: %w", rental.ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rec userRecord
	if err := s.db.GetContext(ctx, &rec, selectUser+" WHERE u.email = ?", email); err != nil {
		return rental.User{}, notFound(err, "user", email)
	}
	return rec.toUser(), nil
}

// GetUsers loads several users at once, keyed by ID. Missing IDs are
// absent from the map.
func (s *Store) GetUsers(ctx context.Context, ids []string) (map[string]rental.User, error) {
	out := make(map[string]rental.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query, args, err := sqlx.In(selectUser+" WHERE u.id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var recs []userRecord
	if err := s.db.SelectContext(ctx, &recs, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, r := range recs {
		out[r.ID] = r.toUser()
	}
	return out, nil
}
