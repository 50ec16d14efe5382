package rental

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/rental-engine/billing"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// REGISTRATION
// =============================================================================

// Registration is the sign-up form.
type Registration struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	ConfirmPassword string
	Phone           string
	Role            string
	// Vendor documents. Ignored for tenants.
	CompanyName   string
	AadhaarNumber string
	PanNumber     string
}

// NewUser validates the form and hashes the password. Uniqueness of
// username and email is enforced by the store.
func NewUser(reg Registration, now time.Time) (User, error) {
	verr := NewValidationError()
	if strings.TrimSpace(reg.Username) == "" {
		verr.Add("username", "is required")
	}
	if reg.Password == "" {
		verr.Add("password", "is required")
	}
	if reg.Password != reg.ConfirmPassword {
		verr.Add("confirm_password", "Passwords do not match!")
	}
	role, err := ParseRole(reg.Role)
	if err != nil {
		verr.Add("role", "must be 'user' or 'vendor'")
	}
	if err := verr.OrNil(); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(reg.Username),
		Email:        strings.TrimSpace(reg.Email),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		PasswordHash: string(hash),
		Profile: Profile{
			Role:             role,
			Phone:            reg.Phone,
			RegistrationDate: billing.DateOf(now),
		},
		CreatedAt: now,
	}
	if role == RoleVendor {
		u.Profile.CompanyName = reg.CompanyName
		u.Profile.AadhaarNumber = reg.AadhaarNumber
		u.Profile.PanNumber = reg.PanNumber
	}
	return u, nil
}

// CheckPassword reports whether password matches the stored hash.
func (u User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// ProfileUpdate carries editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	Role          *string
	Phone         *string
	Bio           *string
	CompanyName   *string
	AadhaarNumber *string
	PanNumber     *string
}

// Apply changes the profile in place.
func (p *Profile) Apply(upd ProfileUpdate) error {
	if upd.Role != nil {
		role, err := ParseRole(*upd.Role)
		if err != nil {
			return err
		}
		p.Role = role
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&p.Phone, upd.Phone)
	set(&p.Bio, upd.Bio)
	set(&p.CompanyName, upd.CompanyName)
	set(&p.AadhaarNumber, upd.AadhaarNumber)
	set(&p.PanNumber, upd.PanNumber)
	return nil
}

// =============================================================================
// REVIEWS
// =============================================================================

// NewReview checks the rating range. One review per user and property is
// enforced by the store.
func NewReview(propertyID string, author User, rating int, comment string, now time.Time) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, Invalid("rating", "must be between 1 and 5")
	}
	return Review{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		UserID:     author.ID,
		Username:   author.Username,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}
