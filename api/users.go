package api

import (
	"net/http"

	"github.com/warp/rental-engine/rental"
)

// =============================================================================
// USER HANDLERS
// =============================================================================

// Register creates an account.
// POST /api/users
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid registration", err)
		return
	}

	user, err := rental.NewUser(rental.Registration{
		Username:        req.Username,
		Email:           req.Email,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Phone:           req.Phone,
		Role:            req.Role,
		CompanyName:     req.CompanyName,
		AadhaarNumber:   req.AadhaarNumber,
		PanNumber:       req.PanNumber,
	}, h.now())
	if err != nil {
		respondError(w, r, "Invalid registration", err)
		return
	}

	if err := h.Store.CreateUser(r.Context(), user); err != nil {
		respondError(w, r, "Failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// GetMe returns the caller's account.
// GET /api/users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.Store.GetUser(r.Context(), principal(r).UserID)
	if err != nil {
		respondError(w, r, "Failed to load user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// UpdateProfile edits the caller's profile.
// PUT /api/users/me/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid profile", err)
		return
	}

	ctx := r.Context()
	user, err := h.Store.GetUser(ctx, principal(r).UserID)
	if err != nil {
		respondError(w, r, "Failed to load user", err)
		return
	}

	err = user.Profile.Apply(rental.ProfileUpdate{
		Role:          req.Role,
		Phone:         req.Phone,
		Bio:           req.Bio,
		CompanyName:   req.CompanyName,
		AadhaarNumber: req.AadhaarNumber,
		PanNumber:     req.PanNumber,
	})
	if err != nil {
		respondError(w, r, "Invalid profile", err)
		return
	}

	if err := h.Store.UpdateProfile(ctx, user.ID, user.Profile); err != nil {
		respondError(w, r, "Failed to update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}
