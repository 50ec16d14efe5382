package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/warp/rental-engine/rental"
)

const similarLimit = 4

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// ListProperties returns active listings, newest first.
// GET /api/properties?featured=true
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	featured := r.URL.Query().Get("featured") == "true"

	props, err := h.Store.ListActiveProperties(r.Context(), featured)
	if err != nil {
		respondError(w, r, "Failed to list properties", err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTOs(props))
}

// GetProperty returns a listing with similar listings and reviews. Signed
// in users count as a view.
// GET /api/properties/{id}
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	who, signedIn := PrincipalFrom(ctx)
	if signedIn {
		if err := h.Store.IncrementViews(ctx, id); err != nil {
			respondError(w, r, "Failed to count view", err)
			return
		}
	}

	prop, err := h.Store.GetProperty(ctx, id)
	if err != nil {
		respondError(w, r, "Failed to load property", err)
		return
	}

	similar, err := h.Store.ListSimilarProperties(ctx, prop, similarLimit)
	if err != nil {
		respondError(w, r, "Failed to load similar properties", err)
		return
	}
	reviews, err := h.Store.ListReviews(ctx, id)
	if err != nil {
		respondError(w, r, "Failed to load reviews", err)
		return
	}

	resp := PropertyDetailResponse{
		Property: toPropertyDTO(prop),
		Similar:  toPropertyDTOs(similar),
		Reviews:  make([]ReviewDTO, len(reviews)),
	}
	for i, rv := range reviews {
		resp.Reviews[i] = toReviewDTO(rv)
	}
	if signedIn {
		resp.IsBookmarked, err = h.Store.IsWishlisted(ctx, who.UserID, id)
		if err != nil {
			respondError(w, r, "Failed to load wishlist", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateProperty lists a new property for the calling vendor.
// POST /api/properties
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req PropertyRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid property", err)
		return
	}

	prop, err := rental.NewProperty(principal(r), req.toInput(), h.now())
	if err != nil {
		respondError(w, r, "Cannot create property", err)
		return
	}
	if err := h.Store.SaveProperty(r.Context(), prop); err != nil {
		respondError(w, r, "Failed to save property", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPropertyDTO(prop))
}

// UpdateProperty replaces a listing's fields.
// PUT /api/properties/{id}
func (h *Handler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	var req PropertyRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid property", err)
		return
	}

	ctx := r.Context()
	prop, err := h.Store.GetProperty(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "Failed to load property", err)
		return
	}
	if err := prop.Update(principal(r), req.toInput(), h.now()); err != nil {
		respondError(w, r, "Cannot update property", err)
		return
	}
	if err := h.Store.SaveProperty(ctx, prop); err != nil {
		respondError(w, r, "Failed to save property", err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTO(prop))
}

// DeleteProperty removes a listing.
// DELETE /api/properties/{id}
func (h *Handler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prop, err := h.Store.GetProperty(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "Failed to load property", err)
		return
	}
	if err := prop.CheckDelete(principal(r)); err != nil {
		respondError(w, r, "Cannot delete property", err)
		return
	}
	if err := h.Store.DeleteProperty(ctx, prop.ID); err != nil {
		respondError(w, r, "Failed to delete property", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// REVIEWS / WISHLIST
// =============================================================================

// CreateReview rates a listing, once per user.
// POST /api/properties/{id}/reviews
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := h.decode(r, &req); err != nil {
		respondError(w, r, "Invalid review", err)
		return
	}

	ctx := r.Context()
	prop, err := h.Store.GetProperty(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "Failed to load property", err)
		return
	}
	author, err := h.Store.GetUser(ctx, principal(r).UserID)
	if err != nil {
		respondError(w, r, "Failed to load user", err)
		return
	}

	review, err := rental.NewReview(prop.ID, author, req.Rating, req.Comment, h.now())
	if err != nil {
		respondError(w, r, "Invalid review", err)
		return
	}
	if err := h.Store.SaveReview(ctx, review); err != nil {
		respondError(w, r, "Failed to save review", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReviewDTO(review))
}

// ToggleWishlist bookmarks a listing, or removes the bookmark.
// POST /api/properties/{id}/wishlist
func (h *Handler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prop, err := h.Store.GetProperty(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, "Failed to load property", err)
		return
	}

	added, err := h.Store.ToggleWishlist(ctx, principal(r).UserID, prop.ID)
	if err != nil {
		respondError(w, r, "Failed to update wishlist", err)
		return
	}
	status := "removed"
	if added {
		status = "added"
	}
	writeJSON(w, http.StatusOK, WishlistToggleResponse{Status: status})
}

// ListWishlist returns the caller's bookmarked listings.
// GET /api/wishlist
func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	props, err := h.Store.ListWishlist(r.Context(), principal(r).UserID, 0)
	if err != nil {
		respondError(w, r, "Failed to list wishlist", err)
		return
	}
	writeJSON(w, http.StatusOK, toPropertyDTOs(props))
}
