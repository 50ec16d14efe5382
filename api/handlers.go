/*
handlers.go - HTTP API handlers for the rental service

PURPOSE:
  Exposes the rental domain via a REST API. Handles HTTP request/response,
  JSON serialization and validation, and delegates to the rental and
  billing packages.

ENDPOINTS:
  Users:
    POST   /api/users                     Register
    GET    /api/users/me                  Current user
    PUT    /api/users/me/profile          Edit profile

  Properties:
    GET    /api/properties                Active listings (?featured=true)
    POST   /api/properties                Create listing (vendor)
    GET    /api/properties/{id}           Listing with similar, reviews
    PUT    /api/properties/{id}           Edit listing (owner)
    DELETE /api/properties/{id}           Remove listing (owner)
    POST   /api/properties/{id}/bookings  Request a stay (tenant)
    POST   /api/properties/{id}/reviews   Rate a listing
    POST   /api/properties/{id}/wishlist  Toggle bookmark

  Bookings:
    GET    /api/bookings                  Own bookings, or bookings on own listings
    GET    /api/bookings/{id}             Reservation details (?year=)
    POST   /api/bookings/{id}/extend      Move check-out later
    POST   /api/bookings/{id}/approve     Vendor accepts
    POST   /api/bookings/{id}/decline     Vendor rejects
    POST   /api/bookings/{id}/payments    Pay one month
    DELETE /api/bookings/{id}             Cancel

  Other:
    GET    /api/wishlist                  Bookmarked listings
    GET    /api/dashboard                 Role-specific landing data
    GET    /api/admin/scenarios           Demo datasets
    POST   /api/admin/seed                Load a demo dataset

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Calculator: Payment schedules, with an injectable reference date
  - Now: Clock for timestamps and payment events

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input (with per-field messages)
  - 401: No or unknown X-User-ID
  - 403: Acting outside one's role or ownership
  - 404: Resource not found
  - 409: Conflict (state, duplicate, concurrent modification)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Principal resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/warp/rental-engine/billing"
	"github.com/warp/rental-engine/rental"
	"github.com/warp/rental-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Calculator *billing.Calculator
	Now        func() time.Time

	validate *validator.Validate
	// beforePaymentWrite runs between reading a booking and writing its
	// payment. Tests use it to lose the version race.
	beforePaymentWrite func(ctx context.Context, bookingID string)
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, calc *billing.Calculator) *Handler {
	if calc == nil {
		calc = billing.NewCalculator()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Store:      store,
		Calculator: calc,
		Now:        time.Now,
		validate:   v,
	}
}

func (h *Handler) now() time.Time {
	return h.Now().UTC()
}

// =============================================================================
// REQUEST DECODING
// =============================================================================

// decode reads a JSON body into dst and runs its validate tags.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &rental.ValidationError{Fields: map[string][]string{"body": {"invalid JSON: " + err.Error()}}}
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			out := rental.NewValidationError()
			for _, fe := range verrs {
				out.Add(fe.Field(), describe(fe))
			}
			return out
		}
		return err
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "url":
		return "must be a valid URL"
	}
	return "failed " + fe.Tag() + " check"
}

// =============================================================================
// RESPONSES
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	var verr *rental.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// respondError maps a domain or store error to its HTTP status.
func respondError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %s: %v", r.Method, r.URL.Path, message, err)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, rental.ErrInvalidInput):
		return http.StatusBadRequest
	case rental.IsForbidden(err):
		return http.StatusForbidden
	case rental.IsNotFound(err):
		return http.StatusNotFound
	case rental.IsClientError(err), rental.IsRetryable(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
