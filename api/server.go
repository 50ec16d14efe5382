/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. traceID:    Echo the trace (or request) ID as X-Trace-ID
  4. Logger:     Request logging
  5. Recoverer:  Panic recovery (500 instead of crash)
  6. CORS:       Cross-origin requests for the frontend
  7. Principal:  X-User-ID resolved to user and role, once per request

ROUTE GROUPS:
  /healthz              Liveness and database check
  /api/users/*          Registration and profile
  /api/properties/*     Listings, and booking/review/wishlist on a listing
  /api/bookings/*       Booking lifecycle and payment schedule
  /api/wishlist         Bookmarks
  /api/dashboard        Role-specific landing data
  /api/admin/*          Demo datasets (only with EnableAdmin)

SECURITY NOTE:
  X-User-ID is trusted as given. Deploy behind a gateway that sets it
  from a verified session.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Principal resolution, trace header
  - cmd/rental/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// AllowedOrigins for CORS. Empty means the local dev frontends.
	AllowedOrigins []string
	// EnableAdmin mounts /api/admin. Seeding wipes the database, so it is
	// off unless asked for.
	EnableAdmin bool
}

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(traceID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", UserHeader},
		ExposedHeaders:   []string{TraceHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(h.resolvePrincipal)

		// Public routes
		r.Post("/users", h.Register)
		r.Get("/properties", h.ListProperties)
		r.Get("/properties/{id}", h.GetProperty)

		// Signed-in routes
		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/users/me", h.GetMe)
			r.Put("/users/me/profile", h.UpdateProfile)

			r.Post("/properties", h.CreateProperty)
			r.Put("/properties/{id}", h.UpdateProperty)
			r.Delete("/properties/{id}", h.DeleteProperty)
			r.Post("/properties/{id}/bookings", h.CreateBooking)
			r.Post("/properties/{id}/reviews", h.CreateReview)
			r.Post("/properties/{id}/wishlist", h.ToggleWishlist)

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.ListBookings)
				r.Get("/{id}", h.GetBooking)
				r.Delete("/{id}", h.CancelBooking)
				r.Post("/{id}/extend", h.ExtendBooking)
				r.Post("/{id}/approve", h.ApproveBooking)
				r.Post("/{id}/decline", h.DeclineBooking)
				r.Post("/{id}/payments", h.RecordPayment)
			})

			r.Get("/wishlist", h.ListWishlist)
			r.Get("/dashboard", h.Dashboard)
		})

		// Admin routes
		if opts.EnableAdmin {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/scenarios", h.ListScenarios)
				r.Post("/seed", h.LoadScenario)
			})
		}
	})

	return r
}

// Health reports whether the database answers.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
