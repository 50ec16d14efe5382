package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/warp/rental-engine/rental"
	"go.opentelemetry.io/otel/trace"
)

// UserHeader carries the acting user's ID. Session handling lives in front
// of this service.
const UserHeader = "X-User-ID"

// TraceHeader echoes the request's trace ID.
const TraceHeader = "X-Trace-ID"

var errUnauthenticated = errors.New("authentication required")

type principalKey struct{}

// =============================================================================
// TRACING
// =============================================================================

// traceID tags the response with the span's trace ID when a tracer set
// one, and with chi's request ID otherwise.
func traceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			id = uuid.UUID(sc.TraceID()).String()
		}
		if id != "" {
			w.Header().Set(TraceHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// PRINCIPAL
// =============================================================================

// resolvePrincipal loads the user named by X-User-ID once per request and
// stores its role in the context. Requests without the header continue
// anonymously; an unknown user is rejected.
func (h *Handler) resolvePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(UserHeader)
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := h.Store.GetUser(r.Context(), userID)
		if rental.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "Unknown user", errUnauthenticated)
			return
		}
		if err != nil {
			respondError(w, r, "Failed to load user", err)
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, user.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser rejects anonymous requests.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Login required", errUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFrom returns the acting user of a request, if any.
func PrincipalFrom(ctx context.Context) (rental.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(rental.Principal)
	return p, ok && !p.IsZero()
}

// principal is PrincipalFrom for handlers behind requireUser.
func principal(r *http.Request) rental.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
