package middleware

import (
	"context"
	"net/http"

	"github.com/crewsight/crewsight/internal/http/response"
	"github.com/crewsight/crewsight/internal/service"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Identity resolves the caller from either credential form and stores the
// result in the request context. Requests that fail resolution never reach
// the handler.
func Identity(resolver *service.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			outcome := resolver.Resolve(r)
			if !outcome.Authenticated() {
				response.Error(w, r, outcome.Failure.Status, outcome.Failure.Message)
				return
			}
			ctx := context.WithValue(r.Context(), identityContextKey, *outcome.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFromContext(ctx context.Context) (service.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(service.Identity)
	return id, ok
}

// RequireAdmin gates a route on the admin capability. It sits behind
// Identity; a request without an identity in context is a wiring bug and
// reads as unauthorized.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			response.Error(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if err := service.NewScope(identity).RequireAdmin(); err != nil {
			response.FromError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
