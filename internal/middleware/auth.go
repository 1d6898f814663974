package middleware

import (
	"context"
	"net/http"

	"tablemate-dining-services/internal/auth"
	"tablemate-dining-services/pkg/response"
)

type contextKey string

const identityKey contextKey = "dinerIdentity"

// DinerAuth verifies the bearer identity token and injects the diner's
// profile into the request context.
func DinerAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ParseBearerToken(r.Header.Get("Authorization"))
			identity, err := auth.VerifyDinerToken(token, jwtSecret)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "A valid identity token is required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom returns the verified diner identity, or nil outside an
// authenticated request.
func IdentityFrom(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityKey).(*auth.Identity)
	return identity
}
