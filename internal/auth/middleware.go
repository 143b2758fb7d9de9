package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"interview/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// CurrentUser returns the authenticated user placed on the context by
// RequireUser, or nil.
func CurrentUser(ctx context.Context) *models.User {
	if user, ok := ctx.Value(userContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// WithUser is used by tests to inject an actor without a token round-trip.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// RequireUser authenticates the request's bearer token and stores the actor
// on the request context.
func (t *Tokens) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr, err := ExtractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeUnauthorized(w, "missing authentication token")
			return
		}
		user, err := t.ParseUserToken(tokenStr)
		if err != nil {
			log.Warn().Err(err).Msg("auth: invalid token attempt")
			writeUnauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"unauthorized"}`))
}
