package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/taskdeck/taskdeck-go/internal/repository"
	"github.com/taskdeck/taskdeck-go/internal/token"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	userEmailKey contextKey = "userEmail"
)

// BearerAuth returns middleware that validates a Bearer token from the
// Authorization header and resolves it to a stored user.
//
// The token's subject email is looked up in the credential store on every
// request: a structurally valid token whose user no longer exists is rejected,
// which invalidates stale tokens for deleted accounts.
func BearerAuth(tokens *token.Service, users *repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			raw, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || raw == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			subject, err := tokens.ExtractSubject(raw)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user, err := users.GetByEmail(r.Context(), subject)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					writeJSONError(w, http.StatusUnauthorized, "user not found")
					return
				}
				writeJSONError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !tokens.Validate(raw, user.Email) {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), user.ID, user.Email)))
		})
	}
}

// WithIdentity returns a context carrying a resolved user identity.
func WithIdentity(ctx context.Context, userID int64, email string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, userEmailKey, email)
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// UserEmailFromContext extracts the authenticated user's email from the request context.
func UserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userEmailKey).(string)
	return email, ok
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
