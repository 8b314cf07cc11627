package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/devfolio/backend/internal/errors"
)

type contextKey string

const userContextKey contextKey = "user"

// UserContext is the identity attached to an authenticated request.
type UserContext struct {
	UserID int64
	Email  string
	Role   string
}

// Middleware authenticates the request from its Authorization header. A
// missing or malformed header rejects with authentication-required; a present
// but unverifiable token rejects with invalid-token. On success the identity
// is attached to the request context. The gate never touches persistence.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := apperrors.GetRequestID(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apperrors.WriteError(w, requestID, apperrors.Unauthorized("access denied, no token provided"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				apperrors.WriteError(w, requestID, apperrors.Unauthorized("access denied, no token provided"))
				return
			}

			claims, err := tokens.VerifyAccessToken(parts[1])
			if err != nil {
				apperrors.WriteError(w, requestID, apperrors.InvalidToken())
				return
			}

			userCtx := &UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   claims.Role,
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userCtx)))
		})
	}
}

// RequireAdmin composes the base gate with a role check. Authentication
// failures keep their 401 semantics; a valid identity without the admin role
// is a distinct 403.
func RequireAdmin(tokens *TokenService) func(http.Handler) http.Handler {
	authenticate := Middleware(tokens)
	return func(next http.Handler) http.Handler {
		return authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUserFromContext(r.Context())
			if user == nil || user.Role != "admin" {
				apperrors.WriteError(w, apperrors.GetRequestID(r.Context()),
					apperrors.Forbidden("admin privileges required"))
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

// WithUser attaches an identity to ctx, as the gate does after verification.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext returns the authenticated identity, or nil when the
// request did not pass the gate.
func GetUserFromContext(ctx context.Context) *UserContext {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok {
		return nil
	}
	return user
}
