package middleware

import (
	"context"
	"net/http"
	"strings"

	"piggybank/internal/auth"
	"piggybank/internal/log"
	"piggybank/internal/models"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
)

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok
}

func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}

// WithUser stores the authenticated user's id and role in ctx.
func WithUser(ctx context.Context, user models.User) context.Context {
	ctx = context.WithValue(ctx, userIDKey, user.ID)
	return context.WithValue(ctx, roleKey, user.Role)
}

type SessionSource interface {
	Load(r *http.Request) auth.Session
	SessionFromToken(token string) (auth.Session, error)
}

type SessionVerifier interface {
	Verify(ctx context.Context, sess auth.Session) (models.User, bool)
}

// Auth admits requests carrying a valid session. The session cookie is
// preferred; an "Authorization: Bearer" token is accepted for clients that
// cannot keep cookies.
func Auth(sessions SessionSource, verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := sessions.Load(r)
			if sess.Empty() {
				token, ok := bearerToken(r)
				if !ok {
					http.Error(w, "not logged in", http.StatusUnauthorized)
					return
				}
				var err error
				sess, err = sessions.SessionFromToken(token)
				if err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
			}
			user, ok := verifier.Verify(r.Context(), sess)
			if !ok {
				http.Error(w, "not logged in", http.StatusUnauthorized)
				return
			}
			ctx := WithUser(r.Context(), user)
			ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
