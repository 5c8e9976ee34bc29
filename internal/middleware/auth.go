package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserIDKey      contextKey = "userID"
	UserRoleKey    contextKey = "userRole"
	TokenClaimsKey contextKey = "jwtClaims"
)

var jwtKey = []byte(os.Getenv("SECRET_KEY"))

// AuthMiddleware extracts the authenticated principal from a bearer token if
// present. Requests without (or with invalid) tokens pass through anonymous;
// cart endpoints then fall back to session identity.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
			return jwtKey, nil
		})

		if err != nil || !token.Valid {
			next.ServeHTTP(w, r)
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			ctx := context.WithValue(r.Context(), TokenClaimsKey, claims)
			if uid, ok := claims["user_id"].(float64); ok {
				ctx = context.WithValue(ctx, UserIDKey, int64(uid))
			}
			if role, ok := claims["role"].(string); ok {
				ctx = context.WithValue(ctx, UserRoleKey, role)
			}
			r = r.WithContext(ctx)
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserIDFromContext retrieves the authenticated user id, if any.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

func GetUserRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

func IsAdmin(ctx context.Context) bool {
	return GetUserRoleFromContext(ctx) == "admin"
}

// WithUser is used by tests and internal callers to inject a principal.
func WithUser(ctx context.Context, userID int64, role string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UserRoleKey, role)
}
