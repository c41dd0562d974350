package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// IdentityClaims is what the external identity provider signs into its
// tokens. Subject carries the stable external identity key.
type IdentityClaims struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	jwt.RegisteredClaims
}

// CallerResolver maps token claims to an internal user id. Implemented by
// the user service; the interface keeps this package decoupled from it.
type CallerResolver interface {
	ResolveExternal(ctx context.Context, externalKey, name, email, avatarURL string) (string, error)
}

type AuthMiddleware struct {
	secret   string
	resolver CallerResolver
}

func NewAuthMiddleware(secret string, resolver CallerResolver) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, resolver: resolver}
}

func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 {
				tokenString = parts[1]
			}
		}

		// Fallback for websocket clients that cannot set headers
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			http.Error(w, "missing authentication token", http.StatusUnauthorized)
			return
		}

		claims := &IdentityClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(am.secret), nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := am.resolver.ResolveExternal(r.Context(), claims.Subject, claims.Name, claims.Email, claims.AvatarURL)
		if err != nil {
			http.Error(w, "could not resolve caller identity", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallerID pulls the resolved caller from the request context. The empty
// string means the request never passed the auth middleware.
func CallerID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}
