package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/pulse-platform/assistant/internal/api"
)

type contextKey string

const UserClaimsKey contextKey = "user_claims"

// Middleware rejects requests without a valid bearer token.
func Middleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(jwtMgr, r)
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}
			if claims == nil {
				api.HandleError(w, api.ErrUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalMiddleware resolves a bearer token when one is present but lets
// anonymous requests through. Handlers that need an identity check for nil
// claims themselves (the quota governor denies anonymous callers anyway).
func OptionalMiddleware(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := claimsFromRequest(jwtMgr, r)
			if err != nil {
				api.HandleError(w, api.ErrInvalidToken)
				return
			}
			if claims != nil {
				r = r.WithContext(context.WithValue(r.Context(), UserClaimsKey, claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// claimsFromRequest returns (nil, nil) when no Authorization header is set,
// and an error when one is set but malformed or invalid.
func claimsFromRequest(jwtMgr *JWTManager, r *http.Request) (*AccessClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil, api.ErrInvalidToken
	}

	return jwtMgr.ValidateAccessToken(parts[1])
}

func GetUserClaims(ctx context.Context) *AccessClaims {
	claims, _ := ctx.Value(UserClaimsKey).(*AccessClaims)
	return claims
}
