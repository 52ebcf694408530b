package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureClaims(claims **AccessClaims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*claims = GetUserClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_ValidToken(t *testing.T) {
	mgr := NewJWTManager(testSecret)
	token, err := mgr.IssueToken("user-1", "dana", time.Hour)
	require.NoError(t, err)

	var claims *AccessClaims
	handler := Middleware(mgr)(captureClaims(&claims))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestMiddleware_MissingToken(t *testing.T) {
	mgr := NewJWTManager(testSecret)
	handler := Middleware(mgr)(captureClaims(new(*AccessClaims)))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_InvalidToken(t *testing.T) {
	mgr := NewJWTManager(testSecret)
	handler := Middleware(mgr)(captureClaims(new(*AccessClaims)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestOptionalMiddleware_Anonymous(t *testing.T) {
	mgr := NewJWTManager(testSecret)

	var claims *AccessClaims
	handler := OptionalMiddleware(mgr)(captureClaims(&claims))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rr.Code, "anonymous requests pass through")
	assert.Nil(t, claims)
}

func TestOptionalMiddleware_ValidToken(t *testing.T) {
	mgr := NewJWTManager(testSecret)
	token, err := mgr.IssueToken("user-1", "dana", time.Hour)
	require.NoError(t, err)

	var claims *AccessClaims
	handler := OptionalMiddleware(mgr)(captureClaims(&claims))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "dana", claims.Username)
}

func TestOptionalMiddleware_InvalidTokenStillRejected(t *testing.T) {
	mgr := NewJWTManager(testSecret)
	handler := OptionalMiddleware(mgr)(captureClaims(new(*AccessClaims)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code, "a bad token is an error, not anonymity")
}
