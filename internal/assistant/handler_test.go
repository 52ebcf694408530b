package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulse-platform/assistant/internal/auth"
	"github.com/pulse-platform/assistant/internal/classifier"
)

func setupHandler(t *testing.T) (*Handler, *harness) {
	t.Helper()
	h := setupService(t, testAssistantConfig())
	handler := NewHandler(h.svc, nil, h.provider, classifier.DefaultTaxonomy(), h.cfg.DefaultCategory)
	return handler, h
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	claims := &auth.AccessClaims{UserID: "user-1", Username: "dana"}
	return req.WithContext(context.WithValue(req.Context(), auth.UserClaimsKey, claims))
}

func TestHandler_Ask(t *testing.T) {
	handler, h := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Ask(rr, authedRequest(http.MethodPost, "/api/v1/assistant/ask", `{"message":"what's new?"}`))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, h.provider.calls)

	var env struct {
		Data AskResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "here is your answer", env.Data.Answer)
	assert.Equal(t, 1, env.Data.Quota.Chat.Used)
}

func TestHandler_Ask_Anonymous(t *testing.T) {
	handler, h := setupHandler(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/ask", strings.NewReader(`{"message":"hi"}`))
	handler.Ask(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Zero(t, h.provider.calls)
}

func TestHandler_Ask_EmptyMessage(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Ask(rr, authedRequest(http.MethodPost, "/api/v1/assistant/ask", `{"message":""}`))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Ask_QuotaDenied(t *testing.T) {
	cfg := testAssistantConfig()
	cfg.ChatLimit = 1
	h := setupService(t, cfg)
	handler := NewHandler(h.svc, nil, h.provider, classifier.DefaultTaxonomy(), cfg.DefaultCategory)

	rr := httptest.NewRecorder()
	handler.Ask(rr, authedRequest(http.MethodPost, "/ask", `{"message":"first"}`))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.Ask(rr, authedRequest(http.MethodPost, "/ask", `{"message":"second"}`))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	var env struct {
		Data DeniedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "chat", string(env.Data.Pool))
	assert.Equal(t, 0, env.Data.View.Remaining)
	assert.False(t, env.Data.View.ResetAt.IsZero(), "denial carries the reset time")
}

func TestHandler_Expand(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Expand(rr, authedRequest(http.MethodPost, "/expand", `{"original_query":"what's new?","kind":"database"}`))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.Expand(rr, authedRequest(http.MethodPost, "/expand", `{"original_query":"what's new?","kind":"database"}`))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandler_Expand_BadKind(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Expand(rr, authedRequest(http.MethodPost, "/expand", `{"original_query":"q","kind":"sideways"}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Status_Anonymous(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Status(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, 5, env.Data.Quota.Chat.Remaining)
}

func TestHandler_ClearCache_Forbidden(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.ClearCache(rr, authedRequest(http.MethodDelete, "/cache", ""))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandler_ClearCache_Admin(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Ask(rr, authedRequest(http.MethodPost, "/ask", `{"message":"warm the cache"}`))
	require.Equal(t, http.StatusOK, rr.Code)

	req := httptest.NewRequest(http.MethodDelete, "/cache", nil)
	claims := &auth.AccessClaims{UserID: "admin-1", Username: "root"}
	req = req.WithContext(context.WithValue(req.Context(), auth.UserClaimsKey, claims))

	rr = httptest.NewRecorder()
	handler.ClearCache(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Data ClearCacheResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, 1, env.Data.ClearedCount)
}

func TestHandler_Classify(t *testing.T) {
	handler, h := setupHandler(t)
	h.provider.reply = "Gaming"

	rr := httptest.NewRecorder()
	handler.Classify(rr, authedRequest(http.MethodPost, "/classify", `{"title":"Best Budget Gaming PCs in 2024"}`))

	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Data ClassifyResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "Gaming", env.Data.Category)
	assert.Equal(t, "Gaming", env.Data.RawProviderOutput)
}

func TestHandler_Classify_SubsetRestrictsMatching(t *testing.T) {
	handler, h := setupHandler(t)
	h.provider.reply = "Gaming"

	rr := httptest.NewRecorder()
	handler.Classify(rr, authedRequest(http.MethodPost, "/classify",
		`{"title":"t","categories":["Science","Business"]}`))

	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Data ClassifyResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, "Trending", env.Data.Category, "a reply outside the subset falls back")
}

func TestHandler_Classify_UnknownCategory(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Classify(rr, authedRequest(http.MethodPost, "/classify", `{"title":"t","categories":["Nope"]}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Classify_MissingTitle(t *testing.T) {
	handler, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	handler.Classify(rr, authedRequest(http.MethodPost, "/classify", `{"title":""}`))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
