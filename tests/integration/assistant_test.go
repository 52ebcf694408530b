//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk_EndToEnd(t *testing.T) {
	env := SetupTestEnv(t)
	token := TokenFor(t, env, "e2e-user", "e2e")

	_, err := env.Pool.Exec(context.Background(),
		`INSERT INTO users (id, username, bio) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		"e2e-user", "e2e", "integration tester")
	require.NoError(t, err)

	resp := DoRequest(t, env, "POST", "/api/v1/assistant/ask",
		map[string]any{"message": "what is happening on the platform?"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	assert.Equal(t, "stub answer", data["answer"])
	assert.Equal(t, false, data["cached"])

	quota := data["quota"].(map[string]any)
	chat := quota["chat"].(map[string]any)
	assert.Equal(t, float64(1), chat["used"])
}

func TestAsk_CacheHitAcrossRequests(t *testing.T) {
	env := SetupTestEnv(t)
	token := TokenFor(t, env, "cache-user", "cacher")

	before := env.ProviderCalls.Load()

	resp := DoRequest(t, env, "POST", "/api/v1/assistant/ask",
		map[string]any{"message": "a perfectly repeatable question"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ParseResponse(t, resp)

	resp = DoRequest(t, env, "POST", "/api/v1/assistant/ask",
		map[string]any{"message": "a perfectly repeatable question"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	assert.Equal(t, true, data["cached"])
	assert.Equal(t, before+1, env.ProviderCalls.Load(), "one provider call for two identical asks")
}

func TestAsk_Anonymous(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "POST", "/api/v1/assistant/ask",
		map[string]any{"message": "hello"}, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatus_Anonymous(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/api/v1/assistant/status", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	quota := data["quota"].(map[string]any)
	chat := quota["chat"].(map[string]any)
	assert.Equal(t, float64(env.Config.ChatLimit), chat["remaining"])
}

func TestQuota_ExhaustionReturns429(t *testing.T) {
	env := SetupTestEnv(t)
	token := TokenFor(t, env, "greedy-user", "greedy")

	var lastStatus int
	for i := 0; i < env.Config.ChatLimit+1; i++ {
		resp := DoRequest(t, env, "POST", "/api/v1/assistant/ask",
			map[string]any{"message": "question number", "session_id": "greedy"}, token)
		lastStatus = resp.StatusCode
		if resp.StatusCode == http.StatusOK {
			ParseResponse(t, resp)
			continue
		}
		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "chat", data["pool"])
	}
	assert.Equal(t, http.StatusTooManyRequests, lastStatus)
}

func TestClearCache_AccessControl(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "DELETE", "/api/v1/assistant/cache", nil,
		TokenFor(t, env, "plain-user", "plain"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = DoRequest(t, env, "DELETE", "/api/v1/assistant/cache", nil,
		TokenFor(t, env, "admin-user", "admin"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ParseResponse(t, resp)
}

func TestClassify_EndToEnd(t *testing.T) {
	env := SetupTestEnv(t)
	token := TokenFor(t, env, "ingest-svc", "ingest")

	// The stub always replies "stub answer", which matches no category.
	resp := DoRequest(t, env, "POST", "/api/v1/classify",
		map[string]any{"title": "A post about something"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	assert.Equal(t, "Trending", data["category"])
}
