package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentpilot/api/internal/config"
)

func TestBaseURL(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	assert.Contains(t, body, "timestamp")
}

func TestHealth(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/health", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, config.ProviderGemini, body["defaultProvider"])
	assert.Equal(t, float64(0), body["jobs"])

	providers, ok := body["providers"].(map[string]interface{})
	require.True(t, ok)
	for _, id := range config.ProviderIDs {
		entry, ok := providers[id].(map[string]interface{})
		require.True(t, ok, id)
		assert.Equal(t, false, entry["configured"])
		assert.Equal(t, "closed", entry["breaker"])
	}
}

func TestAPI_RequiresToken(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/jobs", jobBody, nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusUnauthorized)

	resp, err = doRequest(ta.app, http.MethodGet, "/api/jobs", "", map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestAPI_OpenWithoutSecret(t *testing.T) {
	ta := setupApp(t, func(c *config.Config) {
		c.JWT.Secret = ""
	})

	resp, err := doRequest(ta.app, http.MethodPost, "/api/jobs", jobBody, nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusAccepted)
}

func TestAuthVerify(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/auth/verify", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusUnauthorized)

	resp, err = doRequest(ta.app, http.MethodGet, "/auth/verify", "", map[string]string{
		"Authorization": "Bearer " + generateToken(t),
	})
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusOK)
	assert.Equal(t, "test-user-123", resp.Header.Get("X-User-Id"))
	assert.Equal(t, "site-1", resp.Header.Get("X-Site-Id"))
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/ws/jobs/some-job", "", nil)
	require.NoError(t, err)
	assertStatus(t, resp, http.StatusUpgradeRequired)
}
