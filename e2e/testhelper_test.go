package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/auth"
	"github.com/contentpilot/api/internal/config"
	"github.com/contentpilot/api/internal/server"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app *fiber.App
	srv *server.App
}

// testConfig mirrors the production defaults with every provider left
// unconfigured, so jobs complete quickly with fallback content and nothing
// touches Redis or the network.
func testConfig() *config.Config {
	providers := make(map[string]config.ProviderConfig, len(config.ProviderIDs))
	for _, id := range config.ProviderIDs {
		providers[id] = config.ProviderConfig{BaseURL: "http://127.0.0.1:1", Model: id + "-test"}
	}
	return &config.Config{
		Server: config.ServerConfig{Port: "0", Env: "test", LogLevel: "error"},
		JWT:    config.JWTConfig{Secret: testJWTSecret},
		RateLimit: config.RateLimitConfig{
			Backend:       server.RateLimitMemory,
			JobsPerMinute: 10000,
			ScorePerMin:   10000,
		},
		Generation: config.GenerationConfig{
			Provider:   config.ProviderGemini,
			Timeout:    time.Second,
			MaxRetries: 0,
		},
		Providers: providers,
		Pipeline: config.PipelineConfig{
			Dispatcher:     server.DispatcherGoroutine,
			IdempotencyTTL: time.Minute,
			SweepInterval:  time.Minute,
		},
		Scoring: config.ScoringConfig{
			MinQualityScore: 75,
			CacheTTL:        time.Minute,
		},
	}
}

// setupApp builds the same app main.go serves. mutate, when given, adjusts
// the config first.
func setupApp(t *testing.T, mutate ...func(*config.Config)) *testApp {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	srv, err := server.New(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(func() { _ = srv.Shutdown(time.Second) })

	return &testApp{app: srv.Fiber, srv: srv}
}

// generateToken creates an HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, "test-user-123", "site-1", time.Hour)
	require.NoError(t, err)
	return token
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	return doAuthRequestWithHeaders(t, app, method, path, body, nil)
}

func doAuthRequestWithHeaders(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()
	all := map[string]string{"Authorization": "Bearer " + generateToken(t)}
	for k, v := range headers {
		all[k] = v
	}
	resp, err := doRequest(app, method, path, body, all)
	require.NoError(t, err)
	return resp
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &result), "body: %s", body)
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode returns error.code from an error envelope
func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	envelope, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := envelope["code"].(string)
	return code
}

// startJob creates a job and returns its id
func startJob(t *testing.T, app *fiber.App, body string) string {
	t.Helper()
	resp := doAuthRequest(t, app, http.MethodPost, "/api/jobs", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	result := parseJSON(t, resp)
	jobID, _ := result["jobId"].(string)
	require.NotEmpty(t, jobID)
	return jobID
}

// waitForState polls the job until it reaches state or the deadline passes
func waitForState(t *testing.T, app *fiber.App, jobID, state string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		resp := doAuthRequest(t, app, http.MethodGet, "/api/jobs/"+jobID, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		job := parseJSON(t, resp)
		if job["state"] == state {
			return job
		}
		if time.Now().After(deadline) {
			t.Fatalf("job %s did not reach %s, last state %v", jobID, state, job["state"])
		}
		time.Sleep(20 * time.Millisecond)
	}
}
