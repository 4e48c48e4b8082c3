package e2e

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentScore(t *testing.T) {
	ta := setupApp(t)

	body := `{
		"content": "<h2>What is cold brew?</h2><p>Cold brew coffee is steeped in cold water for many hours.</p>",
		"paaQuestions": ["What is cold brew?"],
		"targetEntities": ["cold brew", "espresso"]
	}`
	resp := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/score", body)
	assertStatus(t, resp, http.StatusOK)

	report := parseJSON(t, resp)
	for _, field := range []string{"readability", "completeness", "entityCoverage", "uniqueness", "engagement", "overall", "wordCount"} {
		assert.Contains(t, report, field)
	}
	assert.Equal(t, float64(100), report["completeness"])
	assert.Equal(t, float64(50), report["entityCoverage"])
	assert.NotNil(t, report["recommendations"])
}

func TestContentScore_InvalidBody(t *testing.T) {
	ta := setupApp(t)

	resp := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/score", `{"content": ""}`)
	assertStatus(t, resp, http.StatusBadRequest)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, parseJSON(t, resp)))
}

func TestContentPublishCheck(t *testing.T) {
	ta := setupApp(t)

	body := `{
		"record": {
			"title": "A Complete Guide to Cold Brew",
			"wordCount": 2400,
			"qualityScore": 88,
			"seoScore": 80,
			"readabilityScore": 72,
			"metaDescription": "Everything you need to know about brewing cold brew coffee at home, from grind size to steep time and storage tips.",
			"headings": ["Grind size", "Steep time", "Storage"],
			"excerpt": "Cold brew is smooth and easy to make."
		}
	}`
	resp := doAuthRequest(t, ta.app, http.MethodPost, "/api/content/publish-check", body)
	assertStatus(t, resp, http.StatusOK)

	report := parseJSON(t, resp)
	assert.Equal(t, true, report["canPublish"])
	assert.Equal(t, float64(75), report["minQualityScore"])

	resp = doAuthRequest(t, ta.app, http.MethodPost, "/api/content/publish-check", `{"record": {"title": "x"}, "minQualityScore": 150}`)
	assertStatus(t, resp, http.StatusBadRequest)
}
