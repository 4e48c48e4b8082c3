package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrMalformedResponse is returned when a vendor answer has no usable article
var ErrMalformedResponse = errors.New("malformed generation response")

const systemPrompt = `You are a senior SEO content writer.
Write long-form, well structured articles in clean semantic HTML (h2/h3 headings, paragraphs, lists).
Always output your response as valid JSON in the exact format requested.
Do not include any text outside the JSON structure.`

// article is the JSON shape every vendor is asked to return
type article struct {
	Title           string `json:"title"`
	MetaDescription string `json:"metaDescription"`
	Content         string `json:"content"`
}

func buildPrompt(topic string) string {
	return fmt.Sprintf(`Write a comprehensive article about: %s

Requirements:
- At least 1500 words of body content in HTML, without <html>, <head> or <body> tags.
- Open with an introduction paragraph, then at least four <h2> sections.
- Include a "Frequently Asked Questions" <h2> section and finish with a "Conclusion" <h2> section.
- Use <ul> or <ol> lists where they help the reader.
- A meta description of 120-155 characters.

Output as JSON: {"title": "...", "metaDescription": "...", "content": "<p>...</p>"}`, topic)
}

// parseArticle extracts the article JSON from a completion that may contain extra text
func parseArticle(raw string) (article, error) {
	var a article
	if err := json.Unmarshal([]byte(extractJSON(raw)), &a); err != nil {
		return a, errors.Wrap(ErrMalformedResponse, err.Error())
	}
	if strings.TrimSpace(a.Content) == "" {
		return a, errors.Wrap(ErrMalformedResponse, "no content in response")
	}
	a.Title = strings.TrimSpace(a.Title)
	a.MetaDescription = strings.TrimSpace(a.MetaDescription)
	return a, nil
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")

	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}
