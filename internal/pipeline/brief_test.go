package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentpilot/api/internal/model"
)

func TestDeriveTopic(t *testing.T) {
	cases := []struct {
		name string
		req  model.JobRequest
		want string
	}{
		{"post title wins", model.JobRequest{URL: "https://example.com/a-b", PostTitle: "  My Title "}, "My Title"},
		{"slug", model.JobRequest{URL: "https://example.com/blog/best-hiking-boots/"}, "Best Hiking Boots"},
		{"extension stripped", model.JobRequest{URL: "https://example.com/guides/sourdough_starter.html"}, "Sourdough Starter"},
		{"bare host", model.JobRequest{URL: "https://example.com/"}, "example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveTopic(tc.req))
		})
	}
}

func TestBuildBrief(t *testing.T) {
	b := BuildBrief("Best Hiking Boots", model.JobRequest{URL: "https://example.com/x"})

	assert.Equal(t, model.JobModeGenerate, b.Mode)
	assert.Len(t, b.PAAQuestions, 5)
	assert.Equal(t, "What is best hiking boots?", b.PAAQuestions[0])
	assert.Equal(t, []string{"best hiking boots", "hiking", "boots"}, b.TargetEntities)
}

func TestEnrich(t *testing.T) {
	b := BuildBrief("Composting", model.JobRequest{})
	r := &model.ContentResult{
		Content: "<p>Intro.</p><h2>Getting Started</h2><p>Body.</p><h2>Frequently Asked Questions</h2><h3>What is composting?</h3><p>Rot.</p>",
		Excerpt: "Intro.",
		Sections: []model.Section{
			{Type: model.SectionIntro, Content: "<p>Intro.</p>"},
			{Type: model.SectionBody, Heading: "Getting Started", Content: "<p>Body.</p>"},
		},
	}

	added := Enrich(r, b)

	assert.Equal(t, []string{"tldr", "key-takeaways", "faq"}, added)
	assert.True(t, strings.HasPrefix(r.Content, `<div class="tldr">`))
	assert.Contains(t, r.Content, "<li>Getting Started</li>")
	assert.Equal(t, 1, strings.Count(r.Content, "Frequently Asked Questions"), "existing FAQ heading is reused")
	assert.Equal(t, 1, strings.Count(strings.ToLower(r.Content), "what is composting?"), "answered questions are not repeated")
	assert.Contains(t, r.Content, "How does composting work?")

	// a second pass has nothing left to add
	assert.Empty(t, Enrich(r, b))
}

func TestRenderDocument(t *testing.T) {
	doc, err := RenderDocument(&model.ContentResult{
		Title:           `Tips & "Tricks"`,
		MetaDescription: "desc",
		Author:          "ContentPilot",
		Content:         "<p>Body</p>",
		WordCount:       1,
	})
	require.NoError(t, err)

	assert.Contains(t, doc, "<title>Tips &amp; &#34;Tricks&#34;</title>")
	assert.Contains(t, doc, "<p>Body</p>")
}
