package generation

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/contentpilot/api/internal/model"
)

const (
	// ProviderFallback is the id of the local template adapter
	ProviderFallback = "fallback"

	// FallbackQualityScore marks template content as below publish quality
	FallbackQualityScore = 45
)

// FallbackAdapter synthesizes a templated guide locally. It never errors.
type FallbackAdapter struct {
	now func() time.Time
}

// NewFallbackAdapter creates the local template adapter
func NewFallbackAdapter() *FallbackAdapter {
	return &FallbackAdapter{now: time.Now}
}

func (f *FallbackAdapter) Provider() string { return ProviderFallback }

// Generate renders the fallback guide for topic
func (f *FallbackAdapter) Generate(_ context.Context, _ ProviderConfig, topic string) (model.ContentResult, error) {
	return f.content(topic), nil
}

func (f *FallbackAdapter) content(topic string) model.ContentResult {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = "Your Topic"
	}
	t := html.EscapeString(topic)

	var b strings.Builder
	fmt.Fprintf(&b, "<p>This is a starter guide about %s. It was generated locally because no AI provider produced content for this job. ", t)
	b.WriteString("Use it as a structural outline, then configure a provider to get a full article.</p>\n")

	fmt.Fprintf(&b, "<h2>What You Need to Know About %s</h2>\n", t)
	fmt.Fprintf(&b, "<p>%s is a subject readers search for when they want clear, practical answers. ", t)
	b.WriteString("A strong article explains the basics first, then moves on to concrete steps, common mistakes and examples from real projects.</p>\n")

	b.WriteString("<h2>How to Configure an AI Provider</h2>\n<ol>\n")
	b.WriteString("<li>Pick a provider: gemini, openai, anthropic, groq or openrouter.</li>\n")
	b.WriteString("<li>Set its API key, for example GEMINI_API_KEY or OPENAI_API_KEY, in the service environment.</li>\n")
	b.WriteString("<li>Optionally set GENERATION_PROVIDER to make it the default, or pass provider and model when creating a job.</li>\n")
	b.WriteString("<li>Create the job again. The pipeline will draft the article with the configured model.</li>\n</ol>\n")

	fmt.Fprintf(&b, "<h2>Key Points to Cover for %s</h2>\n<ul>\n", t)
	b.WriteString("<li>Define the core terms in plain language.</li>\n")
	b.WriteString("<li>Walk through a step-by-step process the reader can follow.</li>\n")
	b.WriteString("<li>Include at least one worked example.</li>\n")
	b.WriteString("<li>List the common mistakes and how to avoid them.</li>\n</ul>\n")

	b.WriteString("<h2>Frequently Asked Questions</h2>\n")
	fmt.Fprintf(&b, "<h3>Why is this article a template?</h3>\n<p>No API key was available or the provider request failed, so the service produced this outline about %s instead of failing the job.</p>\n", t)
	b.WriteString("<h3>Can this content be published?</h3>\n<p>Not as is. Its quality score is deliberately low so publish checks will block it.</p>\n")

	b.WriteString("<h2>Conclusion</h2>\n")
	fmt.Fprintf(&b, "<p>Configure a provider and rerun the job to replace this outline with a complete article about %s.</p>\n", t)

	result := Normalize(article{
		Title:           fmt.Sprintf("%s: A Starter Guide", topic),
		MetaDescription: fmt.Sprintf("A starter outline about %s. Configure an AI provider to generate the full article.", topic),
		Content:         b.String(),
	}, ProviderFallback, f.now())
	result.QualityScore = FallbackQualityScore
	result.Fallback = true
	return result
}
