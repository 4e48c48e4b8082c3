package generation

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/contentpilot/api/internal/htmltext"
	"github.com/contentpilot/api/internal/model"
	"github.com/contentpilot/api/internal/scoring"
)

const (
	// Author is stamped on every generated result
	Author = "ContentPilot"

	excerptLength = 160
)

var h2Pattern = regexp.MustCompile(`(?is)<h2[^>]*>(.*?)</h2>`)

// Normalize converts a vendor article into the canonical ContentResult
func Normalize(a article, provider string, now time.Time) model.ContentResult {
	text := htmltext.Text(a.Content)
	words := htmltext.WordCount(text)

	headings := make([]string, 0)
	for _, h := range htmltext.Headings(a.Content, 3) {
		headings = append(headings, h.Text)
	}

	title := a.Title
	if title == "" {
		if h1 := htmltext.Headings(a.Content, 1); len(h1) > 0 {
			title = h1[0].Text
		}
	}

	excerpt := Excerpt(text)
	meta := a.MetaDescription
	if meta == "" {
		meta = excerpt
	}

	readability := scoring.Readability(text)
	lists := htmltext.Count(a.Content, "ul") + htmltext.Count(a.Content, "ol")

	return model.ContentResult{
		Title:            title,
		Content:          a.Content,
		WordCount:        words,
		QualityScore:     quickQuality(words, len(headings), lists, readability),
		SEOScore:         quickSEO(title, meta, len(headings), words),
		ReadabilityScore: readability,
		MetaDescription:  meta,
		Headings:         headings,
		Sections:         SplitSections(a.Content),
		Excerpt:          excerpt,
		Author:           Author,
		PublishedAt:      now.UTC(),
		Provider:         provider,
	}
}

// SplitSections splits HTML at h2 boundaries. Text before the first h2 is the intro.
func SplitSections(content string) []model.Section {
	sections := make([]model.Section, 0)
	matches := h2Pattern.FindAllStringSubmatchIndex(content, -1)

	preamble := content
	if len(matches) > 0 {
		preamble = content[:matches[0][0]]
	}
	if strings.TrimSpace(htmltext.Text(preamble)) != "" {
		sections = append(sections, model.Section{
			Type:    model.SectionIntro,
			Content: strings.TrimSpace(preamble),
		})
	}

	for i, m := range matches {
		heading := htmltext.Text(content[m[2]:m[3]])
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		sections = append(sections, model.Section{
			Type:    sectionType(heading),
			Heading: heading,
			Content: strings.TrimSpace(content[m[1]:end]),
		})
	}
	return sections
}

func sectionType(heading string) model.SectionType {
	h := strings.ToLower(heading)
	switch {
	case strings.Contains(h, "faq"), strings.Contains(h, "frequently asked"), strings.Contains(h, "questions"):
		return model.SectionFAQ
	case strings.Contains(h, "conclusion"), strings.Contains(h, "final thoughts"),
		strings.Contains(h, "wrapping up"), strings.Contains(h, "summary"):
		return model.SectionConclusion
	case strings.Contains(h, "introduction"), strings.Contains(h, "overview"):
		return model.SectionIntro
	default:
		return model.SectionBody
	}
}

// Excerpt returns at most 160 characters of text, cut at a word boundary
func Excerpt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:excerptLength-3])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

// quickQuality is a structural estimate, not a full quality pass
func quickQuality(words, headings, lists, readability int) int {
	score := 40
	score += min(headings*4, 20)
	if lists > 0 {
		score += 10
	}
	switch {
	case words >= 1500:
		score += 20
	case words >= 800:
		score += 10
	case words >= 300:
		score += 5
	}
	if readability >= 60 {
		score += 10
	}
	return min(score, 100)
}

func quickSEO(title, meta string, headings, words int) int {
	score := 40
	if n := utf8.RuneCountInString(title); n >= 20 && n <= 70 {
		score += 20
	}
	if n := utf8.RuneCountInString(meta); n >= 50 && n <= 160 {
		score += 20
	}
	if headings >= 3 {
		score += 10
	}
	if words >= 1000 {
		score += 10
	}
	return score
}

// Reindex recomputes the text-derived fields of r after its content changed
func Reindex(r *model.ContentResult) {
	r.WordCount = htmltext.WordCount(htmltext.Text(r.Content))
	headings := make([]string, 0)
	for _, h := range htmltext.Headings(r.Content, 3) {
		headings = append(headings, h.Text)
	}
	r.Headings = headings
	r.Sections = SplitSections(r.Content)
}
