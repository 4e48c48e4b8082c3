package model

import "time"

// Section types recognised in generated articles
type SectionType string

const (
	SectionIntro      SectionType = "intro"
	SectionBody       SectionType = "body"
	SectionFAQ        SectionType = "faq"
	SectionConclusion SectionType = "conclusion"
)

// ContentResult is the canonical output of a generation, whichever provider produced it
type ContentResult struct {
	Title            string    `json:"title"`
	Content          string    `json:"content"` // HTML
	WordCount        int       `json:"wordCount"`
	QualityScore     int       `json:"qualityScore"`
	SEOScore         int       `json:"seoScore"`
	ReadabilityScore int       `json:"readabilityScore"`
	MetaDescription  string    `json:"metaDescription"`
	Headings         []string  `json:"headings"`
	Sections         []Section `json:"sections"`
	Excerpt          string    `json:"excerpt"`
	Author           string    `json:"author"`
	PublishedAt      time.Time `json:"publishedAt"`
	Provider         string    `json:"provider"`
	Fallback         bool      `json:"fallback"`
}

// Section is one typed block of an article, split at h2 boundaries
type Section struct {
	Type    SectionType `json:"type"`
	Heading string      `json:"heading,omitempty"`
	Content string      `json:"content"`
}

// Clone returns a deep copy of r
func (r *ContentResult) Clone() *ContentResult {
	if r == nil {
		return nil
	}
	c := *r
	c.Headings = append([]string(nil), r.Headings...)
	c.Sections = append([]Section(nil), r.Sections...)
	return &c
}
