package pipeline

import (
	"fmt"
	"html"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/contentpilot/api/internal/model"
)

// Brief is the content brief built in the briefing stage
type Brief struct {
	Topic          string        `json:"topic"`
	URL            string        `json:"url"`
	Mode           model.JobMode `json:"mode"`
	PAAQuestions   []string      `json:"paaQuestions"`
	TargetEntities []string      `json:"targetEntities"`
}

// Outline is the heading plan built in the outlining stage
type Outline struct {
	Title    string   `json:"title"`
	Headings []string `json:"headings"`
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "for": true, "from": true, "how": true,
	"in": true, "into": true, "is": true, "of": true, "on": true, "or": true, "the": true,
	"to": true, "what": true, "when": true, "why": true, "with": true, "your": true, "you": true,
	"best": true, "guide": true, "tips": true, "ways": true, "html": true, "index": true,
}

// DeriveTopic returns the post title, or a title made from the last path
// segment of the target URL ("best-hiking-boots" becomes "Best Hiking Boots").
func DeriveTopic(req model.JobRequest) string {
	if t := strings.TrimSpace(req.PostTitle); t != "" {
		return t
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return req.URL
	}
	segment := path.Base(strings.TrimRight(u.Path, "/"))
	segment = strings.TrimSuffix(segment, path.Ext(segment))
	if segment == "" || segment == "." || segment == "/" {
		return u.Hostname()
	}

	words := strings.FieldsFunc(segment, func(r rune) bool {
		return r == '-' || r == '_' || r == '+' || unicode.IsSpace(r)
	})
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

// BuildBrief derives the related questions and target entities for topic
func BuildBrief(topic string, req model.JobRequest) Brief {
	lower := strings.ToLower(topic)
	questions := []string{
		fmt.Sprintf("What is %s?", lower),
		fmt.Sprintf("How does %s work?", lower),
		fmt.Sprintf("Why is %s important?", lower),
		fmt.Sprintf("How do I get started with %s?", lower),
		fmt.Sprintf("What are common mistakes with %s?", lower),
	}

	entities := []string{lower}
	seen := map[string]bool{lower: true}
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,:;!?\"'()")
		if len(w) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		entities = append(entities, w)
	}

	mode := req.Mode
	if mode == "" {
		mode = model.JobModeGenerate
	}
	return Brief{
		Topic:          topic,
		URL:            req.URL,
		Mode:           mode,
		PAAQuestions:   questions,
		TargetEntities: entities,
	}
}

// BuildOutline plans the article headings for a brief
func BuildOutline(b Brief) Outline {
	return Outline{
		Title: b.Topic,
		Headings: []string{
			"What Is " + b.Topic,
			"Why " + b.Topic + " Matters",
			"How to Get Started with " + b.Topic,
			"Common Mistakes to Avoid",
			"Frequently Asked Questions",
			"Conclusion",
		},
	}
}

// Enrich adds TL;DR, key takeaways and FAQ blocks the draft is missing.
// It returns the names of the blocks it inserted.
func Enrich(r *model.ContentResult, b Brief) []string {
	lower := strings.ToLower(r.Content)
	var added []string

	var head strings.Builder
	if !strings.Contains(lower, "tldr") && !strings.Contains(lower, "tl;dr") && r.Excerpt != "" {
		fmt.Fprintf(&head, "<div class=\"tldr\"><p><strong>TL;DR:</strong> %s</p></div>\n", html.EscapeString(r.Excerpt))
		added = append(added, "tldr")
	}
	if !strings.Contains(lower, "key-takeaways") && !strings.Contains(lower, "key takeaways") {
		if items := takeaways(r, b); len(items) > 0 {
			head.WriteString("<div class=\"key-takeaways\"><h3>Key Takeaways</h3>\n<ul>\n")
			for _, item := range items {
				fmt.Fprintf(&head, "<li>%s</li>\n", html.EscapeString(item))
			}
			head.WriteString("</ul></div>\n")
			added = append(added, "key-takeaways")
		}
	}

	var missing []string
	for _, q := range b.PAAQuestions {
		if !strings.Contains(lower, strings.ToLower(q)) {
			missing = append(missing, q)
		}
	}
	var faq strings.Builder
	if len(missing) > 0 {
		faq.WriteString("\n<div class=\"faq\">\n")
		if !strings.Contains(lower, "frequently asked questions") {
			faq.WriteString("<h2>Frequently Asked Questions</h2>\n")
		}
		for _, q := range missing {
			fmt.Fprintf(&faq, "<h3>%s</h3>\n<p>%s</p>\n", html.EscapeString(capitalize(q)), html.EscapeString(faqAnswer(b.Topic)))
		}
		faq.WriteString("</div>\n")
		added = append(added, "faq")
	}

	r.Content = head.String() + r.Content + faq.String()
	return added
}

func takeaways(r *model.ContentResult, b Brief) []string {
	var items []string
	for _, s := range r.Sections {
		if s.Type == model.SectionBody && s.Heading != "" {
			items = append(items, s.Heading)
		}
		if len(items) == 4 {
			break
		}
	}
	if len(items) == 0 {
		items = []string{
			"Start with the basics of " + b.Topic + ".",
			"Apply one change at a time and measure the result.",
			"Avoid the common mistakes listed below.",
		}
	}
	return items
}

func faqAnswer(topic string) string {
	return fmt.Sprintf("Short answer: it depends on your goals. The sections above explain %s step by step; start with the basics, try one change at a time and measure what works.", topic)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
