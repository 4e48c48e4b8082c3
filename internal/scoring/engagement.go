package scoring

import (
	"regexp"
	"strings"
)

// BlockType is a recognised structural block
type BlockType string

const (
	BlockTLDR         BlockType = "tldr"
	BlockKeyTakeaways BlockType = "key-takeaways"
	BlockCallout      BlockType = "callout"
	BlockChecklist    BlockType = "checklist"
	BlockFAQ          BlockType = "faq"
	BlockVideo        BlockType = "video"
	BlockQuote        BlockType = "quote"
)

// blockMarkers lists the lowercase markers that reveal each block type, in
// either markup (class names, tags) or visible text
var blockMarkers = []struct {
	block   BlockType
	markers []string
}{
	{BlockTLDR, []string{"tldr", "tl;dr"}},
	{BlockKeyTakeaways, []string{"key-takeaways", "key takeaways"}},
	{BlockCallout, []string{"callout"}},
	{BlockChecklist, []string{"checklist"}},
	{BlockFAQ, []string{"faq", "frequently asked questions"}},
	{BlockVideo, []string{"<video", "<iframe", "class=\"video"}},
	{BlockQuote, []string{"<blockquote", "class=\"quote"}},
}

var (
	exampleTerms      = []string{"for example", "for instance", "case study", "e.g.", "real-world example"}
	storytellingTerms = []string{"imagine", "story", "journey", "once upon", "discovered", "struggled", "turned out", "we learned"}
	actionTerms       = wordPatterns("start", "try", "use", "build", "create", "implement", "apply", "avoid", "measure", "optimize")
)

// wordPatterns matches each verb as a whole word so "use" does not match "because"
func wordPatterns(words ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		out[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return out
}

const (
	engagementBase        = 50
	engagementPerBlock    = 5
	engagementExamples    = 15
	engagementStory       = 10
	engagementPerAction   = 3
	engagementActionLimit = 15
)

// DetectBlocks returns the block types present in content, in canonical order
func DetectBlocks(content string) []BlockType {
	lower := strings.ToLower(content)
	var found []BlockType
	for _, b := range blockMarkers {
		for _, m := range b.markers {
			if strings.Contains(lower, m) {
				found = append(found, b.block)
				break
			}
		}
	}
	return found
}

// Engagement scores structure and vocabulary: base 50, +5 per block type,
// +15 for example vocabulary, +10 for two or more storytelling terms, up to
// +15 for action verbs, capped at 100.
func Engagement(content string) int {
	lower := strings.ToLower(content)
	score := engagementBase + engagementPerBlock*len(DetectBlocks(content))

	if countTerms(lower, exampleTerms) > 0 {
		score += engagementExamples
	}
	if countTerms(lower, storytellingTerms) >= 2 {
		score += engagementStory
	}

	matched := 0
	for _, re := range actionTerms {
		if re.MatchString(lower) {
			matched++
		}
	}
	action := engagementPerAction * matched
	if action > engagementActionLimit {
		action = engagementActionLimit
	}
	score += action

	if score > 100 {
		score = 100
	}
	return score
}

// countTerms returns how many distinct terms occur in lower
func countTerms(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			n++
		}
	}
	return n
}
