package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleArticle = `<h1>Composting at Home</h1>
<p>Composting turns kitchen scraps into rich soil. Start with a small bin. Use brown and green material in equal parts.</p>
<h2>What is composting</h2>
<p>What is composting? It is the natural breakdown of organic matter. For example, banana peels break down in a few weeks.</p>
<h2>How long does compost take</h2>
<p>How long does compost take depends on heat and moisture. Try turning the pile every week.</p>`

func TestScoreContent_Deterministic(t *testing.T) {
	paa := []string{"What is composting?", "How long does compost take?"}
	entities := []string{"organic matter", "soil"}

	first := ScoreContent(sampleArticle, paa, entities)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ScoreContent(sampleArticle, paa, entities))
	}
}

func TestScoreContent_EmptyReferencesScoreFull(t *testing.T) {
	r := ScoreContent(sampleArticle, nil, nil)
	assert.Equal(t, 100, r.Completeness)
	assert.Equal(t, 100, r.EntityCoverage)
}

func TestScoreContent_Completeness(t *testing.T) {
	paa := []string{
		"What is composting exactly?",
		"How long does compost take?",
		"Can you compost meat?",
		"Why does compost smell?",
	}
	r := ScoreContent(sampleArticle, paa, nil)
	assert.Equal(t, 50, r.Completeness)
	assert.Contains(t, r.FailingAspects, AspectCompleteness)
	assert.Contains(t, r.Recommendations, RecommendCompleteness)
}

func TestScoreContent_EntityCoverageIsCaseInsensitive(t *testing.T) {
	r := ScoreContent(sampleArticle, nil, []string{"ORGANIC MATTER", "Banana", "worm castings", "nitrogen"})
	assert.Equal(t, 50, r.EntityCoverage)
	assert.Contains(t, r.FailingAspects, AspectEntityCoverage)
}

func TestScoreContent_Overall(t *testing.T) {
	r := ScoreContent(sampleArticle, []string{"What is composting?"}, []string{"soil"})

	want := float64(r.Readability)*0.25 + float64(r.Completeness)*0.30 +
		float64(r.EntityCoverage)*0.20 + float64(r.Uniqueness)*0.15 + float64(r.Engagement)*0.10
	assert.InDelta(t, want, float64(r.Overall), 0.5)
}

func TestScoreContent_ShortContentGetsLengthRecommendation(t *testing.T) {
	r := ScoreContent(sampleArticle, nil, nil)
	require.NotEmpty(t, r.Recommendations)
	assert.Contains(t, r.Recommendations[len(r.Recommendations)-1], "2000 words")
}

func TestScoreContent_CustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds.RecommendedWords = 10
	cfg.Thresholds.Engagement = 0
	cfg.Thresholds.Readability = 0

	r := NewScorer(cfg).Score(sampleArticle, nil, nil)
	assert.Empty(t, r.FailingAspects)
	assert.Empty(t, r.Recommendations)
}

func TestReadability(t *testing.T) {
	assert.Equal(t, 0, Readability(""))

	simple := Readability("The cat sat. The dog ran. We had fun.")
	dense := Readability("Institutional organizational considerations necessitate comprehensive interdisciplinary collaboration notwithstanding bureaucratic administrative complications")
	assert.Equal(t, 100, simple)
	assert.Less(t, dense, simple)
	assert.GreaterOrEqual(t, dense, 0)
}

func TestUniqueness(t *testing.T) {
	assert.Equal(t, 0, Uniqueness(""))
	assert.Equal(t, 100, Uniqueness("every word here is different"))
	// 2 distinct of 8 tokens: 0.25 * 1.5 = 37.5
	assert.Equal(t, 38, Uniqueness("spam eggs spam eggs spam eggs spam eggs"))
}

func TestUniqueness_NonLatinScripts(t *testing.T) {
	assert.Equal(t, 100, Uniqueness("привет мир это тест"))
	assert.Equal(t, 100, Uniqueness("καλημέρα κόσμε"))
	assert.Equal(t, 100, Uniqueness("東京 大阪 京都"))
	// one distinct of four tokens: 0.25 * 1.5 = 37.5
	assert.Equal(t, 38, Uniqueness("мир мир мир мир"))
	// accented words stay whole: two distinct of two
	assert.Equal(t, 100, Uniqueness("café crème"))
	assert.Equal(t, 75, Uniqueness("café café"))
}

func TestEngagement_BaseAndCap(t *testing.T) {
	assert.Equal(t, 50, Engagement("<p>plain words only</p>"))

	rich := `<div class="tldr"></div><div class="key-takeaways"></div><div class="callout"></div>
<div class="checklist"></div><div class="faq"></div><iframe></iframe><blockquote></blockquote>
For example, imagine the journey. Start, try, use, build, create today.`
	assert.Equal(t, 100, Engagement(rich))
}

func TestEngagement_MonotonicInBlocks(t *testing.T) {
	blocks := []string{
		`<div class="tldr">Short summary</div>`,
		`<div class="key-takeaways"><ul><li>point</li></ul></div>`,
		`<div class="callout">Note</div>`,
		`<div class="checklist"><ul><li>item</li></ul></div>`,
		`<section class="faq"><h3>Q</h3></section>`,
		`<iframe src="https://example.com/embed"></iframe>`,
		`<blockquote>quoted line</blockquote>`,
	}

	content := "<p>Gardening notes.</p>"
	prev := Engagement(content)
	for _, b := range blocks {
		content += b
		cur := Engagement(content)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 50+5*len(blocks), prev)
}

func TestEngagement_ActionVerbsCapped(t *testing.T) {
	text := "<p>" + strings.Join([]string{"start", "try", "use", "build", "create", "implement", "apply"}, " ") + "</p>"
	assert.Equal(t, 65, Engagement(text))
}

func TestEngagement_ActionVerbsMatchWholeWords(t *testing.T) {
	assert.Equal(t, 50, Engagement("<p>because tryst rebuilding</p>"))
}

func TestEngagement_StorytellingNeedsTwoTerms(t *testing.T) {
	assert.Equal(t, 50, Engagement("<p>imagine this</p>"))
	assert.Equal(t, 60, Engagement("<p>imagine this journey</p>"))
}
