// Package scoring rates article content against readability, coverage and
// engagement heuristics. All functions are pure.
package scoring

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/contentpilot/api/internal/htmltext"
	"github.com/contentpilot/api/internal/model"
)

// Aspect names reported in ScoreReport.FailingAspects
const (
	AspectReadability    = "readability"
	AspectCompleteness   = "completeness"
	AspectEntityCoverage = "entityCoverage"
	AspectEngagement     = "engagement"
)

// Weights of each dimension in the overall score
type Weights struct {
	Readability    float64
	Completeness   float64
	EntityCoverage float64
	Uniqueness     float64
	Engagement     float64
}

// Thresholds below which a dimension is reported as failing
type Thresholds struct {
	Readability      int
	Completeness     int
	EntityCoverage   int
	Engagement       int
	RecommendedWords int
}

// Config holds the tunable scoring constants
type Config struct {
	Weights    Weights
	Thresholds Thresholds
}

// DefaultConfig returns the standard weights and thresholds
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Readability:    0.25,
			Completeness:   0.30,
			EntityCoverage: 0.20,
			Uniqueness:     0.15,
			Engagement:     0.10,
		},
		Thresholds: Thresholds{
			Readability:      70,
			Completeness:     75,
			EntityCoverage:   80,
			Engagement:       75,
			RecommendedWords: 2000,
		},
	}
}

// Fixed recommendation strings
const (
	RecommendReadability    = "Shorten sentences and prefer simpler words to improve readability."
	RecommendCompleteness   = "Answer more of the related People Also Ask questions directly in the content."
	RecommendEntityCoverage = "Mention the missing target entities to improve topical coverage."
	RecommendEngagement     = "Add structural blocks (TL;DR, key takeaways, callouts, checklists, FAQ) and concrete examples."
	recommendLengthFormat   = "Expand the article to at least %d words for comprehensive coverage."
)

// Scorer scores content with a fixed Config
type Scorer struct {
	Config Config
}

// NewScorer creates a scorer with cfg
func NewScorer(cfg Config) *Scorer {
	return &Scorer{Config: cfg}
}

// ScoreContent scores content with DefaultConfig
func ScoreContent(content string, paaQuestions, targetEntities []string) model.ScoreReport {
	return NewScorer(DefaultConfig()).Score(content, paaQuestions, targetEntities)
}

// Score produces a fresh report for content. content may be HTML.
func (s *Scorer) Score(content string, paaQuestions, targetEntities []string) model.ScoreReport {
	text := htmltext.Text(content)
	lower := strings.ToLower(text)
	words := htmltext.WordCount(text)

	report := model.ScoreReport{
		Readability:     Readability(text),
		Completeness:    Completeness(lower, paaQuestions),
		EntityCoverage:  EntityCoverage(lower, targetEntities),
		Uniqueness:      Uniqueness(lower),
		Engagement:      Engagement(content),
		WordCount:       words,
		FailingAspects:  []string{},
		Recommendations: []string{},
	}

	w := s.Config.Weights
	report.Overall = int(math.Round(
		float64(report.Readability)*w.Readability +
			float64(report.Completeness)*w.Completeness +
			float64(report.EntityCoverage)*w.EntityCoverage +
			float64(report.Uniqueness)*w.Uniqueness +
			float64(report.Engagement)*w.Engagement,
	))

	th := s.Config.Thresholds
	if report.Readability < th.Readability {
		addFailing(&report, AspectReadability, RecommendReadability)
	}
	if report.Completeness < th.Completeness {
		addFailing(&report, AspectCompleteness, RecommendCompleteness)
	}
	if report.EntityCoverage < th.EntityCoverage {
		addFailing(&report, AspectEntityCoverage, RecommendEntityCoverage)
	}
	if report.Engagement < th.Engagement {
		addFailing(&report, AspectEngagement, RecommendEngagement)
	}
	if words < th.RecommendedWords {
		report.Recommendations = append(report.Recommendations, fmt.Sprintf(recommendLengthFormat, th.RecommendedWords))
	}

	return report
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	wordToken     = regexp.MustCompile(`[\p{L}\p{M}\p{N}']+`)
	vowelGroup    = regexp.MustCompile(`[aeiouy]+`)
)

// Readability maps a Flesch-Kincaid grade to 0-100; lower grades score higher.
// Grade 6 or below scores 100, each grade above costs 8 points.
func Readability(text string) int {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := 0
	for _, s := range sentenceSplit.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}

	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	wc := float64(len(words))
	grade := 0.39*(wc/float64(sentences)) + 11.8*(float64(syllables)/wc) - 15.59
	return clampScore(100 - 8*(grade-6))
}

func countSyllables(word string) int {
	n := len(vowelGroup.FindAllString(strings.ToLower(word), -1))
	if n == 0 {
		return 1
	}
	return n
}

// Completeness is the share of PAA questions whose first three tokens appear
// in the text. lowerText must already be lowercase.
func Completeness(lowerText string, paaQuestions []string) int {
	if len(paaQuestions) == 0 {
		return 100
	}

	answered := 0
	for _, q := range paaQuestions {
		tokens := strings.Fields(strings.ToLower(q))
		if len(tokens) > 3 {
			tokens = tokens[:3]
		}
		phrase := strings.Join(tokens, " ")
		if phrase != "" && strings.Contains(lowerText, phrase) {
			answered++
		}
	}
	return int(math.Round(float64(answered) / float64(len(paaQuestions)) * 100))
}

// EntityCoverage is the share of target entities mentioned in the text
func EntityCoverage(lowerText string, targetEntities []string) int {
	if len(targetEntities) == 0 {
		return 100
	}

	found := 0
	for _, e := range targetEntities {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && strings.Contains(lowerText, e) {
			found++
		}
	}
	return int(math.Round(float64(found) / float64(len(targetEntities)) * 100))
}

// Uniqueness is distinct/total tokens scaled by 1.5. It is a vocabulary
// diversity proxy only; it does not detect duplicated content.
func Uniqueness(lowerText string) int {
	tokens := wordToken.FindAllString(lowerText, -1)
	if len(tokens) == 0 {
		return 0
	}

	distinct := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		distinct[t] = struct{}{}
	}
	return clampScore(float64(len(distinct)) / float64(len(tokens)) * 1.5 * 100)
}

func addFailing(r *model.ScoreReport, aspect, recommendation string) {
	r.FailingAspects = append(r.FailingAspects, aspect)
	r.Recommendations = append(r.Recommendations, recommendation)
}

func clampScore(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(math.Round(v))
}
