package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/contentpilot/api/internal/model"
)

// Publish-readiness limits
const (
	MinPublishWords         = 1000
	RecommendedPublishWords = 1500
	MinHeadings             = 3
	MetaDescriptionMin      = 50
	MetaDescriptionMax      = 160
	MinReadabilityScore     = 60
	MinSEOScore             = 70
)

// CheckPublishReadiness runs the named checks against c. A nil minimum uses
// model.DefaultMinQualityScore; any supplied value, zero included, is used
// as given. CanPublish requires no failed error-severity check and a quality
// score at or above the minimum.
func CheckPublishReadiness(c model.PublishCandidate, minimum *int) model.PublishReport {
	minQualityScore := model.DefaultMinQualityScore
	if minimum != nil {
		minQualityScore = *minimum
	}

	metaLen := utf8.RuneCountInString(strings.TrimSpace(c.MetaDescription))

	checks := []model.PublishCheck{
		{
			Name:     "title",
			Passed:   strings.TrimSpace(c.Title) != "",
			Actual:   c.Title,
			Expected: "non-empty title",
			Severity: model.SeverityError,
		},
		{
			Name:     "min_word_count",
			Passed:   c.WordCount >= MinPublishWords,
			Actual:   c.WordCount,
			Expected: MinPublishWords,
			Severity: model.SeverityError,
		},
		{
			Name:     "recommended_word_count",
			Passed:   c.WordCount >= RecommendedPublishWords,
			Actual:   c.WordCount,
			Expected: RecommendedPublishWords,
			Severity: model.SeverityWarning,
		},
		{
			Name:     "quality_score",
			Passed:   c.QualityScore >= minQualityScore,
			Actual:   c.QualityScore,
			Expected: minQualityScore,
			Severity: model.SeverityError,
		},
		{
			Name:     "headings",
			Passed:   len(c.Headings) >= MinHeadings,
			Actual:   len(c.Headings),
			Expected: MinHeadings,
			Severity: model.SeverityWarning,
		},
		{
			Name:     "meta_description",
			Passed:   metaLen >= MetaDescriptionMin && metaLen <= MetaDescriptionMax,
			Actual:   metaLen,
			Expected: "50-160 characters",
			Severity: model.SeverityWarning,
		},
		{
			Name:     "readability_score",
			Passed:   c.ReadabilityScore >= MinReadabilityScore,
			Actual:   c.ReadabilityScore,
			Expected: MinReadabilityScore,
			Severity: model.SeverityWarning,
		},
		{
			Name:     "seo_score",
			Passed:   c.SEOScore >= MinSEOScore,
			Actual:   c.SEOScore,
			Expected: MinSEOScore,
			Severity: model.SeverityWarning,
		},
		{
			Name:     "excerpt",
			Passed:   strings.TrimSpace(c.Excerpt) != "",
			Actual:   c.Excerpt != "",
			Expected: true,
			Severity: model.SeverityInfo,
		},
	}

	blocking := false
	for _, ch := range checks {
		if !ch.Passed && ch.Severity == model.SeverityError {
			blocking = true
			break
		}
	}

	return model.PublishReport{
		Checks:          checks,
		CanPublish:      !blocking && c.QualityScore >= minQualityScore,
		QualityScore:    c.QualityScore,
		MinQualityScore: minQualityScore,
	}
}
