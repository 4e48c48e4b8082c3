package model

// CheckSeverity ranks publish-readiness checks
type CheckSeverity string

const (
	SeverityError   CheckSeverity = "error"
	SeverityWarning CheckSeverity = "warning"
	SeverityInfo    CheckSeverity = "info"
)

// DefaultMinQualityScore is used when the caller does not supply a minimum
const DefaultMinQualityScore = 75

// PublishCandidate is the ContentResult-derived record checked before publishing
type PublishCandidate struct {
	Title            string   `json:"title"`
	WordCount        int      `json:"wordCount" validate:"min=0"`
	QualityScore     int      `json:"qualityScore" validate:"min=0,max=100"`
	SEOScore         int      `json:"seoScore" validate:"min=0,max=100"`
	ReadabilityScore int      `json:"readabilityScore" validate:"min=0,max=100"`
	MetaDescription  string   `json:"metaDescription"`
	Headings         []string `json:"headings"`
	Excerpt          string   `json:"excerpt"`
}

// CandidateFromResult derives a publish candidate from a generation result
func CandidateFromResult(r *ContentResult) PublishCandidate {
	return PublishCandidate{
		Title:            r.Title,
		WordCount:        r.WordCount,
		QualityScore:     r.QualityScore,
		SEOScore:         r.SEOScore,
		ReadabilityScore: r.ReadabilityScore,
		MetaDescription:  r.MetaDescription,
		Headings:         r.Headings,
		Excerpt:          r.Excerpt,
	}
}

// PublishCheck is one named readiness check
type PublishCheck struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Actual   any           `json:"actual"`
	Expected any           `json:"expected"`
	Severity CheckSeverity `json:"severity"`
}

// PublishReport is the result of a publish-readiness check
type PublishReport struct {
	Checks          []PublishCheck `json:"checks"`
	CanPublish      bool           `json:"canPublish"`
	QualityScore    int            `json:"qualityScore"`
	MinQualityScore int            `json:"minQualityScore"`
}

// PublishCheckRequest represents the request body for an ad hoc publish check
type PublishCheckRequest struct {
	Record          PublishCandidate `json:"record" validate:"required"`
	MinQualityScore *int             `json:"minQualityScore" validate:"omitempty,min=0,max=100"`
}
