package model

// ScoreReport is the multi-dimensional quality score of a piece of content.
// It is produced fresh by each scoring call and never mutated afterwards.
type ScoreReport struct {
	Readability     int      `json:"readability"`
	Completeness    int      `json:"completeness"`
	EntityCoverage  int      `json:"entityCoverage"`
	Uniqueness      int      `json:"uniqueness"`
	Engagement      int      `json:"engagement"`
	Overall         int      `json:"overall"`
	WordCount       int      `json:"wordCount"`
	FailingAspects  []string `json:"failingAspects"`
	Recommendations []string `json:"recommendations"`
}

// ScoreRequest represents the request body for ad hoc content scoring
type ScoreRequest struct {
	Content        string   `json:"content" validate:"required,min=1"`
	PAAQuestions   []string `json:"paaQuestions" validate:"omitempty,max=50,dive,min=1"`
	TargetEntities []string `json:"targetEntities" validate:"omitempty,max=100,dive,min=1"`
}
