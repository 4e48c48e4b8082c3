package model

import "time"

// JobState is the pipeline position of a job
type JobState string

const (
	JobStatePending      JobState = "pending"
	JobStateBriefing     JobState = "briefing"
	JobStateOutlining    JobState = "outlining"
	JobStateDrafting     JobState = "drafting"
	JobStateEnriching    JobState = "enriching"
	JobStateQualityCheck JobState = "quality_check"
	JobStateRendering    JobState = "rendering"
	JobStateComplete     JobState = "complete"
	JobStateFailed       JobState = "failed"
)

// stateOrder is the fixed forward order of non-terminal states
var stateOrder = map[JobState]int{
	JobStatePending:      0,
	JobStateBriefing:     1,
	JobStateOutlining:    2,
	JobStateDrafting:     3,
	JobStateEnriching:    4,
	JobStateQualityCheck: 5,
	JobStateRendering:    6,
}

// Order returns the position of s in the pipeline, or -1 for terminal/unknown states.
func (s JobState) Order() int {
	if o, ok := stateOrder[s]; ok {
		return o
	}
	return -1
}

// IsTerminal reports whether s is complete or failed
func (s JobState) IsTerminal() bool {
	return s == JobStateComplete || s == JobStateFailed
}

// JobMode selects what the pipeline does with the target URL
type JobMode string

const (
	JobModeGenerate JobMode = "generate"
	JobModeOptimize JobMode = "optimize"
)

// StageStatus is the status of a single stage
type StageStatus string

const (
	StageStatusPending  StageStatus = "pending"
	StageStatusRunning  StageStatus = "running"
	StageStatusComplete StageStatus = "complete"
	StageStatusFailed   StageStatus = "failed"
)

// Stage ids, in pipeline order
const (
	StageBriefing     = "briefing"
	StageOutlining    = "outlining"
	StageDrafting     = "drafting"
	StageEnriching    = "enriching"
	StageQualityCheck = "quality_check"
	StageRendering    = "rendering"
)

// StageDefinition describes one of the fixed pipeline stages
type StageDefinition struct {
	ID          string
	State       JobState
	Name        string
	Description string
}

// PipelineStages is the fixed stage list every job is created with
var PipelineStages = []StageDefinition{
	{ID: StageBriefing, State: JobStateBriefing, Name: "Briefing", Description: "Analyze the target and build a content brief"},
	{ID: StageOutlining, State: JobStateOutlining, Name: "Outlining", Description: "Plan headings and sections"},
	{ID: StageDrafting, State: JobStateDrafting, Name: "Drafting", Description: "Generate the article with the configured AI provider"},
	{ID: StageEnriching, State: JobStateEnriching, Name: "Enriching", Description: "Add summary, takeaways and FAQ blocks"},
	{ID: StageQualityCheck, State: JobStateQualityCheck, Name: "Quality Check", Description: "Score readability, coverage and engagement"},
	{ID: StageRendering, State: JobStateRendering, Name: "Rendering", Description: "Render the final HTML document"},
}

// Job represents one content generation or optimization request
type Job struct {
	ID          string         `json:"jobId"`
	SiteID      string         `json:"siteId"`
	Mode        JobMode        `json:"mode"`
	State       JobState       `json:"state"`
	Progress    int            `json:"progress"`
	CurrentStep string         `json:"currentStep,omitempty"`
	Steps       []Stage        `json:"steps"`
	Result      *ContentResult `json:"result,omitempty"`
	Error       *string        `json:"error,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`

	// Revision counts mutations and orders events for stream consumers
	Revision uint64 `json:"-"`
}

// Stage is the progress record of one pipeline stage
type Stage struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Status      StageStatus `json:"status"`
	Progress    int         `json:"progress"`
	Message     string      `json:"message,omitempty"`
	StartTime   *time.Time  `json:"startTime,omitempty"`
	Duration    int64       `json:"duration"` // milliseconds
	Data        any         `json:"data,omitempty"`
}

// StageUpdate is the typed patch applied by JobStore.Advance
type StageUpdate struct {
	State    JobState
	StepID   string
	Progress int
	Message  string
	Data     any
}

// JobRequest is the payload handed to the pipeline for a job
type JobRequest struct {
	URL       string  `json:"url"`
	SiteID    string  `json:"siteId"`
	Mode      JobMode `json:"mode"`
	PostTitle string  `json:"postTitle,omitempty"`
	Provider  string  `json:"provider,omitempty"`
	Model     string  `json:"model,omitempty"`
}
