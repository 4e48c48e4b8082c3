package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// JobEventType classifies JobStore mutations
type JobEventType string

const (
	JobEventCreated   JobEventType = "created"
	JobEventProgress  JobEventType = "progress"
	JobEventUpdated   JobEventType = "updated"
	JobEventCompleted JobEventType = "completed"
	JobEventFailed    JobEventType = "failed"
)

// JobEvent is delivered to subscribers on every mutation of a job
type JobEvent struct {
	Type JobEventType
	Job  Job // snapshot after the mutation
}

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update
type WSProgressMessage struct {
	Type        string   `json:"type"`
	JobID       string   `json:"jobId"`
	Progress    int      `json:"progress"`
	State       JobState `json:"state"`
	CurrentStep string   `json:"currentStep,omitempty"`
	Steps       []Stage  `json:"steps,omitempty"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type   string         `json:"type"`
	JobID  string         `json:"jobId"`
	Result *ContentResult `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
