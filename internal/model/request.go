package model

import "time"

// JobCreateRequest represents the request body for starting a job
type JobCreateRequest struct {
	URL       string  `json:"url" validate:"required,startswith=http,url"`
	SiteID    string  `json:"siteId" validate:"omitempty,max=128"`
	Mode      JobMode `json:"mode" validate:"omitempty,oneof=optimize generate"`
	PostTitle string  `json:"postTitle" validate:"omitempty,max=300"`
	Provider  string  `json:"provider" validate:"omitempty,max=32"`
	Model     string  `json:"model" validate:"omitempty,max=128"`
}

// JobCreateResponse represents the response to a started job
type JobCreateResponse struct {
	JobID     string    `json:"jobId"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	CreatedAt time.Time `json:"createdAt"`
}

// JobStatusStarted is the status reported for a freshly created job
const JobStatusStarted = "started"

// JobListResponse represents the response for listing jobs
type JobListResponse struct {
	Jobs  []Job `json:"jobs"`
	Total int   `json:"total"`
}
