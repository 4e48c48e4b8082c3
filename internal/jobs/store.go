// Package jobs keeps the in-memory registry of pipeline jobs and notifies
// subscribers of every change.
package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/contentpilot/api/internal/model"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrJobExists         = errors.New("job already exists")
	ErrJobTerminal       = errors.New("job already finished")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownStage      = errors.New("unknown stage")
)

// Listener receives job events synchronously, in mutation order. It runs
// under the job lock and must not call back into the Store for that job.
type Listener func(model.JobEvent)

type entry struct {
	mu        sync.Mutex
	job       model.Job
	listeners map[int]Listener
	nextID    int
}

// Store is the process-wide job registry. Each job has its own lock, so
// writes to one job are serialized and never block other jobs.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	now    func() time.Time
	logger *zap.SugaredLogger
}

// NewStore creates an empty job registry
func NewStore(logger *zap.SugaredLogger) *Store {
	return &Store{
		jobs:   make(map[string]*entry),
		now:    time.Now,
		logger: logger,
	}
}

// Create registers a pending job with the fixed stage list
func (s *Store) Create(jobID, siteID string, mode model.JobMode, url string) (*model.Job, error) {
	now := s.now().UTC()
	steps := make([]model.Stage, len(model.PipelineStages))
	for i, def := range model.PipelineStages {
		steps[i] = model.Stage{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Status:      model.StageStatusPending,
		}
	}

	e := &entry{
		job: model.Job{
			ID:        jobID,
			SiteID:    siteID,
			Mode:      mode,
			State:     model.JobStatePending,
			Steps:     steps,
			Metadata:  map[string]any{"url": url},
			CreatedAt: now,
			UpdatedAt: now,
		},
		listeners: make(map[int]Listener),
	}

	s.mu.Lock()
	if _, exists := s.jobs[jobID]; exists {
		s.mu.Unlock()
		return nil, errors.Wrapf(ErrJobExists, "job %s", jobID)
	}
	s.jobs[jobID] = e
	s.mu.Unlock()

	s.logger.Debugw("Job created", "jobId", jobID, "siteId", siteID, "mode", mode)

	snap := cloneJob(&e.job)
	return &snap, nil
}

// Get returns a snapshot of the job
func (s *Store) Get(jobID string) (model.Job, bool) {
	e := s.entry(jobID)
	if e == nil {
		return model.Job{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneJob(&e.job), true
}

// List returns snapshots of all jobs, newest first
func (s *Store) List() []model.Job {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.jobs))
	for _, e := range s.jobs {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]model.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, cloneJob(&e.job))
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of jobs in the registry
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

// Advance moves a job to u.State and updates the stage u.StepID
func (s *Store) Advance(jobID string, u model.StageUpdate) error {
	return s.mutate(jobID, model.JobEventProgress, func(job *model.Job, now time.Time) error {
		if job.State.IsTerminal() {
			return errors.Wrapf(ErrJobTerminal, "job %s is %s", jobID, job.State)
		}
		target := u.State.Order()
		if target < 0 || target < job.State.Order() {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", job.State, u.State)
		}

		idx := stageIndex(job.Steps, u.StepID)
		if idx < 0 {
			return errors.Wrapf(ErrUnknownStage, "stage %q", u.StepID)
		}

		if job.StartedAt == nil {
			started := now
			job.StartedAt = &started
		}
		// moving on closes any earlier stage still running
		for i := 0; i < idx; i++ {
			finishStage(&job.Steps[i], now)
		}
		job.State = u.State
		job.CurrentStep = u.StepID

		step := &job.Steps[idx]
		if step.StartTime == nil {
			start := now
			step.StartTime = &start
		}
		step.Progress = max(step.Progress, clampProgress(u.Progress))
		if step.Progress >= 100 {
			step.Status = model.StageStatusComplete
		} else {
			step.Status = model.StageStatusRunning
		}
		if u.Message != "" {
			step.Message = u.Message
		}
		if u.Data != nil {
			step.Data = u.Data
		}
		step.Duration = now.Sub(*step.StartTime).Milliseconds()

		job.Progress = max(job.Progress, clampProgress(u.Progress))
		return nil
	})
}

// Complete marks the job complete with progress 100. result may be nil.
// Completing a finished job is a no-op.
func (s *Store) Complete(jobID string, result *model.ContentResult) error {
	err := s.mutate(jobID, model.JobEventCompleted, func(job *model.Job, now time.Time) error {
		if job.State.IsTerminal() {
			return errNoop
		}
		job.State = model.JobStateComplete
		job.Progress = 100
		job.CurrentStep = ""
		if result != nil {
			job.Result = result.Clone()
		}
		for i := range job.Steps {
			finishStage(&job.Steps[i], now)
		}
		completed := now
		job.CompletedAt = &completed
		return nil
	})
	return ignoreNoop(err)
}

// Fail marks the job failed with message. Failing a finished job is a no-op.
func (s *Store) Fail(jobID, message string) error {
	err := s.mutate(jobID, model.JobEventFailed, func(job *model.Job, now time.Time) error {
		if job.State.IsTerminal() {
			return errNoop
		}
		job.State = model.JobStateFailed
		msg := message
		job.Error = &msg
		for i := range job.Steps {
			step := &job.Steps[i]
			if step.Status == model.StageStatusRunning {
				step.Status = model.StageStatusFailed
				step.Message = message
				if step.StartTime != nil {
					step.Duration = now.Sub(*step.StartTime).Milliseconds()
				}
			}
		}
		completed := now
		job.CompletedAt = &completed
		return nil
	})
	return ignoreNoop(err)
}

// SetResult attaches an intermediate result to a running job
func (s *Store) SetResult(jobID string, result *model.ContentResult) error {
	return s.mutate(jobID, model.JobEventUpdated, func(job *model.Job, _ time.Time) error {
		if job.State.IsTerminal() {
			return errors.Wrapf(ErrJobTerminal, "job %s is %s", jobID, job.State)
		}
		job.Result = result.Clone()
		return nil
	})
}

// SetMetadata sets one metadata key on a job
func (s *Store) SetMetadata(jobID, key string, value any) error {
	return s.mutate(jobID, model.JobEventUpdated, func(job *model.Job, _ time.Time) error {
		if job.Metadata == nil {
			job.Metadata = make(map[string]any)
		}
		job.Metadata[key] = value
		return nil
	})
}

// Subscribe registers fn for every event of jobID. There is no replay of
// past events. The returned function removes the subscription and may be
// called more than once.
func (s *Store) Subscribe(jobID string, fn Listener) (func(), error) {
	e := s.entry(jobID)
	if e == nil {
		return nil, errors.Wrapf(ErrJobNotFound, "job %s", jobID)
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}, nil
}

var errNoop = errors.New("noop")

func ignoreNoop(err error) error {
	if errors.Is(err, errNoop) {
		return nil
	}
	return err
}

func (s *Store) entry(jobID string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[jobID]
}

// mutate applies fn under the job lock and fans the resulting snapshot out
// to listeners before releasing it.
func (s *Store) mutate(jobID string, evt model.JobEventType, fn func(job *model.Job, now time.Time) error) error {
	e := s.entry(jobID)
	if e == nil {
		return errors.Wrapf(ErrJobNotFound, "job %s", jobID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := s.now().UTC()
	if err := fn(&e.job, now); err != nil {
		return err
	}
	e.job.UpdatedAt = now
	e.job.Revision++

	if len(e.listeners) == 0 {
		return nil
	}
	event := model.JobEvent{Type: evt, Job: cloneJob(&e.job)}
	for _, l := range e.listeners {
		s.deliver(l, event)
	}
	return nil
}

func (s *Store) deliver(l Listener, event model.JobEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Errorw("Job listener panicked", "jobId", event.Job.ID, "panic", rec)
		}
	}()
	l(event)
}

func finishStage(step *model.Stage, now time.Time) {
	if step.Status != model.StageStatusRunning {
		return
	}
	step.Status = model.StageStatusComplete
	step.Progress = 100
	if step.StartTime != nil {
		step.Duration = now.Sub(*step.StartTime).Milliseconds()
	}
}

func stageIndex(steps []model.Stage, id string) int {
	for i := range steps {
		if steps[i].ID == id {
			return i
		}
	}
	return -1
}

func clampProgress(p int) int {
	return min(max(p, 0), 100)
}

func cloneJob(j *model.Job) model.Job {
	c := *j
	c.Steps = append([]model.Stage(nil), j.Steps...)
	for i := range c.Steps {
		if j.Steps[i].StartTime != nil {
			t := *j.Steps[i].StartTime
			c.Steps[i].StartTime = &t
		}
	}
	c.Result = j.Result.Clone()
	if j.Error != nil {
		msg := *j.Error
		c.Error = &msg
	}
	if j.Metadata != nil {
		c.Metadata = make(map[string]any, len(j.Metadata))
		for k, v := range j.Metadata {
			c.Metadata[k] = v
		}
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
