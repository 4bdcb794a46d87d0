package domain

import (
	"fmt"
	"time"
)

// JobStatus enumerates AI job lifecycle states. This state space is
// independent of the product transition table: a job reaching done is what
// drives product changes, but the two entities move separately.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
)

// AIJob is one attempt to derive a product draft from a media item.
//
// Invariants: Result is non-empty iff status is done; Error is non-empty iff
// status is failed; DraftProductID is set at most once and never cleared.
// Jobs are never deleted in normal operation.
type AIJob struct {
	ID             string
	OwnerID        string
	MediaID        string
	Status         JobStatus
	Hint           map[string]any
	Result         []byte
	Error          string
	DraftProductID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewAIJob returns a queued job for the given media.
func NewAIJob(id, ownerID, mediaID string, hint map[string]any, now time.Time) *AIJob {
	if hint == nil {
		hint = map[string]any{}
	}
	return &AIJob{
		ID:        id,
		OwnerID:   ownerID,
		MediaID:   mediaID,
		Status:    JobQueued,
		Hint:      hint,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Terminal reports whether the job reached done or failed.
func (j *AIJob) Terminal() bool {
	return j.Status == JobDone || j.Status == JobFailed
}

// MarkProcessing claims the job for a worker. Only queued jobs can be claimed.
func (j *AIJob) MarkProcessing(now time.Time) error {
	if j.Status != JobQueued {
		return fmt.Errorf("job %s: cannot start processing from status %q", j.ID, j.Status)
	}
	j.Status = JobProcessing
	j.UpdatedAt = now
	return nil
}

// MarkDone records the raw AI response and the draft product the job
// produced. The draft product reference is write-once.
func (j *AIJob) MarkDone(result []byte, draftProductID string, now time.Time) error {
	if j.Terminal() {
		return fmt.Errorf("job %s: already %s", j.ID, j.Status)
	}
	if j.DraftProductID != "" && j.DraftProductID != draftProductID {
		return fmt.Errorf("job %s: draft product already set to %s", j.ID, j.DraftProductID)
	}
	j.Status = JobDone
	j.Result = result
	j.Error = ""
	j.DraftProductID = draftProductID
	j.UpdatedAt = now
	return nil
}

// MarkFailed records a failure cause. A done job stays done.
func (j *AIJob) MarkFailed(cause string, now time.Time) error {
	if j.Status == JobDone {
		return fmt.Errorf("job %s: already done", j.ID)
	}
	j.Status = JobFailed
	j.Error = cause
	j.UpdatedAt = now
	return nil
}

// ResetForRetry returns a failed job to the queue. Retrying is an explicit
// operator action, never automatic.
func (j *AIJob) ResetForRetry(now time.Time) error {
	if j.Status != JobFailed {
		return fmt.Errorf("job %s: %w, status is %q", j.ID, ErrJobNotRetryable, j.Status)
	}
	j.Status = JobQueued
	j.Error = ""
	j.Result = nil
	j.UpdatedAt = now
	return nil
}
