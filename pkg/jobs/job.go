// Package jobs runs the async transcription pipeline for submit-then-webhook
// backends: signed source URLs, job persistence, callback validation and
// idempotent completion.
package jobs

import "time"

// Status is a job's lifecycle position. Terminal states never regress.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Job is one async transcription request.
type Job struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	SourceKey string
	Provider  string
	Status    Status `gorm:"index"`
	RequestID string
	RawResult []byte
	ErrorMsg  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the job reached Done or Error.
func (j Job) Terminal() bool {
	return j.Status == StatusDone || j.Status == StatusError
}
