package models

import (
	"fmt"
	"time"

	"github.com/yagnikpt/tunebox/internal/shared"
)

// ImportStatus is the lifecycle state of an [ImportJob].
type ImportStatus string

const (
	ImportPending   ImportStatus = "pending"
	ImportRunning   ImportStatus = "running"
	ImportCompleted ImportStatus = "completed"
	ImportFailed    ImportStatus = "failed"
)

// ImportJob tracks one bulk import of tracks from a manifest.
type ImportJob struct {
	lifecycle
	id             string
	userID         string
	source         string
	status         ImportStatus
	tracksTotal    int
	tracksImported int
	tracksFailed   int
	errorMessage   string
	startedAt      *time.Time
	completedAt    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

// NewImportJob creates a pending job reading from source. userID may be empty when the uploader is picked per track.
func NewImportJob(sequence int, userID, source string) *ImportJob {
	now := time.Now()
	return &ImportJob{
		lifecycle: lifecycle{sequence: sequence},
		userID:    userID,
		source:    source,
		status:    ImportPending,
		createdAt: now,
		updatedAt: now,
	}
}

func (j *ImportJob) ID() string              { return j.id }
func (j *ImportJob) CreatedAt() time.Time    { return j.createdAt }
func (j *ImportJob) UpdatedAt() time.Time    { return j.updatedAt }
func (j *ImportJob) UserID() string          { return j.userID }
func (j *ImportJob) Source() string          { return j.source }
func (j *ImportJob) Status() ImportStatus    { return j.status }
func (j *ImportJob) TracksTotal() int        { return j.tracksTotal }
func (j *ImportJob) TracksImported() int     { return j.tracksImported }
func (j *ImportJob) TracksFailed() int       { return j.tracksFailed }
func (j *ImportJob) ErrorMessage() string    { return j.errorMessage }
func (j *ImportJob) StartedAt() *time.Time   { return j.startedAt }
func (j *ImportJob) CompletedAt() *time.Time { return j.completedAt }

func (j *ImportJob) SetID(id string)               { j.id = id }
func (j *ImportJob) SetUpdatedAt(t time.Time)      { j.updatedAt = t }
func (j *ImportJob) SetCreatedAt(t time.Time)      { j.createdAt = t }
func (j *ImportJob) SetStatus(s ImportStatus)      { j.status = s }
func (j *ImportJob) SetErrorMessage(msg string)    { j.errorMessage = msg }
func (j *ImportJob) SetStartedAt(t *time.Time)     { j.startedAt = t }
func (j *ImportJob) SetCompletedAt(t *time.Time)   { j.completedAt = t }
func (j *ImportJob) SetCounts(total, ok, fail int) { j.tracksTotal, j.tracksImported, j.tracksFailed = total, ok, fail }

// Start moves the job to running with total expected tracks.
func (j *ImportJob) Start(total int) {
	now := time.Now()
	j.status = ImportRunning
	j.tracksTotal = total
	j.startedAt = &now
}

// Record counts one processed track.
func (j *ImportJob) Record(imported bool) {
	if imported {
		j.tracksImported++
	} else {
		j.tracksFailed++
	}
}

// Finish completes the job, or fails it when err is non-nil.
func (j *ImportJob) Finish(err error) {
	now := time.Now()
	j.completedAt = &now
	if err != nil {
		j.status = ImportFailed
		j.errorMessage = err.Error()
		return
	}
	j.status = ImportCompleted
}

// Validate checks the source and status and that counts never exceed the total.
func (j *ImportJob) Validate() error {
	if j.id == "" {
		return fmt.Errorf("%w: import job id is required", shared.ErrInvalidInput)
	}
	if j.source == "" {
		return fmt.Errorf("%w: import source is required", shared.ErrInvalidInput)
	}
	switch j.status {
	case ImportPending, ImportRunning, ImportCompleted, ImportFailed:
	default:
		return fmt.Errorf("%w: unknown import status %q", shared.ErrInvalidInput, j.status)
	}
	if j.tracksImported+j.tracksFailed > j.tracksTotal {
		return fmt.Errorf("%w: processed tracks exceed total", shared.ErrInvalidInput)
	}
	return nil
}
