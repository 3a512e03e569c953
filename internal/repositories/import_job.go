package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yagnikpt/tunebox/internal/models"
	"github.com/yagnikpt/tunebox/internal/shared"
)

var importJobColumns = []string{
	"id", "sequence", "user_id", "source", "status", "tracks_total", "tracks_imported", "tracks_failed",
	"error_message", "started_at", "completed_at", "created_at", "updated_at", "deleted_at",
}

// ImportJobRepository implements models.Repository[*models.ImportJob] for bulk import tracking.
//
// Tracks the status and progress of seeding runs with soft delete support.
type ImportJobRepository struct {
	db *sql.DB
}

// NewImportJobRepository creates a new ImportJobRepository with the given database connection
func NewImportJobRepository(db *sql.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db}
}

// Create inserts a new import job into the database with generated ID and sequence
func (r *ImportJobRepository) Create(job *models.ImportJob) error {
	sequence, err := NextSequence(r.db, "import_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.SetID(shared.GenerateID())
	job.SetSequence(sequence)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO import_jobs (id, sequence, user_id, source, status, tracks_total, tracks_imported, tracks_failed,
			error_message, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		job.ID(),
		sequence,
		nullString(job.UserID()),
		job.Source(),
		job.Status(),
		job.TracksTotal(),
		job.TracksImported(),
		job.TracksFailed(),
		nullString(job.ErrorMessage()),
		job.StartedAt(),
		job.CompletedAt(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import job: %w", err)
	}

	return nil
}

// Get retrieves an import job by ID, excluding soft-deleted jobs
func (r *ImportJobRepository) Get(id string) (*models.ImportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM import_jobs WHERE id = ? AND deleted_at IS NULL", columns("", importJobColumns...))

	job, err := scanImportJob(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: import job %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan import job: %w", err)
	}
	return job, nil
}

// Update persists the job's status, counters and timestamps.
func (r *ImportJobRepository) Update(job *models.ImportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE import_jobs
		SET status = ?, tracks_total = ?, tracks_imported = ?, tracks_failed = ?,
			error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		job.Status(),
		job.TracksTotal(),
		job.TracksImported(),
		job.TracksFailed(),
		nullString(job.ErrorMessage()),
		job.StartedAt(),
		job.CompletedAt(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update import job: %w", err)
	}

	return expectAffected(result, fmt.Errorf("%w: import job not found or already deleted: %s", shared.ErrNotFound, job.ID()))
}

// Delete soft-deletes an import job by ID
func (r *ImportJobRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE import_jobs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete import job: %w", err)
	}

	return expectAffected(result, fmt.Errorf("%w: import job not found or already deleted: %s", shared.ErrNotFound, id))
}

// List retrieves all import jobs matching the given criteria ("status", "user_id"), newest first
func (r *ImportJobRepository) List(criteria map[string]any) ([]*models.ImportJob, error) {
	query := fmt.Sprintf("SELECT %s FROM import_jobs WHERE deleted_at IS NULL", columns("", importJobColumns...))
	args := []any{}

	if status, ok := criteria["status"].(models.ImportStatus); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY created_at DESC, sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ImportJob
	for rows.Next() {
		job, err := scanImportJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

func scanImportJob(s scanner) (*models.ImportJob, error) {
	var (
		id, source, status                string
		sequence, total, imported, failed int
		userID, errorMessage              sql.NullString
		startedAt, completedAt, deletedAt sql.NullTime
		createdAt, updatedAt              time.Time
	)

	err := s.Scan(&id, &sequence, &userID, &source, &status, &total, &imported, &failed,
		&errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	job := models.NewImportJob(sequence, userID.String, source)
	job.SetID(id)
	job.SetStatus(models.ImportStatus(status))
	job.SetCounts(total, imported, failed)
	job.SetErrorMessage(errorMessage.String)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	if startedAt.Valid {
		job.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		job.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		job.SetDeletedAt(&deletedAt.Time)
	}
	return job, nil
}
