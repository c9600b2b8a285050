package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/encore/internal/models"
	"github.com/desertthunder/encore/internal/shared"
)

// ErrUploadNotFound is returned when an upload record does not exist or was deleted.
var ErrUploadNotFound = fmt.Errorf("%w: upload", shared.ErrNotFound)

// UploadRepository implements models.Repository[*models.UploadJob] for upload history.
type UploadRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.UploadJob] = (*UploadRepository)(nil)

// NewUploadRepository creates a new UploadRepository with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

const uploadColumns = `id, sequence, draft_id, album_id, album_title, status, editing, track_count, songs_written,
	tag_count, phase, error, started_at, completed_at, created_at, updated_at, deleted_at`

// Create inserts a new upload job into the database with generated ID and sequence
func (r *UploadRepository) Create(job *models.UploadJob) error {
	sequence, err := NextSequence(r.db, "uploads")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.SetID(shared.GenerateID())
	job.SetSequence(sequence)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO uploads (
			id, sequence, draft_id, album_id, album_title, status, editing, track_count,
			songs_written, tag_count, phase, error, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		job.ID(),
		sequence,
		job.DraftID(),
		job.AlbumID(),
		job.AlbumTitle(),
		string(job.Status()),
		job.Editing(),
		job.TrackCount(),
		job.SongsWritten(),
		job.TagCount(),
		job.Phase(),
		job.Error(),
		job.StartedAt(),
		job.CompletedAt(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	return nil
}

// Get retrieves an upload job by ID, excluding soft-deleted jobs
func (r *UploadRepository) Get(id string) (*models.UploadJob, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// Update modifies an existing upload job in the database
func (r *UploadRepository) Update(job *models.UploadJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE uploads
		SET album_id = ?, status = ?, songs_written = ?, phase = ?, error = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		job.AlbumID(),
		string(job.Status()),
		job.SongsWritten(),
		job.Phase(),
		job.Error(),
		job.StartedAt(),
		job.CompletedAt(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update upload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrUploadNotFound, job.ID())
	}

	return nil
}

// Delete soft-deletes an upload job by ID
func (r *UploadRepository) Delete(id string) error {
	return softDelete(r.db, "uploads", id, ErrUploadNotFound)
}

// List retrieves upload jobs newest first, excluding soft-deleted jobs.
//
// Supported criteria: "status" (string), "draft_id" (string), "album_id" (string), "limit" (int).
func (r *UploadRepository) List(criteria map[string]any) ([]*models.UploadJob, error) {
	query := `SELECT ` + uploadColumns + ` FROM uploads WHERE deleted_at IS NULL`
	args := []any{}

	for _, col := range []string{"status", "draft_id", "album_id"} {
		if v, ok := criteria[col].(string); ok && v != "" {
			query += " AND " + col + " = ?"
			args = append(args, v)
		}
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var jobs []*models.UploadJob
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// scan reads one uploads row into a [models.UploadJob]
func (r *UploadRepository) scan(row scanner) (*models.UploadJob, error) {
	var (
		id, draftID, albumID, title, status, phase, errMsg string
		sequence, trackCount, songsWritten, tagCount       int
		editing                                            bool
		startedAt, completedAt, deletedAt                  sql.NullTime
		createdAt, updatedAt                               time.Time
	)

	err := row.Scan(&id, &sequence, &draftID, &albumID, &title, &status, &editing, &trackCount, &songsWritten,
		&tagCount, &phase, &errMsg, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan upload: %w", err)
	}

	job := models.NewUploadJob(sequence, draftID, &models.PendingAlbum{Title: title, EditingAlbumID: albumID})
	job.SetID(id)
	job.SetEditing(editing)
	job.SetCounts(trackCount, songsWritten, tagCount)
	job.SetStatus(models.UploadStatus(status), errMsg)
	job.SetPhase(phase)
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
