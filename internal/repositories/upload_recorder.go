package repositories

import (
	"fmt"

	"github.com/desertthunder/encore/internal/models"
)

// UploadJobAdapter implements tasks.JobRecorder using UploadRepository.
type UploadJobAdapter struct {
	repo *UploadRepository
}

// NewUploadJobAdapter creates a new UploadJobAdapter with the given repository
func NewUploadJobAdapter(repo *UploadRepository) *UploadJobAdapter {
	return &UploadJobAdapter{repo: repo}
}

// Begin stores a running job for album.
func (a *UploadJobAdapter) Begin(draftID string, album *models.PendingAlbum) (*models.UploadJob, error) {
	job := models.NewUploadJob(0, draftID, album)
	job.Start()
	if err := a.repo.Create(job); err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}
	return job, nil
}

// Finish stores the job's final status.
func (a *UploadJobAdapter) Finish(job *models.UploadJob) error {
	return a.repo.Update(job)
}
