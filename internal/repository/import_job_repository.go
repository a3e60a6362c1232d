package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// ImportJobRepository manages batch import job lifecycle and counters.
// The import worker persists the job after every processed item, so Update
// is the hot path here.
type ImportJobRepository interface {
	// Create inserts a new import job.
	// Returns domain.ErrInvalidInput if the job has no items.
	Create(ctx context.Context, job *domain.ImportJob) (*domain.ImportJob, error)

	// GetByID retrieves an import job by its UUID.
	// Returns domain.ErrNotFound if no matching job exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error)

	// Update persists the job's status, counters, errors, and completion time.
	// Returns domain.ErrNotFound if the job does not exist.
	Update(ctx context.Context, job *domain.ImportJob) error

	// List retrieves import jobs newest first.
	// Returns the matching jobs and total count for pagination.
	List(ctx context.Context, filter ImportJobFilter) ([]*domain.ImportJob, int64, error)
}

// ImportJobFilter specifies criteria for listing import jobs.
type ImportJobFilter struct {
	// Status filters to jobs in a specific state (optional).
	Status *domain.JobStatus

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *ImportJobFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
