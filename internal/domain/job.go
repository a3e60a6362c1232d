package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Error type tags attached to per-item import errors.
const (
	ImportErrorTypeDuplicate  = "duplicate"
	ImportErrorTypeValidation = "validation"
	ImportErrorTypeEnrichment = "enrichment"
	ImportErrorTypeFatal      = "fatal"
)

// ImportItemError records why a single batch item failed or was skipped.
type ImportItemError struct {
	Title   string     `json:"title"`
	Message string     `json:"error"`
	Type    string     `json:"type,omitempty"`
	PaperID *uuid.UUID `json:"existing_paper_id,omitempty"`
}

// ImportJob tracks the progress of one asynchronous batch import.
// Counter invariants: Processed = Successful + Duplicates + Failed at every
// observation point, and Processed never exceeds Total.
type ImportJob struct {
	ID          uuid.UUID
	Status      JobStatus
	Total       int
	Processed   int
	Successful  int
	Duplicates  int
	Failed      int
	Errors      []ImportItemError
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// ProgressPercentage returns the rounded completion percentage.
// A job with zero queued items reports 0.
func (j *ImportJob) ProgressPercentage() int {
	if j.Total == 0 {
		return 0
	}
	return int(math.Round(float64(j.Processed) / float64(j.Total) * 100))
}

// RecordError appends a per-item error entry.
func (j *ImportJob) RecordError(title, message, errType string, paperID *uuid.UUID) {
	j.Errors = append(j.Errors, ImportItemError{
		Title:   title,
		Message: message,
		Type:    errType,
		PaperID: paperID,
	})
}
