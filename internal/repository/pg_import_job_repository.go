package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Compile-time interface verification.
var _ ImportJobRepository = (*PgImportJobRepository)(nil)

// importJobColumns is the canonical column list for import job SELECT queries.
const importJobColumns = `id, status, total, processed, successful, duplicates, failed,
		errors, created_at, updated_at, completed_at`

// PgImportJobRepository is a PostgreSQL implementation of ImportJobRepository.
type PgImportJobRepository struct {
	db DBTX
}

// NewPgImportJobRepository creates a new PostgreSQL import job repository.
func NewPgImportJobRepository(db DBTX) *PgImportJobRepository {
	return &PgImportJobRepository{db: db}
}

// Create inserts a new import job.
func (r *PgImportJobRepository) Create(ctx context.Context, job *domain.ImportJob) (*domain.ImportJob, error) {
	if job == nil {
		return nil, domain.NewValidationError("job", "job cannot be nil")
	}
	if job.Total <= 0 {
		return nil, domain.NewValidationError("total", "job must have at least one item")
	}

	errorsJSON, err := marshalJobErrors(job.Errors)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	query := `
		INSERT INTO import_jobs (
			id, status, total, processed, successful, duplicates, failed,
			errors, created_at, updated_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		job.ID,
		job.Status,
		job.Total,
		job.Processed,
		job.Successful,
		job.Duplicates,
		job.Failed,
		errorsJSON,
		now,
		now,
		job.CompletedAt,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create import job: %w", err)
	}

	return job, nil
}

// GetByID retrieves an import job by its UUID.
func (r *PgImportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM import_jobs WHERE id = $1`, importJobColumns)

	row := r.db.QueryRow(ctx, query, id)
	job, err := scanImportJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("import job", id.String())
		}
		return nil, fmt.Errorf("failed to get import job by ID: %w", err)
	}

	return job, nil
}

// Update persists the job's status, counters, errors, and completion time.
func (r *PgImportJobRepository) Update(ctx context.Context, job *domain.ImportJob) error {
	if job == nil {
		return domain.NewValidationError("job", "job cannot be nil")
	}

	errorsJSON, err := marshalJobErrors(job.Errors)
	if err != nil {
		return err
	}

	query := `
		UPDATE import_jobs SET
			status = $2,
			processed = $3,
			successful = $4,
			duplicates = $5,
			failed = $6,
			errors = $7,
			completed_at = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRow(ctx, query,
		job.ID,
		job.Status,
		job.Processed,
		job.Successful,
		job.Duplicates,
		job.Failed,
		errorsJSON,
		job.CompletedAt,
	).Scan(&job.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("import job", job.ID.String())
		}
		return fmt.Errorf("failed to update import job: %w", err)
	}

	return nil
}

// List retrieves import jobs newest first.
func (r *PgImportJobRepository) List(ctx context.Context, filter ImportJobFilter) ([]*domain.ImportJob, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM import_jobs %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count import jobs: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM import_jobs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		importJobColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*domain.ImportJob, 0, filter.Limit)
	for rows.Next() {
		job, err := scanImportJobFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating import jobs: %w", err)
	}

	return jobs, totalCount, nil
}

// marshalJobErrors serializes a job's error list, storing an empty JSON array
// rather than NULL so counters and errors round-trip consistently.
func marshalJobErrors(itemErrors []domain.ImportItemError) ([]byte, error) {
	if itemErrors == nil {
		itemErrors = []domain.ImportItemError{}
	}
	data, err := json.Marshal(itemErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job errors: %w", err)
	}
	return data, nil
}

// importJobScanDest holds the destination pointers for scanning an ImportJob row.
type importJobScanDest struct {
	job        domain.ImportJob
	errorsJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *importJobScanDest) destinations() []interface{} {
	return []interface{}{
		&d.job.ID, &d.job.Status, &d.job.Total, &d.job.Processed,
		&d.job.Successful, &d.job.Duplicates, &d.job.Failed,
		&d.errorsJSON, &d.job.CreatedAt, &d.job.UpdatedAt, &d.job.CompletedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *importJobScanDest) finalize() (*domain.ImportJob, error) {
	if len(d.errorsJSON) > 0 {
		if err := json.Unmarshal(d.errorsJSON, &d.job.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job errors: %w", err)
		}
	}

	return &d.job, nil
}

// scanImportJob scans a single row into an ImportJob.
func scanImportJob(row pgx.Row) (*domain.ImportJob, error) {
	var dest importJobScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanImportJobFromRows scans the current row from pgx.Rows into an ImportJob.
func scanImportJobFromRows(rows pgx.Rows) (*domain.ImportJob, error) {
	var dest importJobScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
