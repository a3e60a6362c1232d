package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Helper to create a valid import job for testing.
func newTestImportJob() *domain.ImportJob {
	now := time.Now().UTC()
	return &domain.ImportJob{
		ID:        uuid.New(),
		Status:    domain.JobStatusProcessing,
		Total:     10,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// importJobRows builds a pgxmock row set matching the import job column order.
func importJobRows(jobs ...*domain.ImportJob) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "status", "total", "processed", "successful", "duplicates", "failed",
		"errors", "created_at", "updated_at", "completed_at",
	})
	for _, j := range jobs {
		itemErrors := j.Errors
		if itemErrors == nil {
			itemErrors = []domain.ImportItemError{}
		}
		errorsJSON, _ := json.Marshal(itemErrors)
		rows.AddRow(
			j.ID, j.Status, j.Total, j.Processed, j.Successful, j.Duplicates, j.Failed,
			errorsJSON, j.CreatedAt, j.UpdatedAt, j.CompletedAt,
		)
	}
	return rows
}

func TestPgImportJobRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates job successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		job := newTestImportJob()

		mock.ExpectQuery("INSERT INTO import_jobs").
			WithArgs(
				pgxmock.AnyArg(), job.Status, job.Total, job.Processed,
				job.Successful, job.Duplicates, job.Failed,
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), job.CompletedAt,
			).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(job.ID, job.CreatedAt, job.UpdatedAt))

		result, err := repo.Create(ctx, job)
		require.NoError(t, err)
		assert.Equal(t, job.ID, result.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects job with no items", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		job := newTestImportJob()
		job.Total = 0

		result, err := repo.Create(ctx, job)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgImportJobRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns job with errors when found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		job := newTestImportJob()
		job.Processed = 3
		job.Successful = 1
		job.Duplicates = 1
		job.Failed = 1
		job.Errors = []domain.ImportItemError{
			{Title: "Some Failing Paper", Message: "enrichment failed", Type: domain.ImportErrorTypeEnrichment},
		}

		mock.ExpectQuery("SELECT .* FROM import_jobs WHERE id = \\$1").
			WithArgs(job.ID).
			WillReturnRows(importJobRows(job))

		result, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, result.ID)
		assert.Equal(t, 3, result.Processed)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "enrichment failed", result.Errors[0].Message)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing job", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		id := uuid.New()

		mock.ExpectQuery("SELECT .* FROM import_jobs WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		result, err := repo.GetByID(ctx, id)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgImportJobRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates counters and status", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		job := newTestImportJob()
		job.Status = domain.JobStatusCompleted
		job.Processed = 10
		job.Successful = 8
		job.Duplicates = 1
		job.Failed = 1
		completed := time.Now().UTC()
		job.CompletedAt = &completed

		mock.ExpectQuery("UPDATE import_jobs SET").
			WithArgs(
				job.ID, job.Status, job.Processed, job.Successful,
				job.Duplicates, job.Failed, pgxmock.AnyArg(), job.CompletedAt,
			).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now().UTC()))

		err = repo.Update(ctx, job)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing job", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		job := newTestImportJob()

		mock.ExpectQuery("UPDATE import_jobs SET").
			WithArgs(
				job.ID, job.Status, job.Processed, job.Successful,
				job.Duplicates, job.Failed, pgxmock.AnyArg(), job.CompletedAt,
			).
			WillReturnError(pgx.ErrNoRows)

		err = repo.Update(ctx, job)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgImportJobRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("lists jobs newest first", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		newer := newTestImportJob()
		older := newTestImportJob()
		older.CreatedAt = older.CreatedAt.Add(-time.Hour)

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM import_jobs").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))

		mock.ExpectQuery("SELECT .* FROM import_jobs.*ORDER BY created_at DESC").
			WithArgs(100, 0).
			WillReturnRows(importJobRows(newer, older))

		jobs, total, err := repo.List(ctx, ImportJobFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, jobs, 2)
		assert.True(t, jobs[0].CreatedAt.After(jobs[1].CreatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filters by status", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgImportJobRepository(mock)
		status := domain.JobStatusProcessing

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM import_jobs WHERE status = \\$1").
			WithArgs(status).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

		mock.ExpectQuery("SELECT .* FROM import_jobs WHERE status = \\$1").
			WithArgs(status, 100, 0).
			WillReturnRows(importJobRows(newTestImportJob()))

		jobs, total, err := repo.List(ctx, ImportJobFilter{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, jobs, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
