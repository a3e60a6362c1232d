// Package importer runs asynchronous paper import jobs.
package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/events"
	"github.com/researchhub/paper-import-service/internal/observability"
	"github.com/researchhub/paper-import-service/internal/repository"
)

// Manager owns import job lifecycles: it accepts batches, spawns one
// worker goroutine per job, and keeps the job row current as the worker
// progresses. Items within a job run strictly sequentially.
type Manager struct {
	jobs      repository.ImportJobRepository
	processor Processor
	publisher events.Publisher
	logger    zerolog.Logger
	metrics   *observability.Metrics

	wg sync.WaitGroup
}

// NewManager creates a job manager.
func NewManager(
	jobs repository.ImportJobRepository,
	processor Processor,
	publisher events.Publisher,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Manager {
	return &Manager{
		jobs:      jobs,
		processor: processor,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Submit validates and registers a batch, then returns immediately with
// the processing job; the batch itself runs on a background goroutine.
// Empty batches are rejected with domain.ErrInvalidInput.
func (m *Manager) Submit(ctx context.Context, items []PaperInput) (*domain.ImportJob, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError("items", "batch must contain at least one paper")
	}

	job, err := m.jobs.Create(ctx, &domain.ImportJob{
		Status: domain.JobStatusProcessing,
		Total:  len(items),
	})
	if err != nil {
		return nil, fmt.Errorf("creating import job: %w", err)
	}

	m.metrics.RecordJobStarted(len(items))
	logger := observability.WithJobContext(m.logger, job.ID)
	logger.Info().
		Int("total", job.Total).
		Msg("import job submitted")

	m.wg.Add(1)
	go m.run(job, items)

	return job, nil
}

// Get returns a job by id.
func (m *Manager) Get(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	return m.jobs.GetByID(ctx, id)
}

// List returns jobs matching the filter, newest first.
func (m *Manager) List(ctx context.Context, filter repository.ImportJobFilter) ([]*domain.ImportJob, int64, error) {
	return m.jobs.List(ctx, filter)
}

// EnrichResearcher refreshes a researcher's provider profile, returning
// the updated field names.
func (m *Manager) EnrichResearcher(ctx context.Context, researcherID uuid.UUID) ([]string, error) {
	updated, err := m.processor.EnrichResearcher(ctx, researcherID)
	if err != nil {
		return nil, err
	}
	if len(updated) > 0 {
		m.publish(ctx, domain.EventTypeResearcherMerge, researcherID.String(), "researcher", map[string]interface{}{
			"researcher_id":  researcherID,
			"fields_updated": updated,
		})
	}
	return updated, nil
}

// ImportResearcherPaper imports a provider-identified paper and links it
// to the researcher. Returns the paper and whether it was newly created.
func (m *Manager) ImportResearcherPaper(ctx context.Context, researcherID uuid.UUID, externalID string) (*domain.Paper, bool, error) {
	paper, created, err := m.processor.ImportPaperForResearcher(ctx, researcherID, externalID)
	if err != nil {
		return nil, false, err
	}
	if created {
		m.publish(ctx, domain.EventTypePaperImported, paper.ID.String(), "paper", domain.PaperImportedPayload{
			PaperID:    paper.ID,
			Title:      paper.Title,
			DOI:        paper.DOI,
			DataSource: paper.DataSource,
		})
	}
	return paper, created, nil
}

// Shutdown blocks until in-flight jobs finish or the context expires.
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out with import jobs in flight: %w", ctx.Err())
	}
}

// run is the per-job worker. A panic anywhere in the loop marks the job
// failed with a synthetic error entry instead of crashing the process.
func (m *Manager) run(job *domain.ImportJob, items []PaperInput) {
	defer m.wg.Done()

	// Job processing outlives the submitting request.
	ctx := context.Background()
	logger := observability.WithJobContext(m.logger, job.ID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("import job worker panicked")
			job.Status = domain.JobStatusFailed
			job.RecordError("", fmt.Sprintf("internal error: %v", r), domain.ImportErrorTypeFatal, nil)
			m.finish(ctx, job, start, logger)
		}
	}()

	for _, item := range items {
		result := m.processor.ProcessItem(ctx, item)

		job.Processed++
		switch result.Outcome {
		case OutcomeSuccessful:
			job.Successful++
		case OutcomeDuplicate:
			job.Duplicates++
		case OutcomeFailed:
			job.Failed++
		}
		if result.Error != nil {
			job.Errors = append(job.Errors, *result.Error)
		}
		m.metrics.RecordItemProcessed(string(result.Outcome))

		// Persist after every item so progress reads stay current.
		if err := m.jobs.Update(ctx, job); err != nil {
			logger.Error().Err(err).Int("processed", job.Processed).Msg("failed to persist job progress")
		}
	}

	job.Status = domain.JobStatusCompleted
	m.finish(ctx, job, start, logger)
}

// finish stamps completion, persists the terminal state and emits the
// terminal event.
func (m *Manager) finish(ctx context.Context, job *domain.ImportJob, start time.Time, logger zerolog.Logger) {
	now := time.Now().UTC()
	job.CompletedAt = &now

	if err := m.jobs.Update(ctx, job); err != nil {
		logger.Error().Err(err).Msg("failed to persist terminal job state")
	}

	duration := time.Since(start).Seconds()
	eventType := domain.EventTypeJobCompleted
	if job.Status == domain.JobStatusFailed {
		eventType = domain.EventTypeJobFailed
		m.metrics.RecordJobFailed(duration)
	} else {
		m.metrics.RecordJobCompleted(duration)
	}

	m.publish(ctx, eventType, job.ID.String(), "import_job", domain.JobCompletedPayload{
		JobID:      job.ID,
		Status:     job.Status,
		Total:      job.Total,
		Successful: job.Successful,
		Duplicates: job.Duplicates,
		Failed:     job.Failed,
		ErrorCount: len(job.Errors),
	})

	logger.Info().
		Str("status", string(job.Status)).
		Int("successful", job.Successful).
		Int("duplicates", job.Duplicates).
		Int("failed", job.Failed).
		Float64("duration_seconds", duration).
		Msg("import job finished")
}

// publish sends an event best-effort; failures are logged, never returned.
func (m *Manager) publish(ctx context.Context, eventType, aggregateID, aggregateType string, payload interface{}) {
	event, err := domain.NewEvent(eventType, aggregateID, aggregateType, payload)
	if err != nil {
		m.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build event")
		return
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		m.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
