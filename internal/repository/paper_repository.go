package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// PaperRepository handles academic paper persistence and duplicate lookups.
// Papers are created once by the import pipeline and updated in place as
// enrichment fills in metadata from external providers.
type PaperRepository interface {
	// Create inserts a new paper.
	// Returns domain.ErrAlreadyExists if a paper with the same DOI already exists.
	// Returns domain.ErrInvalidInput if the paper has no title.
	Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// GetByID retrieves a paper by its internal UUID.
	// Returns domain.ErrNotFound if no matching paper exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// FindByDOI retrieves a paper by DOI using case-insensitive exact match.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// FindByTitle retrieves a paper by title using case-insensitive exact match.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindByTitle(ctx context.Context, title string) (*domain.Paper, error)

	// FindBySourceID retrieves a paper by its provider-assigned identifier.
	// Returns domain.ErrNotFound if no matching paper exists.
	FindBySourceID(ctx context.Context, source domain.SourceType, sourceID string) (*domain.Paper, error)

	// Update persists all mutable fields of a paper.
	// Returns domain.ErrNotFound if the paper does not exist.
	Update(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// List retrieves papers matching the filter criteria, newest first.
	// Returns the matching papers and total count for pagination.
	// The total count reflects all matching records regardless of limit/offset.
	List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error)
}

// PaperFilter specifies criteria for listing papers.
type PaperFilter struct {
	// DataSource filters to papers enriched from a specific provider (optional).
	DataSource *domain.SourceType

	// ImportStatus filters to papers with a specific import status (optional).
	ImportStatus *domain.ImportStatus

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *PaperFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
