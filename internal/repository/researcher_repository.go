package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// ResearcherRepository handles researcher identity and profile persistence.
// Researchers are resolved by external provider identifiers first, then by
// name, so the lookup methods mirror that resolution order.
type ResearcherRepository interface {
	// Create inserts a new researcher.
	// Returns domain.ErrAlreadyExists if an external identifier is already taken.
	// Returns domain.ErrInvalidInput if the researcher has no name.
	Create(ctx context.Context, researcher *domain.Researcher) (*domain.Researcher, error)

	// GetByID retrieves a researcher by its internal UUID.
	// Returns domain.ErrNotFound if no matching researcher exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Researcher, error)

	// FindByExternalID retrieves a researcher by a provider-assigned identifier.
	// The source determines which identifier column is matched.
	// Returns domain.ErrNotFound if no matching researcher exists.
	FindByExternalID(ctx context.Context, source domain.SourceType, externalID string) (*domain.Researcher, error)

	// FindByORCID retrieves a researcher by ORCID.
	// Returns domain.ErrNotFound if no matching researcher exists.
	FindByORCID(ctx context.Context, orcid string) (*domain.Researcher, error)

	// FindByName retrieves all researchers whose name matches case-insensitively.
	// Callers decide which candidate, if any, is safe to attach to.
	FindByName(ctx context.Context, name string) ([]*domain.Researcher, error)

	// Update persists all mutable fields of a researcher.
	// Returns domain.ErrNotFound if the researcher does not exist.
	Update(ctx context.Context, researcher *domain.Researcher) (*domain.Researcher, error)

	// List retrieves researchers matching the filter criteria, newest first.
	// Returns the matching researchers and total count for pagination.
	List(ctx context.Context, filter ResearcherFilter) ([]*domain.Researcher, int64, error)

	// AcquireIdentityLock takes a transaction-scoped advisory lock on a
	// researcher identity key. It serializes concurrent resolution of the same
	// author identity across import jobs. Must be called inside a transaction;
	// the lock is released when the transaction ends.
	AcquireIdentityLock(ctx context.Context, key string) error
}

// ResearcherFilter specifies criteria for listing researchers.
type ResearcherFilter struct {
	// Name filters by case-insensitive substring match (optional).
	Name string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate checks if the filter has valid values and sets defaults.
func (f *ResearcherFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
