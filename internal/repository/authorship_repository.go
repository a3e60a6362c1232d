package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// AuthorshipRepository manages paper-researcher authorship links.
type AuthorshipRepository interface {
	// Link creates an authorship record between a paper and a researcher.
	// Linking is idempotent on (paper_id, researcher_id): re-linking an existing
	// pair is a no-op. Returns true when a new record was created.
	// Returns domain.ErrNotFound if the paper or researcher does not exist.
	Link(ctx context.Context, authorship *domain.Authorship) (bool, error)

	// ListByPaper retrieves all authorships for a paper ordered by author position.
	ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Authorship, error)

	// ListByResearcher retrieves all authorships for a researcher, newest first.
	ListByResearcher(ctx context.Context, researcherID uuid.UUID) ([]*domain.Authorship, error)
}
