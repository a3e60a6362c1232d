package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Compile-time interface verification.
var _ AuthorshipRepository = (*PgAuthorshipRepository)(nil)

// authorshipColumns is the canonical column list for authorship SELECT queries.
const authorshipColumns = `id, paper_id, researcher_id, position, author_position, contribution_role, created_at`

// PgAuthorshipRepository is a PostgreSQL implementation of AuthorshipRepository.
type PgAuthorshipRepository struct {
	db DBTX
}

// NewPgAuthorshipRepository creates a new PostgreSQL authorship repository.
func NewPgAuthorshipRepository(db DBTX) *PgAuthorshipRepository {
	return &PgAuthorshipRepository{db: db}
}

// Link creates an authorship record between a paper and a researcher.
// Re-linking an existing (paper, researcher) pair is a no-op.
func (r *PgAuthorshipRepository) Link(ctx context.Context, authorship *domain.Authorship) (bool, error) {
	if authorship == nil {
		return false, domain.NewValidationError("authorship", "authorship cannot be nil")
	}
	if authorship.PaperID == uuid.Nil {
		return false, domain.NewValidationError("paper_id", "paper ID is required")
	}
	if authorship.ResearcherID == uuid.Nil {
		return false, domain.NewValidationError("researcher_id", "researcher ID is required")
	}

	if authorship.ID == uuid.Nil {
		authorship.ID = uuid.New()
	}

	query := `
		INSERT INTO authorships (
			id, paper_id, researcher_id, position, author_position, contribution_role, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (paper_id, researcher_id) DO NOTHING`

	result, err := r.db.Exec(ctx, query,
		authorship.ID,
		authorship.PaperID,
		authorship.ResearcherID,
		authorship.Position,
		authorship.AuthorPosition,
		authorship.ContributionRole,
		time.Now().UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return false, domain.NewNotFoundError("authorship",
				fmt.Sprintf("%s/%s", authorship.PaperID, authorship.ResearcherID))
		}
		return false, fmt.Errorf("failed to link authorship: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// ListByPaper retrieves all authorships for a paper ordered by author position.
func (r *PgAuthorshipRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Authorship, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM authorships
		WHERE paper_id = $1
		ORDER BY position ASC`, authorshipColumns)

	return r.queryAuthorships(ctx, query, paperID)
}

// ListByResearcher retrieves all authorships for a researcher, newest first.
func (r *PgAuthorshipRepository) ListByResearcher(ctx context.Context, researcherID uuid.UUID) ([]*domain.Authorship, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM authorships
		WHERE researcher_id = $1
		ORDER BY created_at DESC`, authorshipColumns)

	return r.queryAuthorships(ctx, query, researcherID)
}

// queryAuthorships runs an authorship SELECT and scans all rows.
func (r *PgAuthorshipRepository) queryAuthorships(ctx context.Context, query string, args ...interface{}) ([]*domain.Authorship, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list authorships: %w", err)
	}
	defer rows.Close()

	var authorships []*domain.Authorship
	for rows.Next() {
		authorship, err := scanAuthorship(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan authorship: %w", err)
		}
		authorships = append(authorships, authorship)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating authorships: %w", err)
	}

	return authorships, nil
}

// scanAuthorship scans the current row from pgx.Rows into an Authorship.
func scanAuthorship(rows pgx.Rows) (*domain.Authorship, error) {
	var a domain.Authorship
	err := rows.Scan(
		&a.ID, &a.PaperID, &a.ResearcherID,
		&a.Position, &a.AuthorPosition, &a.ContributionRole,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
