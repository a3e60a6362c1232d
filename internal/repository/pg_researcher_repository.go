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
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Compile-time interface verification.
var _ ResearcherRepository = (*PgResearcherRepository)(nil)

// researcherColumns is the canonical column list for researcher SELECT queries.
const researcherColumns = `id, name, affiliation, semantic_scholar_id, openalex_id, orcid,
		h_index, research_interests, url, summary, raw_metadata, created_at, updated_at`

// PgResearcherRepository is a PostgreSQL implementation of ResearcherRepository.
type PgResearcherRepository struct {
	db DBTX
}

// NewPgResearcherRepository creates a new PostgreSQL researcher repository.
func NewPgResearcherRepository(db DBTX) *PgResearcherRepository {
	return &PgResearcherRepository{db: db}
}

// Create inserts a new researcher.
func (r *PgResearcherRepository) Create(ctx context.Context, researcher *domain.Researcher) (*domain.Researcher, error) {
	if researcher == nil {
		return nil, domain.NewValidationError("researcher", "researcher cannot be nil")
	}
	if researcher.Name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}

	metadataJSON, err := marshalMetadata(researcher.RawMetadata)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if researcher.ID == uuid.Nil {
		researcher.ID = uuid.New()
	}

	query := `
		INSERT INTO researchers (
			id, name, affiliation, semantic_scholar_id, openalex_id, orcid,
			h_index, research_interests, url, summary, raw_metadata,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		researcher.ID,
		researcher.Name,
		researcher.Affiliation,
		researcher.SemanticScholarID,
		researcher.OpenAlexID,
		researcher.ORCID,
		researcher.HIndex,
		researcher.ResearchInterests,
		researcher.URL,
		researcher.Summary,
		metadataJSON,
		now,
		now,
	).Scan(&researcher.ID, &researcher.CreatedAt, &researcher.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("researcher", researcher.Name)
		}
		return nil, fmt.Errorf("failed to create researcher: %w", err)
	}

	return researcher, nil
}

// GetByID retrieves a researcher by its UUID.
func (r *PgResearcherRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Researcher, error) {
	query := fmt.Sprintf(`SELECT %s FROM researchers WHERE id = $1`, researcherColumns)

	row := r.db.QueryRow(ctx, query, id)
	researcher, err := scanResearcher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("researcher", id.String())
		}
		return nil, fmt.Errorf("failed to get researcher by ID: %w", err)
	}

	return researcher, nil
}

// FindByExternalID retrieves a researcher by a provider-assigned identifier.
func (r *PgResearcherRepository) FindByExternalID(ctx context.Context, source domain.SourceType, externalID string) (*domain.Researcher, error) {
	if externalID == "" {
		return nil, domain.NewValidationError("external_id", "external ID is required")
	}

	var column string
	switch source {
	case domain.SourceTypeSemanticScholar:
		column = "semantic_scholar_id"
	case domain.SourceTypeOpenAlex:
		column = "openalex_id"
	default:
		return nil, domain.NewValidationError("source", fmt.Sprintf("source %q has no researcher identifiers", source))
	}

	query := fmt.Sprintf(`SELECT %s FROM researchers WHERE %s = $1`, researcherColumns, column)

	row := r.db.QueryRow(ctx, query, externalID)
	researcher, err := scanResearcher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("researcher", fmt.Sprintf("%s:%s", source, externalID))
		}
		return nil, fmt.Errorf("failed to find researcher by external ID: %w", err)
	}

	return researcher, nil
}

// FindByORCID retrieves a researcher by ORCID.
func (r *PgResearcherRepository) FindByORCID(ctx context.Context, orcid string) (*domain.Researcher, error) {
	if orcid == "" {
		return nil, domain.NewValidationError("orcid", "ORCID is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM researchers WHERE orcid = $1`, researcherColumns)

	row := r.db.QueryRow(ctx, query, orcid)
	researcher, err := scanResearcher(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("researcher", orcid)
		}
		return nil, fmt.Errorf("failed to find researcher by ORCID: %w", err)
	}

	return researcher, nil
}

// FindByName retrieves all researchers whose name matches case-insensitively.
func (r *PgResearcherRepository) FindByName(ctx context.Context, name string) ([]*domain.Researcher, error) {
	if name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM researchers
		WHERE LOWER(name) = LOWER($1)
		ORDER BY created_at ASC`, researcherColumns)

	rows, err := r.db.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to find researchers by name: %w", err)
	}
	defer rows.Close()

	var researchers []*domain.Researcher
	for rows.Next() {
		researcher, err := scanResearcherFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan researcher: %w", err)
		}
		researchers = append(researchers, researcher)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating researchers: %w", err)
	}

	return researchers, nil
}

// Update persists all mutable fields of a researcher.
func (r *PgResearcherRepository) Update(ctx context.Context, researcher *domain.Researcher) (*domain.Researcher, error) {
	if researcher == nil {
		return nil, domain.NewValidationError("researcher", "researcher cannot be nil")
	}

	metadataJSON, err := marshalMetadata(researcher.RawMetadata)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE researchers SET
			name = $2,
			affiliation = $3,
			semantic_scholar_id = $4,
			openalex_id = $5,
			orcid = $6,
			h_index = $7,
			research_interests = $8,
			url = $9,
			summary = $10,
			raw_metadata = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRow(ctx, query,
		researcher.ID,
		researcher.Name,
		researcher.Affiliation,
		researcher.SemanticScholarID,
		researcher.OpenAlexID,
		researcher.ORCID,
		researcher.HIndex,
		researcher.ResearchInterests,
		researcher.URL,
		researcher.Summary,
		metadataJSON,
	).Scan(&researcher.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("researcher", researcher.ID.String())
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("researcher", researcher.Name)
		}
		return nil, fmt.Errorf("failed to update researcher: %w", err)
	}

	return researcher, nil
}

// List retrieves researchers matching the filter criteria, newest first.
func (r *PgResearcherRepository) List(ctx context.Context, filter ResearcherFilter) ([]*domain.Researcher, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.Name != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+filter.Name+"%")
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM researchers %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count researchers: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM researchers
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		researcherColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list researchers: %w", err)
	}
	defer rows.Close()

	researchers := make([]*domain.Researcher, 0, filter.Limit)
	for rows.Next() {
		researcher, err := scanResearcherFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan researcher: %w", err)
		}
		researchers = append(researchers, researcher)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating researchers: %w", err)
	}

	return researchers, totalCount, nil
}

// AcquireIdentityLock takes a transaction-scoped advisory lock on an identity key.
func (r *PgResearcherRepository) AcquireIdentityLock(ctx context.Context, key string) error {
	if key == "" {
		return domain.NewValidationError("key", "identity key is required")
	}

	if _, err := r.db.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return fmt.Errorf("failed to acquire identity lock: %w", err)
	}
	return nil
}

// researcherScanDest holds the destination pointers for scanning a Researcher row.
type researcherScanDest struct {
	researcher   domain.Researcher
	metadataJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *researcherScanDest) destinations() []interface{} {
	return []interface{}{
		&d.researcher.ID, &d.researcher.Name, &d.researcher.Affiliation,
		&d.researcher.SemanticScholarID, &d.researcher.OpenAlexID, &d.researcher.ORCID,
		&d.researcher.HIndex, &d.researcher.ResearchInterests, &d.researcher.URL,
		&d.researcher.Summary, &d.metadataJSON,
		&d.researcher.CreatedAt, &d.researcher.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *researcherScanDest) finalize() (*domain.Researcher, error) {
	if len(d.metadataJSON) > 0 {
		if err := json.Unmarshal(d.metadataJSON, &d.researcher.RawMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &d.researcher, nil
}

// scanResearcher scans a single row into a Researcher.
func scanResearcher(row pgx.Row) (*domain.Researcher, error) {
	var dest researcherScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanResearcherFromRows scans the current row from pgx.Rows into a Researcher.
func scanResearcherFromRows(rows pgx.Rows) (*domain.Researcher, error) {
	var dest researcherScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
