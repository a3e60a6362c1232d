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
var _ PaperRepository = (*PgPaperRepository)(nil)

// paperColumns is the canonical column list for paper SELECT queries.
const paperColumns = `id, title, abstract, doi, journal, publication_date, url,
		citation_count, keywords, source_id, data_source, import_status,
		import_error, last_import_attempt, summary, raw_metadata,
		created_at, updated_at`

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// Create inserts a new paper.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	metadataJSON, err := marshalMetadata(paper.RawMetadata)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}

	query := `
		INSERT INTO papers (
			id, title, abstract, doi, journal, publication_date, url,
			citation_count, keywords, source_id, data_source, import_status,
			import_error, last_import_attempt, summary, raw_metadata,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		RETURNING id, created_at, updated_at`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Title,
		paper.Abstract,
		paper.DOI,
		paper.Journal,
		paper.PublicationDate,
		paper.URL,
		paper.CitationCount,
		paper.Keywords,
		paper.SourceID,
		paper.DataSource,
		paper.ImportStatus,
		paper.ImportError,
		paper.LastImportAttempt,
		paper.Summary,
		metadataJSON,
		now,
		now,
	).Scan(&paper.ID, &paper.CreatedAt, &paper.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("paper", paper.DOI)
		}
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}

	return paper, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := fmt.Sprintf(`SELECT %s FROM papers WHERE id = $1`, paperColumns)

	row := r.db.QueryRow(ctx, query, id)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by ID: %w", err)
	}

	return paper, nil
}

// FindByDOI retrieves a paper by DOI using case-insensitive exact match.
func (r *PgPaperRepository) FindByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	if doi == "" {
		return nil, domain.NewValidationError("doi", "DOI is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM papers WHERE LOWER(doi) = LOWER($1)`, paperColumns)

	row := r.db.QueryRow(ctx, query, doi)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", doi)
		}
		return nil, fmt.Errorf("failed to find paper by DOI: %w", err)
	}

	return paper, nil
}

// FindByTitle retrieves a paper by title using case-insensitive exact match.
func (r *PgPaperRepository) FindByTitle(ctx context.Context, title string) (*domain.Paper, error) {
	if title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM papers WHERE LOWER(title) = LOWER($1)`, paperColumns)

	row := r.db.QueryRow(ctx, query, title)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", title)
		}
		return nil, fmt.Errorf("failed to find paper by title: %w", err)
	}

	return paper, nil
}

// FindBySourceID retrieves a paper by its provider-assigned identifier.
func (r *PgPaperRepository) FindBySourceID(ctx context.Context, source domain.SourceType, sourceID string) (*domain.Paper, error) {
	if sourceID == "" {
		return nil, domain.NewValidationError("source_id", "source ID is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM papers WHERE data_source = $1 AND source_id = $2`, paperColumns)

	row := r.db.QueryRow(ctx, query, source, sourceID)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", fmt.Sprintf("%s:%s", source, sourceID))
		}
		return nil, fmt.Errorf("failed to find paper by source ID: %w", err)
	}

	return paper, nil
}

// Update persists all mutable fields of a paper.
func (r *PgPaperRepository) Update(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}

	metadataJSON, err := marshalMetadata(paper.RawMetadata)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE papers SET
			title = $2,
			abstract = $3,
			doi = $4,
			journal = $5,
			publication_date = $6,
			url = $7,
			citation_count = $8,
			keywords = $9,
			source_id = $10,
			data_source = $11,
			import_status = $12,
			import_error = $13,
			last_import_attempt = $14,
			summary = $15,
			raw_metadata = $16,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err = r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Title,
		paper.Abstract,
		paper.DOI,
		paper.Journal,
		paper.PublicationDate,
		paper.URL,
		paper.CitationCount,
		paper.Keywords,
		paper.SourceID,
		paper.DataSource,
		paper.ImportStatus,
		paper.ImportError,
		paper.LastImportAttempt,
		paper.Summary,
		metadataJSON,
	).Scan(&paper.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", paper.ID.String())
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("paper", paper.DOI)
		}
		return nil, fmt.Errorf("failed to update paper: %w", err)
	}

	return paper, nil
}

// List retrieves papers matching the filter criteria, newest first.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	// Build dynamic WHERE clause
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.DataSource != nil {
		conditions = append(conditions, fmt.Sprintf("data_source = $%d", argIndex))
		args = append(args, *filter.DataSource)
		argIndex++
	}

	if filter.ImportStatus != nil {
		conditions = append(conditions, fmt.Sprintf("import_status = $%d", argIndex))
		args = append(args, *filter.ImportStatus)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total matching records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	// Query with pagination
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM papers
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		paperColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers := make([]*domain.Paper, 0, filter.Limit)
	for rows.Next() {
		paper, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating papers: %w", err)
	}

	return papers, totalCount, nil
}

// marshalMetadata serializes a raw metadata map, returning nil for nil maps
// so the column stores SQL NULL instead of the JSON literal "null".
func marshalMetadata(metadata map[string]interface{}) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper        domain.Paper
	metadataJSON []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.paper.Title, &d.paper.Abstract, &d.paper.DOI, &d.paper.Journal,
		&d.paper.PublicationDate, &d.paper.URL, &d.paper.CitationCount, &d.paper.Keywords,
		&d.paper.SourceID, &d.paper.DataSource, &d.paper.ImportStatus, &d.paper.ImportError,
		&d.paper.LastImportAttempt, &d.paper.Summary, &d.metadataJSON,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	if len(d.metadataJSON) > 0 {
		if err := json.Unmarshal(d.metadataJSON, &d.paper.RawMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &d.paper, nil
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanPaperFromRows scans the current row from pgx.Rows into a Paper.
func scanPaperFromRows(rows pgx.Rows) (*domain.Paper, error) {
	var dest paperScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
