package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Helper to create a valid researcher for testing.
func newTestResearcher() *domain.Researcher {
	now := time.Now().UTC()
	return &domain.Researcher{
		ID:                uuid.New(),
		Name:              "Ashish Vaswani",
		Affiliation:       "Google Brain",
		SemanticScholarID: "40348417",
		OpenAlexID:        "A5023888391",
		ORCID:             "0000-0002-1825-0097",
		HIndex:            35,
		ResearchInterests: []string{"machine translation", "attention"},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// researcherRows builds a pgxmock row set matching the researcher column order.
func researcherRows(researchers ...*domain.Researcher) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "name", "affiliation", "semantic_scholar_id", "openalex_id", "orcid",
		"h_index", "research_interests", "url", "summary", "raw_metadata",
		"created_at", "updated_at",
	})
	for _, r := range researchers {
		rows.AddRow(
			r.ID, r.Name, r.Affiliation, r.SemanticScholarID, r.OpenAlexID, r.ORCID,
			r.HIndex, r.ResearchInterests, r.URL, r.Summary, []byte(nil),
			r.CreatedAt, r.UpdatedAt,
		)
	}
	return rows
}

func TestPgResearcherRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("creates researcher successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()

		mock.ExpectQuery("INSERT INTO researchers").
			WithArgs(
				pgxmock.AnyArg(), researcher.Name, researcher.Affiliation,
				researcher.SemanticScholarID, researcher.OpenAlexID, researcher.ORCID,
				researcher.HIndex, researcher.ResearchInterests, researcher.URL,
				researcher.Summary, pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(researcher.ID, researcher.CreatedAt, researcher.UpdatedAt))

		result, err := repo.Create(ctx, researcher)
		require.NoError(t, err)
		assert.Equal(t, researcher.ID, result.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for missing name", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()
		researcher.Name = ""

		result, err := repo.Create(ctx, researcher)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("returns already exists on duplicate external ID", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()

		mock.ExpectQuery("INSERT INTO researchers").
			WithArgs(
				pgxmock.AnyArg(), researcher.Name, researcher.Affiliation,
				researcher.SemanticScholarID, researcher.OpenAlexID, researcher.ORCID,
				researcher.HIndex, researcher.ResearchInterests, researcher.URL,
				researcher.Summary, pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(),
			).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		result, err := repo.Create(ctx, researcher)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgResearcherRepository_FindByExternalID(t *testing.T) {
	ctx := context.Background()

	t.Run("matches semantic scholar column", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()

		mock.ExpectQuery("SELECT .* FROM researchers WHERE semantic_scholar_id = \\$1").
			WithArgs(researcher.SemanticScholarID).
			WillReturnRows(researcherRows(researcher))

		result, err := repo.FindByExternalID(ctx, domain.SourceTypeSemanticScholar, researcher.SemanticScholarID)
		require.NoError(t, err)
		assert.Equal(t, researcher.ID, result.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("matches openalex column", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()

		mock.ExpectQuery("SELECT .* FROM researchers WHERE openalex_id = \\$1").
			WithArgs(researcher.OpenAlexID).
			WillReturnRows(researcherRows(researcher))

		result, err := repo.FindByExternalID(ctx, domain.SourceTypeOpenAlex, researcher.OpenAlexID)
		require.NoError(t, err)
		assert.Equal(t, researcher.ID, result.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects sources without researcher identifiers", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)

		result, err := repo.FindByExternalID(ctx, domain.SourceTypeCrossref, "anything")
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("returns not found for missing researcher", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)

		mock.ExpectQuery("SELECT .* FROM researchers WHERE semantic_scholar_id = \\$1").
			WithArgs("999999").
			WillReturnError(pgx.ErrNoRows)

		result, err := repo.FindByExternalID(ctx, domain.SourceTypeSemanticScholar, "999999")
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgResearcherRepository_FindByORCID(t *testing.T) {
	ctx := context.Background()

	t.Run("returns researcher when found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()

		mock.ExpectQuery("SELECT .* FROM researchers WHERE orcid = \\$1").
			WithArgs(researcher.ORCID).
			WillReturnRows(researcherRows(researcher))

		result, err := repo.FindByORCID(ctx, researcher.ORCID)
		require.NoError(t, err)
		assert.Equal(t, researcher.ID, result.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgResearcherRepository_FindByName(t *testing.T) {
	ctx := context.Background()

	t.Run("returns all case-insensitive matches", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		first := newTestResearcher()
		second := newTestResearcher()
		second.SemanticScholarID = "50000000"

		mock.ExpectQuery("SELECT .* FROM researchers WHERE LOWER\\(name\\) = LOWER\\(\\$1\\)").
			WithArgs("ashish vaswani").
			WillReturnRows(researcherRows(first, second))

		results, err := repo.FindByName(ctx, "ashish vaswani")
		require.NoError(t, err)
		assert.Len(t, results, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice for no matches", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)

		mock.ExpectQuery("SELECT .* FROM researchers WHERE LOWER\\(name\\) = LOWER\\(\\$1\\)").
			WithArgs("Nobody Known").
			WillReturnRows(researcherRows())

		results, err := repo.FindByName(ctx, "Nobody Known")
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgResearcherRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("updates researcher successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()
		researcher.HIndex = 42

		mock.ExpectQuery("UPDATE researchers SET").
			WithArgs(
				researcher.ID, researcher.Name, researcher.Affiliation,
				researcher.SemanticScholarID, researcher.OpenAlexID, researcher.ORCID,
				researcher.HIndex, researcher.ResearchInterests, researcher.URL,
				researcher.Summary, pgxmock.AnyArg(),
			).
			WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(time.Now().UTC()))

		result, err := repo.Update(ctx, researcher)
		require.NoError(t, err)
		assert.Equal(t, 42, result.HIndex)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing researcher", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)
		researcher := newTestResearcher()

		mock.ExpectQuery("UPDATE researchers SET").
			WithArgs(
				researcher.ID, researcher.Name, researcher.Affiliation,
				researcher.SemanticScholarID, researcher.OpenAlexID, researcher.ORCID,
				researcher.HIndex, researcher.ResearchInterests, researcher.URL,
				researcher.Summary, pgxmock.AnyArg(),
			).
			WillReturnError(pgx.ErrNoRows)

		result, err := repo.Update(ctx, researcher)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgResearcherRepository_AcquireIdentityLock(t *testing.T) {
	ctx := context.Background()

	t.Run("executes advisory lock statement", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)

		mock.ExpectExec("SELECT pg_advisory_xact_lock\\(hashtext\\(\\$1\\)\\)").
			WithArgs("orcid:0000-0002-1825-0097").
			WillReturnResult(pgxmock.NewResult("SELECT", 1))

		err = repo.AcquireIdentityLock(ctx, "orcid:0000-0002-1825-0097")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty key", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgResearcherRepository(mock)

		err = repo.AcquireIdentityLock(ctx, "")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}
