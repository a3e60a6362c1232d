//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/repository"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestPgPaperRepository_Integration(t *testing.T) {
	cleanTable(t, "papers")
	repo := repository.NewPgPaperRepository(testPool)
	ctx := context.Background()

	t.Run("Create and Get roundtrip", func(t *testing.T) {
		paper := &domain.Paper{
			Title:           "Attention Is All You Need",
			Abstract:        "The dominant sequence transduction models are based on complex recurrent networks.",
			DOI:             "10.48550/arxiv.1706.03762",
			Journal:         "NeurIPS",
			PublicationDate: timePtr(time.Date(2017, 6, 12, 0, 0, 0, 0, time.UTC)),
			CitationCount:   90000,
			Keywords:        []string{"transformers", "attention"},
			SourceID:        "649def34f8be52c8b66281af98ae884c09aef38b",
			DataSource:      domain.SourceTypeSemanticScholar,
			ImportStatus:    domain.ImportStatusSuccess,
			RawMetadata:     map[string]interface{}{"semantic_scholar": map[string]interface{}{"venue": "NeurIPS"}},
		}

		created, err := repo.Create(ctx, paper)
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, created.ID)

		got, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Attention Is All You Need", got.Title)
		assert.Equal(t, []string{"transformers", "attention"}, got.Keywords)
		assert.Equal(t, domain.SourceTypeSemanticScholar, got.DataSource)
		assert.Contains(t, got.RawMetadata, "semantic_scholar")
	})

	t.Run("FindByDOI is case-insensitive", func(t *testing.T) {
		got, err := repo.FindByDOI(ctx, "10.48550/ARXIV.1706.03762")
		require.NoError(t, err)
		assert.Equal(t, "Attention Is All You Need", got.Title)
	})

	t.Run("Duplicate DOI returns already exists", func(t *testing.T) {
		_, err := repo.Create(ctx, &domain.Paper{
			Title:        "A Different Paper With The Same DOI",
			DOI:          "10.48550/arxiv.1706.03762",
			ImportStatus: domain.ImportStatusPending,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("FindByTitle is case-insensitive exact", func(t *testing.T) {
		got, err := repo.FindByTitle(ctx, "attention is all you need")
		require.NoError(t, err)
		assert.Equal(t, "10.48550/arxiv.1706.03762", got.DOI)

		_, err = repo.FindByTitle(ctx, "attention is all")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("FindBySourceID", func(t *testing.T) {
		got, err := repo.FindBySourceID(ctx, domain.SourceTypeSemanticScholar, "649def34f8be52c8b66281af98ae884c09aef38b")
		require.NoError(t, err)
		assert.Equal(t, "Attention Is All You Need", got.Title)

		_, err = repo.FindBySourceID(ctx, domain.SourceTypeOpenAlex, "649def34f8be52c8b66281af98ae884c09aef38b")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Update persists enrichment fields", func(t *testing.T) {
		paper, err := repo.FindByDOI(ctx, "10.48550/arxiv.1706.03762")
		require.NoError(t, err)

		paper.CitationCount = 95000
		paper.ImportError = ""
		paper.LastImportAttempt = timePtr(time.Now().UTC())

		updated, err := repo.Update(ctx, paper)
		require.NoError(t, err)
		assert.Equal(t, 95000, updated.CitationCount)
		require.NotNil(t, updated.LastImportAttempt)
	})

	t.Run("List filters by import status newest first", func(t *testing.T) {
		_, err := repo.Create(ctx, &domain.Paper{
			Title:        "A Pending Paper Awaiting Enrichment",
			ImportStatus: domain.ImportStatusPending,
		})
		require.NoError(t, err)

		pending := domain.ImportStatusPending
		papers, total, err := repo.List(ctx, repository.PaperFilter{ImportStatus: &pending})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, papers, 1)
		assert.Equal(t, "A Pending Paper Awaiting Enrichment", papers[0].Title)
	})
}

func TestPgResearcherRepository_Integration(t *testing.T) {
	cleanTable(t, "researchers")
	repo := repository.NewPgResearcherRepository(testPool)
	ctx := context.Background()

	t.Run("Create and find by external id", func(t *testing.T) {
		researcher := &domain.Researcher{
			Name:              "Ashish Vaswani",
			Affiliation:       "Google Brain",
			SemanticScholarID: "40348417",
			ORCID:             "0000-0002-1825-0097",
			HIndex:            38,
			ResearchInterests: []string{"Machine Learning"},
		}

		created, err := repo.Create(ctx, researcher)
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, created.ID)

		got, err := repo.FindByExternalID(ctx, domain.SourceTypeSemanticScholar, "40348417")
		require.NoError(t, err)
		assert.Equal(t, "Ashish Vaswani", got.Name)
		assert.Equal(t, 38, got.HIndex)
	})

	t.Run("Duplicate external id returns already exists", func(t *testing.T) {
		_, err := repo.Create(ctx, &domain.Researcher{
			Name:              "Someone Else",
			SemanticScholarID: "40348417",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})

	t.Run("FindByORCID", func(t *testing.T) {
		got, err := repo.FindByORCID(ctx, "0000-0002-1825-0097")
		require.NoError(t, err)
		assert.Equal(t, "Ashish Vaswani", got.Name)
	})

	t.Run("FindByName is case-insensitive", func(t *testing.T) {
		matches, err := repo.FindByName(ctx, "ashish vaswani")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "40348417", matches[0].SemanticScholarID)
	})

	t.Run("Update merges profile fields", func(t *testing.T) {
		researcher, err := repo.FindByExternalID(ctx, domain.SourceTypeSemanticScholar, "40348417")
		require.NoError(t, err)

		researcher.HIndex = 42
		researcher.OpenAlexID = "A5023888391"

		updated, err := repo.Update(ctx, researcher)
		require.NoError(t, err)
		assert.Equal(t, 42, updated.HIndex)

		got, err := repo.FindByExternalID(ctx, domain.SourceTypeOpenAlex, "A5023888391")
		require.NoError(t, err)
		assert.Equal(t, researcher.ID, got.ID)
	})

	t.Run("AcquireIdentityLock inside transaction", func(t *testing.T) {
		tx, err := testPool.Begin(ctx)
		require.NoError(t, err)
		defer tx.Rollback(ctx)

		txRepo := repository.NewPgResearcherRepository(tx)
		require.NoError(t, txRepo.AcquireIdentityLock(ctx, "semantic_scholar:40348417"))
	})
}

func TestPgAuthorshipRepository_Integration(t *testing.T) {
	cleanTable(t, "authorships", "researchers", "papers")
	papers := repository.NewPgPaperRepository(testPool)
	researchers := repository.NewPgResearcherRepository(testPool)
	repo := repository.NewPgAuthorshipRepository(testPool)
	ctx := context.Background()

	paper, err := papers.Create(ctx, &domain.Paper{
		Title:        "Deep Residual Learning for Image Recognition",
		ImportStatus: domain.ImportStatusPending,
	})
	require.NoError(t, err)

	researcher, err := researchers.Create(ctx, &domain.Researcher{Name: "Kaiming He"})
	require.NoError(t, err)

	t.Run("Link is idempotent on paper and researcher", func(t *testing.T) {
		created, err := repo.Link(ctx, &domain.Authorship{
			PaperID:        paper.ID,
			ResearcherID:   researcher.ID,
			Position:       0,
			AuthorPosition: domain.AuthorPositionFirst,
		})
		require.NoError(t, err)
		assert.True(t, created)

		created, err = repo.Link(ctx, &domain.Authorship{
			PaperID:        paper.ID,
			ResearcherID:   researcher.ID,
			Position:       0,
			AuthorPosition: domain.AuthorPositionFirst,
		})
		require.NoError(t, err)
		assert.False(t, created)

		links, err := repo.ListByPaper(ctx, paper.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, domain.AuthorPositionFirst, links[0].AuthorPosition)
	})

	t.Run("ListByResearcher", func(t *testing.T) {
		links, err := repo.ListByResearcher(ctx, researcher.ID)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, paper.ID, links[0].PaperID)
	})
}

func TestPgImportJobRepository_Integration(t *testing.T) {
	cleanTable(t, "import_jobs")
	repo := repository.NewPgImportJobRepository(testPool)
	ctx := context.Background()

	t.Run("Create, update counters and fetch", func(t *testing.T) {
		job, err := repo.Create(ctx, &domain.ImportJob{
			Status: domain.JobStatusProcessing,
			Total:  3,
		})
		require.NoError(t, err)

		existingID := uuid.New()
		job.Processed = 2
		job.Successful = 1
		job.Duplicates = 1
		job.RecordError("A Duplicate Paper About Chemistry", "paper already exists (matched on doi)", domain.ImportErrorTypeDuplicate, &existingID)
		require.NoError(t, repo.Update(ctx, job))

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Processed)
		assert.Equal(t, got.Processed, got.Successful+got.Duplicates+got.Failed)
		require.Len(t, got.Errors, 1)
		assert.Equal(t, existingID, *got.Errors[0].PaperID)
		assert.Equal(t, 67, got.ProgressPercentage())
	})

	t.Run("List returns newest first", func(t *testing.T) {
		first, err := repo.Create(ctx, &domain.ImportJob{Status: domain.JobStatusProcessing, Total: 1})
		require.NoError(t, err)
		second, err := repo.Create(ctx, &domain.ImportJob{Status: domain.JobStatusProcessing, Total: 1})
		require.NoError(t, err)

		jobs, total, err := repo.List(ctx, repository.ImportJobFilter{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, total, int64(2))
		require.GreaterOrEqual(t, len(jobs), 2)

		// The most recently created job sorts before the older one.
		var firstIdx, secondIdx int
		for i, j := range jobs {
			if j.ID == first.ID {
				firstIdx = i
			}
			if j.ID == second.ID {
				secondIdx = i
			}
		}
		assert.Less(t, secondIdx, firstIdx)
	})

	t.Run("Filter by status", func(t *testing.T) {
		job, err := repo.Create(ctx, &domain.ImportJob{Status: domain.JobStatusProcessing, Total: 1})
		require.NoError(t, err)

		now := time.Now().UTC()
		job.Status = domain.JobStatusCompleted
		job.Processed = 1
		job.Successful = 1
		job.CompletedAt = &now
		require.NoError(t, repo.Update(ctx, job))

		completed := domain.JobStatusCompleted
		jobs, _, err := repo.List(ctx, repository.ImportJobFilter{Status: &completed})
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, job.ID, jobs[0].ID)
		require.NotNil(t, jobs[0].CompletedAt)
	})
}
