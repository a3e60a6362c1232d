package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchhub/paper-import-service/internal/domain"
)

func TestGetPaper(t *testing.T) {
	fx := newFixture()
	paper := &domain.Paper{
		ID:            uuid.New(),
		Title:         "Attention Is All You Need",
		DOI:           "10.48550/arxiv.1706.03762",
		CitationCount: 90000,
		DataSource:    domain.SourceTypeSemanticScholar,
		ImportStatus:  domain.ImportStatusSuccess,
		CreatedAt:     time.Now().UTC(),
	}
	fx.papers.papers[paper.ID] = paper

	first := &domain.Researcher{ID: uuid.New(), Name: "Ashish Vaswani", Affiliation: "Google Brain"}
	second := &domain.Researcher{ID: uuid.New(), Name: "Noam Shazeer"}
	fx.researchers.researchers[first.ID] = first
	fx.researchers.researchers[second.ID] = second
	fx.authorships.byPaper[paper.ID] = []*domain.Authorship{
		{PaperID: paper.ID, ResearcherID: first.ID, Position: 0, AuthorPosition: domain.AuthorPositionFirst},
		{PaperID: paper.ID, ResearcherID: second.ID, Position: 1, AuthorPosition: domain.AuthorPositionCo},
	}

	rec := fx.do(t, http.MethodGet, "/api/v1/papers/"+paper.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp paperDetailResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Attention Is All You Need", resp.Title)
	assert.Equal(t, "10.48550/arxiv.1706.03762", resp.DOI)
	require.Len(t, resp.Authors, 2)
	assert.Equal(t, "Ashish Vaswani", resp.Authors[0].Name)
	assert.Equal(t, string(domain.AuthorPositionFirst), resp.Authors[0].AuthorPosition)
	assert.Equal(t, 1, resp.Authors[1].Position)
}

func TestGetPaper_NotFound(t *testing.T) {
	fx := newFixture()

	rec := fx.do(t, http.MethodGet, "/api/v1/papers/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPaper_InvalidUUID(t *testing.T) {
	fx := newFixture()

	rec := fx.do(t, http.MethodGet, "/api/v1/papers/abc123", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPapers(t *testing.T) {
	fx := newFixture()
	fx.papers.papers[uuid.New()] = &domain.Paper{ID: uuid.New(), Title: "Attention Is All You Need"}
	fx.papers.papers[uuid.New()] = &domain.Paper{ID: uuid.New(), Title: "Deep Residual Learning for Image Recognition"}

	rec := fx.do(t, http.MethodGet, "/api/v1/papers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listPapersResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Len(t, resp.Papers, 2)
}
