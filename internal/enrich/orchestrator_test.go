package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/observability"
	"github.com/researchhub/paper-import-service/internal/sources"
)

// Shared across tests: promauto registers against the default registry,
// so metrics are created once per package.
var testMetrics = observability.NewMetrics("test_enrich")

// fakeSource is a canned-response sources.Source for cascade tests.
type fakeSource struct {
	name       string
	sourceType domain.SourceType
	enabled    bool

	byIdentifier *sources.LookupResult
	byTitle      *sources.LookupResult
	idErr        error
	titleErr     error

	idCalls    int
	titleCalls int
}

func (f *fakeSource) LookupByIdentifier(ctx context.Context, id string) (*sources.LookupResult, error) {
	f.idCalls++
	if f.idErr != nil {
		return nil, f.idErr
	}
	return f.byIdentifier, nil
}

func (f *fakeSource) LookupByTitle(ctx context.Context, title string) (*sources.LookupResult, error) {
	f.titleCalls++
	if f.titleErr != nil {
		return nil, f.titleErr
	}
	return f.byTitle, nil
}

func (f *fakeSource) AuthorDetails(ctx context.Context, authorID string) (*sources.AuthorProfile, error) {
	return nil, domain.NewNotFoundError("author", authorID)
}

func (f *fakeSource) SourceType() domain.SourceType { return f.sourceType }
func (f *fakeSource) Name() string                  { return f.name }
func (f *fakeSource) IsEnabled() bool               { return f.enabled }

func lookupResult(title string, authors ...sources.Author) *sources.LookupResult {
	return &sources.LookupResult{
		Paper: &domain.Paper{
			Title:         title,
			Abstract:      "An abstract describing transformer architectures.",
			DOI:           "10.48550/arxiv.1706.03762",
			Journal:       "NeurIPS",
			URL:           "https://example.org/paper",
			CitationCount: 1000,
			Keywords:      []string{"Computer Science"},
			SourceID:      "source-id-1",
			RawMetadata:   map[string]interface{}{"year": 2017},
		},
		Authors: authors,
	}
}

func newTestOrchestrator(cascade ...sources.Source) *Orchestrator {
	return NewOrchestrator(cascade, Config{MinTitleSimilarity: 0.5}, zerolog.Nop(), testMetrics)
}

func TestOrchestrator_Enrich_FirstTierHit(t *testing.T) {
	s2 := &fakeSource{
		name:       "semantic_scholar",
		sourceType: domain.SourceTypeSemanticScholar,
		enabled:    true,
		byTitle:    lookupResult("Attention Is All You Need", sources.Author{Name: "Ashish Vaswani", ExternalID: "40348417"}),
	}
	openalex := &fakeSource{name: "openalex", sourceType: domain.SourceTypeOpenAlex, enabled: true}

	orch := newTestOrchestrator(s2, openalex)
	paper := &domain.Paper{Title: "Attention Is All You Need"}

	outcome := orch.Enrich(context.Background(), paper)

	assert.True(t, outcome.Enriched)
	assert.Equal(t, domain.SourceTypeSemanticScholar, outcome.Source)
	assert.Equal(t, []string{"semantic_scholar"}, outcome.Attempted)
	require.Len(t, outcome.Authors, 1)
	assert.Equal(t, "Ashish Vaswani", outcome.Authors[0].Name)

	assert.Equal(t, domain.ImportStatusSuccess, paper.ImportStatus)
	assert.Empty(t, paper.ImportError)
	require.NotNil(t, paper.LastImportAttempt)
	assert.WithinDuration(t, time.Now().UTC(), *paper.LastImportAttempt, time.Minute)

	// Second tier never consulted.
	assert.Equal(t, 0, openalex.titleCalls)
}

func TestOrchestrator_Enrich_FallsThroughCascade(t *testing.T) {
	s2 := &fakeSource{
		name:       "semantic_scholar",
		sourceType: domain.SourceTypeSemanticScholar,
		enabled:    true,
		titleErr:   domain.NewNotFoundError("paper", "x"),
	}
	openalex := &fakeSource{
		name:       "openalex",
		sourceType: domain.SourceTypeOpenAlex,
		enabled:    true,
		titleErr:   domain.NewExternalAPIError("openalex", 503, "unavailable", nil),
	}
	crossref := &fakeSource{
		name:       "crossref",
		sourceType: domain.SourceTypeCrossref,
		enabled:    true,
		byTitle:    lookupResult("Attention Is All You Need"),
	}

	orch := newTestOrchestrator(s2, openalex, crossref)
	paper := &domain.Paper{Title: "Attention Is All You Need"}

	outcome := orch.Enrich(context.Background(), paper)

	assert.True(t, outcome.Enriched)
	assert.Equal(t, domain.SourceTypeCrossref, outcome.Source)
	assert.Equal(t, []string{"semantic_scholar", "openalex", "crossref"}, outcome.Attempted)
	assert.Equal(t, domain.SourceTypeCrossref, paper.DataSource)
}

func TestOrchestrator_Enrich_DOILookupFirst(t *testing.T) {
	s2 := &fakeSource{
		name:         "semantic_scholar",
		sourceType:   domain.SourceTypeSemanticScholar,
		enabled:      true,
		byIdentifier: lookupResult("Attention Is All You Need"),
	}

	orch := newTestOrchestrator(s2)
	paper := &domain.Paper{Title: "Attention Is All You Need", DOI: "10.48550/arxiv.1706.03762"}

	outcome := orch.Enrich(context.Background(), paper)

	assert.True(t, outcome.Enriched)
	assert.Equal(t, 1, s2.idCalls)
	assert.Equal(t, 0, s2.titleCalls)
}

func TestOrchestrator_Enrich_RejectsTitleMismatch(t *testing.T) {
	s2 := &fakeSource{
		name:       "semantic_scholar",
		sourceType: domain.SourceTypeSemanticScholar,
		enabled:    true,
		byTitle:    lookupResult("A Completely Unrelated Study of Marine Biology"),
	}
	crossref := &fakeSource{
		name:       "crossref",
		sourceType: domain.SourceTypeCrossref,
		enabled:    true,
		byTitle:    lookupResult("Attention Is All You Need"),
	}

	orch := newTestOrchestrator(s2, crossref)
	paper := &domain.Paper{Title: "Attention Is All You Need"}

	outcome := orch.Enrich(context.Background(), paper)

	assert.True(t, outcome.Enriched)
	assert.Equal(t, domain.SourceTypeCrossref, outcome.Source)
}

func TestOrchestrator_Enrich_SkipsDisabledSources(t *testing.T) {
	disabled := &fakeSource{name: "semantic_scholar", sourceType: domain.SourceTypeSemanticScholar, enabled: false}
	openalex := &fakeSource{
		name:       "openalex",
		sourceType: domain.SourceTypeOpenAlex,
		enabled:    true,
		byTitle:    lookupResult("Attention Is All You Need"),
	}

	orch := newTestOrchestrator(disabled, openalex)
	paper := &domain.Paper{Title: "Attention Is All You Need"}

	outcome := orch.Enrich(context.Background(), paper)

	assert.True(t, outcome.Enriched)
	assert.Equal(t, []string{"openalex"}, outcome.Attempted)
	assert.Equal(t, 0, disabled.titleCalls)
}

func TestOrchestrator_Enrich_CascadeExhausted(t *testing.T) {
	notFound := domain.NewNotFoundError("paper", "x")
	s2 := &fakeSource{name: "semantic_scholar", sourceType: domain.SourceTypeSemanticScholar, enabled: true, titleErr: notFound}
	openalex := &fakeSource{name: "openalex", sourceType: domain.SourceTypeOpenAlex, enabled: true, titleErr: notFound}
	crossref := &fakeSource{name: "crossref", sourceType: domain.SourceTypeCrossref, enabled: true, titleErr: notFound}

	orch := newTestOrchestrator(s2, openalex, crossref)
	paper := &domain.Paper{Title: "An Unfindable Manuscript About Nothing"}

	outcome := orch.Enrich(context.Background(), paper)

	assert.False(t, outcome.Enriched)
	assert.Equal(t, domain.ImportStatusFailed, paper.ImportStatus)
	assert.Contains(t, paper.ImportError, "semantic_scholar")
	assert.Contains(t, paper.ImportError, "openalex")
	assert.Contains(t, paper.ImportError, "crossref")
	require.NotNil(t, paper.LastImportAttempt)
}

func TestOrchestrator_Enrich_MergePolicy(t *testing.T) {
	found := lookupResult("Attention Is All You Need")
	found.Paper.Abstract = "Provider abstract."
	found.Paper.Journal = "Provider Journal"
	found.Paper.CitationCount = 5000

	s2 := &fakeSource{
		name:       "semantic_scholar",
		sourceType: domain.SourceTypeSemanticScholar,
		enabled:    true,
		byTitle:    found,
	}

	orch := newTestOrchestrator(s2)

	userDate := time.Date(2017, time.June, 1, 0, 0, 0, 0, time.UTC)
	paper := &domain.Paper{
		Title:           "Attention Is All You Need",
		Abstract:        "User-supplied abstract.",
		Journal:         "",
		PublicationDate: &userDate,
		CitationCount:   3,
		Keywords:        []string{"Transformers"},
	}

	outcome := orch.Enrich(context.Background(), paper)
	require.True(t, outcome.Enriched)

	// Fill-if-missing: user abstract and publication date survive.
	assert.Equal(t, "User-supplied abstract.", paper.Abstract)
	assert.Equal(t, userDate, *paper.PublicationDate)
	assert.Equal(t, "Provider Journal", paper.Journal)
	assert.Equal(t, "10.48550/arxiv.1706.03762", paper.DOI)

	// Always refreshed.
	assert.Equal(t, 5000, paper.CitationCount)
	assert.Equal(t, "source-id-1", paper.SourceID)
	assert.Equal(t, domain.SourceTypeSemanticScholar, paper.DataSource)

	// Keywords unioned; raw payload namespaced under the source.
	assert.Equal(t, []string{"Transformers", "Computer Science"}, paper.Keywords)
	assert.Contains(t, paper.RawMetadata, "semantic_scholar")
}
