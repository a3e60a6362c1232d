package semanticscholar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/sources"
)

func newTestClient(serverURL string) *Client {
	return NewWithHTTPClient(
		Config{BaseURL: serverURL, Enabled: true},
		sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:    5 * time.Second,
			RateLimit:  100,
			BurstSize:  100,
			MaxRetries: 1,
			RetryDelay: time.Millisecond,
		}),
	)
}

const paperJSON = `{
	"paperId": "649def34f8be52c8b66281af98ae884c09aef38b",
	"externalIds": {"DOI": "10.48550/arXiv.1706.03762", "ArXiv": "1706.03762"},
	"title": "Attention Is All You Need",
	"abstract": "The dominant sequence transduction models...",
	"year": 2017,
	"publicationDate": "2017-06-12",
	"venue": "Neural Information Processing Systems",
	"url": "https://www.semanticscholar.org/paper/649def34",
	"authors": [
		{"authorId": "40348417", "name": "Ashish Vaswani"},
		{"authorId": "1846258", "name": "Noam M. Shazeer"}
	],
	"citationCount": 102392,
	"referenceCount": 41,
	"fieldsOfStudy": ["Computer Science"]
}`

func TestClient_SourceType(t *testing.T) {
	client := New(Config{Enabled: true})

	assert.Equal(t, domain.SourceTypeSemanticScholar, client.SourceType())
	assert.Equal(t, "semantic_scholar", client.Name())
	assert.True(t, client.IsEnabled())
}

func TestClient_LookupByIdentifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/649def34f8be52c8b66281af98ae884c09aef38b", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("fields"), "externalIds")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(paperJSON))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.LookupByIdentifier(context.Background(), "649def34f8be52c8b66281af98ae884c09aef38b")
	require.NoError(t, err)
	require.NotNil(t, result.Paper)

	assert.Equal(t, "Attention Is All You Need", result.Paper.Title)
	assert.Equal(t, "10.48550/arxiv.1706.03762", result.Paper.DOI)
	assert.Equal(t, "Neural Information Processing Systems", result.Paper.Journal)
	assert.Equal(t, 102392, result.Paper.CitationCount)
	assert.Equal(t, "649def34f8be52c8b66281af98ae884c09aef38b", result.Paper.SourceID)
	assert.Equal(t, domain.SourceTypeSemanticScholar, result.Paper.DataSource)
	assert.Equal(t, []string{"Computer Science"}, result.Paper.Keywords)

	require.NotNil(t, result.Paper.PublicationDate)
	assert.Equal(t, 2017, result.Paper.PublicationDate.Year())

	require.Len(t, result.Authors, 2)
	assert.Equal(t, "Ashish Vaswani", result.Authors[0].Name)
	assert.Equal(t, "40348417", result.Authors[0].ExternalID)
}

func TestClient_LookupByIdentifier_DOIPrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/DOI:10.48550/arXiv.1706.03762", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(paperJSON))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.LookupByIdentifier(context.Background(), "10.48550/arXiv.1706.03762")
	require.NoError(t, err)
}

func TestClient_LookupByIdentifier_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Paper not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.LookupByIdentifier(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_LookupByIdentifier_EmptyID(t *testing.T) {
	client := New(Config{Enabled: true})

	_, err := client.LookupByIdentifier(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestClient_LookupByIdentifier_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "internal error"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.LookupByIdentifier(context.Background(), "some-id")
	require.Error(t, err)

	var apiErr *domain.ExternalAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "semantic_scholar", apiErr.Source)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestClient_LookupByTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/paper/search", r.URL.Path)
		assert.Equal(t, "Attention Is All You Need", r.URL.Query().Get("query"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": 1, "offset": 0, "data": [` + paperJSON + `]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.LookupByTitle(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", result.Paper.Title)
	assert.Len(t, result.Authors, 2)
}

func TestClient_LookupByTitle_PicksClosestTitle(t *testing.T) {
	// The search endpoint ranks by relevance to the whole query, which can
	// put a survey or a follow-up paper ahead of the exact title.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": 2, "offset": 0, "data": [
			{"paperId": "survey-1", "title": "A Survey of Attention Mechanisms in Deep Learning", "citationCount": 10},
			` + paperJSON + `
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	result, err := client.LookupByTitle(context.Background(), "Attention Is All You Need")
	require.NoError(t, err)
	assert.Equal(t, "Attention Is All You Need", result.Paper.Title)
	assert.Equal(t, "649def34f8be52c8b66281af98ae884c09aef38b", result.Paper.SourceID)
}

func TestClient_LookupByTitle_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total": 0, "offset": 0, "data": []}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.LookupByTitle(context.Background(), "a title nobody ever wrote")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_AuthorDetails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/author/40348417", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"authorId": "40348417",
			"name": "Ashish Vaswani",
			"url": "https://www.semanticscholar.org/author/40348417",
			"affiliations": ["Google Brain"],
			"hIndex": 38,
			"paperCount": 52,
			"externalIds": {"ORCID": "https://orcid.org/0000-0002-1825-0097"}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	profile, err := client.AuthorDetails(context.Background(), "40348417")
	require.NoError(t, err)

	assert.Equal(t, "40348417", profile.ExternalID)
	assert.Equal(t, "Ashish Vaswani", profile.Name)
	assert.Equal(t, "Google Brain", profile.Affiliation)
	assert.Equal(t, 38, profile.HIndex)
	assert.Equal(t, "0000-0002-1825-0097", profile.ORCID)
}

func TestClient_AuthorDetails_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Author not found"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.AuthorDetails(context.Background(), "0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClient_RateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message": "Too Many Requests"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.LookupByTitle(context.Background(), "any title")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}
