// Package semanticscholar provides a client for the Semantic Scholar
// Academic Graph API.
package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/sources"
	"github.com/researchhub/paper-import-service/internal/titles"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1"
	sourceName     = "semantic_scholar"

	// paperFields lists the fields requested on every paper lookup.
	paperFields = "paperId,externalIds,title,abstract,year,publicationDate,venue,journal,url,authors,citationCount,referenceCount,fieldsOfStudy"

	// authorFields lists the fields requested on author lookups.
	authorFields = "authorId,name,url,affiliations,hIndex,paperCount,externalIds"
)

// Config holds Semantic Scholar client configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RateLimit  float64
	BurstSize  int
	MaxRetries int
	RetryDelay time.Duration
	MaxResults int
	Enabled    bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit <= 0 {
		c.RateLimit = 1
	}
	if c.BurstSize <= 0 {
		c.BurstSize = 1
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 5
	}
}

// Client talks to the Semantic Scholar Graph API.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.Source = (*Client)(nil)

// New creates a Semantic Scholar client.
func New(config Config) *Client {
	config.applyDefaults()
	return &Client{
		config: config,
		httpClient: sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:      config.Timeout,
			RateLimit:    config.RateLimit,
			BurstSize:    config.BurstSize,
			MaxRetries:   config.MaxRetries,
			RetryDelay:   config.RetryDelay,
			APIKey:       config.APIKey,
			APIKeyHeader: "x-api-key",
		}),
	}
}

// NewWithHTTPClient creates a client with a custom HTTP client, used in tests.
func NewWithHTTPClient(config Config, httpClient *sources.HTTPClient) *Client {
	config.applyDefaults()
	return &Client{config: config, httpClient: httpClient}
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable source name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is enabled in configuration.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// LookupByIdentifier fetches a paper by Semantic Scholar paper ID or DOI.
// Bare DOIs are prefixed with "DOI:" as the Graph API expects.
func (c *Client) LookupByIdentifier(ctx context.Context, id string) (*sources.LookupResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("identifier", "must not be empty")
	}
	if strings.HasPrefix(id, "10.") {
		id = "DOI:" + id
	}

	reqURL := fmt.Sprintf("%s/paper/%s?fields=%s", c.config.BaseURL, url.PathEscape(id), url.QueryEscape(paperFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "failed to create request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("paper", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result PaperResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}

	return c.convertResult(&result), nil
}

// LookupByTitle searches for a paper by title and returns the best match.
// Callers are expected to verify the returned title against the query.
func (c *Client) LookupByTitle(ctx context.Context, title string) (*sources.LookupResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	params := url.Values{}
	params.Set("query", title)
	params.Set("limit", fmt.Sprintf("%d", c.config.MaxResults))
	params.Set("fields", paperFields)

	reqURL := fmt.Sprintf("%s/paper/search?%s", c.config.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "failed to create request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}

	if len(result.Data) == 0 {
		return nil, domain.NewNotFoundError("paper matching title", title)
	}

	// The search endpoint ranks by full-query relevance; re-rank the page
	// by title similarity so the closest title wins.
	best, bestSim := &result.Data[0], -1.0
	for i := range result.Data {
		if sim := titles.Similarity(title, result.Data[i].Title); sim > bestSim {
			best, bestSim = &result.Data[i], sim
		}
	}
	return c.convertResult(best), nil
}

// AuthorDetails fetches author profile details by Semantic Scholar author ID.
func (c *Client) AuthorDetails(ctx context.Context, authorID string) (*sources.AuthorProfile, error) {
	authorID = strings.TrimSpace(authorID)
	if authorID == "" {
		return nil, domain.NewValidationError("author_id", "must not be empty")
	}

	reqURL := fmt.Sprintf("%s/author/%s?fields=%s", c.config.BaseURL, url.PathEscape(authorID), url.QueryEscape(authorFields))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "failed to create request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewExternalAPIError(sourceName, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("author", authorID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result AuthorResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}

	profile := &sources.AuthorProfile{
		ExternalID: result.AuthorID,
		Name:       result.Name,
		URL:        result.URL,
		HIndex:     result.HIndex,
	}
	if len(result.Affiliations) > 0 {
		profile.Affiliation = result.Affiliations[0]
	}
	if result.ExternalIDs != nil {
		profile.ORCID = domain.NormalizeORCID(result.ExternalIDs.ORCID)
	}
	return profile, nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var errResp ErrorResponse
	msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			msg = errResp.Error
		case errResp.Message != "":
			msg = errResp.Message
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRateLimitError(sourceName, 0)
	}
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, msg, nil)
}

func (c *Client) convertResult(result *PaperResult) *sources.LookupResult {
	paper := &domain.Paper{
		Title:         result.Title,
		Abstract:      result.Abstract,
		Journal:       result.Venue,
		URL:           result.URL,
		CitationCount: result.CitationCount,
		Keywords:      result.FieldsOfStudy,
		SourceID:      result.PaperID,
		DataSource:    domain.SourceTypeSemanticScholar,
	}
	if result.Journal != nil && result.Journal.Name != "" {
		paper.Journal = result.Journal.Name
	}
	if result.ExternalIDs != nil {
		paper.DOI = domain.NormalizeDOI(result.ExternalIDs.DOI)
	}
	if date := parsePublicationDate(result.PublicationDate, result.Year); date != nil {
		paper.PublicationDate = date
	}
	paper.RawMetadata = map[string]interface{}{
		"paper_id":        result.PaperID,
		"year":            result.Year,
		"venue":           result.Venue,
		"reference_count": result.ReferenceCount,
	}

	authors := make([]sources.Author, 0, len(result.Authors))
	for _, a := range result.Authors {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		authors = append(authors, sources.Author{
			Name:       a.Name,
			ExternalID: a.AuthorID,
		})
	}

	return &sources.LookupResult{Paper: paper, Authors: authors}
}

// parsePublicationDate parses the API's date string, falling back to
// January 1st of the publication year when only the year is known.
func parsePublicationDate(date string, year int) *time.Time {
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			return &t
		}
	}
	if year > 0 {
		t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return nil
}
