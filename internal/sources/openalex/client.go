// Package openalex provides a client for the OpenAlex API.
package openalex

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
	defaultBaseURL = "https://api.openalex.org"
	sourceName     = "openalex"

	// maxAbstractWords caps abstract reconstruction from the inverted
	// index to guard against pathological responses.
	maxAbstractWords = 100_000
)

// Config holds OpenAlex client configuration.
type Config struct {
	BaseURL    string
	Email      string
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
		c.RateLimit = 10
	}
	if c.BurstSize <= 0 {
		c.BurstSize = 10
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

// Client talks to the OpenAlex API.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.Source = (*Client)(nil)

// New creates an OpenAlex client.
func New(config Config) *Client {
	config.applyDefaults()
	return &Client{
		config: config,
		httpClient: sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:    config.Timeout,
			RateLimit:  config.RateLimit,
			BurstSize:  config.BurstSize,
			MaxRetries: config.MaxRetries,
			RetryDelay: config.RetryDelay,
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
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable source name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is enabled in configuration.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// LookupByIdentifier fetches a work by OpenAlex work ID or DOI. Bare DOIs
// are converted to the doi.org URL form the works endpoint expects.
func (c *Client) LookupByIdentifier(ctx context.Context, id string) (*sources.LookupResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("identifier", "must not be empty")
	}
	if strings.HasPrefix(id, "10.") {
		id = "https://doi.org/" + id
	}

	reqURL := fmt.Sprintf("%s/works/%s?%s", c.config.BaseURL, url.PathEscape(id), c.baseParams().Encode())

	work, err := c.getWork(ctx, reqURL, id)
	if err != nil {
		return nil, err
	}
	return c.convertWork(work), nil
}

// LookupByTitle searches for a work by title and returns the best match.
// Callers are expected to verify the returned title against the query.
func (c *Client) LookupByTitle(ctx context.Context, title string) (*sources.LookupResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	params := c.baseParams()
	params.Set("filter", "title.search:"+sanitizeFilterValue(title))
	params.Set("per-page", fmt.Sprintf("%d", c.config.MaxResults))

	reqURL := fmt.Sprintf("%s/works?%s", c.config.BaseURL, params.Encode())

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

	var result ListResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}

	if len(result.Results) == 0 {
		return nil, domain.NewNotFoundError("work matching title", title)
	}

	// Re-rank the page by title similarity so the closest title wins.
	best, bestSim := &result.Results[0], -1.0
	for i := range result.Results {
		if sim := titles.Similarity(title, result.Results[i].Title); sim > bestSim {
			best, bestSim = &result.Results[i], sim
		}
	}
	return c.convertWork(best), nil
}

// AuthorDetails fetches author profile details by OpenAlex author ID.
func (c *Client) AuthorDetails(ctx context.Context, authorID string) (*sources.AuthorProfile, error) {
	authorID = domain.NormalizeOpenAlexID(authorID)
	if authorID == "" {
		return nil, domain.NewValidationError("author_id", "must not be empty")
	}

	reqURL := fmt.Sprintf("%s/authors/%s?%s", c.config.BaseURL, url.PathEscape(authorID), c.baseParams().Encode())

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

	var result Author
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}

	profile := &sources.AuthorProfile{
		ExternalID: domain.NormalizeOpenAlexID(result.ID),
		Name:       result.DisplayName,
		ORCID:      domain.NormalizeORCID(result.ORCID),
	}
	if result.SummaryStats != nil {
		profile.HIndex = result.SummaryStats.HIndex
	}
	if len(result.LastKnownInstitutions) > 0 {
		profile.Affiliation = result.LastKnownInstitutions[0].DisplayName
	}
	for _, concept := range result.XConcepts {
		if concept.Level <= 1 && concept.DisplayName != "" {
			profile.Interests = append(profile.Interests, concept.DisplayName)
		}
	}
	return profile, nil
}

func (c *Client) getWork(ctx context.Context, reqURL, id string) (*Work, error) {
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
		return nil, domain.NewNotFoundError("work", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var work Work
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&work); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}
	return &work, nil
}

// baseParams returns query parameters sent on every request. Supplying a
// mailto address opts requests into the polite pool.
func (c *Client) baseParams() url.Values {
	params := url.Values{}
	if c.config.Email != "" {
		params.Set("mailto", c.config.Email)
	}
	return params
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var errResp ErrorResponse
	msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Message != "":
			msg = errResp.Message
		case errResp.Error != "":
			msg = errResp.Error
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRateLimitError(sourceName, 0)
	}
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, msg, nil)
}

func (c *Client) convertWork(work *Work) *sources.LookupResult {
	title := work.Title
	if title == "" {
		title = work.DisplayName
	}

	paper := &domain.Paper{
		Title:         title,
		Abstract:      reconstructAbstract(work.AbstractInvertedIndex),
		DOI:           domain.NormalizeDOI(work.DOI),
		CitationCount: work.CitedByCount,
		SourceID:      domain.NormalizeOpenAlexID(work.ID),
		DataSource:    domain.SourceTypeOpenAlex,
	}
	if work.PrimaryLocation != nil {
		paper.URL = work.PrimaryLocation.LandingPageURL
		if work.PrimaryLocation.Source != nil {
			paper.Journal = work.PrimaryLocation.Source.DisplayName
		}
	}
	if date := parsePublicationDate(work.PublicationDate, work.PublicationYear); date != nil {
		paper.PublicationDate = date
	}
	for _, concept := range work.Concepts {
		if concept.Level <= 1 && concept.Score >= 0.3 && concept.DisplayName != "" {
			paper.Keywords = append(paper.Keywords, concept.DisplayName)
		}
	}
	paper.RawMetadata = map[string]interface{}{
		"openalex_id":      domain.NormalizeOpenAlexID(work.ID),
		"publication_year": work.PublicationYear,
		"type":             work.Type,
		"language":         work.Language,
	}

	authors := make([]sources.Author, 0, len(work.Authorships))
	for _, authorship := range work.Authorships {
		if strings.TrimSpace(authorship.Author.DisplayName) == "" {
			continue
		}
		author := sources.Author{
			Name:       authorship.Author.DisplayName,
			ExternalID: domain.NormalizeOpenAlexID(authorship.Author.ID),
			ORCID:      domain.NormalizeORCID(authorship.Author.ORCID),
		}
		if len(authorship.Institutions) > 0 {
			author.Affiliation = authorship.Institutions[0].DisplayName
		}
		authors = append(authors, author)
	}

	return &sources.LookupResult{Paper: paper, Authors: authors}
}

// reconstructAbstract rebuilds abstract text from OpenAlex's inverted
// index representation, which maps each word to its positions.
func reconstructAbstract(index map[string][]int) string {
	if len(index) == 0 {
		return ""
	}

	maxPos := -1
	total := 0
	for _, positions := range index {
		total += len(positions)
		for _, pos := range positions {
			if pos > maxPos {
				maxPos = pos
			}
		}
	}
	if maxPos < 0 || maxPos >= maxAbstractWords || total > maxAbstractWords {
		return ""
	}

	words := make([]string, maxPos+1)
	for word, positions := range index {
		for _, pos := range positions {
			if pos >= 0 && pos <= maxPos {
				words[pos] = word
			}
		}
	}

	filtered := words[:0]
	for _, w := range words {
		if w != "" {
			filtered = append(filtered, w)
		}
	}
	return strings.Join(filtered, " ")
}

// sanitizeFilterValue strips characters that have structural meaning in
// OpenAlex filter expressions.
func sanitizeFilterValue(value string) string {
	value = strings.ReplaceAll(value, ",", " ")
	value = strings.ReplaceAll(value, ":", " ")
	return strings.Join(strings.Fields(value), " ")
}

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
