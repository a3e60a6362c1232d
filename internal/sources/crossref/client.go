// Package crossref provides a client for the Crossref REST API.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/sources"
	"github.com/researchhub/paper-import-service/internal/titles"
)

const (
	defaultBaseURL = "https://api.crossref.org"
	sourceName     = "crossref"
)

// Config holds Crossref client configuration.
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
		c.RateLimit = 5
	}
	if c.BurstSize <= 0 {
		c.BurstSize = 5
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

// Client talks to the Crossref REST API.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

var _ sources.Source = (*Client)(nil)

// New creates a Crossref client. Supplying an email address identifies
// the caller for Crossref's polite pool.
func New(config Config) *Client {
	config.applyDefaults()
	userAgent := "ResearchHub-PaperImport/1.0"
	if config.Email != "" {
		userAgent = fmt.Sprintf("ResearchHub-PaperImport/1.0 (mailto:%s)", config.Email)
	}
	return &Client{
		config: config,
		httpClient: sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:    config.Timeout,
			RateLimit:  config.RateLimit,
			BurstSize:  config.BurstSize,
			MaxRetries: config.MaxRetries,
			RetryDelay: config.RetryDelay,
			UserAgent:  userAgent,
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
	return domain.SourceTypeCrossref
}

// Name returns the human-readable source name.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled reports whether the source is enabled in configuration.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// LookupByIdentifier fetches a work by DOI. Crossref has no identifiers
// of its own, so anything that is not a DOI is rejected.
func (c *Client) LookupByIdentifier(ctx context.Context, id string) (*sources.LookupResult, error) {
	doi := domain.NormalizeDOI(id)
	if doi == "" {
		return nil, domain.NewValidationError("identifier", "must not be empty")
	}
	if !strings.HasPrefix(doi, "10.") {
		return nil, domain.NewValidationError("identifier", "crossref lookups require a DOI")
	}

	reqURL := fmt.Sprintf("%s/works/%s", c.config.BaseURL, url.PathEscape(doi))

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
		return nil, domain.NewNotFoundError("work", doi)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var result WorkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}

	return c.convertWork(&result.Message), nil
}

// LookupByTitle searches for a work by bibliographic title and returns
// the best match. Callers are expected to verify the returned title
// against the query.
func (c *Client) LookupByTitle(ctx context.Context, title string) (*sources.LookupResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	params := url.Values{}
	params.Set("query.title", title)
	params.Set("rows", fmt.Sprintf("%d", c.config.MaxResults))

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

	var result SearchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, "failed to decode response", err)
	}

	if len(result.Message.Items) == 0 {
		return nil, domain.NewNotFoundError("work matching title", title)
	}

	// Re-rank the page by title similarity so the closest title wins.
	items := result.Message.Items
	best, bestSim := &items[0], -1.0
	for i := range items {
		if len(items[i].Title) == 0 {
			continue
		}
		if sim := titles.Similarity(title, items[i].Title[0]); sim > bestSim {
			best, bestSim = &items[i], sim
		}
	}
	return c.convertWork(best), nil
}

// AuthorDetails always fails: Crossref records authors inline on works
// and has no author profile endpoint.
func (c *Client) AuthorDetails(ctx context.Context, authorID string) (*sources.AuthorProfile, error) {
	return nil, domain.NewNotFoundError("author", authorID)
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	msg := fmt.Sprintf("unexpected status %d", resp.StatusCode)
	if len(body) > 0 && len(body) < 512 {
		msg = strings.TrimSpace(string(body))
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewRateLimitError(sourceName, 0)
	}
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, msg, nil)
}

func (c *Client) convertWork(work *Work) *sources.LookupResult {
	paper := &domain.Paper{
		Abstract:      stripJATS(work.Abstract),
		DOI:           domain.NormalizeDOI(work.DOI),
		URL:           work.URL,
		CitationCount: work.IsReferencedByCount,
		Keywords:      work.Subject,
		SourceID:      domain.NormalizeDOI(work.DOI),
		DataSource:    domain.SourceTypeCrossref,
	}
	if len(work.Title) > 0 {
		paper.Title = work.Title[0]
	}
	if len(work.ContainerTitle) > 0 {
		paper.Journal = work.ContainerTitle[0]
	}
	if date := parseDateParts(work.Issued); date != nil {
		paper.PublicationDate = date
	}
	paper.RawMetadata = map[string]interface{}{
		"publisher":        work.Publisher,
		"type":             work.Type,
		"references_count": work.ReferencesCount,
	}

	authors := make([]sources.Author, 0, len(work.Author))
	for _, a := range work.Author {
		name := authorName(a)
		if name == "" {
			continue
		}
		author := sources.Author{
			Name:  name,
			ORCID: domain.NormalizeORCID(a.ORCID),
		}
		if len(a.Affiliation) > 0 {
			author.Affiliation = a.Affiliation[0].Name
		}
		authors = append(authors, author)
	}

	return &sources.LookupResult{Paper: paper, Authors: authors}
}

// authorName joins given and family names, falling back to the literal
// name field used for organizations.
func authorName(a Author) string {
	name := strings.TrimSpace(strings.TrimSpace(a.Given) + " " + strings.TrimSpace(a.Family))
	if name == "" {
		name = strings.TrimSpace(a.Name)
	}
	return name
}

// parseDateParts converts Crossref's [year, month, day] tuples into a
// time, defaulting missing month and day to 1.
func parseDateParts(issued *DateParts) *time.Time {
	if issued == nil || len(issued.DateParts) == 0 || len(issued.DateParts[0]) == 0 {
		return nil
	}
	parts := issued.DateParts[0]

	year := parts[0]
	if year <= 0 {
		return nil
	}
	month := time.January
	if len(parts) > 1 && parts[1] >= 1 && parts[1] <= 12 {
		month = time.Month(parts[1])
	}
	day := 1
	if len(parts) > 2 && parts[2] >= 1 && parts[2] <= 31 {
		day = parts[2]
	}

	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

var jatsTagPattern = regexp.MustCompile(`<[^>]+>`)

// stripJATS removes the JATS XML markup Crossref wraps abstracts in.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	text := jatsTagPattern.ReplaceAllString(abstract, " ")
	return strings.Join(strings.Fields(text), " ")
}
