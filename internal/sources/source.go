package sources

import (
	"context"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Author is an author entry as reported by a provider alongside a paper.
// ExternalID is the provider-assigned author identifier; it may be empty
// for providers that do not expose author records (e.g. Crossref).
type Author struct {
	// Name is the author's display name.
	Name string

	// ExternalID is the provider-assigned author identifier.
	ExternalID string

	// ORCID is the author's ORCID, without URL prefix, when known.
	ORCID string

	// Affiliation is the author's institution when reported.
	Affiliation string
}

// LookupResult is the outcome of a paper lookup against a provider.
// The paper carries provider metadata (DOI, citation count, source ID);
// the author list is reported separately because researcher resolution
// is handled outside the provider clients.
type LookupResult struct {
	// Paper holds the provider's metadata mapped to the domain model.
	Paper *domain.Paper

	// Authors lists the paper's authors in order.
	Authors []Author
}

// AuthorProfile is a provider's detailed record for a single author.
type AuthorProfile struct {
	// ExternalID is the provider-assigned author identifier.
	ExternalID string

	// Name is the author's display name.
	Name string

	// Affiliation is the author's current institution when reported.
	Affiliation string

	// ORCID is the author's ORCID when reported.
	ORCID string

	// HIndex is the author's h-index when reported.
	HIndex int

	// URL is the provider's page for this author.
	URL string

	// Interests lists research topics associated with the author.
	Interests []string
}

// Source defines the interface that all metadata provider clients implement.
// Each provider (Semantic Scholar, OpenAlex, Crossref) supplies its own
// implementation, allowing the enrichment cascade to try providers in order
// through a unified API.
type Source interface {
	// LookupByIdentifier retrieves a paper by DOI or provider-specific ID.
	// Returns domain.ErrNotFound if the provider has no record for it.
	//
	// Implementations should:
	//   - Respect context cancellation
	//   - Apply rate limiting as needed
	//   - Transform provider responses to domain.Paper
	//   - Include appropriate error wrapping with source context
	LookupByIdentifier(ctx context.Context, id string) (*LookupResult, error)

	// LookupByTitle retrieves the provider's best match for a title.
	// Callers decide whether the match is close enough to accept.
	// Returns domain.ErrNotFound if the provider has no candidate at all.
	LookupByTitle(ctx context.Context, title string) (*LookupResult, error)

	// AuthorDetails retrieves a provider's profile for an author.
	// Returns domain.ErrNotFound if the author does not exist, or for
	// providers that have no author records.
	AuthorDetails(ctx context.Context, authorID string) (*AuthorProfile, error)

	// SourceType returns the type identifier for this provider.
	// Used for attribution, merge policy, and routing.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this provider.
	// Used for logging, metrics, and display purposes.
	Name() string

	// IsEnabled returns whether this provider is currently enabled.
	// A source may be disabled due to configuration or missing API keys.
	IsEnabled() bool
}
