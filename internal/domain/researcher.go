package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// NormalizeORCID strips the orcid.org URL prefix providers sometimes
// return, leaving the bare identifier.
func NormalizeORCID(raw string) string {
	orcid := strings.TrimSpace(raw)
	orcid = strings.TrimPrefix(orcid, "https://orcid.org/")
	orcid = strings.TrimPrefix(orcid, "http://orcid.org/")
	return orcid
}

// NormalizeOpenAlexID strips the openalex.org URL prefix, leaving the
// bare identifier (e.g. "A5023888391" or "W2741809807").
func NormalizeOpenAlexID(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "https://openalex.org/")
	id = strings.TrimPrefix(id, "http://openalex.org/")
	return id
}

// Researcher represents an author resolved from provider data.
type Researcher struct {
	ID                uuid.UUID
	Name              string
	Affiliation       string
	SemanticScholarID string
	OpenAlexID        string
	ORCID             string
	HIndex            int
	ResearchInterests []string
	URL               string
	Summary           string
	RawMetadata       map[string]interface{}
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ExternalID returns the researcher's identifier for the given provider,
// or empty string if none is recorded.
func (r *Researcher) ExternalID(source SourceType) string {
	switch source {
	case SourceTypeSemanticScholar:
		return r.SemanticScholarID
	case SourceTypeOpenAlex:
		return r.OpenAlexID
	default:
		return ""
	}
}

// SetExternalID records the researcher's identifier for the given provider.
// Unknown providers are ignored.
func (r *Researcher) SetExternalID(source SourceType, id string) {
	switch source {
	case SourceTypeSemanticScholar:
		r.SemanticScholarID = id
	case SourceTypeOpenAlex:
		r.OpenAlexID = id
	}
}

// HasExternalID returns true if any provider identifier is recorded.
func (r *Researcher) HasExternalID() bool {
	return r.SemanticScholarID != "" || r.OpenAlexID != "" || r.ORCID != ""
}

// IdentityKey returns a stable key identifying this researcher across jobs,
// preferring provider identifiers over the (normalized) name.
func (r *Researcher) IdentityKey() string {
	switch {
	case r.SemanticScholarID != "":
		return "s2:" + r.SemanticScholarID
	case r.OpenAlexID != "":
		return "openalex:" + r.OpenAlexID
	case r.ORCID != "":
		return "orcid:" + r.ORCID
	default:
		return "name:" + strings.ToLower(strings.TrimSpace(r.Name))
	}
}

// Authorship links a researcher to a paper. The (PaperID, ResearcherID)
// pair is unique; creating the same link twice is a no-op.
type Authorship struct {
	ID               uuid.UUID
	PaperID          uuid.UUID
	ResearcherID     uuid.UUID
	Position         int
	AuthorPosition   AuthorPosition
	ContributionRole string
	CreatedAt        time.Time
}
