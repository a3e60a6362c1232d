package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// TitleMinLength and TitleMaxLength bound acceptable paper titles.
	TitleMinLength = 10
	TitleMaxLength = 500
)

// doiPattern matches a bare DOI of the form "10.NNNN/suffix".
var doiPattern = regexp.MustCompile(`^10\.\d{4,}/\S+$`)

// orcidPattern matches a bare ORCID identifier, e.g. "0000-0002-1825-0097".
var orcidPattern = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}[0-9X]$`)

// NormalizeDOI strips common DOI URL prefixes and lowercases the identifier.
// Returns empty string for empty input.
func NormalizeDOI(raw string) string {
	doi := strings.TrimSpace(raw)
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return strings.ToLower(strings.TrimSpace(doi))
}

// ValidDOI reports whether the normalized identifier has the registered DOI shape.
func ValidDOI(doi string) bool {
	return doiPattern.MatchString(NormalizeDOI(doi))
}

// ValidORCID reports whether the identifier is a well-formed ORCID.
func ValidORCID(orcid string) bool {
	return orcidPattern.MatchString(strings.TrimSpace(orcid))
}

// ValidateTitle enforces the title length bounds shared by every import path.
func ValidateTitle(title string) error {
	t := strings.TrimSpace(title)
	if len(t) < TitleMinLength {
		return NewValidationError("title", "must be at least 10 characters")
	}
	if len(t) > TitleMaxLength {
		return NewValidationError("title", "must be at most 500 characters")
	}
	return nil
}

// Paper represents an academic paper in the repository. User-supplied fields
// are never overwritten by enrichment; provider-derived fields follow the
// merge policy in the enrichment orchestrator.
type Paper struct {
	ID                uuid.UUID
	Title             string
	Abstract          string
	DOI               string
	Journal           string
	PublicationDate   *time.Time
	URL               string
	CitationCount     int
	Keywords          []string
	SourceID          string
	DataSource        SourceType
	ImportStatus      ImportStatus
	ImportError       string
	LastImportAttempt *time.Time
	Summary           string
	RawMetadata       map[string]interface{}
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasDOI returns true if the paper carries a non-empty DOI.
func (p *Paper) HasDOI() bool {
	return strings.TrimSpace(p.DOI) != ""
}

// MergeKeywords unions the given keywords into the paper's keyword list,
// preserving existing order and de-duplicating case-insensitively.
func (p *Paper) MergeKeywords(incoming []string) {
	seen := make(map[string]struct{}, len(p.Keywords)+len(incoming))
	for _, kw := range p.Keywords {
		seen[strings.ToLower(strings.TrimSpace(kw))] = struct{}{}
	}
	for _, kw := range incoming {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		p.Keywords = append(p.Keywords, kw)
	}
}
