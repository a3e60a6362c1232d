// Package resolver turns provider author lists into researcher rows and
// authorship links.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/observability"
	"github.com/researchhub/paper-import-service/internal/repository"
	"github.com/researchhub/paper-import-service/internal/sources"
)

// Config bounds how many authors a paper may attach.
type Config struct {
	// MaxAuthors rejects the whole author list above this count.
	MaxAuthors int

	// FirstAuthorOnlyAbove resolves only the first author above this count.
	FirstAuthorOnlyAbove int
}

func (c *Config) applyDefaults() {
	if c.MaxAuthors <= 0 {
		c.MaxAuthors = 50
	}
	if c.FirstAuthorOnlyAbove <= 0 {
		c.FirstAuthorOnlyAbove = 10
	}
}

// Resolver resolves provider authors to researcher records. The same
// instance serves bulk import, single-paper import and profile refresh;
// callers running inside a transaction construct one over tx-scoped
// repositories.
type Resolver struct {
	researchers repository.ResearcherRepository
	authorships repository.AuthorshipRepository
	providers   map[domain.SourceType]sources.Source
	cfg         Config
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// New creates a resolver. The providers map is consulted for best-effort
// author profile fetches; missing entries simply skip the fetch.
func New(
	researchers repository.ResearcherRepository,
	authorships repository.AuthorshipRepository,
	providers map[domain.SourceType]sources.Source,
	cfg Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Resolver {
	cfg.applyDefaults()
	return &Resolver{
		researchers: researchers,
		authorships: authorships,
		providers:   providers,
		cfg:         cfg,
		logger:      logger,
		metrics:     metrics,
	}
}

// AttachAuthors applies the fan-out policy and links the selected authors
// to the paper. Author lists longer than MaxAuthors are rejected outright:
// the paper stays saved but gets no authorships. Lists above
// FirstAuthorOnlyAbove resolve only the first author. Links are idempotent
// per (paper, researcher).
func (r *Resolver) AttachAuthors(ctx context.Context, paper *domain.Paper, authors []sources.Author, source domain.SourceType) error {
	if len(authors) == 0 {
		return nil
	}

	logger := observability.WithPaperContext(r.logger, paper.ID, paper.Title)

	if len(authors) > r.cfg.MaxAuthors {
		r.metrics.RecordAuthorListRejected()
		logger.Warn().
			Int("author_count", len(authors)).
			Int("max_authors", r.cfg.MaxAuthors).
			Msg("author list too large, skipping authorship creation")
		return nil
	}

	toResolve := authors
	if len(authors) > r.cfg.FirstAuthorOnlyAbove {
		toResolve = authors[:1]
		logger.Info().
			Int("author_count", len(authors)).
			Msg("large author list, resolving first author only")
	}

	for i, author := range toResolve {
		researcher, err := r.Resolve(ctx, author, source)
		if err != nil {
			return fmt.Errorf("resolving author %q: %w", author.Name, err)
		}

		position := domain.AuthorPositionCo
		if i == 0 {
			position = domain.AuthorPositionFirst
		}
		created, err := r.authorships.Link(ctx, &domain.Authorship{
			PaperID:          paper.ID,
			ResearcherID:     researcher.ID,
			Position:         i,
			AuthorPosition:   position,
			ContributionRole: domain.ContributionRoleFor(i),
		})
		if err != nil {
			return fmt.Errorf("linking author %q: %w", author.Name, err)
		}
		if created {
			r.metrics.RecordAuthorshipCreated()
		}
	}
	return nil
}

// Resolve maps one provider author to a researcher row, creating it if
// nothing matches. Resolution order: the provider's external id, then an
// exact case-insensitive name match without a conflicting identity, then
// creation with a best-effort profile fetch.
func (r *Resolver) Resolve(ctx context.Context, author sources.Author, source domain.SourceType) (*domain.Researcher, error) {
	name := strings.TrimSpace(author.Name)
	if name == "" {
		return nil, domain.NewValidationError("author_name", "must not be empty")
	}

	// Serialize concurrent resolution of the same identity across jobs.
	if err := r.researchers.AcquireIdentityLock(ctx, identityKey(author, source)); err != nil {
		return nil, fmt.Errorf("acquiring identity lock: %w", err)
	}

	if author.ExternalID != "" {
		existing, err := r.researchers.FindByExternalID(ctx, source, author.ExternalID)
		if err == nil {
			return r.reuse(ctx, existing, author, source)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("finding researcher by external id: %w", err)
		}
	}

	if author.ORCID != "" {
		existing, err := r.researchers.FindByORCID(ctx, author.ORCID)
		if err == nil {
			return r.adopt(ctx, existing, author, source)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("finding researcher by orcid: %w", err)
		}
	}

	candidates, err := r.researchers.FindByName(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("finding researcher by name: %w", err)
	}
	for _, candidate := range candidates {
		if conflicts(candidate, author, source) {
			continue
		}
		return r.adopt(ctx, candidate, author, source)
	}

	return r.create(ctx, author, source)
}

// RefreshProfile re-fetches a researcher's provider profile and applies
// the merge split: h-index always refreshed, the rest fill-if-missing,
// research interests unioned. Returns the names of the fields that
// changed. Researchers with no resolvable external identity fail with
// domain.ErrNoIdentifier.
func (r *Resolver) RefreshProfile(ctx context.Context, researcher *domain.Researcher) ([]string, error) {
	source, externalID := externalIdentity(researcher)
	if externalID == "" {
		return nil, domain.ErrNoIdentifier
	}

	// A refresh races bulk import resolving the same identity.
	if err := r.researchers.AcquireIdentityLock(ctx, researcher.IdentityKey()); err != nil {
		return nil, fmt.Errorf("acquiring identity lock: %w", err)
	}

	provider, ok := r.providers[source]
	if !ok || !provider.IsEnabled() {
		return nil, fmt.Errorf("no enabled provider for %s: %w", source, domain.ErrServiceUnavailable)
	}

	profile, err := provider.AuthorDetails(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("fetching author profile from %s: %w", provider.Name(), err)
	}

	updated := applyProfile(researcher, profile)
	if len(updated) == 0 {
		return nil, nil
	}

	if _, err := r.researchers.Update(ctx, researcher); err != nil {
		return nil, fmt.Errorf("updating researcher: %w", err)
	}
	return updated, nil
}

// reuse refreshes an existing researcher. The author entry fills
// missing affiliation/ORCID; when the author carries a provider id the
// profile is re-fetched best-effort so the h-index stays current, with
// a failed fetch keeping the stored values.
func (r *Resolver) reuse(ctx context.Context, researcher *domain.Researcher, author sources.Author, source domain.SourceType) (*domain.Researcher, error) {
	changed := false
	if researcher.Affiliation == "" && author.Affiliation != "" {
		researcher.Affiliation = author.Affiliation
		changed = true
	}
	if researcher.ORCID == "" && author.ORCID != "" {
		researcher.ORCID = author.ORCID
		changed = true
	}

	if provider, ok := r.providers[source]; ok && provider.IsEnabled() && author.ExternalID != "" {
		profile, err := provider.AuthorDetails(ctx, author.ExternalID)
		if err != nil {
			logger := observability.WithResearcherContext(r.logger, researcher.ID, researcher.Name)
			logger.Debug().Err(err).Str("source", string(source)).
				Msg("author profile fetch failed, keeping stored profile")
		} else if len(applyProfile(researcher, profile)) > 0 {
			changed = true
		}
	}

	if changed {
		updated, err := r.researchers.Update(ctx, researcher)
		if err != nil {
			return nil, fmt.Errorf("updating researcher: %w", err)
		}
		researcher = updated
	}
	r.metrics.RecordResearcherReused()
	return researcher, nil
}

// adopt attaches the author's identity for this provider to a matched
// researcher, then reuses it.
func (r *Resolver) adopt(ctx context.Context, researcher *domain.Researcher, author sources.Author, source domain.SourceType) (*domain.Researcher, error) {
	if author.ExternalID != "" && researcher.ExternalID(source) == "" {
		researcher.SetExternalID(source, author.ExternalID)
		updated, err := r.researchers.Update(ctx, researcher)
		if err != nil {
			return nil, fmt.Errorf("attaching external id: %w", err)
		}
		researcher = updated
	}
	return r.reuse(ctx, researcher, author, source)
}

// create inserts a new researcher, fetching the extended profile
// best-effort; a failed fetch falls back to the minimal record from the
// author entry.
func (r *Resolver) create(ctx context.Context, author sources.Author, source domain.SourceType) (*domain.Researcher, error) {
	researcher := &domain.Researcher{
		Name:        strings.TrimSpace(author.Name),
		Affiliation: author.Affiliation,
		ORCID:       author.ORCID,
	}
	researcher.SetExternalID(source, author.ExternalID)

	if provider, ok := r.providers[source]; ok && provider.IsEnabled() && author.ExternalID != "" {
		profile, err := provider.AuthorDetails(ctx, author.ExternalID)
		if err != nil {
			logger := observability.WithResearcherContext(r.logger, researcher.ID, researcher.Name)
			logger.Debug().Err(err).Str("source", string(source)).
				Msg("author profile fetch failed, creating minimal record")
		} else {
			applyProfile(researcher, profile)
		}
	}

	created, err := r.researchers.Create(ctx, researcher)
	if err != nil {
		// Lost a race despite the advisory lock (e.g. an id attached by a
		// concurrent job between lock scopes): fall back to the winner.
		if errors.Is(err, domain.ErrAlreadyExists) && author.ExternalID != "" {
			existing, findErr := r.researchers.FindByExternalID(ctx, source, author.ExternalID)
			if findErr == nil {
				return r.reuse(ctx, existing, author, source)
			}
		}
		return nil, fmt.Errorf("creating researcher: %w", err)
	}

	r.metrics.RecordResearcherCreated()
	return created, nil
}

// applyProfile merges a fetched profile into a researcher and returns the
// changed field names. H-index is always refreshed; everything else fills
// missing values only.
func applyProfile(researcher *domain.Researcher, profile *sources.AuthorProfile) []string {
	var updated []string

	if profile.HIndex != researcher.HIndex {
		researcher.HIndex = profile.HIndex
		updated = append(updated, "h_index")
	}
	if researcher.Affiliation == "" && profile.Affiliation != "" {
		researcher.Affiliation = profile.Affiliation
		updated = append(updated, "affiliation")
	}
	if researcher.ORCID == "" && profile.ORCID != "" {
		researcher.ORCID = profile.ORCID
		updated = append(updated, "orcid")
	}
	if researcher.URL == "" && profile.URL != "" {
		researcher.URL = profile.URL
		updated = append(updated, "url")
	}
	if merged := mergeInterests(researcher.ResearchInterests, profile.Interests); len(merged) != len(researcher.ResearchInterests) {
		researcher.ResearchInterests = merged
		updated = append(updated, "research_interests")
	}

	return updated
}

func mergeInterests(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	merged := existing
	for _, interest := range existing {
		seen[strings.ToLower(interest)] = struct{}{}
	}
	for _, interest := range incoming {
		interest = strings.TrimSpace(interest)
		if interest == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(interest)]; ok {
			continue
		}
		seen[strings.ToLower(interest)] = struct{}{}
		merged = append(merged, interest)
	}
	return merged
}

// conflicts reports whether a name-matched candidate already belongs to a
// different identity: an id for this provider that differs from the
// author's, or a differing ORCID.
func conflicts(candidate *domain.Researcher, author sources.Author, source domain.SourceType) bool {
	if existing := candidate.ExternalID(source); existing != "" && existing != author.ExternalID {
		return true
	}
	if candidate.ORCID != "" && author.ORCID != "" && !strings.EqualFold(candidate.ORCID, author.ORCID) {
		return true
	}
	return false
}

// identityKey builds the advisory lock key for an author. It must match
// the key a stored researcher derives for itself so profile refreshes
// and bulk resolution serialize on the same lock.
func identityKey(author sources.Author, source domain.SourceType) string {
	r := domain.Researcher{Name: author.Name, ORCID: author.ORCID}
	r.SetExternalID(source, author.ExternalID)
	return r.IdentityKey()
}

// externalIdentity picks the researcher's resolvable provider identity.
func externalIdentity(researcher *domain.Researcher) (domain.SourceType, string) {
	switch {
	case researcher.SemanticScholarID != "":
		return domain.SourceTypeSemanticScholar, researcher.SemanticScholarID
	case researcher.OpenAlexID != "":
		return domain.SourceTypeOpenAlex, researcher.OpenAlexID
	default:
		return "", ""
	}
}
