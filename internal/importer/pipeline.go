package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/researchhub/paper-import-service/internal/database"
	"github.com/researchhub/paper-import-service/internal/dedup"
	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/enrich"
	"github.com/researchhub/paper-import-service/internal/observability"
	"github.com/researchhub/paper-import-service/internal/repository"
	"github.com/researchhub/paper-import-service/internal/resolver"
	"github.com/researchhub/paper-import-service/internal/sources"
)

// Outcome classifies what happened to one batch item.
type Outcome string

const (
	OutcomeSuccessful Outcome = "successful"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeFailed     Outcome = "failed"
)

// ItemResult is the terminal state of one processed batch item. Failures
// are data, not errors: the job worker records them and moves on.
type ItemResult struct {
	Outcome Outcome

	// PaperID is the created paper's id on success, the existing paper's
	// id on a duplicate, or the persisted-but-unenriched paper's id on an
	// enrichment failure.
	PaperID uuid.UUID

	// Error carries the per-item error entry for duplicate and failed
	// outcomes.
	Error *domain.ImportItemError
}

// Processor runs the per-item import pipeline. The job manager depends on
// this interface so job bookkeeping can be tested without a database.
type Processor interface {
	// ProcessItem imports one batch item end to end.
	ProcessItem(ctx context.Context, input PaperInput) *ItemResult

	// EnrichResearcher refreshes a researcher's provider profile and
	// returns the updated field names.
	EnrichResearcher(ctx context.Context, researcherID uuid.UUID) ([]string, error)

	// ImportPaperForResearcher imports a provider-identified paper and
	// links it to the researcher. Returns the paper and whether it was
	// newly created.
	ImportPaperForResearcher(ctx context.Context, researcherID uuid.UUID, externalID string) (*domain.Paper, bool, error)
}

// Pipeline is the production Processor: duplicate check, validation, then
// a per-item transaction wrapping paper creation, the enrichment cascade
// and researcher resolution. Each item commits or rolls back on its own,
// so one bad item never poisons the rest of the batch.
type Pipeline struct {
	db           *database.DB
	checker      *dedup.Checker
	orchestrator *enrich.Orchestrator
	cascade      []sources.Source
	providers    map[domain.SourceType]sources.Source
	resolverCfg  resolver.Config
	logger       zerolog.Logger
	metrics      *observability.Metrics
}

var _ Processor = (*Pipeline)(nil)

// NewPipeline wires the per-item pipeline. The cascade slice fixes
// provider order; the providers map serves author profile fetches.
func NewPipeline(
	db *database.DB,
	orchestrator *enrich.Orchestrator,
	cascade []sources.Source,
	resolverCfg resolver.Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Pipeline {
	providers := make(map[domain.SourceType]sources.Source, len(cascade))
	for _, source := range cascade {
		providers[source.SourceType()] = source
	}
	return &Pipeline{
		db:           db,
		checker:      dedup.NewChecker(repository.NewPgPaperRepository(db)),
		orchestrator: orchestrator,
		cascade:      cascade,
		providers:    providers,
		resolverCfg:  resolverCfg,
		logger:       logger,
		metrics:      metrics,
	}
}

// ProcessItem imports one batch item. Every failure mode maps to an
// ItemResult; the method itself never errors.
func (p *Pipeline) ProcessItem(ctx context.Context, input PaperInput) *ItemResult {
	check, err := p.checker.Check(ctx, input.Title, input.DOI)
	if err != nil {
		return failed(input.Title, fmt.Sprintf("duplicate check failed: %v", err), "")
	}
	if check.Duplicate {
		return &ItemResult{
			Outcome: OutcomeDuplicate,
			PaperID: check.Existing.ID,
			Error: &domain.ImportItemError{
				Title:   input.Title,
				Message: fmt.Sprintf("paper already exists (matched on %s)", check.MatchedOn),
				Type:    domain.ImportErrorTypeDuplicate,
				PaperID: &check.Existing.ID,
			},
		}
	}

	if err := domain.ValidateTitle(input.Title); err != nil {
		return failed(input.Title, err.Error(), domain.ImportErrorTypeValidation)
	}
	if input.DOI != "" && !domain.ValidDOI(input.DOI) {
		return failed(input.Title, fmt.Sprintf("malformed doi %q", input.DOI), domain.ImportErrorTypeValidation)
	}

	var (
		paperID     uuid.UUID
		enriched    bool
		importError string
	)
	err = p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		papers := repository.NewPgPaperRepository(tx)

		paper, err := papers.Create(ctx, input.ToPaper())
		if err != nil {
			return fmt.Errorf("creating paper: %w", err)
		}

		outcome := p.orchestrator.Enrich(ctx, paper)

		if outcome.Enriched {
			res := resolver.New(
				repository.NewPgResearcherRepository(tx),
				repository.NewPgAuthorshipRepository(tx),
				p.providers,
				p.resolverCfg,
				p.logger,
				p.metrics,
			)
			if err := res.AttachAuthors(ctx, paper, outcome.Authors, outcome.Source); err != nil {
				return fmt.Errorf("attaching authors: %w", err)
			}
		}

		if _, err := papers.Update(ctx, paper); err != nil {
			return fmt.Errorf("persisting enrichment result: %w", err)
		}

		paperID = paper.ID
		enriched = outcome.Enriched
		importError = paper.ImportError
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Raced another import of the same paper between the check and
			// the insert; the unique index is the source of truth.
			return &ItemResult{
				Outcome: OutcomeDuplicate,
				Error: &domain.ImportItemError{
					Title:   input.Title,
					Message: "paper already exists",
					Type:    domain.ImportErrorTypeDuplicate,
				},
			}
		}
		return failed(input.Title, err.Error(), "")
	}

	// An exhausted cascade still commits the paper (marked failed on the
	// row itself) but counts the item as failed.
	if !enriched {
		return &ItemResult{
			Outcome: OutcomeFailed,
			PaperID: paperID,
			Error: &domain.ImportItemError{
				Title:   input.Title,
				Message: importError,
				Type:    domain.ImportErrorTypeEnrichment,
			},
		}
	}

	return &ItemResult{Outcome: OutcomeSuccessful, PaperID: paperID}
}

// EnrichResearcher re-fetches the researcher's provider profile inside a
// transaction and returns the names of the fields that changed.
func (p *Pipeline) EnrichResearcher(ctx context.Context, researcherID uuid.UUID) ([]string, error) {
	var updated []string
	err := p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		researchers := repository.NewPgResearcherRepository(tx)

		researcher, err := researchers.GetByID(ctx, researcherID)
		if err != nil {
			return err
		}

		res := resolver.New(
			researchers,
			repository.NewPgAuthorshipRepository(tx),
			p.providers,
			p.resolverCfg,
			p.logger,
			p.metrics,
		)
		updated, err = res.RefreshProfile(ctx, researcher)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ImportPaperForResearcher imports the provider-identified paper and links
// it to the researcher. Already-imported papers (by source id, DOI, or
// exact title) are linked without being recreated.
func (p *Pipeline) ImportPaperForResearcher(ctx context.Context, researcherID uuid.UUID, externalID string) (*domain.Paper, bool, error) {
	result, source, err := p.lookupByExternalID(ctx, externalID)
	if err != nil {
		return nil, false, err
	}

	var (
		paper   *domain.Paper
		created bool
	)
	err = p.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		papers := repository.NewPgPaperRepository(tx)
		researchers := repository.NewPgResearcherRepository(tx)
		authorships := repository.NewPgAuthorshipRepository(tx)

		researcher, err := researchers.GetByID(ctx, researcherID)
		if err != nil {
			return err
		}

		paper, created, err = p.findOrCreate(ctx, papers, result.Paper, source)
		if err != nil {
			return err
		}

		position, authorPosition := placementFor(researcher, result.Authors)
		linked, err := authorships.Link(ctx, &domain.Authorship{
			PaperID:          paper.ID,
			ResearcherID:     researcher.ID,
			Position:         position,
			AuthorPosition:   authorPosition,
			ContributionRole: domain.ContributionRoleFor(position),
		})
		if err != nil {
			return fmt.Errorf("linking researcher: %w", err)
		}
		if linked {
			p.metrics.RecordAuthorshipCreated()
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return paper, created, nil
}

// lookupByExternalID walks the cascade until a provider recognizes the id.
func (p *Pipeline) lookupByExternalID(ctx context.Context, externalID string) (*sources.LookupResult, domain.SourceType, error) {
	var lastErr error
	for _, source := range p.cascade {
		if !source.IsEnabled() {
			continue
		}
		result, err := source.LookupByIdentifier(ctx, externalID)
		if err != nil {
			lastErr = err
			continue
		}
		return result, source.SourceType(), nil
	}
	if lastErr == nil {
		lastErr = domain.NewNotFoundError("paper", externalID)
	}
	return nil, "", lastErr
}

// findOrCreate dedups a provider result against stored papers by source
// id, then DOI, then exact title, creating it when nothing matches.
func (p *Pipeline) findOrCreate(ctx context.Context, papers repository.PaperRepository, found *domain.Paper, source domain.SourceType) (*domain.Paper, bool, error) {
	if found.SourceID != "" {
		existing, err := papers.FindBySourceID(ctx, source, found.SourceID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	}
	if found.DOI != "" {
		existing, err := papers.FindByDOI(ctx, found.DOI)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, err
		}
	}
	existing, err := papers.FindByTitle(ctx, found.Title)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, false, err
	}

	found.DataSource = source
	found.ImportStatus = domain.ImportStatusSuccess
	if len(found.RawMetadata) > 0 {
		found.RawMetadata = map[string]interface{}{string(source): found.RawMetadata}
	}
	created, err := papers.Create(ctx, found)
	if err != nil {
		return nil, false, fmt.Errorf("creating paper: %w", err)
	}
	return created, true, nil
}

// placementFor locates the researcher in the provider's author list to
// pick position and role; unknown placement defaults to co-author.
func placementFor(researcher *domain.Researcher, authors []sources.Author) (int, domain.AuthorPosition) {
	for i, author := range authors {
		if author.ExternalID != "" && researcher.ExternalID(domain.SourceTypeSemanticScholar) == author.ExternalID {
			return i, positionRole(i)
		}
		if author.ExternalID != "" && researcher.ExternalID(domain.SourceTypeOpenAlex) == author.ExternalID {
			return i, positionRole(i)
		}
		if author.ORCID != "" && researcher.ORCID == author.ORCID {
			return i, positionRole(i)
		}
	}
	return len(authors), domain.AuthorPositionCo
}

func positionRole(index int) domain.AuthorPosition {
	if index == 0 {
		return domain.AuthorPositionFirst
	}
	return domain.AuthorPositionCo
}

func failed(title, message, errType string) *ItemResult {
	return &ItemResult{
		Outcome: OutcomeFailed,
		Error: &domain.ImportItemError{
			Title:   title,
			Message: message,
			Type:    errType,
		},
	}
}
