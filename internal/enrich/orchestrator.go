// Package enrich fills paper metadata from external providers.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/observability"
	"github.com/researchhub/paper-import-service/internal/sources"
	"github.com/researchhub/paper-import-service/internal/titles"
)

// Config holds orchestrator tuning knobs.
type Config struct {
	// MinTitleSimilarity is the key-term similarity below which a provider
	// result is treated as a mismatch.
	MinTitleSimilarity float64
}

// Outcome reports what the cascade did to a paper.
type Outcome struct {
	// Enriched indicates a provider result was accepted and merged.
	Enriched bool

	// Source is the provider whose result was accepted.
	Source domain.SourceType

	// Authors is the accepted result's author list, in paper order.
	Authors []sources.Author

	// Attempted lists the providers tried, in cascade order.
	Attempted []string
}

// Orchestrator runs papers through a fixed provider cascade. Provider
// errors never escape: each tier's failure moves the cascade on, and a
// fully failed cascade is recorded on the paper itself.
type Orchestrator struct {
	cascade []sources.Source
	cfg     Config
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewOrchestrator creates an orchestrator over the given providers.
// Disabled providers are skipped at enrichment time; cascade order is
// the order given.
func NewOrchestrator(cascade []sources.Source, cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Orchestrator {
	if cfg.MinTitleSimilarity <= 0 {
		cfg.MinTitleSimilarity = 0.5
	}
	return &Orchestrator{
		cascade: cascade,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Enrich tries each enabled provider in order until one returns a result
// whose title matches the paper's. The accepted result is merged into the
// paper in place and its authors returned for researcher resolution. When
// every tier fails, the paper is marked failed with an error naming the
// attempted providers. Either way LastImportAttempt is stamped and the
// paper remains saveable; Enrich itself never returns an error for
// provider failures.
func (o *Orchestrator) Enrich(ctx context.Context, paper *domain.Paper) *Outcome {
	start := time.Now()
	now := start.UTC()
	paper.LastImportAttempt = &now

	logger := observability.WithPaperContext(o.logger, paper.ID, paper.Title)
	cleaned := titles.Clean(paper.Title)
	outcome := &Outcome{}

	for _, source := range o.cascade {
		if !source.IsEnabled() {
			continue
		}
		outcome.Attempted = append(outcome.Attempted, source.Name())

		result, err := o.lookup(ctx, source, paper, cleaned)
		if err != nil {
			o.metrics.RecordEnrichmentAttempt(source.Name(), "miss")
			logEnrichmentMiss(logger, source.Name(), err)
			continue
		}

		o.merge(paper, result, source.SourceType())
		paper.ImportStatus = domain.ImportStatusSuccess
		paper.ImportError = ""

		o.metrics.RecordEnrichmentAttempt(source.Name(), "hit")
		o.metrics.RecordEnrichmentDuration(time.Since(start).Seconds())
		logger.Info().Str("source", source.Name()).Msg("paper enriched")

		outcome.Enriched = true
		outcome.Source = source.SourceType()
		outcome.Authors = result.Authors
		return outcome
	}

	paper.ImportStatus = domain.ImportStatusFailed
	paper.ImportError = fmt.Sprintf("enrichment failed: no matching record in %s", strings.Join(outcome.Attempted, ", "))

	o.metrics.RecordEnrichmentDuration(time.Since(start).Seconds())
	logger.Warn().Strs("attempted", outcome.Attempted).Msg("enrichment cascade exhausted")
	return outcome
}

// lookup queries one provider, trying the DOI first when the paper has
// one and falling back to the cleaned title. Results whose titles do not
// match the requested one are rejected as mismatches.
func (o *Orchestrator) lookup(ctx context.Context, source sources.Source, paper *domain.Paper, cleaned string) (*sources.LookupResult, error) {
	var lookupErr error

	if paper.HasDOI() {
		result, err := source.LookupByIdentifier(ctx, paper.DOI)
		if err != nil {
			lookupErr = err
		} else if accepted, sim := o.titleMatches(cleaned, result.Paper.Title); accepted {
			return result, nil
		} else {
			lookupErr = fmt.Errorf("doi result %w: similarity %.2f", domain.ErrTitleMismatch, sim)
		}
	}

	result, err := source.LookupByTitle(ctx, cleaned)
	if err != nil {
		if lookupErr != nil {
			return nil, errors.Join(lookupErr, err)
		}
		return nil, err
	}
	if accepted, sim := o.titleMatches(cleaned, result.Paper.Title); !accepted {
		return nil, fmt.Errorf("title result %w: similarity %.2f", domain.ErrTitleMismatch, sim)
	}
	return result, nil
}

func (o *Orchestrator) titleMatches(requested, returned string) (bool, float64) {
	sim := titles.Similarity(requested, returned)
	return sim >= o.cfg.MinTitleSimilarity, sim
}

// merge applies the merge policy: user-supplied fields win, missing
// fields are filled, and volatility-prone provider fields (citation
// count, source id, data source) are always refreshed.
func (o *Orchestrator) merge(paper *domain.Paper, result *sources.LookupResult, source domain.SourceType) {
	found := result.Paper

	if paper.DOI == "" && found.DOI != "" {
		paper.DOI = found.DOI
	}
	if paper.Abstract == "" && found.Abstract != "" {
		paper.Abstract = found.Abstract
	}
	if paper.Journal == "" && found.Journal != "" {
		paper.Journal = found.Journal
	}
	if paper.PublicationDate == nil && found.PublicationDate != nil {
		paper.PublicationDate = found.PublicationDate
	}
	if paper.URL == "" && found.URL != "" {
		paper.URL = found.URL
	}

	paper.CitationCount = found.CitationCount
	paper.SourceID = found.SourceID
	paper.DataSource = source

	paper.MergeKeywords(found.Keywords)

	if len(found.RawMetadata) > 0 {
		if paper.RawMetadata == nil {
			paper.RawMetadata = make(map[string]interface{})
		}
		paper.RawMetadata[string(source)] = found.RawMetadata
	}
}

func logEnrichmentMiss(logger zerolog.Logger, source string, err error) {
	event := logger.Debug()
	if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrTitleMismatch) {
		event = logger.Warn()
	}
	event.Err(err).Str("source", source).Msg("enrichment lookup missed")
}
