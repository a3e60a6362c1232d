// Package dedup detects already-imported papers before the pipeline
// creates new rows.
package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// PaperFinder is the subset of the paper repository the checker needs.
type PaperFinder interface {
	FindByDOI(ctx context.Context, doi string) (*domain.Paper, error)
	FindByTitle(ctx context.Context, title string) (*domain.Paper, error)
}

// MatchKind says which identifier matched an existing paper.
type MatchKind string

const (
	MatchDOI   MatchKind = "doi"
	MatchTitle MatchKind = "title"
)

// Result is the outcome of a duplicate check.
type Result struct {
	// Duplicate indicates an existing paper matched.
	Duplicate bool

	// Existing is the matched paper. Nil when Duplicate is false.
	Existing *domain.Paper

	// MatchedOn says which identifier matched.
	MatchedOn MatchKind
}

// Checker looks up incoming papers against stored ones. A DOI match is
// authoritative: when the incoming paper carries a DOI, only the DOI is
// compared and the title is never consulted, so two distinct papers that
// share a title but have different DOIs both import. Title comparison is
// the fallback for papers without a DOI. Both comparisons are exact and
// case-insensitive.
type Checker struct {
	papers PaperFinder
}

// NewChecker creates a duplicate checker backed by the given paper store.
func NewChecker(papers PaperFinder) *Checker {
	return &Checker{papers: papers}
}

// Check reports whether a paper with the given title and DOI already
// exists. The DOI may be in any of the common URL or prefixed forms.
func (c *Checker) Check(ctx context.Context, title, doi string) (*Result, error) {
	if normalized := domain.NormalizeDOI(doi); normalized != "" {
		existing, err := c.papers.FindByDOI(ctx, normalized)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &Result{}, nil
			}
			return nil, fmt.Errorf("finding paper by doi %q: %w", normalized, err)
		}
		return &Result{Duplicate: true, Existing: existing, MatchedOn: MatchDOI}, nil
	}

	existing, err := c.papers.FindByTitle(ctx, title)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("finding paper by title %q: %w", title, err)
	}
	return &Result{Duplicate: true, Existing: existing, MatchedOn: MatchTitle}, nil
}
