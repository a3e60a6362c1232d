// Package repository holds the PostgreSQL persistence layer.
//
// Each entity gets an interface (PaperRepository, ResearcherRepository,
// AuthorshipRepository, ImportJobRepository) and a Pg* implementation
// built on pgx. Implementations are safe for concurrent use; pooling is
// handled by the underlying pgxpool.
//
// Methods surface errors from the domain package (domain.ErrNotFound,
// domain.ErrAlreadyExists, domain.ErrInvalidInput) rather than raw pgx
// errors, so callers never have to inspect SQLSTATE codes.
//
// Repositories are constructed once at startup:
//
//	db, _ := database.New(ctx, cfg, logger)
//	papers := repository.NewPgPaperRepository(db)
//	researchers := repository.NewPgResearcherRepository(db)
//	jobs := repository.NewPgImportJobRepository(db)
//
// For atomic multi-entity writes, build transactional instances inside
// database.DB.WithTransaction by passing the pgx.Tx as the DBTX:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    _, err := repository.NewPgPaperRepository(tx).Create(ctx, paper)
//	    return err
//	})
package repository

import (
	"github.com/researchhub/paper-import-service/internal/database"
)

// DBTX abstracts over the pool and an open transaction, so the same
// repository code serves both. Mock implementations (pgxmock) satisfy
// it too.
type DBTX = database.DBTX

// Filter pagination defaults and limits.
const (
	defaultFilterLimit = 100
	maxFilterLimit     = 1000
)

// applyPaginationDefaults clamps limit to [1, maxFilterLimit] and
// offset to >= 0 before a filter query runs.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = defaultFilterLimit
	}
	if *limit > maxFilterLimit {
		*limit = maxFilterLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}
