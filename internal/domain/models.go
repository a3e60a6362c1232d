// Package domain provides domain models and business logic for the Paper Import Service.
package domain

// SourceType represents the external provider that supplied paper data.
// These values must match the check constraint on papers.data_source.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeCrossref        SourceType = "crossref"
)

// ImportStatus represents the enrichment state of a single paper.
// These values must match the check constraint on papers.import_status.
type ImportStatus string

const (
	ImportStatusPending ImportStatus = "pending"
	ImportStatusSuccess ImportStatus = "success"
	ImportStatusFailed  ImportStatus = "failed"
)

// JobStatus represents the lifecycle states of an import job.
// These values must match the check constraint on import_jobs.status.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// AuthorPosition describes where an author sits in a paper's author list.
// These values must match the check constraint on authorships.author_position.
type AuthorPosition string

const (
	AuthorPositionFirst AuthorPosition = "first_author"
	AuthorPositionCo    AuthorPosition = "co_author"
)

// Contribution roles recorded on authorships.
const (
	ContributionRoleLead         = "lead"
	ContributionRoleContributing = "contributing"
)

// ContributionRoleFor maps an author-list index to its contribution role.
func ContributionRoleFor(index int) string {
	if index == 0 {
		return ContributionRoleLead
	}
	return ContributionRoleContributing
}
