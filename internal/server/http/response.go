package httpserver

import (
	"time"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// Response types for JSON serialization. Timestamps are RFC3339 UTC.

type importJobResponse struct {
	JobID              string           `json:"job_id"`
	Status             string           `json:"status"`
	Total              int              `json:"total"`
	Processed          int              `json:"processed"`
	Successful         int              `json:"successful"`
	Duplicates         int              `json:"duplicates"`
	Failed             int              `json:"failed"`
	ProgressPercentage int              `json:"progress_percentage"`
	Errors             []itemErrorEntry `json:"errors"`
	CreatedAt          time.Time        `json:"created_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

type itemErrorEntry struct {
	Title           string `json:"title"`
	Error           string `json:"error"`
	Type            string `json:"type,omitempty"`
	ExistingPaperID string `json:"existing_paper_id,omitempty"`
}

type listImportJobsResponse struct {
	Jobs          []importJobResponse `json:"jobs"`
	NextPageToken string              `json:"next_page_token,omitempty"`
	TotalCount    int                 `json:"total_count"`
}

type paperResponse struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Abstract          string     `json:"abstract,omitempty"`
	DOI               string     `json:"doi,omitempty"`
	Journal           string     `json:"journal,omitempty"`
	PublicationDate   *time.Time `json:"publication_date,omitempty"`
	URL               string     `json:"url,omitempty"`
	CitationCount     int        `json:"citation_count"`
	Keywords          []string   `json:"keywords,omitempty"`
	SourceID          string     `json:"source_id,omitempty"`
	DataSource        string     `json:"data_source,omitempty"`
	ImportStatus      string     `json:"import_status"`
	ImportError       string     `json:"import_error,omitempty"`
	LastImportAttempt *time.Time `json:"last_import_attempt,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type paperDetailResponse struct {
	paperResponse
	Authors []paperAuthorResponse `json:"authors"`
}

type paperAuthorResponse struct {
	ResearcherID   string `json:"researcher_id"`
	Name           string `json:"name"`
	Affiliation    string `json:"affiliation,omitempty"`
	ORCID          string `json:"orcid,omitempty"`
	Position       int    `json:"position"`
	AuthorPosition string `json:"author_position"`
}

type listPapersResponse struct {
	Papers        []paperResponse `json:"papers"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	TotalCount    int             `json:"total_count"`
}

type researcherResponse struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Affiliation       string    `json:"affiliation,omitempty"`
	SemanticScholarID string    `json:"semantic_scholar_id,omitempty"`
	OpenAlexID        string    `json:"openalex_id,omitempty"`
	ORCID             string    `json:"orcid,omitempty"`
	HIndex            int       `json:"h_index"`
	ResearchInterests []string  `json:"research_interests,omitempty"`
	URL               string    `json:"url,omitempty"`
	Summary           string    `json:"summary,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type researcherDetailResponse struct {
	researcherResponse
	PaperCount int `json:"paper_count"`
}

type listResearchersResponse struct {
	Researchers   []researcherResponse `json:"researchers"`
	NextPageToken string               `json:"next_page_token,omitempty"`
	TotalCount    int                  `json:"total_count"`
}

type enrichResearcherResponse struct {
	ResearcherID  string   `json:"researcher_id"`
	FieldsUpdated []string `json:"fields_updated"`
}

type importPaperResponse struct {
	Paper   paperResponse `json:"paper"`
	Created bool          `json:"created"`
}

// Converter functions

func domainJobToResponse(job *domain.ImportJob) importJobResponse {
	errs := make([]itemErrorEntry, len(job.Errors))
	for i, e := range job.Errors {
		entry := itemErrorEntry{
			Title: e.Title,
			Error: e.Message,
			Type:  e.Type,
		}
		if e.PaperID != nil {
			entry.ExistingPaperID = e.PaperID.String()
		}
		errs[i] = entry
	}

	resp := importJobResponse{
		JobID:              job.ID.String(),
		Status:             string(job.Status),
		Total:              job.Total,
		Processed:          job.Processed,
		Successful:         job.Successful,
		Duplicates:         job.Duplicates,
		Failed:             job.Failed,
		ProgressPercentage: job.ProgressPercentage(),
		Errors:             errs,
		CreatedAt:          job.CreatedAt.UTC(),
	}
	if job.CompletedAt != nil {
		completed := job.CompletedAt.UTC()
		resp.CompletedAt = &completed
	}
	return resp
}

func domainPaperToResponse(p *domain.Paper) paperResponse {
	return paperResponse{
		ID:                p.ID.String(),
		Title:             p.Title,
		Abstract:          p.Abstract,
		DOI:               p.DOI,
		Journal:           p.Journal,
		PublicationDate:   p.PublicationDate,
		URL:               p.URL,
		CitationCount:     p.CitationCount,
		Keywords:          p.Keywords,
		SourceID:          p.SourceID,
		DataSource:        string(p.DataSource),
		ImportStatus:      string(p.ImportStatus),
		ImportError:       p.ImportError,
		LastImportAttempt: p.LastImportAttempt,
		Summary:           p.Summary,
		CreatedAt:         p.CreatedAt.UTC(),
	}
}

func domainResearcherToResponse(r *domain.Researcher) researcherResponse {
	return researcherResponse{
		ID:                r.ID.String(),
		Name:              r.Name,
		Affiliation:       r.Affiliation,
		SemanticScholarID: r.SemanticScholarID,
		OpenAlexID:        r.OpenAlexID,
		ORCID:             r.ORCID,
		HIndex:            r.HIndex,
		ResearchInterests: r.ResearchInterests,
		URL:               r.URL,
		Summary:           r.Summary,
		CreatedAt:         r.CreatedAt.UTC(),
	}
}
