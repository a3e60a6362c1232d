package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/repository"
)

// listPapers handles GET /api/v1/papers.
// Optional query parameters: data_source, import_status, page_size, page_token.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.PaperFilter{
		Limit:  limit,
		Offset: offset,
	}

	if sourceParam := r.URL.Query().Get("data_source"); sourceParam != "" {
		source := domain.SourceType(sourceParam)
		filter.DataSource = &source
	}

	if statusParam := r.URL.Query().Get("import_status"); statusParam != "" {
		status := domain.ImportStatus(statusParam)
		filter.ImportStatus = &status
	}

	papers, totalCount, err := s.papers.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = domainPaperToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:        responses,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getPaper handles GET /api/v1/papers/{paperID}.
// The detail view includes the resolved author list in position order.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.papers.GetByID(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	authorships, err := s.authorships.ListByPaper(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	authors := make([]paperAuthorResponse, 0, len(authorships))
	for _, a := range authorships {
		researcher, err := s.researchers.GetByID(r.Context(), a.ResearcherID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		authors = append(authors, paperAuthorResponse{
			ResearcherID:   researcher.ID.String(),
			Name:           researcher.Name,
			Affiliation:    researcher.Affiliation,
			ORCID:          researcher.ORCID,
			Position:       a.Position,
			AuthorPosition: string(a.AuthorPosition),
		})
	}

	writeJSON(w, http.StatusOK, paperDetailResponse{
		paperResponse: domainPaperToResponse(paper),
		Authors:       authors,
	})
}
