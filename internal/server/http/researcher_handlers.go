package httpserver

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/researchhub/paper-import-service/internal/repository"
)

// listResearchers handles GET /api/v1/researchers.
// Optional query parameters: name (substring match), page_size, page_token.
func (s *Server) listResearchers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.ResearcherFilter{
		Name:   strings.TrimSpace(r.URL.Query().Get("name")),
		Limit:  limit,
		Offset: offset,
	}

	researchers, totalCount, err := s.researchers.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]researcherResponse, len(researchers))
	for i, res := range researchers {
		responses[i] = domainResearcherToResponse(res)
	}

	writeJSON(w, http.StatusOK, listResearchersResponse{
		Researchers:   responses,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getResearcher handles GET /api/v1/researchers/{researcherID}.
func (s *Server) getResearcher(w http.ResponseWriter, r *http.Request) {
	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	researcher, err := s.researchers.GetByID(r.Context(), researcherID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	authorships, err := s.authorships.ListByResearcher(r.Context(), researcherID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, researcherDetailResponse{
		researcherResponse: domainResearcherToResponse(researcher),
		PaperCount:         len(authorships),
	})
}

// enrichResearcher handles POST /api/v1/researchers/{researcherID}/enrich.
// It refreshes the researcher profile from the provider that knows the
// researcher's external identifier and reports which fields changed.
func (s *Server) enrichResearcher(w http.ResponseWriter, r *http.Request) {
	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	fieldsUpdated, err := s.jobs.EnrichResearcher(r.Context(), researcherID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if fieldsUpdated == nil {
		fieldsUpdated = []string{}
	}
	writeJSON(w, http.StatusOK, enrichResearcherResponse{
		ResearcherID:  researcherID.String(),
		FieldsUpdated: fieldsUpdated,
	})
}

// importResearcherPaper handles
// POST /api/v1/researchers/{researcherID}/import-paper/{externalID}.
// It imports a provider-identified paper and links it to the researcher.
// Returns 201 when the paper was newly imported, 200 when it already existed.
func (s *Server) importResearcherPaper(w http.ResponseWriter, r *http.Request) {
	researcherID, ok := parseUUID(w, chi.URLParam(r, "researcherID"), "researcher_id")
	if !ok {
		return
	}

	externalID := strings.TrimSpace(chi.URLParam(r, "externalID"))
	if externalID == "" {
		writeError(w, http.StatusBadRequest, "external_id is required")
		return
	}

	paper, created, err := s.jobs.ImportResearcherPaper(r.Context(), researcherID, externalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, importPaperResponse{
		Paper:   domainPaperToResponse(paper),
		Created: created,
	})
}
