package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/researchhub/paper-import-service/internal/domain"
	"github.com/researchhub/paper-import-service/internal/importer"
	"github.com/researchhub/paper-import-service/internal/repository"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxBatchSize       = 1000
	maxRequestBodySize = 5 << 20 // 5 MB limit for batch request bodies
)

// submitImportJobRequest is the JSON request body for submitting a batch.
type submitImportJobRequest struct {
	Papers []importer.PaperInput `json:"papers"`
}

// submitImportJob handles POST /api/v1/import-jobs.
// It registers the batch and returns immediately; items are processed
// asynchronously and progress is available via GET.
func (s *Server) submitImportJob(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req submitImportJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if len(req.Papers) == 0 {
		writeError(w, http.StatusBadRequest, "papers must contain at least one entry")
		return
	}
	if len(req.Papers) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("papers must have at most %d entries", maxBatchSize))
		return
	}

	for i, item := range req.Papers {
		if err := s.validate.Struct(item); err != nil {
			writeError(w, http.StatusBadRequest, validationMessage(i, err))
			return
		}
	}

	job, err := s.jobs.Submit(r.Context(), req.Papers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, domainJobToResponse(job))
}

// getImportJob handles GET /api/v1/import-jobs/{jobID}.
func (s *Server) getImportJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := parseUUID(w, chi.URLParam(r, "jobID"), "job_id")
	if !ok {
		return
	}

	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainJobToResponse(job))
}

// listImportJobs handles GET /api/v1/import-jobs. Jobs are returned newest
// first; an optional status query parameter filters by lifecycle state.
func (s *Server) listImportJobs(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.ImportJobFilter{
		Limit:  limit,
		Offset: offset,
	}

	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.JobStatus(statusParam)
		switch status {
		case domain.JobStatusProcessing, domain.JobStatusCompleted, domain.JobStatusFailed:
			filter.Status = &status
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported status: %s", statusParam))
			return
		}
	}

	jobs, totalCount, err := s.jobs.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]importJobResponse, len(jobs))
	for i, job := range jobs {
		responses[i] = domainJobToResponse(job)
	}

	writeJSON(w, http.StatusOK, listImportJobsResponse{
		Jobs:          responses,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// validationMessage renders a validator error for one batch item.
func validationMessage(index int, err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("papers[%d]: field %s failed %s validation", index, fe.Field(), fe.Tag())
	}
	return fmt.Sprintf("papers[%d]: invalid entry", index)
}

// writeDomainError translates an error from the importer or resolver
// layers into a JSON error response. Internal detail stays out of the
// body; only validation errors echo their message.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrNoIdentifier):
		status, msg = http.StatusUnprocessableEntity, "researcher has no external identifier"
	case errors.Is(err, domain.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "invalid input"
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			msg = ve.Error()
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, "resource already exists"
	case errors.Is(err, domain.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, "rate limited"
	case errors.Is(err, domain.ErrServiceUnavailable):
		status, msg = http.StatusServiceUnavailable, "service unavailable"
	}
	writeError(w, status, msg)
}

// parseUUID validates a path parameter as a UUID, answering 400 itself
// when the value does not parse. The raw value is never echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err == nil {
		return id, true
	}
	writeError(w, http.StatusBadRequest, fieldName+" must be a valid UUID")
	return uuid.Nil, false
}

// parsePaginationParams reads page_size and page_token from the query
// string. page_size is clamped to maxPageSize; the token carries the
// next offset, produced by encodePageToken.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if n, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && n > 0 {
		limit = min(n, maxPageSize)
	}
	return limit, decodePageToken(r.URL.Query().Get("page_token"))
}

// decodePageToken recovers the offset from a page token, treating any
// malformed token as the first page.
func decodePageToken(token string) int {
	if token == "" {
		return 0
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// encodePageToken produces the token for the next page, or "" when the
// listing is exhausted.
func encodePageToken(offset, limit, totalCount int) string {
	next := offset + limit
	if next >= totalCount {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(next)))
}
