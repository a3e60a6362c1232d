package importer

import (
	"time"

	"github.com/researchhub/paper-import-service/internal/domain"
)

// PaperInput is one user-supplied item of a bulk import batch. Only
// presence is checked at submission; title length and DOI shape are
// validated per item inside the worker, so a bad entry fails that item
// instead of rejecting the whole batch.
type PaperInput struct {
	Title           string                 `json:"title" validate:"required"`
	Abstract        string                 `json:"abstract,omitempty"`
	DOI             string                 `json:"doi,omitempty"`
	Journal         string                 `json:"journal,omitempty"`
	URL             string                 `json:"url,omitempty"`
	PublicationDate *time.Time             `json:"publication_date,omitempty"`
	Keywords        []string               `json:"keywords,omitempty"`
	RawMetadata     map[string]interface{} `json:"raw_metadata,omitempty"`
}

// ToPaper builds the initial paper record for the input. The DOI is
// normalized; import status starts pending until the enrichment cascade
// settles it.
func (in PaperInput) ToPaper() *domain.Paper {
	return &domain.Paper{
		Title:           in.Title,
		Abstract:        in.Abstract,
		DOI:             domain.NormalizeDOI(in.DOI),
		Journal:         in.Journal,
		URL:             in.URL,
		PublicationDate: in.PublicationDate,
		Keywords:        in.Keywords,
		RawMetadata:     in.RawMetadata,
		ImportStatus:    domain.ImportStatusPending,
	}
}
