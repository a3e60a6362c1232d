package openalex

// ListResponse is the response envelope for list endpoints.
type ListResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains pagination metadata for list responses.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Work is a single work record.
type Work struct {
	ID                    string           `json:"id"`
	DOI                   string           `json:"doi"`
	Title                 string           `json:"title"`
	DisplayName           string           `json:"display_name"`
	PublicationYear       int              `json:"publication_year"`
	PublicationDate       string           `json:"publication_date"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
	PrimaryLocation       *Location        `json:"primary_location"`
	Authorships           []Authorship     `json:"authorships"`
	Concepts              []Concept        `json:"concepts"`
	Type                  string           `json:"type"`
	Language              string           `json:"language"`
	ReferencedWorksCount  int              `json:"referenced_works_count"`
}

// Location describes where a work is hosted.
type Location struct {
	LandingPageURL string       `json:"landing_page_url"`
	PdfURL         string       `json:"pdf_url"`
	Source         *VenueSource `json:"source"`
}

// VenueSource describes a hosting venue such as a journal.
type VenueSource struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// Authorship links an author to a work.
type Authorship struct {
	AuthorPosition string        `json:"author_position"`
	Author         WorkAuthor    `json:"author"`
	Institutions   []Institution `json:"institutions"`
}

// WorkAuthor is the author entry embedded in an authorship.
type WorkAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	ORCID       string `json:"orcid"`
}

// Institution is an author's affiliated institution.
type Institution struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

// Concept is a tagged research concept with a relevance score.
type Concept struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Level       int     `json:"level"`
	Score       float64 `json:"score"`
}

// Author is a standalone author record from the authors endpoint.
type Author struct {
	ID                    string        `json:"id"`
	DisplayName           string        `json:"display_name"`
	ORCID                 string        `json:"orcid"`
	WorksCount            int           `json:"works_count"`
	CitedByCount          int           `json:"cited_by_count"`
	SummaryStats          *SummaryStats `json:"summary_stats"`
	LastKnownInstitutions []Institution `json:"last_known_institutions"`
	XConcepts             []Concept     `json:"x_concepts"`
}

// SummaryStats contains citation statistics for an author.
type SummaryStats struct {
	HIndex               int     `json:"h_index"`
	I10Index             int     `json:"i10_index"`
	TwoYearMeanCitedness float64 `json:"2yr_mean_citedness"`
}

// ErrorResponse is the error envelope returned by the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
