package semanticscholar

// SearchResponse is the response envelope for paper search requests.
type SearchResponse struct {
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Next   int           `json:"next"`
	Data   []PaperResult `json:"data"`
}

// PaperResult is a single paper record from the Graph API.
type PaperResult struct {
	PaperID         string       `json:"paperId"`
	ExternalIDs     *ExternalIDs `json:"externalIds"`
	Title           string       `json:"title"`
	Abstract        string       `json:"abstract"`
	Year            int          `json:"year"`
	PublicationDate string       `json:"publicationDate"`
	Venue           string       `json:"venue"`
	Journal         *Journal     `json:"journal"`
	URL             string       `json:"url"`
	Authors         []Author     `json:"authors"`
	CitationCount   int          `json:"citationCount"`
	ReferenceCount  int          `json:"referenceCount"`
	FieldsOfStudy   []string     `json:"fieldsOfStudy"`
}

// ExternalIDs contains a paper's identifiers in other systems.
type ExternalIDs struct {
	DOI           string `json:"DOI"`
	ArXiv         string `json:"ArXiv"`
	PubMed        string `json:"PubMed"`
	PubMedCentral string `json:"PubMedCentral"`
}

// Journal contains publication venue details.
type Journal struct {
	Name   string `json:"name"`
	Volume string `json:"volume"`
	Pages  string `json:"pages"`
}

// Author is an author entry attached to a paper record.
type Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// AuthorResult is a standalone author record from the author endpoint.
type AuthorResult struct {
	AuthorID     string             `json:"authorId"`
	Name         string             `json:"name"`
	URL          string             `json:"url"`
	Affiliations []string           `json:"affiliations"`
	HIndex       int                `json:"hIndex"`
	PaperCount   int                `json:"paperCount"`
	ExternalIDs  *AuthorExternalIDs `json:"externalIds"`
}

// AuthorExternalIDs contains an author's identifiers in other systems.
type AuthorExternalIDs struct {
	ORCID string `json:"ORCID"`
}

// ErrorResponse is the error envelope returned by the API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
