package crossref

// WorkResponse is the envelope for single-work requests.
type WorkResponse struct {
	Status  string `json:"status"`
	Message Work   `json:"message"`
}

// SearchResponse is the envelope for work search requests.
type SearchResponse struct {
	Status  string      `json:"status"`
	Message SearchItems `json:"message"`
}

// SearchItems holds the result list for a search.
type SearchItems struct {
	TotalResults int    `json:"total-results"`
	Items        []Work `json:"items"`
}

// Work is a single work record.
type Work struct {
	DOI                 string     `json:"DOI"`
	Title               []string   `json:"title"`
	ContainerTitle      []string   `json:"container-title"`
	Abstract            string     `json:"abstract"`
	Author              []Author   `json:"author"`
	Issued              *DateParts `json:"issued"`
	URL                 string     `json:"URL"`
	IsReferencedByCount int        `json:"is-referenced-by-count"`
	ReferencesCount     int        `json:"references-count"`
	Subject             []string   `json:"subject"`
	Publisher           string     `json:"publisher"`
	Type                string     `json:"type"`
}

// Author is an author entry on a work.
type Author struct {
	Given       string        `json:"given"`
	Family      string        `json:"family"`
	Name        string        `json:"name"`
	ORCID       string        `json:"ORCID"`
	Affiliation []Affiliation `json:"affiliation"`
}

// Affiliation is an author's affiliated organization.
type Affiliation struct {
	Name string `json:"name"`
}

// DateParts is Crossref's partial-date representation: an array of
// [year, month, day] tuples where month and day may be absent.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}
