package semanticscholar

// paperFields is the field list requested from the graph API.
const paperFields = "title,citationCount,externalIds,year,publicationDate,authors,abstract"

type paperResponse struct {
	Title           string       `json:"title"`
	Abstract        string       `json:"abstract"`
	CitationCount   int          `json:"citationCount"`
	Year            int          `json:"year"`
	PublicationDate string       `json:"publicationDate"`
	ExternalIDs     *externalIDs `json:"externalIds"`
	Authors         []author     `json:"authors"`
}

type externalIDs struct {
	ArXiv string `json:"ArXiv"`
}

type author struct {
	Name string `json:"name"`
}

type citationsResponse struct {
	Data []struct {
		CitingPaper paperResponse `json:"citingPaper"`
	} `json:"data"`
}

type searchResponse struct {
	Data []paperResponse `json:"data"`
}
