package semanticscholar

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"

	"paper-radar/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

const (
	maxRetries = 2
	retryDelay = time.Second
	batchSize  = 100 // graph API page limit
)

// Sort orders accepted by the candidate-list calls.
const (
	SortCitationCount   = "citationCount"
	SortPublicationDate = "publicationDate"
	SortRelevance       = "relevance"
)

// Candidate is one paper returned by a citation or topic search, restricted
// to papers that carry an arXiv ID.
type Candidate struct {
	PaperID         string   `json:"paper_id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Year            int      `json:"year,omitempty"`
	PublicationDate string   `json:"publication_date,omitempty"`
	CitationCount   int      `json:"citation_count"`
	Abstract        string   `json:"abstract,omitempty"`
}

// Fetcher wraps the Semantic Scholar graph API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new Semantic Scholar fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// semanticID converts an arXiv ID into the graph API's ARXIV: form.
func semanticID(paperID string) string {
	clean := paperID
	for i := 1; i < len(clean); i++ {
		if clean[i] == 'v' {
			clean = clean[:i]
			break
		}
	}
	return "ARXIV:" + clean
}

func (f *Fetcher) get(rawURL string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if f.Config.SemanticScholarAPIKey != "" {
		req.Header.Set("x-api-key", f.Config.SemanticScholarAPIKey)
	}
	return httpClient.Do(req)
}

// GetCitationCount returns the citation count for a paper, with a short retry
// on rate limiting.
func (f *Fetcher) GetCitationCount(paperID string) (int, error) {
	log := f.Logger.With(zap.String("paper_id", paperID))
	reqURL := fmt.Sprintf("%s/paper/%s?fields=citationCount",
		f.Config.SemanticScholarBaseURL, url.PathEscape(semanticID(paperID)))

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := f.get(reqURL)
		if err != nil {
			log.Warn("Semantic Scholar request failed", zap.Error(err))
			time.Sleep(retryDelay)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			wait := retryDelay * time.Duration(attempt+1)
			log.Warn("Semantic Scholar rate limited", zap.Duration("wait", wait))
			time.Sleep(wait)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return 0, fmt.Errorf("semantic scholar returned status %d", resp.StatusCode)
		}

		var pr paperResponse
		err = json.NewDecoder(resp.Body).Decode(&pr)
		resp.Body.Close()
		if err != nil {
			return 0, err
		}
		return pr.CitationCount, nil
	}
	return 0, fmt.Errorf("semantic scholar unreachable after %d attempts", maxRetries)
}

// GetCitingPapers returns up to limit papers citing the given paper, arXiv
// papers only, ordered by sortBy and optionally filtered by publication year.
func (f *Fetcher) GetCitingPapers(paperID string, limit int, sortBy string, yearFrom int) ([]Candidate, error) {
	log := f.Logger.With(zap.String("paper_id", paperID), zap.String("sort", sortBy))
	log.Info("Fetching citing papers")

	var all []Candidate
	for offset := 0; ; offset += batchSize {
		reqURL := fmt.Sprintf("%s/paper/%s/citations?fields=%s&limit=%d&offset=%d",
			f.Config.SemanticScholarBaseURL, url.PathEscape(semanticID(paperID)),
			paperFields, batchSize, offset)

		resp, err := f.get(reqURL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("semantic scholar citations returned status %d", resp.StatusCode)
		}

		var cr citationsResponse
		err = json.NewDecoder(resp.Body).Decode(&cr)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if len(cr.Data) == 0 {
			break
		}

		for _, entry := range cr.Data {
			if c, ok := toCandidate(entry.CitingPaper, yearFrom); ok {
				all = append(all, c)
			}
		}

		// Over-fetch a little so the sort sees enough candidates, then stop.
		if len(cr.Data) < batchSize || len(all) >= limit*2 {
			break
		}
	}

	sortCandidates(all, sortBy)
	if len(all) > limit {
		all = all[:limit]
	}
	log.Info("Citing papers fetched", zap.Int("count", len(all)))
	return all, nil
}

// SearchByTopic searches papers by free-text query, arXiv papers only.
func (f *Fetcher) SearchByTopic(query string, limit int, sortBy string, yearFrom int) ([]Candidate, error) {
	log := f.Logger.With(zap.String("query", query), zap.String("sort", sortBy))
	log.Info("Searching papers by topic")

	var all []Candidate
	rateLimited := 0
	for offset := 0; len(all) < limit; offset += batchSize {
		reqURL := fmt.Sprintf("%s/paper/search?query=%s&fields=%s&limit=%d&offset=%d",
			f.Config.SemanticScholarBaseURL, url.QueryEscape(query),
			paperFields, batchSize, offset)
		if yearFrom > 0 {
			reqURL += fmt.Sprintf("&year=%d-", yearFrom)
		}

		resp, err := f.get(reqURL)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			rateLimited++
			if rateLimited >= maxRetries {
				return nil, fmt.Errorf("semantic scholar rate limited after %d attempts", rateLimited)
			}
			wait := retryDelay * time.Duration(rateLimited)
			log.Warn("Semantic Scholar rate limited during search", zap.Duration("wait", wait))
			time.Sleep(wait)
			offset -= batchSize
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("semantic scholar search returned status %d", resp.StatusCode)
		}

		var sr searchResponse
		err = json.NewDecoder(resp.Body).Decode(&sr)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if len(sr.Data) == 0 {
			break
		}

		for _, p := range sr.Data {
			if c, ok := toCandidate(p, 0); ok {
				all = append(all, c)
				if len(all) >= limit {
					break
				}
			}
		}
		if len(sr.Data) < batchSize {
			break
		}
	}

	// relevance is the API's native order, nothing to re-sort.
	if sortBy != SortRelevance {
		sortCandidates(all, sortBy)
	}
	if len(all) > limit {
		all = all[:limit]
	}
	log.Info("Topic search finished", zap.Int("count", len(all)))
	return all, nil
}

func toCandidate(p paperResponse, yearFrom int) (Candidate, bool) {
	if p.ExternalIDs == nil || p.ExternalIDs.ArXiv == "" {
		return Candidate{}, false
	}
	if yearFrom > 0 && p.Year > 0 && p.Year < yearFrom {
		return Candidate{}, false
	}
	c := Candidate{
		PaperID:         p.ExternalIDs.ArXiv,
		Title:           p.Title,
		Year:            p.Year,
		PublicationDate: p.PublicationDate,
		CitationCount:   p.CitationCount,
		Abstract:        p.Abstract,
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			c.Authors = append(c.Authors, a.Name)
		}
	}
	return c, true
}

func sortCandidates(cs []Candidate, sortBy string) {
	switch sortBy {
	case SortPublicationDate:
		sort.SliceStable(cs, func(i, j int) bool {
			return cs[i].PublicationDate > cs[j].PublicationDate
		})
	default: // citation count
		sort.SliceStable(cs, func(i, j int) bool {
			return cs[i].CitationCount > cs[j].CitationCount
		})
	}
}
