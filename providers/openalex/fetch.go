package openalex

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"paper-radar/config"
	"paper-radar/providers/arxiv"
)

var httpClient = &http.Client{Timeout: 5 * time.Second}

// Fetcher wraps the OpenAlex works API for fast citation-count lookups.
// arXiv papers are addressed through their DataCite DOI (10.48550/arxiv.<id>).
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new OpenAlex fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

type workResponse struct {
	CitedByCount int `json:"cited_by_count"`
}

// GetCitationCount returns the citation count for an arXiv paper.
func (f *Fetcher) GetCitationCount(paperID string) (int, error) {
	doi := fmt.Sprintf("10.48550/arxiv.%s", arxiv.CleanID(paperID))
	reqURL := fmt.Sprintf("%s/works/doi:%s?select=cited_by_count", f.Config.OpenAlexBaseURL, doi)
	f.Logger.Debug("Fetching OpenAlex citation count", zap.String("url", reqURL))

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", fmt.Sprintf("paper-radar/1.0 (mailto:%s)", f.Config.OpenAlexMailto))

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("openalex returned status %d", resp.StatusCode)
	}

	var work workResponse
	if err := json.NewDecoder(resp.Body).Decode(&work); err != nil {
		return 0, err
	}

	f.Logger.Debug("OpenAlex citation count",
		zap.String("paper_id", paperID), zap.Int("count", work.CitedByCount))
	return work.CitedByCount, nil
}
