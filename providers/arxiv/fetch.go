package arxiv

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"paper-radar/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// PaperInfo is the metadata the arXiv export API yields for one paper.
type PaperInfo struct {
	PaperID   string
	Title     string
	Abstract  string
	ArxivDate *time.Time
	Authors   []string
	PDFURL    string
}

// Fetcher wraps the arXiv export API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new arXiv fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// CleanID strips a version suffix from an arXiv ID ("2306.02437v2" -> "2306.02437").
func CleanID(paperID string) string {
	if i := strings.Index(paperID, "v"); i > 0 {
		return paperID[:i]
	}
	return paperID
}

// GetPaperInfo fetches title, abstract, date, authors and PDF link for one ID.
// Returns (nil, nil) when arXiv knows no paper with that ID.
func (f *Fetcher) GetPaperInfo(paperID string) (*PaperInfo, error) {
	cleanID := CleanID(paperID)
	queryURL := fmt.Sprintf("%s?id_list=%s", f.Config.ArxivBaseURL, url.QueryEscape(cleanID))
	f.Logger.Debug("Fetching arXiv metadata", zap.String("url", queryURL))

	resp, err := httpClient.Get(queryURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv query failed: status %d", resp.StatusCode)
	}

	var feed Feed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, err
	}

	if len(feed.Entries) == 0 {
		return nil, nil
	}
	entry := feed.Entries[0]
	// arXiv answers unknown IDs with an entry that has an empty title.
	if strings.TrimSpace(entry.Title) == "" {
		return nil, nil
	}

	info := &PaperInfo{
		PaperID:  cleanID,
		Title:    collapseWhitespace(entry.Title),
		Abstract: collapseWhitespace(entry.Summary),
	}

	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		info.ArxivDate = &t
	}

	for _, a := range entry.Authors {
		if a.Name != "" {
			info.Authors = append(info.Authors, a.Name)
		}
	}

	for _, link := range entry.Links {
		if link.Title == "pdf" && link.Href != "" {
			info.PDFURL = link.Href
			break
		}
	}
	if info.PDFURL == "" {
		info.PDFURL = fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", cleanID)
	}

	return info, nil
}

// collapseWhitespace normalizes the line-broken text arXiv returns.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
