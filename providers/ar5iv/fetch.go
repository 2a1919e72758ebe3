package ar5iv

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"paper-radar/config"
)

var (
	httpClient = &http.Client{Timeout: 30 * time.Second}
	// First <img> inside a <figure> block.
	figureImgRegex = regexp.MustCompile(`(?is)<figure[^>]*>.*?<img[^>]+src="([^"]+)"`)
	// Fallback: any <img> pointing into the paper's asset directories.
	assetImgRegex = regexp.MustCompile(`(?i)<img[^>]+src="([^"]*(?:assets|figures|images)[^"]*)"`)
)

// Fetcher extracts the first figure image URL from a paper's ar5iv HTML page.
// Everything here is best effort: a missing page or figure is not an error
// worth failing a registration over.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new ar5iv fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// GetFirstFigureURL returns the absolute URL of the first figure image, or ""
// when the page has none.
func (f *Fetcher) GetFirstFigureURL(paperID string) (string, error) {
	pageURL := fmt.Sprintf("%s/html/%s", f.Config.Ar5ivBaseURL, paperID)
	log := f.Logger.With(zap.String("paper_id", paperID))
	log.Debug("Fetching ar5iv page", zap.String("url", pageURL))

	resp, err := httpClient.Get(pageURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug("No ar5iv page for paper", zap.Int("status", resp.StatusCode))
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var src string
	if m := figureImgRegex.FindSubmatch(body); len(m) > 1 {
		src = string(m[1])
	} else if m := assetImgRegex.FindSubmatch(body); len(m) > 1 {
		src = string(m[1])
	}
	if src == "" {
		log.Debug("No figure found on ar5iv page")
		return "", nil
	}

	full := f.absoluteURL(paperID, src)
	log.Debug("Found figure", zap.String("figure_url", full))
	return full, nil
}

func (f *Fetcher) absoluteURL(paperID, src string) string {
	switch {
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return src
	case strings.HasPrefix(src, "/"):
		return f.Config.Ar5ivBaseURL + src
	default:
		return fmt.Sprintf("%s/html/%s/%s", f.Config.Ar5ivBaseURL, paperID, src)
	}
}
