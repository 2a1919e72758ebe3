package huggingface

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"paper-radar/config"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Period selects how many days of daily papers are merged.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// Fetcher wraps the HuggingFace daily-papers API.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a new HuggingFace fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// GetDailyPapers returns the trending papers for a date and period. Week and
// month merge the per-day feeds, deduplicate by paper ID and sort by upvotes.
func (f *Fetcher) GetDailyPapers(target time.Time, period Period) ([]TrendingPaper, error) {
	switch period {
	case PeriodWeek:
		return f.getPapersForPeriod(target, 7)
	case PeriodMonth:
		return f.getPapersForPeriod(target, 30)
	default:
		return f.fetchSingleDay(target)
	}
}

func (f *Fetcher) fetchSingleDay(target time.Time) ([]TrendingPaper, error) {
	reqURL := f.Config.HuggingFaceBaseURL
	if !target.IsZero() {
		reqURL = fmt.Sprintf("%s?date=%s", reqURL, target.Format("2006-01-02"))
	}
	f.Logger.Debug("Fetching daily papers", zap.String("url", reqURL))

	resp, err := httpClient.Get(reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daily papers returned status %d", resp.StatusCode)
	}

	var entries []rawEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return parseEntries(entries), nil
}

// getPapersForPeriod fetches each day in parallel with a small bound, then
// merges the results. Days that fail are skipped.
func (f *Fetcher) getPapersForPeriod(end time.Time, days int) ([]TrendingPaper, error) {
	if end.IsZero() {
		end = time.Now()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, 5)
	perDay := make([][]TrendingPaper, days)

	for i := 0; i < days; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			day := end.AddDate(0, 0, -i)
			papers, err := f.fetchSingleDay(day)
			if err != nil {
				f.Logger.Warn("Daily papers fetch failed for day",
					zap.String("date", day.Format("2006-01-02")), zap.Error(err))
				return
			}
			mu.Lock()
			perDay[i] = papers
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var all []TrendingPaper
	for _, papers := range perDay {
		for _, p := range papers {
			if p.PaperID == "" {
				continue
			}
			if _, ok := seen[p.PaperID]; ok {
				continue
			}
			seen[p.PaperID] = struct{}{}
			all = append(all, p)
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Upvotes > all[j].Upvotes })
	return all, nil
}

func parseEntries(entries []rawEntry) []TrendingPaper {
	papers := make([]TrendingPaper, 0, len(entries))
	for _, e := range entries {
		p := TrendingPaper{
			PaperID:     e.Paper.ID,
			Title:       e.Paper.Title,
			Summary:     e.Paper.Summary,
			Upvotes:     e.Paper.Upvotes,
			AISummary:   e.Paper.AISummary,
			AIKeywords:  e.Paper.AIKeywords,
			PublishedAt: e.Paper.PublishedAt,
			GithubRepo:  e.Paper.GithubRepo,
			GithubStars: e.Paper.GithubStars,
			NumComments: e.NumComments,
			Thumbnail:   e.Thumbnail,
		}
		if e.SubmittedBy != nil {
			p.SubmittedBy = &Submitter{
				Name:      e.SubmittedBy.Name,
				Fullname:  e.SubmittedBy.Fullname,
				AvatarURL: e.SubmittedBy.AvatarURL,
			}
		}
		for _, a := range e.Paper.Authors {
			if a.Name != "" {
				p.Authors = append(p.Authors, a.Name)
			}
		}
		papers = append(papers, p)
	}
	return papers
}
