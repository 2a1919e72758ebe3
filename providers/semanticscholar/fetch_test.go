package semanticscholar

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paper-radar/config"
)

const searchPage = `{"data": [
  {"paperId": "s1", "title": "First", "year": 2024, "publicationDate": "2024-03-01",
   "citationCount": 5, "abstract": "A.",
   "externalIds": {"ArXiv": "2403.00001"},
   "authors": [{"name": "A. One"}]},
  {"paperId": "s2", "title": "No arXiv ID", "year": 2024, "citationCount": 99},
  {"paperId": "s3", "title": "Second", "year": 2023, "publicationDate": "2023-06-01",
   "citationCount": 40,
   "externalIds": {"ArXiv": "2306.00002"},
   "authors": [{"name": "B. Two"}]}
]}`

func TestSearchByTopic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "diffusion models", r.URL.Query().Get("query"))
		w.Write([]byte(searchPage))
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{SemanticScholarBaseURL: server.URL}, zap.NewNop())

	papers, err := f.SearchByTopic("diffusion models", 10, SortCitationCount, 0)
	require.NoError(t, err)
	require.Len(t, papers, 2, "papers without an arXiv ID must be dropped")
	require.Equal(t, "2306.00002", papers[0].PaperID, "citation count sort puts the heavier paper first")
	require.Equal(t, "2403.00001", papers[1].PaperID)
	require.Equal(t, []string{"A. One"}, papers[1].Authors)
}

func TestSearchByTopicGivesUpOnRateLimit(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{SemanticScholarBaseURL: server.URL}, zap.NewNop())

	start := time.Now()
	_, err := f.SearchByTopic("anything", 10, SortRelevance, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
	require.Equal(t, maxRetries, hits, "must stop retrying once the budget is spent")
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestGetCitationCountRetriesThenFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{SemanticScholarBaseURL: server.URL}, zap.NewNop())

	_, err := f.GetCitationCount("2306.02437")
	require.Error(t, err)
}
