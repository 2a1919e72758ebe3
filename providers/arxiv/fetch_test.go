package arxiv

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paper-radar/config"
)

const feedWithEntry = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2306.02437v2</id>
    <published>2023-06-05T17:59:59Z</published>
    <title>Attention  Is
 All You Need</title>
    <summary>We propose a new
 architecture.</summary>
    <author><name>A. Vaswani</name></author>
    <author><name>N. Shazeer</name></author>
    <link title="pdf" href="http://arxiv.org/pdf/2306.02437v2" rel="related" type="application/pdf"/>
  </entry>
</feed>`

const feedUnknownID = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/api/errors#incorrect_id</id>
    <title></title>
    <summary>Error</summary>
  </entry>
</feed>`

func TestCleanID(t *testing.T) {
	require.Equal(t, "2306.02437", CleanID("2306.02437v2"))
	require.Equal(t, "2306.02437", CleanID("2306.02437"))
	require.Equal(t, "1234.56789", CleanID("1234.56789v11"))
}

func TestGetPaperInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "2306.02437", r.URL.Query().Get("id_list"))
		w.Write([]byte(feedWithEntry))
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{ArxivBaseURL: server.URL}, zap.NewNop())

	info, err := f.GetPaperInfo("2306.02437v2")
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Equal(t, "2306.02437", info.PaperID)
	require.Equal(t, "Attention Is All You Need", info.Title, "whitespace must be collapsed")
	require.Equal(t, "We propose a new architecture.", info.Abstract)
	require.Equal(t, []string{"A. Vaswani", "N. Shazeer"}, info.Authors)
	require.Equal(t, "http://arxiv.org/pdf/2306.02437v2", info.PDFURL)
	require.NotNil(t, info.ArxivDate)
	require.Equal(t, 2023, info.ArxivDate.Year())
}

func TestGetPaperInfoUnknownID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feedUnknownID))
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{ArxivBaseURL: server.URL}, zap.NewNop())

	info, err := f.GetPaperInfo("0000.00000")
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestGetPaperInfoServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(&config.Config{ArxivBaseURL: server.URL}, zap.NewNop())

	_, err := f.GetPaperInfo("2306.02437")
	require.Error(t, err)
}
