package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paper-radar/models"
	"paper-radar/providers/arxiv"
	"paper-radar/providers/semanticscholar"
)

type fakeCitations struct {
	citing  []semanticscholar.Candidate
	topic   []semanticscholar.Candidate
	count   int
	err     error
	countOK bool
}

func (f *fakeCitations) GetCitingPapers(paperID string, limit int, sortBy string, yearFrom int) ([]semanticscholar.Candidate, error) {
	return f.citing, f.err
}

func (f *fakeCitations) SearchByTopic(query string, limit int, sortBy string, yearFrom int) ([]semanticscholar.Candidate, error) {
	return f.topic, f.err
}

func (f *fakeCitations) GetCitationCount(paperID string) (int, error) {
	if !f.countOK {
		return 0, errors.New("semantic scholar unavailable")
	}
	return f.count, nil
}

type fakeFastCitations struct {
	counts map[string]int
	err    error
}

func (f *fakeFastCitations) GetCitationCount(paperID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[paperID], nil
}

type fakeFigures struct{ url string }

func (f *fakeFigures) GetFirstFigureURL(paperID string) (string, error) {
	return f.url, nil
}

type registrationFixture struct {
	svc       *RegistrationService
	metadata  *fakeMetadata
	citations *fakeCitations
	fast      *fakeFastCitations
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()
	db := newTestDB(t)
	logger := zap.NewNop()
	metadata := &fakeMetadata{papers: map[string]*arxiv.PaperInfo{}}
	citations := &fakeCitations{}
	fast := &fakeFastCitations{counts: map[string]int{}}
	keywords := NewKeywordService(db, logger)
	svc := NewRegistrationService(db, metadata, citations, fast, &fakeFigures{}, keywords, logger)
	return &registrationFixture{svc: svc, metadata: metadata, citations: citations, fast: fast}
}

func TestRegisterNew(t *testing.T) {
	f := newRegistrationFixture(t)
	f.metadata.papers["2306.02437"] = &arxiv.PaperInfo{
		PaperID:  "2306.02437",
		Title:    "A Paper",
		Abstract: "about diffusion",
		Authors:  []string{"Kim", "Lee"},
		PDFURL:   "https://arxiv.org/pdf/2306.02437.pdf",
	}
	require.NoError(t, f.svc.DB.Create(&models.UserKeyword{Keyword: "diffusion"}).Error)

	paper, created, err := f.svc.RegisterNew("2306.02437v2", "june")
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "2306.02437", paper.PaperID, "version suffix must be stripped")
	require.Equal(t, models.StageRegistered, paper.SearchStage)
	require.Equal(t, "june", paper.RegisteredBy)
	require.Equal(t, []string{"diffusion"}, DecodeMatched(paper.MatchedKeywords))

	var doc models.PaperDocument
	require.NoError(t, f.svc.DB.Where("paper_id = ?", "2306.02437").First(&doc).Error)
	require.Equal(t, "about diffusion", doc.AbstractEN)
	require.Equal(t, "Kim, Lee", doc.Authors)

	// Registering again is a no-op returning the existing row.
	again, created, err := f.svc.RegisterNew("2306.02437", "someone else")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, paper.ID, again.ID)
	require.Equal(t, "june", again.RegisteredBy)
}

func TestRegisterNewUnknownID(t *testing.T) {
	f := newRegistrationFixture(t)

	_, _, err := f.svc.RegisterNew("0000.00000", "june")
	require.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, f.svc.DB.Model(&models.Paper{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestRegisterCitingPapers(t *testing.T) {
	f := newRegistrationFixture(t)
	f.citations.citing = []semanticscholar.Candidate{
		{PaperID: "1111.11111", Title: "Citing One", CitationCount: 90},
		{PaperID: "2222.22222", Title: "Citing Two", CitationCount: 50},
		{PaperID: "3333.33333", Title: "Citing Three", CitationCount: 10},
	}
	// Only the second has arXiv metadata; the others fall back to the
	// candidate data.
	f.metadata.papers["2222.22222"] = &arxiv.PaperInfo{
		PaperID: "2222.22222", Title: "Citing Two (arXiv)", Abstract: "abs",
	}
	// The third is already registered.
	require.NoError(t, f.svc.DB.Create(&models.Paper{PaperID: "3333.33333"}).Error)

	registered, err := f.svc.RegisterCitingPapers("9999.99999", 10, "june")
	require.NoError(t, err)
	require.Equal(t, []string{"1111.11111", "2222.22222"}, paperIDs(registered))
	require.Equal(t, 90, registered[0].CitationCount)
	require.Equal(t, "Citing Two (arXiv)", *registered[1].Title)
}

func TestRegisterCitingPapersHonorsLimit(t *testing.T) {
	f := newRegistrationFixture(t)
	f.citations.citing = []semanticscholar.Candidate{
		{PaperID: "1", Title: "A", CitationCount: 3},
		{PaperID: "2", Title: "B", CitationCount: 2},
		{PaperID: "3", Title: "C", CitationCount: 1},
	}

	registered, err := f.svc.RegisterCitingPapers("seed", 2, "june")
	require.NoError(t, err)
	require.Len(t, registered, 2)
}

func TestRegisterBulk(t *testing.T) {
	f := newRegistrationFixture(t)
	f.metadata.papers["1111.11111"] = &arxiv.PaperInfo{PaperID: "1111.11111", Title: "One"}
	require.NoError(t, f.svc.DB.Create(&models.Paper{PaperID: "2222.22222"}).Error)

	result, err := f.svc.RegisterBulk([]BulkItem{
		{PaperID: "1111.11111", CitationCount: 12},
		{PaperID: "2222.22222", CitationCount: 7},
		{PaperID: "0000.00000", CitationCount: 0}, // unknown everywhere
	}, "june")
	require.NoError(t, err)

	require.Len(t, result.Registered, 1)
	require.Equal(t, "1111.11111", result.Registered[0].PaperID)
	require.Equal(t, 12, result.Registered[0].CitationCount)
	require.Equal(t, []string{"2222.22222"}, result.Skipped)
	require.Len(t, result.Failed, 1)
	require.Equal(t, "0000.00000", result.Failed[0].PaperID)
	require.NotEmpty(t, result.Failed[0].Reason)
}

func TestMarkCandidates(t *testing.T) {
	f := newRegistrationFixture(t)
	require.NoError(t, f.svc.DB.Create(&models.Paper{PaperID: "1"}).Error)
	require.NoError(t, f.svc.DB.Create(&models.Paper{PaperID: "2", IsNotInterested: true}).Error)

	preview, err := f.svc.MarkCandidates([]semanticscholar.Candidate{
		{PaperID: "1", Title: "Registered"},
		{PaperID: "2", Title: "Hidden"},
		{PaperID: "3", Title: "Fresh"},
	})
	require.NoError(t, err)

	require.Len(t, preview, 2, "hidden papers are dropped from previews")
	require.Equal(t, "1", preview[0].PaperID)
	require.True(t, preview[0].AlreadyRegistered)
	require.Equal(t, "3", preview[1].PaperID)
	require.False(t, preview[1].AlreadyRegistered)
}

func TestUpdateCitationCountFastPathAndFallback(t *testing.T) {
	f := newRegistrationFixture(t)
	require.NoError(t, f.svc.DB.Create(&models.Paper{PaperID: "p1", CitationCount: 1}).Error)

	_, err := f.svc.UpdateCitationCount("missing")
	require.ErrorIs(t, err, ErrNotFound)

	f.fast.counts["p1"] = 42
	paper, err := f.svc.UpdateCitationCount("p1")
	require.NoError(t, err)
	require.Equal(t, 42, paper.CitationCount)

	// OpenAlex down, Semantic Scholar answers.
	f.fast.err = errors.New("openalex down")
	f.citations.countOK = true
	f.citations.count = 77
	paper, err = f.svc.UpdateCitationCount("p1")
	require.NoError(t, err)
	require.Equal(t, 77, paper.CitationCount)

	// Both down.
	f.citations.countOK = false
	_, err = f.svc.UpdateCitationCount("p1")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestRefreshAllCitationCounts(t *testing.T) {
	f := newRegistrationFixture(t)
	require.NoError(t, f.svc.DB.Create(&[]models.Paper{
		{PaperID: "p1", CitationCount: 1},
		{PaperID: "p2", CitationCount: 5},
	}).Error)
	f.fast.counts = map[string]int{"p1": 10, "p2": 5}

	updated, err := f.svc.RefreshAllCitationCounts()
	require.NoError(t, err)
	require.Equal(t, 1, updated, "unchanged counts are not rewritten")

	var paper models.Paper
	require.NoError(t, f.svc.DB.Where("paper_id = ?", "p1").First(&paper).Error)
	require.Equal(t, 10, paper.CitationCount)
}
