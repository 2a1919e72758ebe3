package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"paper-radar/models"
)

func TestPaperQueryFilters(t *testing.T) {
	db := newTestDB(t)

	papers := []models.Paper{
		{PaperID: "1", Title: strPtr("Diffusion Transformers"), SearchStage: 1, CitationCount: 10,
			MatchedKeywords: EncodeMatched([]string{"diffusion"})},
		{PaperID: "2", Title: strPtr("Graph Attention Networks"), SearchStage: 2, IsFavorite: true, CitationCount: 500},
		{PaperID: "3", Title: strPtr("Sparse Mixture of Experts"), SearchStage: 3, IsNotInterested: true, CitationCount: 42},
		{PaperID: "4", Title: strPtr("World Models"), SearchStage: 2, IsShared: true, RegisteredBy: "june", CitationCount: 7},
	}
	require.NoError(t, db.Create(&papers).Error)

	t.Run("default hides not-interested", func(t *testing.T) {
		got, total, err := PaperQuery{HideNotInterested: true}.Find(db, nil)
		require.NoError(t, err)
		require.Equal(t, int64(3), total)
		require.Len(t, got, 3)
		for _, p := range got {
			require.False(t, p.IsNotInterested)
		}
	})

	t.Run("explicit not-interested filter overrides hide", func(t *testing.T) {
		got, total, err := PaperQuery{HideNotInterested: true, NotInterested: boolPtr(true)}.Find(db, nil)
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Equal(t, "3", got[0].PaperID)
	})

	t.Run("stage filter", func(t *testing.T) {
		got, total, err := PaperQuery{Stage: intPtr(2)}.Find(db, nil)
		require.NoError(t, err)
		require.Equal(t, int64(2), total)
		require.Len(t, got, 2)
	})

	t.Run("favorite and shared", func(t *testing.T) {
		got, _, err := PaperQuery{Favorite: boolPtr(true)}.Find(db, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "2", got[0].PaperID)

		got, _, err = PaperQuery{Shared: boolPtr(true)}.Find(db, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "4", got[0].PaperID)
	})

	t.Run("title substring is case-insensitive", func(t *testing.T) {
		got, total, err := PaperQuery{Keyword: "attention", HideNotInterested: true}.Find(db, nil)
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Equal(t, "2", got[0].PaperID)
	})

	t.Run("registered_by", func(t *testing.T) {
		got, _, err := PaperQuery{RegisteredBy: "june"}.Find(db, nil)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, "4", got[0].PaperID)
	})
}

func TestPaperQueryCategories(t *testing.T) {
	db := newTestDB(t)

	papers := []models.Paper{
		{PaperID: "1", Title: strPtr("A"), MatchedKeywords: EncodeMatched([]string{"diffusion", "vae"})},
		{PaperID: "2", Title: strPtr("B"), MatchedKeywords: EncodeMatched([]string{"rlhf"})},
		{PaperID: "3", Title: strPtr("C")}, // no matches
	}
	require.NoError(t, db.Create(&papers).Error)

	t.Run("category matches via cached keywords", func(t *testing.T) {
		got, total, err := PaperQuery{Category: "generative"}.Find(db, []string{"diffusion", "gan"})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Equal(t, "1", got[0].PaperID)
	})

	t.Run("category with no keywords matches nothing", func(t *testing.T) {
		_, total, err := PaperQuery{Category: "empty"}.Find(db, nil)
		require.NoError(t, err)
		require.Equal(t, int64(0), total)
	})

	t.Run("underscores in keywords are literal", func(t *testing.T) {
		extra := []models.Paper{
			{PaperID: "10", Title: strPtr("D"), MatchedKeywords: EncodeMatched([]string{"q_learning"})},
			{PaperID: "11", Title: strPtr("E"), MatchedKeywords: EncodeMatched([]string{"qilearning"})},
		}
		require.NoError(t, db.Create(&extra).Error)

		got, total, err := PaperQuery{Category: "rl"}.Find(db, []string{"q_learning"})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Equal(t, "10", got[0].PaperID)
	})

	t.Run("none selects papers without matches", func(t *testing.T) {
		got, total, err := PaperQuery{Category: CategoryNone}.Find(db, nil)
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Equal(t, "3", got[0].PaperID)
	})
}

func TestPaperQuerySortAndPaging(t *testing.T) {
	db := newTestDB(t)

	papers := []models.Paper{
		{PaperID: "1", Title: strPtr("A"), CitationCount: 5},
		{PaperID: "2", Title: strPtr("B"), CitationCount: 50},
		{PaperID: "3", Title: strPtr("C"), CitationCount: 20},
	}
	require.NoError(t, db.Create(&papers).Error)

	got, total, err := PaperQuery{SortBy: "citation_count", Order: "desc"}.Find(db, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, []string{"2", "3", "1"}, paperIDs(got))

	got, total, err = PaperQuery{SortBy: "citation_count", Order: "asc", Skip: 1, Limit: 1}.Find(db, nil)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, []string{"3"}, paperIDs(got))

	// Unknown sort column falls back to created_at instead of erroring.
	_, _, err = PaperQuery{SortBy: "; DROP TABLE papers"}.Find(db, nil)
	require.NoError(t, err)
}

func paperIDs(papers []models.Paper) []string {
	ids := make([]string, 0, len(papers))
	for _, p := range papers {
		ids = append(ids, p.PaperID)
	}
	return ids
}
