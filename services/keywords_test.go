package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paper-radar/models"
)

func TestMatchKeywords(t *testing.T) {
	keywords := []string{"Transformer", "diffusion", "RLHF"}

	matched := MatchKeywords("Scaling Diffusion Transformers to New Heights", keywords)
	require.Equal(t, []string{"Transformer", "diffusion"}, matched)

	require.Nil(t, MatchKeywords("", keywords))
	require.Nil(t, MatchKeywords("nothing relevant here", keywords))
	require.Nil(t, MatchKeywords("some text", nil))

	// Plain substring, no word boundaries: "RL" inside "RLHF" does not
	// matter, but "RLHF" inside a longer token matches.
	matched = MatchKeywords("we apply rlhf-style tuning", keywords)
	require.Equal(t, []string{"RLHF"}, matched)
}

func TestEncodeDecodeMatched(t *testing.T) {
	require.Nil(t, EncodeMatched(nil))
	require.Nil(t, EncodeMatched([]string{}))

	encoded := EncodeMatched([]string{"a", "b"})
	require.JSONEq(t, `["a","b"]`, string(encoded))
	require.Equal(t, []string{"a", "b"}, DecodeMatched(encoded))

	require.Nil(t, DecodeMatched(nil))
}

func TestUpdatePaperKeywords(t *testing.T) {
	db := newTestDB(t)
	svc := NewKeywordService(db, zap.NewNop())

	require.NoError(t, db.Create(&models.UserKeyword{Keyword: "attention", Category: "architectures"}).Error)
	require.NoError(t, db.Create(&models.UserKeyword{Keyword: "robotics", Category: "applications"}).Error)

	paper := models.Paper{PaperID: "2306.02437", Title: strPtr("Attention Is All You Need, Again")}
	require.NoError(t, db.Create(&paper).Error)

	require.NoError(t, svc.UpdatePaperKeywords(&paper, "we revisit the attention mechanism"))

	var stored models.Paper
	require.NoError(t, db.Where("paper_id = ?", "2306.02437").First(&stored).Error)
	require.Equal(t, []string{"attention"}, DecodeMatched(stored.MatchedKeywords))
}

func TestBatchRecomputeAll(t *testing.T) {
	db := newTestDB(t)
	svc := NewKeywordService(db, zap.NewNop())

	require.NoError(t, db.Create(&models.UserKeyword{Keyword: "diffusion"}).Error)

	papers := []models.Paper{
		{PaperID: "1", Title: strPtr("Diffusion Models for Images")},
		{PaperID: "2", Title: strPtr("Graph Networks")},
	}
	require.NoError(t, db.Create(&papers).Error)
	require.NoError(t, db.Create(&models.PaperDocument{PaperID: "2", AbstractEN: "a diffusion-based approach"}).Error)

	count, err := svc.BatchRecomputeAll()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	// Idempotent: nothing changes on a second run.
	count, err = svc.BatchRecomputeAll()
	require.NoError(t, err)
	require.Equal(t, 0, count)

	// Deleting the keyword leaves the cache stale until the next recompute.
	require.NoError(t, db.Where("keyword = ?", "diffusion").Delete(&models.UserKeyword{}).Error)
	var stale models.Paper
	require.NoError(t, db.Where("paper_id = ?", "1").First(&stale).Error)
	require.Equal(t, []string{"diffusion"}, DecodeMatched(stale.MatchedKeywords))

	count, err = svc.BatchRecomputeAll()
	require.NoError(t, err)
	require.Equal(t, 2, count)

	var cleared models.Paper
	require.NoError(t, db.Where("paper_id = ?", "1").First(&cleared).Error)
	require.Nil(t, DecodeMatched(cleared.MatchedKeywords))
}
