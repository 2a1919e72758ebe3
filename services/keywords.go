package services

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"paper-radar/models"
)

// KeywordService maintains the denormalized matched-keyword cache on papers.
type KeywordService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewKeywordService creates a new keyword service.
func NewKeywordService(db *gorm.DB, logger *zap.Logger) *KeywordService {
	return &KeywordService{DB: db, Logger: logger}
}

// MatchKeywords returns the subset of keywords found in text by
// case-insensitive substring match. No stemming, no word boundaries.
func MatchKeywords(text string, keywords []string) []string {
	if text == "" || len(keywords) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// EncodeMatched serializes a matched-keyword list for the cache column.
// An empty match is stored as NULL, not as "[]".
func EncodeMatched(matched []string) datatypes.JSON {
	if len(matched) == 0 {
		return nil
	}
	b, err := json.Marshal(matched)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// DecodeMatched parses the cache column back into a list.
func DecodeMatched(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var matched []string
	if err := json.Unmarshal(raw, &matched); err != nil {
		return nil
	}
	return matched
}

// AllKeywords returns every registered keyword string.
func (s *KeywordService) AllKeywords() ([]string, error) {
	var rows []models.UserKeyword
	if err := s.DB.Find(&rows).Error; err != nil {
		return nil, err
	}
	keywords := make([]string, 0, len(rows))
	for _, r := range rows {
		keywords = append(keywords, r.Keyword)
	}
	return keywords, nil
}

// KeywordsInCategory returns the keyword strings belonging to one category.
func (s *KeywordService) KeywordsInCategory(category string) ([]string, error) {
	var rows []models.UserKeyword
	if err := s.DB.Where("category = ?", category).Find(&rows).Error; err != nil {
		return nil, err
	}
	keywords := make([]string, 0, len(rows))
	for _, r := range rows {
		keywords = append(keywords, r.Keyword)
	}
	return keywords, nil
}

// UpdatePaperKeywords recomputes and persists one paper's match cache from
// its title and abstract.
func (s *KeywordService) UpdatePaperKeywords(paper *models.Paper, abstract string) error {
	keywords, err := s.AllKeywords()
	if err != nil {
		return err
	}

	title := ""
	if paper.Title != nil {
		title = *paper.Title
	}
	matched := MatchKeywords(title+" "+abstract, keywords)
	paper.MatchedKeywords = EncodeMatched(matched)

	return s.DB.Model(&models.Paper{}).
		Where("paper_id = ?", paper.PaperID).
		Update("matched_keywords", paper.MatchedKeywords).Error
}

// BatchRecomputeAll recomputes the match cache for every paper and returns
// how many rows changed. This is the only operation that removes stale
// matches after a keyword was deleted.
func (s *KeywordService) BatchRecomputeAll() (int, error) {
	keywords, err := s.AllKeywords()
	if err != nil {
		return 0, err
	}

	var papers []models.Paper
	if err := s.DB.Find(&papers).Error; err != nil {
		return 0, err
	}

	// Abstracts live on the document rows; load them in one pass.
	abstracts := make(map[string]string)
	var docs []models.PaperDocument
	if err := s.DB.Select("paper_id", "abstract_en").Find(&docs).Error; err != nil {
		return 0, err
	}
	for _, d := range docs {
		abstracts[d.PaperID] = d.AbstractEN
	}

	updated := 0
	for i := range papers {
		p := &papers[i]
		title := ""
		if p.Title != nil {
			title = *p.Title
		}
		matched := MatchKeywords(title+" "+abstracts[p.PaperID], keywords)
		encoded := EncodeMatched(matched)

		if string(encoded) == string(p.MatchedKeywords) {
			continue
		}
		if err := s.DB.Model(&models.Paper{}).
			Where("paper_id = ?", p.PaperID).
			Update("matched_keywords", encoded).Error; err != nil {
			return updated, err
		}
		updated++
	}

	s.Logger.Info("Keyword batch recompute finished",
		zap.Int("papers", len(papers)), zap.Int("updated", updated))
	return updated, nil
}
