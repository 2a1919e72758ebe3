package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-radar/models"
	"paper-radar/providers/arxiv"
	"paper-radar/providers/semanticscholar"
)

// MetadataSource yields arXiv metadata for one paper.
type MetadataSource interface {
	GetPaperInfo(paperID string) (*arxiv.PaperInfo, error)
}

// CitationSource yields citation candidates and counts (Semantic Scholar).
type CitationSource interface {
	GetCitingPapers(paperID string, limit int, sortBy string, yearFrom int) ([]semanticscholar.Candidate, error)
	SearchByTopic(query string, limit int, sortBy string, yearFrom int) ([]semanticscholar.Candidate, error)
	GetCitationCount(paperID string) (int, error)
}

// FastCitationSource is the low-latency citation-count path (OpenAlex).
type FastCitationSource interface {
	GetCitationCount(paperID string) (int, error)
}

// FigureSource yields a representative figure URL for a paper (ar5iv).
type FigureSource interface {
	GetFirstFigureURL(paperID string) (string, error)
}

// RegistrationService registers papers: one by ID, by citation crawl, or in
// bulk from a previewed selection.
type RegistrationService struct {
	DB            *gorm.DB
	Metadata      MetadataSource
	Citations     CitationSource
	FastCitations FastCitationSource
	Figures       FigureSource
	Keywords      *KeywordService
	Logger        *zap.Logger
}

// NewRegistrationService wires a registration service.
func NewRegistrationService(db *gorm.DB, metadata MetadataSource, citations CitationSource,
	fast FastCitationSource, figures FigureSource, keywords *KeywordService, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{
		DB:            db,
		Metadata:      metadata,
		Citations:     citations,
		FastCitations: fast,
		Figures:       figures,
		Keywords:      keywords,
		Logger:        logger,
	}
}

// PreviewPaper is one candidate in a preview list, marked when it is already
// in the store.
type PreviewPaper struct {
	semanticscholar.Candidate
	AlreadyRegistered bool `json:"already_registered"`
}

// BulkItem is one (id, citation count) pair of an explicit bulk commit.
type BulkItem struct {
	PaperID       string `json:"paper_id" binding:"required"`
	CitationCount int    `json:"citation_count"`
}

// BulkFailure reports one candidate that could not be registered.
type BulkFailure struct {
	PaperID string `json:"paper_id"`
	Reason  string `json:"reason"`
}

// BulkResult is the outcome of a bulk registration: every item lands in
// exactly one of the three lists.
type BulkResult struct {
	Registered []models.Paper `json:"registered"`
	Skipped    []string       `json:"skipped"`
	Failed     []BulkFailure  `json:"failed"`
}

// RegisterNew registers a single paper by arXiv ID. Re-registering an
// existing ID is a no-op returning the existing row (created=false).
// The citation count is left at zero; the crawl and bulk paths carry counts,
// and the nightly refresh fills in the rest.
func (s *RegistrationService) RegisterNew(paperID, registeredBy string) (*models.Paper, bool, error) {
	cleanID := arxiv.CleanID(strings.TrimSpace(paperID))
	log := s.Logger.With(zap.String("paper_id", cleanID))

	var existing models.Paper
	if err := s.DB.Where("paper_id = ?", cleanID).First(&existing).Error; err == nil {
		log.Info("Paper already registered, skipping")
		return &existing, false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	paper, err := s.insertPaper(cleanID, 0, registeredBy, nil)
	if err != nil {
		return nil, false, err
	}
	log.Info("Paper registered", zap.String("registered_by", registeredBy))
	return paper, true, nil
}

// RegisterCitingPapers registers the top citing papers of a seed paper that
// are not yet in the store. Per-candidate failures are logged and skipped.
func (s *RegistrationService) RegisterCitingPapers(paperID string, limit int, registeredBy string) ([]models.Paper, error) {
	if limit <= 0 {
		limit = 50
	}
	log := s.Logger.With(zap.String("seed_paper_id", paperID))

	// Over-fetch so already-registered candidates do not eat the quota.
	candidates, err := s.Citations.GetCitingPapers(paperID, limit*3, semanticscholar.SortCitationCount, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: citing papers: %v", ErrUpstream, err)
	}

	existing, err := s.existingPaperIDs()
	if err != nil {
		return nil, err
	}

	var registered []models.Paper
	for _, c := range candidates {
		if len(registered) >= limit {
			break
		}
		if c.PaperID == "" {
			continue
		}
		if _, ok := existing[c.PaperID]; ok {
			continue
		}

		paper, err := s.insertPaper(c.PaperID, c.CitationCount, registeredBy, &c)
		if err != nil {
			log.Warn("Skipping citing paper",
				zap.String("paper_id", c.PaperID), zap.Error(err))
			continue
		}
		registered = append(registered, *paper)
		existing[c.PaperID] = struct{}{}
	}

	log.Info("Citing papers registered", zap.Int("count", len(registered)))
	return registered, nil
}

// RegisterBulk commits an explicit candidate selection. Every item is
// attempted independently; existing IDs are reported as skipped, failures
// carry a reason and never abort the rest of the batch.
func (s *RegistrationService) RegisterBulk(items []BulkItem, registeredBy string) (*BulkResult, error) {
	existing, err := s.existingPaperIDs()
	if err != nil {
		return nil, err
	}

	result := &BulkResult{
		Registered: []models.Paper{},
		Skipped:    []string{},
		Failed:     []BulkFailure{},
	}

	for _, item := range items {
		cleanID := arxiv.CleanID(strings.TrimSpace(item.PaperID))
		if cleanID == "" {
			result.Failed = append(result.Failed, BulkFailure{PaperID: item.PaperID, Reason: "empty paper id"})
			continue
		}
		if _, ok := existing[cleanID]; ok {
			result.Skipped = append(result.Skipped, cleanID)
			continue
		}

		paper, err := s.insertPaper(cleanID, item.CitationCount, registeredBy, nil)
		if err != nil {
			result.Failed = append(result.Failed, BulkFailure{PaperID: cleanID, Reason: err.Error()})
			continue
		}
		result.Registered = append(result.Registered, *paper)
		existing[cleanID] = struct{}{}
	}

	s.Logger.Info("Bulk registration finished",
		zap.Int("registered", len(result.Registered)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// MarkCandidates turns a candidate list into a preview: already-registered
// papers are flagged, papers the user hid are dropped entirely.
func (s *RegistrationService) MarkCandidates(candidates []semanticscholar.Candidate) ([]PreviewPaper, error) {
	if len(candidates) == 0 {
		return []PreviewPaper{}, nil
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.PaperID)
	}

	var rows []models.Paper
	if err := s.DB.Select("paper_id", "is_not_interested").
		Where("paper_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}

	registered := make(map[string]bool, len(rows))
	hidden := make(map[string]bool)
	for _, r := range rows {
		registered[r.PaperID] = true
		if r.IsNotInterested {
			hidden[r.PaperID] = true
		}
	}

	preview := make([]PreviewPaper, 0, len(candidates))
	for _, c := range candidates {
		if hidden[c.PaperID] {
			continue
		}
		preview = append(preview, PreviewPaper{
			Candidate:         c,
			AlreadyRegistered: registered[c.PaperID],
		})
	}
	return preview, nil
}

// UpdateCitationCount refreshes one paper's citation count, trying the fast
// OpenAlex path first and falling back to Semantic Scholar.
func (s *RegistrationService) UpdateCitationCount(paperID string) (*models.Paper, error) {
	var paper models.Paper
	if err := s.DB.Where("paper_id = ?", paperID).First(&paper).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	count, err := s.FastCitations.GetCitationCount(paperID)
	if err != nil {
		s.Logger.Debug("OpenAlex lookup failed, falling back to Semantic Scholar",
			zap.String("paper_id", paperID), zap.Error(err))
		count, err = s.Citations.GetCitationCount(paperID)
		if err != nil {
			return nil, fmt.Errorf("%w: citation count: %v", ErrUpstream, err)
		}
	}

	if err := s.DB.Model(&paper).Update("citation_count", count).Error; err != nil {
		return nil, err
	}
	paper.CitationCount = count
	s.Logger.Info("Citation count updated",
		zap.String("paper_id", paperID), zap.Int("count", count))
	return &paper, nil
}

// RefreshAllCitationCounts updates every tracked paper's citation count.
// Run by the nightly cron; individual failures are skipped.
func (s *RegistrationService) RefreshAllCitationCounts() (int, error) {
	var papers []models.Paper
	if err := s.DB.Select("paper_id", "citation_count").Find(&papers).Error; err != nil {
		return 0, err
	}

	updated := 0
	for _, p := range papers {
		count, err := s.FastCitations.GetCitationCount(p.PaperID)
		if err != nil {
			s.Logger.Debug("Citation refresh skipped",
				zap.String("paper_id", p.PaperID), zap.Error(err))
			continue
		}
		if count == p.CitationCount {
			continue
		}
		if err := s.DB.Model(&models.Paper{}).
			Where("paper_id = ?", p.PaperID).
			Update("citation_count", count).Error; err != nil {
			return updated, err
		}
		updated++
	}

	s.Logger.Info("Citation refresh finished",
		zap.Int("papers", len(papers)), zap.Int("updated", updated))
	return updated, nil
}

func (s *RegistrationService) existingPaperIDs() (map[string]struct{}, error) {
	var ids []string
	if err := s.DB.Model(&models.Paper{}).Pluck("paper_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// insertPaper fetches metadata and writes the paper row plus its document in
// one transaction. fallback supplies candidate data (title, abstract, date)
// when the arXiv lookup yields nothing.
func (s *RegistrationService) insertPaper(paperID string, citationCount int,
	registeredBy string, fallback *semanticscholar.Candidate) (*models.Paper, error) {

	info, err := s.Metadata.GetPaperInfo(paperID)
	if err != nil {
		if fallback == nil || fallback.Title == "" {
			return nil, fmt.Errorf("%w: arxiv metadata: %v", ErrUpstream, err)
		}
		s.Logger.Warn("arXiv lookup failed, using candidate metadata",
			zap.String("paper_id", paperID), zap.Error(err))
		info = nil
	}
	if info == nil && (fallback == nil || fallback.Title == "") {
		return nil, ErrNotFound
	}

	paper := models.Paper{
		PaperID:       paperID,
		SearchStage:   models.StageRegistered,
		CitationCount: citationCount,
		RegisteredBy:  registeredBy,
	}
	doc := models.PaperDocument{PaperID: paperID}

	if info != nil {
		paper.Title = &info.Title
		paper.ArxivDate = info.ArxivDate
		doc.AbstractEN = info.Abstract
		doc.Authors = strings.Join(info.Authors, ", ")
		doc.PDFURL = info.PDFURL
	} else {
		title := fallback.Title
		paper.Title = &title
		if t, err := time.Parse("2006-01-02", fallback.PublicationDate); err == nil {
			paper.ArxivDate = &t
		}
		doc.AbstractEN = fallback.Abstract
		doc.Authors = strings.Join(fallback.Authors, ", ")
		doc.PDFURL = fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", paperID)
	}

	// Best effort, a paper without a figure is fine.
	if figure, err := s.Figures.GetFirstFigureURL(paperID); err == nil && figure != "" {
		paper.FigureURL = figure
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&paper).Error; err != nil {
			return err
		}
		return tx.Create(&doc).Error
	})
	if err != nil {
		return nil, err
	}

	if err := s.Keywords.UpdatePaperKeywords(&paper, doc.AbstractEN); err != nil {
		s.Logger.Warn("Keyword match failed on registration",
			zap.String("paper_id", paperID), zap.Error(err))
	}

	return &paper, nil
}
