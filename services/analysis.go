package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-radar/models"
)

// AnalysisService drives the stage-2 (Korean abstract summary) and stage-3
// (deep analysis) pipelines. A stage run is claimed synchronously via
// StartStage2/StartStage3 and completed in the background by the matching
// Run method; only one run per paper is in flight at a time.
type AnalysisService struct {
	DB         *gorm.DB
	Metadata   MetadataSource
	Summarizer Summarizer
	Logger     *zap.Logger
}

// NewAnalysisService wires an analysis service.
func NewAnalysisService(db *gorm.DB, metadata MetadataSource, summarizer Summarizer, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{DB: db, Metadata: metadata, Summarizer: summarizer, Logger: logger}
}

// StartStage2 claims a stage-2 run for the paper. Returns ErrNotFound for an
// unknown ID and ErrJobInFlight when another run already holds the claim.
func (s *AnalysisService) StartStage2(paperID string) (*models.Paper, error) {
	return s.claim(paperID, models.StatusStage2, models.StageRegistered)
}

// StartStage3 claims a stage-3 run. The paper must have completed stage 2;
// otherwise ErrStagePrecondition is returned.
func (s *AnalysisService) StartStage3(paperID string) (*models.Paper, error) {
	return s.claim(paperID, models.StatusStage3, models.StageAbstract)
}

// claim loads the paper, checks the stage floor, and takes the analysis slot
// with a conditional update so two concurrent requests cannot both win.
func (s *AnalysisService) claim(paperID, status string, minStage int) (*models.Paper, error) {
	var paper models.Paper
	if err := s.DB.Where("paper_id = ?", paperID).First(&paper).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if paper.SearchStage < minStage {
		return nil, fmt.Errorf("%w: stage %d required, paper is at stage %d",
			ErrStagePrecondition, minStage, paper.SearchStage)
	}

	res := s.DB.Model(&models.Paper{}).
		Where("paper_id = ? AND analysis_status IS NULL", paperID).
		Update("analysis_status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrJobInFlight
	}

	paper.AnalysisStatus = &status
	return &paper, nil
}

// RunStage2 performs the claimed stage-2 work: make sure the English
// abstract is on file, summarize it in Korean, and advance the paper. Runs
// in a goroutine after StartStage2; the claim is always released.
func (s *AnalysisService) RunStage2(ctx context.Context, paperID string) error {
	log := s.Logger.With(zap.String("paper_id", paperID), zap.Int("stage", models.StageAbstract))

	err := s.runStage2(ctx, paperID)
	s.release(paperID)
	if err != nil {
		log.Error("Stage 2 failed", zap.Error(err))
		return err
	}
	log.Info("Stage 2 completed")
	return nil
}

func (s *AnalysisService) runStage2(ctx context.Context, paperID string) error {
	doc, err := s.loadDocument(paperID)
	if err != nil {
		return err
	}

	if doc.AbstractEN == "" {
		info, err := s.Metadata.GetPaperInfo(paperID)
		if err != nil {
			return fmt.Errorf("%w: arxiv metadata: %v", ErrUpstream, err)
		}
		if info == nil || info.Abstract == "" {
			return fmt.Errorf("%w: no abstract available", ErrUpstream)
		}
		doc.AbstractEN = info.Abstract
		if doc.PDFURL == "" {
			doc.PDFURL = info.PDFURL
		}
	}

	summary, err := s.Summarizer.SummarizeAbstract(ctx, doc.AbstractEN)
	if err != nil {
		return err
	}

	return s.complete(paperID, models.StageAbstract, func(tx *gorm.DB) error {
		return tx.Model(&models.PaperDocument{}).
			Where("paper_id = ?", paperID).
			Updates(map[string]interface{}{
				"abstract_en": doc.AbstractEN,
				"abstract_ko": summary,
				"pdf_url":     doc.PDFURL,
			}).Error
	})
}

// RunStage3 performs the claimed stage-3 work: produce the structured deep
// analysis from the paper PDF and advance the paper.
func (s *AnalysisService) RunStage3(ctx context.Context, paperID string) error {
	log := s.Logger.With(zap.String("paper_id", paperID), zap.Int("stage", models.StageFull))

	err := s.runStage3(ctx, paperID)
	s.release(paperID)
	if err != nil {
		log.Error("Stage 3 failed", zap.Error(err))
		return err
	}
	log.Info("Stage 3 completed")
	return nil
}

func (s *AnalysisService) runStage3(ctx context.Context, paperID string) error {
	var paper models.Paper
	if err := s.DB.Where("paper_id = ?", paperID).First(&paper).Error; err != nil {
		return err
	}
	doc, err := s.loadDocument(paperID)
	if err != nil {
		return err
	}

	if doc.PDFURL == "" {
		doc.PDFURL = fmt.Sprintf("https://arxiv.org/pdf/%s.pdf", paperID)
	}
	title := ""
	if paper.Title != nil {
		title = *paper.Title
	}

	analysis, err := s.Summarizer.AnalyzePaper(ctx, AnalyzeRequest{
		PaperID:  paperID,
		Title:    title,
		Abstract: doc.AbstractEN,
		PDFURL:   doc.PDFURL,
	})
	if err != nil {
		return err
	}

	return s.complete(paperID, models.StageFull, func(tx *gorm.DB) error {
		return tx.Model(&models.PaperDocument{}).
			Where("paper_id = ?", paperID).
			Update("analysis_ko", analysis).Error
	})
}

// complete writes the stage result and advances search_stage in one
// transaction. The stage never moves backwards.
func (s *AnalysisService) complete(paperID string, stage int, writeDoc func(tx *gorm.DB) error) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := writeDoc(tx); err != nil {
			return err
		}
		return tx.Model(&models.Paper{}).
			Where("paper_id = ? AND search_stage < ?", paperID, stage).
			Update("search_stage", stage).Error
	})
}

// release clears the analysis claim. Called on success and failure alike so
// a crashed run never wedges the paper.
func (s *AnalysisService) release(paperID string) {
	if err := s.DB.Model(&models.Paper{}).
		Where("paper_id = ?", paperID).
		Update("analysis_status", nil).Error; err != nil {
		s.Logger.Error("Failed to release analysis claim",
			zap.String("paper_id", paperID), zap.Error(err))
	}
}

func (s *AnalysisService) loadDocument(paperID string) (*models.PaperDocument, error) {
	var doc models.PaperDocument
	if err := s.DB.Where("paper_id = ?", paperID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Registration always creates the document row; tolerate a
			// missing one from older data.
			doc = models.PaperDocument{PaperID: paperID}
			if err := s.DB.Create(&doc).Error; err != nil {
				return nil, err
			}
			return &doc, nil
		}
		return nil, err
	}
	return &doc, nil
}
