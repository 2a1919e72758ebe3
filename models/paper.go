package models

import (
	"time"

	"gorm.io/datatypes"
)

// Analysis stage levels. The stage only ever increases; re-running a stage
// replaces its summary but never lowers the number.
const (
	StageRegistered = 1
	StageAbstract   = 2
	StageFull       = 3
)

// AnalysisStatus values while a background summary job is in flight.
const (
	StatusStage2 = "stage2"
	StatusStage3 = "stage3"
)

// Paper represents one tracked arXiv paper.
type Paper struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// External arXiv identifier, e.g. "2306.02437".
	PaperID   string     `json:"paper_id" gorm:"uniqueIndex;not null"`
	ArxivDate *time.Time `json:"arxiv_date,omitempty"`
	Title     *string    `json:"title"`

	SearchStage int `json:"search_stage" gorm:"default:1;index"`
	// nil when at rest, "stage2" or "stage3" while a job runs.
	AnalysisStatus *string `json:"analysis_status" gorm:"index"`

	IsFavorite      bool       `json:"is_favorite" gorm:"default:false;index"`
	IsNotInterested bool       `json:"is_not_interested" gorm:"default:false;index"`
	IsShared        bool       `json:"is_shared" gorm:"default:false;index"`
	SharedBy        string     `json:"shared_by,omitempty"`
	SharedAt        *time.Time `json:"shared_at,omitempty"`

	CitationCount int    `json:"citation_count" gorm:"default:0"`
	RegisteredBy  string `json:"registered_by,omitempty" gorm:"index"`
	FigureURL     string `json:"figure_url,omitempty"`

	// Denormalized cache of matched user keywords, JSON array of strings.
	// Refreshed on registration and by the batch recompute, not on read.
	MatchedKeywords datatypes.JSON `json:"matched_keywords,omitempty" gorm:"type:jsonb"`
}

// TableName sets the explicit table name.
func (Paper) TableName() string {
	return "papers"
}
