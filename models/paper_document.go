package models

import "time"

// PaperDocument holds the text blobs belonging to a paper: the metadata
// captured at registration and the two stage summaries. Kept separate from the
// papers row so list queries never drag the large text columns along.
type PaperDocument struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	PaperID string `json:"paper_id" gorm:"uniqueIndex;not null"`

	AbstractEN string `json:"abstract_en,omitempty" gorm:"type:text"`
	Authors    string `json:"authors,omitempty"`
	PDFURL     string `json:"pdf_url,omitempty"`

	// Stage 2: Korean abstract summary. Written together with the stage bump,
	// fully replaced on re-run.
	AbstractKO string `json:"abstract_ko,omitempty" gorm:"type:text"`
	// Stage 3: Korean full-paper analysis.
	AnalysisKO string `json:"analysis_ko,omitempty" gorm:"type:text"`
}

// TableName sets the explicit table name.
func (PaperDocument) TableName() string {
	return "paper_documents"
}
