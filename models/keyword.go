package models

import "time"

// UserKeyword is a user-defined keyword used for tagging papers.
// The same keyword may exist in different categories, but only once per
// category (category may be empty).
type UserKeyword struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Keyword  string `json:"keyword" gorm:"index:idx_keyword_category,unique;not null"`
	Category string `json:"category,omitempty" gorm:"index:idx_keyword_category,unique;default:''"`
	// Highlight color used by the dashboard.
	Color string `json:"color" gorm:"default:'#3b82f6'"`
}

// TableName sets the explicit table name.
func (UserKeyword) TableName() string {
	return "user_keywords"
}
