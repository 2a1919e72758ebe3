package models

import "time"

// User is a dashboard user, auto-registered on first login.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Username string `json:"username" gorm:"uniqueIndex;not null"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// TableName sets the explicit table name.
func (User) TableName() string {
	return "users"
}
