package models

import "time"

// AccessLog records one dashboard login. Append-only; rows are removed only
// through the admin-gated delete endpoints.
type AccessLog struct {
	ID uint `json:"id" gorm:"primaryKey"`

	Username  string    `json:"username" gorm:"index;not null"`
	LoginTime time.Time `json:"login_time" gorm:"autoCreateTime;index"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// TableName sets the explicit table name.
func (AccessLog) TableName() string {
	return "access_logs"
}
