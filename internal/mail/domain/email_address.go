package domain

import "time"

// EmailAddress is a provisioned mailbox identity. Rows are created at
// mailbox provisioning time and are read-only to the ingestion pipeline.
type EmailAddress struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Address   string    `json:"address" gorm:"uniqueIndex;not null"`
	TeamID    *string   `json:"team_id,omitempty" gorm:"index"`
	UserID    *string   `json:"user_id,omitempty" gorm:"index"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EmailAddress) TableName() string {
	return "email_addresses"
}
