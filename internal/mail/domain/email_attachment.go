package domain

import "time"

// EmailAttachment belongs to exactly one EmailMessage and is never
// independently mutated.
type EmailAttachment struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	MessageID   string    `json:"message_id" gorm:"index;not null"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

func (EmailAttachment) TableName() string {
	return "email_attachments"
}
