package domain

import "time"

// RawMessage keeps the unmodified original payload for audit and replay.
// One row per provider message id, write-once.
type RawMessage struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	ProviderMessageID string    `json:"provider_message_id" gorm:"uniqueIndex;not null"`
	Content           string    `json:"content" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`
}

func (RawMessage) TableName() string {
	return "raw_messages"
}
