package domain

import "time"

// Message status values.
const (
	MessageStatusReceived = "received"
	MessageStatusSent     = "sent"
	MessageStatusOutgoing = "outgoing"
	MessageStatusBounced  = "bounced"
	MessageStatusFailed   = "failed"
)

// EmailMessage is one directional transmission within a thread. Rows are
// immutable after creation except for IsRead.
type EmailMessage struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	ThreadID          string     `json:"thread_id" gorm:"index;not null"`
	ProviderMessageID string     `json:"provider_message_id" gorm:"uniqueIndex;not null"`
	FromAddress       string     `json:"from_address"`
	FromName          string     `json:"from_name"`
	ToAddress         string     `json:"to_address"`
	Subject           string     `json:"subject" gorm:"type:varchar(1000)"`
	Body              string     `json:"body" gorm:"type:text"`
	HTMLBody          string     `json:"html_body" gorm:"type:text"`
	Status            string     `json:"status" gorm:"index"`
	IsRead            bool       `json:"is_read" gorm:"default:false"`
	HasAttachments    bool       `json:"has_attachments" gorm:"default:false"`
	InReplyTo         string     `json:"in_reply_to,omitempty"`
	RawBucket         string     `json:"raw_bucket,omitempty"`
	RawKey            string     `json:"raw_key,omitempty"`
	AIGenerated       bool       `json:"ai_generated" gorm:"default:false"`
	AIConfidence      float64    `json:"ai_confidence,omitempty"`
	AIValidation      string     `json:"ai_validation,omitempty"`
	ReceivedAt        *time.Time `json:"received_at,omitempty"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

func (EmailMessage) TableName() string {
	return "email_messages"
}
