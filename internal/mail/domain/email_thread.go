package domain

import (
	"time"

	"github.com/lib/pq"
)

// Thread status values. Threads are never hard-deleted; status carries the
// soft-delete.
const (
	ThreadStatusReceived = "received"
	ThreadStatusSent     = "sent"
	ThreadStatusDraft    = "draft"
	ThreadStatusArchived = "archived"
	ThreadStatusDeleted  = "deleted"
	ThreadStatusBounced  = "bounced"
	ThreadStatusFailed   = "failed"
)

// EmailThread groups the messages of one conversation under one owner.
type EmailThread struct {
	ID            string         `json:"id" gorm:"primaryKey"`
	Subject       string         `json:"subject" gorm:"type:varchar(1000)"`
	Status        string         `json:"status" gorm:"index;default:received"`
	Priority      string         `json:"priority" gorm:"default:normal"`
	NeedsFollowUp bool           `json:"needs_follow_up" gorm:"default:false"`
	TeamID        *string        `json:"team_id,omitempty" gorm:"index"`
	UserID        *string        `json:"user_id,omitempty" gorm:"index"`
	Participants  pq.StringArray `json:"participants" gorm:"type:text[]"`
	LastMessageAt *time.Time     `json:"last_message_at"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (EmailThread) TableName() string {
	return "email_threads"
}
