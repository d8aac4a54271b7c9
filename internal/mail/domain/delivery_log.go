package domain

import "time"

// Delivery event types.
const (
	DeliveryEventReceived = "received"
	DeliveryEventSent     = "sent"
	DeliveryEventBounced  = "bounced"
)

// DeliveryLog is an append-only event record; rows are never updated or
// deleted.
type DeliveryLog struct {
	ID                string    `json:"id" gorm:"primaryKey"`
	ProviderMessageID string    `json:"provider_message_id" gorm:"index"`
	EventType         string    `json:"event_type"`
	Recipient         string    `json:"recipient"`
	Status            string    `json:"status"`
	RawPayload        string    `json:"raw_payload" gorm:"type:text"`
	CreatedAt         time.Time `json:"created_at"`
}

func (DeliveryLog) TableName() string {
	return "delivery_logs"
}
