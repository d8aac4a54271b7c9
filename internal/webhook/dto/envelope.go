package dto

import (
	"encoding/json"
	"errors"
	"fmt"

	"mailroom-backend/pkg/snsverify"
)

// EnvelopeKind is decided once at the top of the handler; everything after
// switches on it instead of re-sniffing payload fields.
type EnvelopeKind int

const (
	// UnrecognizedEnvelope is a payload matching no known shape
	UnrecognizedEnvelope EnvelopeKind = iota
	// SubscriptionEnvelope is a subscription-management envelope (confirm/unsubscribe)
	SubscriptionEnvelope
	// ContentNotificationEnvelope is a signed notification carrying mail records
	ContentNotificationEnvelope
	// ProviderDirectEnvelope is a provider-direct delivery with inline content
	ProviderDirectEnvelope
)

// ErrUnrecognizedEnvelope indicates a payload that matches no known envelope shape
var ErrUnrecognizedEnvelope = errors.New("unrecognized envelope shape")

// MailObject describes the delivered email inside a record.
type MailObject struct {
	MessageID     string   `json:"messageId"`
	Source        string   `json:"source"`
	Destination   []string `json:"destination"`
	Timestamp     string   `json:"timestamp"`
	CommonHeaders struct {
		From    []string `json:"from"`
		Subject string   `json:"subject"`
	} `json:"commonHeaders"`
}

// ReceiptAction locates the raw message in object storage.
type ReceiptAction struct {
	Type       string `json:"type"`
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
}

// MailRecord is one email within a notification batch.
type MailRecord struct {
	Mail    MailObject `json:"mail"`
	Receipt struct {
		Recipients []string      `json:"recipients"`
		Action     ReceiptAction `json:"action"`
	} `json:"receipt"`
}

// NotificationMessage is the JSON carried in a content notification's
// Message field.
type NotificationMessage struct {
	Records []MailRecord `json:"Records"`
}

// DirectDelivery is a provider-direct delivery envelope: the raw message
// arrives inline instead of through the notification service.
type DirectDelivery struct {
	NotificationType string     `json:"notificationType"`
	Mail             MailObject `json:"mail"`
	Content          string     `json:"content"`
}

// ClassifiedEnvelope is the tagged result of classifying a webhook body.
// Exactly one of SNS/Direct is set, matching Kind.
type ClassifiedEnvelope struct {
	Kind   EnvelopeKind
	SNS    *snsverify.Envelope
	Direct *DirectDelivery
}

// Classify decides the envelope kind for a raw webhook body.
func Classify(body []byte) (*ClassifiedEnvelope, error) {
	var probe struct {
		Type             string          `json:"Type"`
		NotificationType string          `json:"notificationType"`
		Mail             json.RawMessage `json:"mail"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}

	switch probe.Type {
	case snsverify.TypeSubscriptionConfirmation, snsverify.TypeUnsubscribeConfirmation:
		env := &snsverify.Envelope{}
		if err := json.Unmarshal(body, env); err != nil {
			return nil, fmt.Errorf("malformed subscription envelope: %w", err)
		}
		return &ClassifiedEnvelope{Kind: SubscriptionEnvelope, SNS: env}, nil
	case snsverify.TypeNotification:
		env := &snsverify.Envelope{}
		if err := json.Unmarshal(body, env); err != nil {
			return nil, fmt.Errorf("malformed notification envelope: %w", err)
		}
		return &ClassifiedEnvelope{Kind: ContentNotificationEnvelope, SNS: env}, nil
	}

	if probe.NotificationType == "Received" && len(probe.Mail) > 0 {
		dd := &DirectDelivery{}
		if err := json.Unmarshal(body, dd); err != nil {
			return nil, fmt.Errorf("malformed direct delivery envelope: %w", err)
		}
		return &ClassifiedEnvelope{Kind: ProviderDirectEnvelope, Direct: dd}, nil
	}

	return &ClassifiedEnvelope{Kind: UnrecognizedEnvelope}, ErrUnrecognizedEnvelope
}

// ParseNotificationMessage extracts the record batch from a notification's
// Message field. A single bare record is tolerated as a batch of one.
func ParseNotificationMessage(message string) ([]MailRecord, error) {
	var batch NotificationMessage
	if err := json.Unmarshal([]byte(message), &batch); err == nil && len(batch.Records) > 0 {
		return batch.Records, nil
	}

	var single MailRecord
	if err := json.Unmarshal([]byte(message), &single); err != nil {
		return nil, fmt.Errorf("notification message is not a record batch: %w", err)
	}
	if single.Mail.MessageID == "" {
		return nil, errors.New("notification message carries no mail records")
	}
	return []MailRecord{single}, nil
}
