package repository

import (
	"errors"
	"fmt"
	"time"

	maildomain "mailroom-backend/internal/mail/domain"
	"mailroom-backend/pkg/retry"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// InboundAttachment is one decoded attachment to persist with its message.
type InboundAttachment struct {
	Filename    string
	ContentType string
	SizeBytes   int64
}

// InboundMessage carries everything the store needs for one inbound email.
type InboundMessage struct {
	Owner             maildomain.Owner
	ProviderMessageID string
	FromAddress       string
	FromName          string
	Recipient         string
	Subject           string
	Body              string
	HTMLBody          string
	InReplyTo         string
	References        []string
	RawBucket         string
	RawKey            string
	RawContent        string
	ReceivedAt        time.Time
	Attachments       []InboundAttachment
}

// OutboundMessage is an AI-composed reply to persist before dispatch.
type OutboundMessage struct {
	FromAddress  string
	ToAddress    string
	Subject      string
	Body         string
	InReplyTo    string
	AIGenerated  bool
	AIConfidence float64
	AIValidation string
}

// StoreResult reports where an inbound message landed. Duplicate is set when
// the provider message id was already stored (at-least-once delivery).
type StoreResult struct {
	ThreadID  string
	MessageID string
	Duplicate bool
}

// MailRepository is the sole writer of threads, messages, attachments, raw
// messages and delivery logs.
type MailRepository interface {
	StoreInbound(in InboundMessage) (StoreResult, error)
	StoreOutbound(threadID string, out OutboundMessage) (string, error)
	LogDelivery(providerMessageID, eventType, recipient, status, rawPayload string) error

	FindMessageByProviderID(providerMessageID string) (*maildomain.EmailMessage, error)
	ListThreads(limit, offset int) ([]*maildomain.EmailThread, int64, error)
	MessagesByThread(threadID string) ([]*maildomain.EmailMessage, error)
	MarkMessageRead(messageID string) error
}

type mailRepository struct {
	db     *gorm.DB
	policy retry.Policy
}

func NewMailRepository(db *gorm.DB, policy retry.Policy) MailRepository {
	return &mailRepository{db: db, policy: policy}
}

// StoreInbound persists one inbound email as thread + message + attachments
// + raw payload. Each insert runs under the retry policy; a failure aborts
// the rest of this record's sequence but does not roll back earlier inserts,
// so a message may briefly exist without all of its attachments.
func (r *mailRepository) StoreInbound(in InboundMessage) (StoreResult, error) {
	if existing, err := r.FindMessageByProviderID(in.ProviderMessageID); err != nil {
		return StoreResult{}, err
	} else if existing != nil {
		return StoreResult{ThreadID: existing.ThreadID, MessageID: existing.ID, Duplicate: true}, nil
	}

	threadID, err := r.resolveThread(in)
	if err != nil {
		return StoreResult{}, err
	}

	now := time.Now()
	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	message := maildomain.EmailMessage{
		ID:                uuid.New().String(),
		ThreadID:          threadID,
		ProviderMessageID: in.ProviderMessageID,
		FromAddress:       in.FromAddress,
		FromName:          in.FromName,
		ToAddress:         in.Recipient,
		Subject:           in.Subject,
		Body:              in.Body,
		HTMLBody:          in.HTMLBody,
		Status:            maildomain.MessageStatusReceived,
		HasAttachments:    len(in.Attachments) > 0,
		InReplyTo:         in.InReplyTo,
		RawBucket:         in.RawBucket,
		RawKey:            in.RawKey,
		ReceivedAt:        &receivedAt,
		CreatedAt:         now,
	}
	if err := r.policy.Do("insert message", func() error {
		return r.db.Create(&message).Error
	}); err != nil {
		return StoreResult{}, err
	}

	for _, att := range in.Attachments {
		row := maildomain.EmailAttachment{
			ID:          uuid.New().String(),
			MessageID:   message.ID,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
			StoragePath: fmt.Sprintf("attachments/%s/%s", message.ID, att.Filename),
			CreatedAt:   now,
		}
		if err := r.policy.Do("insert attachment", func() error {
			return r.db.Create(&row).Error
		}); err != nil {
			return StoreResult{}, err
		}
	}

	rawRow := maildomain.RawMessage{
		ID:                uuid.New().String(),
		ProviderMessageID: in.ProviderMessageID,
		Content:           in.RawContent,
		CreatedAt:         now,
	}
	if err := r.policy.Do("insert raw message", func() error {
		return r.db.Create(&rawRow).Error
	}); err != nil {
		return StoreResult{}, err
	}

	return StoreResult{ThreadID: threadID, MessageID: message.ID}, nil
}

// resolveThread reuses an existing conversation when the inbound message
// references a stored provider message id (in-reply-to first, then the
// references chain); otherwise it inserts a new thread. This is the one
// threading policy for every ingress path.
func (r *mailRepository) resolveThread(in InboundMessage) (string, error) {
	refs := make([]string, 0, len(in.References)+1)
	if in.InReplyTo != "" {
		refs = append(refs, in.InReplyTo)
	}
	refs = append(refs, in.References...)

	if len(refs) > 0 {
		var prior maildomain.EmailMessage
		err := r.db.Where("provider_message_id IN ?", refs).
			Order("created_at DESC").First(&prior).Error
		if err == nil {
			bump := time.Now()
			if err := r.policy.Do("bump thread", func() error {
				return r.db.Model(&maildomain.EmailThread{}).
					Where("id = ?", prior.ThreadID).
					Updates(map[string]interface{}{"last_message_at": bump, "updated_at": bump}).Error
			}); err != nil {
				return "", err
			}
			return prior.ThreadID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}

	now := time.Now()
	thread := maildomain.EmailThread{
		ID:            uuid.New().String(),
		Subject:       in.Subject,
		Status:        maildomain.ThreadStatusReceived,
		Priority:      "normal",
		TeamID:        in.Owner.TeamID(),
		UserID:        in.Owner.UserID(),
		Participants:  pq.StringArray{in.FromAddress, in.Recipient},
		LastMessageAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.policy.Do("insert thread", func() error {
		return r.db.Create(&thread).Error
	}); err != nil {
		return "", err
	}
	return thread.ID, nil
}

// StoreOutbound records an AI-composed reply on an existing thread. The
// thread's status is left untouched; only last_message_at moves.
func (r *mailRepository) StoreOutbound(threadID string, out OutboundMessage) (string, error) {
	now := time.Now()
	message := maildomain.EmailMessage{
		ID:                uuid.New().String(),
		ThreadID:          threadID,
		ProviderMessageID: fmt.Sprintf("mailroom-out-%s", uuid.New().String()),
		FromAddress:       out.FromAddress,
		ToAddress:         out.ToAddress,
		Subject:           out.Subject,
		Body:              out.Body,
		Status:            maildomain.MessageStatusOutgoing,
		InReplyTo:         out.InReplyTo,
		AIGenerated:       out.AIGenerated,
		AIConfidence:      out.AIConfidence,
		AIValidation:      out.AIValidation,
		SentAt:            &now,
		CreatedAt:         now,
	}
	if err := r.policy.Do("insert outbound message", func() error {
		return r.db.Create(&message).Error
	}); err != nil {
		return "", err
	}

	if err := r.policy.Do("bump thread", func() error {
		return r.db.Model(&maildomain.EmailThread{}).
			Where("id = ?", threadID).
			Updates(map[string]interface{}{"last_message_at": now, "updated_at": now}).Error
	}); err != nil {
		return "", err
	}
	return message.ID, nil
}

func (r *mailRepository) LogDelivery(providerMessageID, eventType, recipient, status, rawPayload string) error {
	row := maildomain.DeliveryLog{
		ID:                uuid.New().String(),
		ProviderMessageID: providerMessageID,
		EventType:         eventType,
		Recipient:         recipient,
		Status:            status,
		RawPayload:        rawPayload,
		CreatedAt:         time.Now(),
	}
	return r.db.Create(&row).Error
}

func (r *mailRepository) FindMessageByProviderID(providerMessageID string) (*maildomain.EmailMessage, error) {
	var message maildomain.EmailMessage
	err := r.db.Where("provider_message_id = ?", providerMessageID).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

func (r *mailRepository) ListThreads(limit, offset int) ([]*maildomain.EmailThread, int64, error) {
	var threads []*maildomain.EmailThread
	var total int64

	query := r.db.Model(&maildomain.EmailThread{}).Where("status <> ?", maildomain.ThreadStatusDeleted)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Order("last_message_at DESC").Limit(limit).Offset(offset).Find(&threads).Error
	if err != nil {
		return nil, 0, err
	}
	return threads, total, nil
}

func (r *mailRepository) MessagesByThread(threadID string) ([]*maildomain.EmailMessage, error) {
	var messages []*maildomain.EmailMessage
	err := r.db.Where("thread_id = ?", threadID).Order("created_at ASC").Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkMessageRead flips the one mutable field a stored message has.
func (r *mailRepository) MarkMessageRead(messageID string) error {
	return r.db.Model(&maildomain.EmailMessage{}).
		Where("id = ?", messageID).
		Update("is_read", true).Error
}
