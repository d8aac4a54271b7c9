package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	listingrepo "mailroom-backend/internal/listing/repository"
	maildomain "mailroom-backend/internal/mail/domain"
	"mailroom-backend/internal/mail/repository"
	"mailroom-backend/internal/webhook/dto"
	"mailroom-backend/pkg/agent"
	"mailroom-backend/pkg/mailer"
	"mailroom-backend/pkg/mimeparse"
)

// ContentFetcher retrieves raw message bytes for a storage locator.
type ContentFetcher interface {
	Fetch(ctx context.Context, bucket, key string) (string, error)
}

// AgentClient drafts a reply for an inbound email. It is an opaque external
// service; the pipeline only depends on this narrow contract.
type AgentClient interface {
	Draft(ctx context.Context, req agent.DraftRequest) (*agent.DraftResponse, error)
}

// MailSender hands a composed reply to the sending transport.
type MailSender interface {
	Send(ctx context.Context, out mailer.OutboundMail) error
}

// RecordStatus is the outcome class of one record in a batch.
type RecordStatus string

const (
	RecordOK      RecordStatus = "ok"
	RecordSkipped RecordStatus = "skipped"
	RecordFailed  RecordStatus = "failed"
)

// RecordResult is the structured per-record outcome; failures are collected
// here instead of aborting the batch.
type RecordResult struct {
	ProviderMessageID string
	Status            RecordStatus
	MessageID         string
	Reason            string
	Err               error
}

// BatchReport collects the results of one webhook invocation.
type BatchReport struct {
	Results []RecordResult
}

func (r *BatchReport) add(result RecordResult) {
	r.Results = append(r.Results, result)
}

// Counts returns how many records ended in each outcome class.
func (r *BatchReport) Counts() (ok, skipped, failed int) {
	for _, res := range r.Results {
		switch res.Status {
		case RecordOK:
			ok++
		case RecordSkipped:
			skipped++
		case RecordFailed:
			failed++
		}
	}
	return
}

// Pipeline drives one webhook invocation: fetch, parse, resolve, persist,
// orchestrate the AI reply and log delivery for each record in sequence.
type Pipeline struct {
	addresses  repository.AddressRepository
	mail       repository.MailRepository
	properties listingrepo.PropertyRepository
	fetcher    ContentFetcher
	agent      AgentClient
	sender     MailSender
}

// How many of the owner's listings ride along as agent context.
const propertyContextLimit = 5

func NewPipeline(
	addresses repository.AddressRepository,
	mail repository.MailRepository,
	properties listingrepo.PropertyRepository,
	fetcher ContentFetcher,
	agentClient AgentClient,
	sender MailSender,
) *Pipeline {
	return &Pipeline{
		addresses:  addresses,
		mail:       mail,
		properties: properties,
		fetcher:    fetcher,
		agent:      agentClient,
		sender:     sender,
	}
}

// HandleNotification processes every record of a content notification.
// Records run sequentially and fully isolated: one bad record never fails
// the batch.
func (p *Pipeline) HandleNotification(ctx context.Context, env *dto.ClassifiedEnvelope) (*BatchReport, error) {
	records, err := dto.ParseNotificationMessage(env.SNS.Message)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{}
	for _, record := range records {
		report.add(p.processRecord(ctx, record, ""))
	}
	p.logReport(report)
	return report, nil
}

// HandleDirectDelivery processes a provider-direct envelope, whose raw
// content arrives inline instead of through object storage.
func (p *Pipeline) HandleDirectDelivery(ctx context.Context, dd *dto.DirectDelivery) (*BatchReport, error) {
	record := dto.MailRecord{Mail: dd.Mail}
	report := &BatchReport{}
	report.add(p.processRecord(ctx, record, dd.Content))
	p.logReport(report)
	return report, nil
}

func (p *Pipeline) logReport(report *BatchReport) {
	ok, skipped, failed := report.Counts()
	log.Printf("[Pipeline] Batch done: %d ok, %d skipped, %d failed", ok, skipped, failed)
	for _, res := range report.Results {
		switch res.Status {
		case RecordSkipped:
			log.Printf("[Pipeline] Record %s skipped: %s", res.ProviderMessageID, res.Reason)
		case RecordFailed:
			log.Printf("[Pipeline] Record %s failed: %v", res.ProviderMessageID, res.Err)
		}
	}
}

func (p *Pipeline) processRecord(ctx context.Context, record dto.MailRecord, inlineContent string) RecordResult {
	providerID := record.Mail.MessageID
	result := RecordResult{ProviderMessageID: providerID}

	recipient := firstRecipient(record)
	if recipient == "" {
		result.Status = RecordSkipped
		result.Reason = "record carries no destination address"
		return result
	}

	owner, err := p.addresses.Resolve(recipient)
	if err != nil {
		if errors.Is(err, repository.ErrAddressNotFound) || errors.Is(err, repository.ErrAmbiguousOwner) {
			result.Status = RecordSkipped
			result.Reason = err.Error()
			return result
		}
		result.Status = RecordFailed
		result.Err = fmt.Errorf("resolve %s: %w", recipient, err)
		return result
	}

	raw := inlineContent
	if raw == "" {
		raw = p.fetchContent(ctx, record)
	}
	// A fetch or parse failure degrades to a contentless message; the
	// record still flows through persistence as a normal email.
	parsed := mimeparse.ParseOrEmpty(raw)

	subject := parsed.Headers["subject"]
	if subject == "" {
		subject = record.Mail.CommonHeaders.Subject
	}
	fromAddress := parsed.FromAddress
	if fromAddress == "" {
		fromAddress = record.Mail.Source
	}

	inbound := repository.InboundMessage{
		Owner:             owner,
		ProviderMessageID: providerID,
		FromAddress:       fromAddress,
		FromName:          parsed.FromName,
		Recipient:         recipient,
		Subject:           subject,
		Body:              parsed.Body,
		HTMLBody:          parsed.HTMLBody,
		InReplyTo:         parsed.InReplyTo,
		References:        parsed.References,
		RawBucket:         record.Receipt.Action.BucketName,
		RawKey:            record.Receipt.Action.ObjectKey,
		RawContent:        raw,
		ReceivedAt:        parseTimestamp(record.Mail.Timestamp),
	}
	for _, att := range parsed.Attachments {
		inbound.Attachments = append(inbound.Attachments, repository.InboundAttachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			SizeBytes:   int64(len(att.Data)),
		})
	}

	stored, err := p.mail.StoreInbound(inbound)
	if err != nil {
		result.Status = RecordFailed
		result.Err = fmt.Errorf("store inbound %s: %w", providerID, err)
		return result
	}
	if stored.Duplicate {
		// At-least-once delivery: the message is already stored and was
		// already answered; replying again would double-send.
		log.Printf("[Pipeline] Duplicate delivery of %s, already stored as %s", providerID, stored.MessageID)
		result.Status = RecordOK
		result.MessageID = stored.MessageID
		return result
	}

	// The inbound message is durable at this point; nothing past here may
	// fail the record.
	p.composeReply(ctx, owner, stored, parsed, subject, fromAddress, providerID, inbound.ReceivedAt)

	if err := p.mail.LogDelivery(providerID, "received", recipient, "stored", raw); err != nil {
		log.Printf("[Pipeline] Delivery log write failed for %s: %v", providerID, err)
	}

	result.Status = RecordOK
	result.MessageID = stored.MessageID
	return result
}

func (p *Pipeline) fetchContent(ctx context.Context, record dto.MailRecord) string {
	bucket := record.Receipt.Action.BucketName
	key := record.Receipt.Action.ObjectKey
	if p.fetcher == nil || bucket == "" || key == "" {
		return ""
	}
	raw, err := p.fetcher.Fetch(ctx, bucket, key)
	if err != nil {
		log.Printf("[Pipeline] Content fetch failed for %s (s3://%s/%s): %v", record.Mail.MessageID, bucket, key, err)
		return ""
	}
	return raw
}

// composeReply asks the agent for a draft and, when one comes back,
// persists and dispatches it. Every failure in here is logged and absorbed:
// the inbound message is already stored and an AI or transport problem must
// not fail the record.
func (p *Pipeline) composeReply(ctx context.Context, owner maildomain.Owner, stored repository.StoreResult, parsed *mimeparse.ParsedEmail, subject, sender, providerID string, receivedAt time.Time) {
	var propCtx []agent.PropertyContext
	properties, err := p.properties.ActiveByOwner(owner.ID, owner.Kind, propertyContextLimit)
	if err != nil {
		log.Printf("[Agent] Property context lookup failed for owner %s: %v", owner.ID, err)
	}
	for _, prop := range properties {
		propCtx = append(propCtx, agent.PropertyContext{
			Address:  prop.Address,
			Rent:     prop.RentMonthly,
			Bedrooms: prop.Bedrooms,
			Status:   prop.Status,
		})
	}

	resp, err := p.agent.Draft(ctx, agent.DraftRequest{
		OwnerID:    owner.ID,
		OwnerKind:  string(owner.Kind),
		Subject:    subject,
		Body:       parsed.Body,
		Sender:     sender,
		ReceivedAt: receivedAt,
		Properties: propCtx,
	})
	if err != nil {
		log.Printf("[Agent] Drafting failed for message %s: %v", providerID, err)
		return
	}
	if resp == nil || strings.TrimSpace(resp.ReplyBody) == "" {
		log.Printf("[Agent] No reply drafted for message %s", providerID)
		return
	}

	replySubject := resp.Subject
	if replySubject == "" {
		replySubject = subject
		if !strings.HasPrefix(strings.ToLower(replySubject), "re:") {
			replySubject = "Re: " + replySubject
		}
	}

	outboundID, err := p.mail.StoreOutbound(stored.ThreadID, repository.OutboundMessage{
		FromAddress:  owner.Mailbox,
		ToAddress:    sender,
		Subject:      replySubject,
		Body:         resp.ReplyBody,
		InReplyTo:    providerID,
		AIGenerated:  true,
		AIConfidence: resp.Confidence,
		AIValidation: resp.Validation,
	})
	if err != nil {
		log.Printf("[Agent] Failed to persist drafted reply for %s: %v", providerID, err)
		return
	}

	err = p.sender.Send(ctx, mailer.OutboundMail{
		MessageID: outboundID,
		From:      owner.Mailbox,
		To:        sender,
		ReplyTo:   owner.Mailbox,
		Subject:   replySubject,
		Body:      resp.ReplyBody,
	})
	if err != nil {
		// The outbound row stays as a record of intent.
		log.Printf("[Mailer] Send failed for outbound message %s: %v", outboundID, err)
		if logErr := p.mail.LogDelivery(providerID, "sent", sender, "send_failed", err.Error()); logErr != nil {
			log.Printf("[Pipeline] Delivery log write failed for %s: %v", providerID, logErr)
		}
		return
	}
	if err := p.mail.LogDelivery(providerID, "sent", sender, "dispatched", ""); err != nil {
		log.Printf("[Pipeline] Delivery log write failed for %s: %v", providerID, err)
	}
}

func firstRecipient(record dto.MailRecord) string {
	if len(record.Receipt.Recipients) > 0 {
		return record.Receipt.Recipients[0]
	}
	if len(record.Mail.Destination) > 0 {
		return record.Mail.Destination[0]
	}
	return ""
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
