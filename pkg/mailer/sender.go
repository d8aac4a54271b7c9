package mailer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/emersion/go-message/mail"
)

// OutboundMail is the hand-off contract toward the sending transport.
type OutboundMail struct {
	MessageID string
	From      string
	To        string
	ReplyTo   string
	Subject   string
	Body      string
}

// Sender dispatches a composed reply. The transport's success or failure
// never blocks webhook completion; callers log and move on.
type Sender interface {
	Send(ctx context.Context, out OutboundMail) error
}

// NopSender records the hand-off in the log only. It stands in when no
// transport is configured so composed replies still get persisted.
type NopSender struct{}

func (NopSender) Send(_ context.Context, out OutboundMail) error {
	log.Printf("[Mailer] No transport configured, message %s to %s not dispatched", out.MessageID, out.To)
	return nil
}

// SESSender submits raw MIME messages through SES.
type SESSender struct {
	client *sesv2.Client
}

func NewSESSender(ctx context.Context, region string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{client: sesv2.NewFromConfig(cfg)}, nil
}

func (s *SESSender) Send(ctx context.Context, out OutboundMail) error {
	raw, err := ComposeRaw(out)
	if err != nil {
		return fmt.Errorf("compose outbound message %s: %w", out.MessageID, err)
	}

	_, err = s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(out.From),
		Destination:      &sestypes.Destination{ToAddresses: []string{out.To}},
		Content: &sestypes.EmailContent{
			Raw: &sestypes.RawMessage{Data: raw},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send for message %s: %w", out.MessageID, err)
	}
	log.Printf("[Mailer] Sent message %s to %s", out.MessageID, out.To)
	return nil
}

// ComposeRaw builds the RFC-822 bytes for an outbound reply.
func ComposeRaw(out OutboundMail) ([]byte, error) {
	var buf bytes.Buffer

	var h mail.Header
	h.SetDate(time.Now())
	h.SetAddressList("From", []*mail.Address{{Address: out.From}})
	h.SetAddressList("To", []*mail.Address{{Address: out.To}})
	if out.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*mail.Address{{Address: out.ReplyTo}})
	}
	h.SetSubject(out.Subject)
	if out.MessageID != "" {
		h.SetMessageID(out.MessageID)
	}

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(tw, out.Body); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
