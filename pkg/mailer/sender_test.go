package mailer

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeRaw(t *testing.T) {
	raw, err := ComposeRaw(OutboundMail{
		MessageID: "out-1@mailroom",
		From:      "leasing-7f3a@mailhost",
		To:        "jane@example.com",
		ReplyTo:   "leasing-7f3a@mailhost",
		Subject:   "Re: Interested in 12 Oak Ave",
		Body:      "Yes, the unit is still available.",
	})
	require.NoError(t, err)

	r, err := mail.CreateReader(strings.NewReader(string(raw)))
	require.NoError(t, err)

	from, err := r.Header.AddressList("From")
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "leasing-7f3a@mailhost", from[0].Address)

	to, err := r.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 1)
	assert.Equal(t, "jane@example.com", to[0].Address)

	subject, err := r.Header.Subject()
	require.NoError(t, err)
	assert.Equal(t, "Re: Interested in 12 Oak Ave", subject)

	msgID, err := r.Header.MessageID()
	require.NoError(t, err)
	assert.Equal(t, "out-1@mailroom", msgID)

	part, err := r.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(part.Body)
	require.NoError(t, err)
	assert.Equal(t, "Yes, the unit is still available.", strings.TrimSpace(string(body)))
}

func TestComposeRawWithoutReplyTo(t *testing.T) {
	raw, err := ComposeRaw(OutboundMail{
		From:    "a@b",
		To:      "c@d",
		Subject: "hi",
		Body:    "text",
	})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Reply-To:")
}

func TestNopSenderNeverFails(t *testing.T) {
	err := NopSender{}.Send(context.Background(), OutboundMail{MessageID: "m", To: "x@y"})
	assert.NoError(t, err)
}
