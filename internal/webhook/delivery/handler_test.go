package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	listingdomain "mailroom-backend/internal/listing/domain"
	listingrepo "mailroom-backend/internal/listing/repository"
	maildomain "mailroom-backend/internal/mail/domain"
	"mailroom-backend/internal/mail/repository"
	"mailroom-backend/internal/webhook/usecase"
	"mailroom-backend/pkg/agent"
	"mailroom-backend/pkg/mailer"
	"mailroom-backend/pkg/retry"
	"mailroom-backend/pkg/snsverify"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-webhook-secret"

type stubAgent struct {
	resp *agent.DraftResponse
}

func (s *stubAgent) Draft(_ context.Context, _ agent.DraftRequest) (*agent.DraftResponse, error) {
	if s.resp == nil {
		return nil, agent.ErrNotConfigured
	}
	return s.resp, nil
}

type stubSender struct{}

func (stubSender) Send(_ context.Context, _ mailer.OutboundMail) error { return nil }

type webhookFixture struct {
	db     *gorm.DB
	router *gin.Engine
	agent  *stubAgent
}

func newWebhookFixture(t *testing.T, certDomain string) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := filepath.Join(t.TempDir(), "webhook_test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&maildomain.EmailAddress{},
		&maildomain.EmailThread{},
		&maildomain.EmailMessage{},
		&maildomain.EmailAttachment{},
		&maildomain.RawMessage{},
		&maildomain.DeliveryLog{},
		&listingdomain.Property{},
	))

	teamID := "T1"
	require.NoError(t, db.Create(&maildomain.EmailAddress{
		ID: "addr-1", Address: "leasing-7f3a@mailhost", TeamID: &teamID, IsActive: true,
	}).Error)

	agentClient := &stubAgent{}
	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	pipeline := usecase.NewPipeline(
		repository.NewAddressRepository(db),
		repository.NewMailRepository(db, policy),
		listingrepo.NewPropertyRepository(db),
		nil,
		agentClient,
		stubSender{},
	)
	handler := NewWebhookHandler(pipeline, snsverify.New(certDomain))

	router := gin.New()
	webhooks := router.Group("/api/webhooks")
	webhooks.Use(SecretMiddleware(testSecret))
	webhooks.POST("/email", handler.Handle)

	return &webhookFixture{db: db, router: router, agent: agentClient}
}

func (f *webhookFixture) post(t *testing.T, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	url := "/api/webhooks/email"
	if token != "" {
		url += "?token=" + token
	}
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsMissingToken(t *testing.T) {
	f := newWebhookFixture(t, "example.com")

	w := f.post(t, "", `{"Type":"Notification"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRejectsWrongToken(t *testing.T) {
	f := newWebhookFixture(t, "example.com")

	w := f.post(t, "wrong-secret", `{"Type":"Notification"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAcceptsHeaderToken(t *testing.T) {
	f := newWebhookFixture(t, "example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/email", strings.NewReader(`{"x":1}`))
	req.Header.Set("X-Webhook-Token", testSecret)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	// Authenticated but unclassifiable: the middleware passed.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookGarbageBodyReturnsTimestampedError(t *testing.T) {
	f := newWebhookFixture(t, "example.com")

	w := f.post(t, testSecret, `this is not json`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
	_, err := time.Parse(time.RFC3339, resp["timestamp"])
	assert.NoError(t, err)
}

func TestWebhookConfirmsSubscription(t *testing.T) {
	var confirmed atomic.Bool
	confirmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		confirmed.Store(true)
		w.WriteHeader(http.StatusOK)
	}))
	defer confirmSrv.Close()

	f := newWebhookFixture(t, "127.0.0.1")

	body := fmt.Sprintf(`{
		"Type": "SubscriptionConfirmation",
		"TopicArn": "arn:aws:sns:us-east-1:123:inbound-mail",
		"SigningCertURL": "%s/cert.pem",
		"SubscribeURL": "%s/confirm?token=abc"
	}`, confirmSrv.URL, confirmSrv.URL)

	w := f.post(t, testSecret, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, confirmed.Load())
}

func TestWebhookRejectsSubscriptionFromUntrustedCertHost(t *testing.T) {
	f := newWebhookFixture(t, "trusted.example.com")

	body := `{
		"Type": "SubscriptionConfirmation",
		"TopicArn": "arn",
		"SigningCertURL": "https://attacker.net/cert.pem",
		"SubscribeURL": "https://attacker.net/confirm"
	}`

	w := f.post(t, testSecret, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookSubscriptionConfirmationEndpointDown(t *testing.T) {
	deadSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer deadSrv.Close()

	f := newWebhookFixture(t, "127.0.0.1")

	body := fmt.Sprintf(`{
		"Type": "SubscriptionConfirmation",
		"TopicArn": "arn",
		"SigningCertURL": "%s/cert.pem",
		"SubscribeURL": "%s/confirm"
	}`, deadSrv.URL, deadSrv.URL)

	w := f.post(t, testSecret, body)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWebhookRejectsUnsignedNotification(t *testing.T) {
	f := newWebhookFixture(t, "example.com")

	body := `{
		"Type": "Notification",
		"MessageId": "n-1",
		"TopicArn": "arn",
		"Message": "{\"Records\":[]}",
		"Signature": "Zm9yZ2Vk",
		"SigningCertURL": "https://attacker.net/cert.pem"
	}`

	w := f.post(t, testSecret, body)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

const rawOakAveInquiry = "From: Jane Doe <jane@example.com>\r\n" +
	"To: leasing-7f3a@mailhost\r\n" +
	"Subject: Interested in 12 Oak Ave\r\n" +
	"\r\n" +
	"Is this still available?"

func directDeliveryBody(t *testing.T) string {
	t.Helper()
	payload := map[string]interface{}{
		"notificationType": "Received",
		"mail": map[string]interface{}{
			"messageId":   "direct-oak-1",
			"source":      "jane@example.com",
			"destination": []string{"leasing-7f3a@mailhost"},
			"timestamp":   "2026-08-28T10:00:00.000Z",
			"commonHeaders": map[string]interface{}{
				"from":    []string{"Jane Doe <jane@example.com>"},
				"subject": "Interested in 12 Oak Ave",
			},
		},
		"content": rawOakAveInquiry,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(body)
}

func TestWebhookDirectDeliveryStoresMessage(t *testing.T) {
	f := newWebhookFixture(t, "example.com")

	w := f.post(t, testSecret, directDeliveryBody(t))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["ok"])
	assert.Equal(t, float64(0), resp["failed"])

	var message maildomain.EmailMessage
	require.NoError(t, f.db.First(&message, "provider_message_id = ?", "direct-oak-1").Error)
	assert.Equal(t, "Is this still available?", message.Body)
	assert.Equal(t, maildomain.MessageStatusReceived, message.Status)
	assert.Equal(t, "Interested in 12 Oak Ave", message.Subject)
	assert.False(t, message.HasAttachments)

	var thread maildomain.EmailThread
	require.NoError(t, f.db.First(&thread, "id = ?", message.ThreadID).Error)
	require.NotNil(t, thread.TeamID)
	assert.Equal(t, "T1", *thread.TeamID)

	var threadCount int64
	require.NoError(t, f.db.Model(&maildomain.EmailThread{}).Count(&threadCount).Error)
	assert.Equal(t, int64(1), threadCount)
}

func TestWebhookDirectDeliveryWithAgentReply(t *testing.T) {
	f := newWebhookFixture(t, "example.com")
	f.agent.resp = &agent.DraftResponse{
		ReplyBody:  "Yes, 12 Oak Ave is still available. Would you like to book a viewing?",
		Confidence: 0.95,
	}

	w := f.post(t, testSecret, directDeliveryBody(t))
	assert.Equal(t, http.StatusOK, w.Code)

	var messages []maildomain.EmailMessage
	require.NoError(t, f.db.Find(&messages).Error)
	require.Len(t, messages, 2)

	var outbound maildomain.EmailMessage
	require.NoError(t, f.db.First(&outbound, "status = ?", maildomain.MessageStatusOutgoing).Error)
	assert.True(t, outbound.AIGenerated)
	assert.Equal(t, "Re: Interested in 12 Oak Ave", outbound.Subject)
	assert.Equal(t, "jane@example.com", outbound.ToAddress)
	assert.Equal(t, "direct-oak-1", outbound.InReplyTo)
}

func TestWebhookUnknownRecipientStillReturns200(t *testing.T) {
	f := newWebhookFixture(t, "example.com")

	payload := map[string]interface{}{
		"notificationType": "Received",
		"mail": map[string]interface{}{
			"messageId":   "direct-unknown",
			"source":      "jane@example.com",
			"destination": []string{"nobody@mailhost"},
		},
		"content": rawOakAveInquiry,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := f.post(t, testSecret, string(body))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["ok"])
	assert.Equal(t, float64(1), resp["skipped"])
}
