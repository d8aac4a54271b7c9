package delivery

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"mailroom-backend/internal/webhook/dto"
	"mailroom-backend/internal/webhook/usecase"
	"mailroom-backend/pkg/snsverify"

	"github.com/gin-gonic/gin"
)

// WebhookHandler is the pipeline's single entry point: it authenticates the
// call, classifies the envelope once and drives the per-record pipeline.
type WebhookHandler struct {
	pipeline  *usecase.Pipeline
	verifier  *snsverify.Verifier
	confirmer *http.Client
}

func NewWebhookHandler(pipeline *usecase.Pipeline, verifier *snsverify.Verifier) *WebhookHandler {
	return &WebhookHandler{
		pipeline:  pipeline,
		verifier:  verifier,
		confirmer: &http.Client{Timeout: 10 * time.Second},
	}
}

// Handle processes one webhook delivery. Per-record failures never change
// the overall 200: the response reflects whether the batch as a whole was
// accepted.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, fmt.Errorf("read body: %w", err))
		return
	}

	envelope, err := dto.Classify(body)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}

	switch envelope.Kind {
	case dto.SubscriptionEnvelope:
		h.handleSubscription(c, envelope.SNS)
	case dto.ContentNotificationEnvelope:
		h.handleNotification(c, envelope)
	case dto.ProviderDirectEnvelope:
		h.handleDirectDelivery(c, envelope.Direct)
	default:
		errorResponse(c, http.StatusInternalServerError, dto.ErrUnrecognizedEnvelope)
	}
}

func (h *WebhookHandler) handleSubscription(c *gin.Context, env *snsverify.Envelope) {
	if !h.verifier.Verify(env) {
		c.JSON(http.StatusForbidden, gin.H{"error": "signature verification failed"})
		return
	}

	if env.Type == snsverify.TypeUnsubscribeConfirmation {
		log.Printf("[Webhook] Unsubscribe confirmation received for topic %s", env.TopicArn)
		c.JSON(http.StatusOK, gin.H{"message": "unsubscribe acknowledged"})
		return
	}

	resp, err := h.confirmer.Get(env.SubscribeURL)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, fmt.Errorf("subscription confirmation failed: %w", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		errorResponse(c, http.StatusInternalServerError, fmt.Errorf("subscription confirmation returned status %d", resp.StatusCode))
		return
	}

	log.Printf("[Webhook] Subscription confirmed for topic %s", env.TopicArn)
	c.JSON(http.StatusOK, gin.H{"message": "subscription confirmed"})
}

func (h *WebhookHandler) handleNotification(c *gin.Context, envelope *dto.ClassifiedEnvelope) {
	if !h.verifier.Verify(envelope.SNS) {
		c.JSON(http.StatusForbidden, gin.H{"error": "signature verification failed"})
		return
	}

	report, err := h.pipeline.HandleNotification(c.Request.Context(), envelope)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}
	okResponse(c, report)
}

func (h *WebhookHandler) handleDirectDelivery(c *gin.Context, dd *dto.DirectDelivery) {
	report, err := h.pipeline.HandleDirectDelivery(c.Request.Context(), dd)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err)
		return
	}
	okResponse(c, report)
}

func okResponse(c *gin.Context, report *usecase.BatchReport) {
	ok, skipped, failed := report.Counts()
	c.JSON(http.StatusOK, gin.H{
		"message": "batch processed",
		"ok":      ok,
		"skipped": skipped,
		"failed":  failed,
	})
}

func errorResponse(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{
		"error":     err.Error(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
