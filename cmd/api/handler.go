package api

import (
	mailDelivery "mailroom-backend/internal/mail/delivery"
	webhookDelivery "mailroom-backend/internal/webhook/delivery"
	"mailroom-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	webhookHandler *webhookDelivery.WebhookHandler
	inboxHandler   *mailDelivery.InboxHandler
	config         *config.Config
}

func NewHandler(webhookHandler *webhookDelivery.WebhookHandler, inboxHandler *mailDelivery.InboxHandler, cfg *config.Config) *Handler {
	return &Handler{
		webhookHandler: webhookHandler,
		inboxHandler:   inboxHandler,
		config:         cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-Webhook-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.webhookHandler, h.inboxHandler, h.config.WebhookSecret)

	return r.Run(addr)
}
