package api

import (
	mailDelivery "mailroom-backend/internal/mail/delivery"
	webhookDelivery "mailroom-backend/internal/webhook/delivery"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, webhookHandler *webhookDelivery.WebhookHandler, inboxHandler *mailDelivery.InboxHandler, secret string) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Inbound email webhook
		webhooks := api.Group("/webhooks")
		webhooks.Use(webhookDelivery.SecretMiddleware(secret))
		{
			webhooks.POST("/email", webhookHandler.Handle)
		}

		// Inbox read surface (consumed by the inbox UI and other collaborators)
		threads := api.Group("/threads")
		threads.Use(webhookDelivery.SecretMiddleware(secret))
		{
			threads.GET("", inboxHandler.ListThreads)
			threads.GET("/:id/messages", inboxHandler.GetThreadMessages)
		}

		messages := api.Group("/messages")
		messages.Use(webhookDelivery.SecretMiddleware(secret))
		{
			messages.PATCH("/:id/read", inboxHandler.MarkAsRead)
		}
	}
}
